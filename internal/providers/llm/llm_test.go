package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestOpenAICompatible_Chat(t *testing.T) {
	var payload struct {
		Model    string         `json:"model"`
		Messages []core.Message `json:"messages"`
		Tools    []core.Tool    `json:"tools"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, core.AppName, r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[{"id":"c1","type":"function","function":{"name":"web_search","arguments":"{\"query\":\"go\"}"}}]}}]}`))
	}))
	defer srv.Close()

	p := bearer(srv.URL, "key", "gpt-test", map[string]string{"X-Title": core.AppName})
	msg, err := p.Chat(context.Background(),
		[]core.Message{{Role: core.RoleUser, Content: "search go"}},
		[]core.Tool{{Type: "function", Function: core.Function{Name: "web_search"}}},
	)
	require.NoError(t, err)
	assert.Equal(t, "gpt-test", payload.Model)
	assert.Len(t, payload.Tools, 1)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "web_search", msg.ToolCalls[0].Function.Name)
}

func TestOpenAICompatible_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewCustomOpenAI(srv.URL, "", "m").Chat(context.Background(), nil, nil)
	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusServiceUnavailable, status.Code)
	assert.True(t, status.Transient())
}

func TestAnthropic_SystemPrompt(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}]}`))
	}))
	defer srv.Close()

	a := NewAnthropic("secret", "claude-test")
	a.baseURL = srv.URL

	msg, err := a.Chat(context.Background(), []core.Message{
		{Role: core.RoleSystem, Content: "You are an assistant."},
		{Role: core.RoleSystem, Content: "Document Context: none"},
		{Role: core.RoleUser, Content: "hi"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", msg.Content)
	assert.Equal(t, "You are an assistant.\n\nDocument Context: none", payload["system"])
	assert.Len(t, payload["messages"], 1)
}

func TestToGeminiContents(t *testing.T) {
	system, contents, err := toGeminiContents([]core.Message{
		{Role: core.RoleSystem, Content: "be brief"},
		{Role: core.RoleUser, Content: "weather?"},
		{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{
			{ID: "a", Function: core.FunctionCall{Name: "web_search", Arguments: `{"query":"weather"}`}},
			{ID: "b", Function: core.FunctionCall{Name: "fetch_url", Arguments: `{"url":"https://x"}`}},
		}},
		{Role: core.RoleTool, ToolCallID: "a", Name: "web_search", Content: "sunny"},
		{Role: core.RoleTool, ToolCallID: "b", Name: "fetch_url", Content: "page"},
	})
	require.NoError(t, err)
	assert.Equal(t, "be brief", system)
	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, "weather", contents[1].Parts[0].FunctionCall.Args["query"])
	require.Len(t, contents[2].Parts, 2)
	assert.Equal(t, "fetch_url", contents[2].Parts[1].FunctionResponse.Name)

	_, _, err = toGeminiContents([]core.Message{{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{
		{Function: core.FunctionCall{Name: "x", Arguments: "{broken"}},
	}}})
	assert.Error(t, err)
}

type scriptedProvider struct {
	calls   atomic.Int32
	replies []func(ctx context.Context) (core.Message, error)
}

func (s *scriptedProvider) Chat(ctx context.Context, _ []core.Message, _ []core.Tool) (core.Message, error) {
	i := int(s.calls.Add(1)) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i](ctx)
}

func reply(content string) func(context.Context) (core.Message, error) {
	return func(context.Context) (core.Message, error) {
		return core.Message{Role: core.RoleAssistant, Content: content}, nil
	}
}

func fail(err error) func(context.Context) (core.Message, error) {
	return func(context.Context) (core.Message, error) { return core.Message{}, err }
}

func fastGuard(next core.AIProvider, timeout time.Duration, retries int) *Guard {
	return newGuard(next, timeout, &retry.Config{
		MaxRetries:    retries,
		BackoffFactor: 1,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		Retryable:     isTransient,
	})
}

func TestGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("retries transient status", func(t *testing.T) {
		p := &scriptedProvider{replies: []func(context.Context) (core.Message, error){
			fail(&StatusError{Code: http.StatusTooManyRequests}),
			reply("ok"),
		}}
		msg, err := fastGuard(p, time.Second, 2).Chat(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", msg.Content)
		assert.Equal(t, int32(2), p.calls.Load())
	})

	t.Run("client error is not retried", func(t *testing.T) {
		p := &scriptedProvider{replies: []func(context.Context) (core.Message, error){
			fail(&StatusError{Code: http.StatusUnauthorized}),
		}}
		_, err := fastGuard(p, time.Second, 2).Chat(ctx, nil, nil)
		assert.ErrorIs(t, err, core.ErrProviderUnavailable)
		assert.Equal(t, int32(1), p.calls.Load())
	})

	t.Run("timeout", func(t *testing.T) {
		p := &scriptedProvider{replies: []func(context.Context) (core.Message, error){
			func(ctx context.Context) (core.Message, error) {
				<-ctx.Done()
				return core.Message{}, ctx.Err()
			},
		}}
		_, err := fastGuard(p, 10*time.Millisecond, 1).Chat(ctx, nil, nil)
		assert.ErrorIs(t, err, core.ErrProviderUnavailable)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, int32(2), p.calls.Load())
	})

	t.Run("empty output", func(t *testing.T) {
		p := &scriptedProvider{replies: []func(context.Context) (core.Message, error){reply("  \n")}}
		_, err := fastGuard(p, time.Second, 0).Chat(ctx, nil, nil)
		assert.ErrorIs(t, err, core.ErrProviderUnavailable)
	})

	t.Run("parent cancellation is final", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		p := &scriptedProvider{replies: []func(context.Context) (core.Message, error){
			func(context.Context) (core.Message, error) {
				cancel()
				return core.Message{}, errors.New("canceled mid-flight")
			},
		}}
		_, err := fastGuard(p, time.Second, 3).Chat(cctx, nil, nil)
		assert.ErrorIs(t, err, core.ErrProviderUnavailable)
		assert.Equal(t, int32(1), p.calls.Load())
	})
}

func TestOpenAICompatible_GatewayErrorInsideOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"upstream timed out","code":524}}`))
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "", "llama").Chat(context.Background(), nil, nil)
	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, "upstream timed out", status.Body)
	assert.True(t, status.Transient())
}

func TestOpenAICompatible_ReasoningContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"42","reasoning_content":"6 times 7"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	msg, err := NewCustomOpenAI(srv.URL, "", "m").Chat(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, core.RoleAssistant, msg.Role)
	assert.Equal(t, "42", msg.Content)
	assert.Equal(t, "6 times 7", msg.Reasoning)
}

func TestOpenAICompatible_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewCustomOpenAI(srv.URL, "", "m").Chat(context.Background(), nil, nil)
	require.ErrorIs(t, err, errNoChoices)
}
