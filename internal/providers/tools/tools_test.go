package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() *retry.Config {
	return &retry.Config{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1.0,
	}
}

func urlArgs(u string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"url": %q}`, u))
}

func TestFetch_FetchURL(t *testing.T) {
	tests := []struct {
		name         string
		handler      http.HandlerFunc
		args         json.RawMessage
		timeout      time.Duration
		wantErr      string
		wantContains string
		wantAttempts int32
	}{
		{
			name: "html rendered as text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprint(w, `<html><body><h1>Hackathon Rules</h1><p>Teams of four</p></body></html>`)
			},
			wantContains: "Teams of four",
			wantAttempts: 1,
		},
		{
			name: "not found is not retried",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr:      "HTTP 404",
			wantAttempts: 1,
		},
		{
			name: "server error is retried",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr:      "HTTP 500",
			wantAttempts: 3,
		},
		{
			name: "large response truncated",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				_, _ = w.Write([]byte(strings.Repeat("a", maxResponseSize+100)))
			},
			wantContains: strings.Repeat("a", 1024),
			wantAttempts: 1,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
			},
			timeout:      50 * time.Millisecond,
			wantErr:      "failed to fetch url",
			wantAttempts: 3,
		},
		{
			name:    "invalid json",
			args:    json.RawMessage(`{"invalid`),
			wantErr: "invalid arguments",
		},
		{
			name:    "non http scheme",
			args:    urlArgs("file:///etc/passwd"),
			wantErr: "invalid url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			args := tt.args
			if tt.handler != nil {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					attempts.Add(1)
					tt.handler(w, r)
				}))
				defer srv.Close()
				args = urlArgs(srv.URL)
			}

			timeout := tt.timeout
			if timeout == 0 {
				timeout = defaultFetchTimeout
			}

			out, err := NewFetchWithTimeout(timeout, fastRetry()).FetchURL(context.Background(), args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Contains(t, out, tt.wantContains)
				assert.LessOrEqual(t, len(out), maxResponseSize)
			}
			if tt.wantAttempts > 0 {
				assert.Equal(t, tt.wantAttempts, attempts.Load())
			}
		})
	}
}

func TestFetch_UserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	_, err := NewFetchWithTimeout(time.Second, fastRetry()).FetchURL(context.Background(), urlArgs(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, core.AppUserAgent, ua)
}

const duckDuckGoPage = `<html><body>
<div class="result results_links">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&rut=abc">The Go <b>Programming</b> Language</a>
  <a class="result__snippet" href="#">Documentation for Go.</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://devpost.com/hackathons">Devpost Hackathons</a>
  <a class="result__snippet" href="#">Find online hackathons.</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://example.com">Third</a>
</div>
</body></html>`

func TestSearch_WebSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, duckDuckGoPage)
	}))
	defer srv.Close()

	s := NewSearchWithEndpoint(srv.URL, time.Second, fastRetry())

	out, err := s.WebSearch(context.Background(), json.RawMessage(`{"query":"go hackathon","max_results":2}`))
	require.NoError(t, err)
	assert.Equal(t, "go hackathon", gotQuery)
	assert.Contains(t, out, "1. The Go Programming Language\nhttps://go.dev/doc/\nDocumentation for Go.")
	assert.Contains(t, out, "2. Devpost Hackathons")
	assert.NotContains(t, out, "Third")
}

func TestSearch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing</body></html>`)
	}))
	defer srv.Close()

	s := NewSearchWithEndpoint(srv.URL, time.Second, fastRetry())

	_, err := s.WebSearch(context.Background(), json.RawMessage(`{"query":"  "}`))
	assert.ErrorContains(t, err, "query is required")

	out, err := s.WebSearch(context.Background(), json.RawMessage(`{"query":"zzzz"}`))
	require.NoError(t, err)
	assert.Equal(t, "No results found for: zzzz", out)
}

func TestDefaults(t *testing.T) {
	names := map[string]bool{}
	for _, p := range Defaults() {
		for name, def := range p.GetDefinitions() {
			names[name] = true
			assert.True(t, json.Valid([]byte(def.Schema)), name)
		}
	}
	assert.Equal(t, map[string]bool{"fetch_url": true, "web_search": true}, names)
}
