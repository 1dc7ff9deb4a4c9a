package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/service/responder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoAI struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts [][]core.Message
}

func (e *echoAI) Chat(_ context.Context, history []core.Message, _ []core.Tool) (core.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompts = append(e.prompts, history)
	if e.err != nil {
		return core.Message{}, e.err
	}
	return core.Message{Role: core.RoleAssistant, Content: e.reply}, nil
}

type countingRetriever struct {
	calls int
}

func (c *countingRetriever) Search(context.Context, string, int) ([]core.Passage, error) {
	c.calls++
	return []core.Passage{{Content: "Skills: Go, SQL"}}, nil
}

func TestRuleClassifier(t *testing.T) {
	tests := []struct {
		name string
		in   ClassifyInput
		want Intent
	}{
		{"project ideas", ClassifyInput{Message: "give me project ideas"}, IntentIdeation},
		{"brainstorm", ClassifyInput{Message: "Let's brainstorm something for a climate hackathon"}, IntentIdeation},
		{"explain code", ClassifyInput{Message: "Can you explain this snippet?\n```go\nfmt.Println(1)\n```"}, IntentCodeExplanation},
		{"traceback", ClassifyInput{Message: "I get a Traceback with KeyError when I run it"}, IntentDebugging},
		{"not working", ClassifyInput{Message: "my docker build is not working and keeps crashing"}, IntentDebugging},
		{"summarize upload", ClassifyInput{Message: "summarize this", NewDocument: true}, IntentDocumentSummary},
		{"skills listed", ClassifyInput{Message: "what skills are listed", HasKnowledge: true}, IntentDocumentSummary},
		{"bare upload", ClassifyInput{Message: "", NewDocument: true}, IntentDocumentSummary},
		{"no keywords", ClassifyInput{Message: "what time zone is the event in?"}, IntentGeneral},
		{"weak match", ClassifyInput{Message: "which project?"}, IntentGeneral},
		{"tie", ClassifyInput{Message: "explain this error"}, IntentGeneral},
	}
	c := NewRuleClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Intent, got.Rationale)
			assert.NotEmpty(t, got.Rationale)
		})
	}
}

func TestRuleClassifier_Deterministic(t *testing.T) {
	c := NewRuleClassifier()
	in := ClassifyInput{Message: "suggest project ideas from my resume"}
	first, _ := c.Classify(context.Background(), in)
	for i := 0; i < 20; i++ {
		again, _ := c.Classify(context.Background(), in)
		require.Equal(t, first, again)
	}
	require.Equal(t, IntentIdeation, first.Intent)
}

func TestModelClassifier(t *testing.T) {
	tests := []struct {
		name string
		ai   *echoAI
		msg  string
		want Intent
	}{
		{"label", &echoAI{reply: "debugging"}, "hello", IntentDebugging},
		{"decorated label", &echoAI{reply: " `Document-Summary`.\n"}, "hello", IntentDocumentSummary},
		{"unknown label falls back", &echoAI{reply: "poetry"}, "give me project ideas", IntentIdeation},
		{"error falls back", &echoAI{err: errors.New("503")}, "give me project ideas", IntentIdeation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewModelClassifier(tt.ai).Classify(context.Background(), ClassifyInput{Message: tt.msg})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Intent)
		})
	}
}

func newTestRouter(t *testing.T, ai core.AIProvider, defs ...responder.Definition) *Router {
	t.Helper()
	catalog, err := responder.NewCatalog(ai, nil, responder.Options{}, defs...)
	require.NoError(t, err)
	r, err := New(NewRuleClassifier(), catalog, 3)
	require.NoError(t, err)
	return r
}

func TestRoute_InvokesChosenResponder(t *testing.T) {
	ai := &echoAI{reply: "1. Study buddy"}
	r := newTestRouter(t, ai)

	decision, text, err := r.Route(context.Background(), Request{SessionID: "s1", Message: "give me project ideas"})
	require.NoError(t, err)
	assert.Equal(t, "1. Study buddy", text)
	assert.Equal(t, responder.IdeaGenerator, decision.Responder)
	assert.Equal(t, IntentIdeation, decision.Intent)
	assert.Equal(t, "s1", decision.SessionID)
	require.Len(t, ai.prompts, 1)
	assert.True(t, strings.Contains(ai.prompts[0][0].Content, responder.IdeaGenerator))
}

func TestRoute_FoldsPassagesForDefinitionsWithoutSearch(t *testing.T) {
	defs := responder.DefaultDefinitions(0)
	for i := range defs {
		defs[i].KnowledgeSearch = false
	}
	ai := &echoAI{reply: "Go and SQL"}
	r := newTestRouter(t, ai, defs...)
	kb := &countingRetriever{}

	_, _, err := r.Route(context.Background(), Request{SessionID: "s1", Message: "what skills are listed", Knowledge: kb})
	require.NoError(t, err)
	assert.Equal(t, 1, kb.calls)
	assert.Contains(t, ai.prompts[0][1].Content, "Skills: Go, SQL")
}

func TestRoute_ResponderSearchesOnce(t *testing.T) {
	ai := &echoAI{reply: "Go and SQL"}
	r := newTestRouter(t, ai)
	kb := &countingRetriever{}

	_, _, err := r.Route(context.Background(), Request{SessionID: "s1", Message: "what skills are listed", Knowledge: kb})
	require.NoError(t, err)
	assert.Equal(t, 1, kb.calls)
}

func TestRoute_PropagatesProviderUnavailable(t *testing.T) {
	r := newTestRouter(t, &echoAI{err: context.DeadlineExceeded})

	decision, _, err := r.Route(context.Background(), Request{SessionID: "s1", Message: "hi"})
	require.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.Equal(t, responder.GeneralAssistant, decision.Responder)
}

func TestNew_RejectsCatalogWithoutRouteTargets(t *testing.T) {
	catalog, err := responder.NewCatalog(&echoAI{}, nil, responder.Options{}, responder.DefaultDefinitions(0)[0])
	require.NoError(t, err)
	_, err = New(NewRuleClassifier(), catalog, 0)
	require.Error(t, err)
}
