// Package router picks the one responder that answers a message and
// invokes it with the session's history and knowledge.
package router

import (
	"context"
	"fmt"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/service/responder"
	"github.com/sandevgo/hackpal/pkg/log"
)

const defaultRetrievalLimit = 5

// DefaultRoutes maps every intent to the responder that handles it.
var DefaultRoutes = map[Intent]string{
	IntentIdeation:        responder.IdeaGenerator,
	IntentCodeExplanation: responder.CodeExplainer,
	IntentDebugging:       responder.ErrorDebugger,
	IntentDocumentSummary: responder.PDFAssistant,
	IntentGeneral:         responder.GeneralAssistant,
}

type Request struct {
	SessionID string
	Message   string
	History   []core.Turn
	// Knowledge is nil when the session has no knowledge base.
	Knowledge   responder.Retriever
	NewDocument bool
}

type Decision struct {
	SessionID string
	Responder string
	Intent    Intent
	Rationale string
}

type Router struct {
	classifier     Classifier
	catalog        *responder.Catalog
	routes         map[Intent]string
	retrievalLimit int
}

func New(classifier Classifier, catalog *responder.Catalog, retrievalLimit int) (*Router, error) {
	if retrievalLimit <= 0 {
		retrievalLimit = defaultRetrievalLimit
	}
	for _, intent := range Intents {
		name, ok := DefaultRoutes[intent]
		if !ok {
			return nil, fmt.Errorf("no route for intent %q", intent)
		}
		if _, ok := catalog.Get(name); !ok {
			return nil, fmt.Errorf("route %q targets unknown responder %q", intent, name)
		}
	}
	return &Router{
		classifier:     classifier,
		catalog:        catalog,
		routes:         DefaultRoutes,
		retrievalLimit: retrievalLimit,
	}, nil
}

// Route classifies the message and invokes exactly one responder.
func (r *Router) Route(ctx context.Context, req Request) (Decision, string, error) {
	logger := log.FromCtx(ctx)

	class, err := r.classifier.Classify(ctx, ClassifyInput{
		Message:      req.Message,
		HasKnowledge: req.Knowledge != nil,
		NewDocument:  req.NewDocument,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("classifier failed, routing to general")
		class = Classification{Intent: IntentGeneral, Rationale: "classifier error"}
	}

	name, ok := r.routes[class.Intent]
	if !ok {
		name = r.routes[IntentGeneral]
	}
	resp, _ := r.catalog.Get(name)

	decision := Decision{
		SessionID: req.SessionID,
		Responder: name,
		Intent:    class.Intent,
		Rationale: class.Rationale,
	}
	logger.Info().
		Str("session_id", req.SessionID).
		Str("intent", string(decision.Intent)).
		Str("responder", decision.Responder).
		Str("rationale", decision.Rationale).
		Msg("message routed")

	// Retrieval always runs when a knowledge base exists; definitions
	// without knowledge search get the passages folded in here.
	var passages []core.Passage
	if req.Knowledge != nil && !resp.Definition().KnowledgeSearch {
		found, err := req.Knowledge.Search(ctx, req.Message, r.retrievalLimit)
		if err != nil {
			logger.Warn().Err(err).Msg("knowledge search failed")
		} else {
			passages = found
		}
	}

	text, err := resp.Respond(ctx, responder.Request{
		SessionID: req.SessionID,
		Message:   req.Message,
		History:   req.History,
		Knowledge: req.Knowledge,
		Passages:  passages,
	})
	if err != nil {
		return decision, "", fmt.Errorf("failed to respond with %s: %w", name, err)
	}
	return decision, text, nil
}
