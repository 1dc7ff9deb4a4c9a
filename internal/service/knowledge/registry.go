package knowledge

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/pkg/log"
	"golang.org/x/sync/singleflight"
)

const shardCount = 32

type shard struct {
	mu    sync.RWMutex
	bases map[string]*KnowledgeBase
}

// Registry maps sessions to their knowledge base. A session's base is built
// at most once; later documents for the same session are ignored.
type Registry struct {
	shards   [shardCount]*shard
	inflight singleflight.Group

	ingester *Ingester
	records  core.KnowledgeStore
	embedder core.Embedder
	passages core.PassageStore
}

func NewRegistry(
	ingester *Ingester,
	records core.KnowledgeStore,
	embedder core.Embedder,
	passages core.PassageStore,
) *Registry {
	r := &Registry{
		ingester: ingester,
		records:  records,
		embedder: embedder,
		passages: passages,
	}
	for i := range r.shards {
		r.shards[i] = &shard{bases: make(map[string]*KnowledgeBase)}
	}
	return r
}

// Resolve returns the session's knowledge base, building it from doc when
// none exists yet. It returns nil without error when the session has no
// base and no document was supplied.
func (r *Registry) Resolve(ctx context.Context, sessionID string, doc *core.Document) (*KnowledgeBase, error) {
	if kb := r.lookup(sessionID); kb != nil {
		r.ignoreUpload(ctx, kb, doc)
		return kb, nil
	}

	key := "load:" + sessionID
	if doc != nil {
		key = "build:" + sessionID
	}

	v, err, _ := r.inflight.Do(key, func() (any, error) {
		return r.resolveSlow(ctx, sessionID, doc)
	})
	if err != nil {
		return nil, err
	}
	return v.(*KnowledgeBase), nil
}

func (r *Registry) resolveSlow(ctx context.Context, sessionID string, doc *core.Document) (*KnowledgeBase, error) {
	if kb := r.lookup(sessionID); kb != nil {
		r.ignoreUpload(ctx, kb, doc)
		return kb, nil
	}

	rec, err := r.records.FindKnowledgeBase(ctx, sessionID)
	if err != nil {
		return nil, core.NewKnowledgeIngestionError("load knowledge base", err)
	}
	if rec != nil {
		kb := r.store(newKnowledgeBase(*rec, r.embedder, r.passages))
		log.FromCtx(ctx).Debug().
			Str("session_id", sessionID).
			Str("document", rec.SourceName).
			Msg("knowledge base rehydrated")
		r.ignoreUpload(ctx, kb, doc)
		return kb, nil
	}

	if doc == nil {
		return (*KnowledgeBase)(nil), nil
	}

	built, err := r.ingester.Ingest(ctx, sessionID, *doc)
	if err != nil {
		return nil, err
	}
	if err := r.records.SaveKnowledgeBase(ctx, built); err != nil {
		return nil, core.NewKnowledgeIngestionError("save knowledge base", err)
	}
	return r.store(newKnowledgeBase(built, r.embedder, r.passages)), nil
}

func (r *Registry) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return r.shards[h.Sum32()%shardCount]
}

func (r *Registry) lookup(sessionID string) *KnowledgeBase {
	s := r.shardFor(sessionID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bases[sessionID]
}

// store keeps the first registered base for a session and returns it.
func (r *Registry) store(kb *KnowledgeBase) *KnowledgeBase {
	s := r.shardFor(kb.SessionID())
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bases[kb.SessionID()]; ok {
		return existing
	}
	s.bases[kb.SessionID()] = kb
	return kb
}

func (r *Registry) ignoreUpload(ctx context.Context, kb *KnowledgeBase, doc *core.Document) {
	if doc == nil {
		return
	}
	log.FromCtx(ctx).Warn().
		Str("session_id", kb.SessionID()).
		Str("document", doc.Name).
		Str("knowledge_source", kb.Source()).
		Msg("session already has a knowledge base, ignoring uploaded document")
}
