// Package inmem keeps conversation history and knowledge bases in process
// memory. It backs HISTORY_BACKEND=memory and the service tests.
package inmem

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sandevgo/hackpal/internal/core"
)

type Store struct {
	mu        sync.RWMutex
	turns     map[string][]core.Turn
	passages  map[string][]core.Passage
	hashes    map[string]map[string]struct{}
	knowledge map[string]core.KnowledgeRecord
	nextID    int64
}

func New() *Store {
	return &Store{
		turns:     make(map[string][]core.Turn),
		passages:  make(map[string][]core.Passage),
		hashes:    make(map[string]map[string]struct{}),
		knowledge: make(map[string]core.KnowledgeRecord),
	}
}

func (s *Store) Append(_ context.Context, sessionID string, turns ...core.Turn) ([]core.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.turns[sessionID]
	last := int64(len(history))
	stored := make([]core.Turn, 0, len(turns))
	for _, t := range turns {
		last++
		t.SessionID = sessionID
		t.Seq = last
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		stored = append(stored, t)
	}
	s.turns[sessionID] = append(history, stored...)
	return stored, nil
}

func (s *Store) Read(_ context.Context, sessionID string, limit int) ([]core.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.turns[sessionID]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]core.Turn, len(history))
	copy(out, history)
	return out, nil
}

func (s *Store) UpsertPassages(_ context.Context, sessionID string, passages []core.Passage) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen, ok := s.hashes[sessionID]
	if !ok {
		seen = make(map[string]struct{})
		s.hashes[sessionID] = seen
	}

	inserted := 0
	for _, p := range passages {
		if _, dup := seen[p.Hash]; dup {
			continue
		}
		seen[p.Hash] = struct{}{}
		s.nextID++
		p.ID = s.nextID
		p.SessionID = sessionID
		s.passages[sessionID] = append(s.passages[sessionID], p)
		inserted++
	}
	return inserted, nil
}

func (s *Store) SearchPassages(_ context.Context, sessionID string, vector []float32, limit int) ([]core.Passage, error) {
	s.mu.RLock()
	candidates := make([]core.Passage, len(s.passages[sessionID]))
	copy(candidates, s.passages[sessionID])
	s.mu.RUnlock()

	for i := range candidates {
		candidates[i].Score = cosine(vector, candidates[i].Embedding)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *Store) SaveKnowledgeBase(_ context.Context, rec core.KnowledgeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.knowledge[rec.SessionID]; exists {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.knowledge[rec.SessionID] = rec
	return nil
}

func (s *Store) FindKnowledgeBase(_ context.Context, sessionID string) (*core.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.knowledge[sessionID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
