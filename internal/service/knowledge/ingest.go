package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/hackpal/internal/core"
	"github.com/sandevgo/hackpal/internal/providers/rag"
	"github.com/sandevgo/hackpal/pkg/log"
	"golang.org/x/sync/errgroup"
)

const defaultEmbedWorkers = 4

var errNoPassages = errors.New("document produced no passages")

// Ingester turns a document into indexed passages of one session.
type Ingester struct {
	extractor core.DocumentExtractor
	embedder  core.Embedder
	passages  core.PassageStore
	chunking  rag.ChunkerConfig
	workers   int
}

func NewIngester(
	extractor core.DocumentExtractor,
	embedder core.Embedder,
	passages core.PassageStore,
	chunking rag.ChunkerConfig,
) *Ingester {
	return &Ingester{
		extractor: extractor,
		embedder:  embedder,
		passages:  passages,
		chunking:  chunking,
		workers:   defaultEmbedWorkers,
	}
}

// Ingest extracts, chunks and embeds the document and upserts its passages.
// Every failure is a KnowledgeIngestionError.
func (i *Ingester) Ingest(ctx context.Context, sessionID string, doc core.Document) (core.KnowledgeRecord, error) {
	logger := log.FromCtx(ctx)
	started := time.Now()

	text, err := i.extractor.Extract(ctx, doc)
	if err != nil {
		return core.KnowledgeRecord{}, core.NewKnowledgeIngestionError("extract "+doc.Name, err)
	}

	chunks, err := rag.ChunkText(text, i.chunking)
	if err != nil {
		return core.KnowledgeRecord{}, core.NewKnowledgeIngestionError("chunk "+doc.Name, err)
	}
	if len(chunks) == 0 {
		return core.KnowledgeRecord{}, core.NewKnowledgeIngestionError("chunk "+doc.Name, errNoPassages)
	}

	passages := make([]core.Passage, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for idx, chunk := range chunks {
		g.Go(func() error {
			vec, err := i.embedder.EncodePassage(gctx, chunk.Text)
			if err != nil {
				return fmt.Errorf("passage %d: %w", chunk.Index, err)
			}
			passages[idx] = core.Passage{
				SessionID: sessionID,
				Index:     chunk.Index,
				Content:   chunk.Text,
				Hash:      contentHash(chunk.Text),
				Embedding: vec,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.KnowledgeRecord{}, core.NewKnowledgeIngestionError("embed "+doc.Name, err)
	}

	inserted, err := i.passages.UpsertPassages(ctx, sessionID, passages)
	if err != nil {
		return core.KnowledgeRecord{}, core.NewKnowledgeIngestionError("store passages", err)
	}

	logger.Info().
		Str("session_id", sessionID).
		Str("document", doc.Name).
		Int("chunks", len(chunks)).
		Int("inserted", inserted).
		Dur("took", time.Since(started)).
		Msg("document ingested")

	return core.KnowledgeRecord{
		SessionID:    sessionID,
		SourceName:   doc.Name,
		DocumentHash: contentHash(text),
		Passages:     len(passages),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
