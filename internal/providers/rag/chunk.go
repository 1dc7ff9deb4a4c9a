package rag

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/sandevgo/hackpal/internal/config"
)

const encodingName = "cl100k_base"

var (
	tk     atomic.Pointer[tiktoken.Tiktoken]
	tkMu   sync.Mutex
	loadTk = func() (*tiktoken.Tiktoken, error) {
		// The offline loader ships the BPE ranks with the binary.
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		return tiktoken.GetEncoding(encodingName)
	}
)

type Chunk struct {
	Text      string
	TokenSize int
	Index     int
}

type ChunkerConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultChunkerConfig fits a 512 token embedding context with headroom.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTokens:     400,
		OverlapTokens: 50,
	}
}

func NewChunkerConfig(cfg *config.RAGConfig) ChunkerConfig {
	out := DefaultChunkerConfig()
	if cfg == nil {
		return out
	}
	if cfg.ChunkTokens > 0 {
		out.MaxTokens = cfg.ChunkTokens
	}
	if cfg.OverlapTokens >= 0 && cfg.OverlapTokens < out.MaxTokens {
		out.OverlapTokens = cfg.OverlapTokens
	}
	return out
}

// ChunkText packs whole sentences into chunks of at most MaxTokens.
// Consecutive chunks share trailing sentences worth about OverlapTokens.
// Sentences longer than MaxTokens are cut on token boundaries.
func ChunkText(text string, cfg ChunkerConfig) ([]Chunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	enc, err := tokenizer()
	if err != nil {
		return nil, err
	}

	sentences := splitSentences(text)

	var (
		chunks  []Chunk
		buf     strings.Builder
		bufSize int
	)

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:      strings.TrimSpace(buf.String()),
			TokenSize: bufSize,
			Index:     len(chunks),
		})
		buf.Reset()
		bufSize = 0
	}

	for i, sentence := range sentences {
		size := countTokens(enc, sentence)

		if size > cfg.MaxTokens {
			flush()
			for _, piece := range splitByTokens(enc, sentence, cfg.MaxTokens) {
				chunks = append(chunks, Chunk{
					Text:      strings.TrimSpace(piece.Text),
					TokenSize: piece.TokenSize,
					Index:     len(chunks),
				})
			}
			continue
		}

		if bufSize+size > cfg.MaxTokens && buf.Len() > 0 {
			flush()
			overlap := overlapBefore(enc, sentences, i, cfg.OverlapTokens)
			buf.WriteString(overlap)
			bufSize = countTokens(enc, overlap)
		}

		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(sentence)
		bufSize += size
	}
	flush()

	return chunks, nil
}

// splitByTokens encodes text and slices the token array into pieces of at
// most maxTokens. Index is left to the caller.
func splitByTokens(enc *tiktoken.Tiktoken, text string, maxTokens int) []Chunk {
	tokens := enc.Encode(text, nil, nil)

	var pieces []Chunk
	for start := 0; start < len(tokens); start += maxTokens {
		end := min(start+maxTokens, len(tokens))
		pieces = append(pieces, Chunk{
			Text:      enc.Decode(tokens[start:end]),
			TokenSize: end - start,
		})
	}
	return pieces
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true, '．': true, '…': true,
}

func splitSentences(text string) []string {
	var sentences []string

	for _, para := range splitParagraphs(text) {
		var current strings.Builder
		runes := []rune(para)

		for i, r := range runes {
			current.WriteRune(r)
			if !sentenceEnders[r] {
				continue
			}
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) || isCJK(runes[i+1]) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}

// splitParagraphs breaks on blank lines and joins soft-wrapped lines.
// PDF extraction emits a newline per visual line.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\n", " "))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// tokenizer loads the encoding on first use. A failed load is not cached,
// the next call tries again.
func tokenizer() (*tiktoken.Tiktoken, error) {
	if enc := tk.Load(); enc != nil {
		return enc, nil
	}

	tkMu.Lock()
	defer tkMu.Unlock()
	if enc := tk.Load(); enc != nil {
		return enc, nil
	}

	enc, err := loadTk()
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	tk.Store(enc)
	return enc, nil
}

func countTokens(enc *tiktoken.Tiktoken, text string) int {
	if text == "" {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}

func overlapBefore(enc *tiktoken.Tiktoken, sentences []string, idx int, targetTokens int) string {
	var (
		overlap []string
		tokens  int
	)
	for i := idx - 1; i >= 0 && tokens < targetTokens; i-- {
		overlap = append([]string{sentences[i]}, overlap...)
		tokens += countTokens(enc, sentences[i])
	}
	return strings.Join(overlap, " ")
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
