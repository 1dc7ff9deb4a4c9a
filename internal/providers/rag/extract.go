package rag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sandevgo/hackpal/internal/core"
)

var (
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrEmptyDocument       = errors.New("document contains no text")
)

// Extractor reads plain text out of uploaded PDF, text and markdown files.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract picks the format from the original file name, falling back to the
// temporary path.
func (e *Extractor) Extract(ctx context.Context, doc core.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	ext := filepath.Ext(doc.Name)
	if ext == "" {
		ext = filepath.Ext(doc.Path)
	}
	switch ext = strings.ToLower(ext); ext {
	case ".pdf":
		text, err = extractPDF(doc.Path)
	case ".txt", ".md", ".markdown":
		var data []byte
		data, err = os.ReadFile(doc.Path)
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDocument, ext)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

func extractPDF(path string) (text string, err error) {
	// The pdf reader panics on some malformed cross reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
