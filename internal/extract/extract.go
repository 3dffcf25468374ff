// Package extract is the local text extraction collaborator. It reads plain
// text and markdown proposals; scanned or binary formats are rejected.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"grantreview/internal/pipeline"
)

// LinesPerPage approximates pages for formats without page structure.
const LinesPerPage = 50

// Supported lists the file extensions Local accepts.
var Supported = []string{".txt", ".md", ".markdown", ".text"}

// Local extracts text from the document bytes, reading the file named by
// the document reference when no bytes were supplied.
type Local struct{}

// Extract implements pipeline.Extractor.
func (Local) Extract(ctx context.Context, doc pipeline.Document) (*pipeline.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := doc.Filename
	if name == "" {
		name = doc.Reference
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" && !IsSupported(name) {
		return nil, fmt.Errorf("unsupported document type %q", ext)
	}

	data := doc.Data
	if data == nil {
		var err error
		if data, err = os.ReadFile(doc.Reference); err != nil {
			return nil, fmt.Errorf("read %s: %w", doc.Reference, err)
		}
	}
	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not a text document", name)
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s contains no text", name)
	}
	return &pipeline.Extraction{
		Text:      text,
		WordCount: len(strings.Fields(text)),
		PageCount: strings.Count(text, "\n")/LinesPerPage + 1,
	}, nil
}

// IsSupported reports whether the file extension is one Local reads.
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range Supported {
		if ext == s {
			return true
		}
	}
	return false
}
