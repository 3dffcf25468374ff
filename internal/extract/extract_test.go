package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantreview/internal/pipeline"
)

func TestLocal_CountsWordsAndPages(t *testing.T) {
	text := strings.Repeat("one two three\n", 120)
	ex, err := Local{}.Extract(context.Background(), pipeline.Document{Filename: "p.txt", Data: []byte(text)})
	require.NoError(t, err)
	assert.Equal(t, 360, ex.WordCount)
	assert.Equal(t, 3, ex.PageCount)
}

func TestLocal_ReadsFileWhenNoBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposal.md")
	require.NoError(t, os.WriteFile(path, []byte("\ufeff# Proposal\r\nBudget and timeline.\r\n"), 0o644))

	ex, err := Local{}.Extract(context.Background(), pipeline.Document{Reference: path})
	require.NoError(t, err)
	assert.Equal(t, "# Proposal\nBudget and timeline.\n", ex.Text)
	assert.Equal(t, 1, ex.PageCount)
}

func TestLocal_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  pipeline.Document
	}{
		{"binary", pipeline.Document{Filename: "a.txt", Data: []byte{0x25, 0x50, 0x00, 0x01}}},
		{"empty", pipeline.Document{Filename: "a.txt", Data: []byte(" \n\t")}},
		{"unsupported", pipeline.Document{Filename: "a.pdf", Data: []byte("text")}},
		{"missing file", pipeline.Document{Reference: filepath.Join(t.TempDir(), "nope.txt")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Local{}.Extract(context.Background(), tt.doc)
			assert.Error(t, err)
		})
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("x.TXT"))
	assert.True(t, IsSupported("dir/x.md"))
	assert.False(t, IsSupported("x.docx"))
}
