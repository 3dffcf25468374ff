package kb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"grantreview/internal/pipeline"
)

const climateOrder = `Executive Order 14008
Tackling the Climate Crisis at Home and Abroad
Signed: January 27, 2021

Agencies shall prioritize clean energy deployment in disadvantaged communities.
Grant recipients must report greenhouse gas emissions annually.`

const cyberOrder = `Executive Order 14028
Improving the Nation's Cybersecurity

Contractors must disclose cybersecurity incidents to the awarding agency.`

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"14008_Tackling_the_Climate_Crisis.txt": climateOrder,
		"EO-14028_Improving_Cybersecurity.md":   cyberOrder,
		"README.txt":                            "no order number here",
		"14173_scan.pdf":                        "binary",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	orders, chunks, err := LoadDir(writeCorpus(t))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	o := orders[0]
	assert.Equal(t, "14008", o.EONumber)
	assert.Equal(t, "Tackling the Climate Crisis", o.Title)
	assert.Equal(t, "January 27, 2021", o.EffectiveDate)
	assert.Contains(t, o.Keywords, "climate")
	assert.Contains(t, o.Areas, "climate")
	assert.Equal(t, 1, o.Pages)

	assert.Equal(t, "14028", orders[1].EONumber)
	assert.Contains(t, orders[1].Areas, "cybersecurity")
	assert.Len(t, chunks, 2)
}

func TestLoadDir_Missing(t *testing.T) {
	_, _, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSplitPages_KeepsPageNumbers(t *testing.T) {
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, "requirement text")
	}
	for i := 0; i < 50; i++ {
		lines = append(lines, "")
	}
	lines = append(lines, "closing section")

	o, chunks, ok := ParseOrder("14151_Ending_Programs.txt", strings.Join(lines, "\n"))
	require.True(t, ok)
	assert.Equal(t, 3, o.Pages)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 3, chunks[1].Page)
	assert.Equal(t, "closing section", chunks[1].Text)
}

func TestTopics(t *testing.T) {
	got := Topics("Clean energy for the community: energy storage with 2024 funding, and grant proposal")
	assert.Equal(t, []string{"clean", "energy", "community", "storage", "funding"}, got)
}

func TestRank_OrdersByScoreThenNumberThenPage(t *testing.T) {
	chunks := []Chunk{
		{EONumber: "14028", Page: 1, Text: "cybersecurity incidents"},
		{EONumber: "14008", Page: 2, Text: "clean energy"},
		{EONumber: "14008", Page: 1, Text: "clean energy"},
		{EONumber: "14057", Page: 1, Text: "clean energy projects shall comply"},
		{EONumber: "14999", Page: 1, Text: "unrelated"},
	}
	ranked := rank(chunks, []string{"clean", "energy"})
	require.Len(t, ranked, 3)
	assert.Equal(t, "14057", ranked[0].EONumber)
	assert.InDelta(t, 22, ranked[0].score, 1e-9)
	assert.Equal(t, Chunk{EONumber: "14008", Page: 1, Text: "clean energy"}, ranked[1].Chunk)
	assert.Equal(t, 2, ranked[2].Page)
}

func TestMemIndex_Search(t *testing.T) {
	idx, err := LoadMemIndex(writeCorpus(t), nil)
	require.NoError(t, err)

	got, err := idx.Search(context.Background(), "clean energy for disadvantaged communities", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	p := got[0]
	assert.Equal(t, "eo-14008-p1", p.SourceID)
	assert.Equal(t, "14008", p.Metadata[pipeline.MetaEONumber])
	assert.Equal(t, "Tackling the Climate Crisis", p.Metadata[pipeline.MetaTitle])
	assert.Equal(t, "1", p.Metadata[pipeline.MetaPageNumber])
	assert.Equal(t, DocumentType, p.Metadata[pipeline.MetaDocumentType])
	assert.Equal(t, "January 27, 2021", p.Metadata[pipeline.MetaEffectiveDate])

	got, err = idx.Search(context.Background(), "clean energy", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemIndex_ListAndGet(t *testing.T) {
	idx, err := LoadMemIndex(writeCorpus(t), nil)
	require.NoError(t, err)
	orders, err := idx.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	o, chunks, err := idx.Get(context.Background(), "14028")
	require.NoError(t, err)
	assert.Equal(t, "14028", o.EONumber)
	assert.Len(t, chunks, 1)

	_, _, err = idx.Get(context.Background(), "99999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSqlIndex_RoundTripAndSearch(t *testing.T) {
	ctx := context.Background()
	orders, chunks, err := LoadDir(writeCorpus(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sub", "kb.db")
	idx, err := OpenIndex(path, nil)
	require.NoError(t, err)
	require.NoError(t, idx.Replace(ctx, orders, chunks))
	require.NoError(t, idx.Close())

	idx, err = OpenIndex(path, nil)
	require.NoError(t, err)
	defer idx.Close()

	listed, err := idx.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, orders, listed)

	o, got, err := idx.Get(ctx, "14008")
	require.NoError(t, err)
	assert.Equal(t, orders[0], o)
	assert.Equal(t, chunks[:1], got)

	_, _, err = idx.Get(ctx, "00000")
	assert.ErrorIs(t, err, ErrNotFound)

	mem := NewMemIndex(nil)
	mem.Replace(orders, chunks)
	want, err := mem.Search(ctx, "cybersecurity incidents", 5)
	require.NoError(t, err)
	have, err := idx.Search(ctx, "cybersecurity incidents", 5)
	require.NoError(t, err)
	assert.Equal(t, want, have)
	assert.Equal(t, "14028", have[0].Metadata[pipeline.MetaEONumber])

	// Replace drops the previous corpus.
	require.NoError(t, idx.Replace(ctx, orders[:1], chunks[:1]))
	listed, err = idx.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

// keywordEmbedder embeds a text as counts of a fixed vocabulary.
type keywordEmbedder struct {
	vocab []string
	err   error
}

func (k keywordEmbedder) Embed(_ context.Context, texts []string, _ bool) ([][]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(k.vocab))
		for j, w := range k.vocab {
			v[j] = float32(strings.Count(strings.ToLower(t), w))
		}
		out[i] = v
	}
	return out, nil
}

func TestSearch_RerankByEmbedding(t *testing.T) {
	chunks := []Chunk{
		{EONumber: "14001", Page: 1, Text: "energy energy energy shall must required"},
		{EONumber: "14002", Page: 1, Text: "energy storage batteries"},
	}
	emb := keywordEmbedder{vocab: []string{"storage", "batteries", "energy"}}

	plain, err := search(context.Background(), chunks, nil, "energy storage batteries", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, "14002", plain[0].Metadata[pipeline.MetaEONumber])

	reranked, err := search(context.Background(), chunks, nil, "storage batteries", 1, emb)
	require.NoError(t, err)
	require.Len(t, reranked, 1)
	assert.Equal(t, "14002", reranked[0].Metadata[pipeline.MetaEONumber])
	assert.Equal(t, "Executive Order 14002", reranked[0].Metadata[pipeline.MetaTitle])

	_, err = search(context.Background(), chunks, nil, "energy storage", 1, keywordEmbedder{err: errors.New("quota")})
	assert.ErrorContains(t, err, "quota")
}

func TestGenAIEmbedder(t *testing.T) {
	var gotTask string
	e := &GenAIEmbedder{model: "m", embed: func(_ context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
		gotTask = cfg.TaskType
		res := &genai.EmbedContentResponse{}
		for range contents {
			res.Embeddings = append(res.Embeddings, &genai.ContentEmbedding{Values: []float32{1, 0}})
		}
		return res, nil
	}}
	vecs, err := e.Embed(context.Background(), []string{"a", "b"}, false)
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, "RETRIEVAL_DOCUMENT", gotTask)

	_, err = e.Embed(context.Background(), []string{"q"}, true)
	require.NoError(t, err)
	assert.Equal(t, "RETRIEVAL_QUERY", gotTask)

	_, err = NewGenAIEmbedder(context.Background(), "", "")
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosine([]float32{1}, []float32{1, 2}))
}
