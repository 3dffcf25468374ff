package kb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"google.golang.org/genai"
)

// Embedder turns texts into vectors. query marks the first text as a
// search query rather than a document.
type Embedder interface {
	Embed(ctx context.Context, texts []string, query bool) ([][]float32, error)
}

// DefaultEmbeddingModel is used when no model is configured.
const DefaultEmbeddingModel = "gemini-embedding-001"

type embedFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)

// GenAIEmbedder embeds with the Gemini embedding API.
type GenAIEmbedder struct {
	embed embedFunc
	model string
}

// NewGenAIEmbedder creates an embedder backed by the Gemini API.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("genai embedder: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &GenAIEmbedder{embed: client.Models.EmbedContent, model: model}, nil
}

// Embed implements Embedder.
func (e *GenAIEmbedder) Embed(ctx context.Context, texts []string, query bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	task := "RETRIEVAL_DOCUMENT"
	if query {
		task = "RETRIEVAL_QUERY"
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	res, err := e.embed(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: task})
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai embed: got %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}
	out := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// rerank orders candidates by cosine similarity to the query.
func rerank(ctx context.Context, emb Embedder, query string, candidates []scoredChunk) ([]scoredChunk, error) {
	qv, err := emb.Embed(ctx, []string{query}, true)
	if err != nil {
		return nil, err
	}
	if len(qv) != 1 {
		return nil, fmt.Errorf("query embedding: got %d vectors", len(qv))
	}
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	dv, err := emb.Embed(ctx, texts, false)
	if err != nil {
		return nil, err
	}
	if len(dv) != len(candidates) {
		return nil, fmt.Errorf("document embeddings: got %d vectors for %d passages", len(dv), len(candidates))
	}

	out := make([]scoredChunk, len(candidates))
	for i, c := range candidates {
		c.score = cosine(qv[0], dv[i])
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out, nil
}

func cosine(a, b []float32) float64 {
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
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
