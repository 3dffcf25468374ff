// Package llm holds the completion-service collaborators: a Gemini client
// and a deterministic basic completer for offline runs.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"grantreview/internal/logging"
	"grantreview/internal/pipeline"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures the Gemini completer.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Gemini calls the Gemini API and requests JSON output.
type Gemini struct {
	generate    generateFunc
	model       string
	temperature float32
	maxTokens   int32
	log         *zap.SugaredLogger
}

var systemInstructions = map[pipeline.CompletionKind]string{
	pipeline.KindSummarize:  "You summarize grant proposals for legal reviewers. Answer with JSON only.",
	pipeline.KindCompliance: "You assess grant proposals against executive orders for legal reviewers. Cite executive orders by number. Answer with JSON only.",
}

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(client.Models.GenerateContent, cfg), nil
}

func newGemini(gen generateFunc, cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 4096
	}
	return &Gemini{
		generate:    gen,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		log:         logging.New("gemini"),
	}
}

// Complete implements pipeline.Completer.
func (g *Gemini) Complete(ctx context.Context, req pipeline.CompletionRequest) (*pipeline.Completion, error) {
	prompt := req.Prompt
	if req.Context != "" {
		prompt += "\n\n--- EXECUTIVE ORDER CONTEXT ---\n" + req.Context
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		MaxOutputTokens:  g.maxTokens,
		ResponseMIMEType: "application/json",
	}
	if sys, ok := systemInstructions[req.Kind]; ok {
		cfg.SystemInstruction = genai.NewContentFromText(sys, genai.RoleUser)
	}

	resp, err := g.generate(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, errors.New("gemini generate: empty response")
	}
	g.log.Debugw("completion received", "kind", req.Kind, "model", g.model, "chars", len(text))

	out := &pipeline.Completion{Text: text}
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err == nil {
		out.Fields = fields
	}
	return out, nil
}
