package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"grantreview/internal/extract"
	"grantreview/internal/kb"
	"grantreview/internal/llm"
	"grantreview/internal/logging"
	"grantreview/internal/metrics"
	"grantreview/internal/notify"
	"grantreview/internal/pipeline"
	"grantreview/internal/searchapi"
	"grantreview/internal/store"
)

// services are the collaborators and stores one command needs.
type services struct {
	ctrl    *pipeline.Controller
	search  pipeline.Searcher
	store   store.Store
	metrics *metrics.Metrics

	closers []func() error
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// openServices builds the controller from configuration. External services
// are used only when use_external_services is on; otherwise the heuristic
// completer and the local knowledge base serve every run.
func (a *app) openServices(ctx context.Context) (*services, error) {
	s := &services{metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	search, err := a.openSearcher(ctx, s)
	if err != nil {
		return nil, err
	}
	s.search = search

	completer, err := a.openCompleter(ctx)
	if err != nil {
		return nil, err
	}
	mailer, err := a.openMailer()
	if err != nil {
		return nil, err
	}
	pcfg, err := a.cfg.PipelineConfig()
	if err != nil {
		return nil, err
	}
	s.ctrl, err = pipeline.NewController(pipeline.Collaborators{
		Extractor: extract.Local{},
		Searcher:  search,
		Completer: completer,
		Mailer:    mailer,
	}, pcfg,
		pipeline.WithObserver(s.metrics),
		pipeline.WithLogger(logging.New("pipeline")),
	)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(a.cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.store = st
	s.closers = append(s.closers, st.Close)

	ok = true
	return s, nil
}

func (a *app) openCompleter(ctx context.Context) (pipeline.Completer, error) {
	c := a.cfg.LLM
	if !a.cfg.Pipeline.UseExternalServices || c.Provider != "gemini" {
		return llm.Basic{}, nil
	}
	return llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:          c.APIKey,
		Model:           c.Model,
		Temperature:     float32(c.Temperature),
		MaxOutputTokens: int32(c.MaxOutputTokens),
	})
}

func (a *app) openSearcher(ctx context.Context, s *services) (pipeline.Searcher, error) {
	sc := a.cfg.SearchService
	if a.cfg.Pipeline.UseExternalServices && sc.Endpoint != "" {
		return searchapi.New(sc.Endpoint, sc.Index, sc.APIKey,
			searchapi.WithAPIVersion(sc.APIVersion),
			searchapi.WithTimeout(a.cfg.StageTimeout()),
			searchapi.WithLogger(logging.New("searchapi")),
		)
	}
	idx, closeFn, err := a.openIndex(ctx)
	if err != nil {
		return nil, err
	}
	if closeFn != nil {
		s.closers = append(s.closers, closeFn)
	}
	return idx, nil
}

// openIndex prefers the persisted index, then the raw documents directory.
// With neither, searches return nothing and compliance falls back to review.
func (a *app) openIndex(ctx context.Context) (kb.Index, func() error, error) {
	kc := a.cfg.KnowledgeBase
	emb, err := a.openEmbedder(ctx)
	if err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(kc.DBPath); err == nil {
		idx, err := kb.OpenIndex(kc.DBPath, emb)
		if err != nil {
			return nil, nil, fmt.Errorf("open knowledge base: %w", err)
		}
		return idx, idx.Close, nil
	}
	if _, err := os.Stat(kc.DocumentsDir); err == nil {
		idx, err := kb.LoadMemIndex(kc.DocumentsDir, emb)
		if err != nil {
			return nil, nil, err
		}
		return idx, nil, nil
	}
	logging.New("kb").Warnw("no knowledge base found; run 'grantreview kb index'",
		"db_path", kc.DBPath, "documents_dir", kc.DocumentsDir)
	return kb.NewMemIndex(emb), nil, nil
}

func (a *app) openEmbedder(ctx context.Context) (kb.Embedder, error) {
	kc := a.cfg.KnowledgeBase
	if !kc.Rerank {
		return nil, nil
	}
	if !a.cfg.Pipeline.UseExternalServices {
		logging.New("kb").Infow("rerank disabled: external services are off")
		return nil, nil
	}
	if a.cfg.LLM.APIKey == "" {
		return nil, errors.New("knowledge_base.rerank requires an API key (set GEMINI_API_KEY)")
	}
	return kb.NewGenAIEmbedder(ctx, a.cfg.LLM.APIKey, kc.EmbeddingModel)
}

func (a *app) openMailer() (pipeline.Mailer, error) {
	n := a.cfg.Notification
	if n.Mode == "smtp" {
		return notify.NewSMTP(notify.SMTPConfig{
			Host:     n.SMTPHost,
			Port:     n.SMTPPort,
			Username: n.SMTPUsername,
			Password: n.SMTPPassword,
			From:     n.Sender,
		})
	}
	return notify.NewOutbox(n.OutboxDir, n.Sender), nil
}

// serveMetrics exposes prometheus metrics in the background when addr is
// set. The server stops with ctx.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) {
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr, m); err != nil {
			logging.New("metrics").Errorw("metrics server stopped", "error", err)
		}
	}()
}
