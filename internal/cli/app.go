package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/jurisdoc/internal/acquire"
	"github.com/ppiankov/jurisdoc/internal/cache"
	"github.com/ppiankov/jurisdoc/internal/extract"
	"github.com/ppiankov/jurisdoc/internal/llm"
	"github.com/ppiankov/jurisdoc/internal/lookup"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/source"
	"github.com/ppiankov/jurisdoc/internal/store"
)

// app holds the collaborators shared by commands
type app struct {
	cfg    *model.Config
	logger *slog.Logger
	store  store.Store
}

// newApp loads configuration and opens the store. Callers must Close it.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug("store opened", "driver", cfg.Store.Driver)

	return &app{cfg: cfg, logger: logger, store: st}, nil
}

// Close releases the store
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

// provider builds the generative provider for mc; nil when mc names none
func (a *app) provider(mc model.LLMConfig) (llm.Provider, error) {
	p, err := llm.NewProvider(llm.ConfigFromModel(mc, a.cfg.Source))
	if err != nil {
		return nil, fmt.Errorf("llm provider %q: %w", mc.Provider, err)
	}
	return p, nil
}

// lookupService wires source, extractor, acquisition pipeline and hot cache
func (a *app) lookupService() (*lookup.Service, error) {
	src, err := source.New(a.cfg.Source, a.logger)
	if err != nil {
		return nil, fmt.Errorf("content source: %w", err)
	}

	provider, err := a.provider(a.cfg.Extraction)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		a.logger.Warn("no extraction provider configured, acquisition will fail")
	}
	extractor := extract.NewLLMExtractor(provider, 0, a.logger)

	c, err := cache.New(a.cfg.Cache)
	if err != nil {
		return nil, err
	}

	pipeline := acquire.NewPipeline(src, extractor, a.cfg.Cache.RecordTTL, a.logger)
	return lookup.NewService(a.store, cache.NewRecordCache(c, a.cfg.Cache.HotTTL), pipeline, a.cfg.Refresh.Topic, a.logger), nil
}
