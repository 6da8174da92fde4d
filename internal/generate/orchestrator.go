// Package generate drives batch document generation: candidate selection, dedup,
// rate-limited generation calls, validation and per-item outcome accounting.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/jurisdoc/internal/artifact"
	"github.com/ppiankov/jurisdoc/internal/assess"
	"github.com/ppiankov/jurisdoc/internal/llm"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/store"
	"github.com/ppiankov/jurisdoc/internal/util"
	"github.com/ppiankov/jurisdoc/internal/validate"
)

// ErrEmptyResponse is recorded when the generation service returns no text
var ErrEmptyResponse = errors.New("empty response from generation service")

// DefaultRateLimitDelay is the pause between generation calls
const DefaultRateLimitDelay = 2 * time.Second

// Config holds the orchestrator options
type Config struct {
	MinConfidence  float64       // Candidate floor; <= 0 uses assess.DefaultMinConfidence
	RateLimitDelay time.Duration // Pause after every item except the last
	BatchSizeLimit int           // Applied after dedup; 0 means no limit
	DryRun         bool          // Generate and validate but persist nothing
	BlockOnInvalid bool          // Record invalid documents as failed instead of saving them
	MaxLength      int           // Max tokens per generation call; 0 uses the provider default
}

// ConfigFromModel maps the file/env configuration onto orchestrator options
func ConfigFromModel(cfg model.GenerationConfig, maxTokens int) Config {
	return Config{
		MinConfidence:  cfg.MinConfidence,
		RateLimitDelay: cfg.RateLimitDelay,
		BatchSizeLimit: cfg.BatchSizeLimit,
		DryRun:         cfg.DryRun,
		BlockOnInvalid: cfg.BlockOnInvalid,
		MaxLength:      maxTokens,
	}
}

// Params is the filter of one run. Zero values fall back to Config.
type Params struct {
	Scope         model.JurisdictionKey // Empty State means every jurisdiction
	MinConfidence *float64              // nil uses Config; an explicit 0 admits every scored record
	Limit         int
	DryRun        bool
	Verbose       bool
}

// sleepFunc pauses between items (injectable for tests)
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Orchestrator runs batches sequentially against one generation provider
type Orchestrator struct {
	records   store.RecordStore
	documents store.DocumentStore
	provider  llm.Provider
	validator *validate.Validator
	sink      artifact.Sink
	cfg       Config
	sleep     sleepFunc
	now       func() time.Time
	logger    *slog.Logger
}

// New creates an orchestrator. sink may be nil to skip report artifacts.
func New(records store.RecordStore, documents store.DocumentStore, provider llm.Provider,
	validator *validate.Validator, sink artifact.Sink, cfg Config, logger *slog.Logger) *Orchestrator {
	if validator == nil {
		validator = validate.NewValidator(0, nil)
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = assess.DefaultMinConfidence
	}
	if cfg.RateLimitDelay < 0 {
		cfg.RateLimitDelay = 0
	}
	return &Orchestrator{
		records:   records,
		documents: documents,
		provider:  provider,
		validator: validator,
		sink:      sink,
		cfg:       cfg,
		sleep:     sleepContext,
		now:       time.Now,
		logger:    util.OrDiscard(logger),
	}
}

// resolve merges run params over the configured defaults
func (o *Orchestrator) resolve(p Params) (model.BatchParams, error) {
	minConfidence := o.cfg.MinConfidence
	if p.MinConfidence != nil {
		minConfidence = *p.MinConfidence
	}
	if minConfidence < 0 || minConfidence > 100 {
		return model.BatchParams{}, fmt.Errorf("min confidence must be between 0 and 100, got %v", minConfidence)
	}

	limit := p.Limit
	if limit == 0 {
		limit = o.cfg.BatchSizeLimit
	}
	if limit < 0 {
		return model.BatchParams{}, fmt.Errorf("limit must not be negative, got %d", limit)
	}

	if p.Scope.State != "" {
		if err := p.Scope.Validate(); err != nil {
			return model.BatchParams{}, fmt.Errorf("jurisdiction filter: %w", err)
		}
	}

	bp := model.BatchParams{
		MinConfidence: minConfidence,
		Limit:         limit,
		DryRun:        p.DryRun || o.cfg.DryRun,
		Verbose:       p.Verbose,
	}
	if p.Scope.State != "" {
		bp.JurisdictionFilter = p.Scope.String()
	}
	return bp, nil
}

// Run executes one batch and returns its report. Only setup failures (invalid
// params, unreachable stores) return an error; per-item failures land in the report.
func (o *Orchestrator) Run(ctx context.Context, p Params) (*model.BatchReport, error) {
	if o.provider == nil {
		return nil, fmt.Errorf("no generation provider configured")
	}

	params, err := o.resolve(p)
	if err != nil {
		return nil, err
	}

	candidates, err := o.selectCandidates(ctx, p.Scope, params)
	if err != nil {
		return nil, err
	}

	started := o.now()
	report := model.NewBatchReport(params)
	report.GeneratedAt = started.UTC()
	writer := NewReportWriter(o.sink, RunName(started), o.logger)
	assessor := assess.NewExactAssessor(params.MinConfidence)

	o.logger.Info("batch started",
		"candidates", len(candidates),
		"min_confidence", params.MinConfidence,
		"limit", params.Limit,
		"dry_run", params.DryRun)

	var runErr error
	for i, record := range candidates {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		detail := o.processOne(ctx, record, assessor, params.DryRun)
		report.Add(detail)

		o.logger.Info("item processed",
			"n", i+1,
			"of", len(candidates),
			"jurisdiction", detail.JurisdictionKey,
			"status", detail.Status,
			"reason", detail.Reason)

		if err := writer.Flush(ctx, report); err != nil {
			o.logger.Warn("report flush failed", "error", err)
		}

		if i < len(candidates)-1 {
			if err := o.sleep(ctx, o.cfg.RateLimitDelay); err != nil {
				runErr = err
				break
			}
		}
	}

	// The final report is written even when the run was interrupted
	if err := writer.Finish(context.WithoutCancel(ctx), report); err != nil {
		o.logger.Warn("report write failed", "error", err)
	} else if loc := writer.Location(); loc != "" {
		o.logger.Info("report written", "location", loc)
	}

	o.logger.Info("batch finished",
		"total", report.Total,
		"success", report.Success,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", o.now().Sub(started))

	return report, runErr
}

// selectCandidates queries, orders, dedups and limits the run's candidates
func (o *Orchestrator) selectCandidates(ctx context.Context, scope model.JurisdictionKey, params model.BatchParams) ([]*model.KnowledgeRecord, error) {
	records, err := o.records.ListCandidates(ctx, store.CandidateQuery{
		Scope:         scope,
		MinConfidence: params.MinConfidence,
	})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	// Highest confidence first; ties keep the store's order
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Confidence() > records[j].Confidence()
	})

	existing, err := o.documents.ExistingKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list existing documents: %w", err)
	}

	out := make([]*model.KnowledgeRecord, 0, len(records))
	for _, r := range records {
		if existing[r.Jurisdiction] {
			o.logger.Debug("document exists, dropping candidate", "jurisdiction", r.Jurisdiction.String())
			continue
		}
		out = append(out, r)
	}

	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

// processOne runs assess, render, generate, validate and persist for one record.
// It never returns an error; every outcome becomes a detail.
func (o *Orchestrator) processOne(ctx context.Context, r *model.KnowledgeRecord, assessor *assess.Assessor, dryRun bool) (detail model.BatchDetail) {
	start := o.now()
	detail = model.BatchDetail{JurisdictionKey: r.Jurisdiction.String()}
	if r.ConfidenceScore != nil {
		c := *r.ConfidenceScore
		detail.ConfidenceScore = &c
	}

	fail := func(reason string) model.BatchDetail {
		detail.Status = model.BatchFailed
		detail.Reason = reason
		ms := o.now().Sub(start).Milliseconds()
		detail.ProcessingTimeMs = &ms
		return detail
	}

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("panic while processing item", "jurisdiction", detail.JurisdictionKey, "panic", rec)
			detail = fail(fmt.Sprintf("panic: %v", rec))
		}
	}()

	verdict := assessor.Assess(r)
	if !verdict.IsSuitable {
		detail.Status = model.BatchSkipped
		detail.Reason = verdict.Reason()
		return detail
	}

	resp, err := o.provider.Generate(ctx, llm.GenerateRequest{
		System:    SystemPrompt,
		Prompt:    RenderPrompt(r, o.validator.Outline(), o.validator.MinWords()),
		MaxTokens: o.cfg.MaxLength,
	})
	if err != nil {
		return fail(err.Error())
	}
	content := strings.TrimSpace(resp.Text)
	if content == "" {
		return fail(ErrEmptyResponse.Error())
	}

	validation := o.validator.Validate(content, r.Provenance.SourceURLs)
	if !validation.IsValid {
		if o.cfg.BlockOnInvalid {
			return fail("validation failed: " + strings.Join(validation.Errors, "; "))
		}
		o.logger.Warn("document failed validation, saving for review",
			"jurisdiction", detail.JurisdictionKey, "errors", validation.Errors)
	}

	elapsed := o.now().Sub(start)
	doc := o.buildDocument(r, content, validation, resp, elapsed)

	if !dryRun {
		if err := o.documents.InsertDocument(ctx, doc); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fail("already exists: " + err.Error())
			}
			return fail(fmt.Sprintf("persist document: %v", err))
		}
		detail.OutputID = doc.ID
	}

	words := doc.WordCount
	ms := o.now().Sub(start).Milliseconds()
	detail.Status = model.BatchSuccess
	detail.WordCount = &words
	detail.ProcessingTimeMs = &ms
	return detail
}

func (o *Orchestrator) buildDocument(r *model.KnowledgeRecord, content string, validation model.ValidationResult,
	resp *llm.GenerateResponse, elapsed time.Duration) *model.GeneratedDocument {
	sections := validate.ExtractSections(content)

	title := "Short-Term Rental Compliance Guide: " + r.Jurisdiction.Display()
	for _, s := range sections {
		if s.Level == 1 {
			title = s.Title
			break
		}
	}

	var confidence *float64
	if r.ConfidenceScore != nil {
		c := *r.ConfidenceScore
		confidence = &c
	}

	now := o.now().UTC()
	return &model.GeneratedDocument{
		ID:           uuid.NewString(),
		Jurisdiction: r.Jurisdiction,
		Title:        title,
		Content:      content,
		Sections:     sections,
		WordCount:    validation.WordCount,
		Metadata: model.DocumentMetadata{
			SourceRecordID:         r.ID,
			ConfidenceAtGeneration: confidence,
			GeneratedAt:            now,
			Validation:             validation,
			ProcessingTimeMs:       elapsed.Milliseconds(),
			Provider:               o.provider.Name(),
			Model:                  resp.Model,
		},
		CreatedAt: now,
	}
}
