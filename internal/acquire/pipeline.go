// Package acquire turns raw regulatory text into scored knowledge records.
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/jurisdoc/internal/extract"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/score"
	"github.com/ppiankov/jurisdoc/internal/source"
	"github.com/ppiankov/jurisdoc/internal/util"
)

// Pipeline fetches raw content, extracts fields and merges them into a record
type Pipeline struct {
	source    source.ContentSource
	extractor extract.Extractor
	scorer    *score.Scorer
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewPipeline creates an acquisition pipeline. ttl sets how long an acquired record stays fresh.
func NewPipeline(src source.ContentSource, extractor extract.Extractor, ttl time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source:    src,
		extractor: extractor,
		scorer:    score.NewScorer(),
		ttl:       ttl,
		now:       time.Now,
		logger:    util.OrDiscard(logger),
	}
}

// WithClock replaces the time source
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Acquire produces the record for key. When existing is non-nil the result is existing
// updated in place (id, creation time, hit counters and data source kept); existing
// itself is not modified. Nothing is persisted here.
func (p *Pipeline) Acquire(ctx context.Context, key model.JurisdictionKey, topic string, existing *model.KnowledgeRecord) (*model.KnowledgeRecord, error) {
	start := p.now()

	raw, err := p.source.Fetch(ctx, key, topic)
	if err != nil {
		return nil, fmt.Errorf("fetch raw content: %w", err)
	}

	ext, err := p.extractor.Extract(ctx, raw.Text, topic)
	if err != nil {
		return nil, fmt.Errorf("extract fields: %w", err)
	}

	fresh := &model.KnowledgeRecord{
		Jurisdiction:        key,
		Occupancy:           ext.Occupancy,
		Definitions:         ext.Definitions,
		Zoning:              ext.Zoning,
		LocalRequirements:   ext.LocalRequirements,
		InterpretiveSummary: ext.Summary,
		Status:              ext.Status,
		ConfidenceScore:     ext.Confidence,
		Provenance: model.Provenance{
			DataSource:  model.DataSourceAutomated,
			SourceURLs:  raw.URLs,
			SearchTerms: raw.SearchTerms,
			RawText:     raw.Text,
		},
	}

	now := p.now()
	var record *model.KnowledgeRecord
	if existing != nil {
		record = existing.Clone()
		Merge(record, fresh)
		if record.Provenance.DataSource == "" {
			record.Provenance.DataSource = model.DataSourceAutomated
		}
	} else {
		record = fresh
		record.ID = uuid.NewString()
		record.CreatedAt = now
		record.Provenance.SourceURLs = appendUnique(nil, raw.URLs...)
		record.Provenance.SearchTerms = appendUnique(nil, raw.SearchTerms...)
	}

	expires := now.Add(p.ttl)
	record.Jurisdiction = key
	record.CacheExpiresAt = &expires
	record.NeedsRefresh = false
	record.UpdatedAt = now

	quality := p.scorer.Apply(record)

	p.logger.Info("record acquired",
		"jurisdiction", key.String(),
		"refresh", existing != nil,
		"confidence", record.Confidence(),
		"quality", quality.Score,
		"groups", quality.PopulatedGroups(),
		"duration", now.Sub(start))

	return record, nil
}
