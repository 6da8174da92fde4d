// Package lookup serves knowledge records through the MISS / STALE / FRESH cache state machine.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/jurisdoc/internal/cache"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/store"
	"github.com/ppiankov/jurisdoc/internal/util"
)

// ErrAcquisition wraps every failure of the acquisition path
var ErrAcquisition = errors.New("acquisition failed")

// State is the cache state a lookup found the jurisdiction in
type State string

const (
	StateMiss  State = "MISS"
	StateStale State = "STALE"
	StateFresh State = "FRESH"
)

// Acquirer produces a record for key, updating existing when it is non-nil
type Acquirer interface {
	Acquire(ctx context.Context, key model.JurisdictionKey, topic string, existing *model.KnowledgeRecord) (*model.KnowledgeRecord, error)
}

// Result is the outcome of one lookup
type Result struct {
	Record *model.KnowledgeRecord
	State  State

	// Refreshed is true when the acquisition path ran and its record was stored
	Refreshed bool

	// ServedStale is true when refresh failed and the stale record was returned
	ServedStale bool

	// Err is the acquisition failure behind a stale serve
	Err error
}

// Service runs lookups against the record store with a hot cache in front
type Service struct {
	store    store.RecordStore
	cache    *cache.RecordCache
	acquirer Acquirer
	topic    string
	now      func() time.Time
	group    singleflight.Group
	logger   *slog.Logger
}

// NewService creates a lookup service. topic is used when a call names none.
func NewService(records store.RecordStore, rc *cache.RecordCache, acquirer Acquirer, topic string, logger *slog.Logger) *Service {
	if rc == nil {
		rc = cache.NewRecordCache(nil, 0)
	}
	return &Service{
		store:    records,
		cache:    rc,
		acquirer: acquirer,
		topic:    topic,
		now:      time.Now,
		logger:   util.OrDiscard(logger),
	}
}

// WithClock replaces the time source
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Lookup returns the record for key.
//
// FRESH records are served directly and their hit counter is incremented. MISS and
// STALE records go through acquisition. A failed acquisition on MISS returns an error
// wrapping ErrAcquisition and writes nothing; on STALE the stale record is served with
// Result.ServedStale set and the failure in Result.Err.
func (s *Service) Lookup(ctx context.Context, key model.JurisdictionKey, topic string) (*Result, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	topic = s.topicOrDefault(topic)
	now := s.now()

	existing, err := s.current(ctx, key, topic)
	if err != nil {
		return nil, err
	}

	if existing != nil && !existing.IsStale(now) {
		s.touch(ctx, topic, existing, now)
		s.logger.Debug("lookup", "jurisdiction", key.String(), "state", StateFresh)
		return &Result{Record: existing, State: StateFresh}, nil
	}

	state := StateMiss
	if existing != nil {
		state = StateStale
	}
	s.logger.Debug("lookup", "jurisdiction", key.String(), "state", state)

	record, err := s.refresh(ctx, key, topic, existing)
	if err != nil {
		if existing == nil {
			return nil, err
		}
		s.logger.Warn("refresh failed, serving stale record", "jurisdiction", key.String(), "error", err)
		s.touch(ctx, topic, existing, now)
		return &Result{Record: existing, State: StateStale, ServedStale: true, Err: err}, nil
	}

	return &Result{Record: record, State: state, Refreshed: true}, nil
}

// Refresh re-acquires key regardless of its state and stores the result.
// It does not count as a hit.
func (s *Service) Refresh(ctx context.Context, key model.JurisdictionKey) (*model.KnowledgeRecord, error) {
	existing, err := s.store.GetRecord(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load record: %w", err)
	}
	return s.refresh(ctx, key, s.topic, existing)
}

// current returns the stored record; nil when none exists. The store decides freshness,
// so a needs_refresh flag or expiry set outside this service is always seen. The hot
// cache only answers when the store read fails, and only with a copy that is still fresh.
func (s *Service) current(ctx context.Context, key model.JurisdictionKey, topic string) (*model.KnowledgeRecord, error) {
	r, err := s.store.GetRecord(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = s.cache.Invalidate(ctx, key, topic)
		return nil, nil
	case err != nil:
		if cached, ok := s.cache.Get(ctx, key, topic); ok && !cached.IsStale(s.now()) {
			s.logger.Warn("record store unavailable, serving cached copy", "jurisdiction", key.String(), "error", err)
			return cached, nil
		}
		return nil, fmt.Errorf("load record: %w", err)
	}

	if r.IsStale(s.now()) {
		if err := s.cache.Invalidate(ctx, key, topic); err != nil {
			s.logger.Debug("cache invalidate failed", "jurisdiction", key.String(), "error", err)
		}
	}
	return r, nil
}

// refresh runs one acquisition per key at a time; concurrent callers share its result
func (s *Service) refresh(ctx context.Context, key model.JurisdictionKey, topic string, existing *model.KnowledgeRecord) (*model.KnowledgeRecord, error) {
	v, err, shared := s.group.Do(key.String()+"|"+topic, func() (interface{}, error) {
		record, err := s.acquirer.Acquire(ctx, key, topic, existing)
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %w", ErrAcquisition, key, err)
		}

		if err := s.store.UpsertRecord(ctx, record); err != nil {
			return nil, fmt.Errorf("store record: %w", err)
		}
		if err := s.cache.Put(ctx, topic, record); err != nil {
			s.logger.Debug("cache put failed", "jurisdiction", key.String(), "error", err)
		}
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("acquisition shared with concurrent lookup", "jurisdiction", key.String())
	}
	return v.(*model.KnowledgeRecord).Clone(), nil
}

// touch records a hit in the store and mirrors it on r
func (s *Service) touch(ctx context.Context, topic string, r *model.KnowledgeRecord, at time.Time) {
	if err := s.store.TouchRecord(ctx, r.Jurisdiction, at); err != nil {
		s.logger.Warn("failed to record hit", "jurisdiction", r.Jurisdiction.String(), "error", err)
		return
	}
	r.HitCount++
	t := at
	r.LastAccessedAt = &t

	if !r.IsStale(at) {
		_ = s.cache.Put(ctx, topic, r)
	}
}

func (s *Service) topicOrDefault(topic string) string {
	if t := strings.TrimSpace(topic); t != "" {
		return t
	}
	return s.topic
}
