package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/jurisdoc/internal/model"
)

// MemoryStore keeps records and documents in process memory. Values are cloned on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[model.JurisdictionKey]*model.KnowledgeRecord
	documents map[model.JurisdictionKey]*model.GeneratedDocument
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[model.JurisdictionKey]*model.KnowledgeRecord),
		documents: make(map[model.JurisdictionKey]*model.GeneratedDocument),
	}
}

// GetRecord implements RecordStore
func (s *MemoryStore) GetRecord(ctx context.Context, key model.JurisdictionKey) (*model.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// UpsertRecord implements RecordStore
func (s *MemoryStore) UpsertRecord(ctx context.Context, r *model.KnowledgeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := r.Clone()
	if existing, ok := s.records[r.Jurisdiction]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		stored.HitCount = existing.HitCount
		stored.LastAccessedAt = existing.LastAccessedAt
	} else {
		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now().UTC()
		}
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	s.records[r.Jurisdiction] = stored
	r.ID = stored.ID
	r.CreatedAt = stored.CreatedAt
	return nil
}

// TouchRecord implements RecordStore
func (s *MemoryStore) TouchRecord(ctx context.Context, key model.JurisdictionKey, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[key]
	if !ok {
		return ErrNotFound
	}
	r.HitCount++
	t := at
	r.LastAccessedAt = &t
	return nil
}

// ListCandidates implements RecordStore
func (s *MemoryStore) ListCandidates(ctx context.Context, q CandidateQuery) ([]*model.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.KnowledgeRecord{}
	for key, r := range s.records {
		if r.ConfidenceScore == nil || *r.ConfidenceScore < q.MinConfidence {
			continue
		}
		if !q.Scope.Contains(key) {
			continue
		}
		out = append(out, r.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Confidence() != b.Confidence() {
			return a.Confidence() > b.Confidence()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

// MarkExpired implements RecordStore
func (s *MemoryStore) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.records {
		if r.NeedsRefresh {
			continue
		}
		if r.CacheExpiresAt == nil || !now.Before(*r.CacheExpiresAt) {
			r.NeedsRefresh = true
			r.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// ListStale implements RecordStore
func (s *MemoryStore) ListStale(ctx context.Context, now time.Time, limit int) ([]*model.KnowledgeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*model.KnowledgeRecord{}
	for _, r := range s.records {
		if r.IsStale(now) {
			out = append(out, r.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].HitCount != out[j].HitCount {
			return out[i].HitCount > out[j].HitCount
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetDocument implements DocumentStore
func (s *MemoryStore) GetDocument(ctx context.Context, key model.JurisdictionKey) (*model.GeneratedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.documents[key]
	if !ok {
		return nil, ErrNotFound
	}
	c := *d
	c.Sections = append([]model.SectionHeader(nil), d.Sections...)
	return &c, nil
}

// InsertDocument implements DocumentStore
func (s *MemoryStore) InsertDocument(ctx context.Context, d *model.GeneratedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[d.Jurisdiction]; ok {
		return duplicateError(d.Jurisdiction)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	c := *d
	c.Sections = append([]model.SectionHeader(nil), d.Sections...)
	s.documents[d.Jurisdiction] = &c
	return nil
}

// ExistingKeys implements DocumentStore
func (s *MemoryStore) ExistingKeys(ctx context.Context) (map[model.JurisdictionKey]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(map[model.JurisdictionKey]bool, len(s.documents))
	for k := range s.documents {
		keys[k] = true
	}
	return keys, nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
