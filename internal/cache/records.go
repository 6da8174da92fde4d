package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// RecordCache stores knowledge records as JSON in front of the record store
type RecordCache struct {
	cache Cache
	ttl   time.Duration
}

// NewRecordCache wraps c. ttl bounds how long a copy may be served without a store read.
func NewRecordCache(c Cache, ttl time.Duration) *RecordCache {
	if c == nil {
		c = Noop{}
	}
	return &RecordCache{cache: c, ttl: ttl}
}

// Get returns the cached record, or false on a miss or an undecodable entry
func (rc *RecordCache) Get(ctx context.Context, key model.JurisdictionKey, topic string) (*model.KnowledgeRecord, bool) {
	data, ok := rc.cache.Get(ctx, RecordKey(key, topic))
	if !ok {
		return nil, false
	}
	var r model.KnowledgeRecord
	if err := json.Unmarshal(data, &r); err != nil {
		_ = rc.cache.Delete(ctx, RecordKey(key, topic))
		return nil, false
	}
	return &r, true
}

// Put caches r under its jurisdiction
func (rc *RecordCache) Put(ctx context.Context, topic string, r *model.KnowledgeRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return rc.cache.Set(ctx, RecordKey(r.Jurisdiction, topic), data, rc.ttl)
}

// Invalidate drops the cached copy
func (rc *RecordCache) Invalidate(ctx context.Context, key model.JurisdictionKey, topic string) error {
	return rc.cache.Delete(ctx, RecordKey(key, topic))
}
