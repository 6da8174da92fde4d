// Package store persists knowledge records and generated documents.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/jurisdoc/internal/model"
)

var (
	// ErrNotFound is returned by point lookups that match no row
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates the one-per-jurisdiction constraint
	ErrDuplicate = errors.New("already exists")
)

// CandidateQuery filters records eligible for document generation
type CandidateQuery struct {
	Scope         model.JurisdictionKey // Empty State matches every jurisdiction
	MinConfidence float64
}

// RecordStore is the source of truth for knowledge records
type RecordStore interface {
	// GetRecord returns the record for key or ErrNotFound
	GetRecord(ctx context.Context, key model.JurisdictionKey) (*model.KnowledgeRecord, error)

	// UpsertRecord inserts or updates the record for r.Jurisdiction. Hit counters, id and
	// creation time of an existing row are kept; r.ID and r.CreatedAt are set to the stored values.
	UpsertRecord(ctx context.Context, r *model.KnowledgeRecord) error

	// TouchRecord increments the hit counter and sets the last-accessed time
	TouchRecord(ctx context.Context, key model.JurisdictionKey, at time.Time) error

	// ListCandidates returns records with confidence >= MinConfidence inside Scope,
	// ordered by confidence descending, then creation time, then id
	ListCandidates(ctx context.Context, q CandidateQuery) ([]*model.KnowledgeRecord, error)

	// MarkExpired flips needs_refresh on every record whose expiry is at or before now
	MarkExpired(ctx context.Context, now time.Time) (int64, error)

	// ListStale returns records that need the refresh path at now, most-hit first. limit <= 0 means all.
	ListStale(ctx context.Context, now time.Time, limit int) ([]*model.KnowledgeRecord, error)
}

// DocumentStore holds at most one generated document per jurisdiction
type DocumentStore interface {
	// GetDocument returns the document for key or ErrNotFound
	GetDocument(ctx context.Context, key model.JurisdictionKey) (*model.GeneratedDocument, error)

	// InsertDocument stores d. A second document for the same jurisdiction yields ErrDuplicate.
	InsertDocument(ctx context.Context, d *model.GeneratedDocument) error

	// ExistingKeys returns every jurisdiction that already has a document
	ExistingKeys(ctx context.Context) (map[model.JurisdictionKey]bool, error)
}

// Store combines both stores over one backend
type Store interface {
	RecordStore
	DocumentStore
	Close() error
}

// Open creates the store selected by cfg.Driver
func Open(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		return OpenSQL(ctx, Dialect(cfg.Driver), cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

func duplicateError(key model.JurisdictionKey) error {
	return fmt.Errorf("%w: document for %s", ErrDuplicate, key)
}
