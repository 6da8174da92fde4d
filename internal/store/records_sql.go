package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/jurisdoc/internal/model"
)

const recordColumns = `id, state_code, locality_name, occupancy, definitions, zoning, local_requirements,
	interpretive_summary, status, data_source, source_urls, search_terms, raw_text,
	confidence_score, quality_score, hit_count, last_accessed_at, cache_expires_at, needs_refresh,
	created_at, updated_at`

// GetRecord implements RecordStore
func (s *SQLStore) GetRecord(ctx context.Context, key model.JurisdictionKey) (*model.KnowledgeRecord, error) {
	query := s.rebind(`SELECT ` + recordColumns + ` FROM knowledge_records WHERE state_code = ? AND locality_name = ?`)

	r, err := scanRecord(s.db.QueryRowContext(ctx, query, key.State, key.Locality))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", key, err)
	}
	return r, nil
}

// UpsertRecord implements RecordStore
func (s *SQLStore) UpsertRecord(ctx context.Context, r *model.KnowledgeRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}

	args, err := recordArgs(r)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", r.Jurisdiction, err)
	}

	query := s.rebind(`INSERT INTO knowledge_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (state_code, locality_name) DO UPDATE SET
			occupancy = excluded.occupancy,
			definitions = excluded.definitions,
			zoning = excluded.zoning,
			local_requirements = excluded.local_requirements,
			interpretive_summary = excluded.interpretive_summary,
			status = excluded.status,
			data_source = excluded.data_source,
			source_urls = excluded.source_urls,
			search_terms = excluded.search_terms,
			raw_text = excluded.raw_text,
			confidence_score = excluded.confidence_score,
			quality_score = excluded.quality_score,
			cache_expires_at = excluded.cache_expires_at,
			needs_refresh = excluded.needs_refresh,
			updated_at = excluded.updated_at
		RETURNING id, created_at`)

	var id, createdAt string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id, &createdAt); err != nil {
		return fmt.Errorf("upsert record %s: %w", r.Jurisdiction, err)
	}

	r.ID = id
	if t, err := parseTime(createdAt); err == nil {
		r.CreatedAt = t
	}
	return nil
}

// TouchRecord implements RecordStore
func (s *SQLStore) TouchRecord(ctx context.Context, key model.JurisdictionKey, at time.Time) error {
	query := s.rebind(`UPDATE knowledge_records SET hit_count = hit_count + 1, last_accessed_at = ?
		WHERE state_code = ? AND locality_name = ?`)

	res, err := s.db.ExecContext(ctx, query, formatTime(at), key.State, key.Locality)
	if err != nil {
		return fmt.Errorf("touch record %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCandidates implements RecordStore
func (s *SQLStore) ListCandidates(ctx context.Context, q CandidateQuery) ([]*model.KnowledgeRecord, error) {
	var where []string
	var args []any

	where = append(where, "confidence_score IS NOT NULL", "confidence_score >= ?")
	args = append(args, q.MinConfidence)

	if q.Scope.State != "" {
		where = append(where, "state_code = ?")
		args = append(args, q.Scope.State)
		if q.Scope.Locality != "" {
			where = append(where, "LOWER(locality_name) = LOWER(?)")
			args = append(args, q.Scope.Locality)
		}
	}

	query := s.rebind(`SELECT ` + recordColumns + ` FROM knowledge_records
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY confidence_score DESC, created_at ASC, id ASC`)

	return s.queryRecords(ctx, query, args...)
}

// MarkExpired implements RecordStore
func (s *SQLStore) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	ts := formatTime(now)
	query := s.rebind(`UPDATE knowledge_records SET needs_refresh = 1, updated_at = ?
		WHERE needs_refresh = 0 AND (cache_expires_at IS NULL OR cache_expires_at <= ?)`)

	res, err := s.db.ExecContext(ctx, query, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("mark expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark expired: %w", err)
	}
	return n, nil
}

// ListStale implements RecordStore
func (s *SQLStore) ListStale(ctx context.Context, now time.Time, limit int) ([]*model.KnowledgeRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM knowledge_records
		WHERE needs_refresh = 1 OR cache_expires_at IS NULL OR cache_expires_at <= ?
		ORDER BY hit_count DESC, id ASC`
	args := []any{formatTime(now)}
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit)
	}

	return s.queryRecords(ctx, s.rebind(query), args...)
}

func (s *SQLStore) queryRecords(ctx context.Context, query string, args ...any) ([]*model.KnowledgeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*model.KnowledgeRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.KnowledgeRecord, error) {
	var (
		r                                     model.KnowledgeRecord
		occupancy, definitions, zoning, local sql.NullString
		status, dataSource                    string
		sourceURLs, searchTerms               sql.NullString
		confidence                            sql.NullFloat64
		quality                               sql.NullInt64
		lastAccessed, expires                 sql.NullString
		needsRefresh                          int64
		createdAt, updatedAt                  string
	)

	err := row.Scan(
		&r.ID, &r.Jurisdiction.State, &r.Jurisdiction.Locality,
		&occupancy, &definitions, &zoning, &local,
		&r.InterpretiveSummary, &status, &dataSource, &sourceURLs, &searchTerms, &r.Provenance.RawText,
		&confidence, &quality, &r.HitCount, &lastAccessed, &expires, &needsRefresh,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = model.RegulatoryStatus(status)
	r.Provenance.DataSource = model.DataSource(dataSource)
	r.NeedsRefresh = needsRefresh != 0

	if err := decodeJSON(occupancy, &r.Occupancy); err != nil {
		return nil, fmt.Errorf("occupancy: %w", err)
	}
	if err := decodeJSON(definitions, &r.Definitions); err != nil {
		return nil, fmt.Errorf("definitions: %w", err)
	}
	if err := decodeJSON(zoning, &r.Zoning); err != nil {
		return nil, fmt.Errorf("zoning: %w", err)
	}
	if err := decodeJSON(local, &r.LocalRequirements); err != nil {
		return nil, fmt.Errorf("local_requirements: %w", err)
	}
	if err := decodeJSON(sourceURLs, &r.Provenance.SourceURLs); err != nil {
		return nil, fmt.Errorf("source_urls: %w", err)
	}
	if err := decodeJSON(searchTerms, &r.Provenance.SearchTerms); err != nil {
		return nil, fmt.Errorf("search_terms: %w", err)
	}

	if confidence.Valid {
		v := confidence.Float64
		r.ConfidenceScore = &v
	}
	if quality.Valid {
		v := int(quality.Int64)
		r.QualityScore = &v
	}

	if r.LastAccessedAt, err = parseTimePtr(lastAccessed); err != nil {
		return nil, fmt.Errorf("last_accessed_at: %w", err)
	}
	if r.CacheExpiresAt, err = parseTimePtr(expires); err != nil {
		return nil, fmt.Errorf("cache_expires_at: %w", err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}

	return &r, nil
}

func recordArgs(r *model.KnowledgeRecord) ([]any, error) {
	groups := make([]sql.NullString, 0, 6)
	for _, v := range []any{r.Occupancy, r.Definitions, r.Zoning, r.LocalRequirements, r.Provenance.SourceURLs, r.Provenance.SearchTerms} {
		ns, err := encodeJSON(v)
		if err != nil {
			return nil, err
		}
		groups = append(groups, ns)
	}

	var confidence sql.NullFloat64
	if r.ConfidenceScore != nil {
		confidence = sql.NullFloat64{Float64: *r.ConfidenceScore, Valid: true}
	}
	var quality sql.NullInt64
	if r.QualityScore != nil {
		quality = sql.NullInt64{Int64: int64(*r.QualityScore), Valid: true}
	}

	return []any{
		r.ID, r.Jurisdiction.State, r.Jurisdiction.Locality,
		groups[0], groups[1], groups[2], groups[3],
		r.InterpretiveSummary, string(r.Status), string(r.Provenance.DataSource), groups[4], groups[5], r.Provenance.RawText,
		confidence, quality, r.HitCount, formatTimePtr(r.LastAccessedAt), formatTimePtr(r.CacheExpiresAt), boolInt(r.NeedsRefresh),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	}, nil
}

// encodeJSON stores nil pointers and empty slices as NULL
func encodeJSON(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *model.OccupancyRules:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *model.DefinitionRules:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *model.ZoningRules:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *model.LocalRequirementRules:
		if t == nil {
			return sql.NullString{}, nil
		}
	case []string:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSON(ns sql.NullString, dst any) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), dst)
}
