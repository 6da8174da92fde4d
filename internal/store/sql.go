package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects placeholder syntax and the database/sql driver name
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// timeLayout is fixed-width so stored timestamps compare correctly as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS knowledge_records (
	id TEXT PRIMARY KEY,
	state_code TEXT NOT NULL,
	locality_name TEXT NOT NULL DEFAULT '',
	occupancy TEXT,
	definitions TEXT,
	zoning TEXT,
	local_requirements TEXT,
	interpretive_summary TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	data_source TEXT NOT NULL DEFAULT '',
	source_urls TEXT,
	search_terms TEXT,
	raw_text TEXT NOT NULL DEFAULT '',
	confidence_score DOUBLE PRECISION,
	quality_score INTEGER,
	hit_count INTEGER NOT NULL DEFAULT 0,
	last_accessed_at TEXT,
	cache_expires_at TEXT,
	needs_refresh INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (state_code, locality_name)
);
CREATE INDEX IF NOT EXISTS idx_knowledge_records_confidence ON knowledge_records (confidence_score);
CREATE TABLE IF NOT EXISTS generated_documents (
	id TEXT PRIMARY KEY,
	state_code TEXT NOT NULL,
	locality_name TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	sections TEXT,
	word_count INTEGER NOT NULL DEFAULT 0,
	metadata TEXT,
	created_at TEXT NOT NULL,
	UNIQUE (state_code, locality_name)
);`

// SQLStore implements Store over database/sql for SQLite and Postgres
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens the database, applies the schema and returns the store
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	var driver string
	switch dialect {
	case DialectSQLite:
		driver = "sqlite"
		if dsn == "" {
			dsn = "jurisdoc.db"
		}
	case DialectPostgres:
		driver = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("postgres store requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unknown SQL dialect: %s", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// SQLite allows one writer at a time
		db.SetMaxOpenConns(1)
	}

	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an already-open database. The schema is not applied.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates tables and indexes if missing
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close implements Store
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for Postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// isUniqueViolation detects unique-constraint failures from either driver
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by other tools may carry plain RFC3339
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
