package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRecord(state, locality string, confidence float64, created time.Time) *model.KnowledgeRecord {
	expires := created.Add(30 * 24 * time.Hour)
	return &model.KnowledgeRecord{
		Jurisdiction:        model.NewJurisdictionKey(state, locality),
		Zoning:              &model.ZoningRules{PermittedZones: model.String("R-1, R-2"), ConditionalUseRequired: model.Bool(true)},
		InterpretiveSummary: "Permitted with a business license.",
		Status:              model.StatusPermittedWithConditions,
		Provenance: model.Provenance{
			DataSource:  model.DataSourceAutomated,
			SourceURLs:  []string{"https://codes.example.gov/" + state},
			SearchTerms: []string{"short-term rental"},
			RawText:     "Sec. 1. Short-term rentals are permitted.",
		},
		ConfidenceScore: model.Float(confidence),
		CacheExpiresAt:  &expires,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func openSQLite(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQL(context.Background(), DialectSQLite, filepath.Join(t.TempDir(), "jurisdoc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// backends runs fn against every store implementation
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, openSQLite(t)) })
}

func TestStore_GetRecord_NotFound(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.GetRecord(context.Background(), model.NewJurisdictionKey("CA", "Nowhere"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_UpsertRecord_RoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		r := newRecord("CA", "San Diego", 82.5, baseTime)
		r.Occupancy = &model.OccupancyRules{MaxOccupants: model.Int(6), OwnerOccupancyRequired: model.Bool(false)}

		require.NoError(t, s.UpsertRecord(ctx, r))
		require.NotEmpty(t, r.ID)

		got, err := s.GetRecord(ctx, r.Jurisdiction)
		require.NoError(t, err)

		assert.Equal(t, r.ID, got.ID)
		assert.Equal(t, r.Jurisdiction, got.Jurisdiction)
		require.NotNil(t, got.Occupancy)
		assert.Equal(t, 6, *got.Occupancy.MaxOccupants)
		assert.False(t, *got.Occupancy.OwnerOccupancyRequired)
		assert.Nil(t, got.Definitions)
		require.NotNil(t, got.Zoning)
		assert.Equal(t, "R-1, R-2", *got.Zoning.PermittedZones)
		assert.Equal(t, r.Provenance, got.Provenance)
		assert.Equal(t, model.StatusPermittedWithConditions, got.Status)
		assert.Equal(t, 82.5, *got.ConfidenceScore)
		assert.Nil(t, got.QualityScore)
		assert.True(t, r.CacheExpiresAt.Equal(*got.CacheExpiresAt))
		assert.True(t, baseTime.Equal(got.CreatedAt))
	})
}

func TestStore_UpsertRecord_PreservesIdentityAndCounters(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		first := newRecord("OR", "Portland", 70, baseTime)
		require.NoError(t, s.UpsertRecord(ctx, first))
		require.NoError(t, s.TouchRecord(ctx, first.Jurisdiction, baseTime.Add(time.Hour)))
		require.NoError(t, s.TouchRecord(ctx, first.Jurisdiction, baseTime.Add(2*time.Hour)))

		second := newRecord("OR", "Portland", 91, baseTime.Add(48*time.Hour))
		second.ID = "ignored-on-conflict"
		second.NeedsRefresh = false
		require.NoError(t, s.UpsertRecord(ctx, second))

		assert.Equal(t, first.ID, second.ID)
		assert.True(t, baseTime.Equal(second.CreatedAt))

		got, err := s.GetRecord(ctx, first.Jurisdiction)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, int64(2), got.HitCount)
		require.NotNil(t, got.LastAccessedAt)
		assert.True(t, baseTime.Add(2*time.Hour).Equal(*got.LastAccessedAt))
		assert.Equal(t, 91.0, *got.ConfidenceScore)
	})
}

func TestStore_TouchRecord_NotFound(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		err := s.TouchRecord(context.Background(), model.NewJurisdictionKey("TX", "Austin"), baseTime)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_ListCandidates(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, r := range []*model.KnowledgeRecord{
			newRecord("CA", "San Diego", 80, baseTime),
			newRecord("CA", "Oakland", 95, baseTime.Add(time.Minute)),
			newRecord("CA", "Fresno", 80, baseTime.Add(-time.Minute)),
			newRecord("CA", "Eureka", 40, baseTime),
			newRecord("NV", "Reno", 99, baseTime),
		} {
			require.NoError(t, s.UpsertRecord(ctx, r))
		}
		unscored := newRecord("CA", "Chico", 0, baseTime)
		unscored.ConfidenceScore = nil
		require.NoError(t, s.UpsertRecord(ctx, unscored))

		got, err := s.ListCandidates(ctx, CandidateQuery{Scope: model.NewJurisdictionKey("CA", ""), MinConfidence: 60})
		require.NoError(t, err)

		var localities []string
		for _, r := range got {
			localities = append(localities, r.Jurisdiction.Locality)
		}
		assert.Equal(t, []string{"Oakland", "Fresno", "San Diego"}, localities)

		all, err := s.ListCandidates(ctx, CandidateQuery{MinConfidence: 60})
		require.NoError(t, err)
		assert.Len(t, all, 4)
		assert.Equal(t, "Reno", all[0].Jurisdiction.Locality)

		one, err := s.ListCandidates(ctx, CandidateQuery{Scope: model.NewJurisdictionKey("CA", "san diego"), MinConfidence: 0})
		require.NoError(t, err)
		require.Len(t, one, 1)
		assert.Equal(t, "San Diego", one[0].Jurisdiction.Locality)
	})
}

func TestStore_MarkExpiredAndListStale(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		fresh := newRecord("WA", "Seattle", 80, baseTime)
		expired := newRecord("WA", "Tacoma", 80, baseTime.Add(-60*24*time.Hour))
		noExpiry := newRecord("WA", "Spokane", 80, baseTime)
		noExpiry.CacheExpiresAt = nil
		for _, r := range []*model.KnowledgeRecord{fresh, expired, noExpiry} {
			require.NoError(t, s.UpsertRecord(ctx, r))
		}
		require.NoError(t, s.TouchRecord(ctx, expired.Jurisdiction, baseTime))

		now := baseTime.Add(time.Hour)
		n, err := s.MarkExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = s.MarkExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n, "already flagged rows are not counted again")

		stale, err := s.ListStale(ctx, now, 0)
		require.NoError(t, err)
		require.Len(t, stale, 2)
		assert.Equal(t, "Tacoma", stale[0].Jurisdiction.Locality, "most-hit first")
		assert.True(t, stale[0].NeedsRefresh)

		limited, err := s.ListStale(ctx, now, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		got, err := s.GetRecord(ctx, fresh.Jurisdiction)
		require.NoError(t, err)
		assert.False(t, got.NeedsRefresh)
		assert.NotNil(t, got.Zoning, "expiry never removes data")
	})
}

func TestStore_Documents(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		key := model.NewJurisdictionKey("CA", "San Diego")

		_, err := s.GetDocument(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)

		doc := &model.GeneratedDocument{
			Jurisdiction: key,
			Title:        "Short-Term Rental Compliance Guide: San Diego, CA",
			Content:      "## 1. Overview\n\nText.",
			Sections:     []model.SectionHeader{{ID: "1-overview", Title: "1. Overview", Level: 2}},
			WordCount:    4,
			Metadata: model.DocumentMetadata{
				SourceRecordID:         "rec-1",
				ConfidenceAtGeneration: model.Float(90),
				GeneratedAt:            baseTime,
				Validation:             model.ValidationResult{WordCount: 4, MinWords: 1200, MissingSections: []string{"Definitions"}},
			},
			CreatedAt: baseTime,
		}
		require.NoError(t, s.InsertDocument(ctx, doc))
		require.NotEmpty(t, doc.ID)

		got, err := s.GetDocument(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
		assert.Equal(t, doc.Sections, got.Sections)
		assert.Equal(t, "rec-1", got.Metadata.SourceRecordID)
		assert.Equal(t, []string{"Definitions"}, got.Metadata.Validation.MissingSections)
		assert.False(t, got.Metadata.Validation.IsValid)

		dup := &model.GeneratedDocument{Jurisdiction: key, Title: "again", Content: "again"}
		err = s.InsertDocument(ctx, dup)
		assert.ErrorIs(t, err, ErrDuplicate)

		require.NoError(t, s.InsertDocument(ctx, &model.GeneratedDocument{
			Jurisdiction: model.NewJurisdictionKey("CA", ""), Title: "California", Content: "state",
		}))

		keys, err := s.ExistingKeys(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[model.JurisdictionKey]bool{
			key:                                true,
			model.NewJurisdictionKey("CA", ""): true,
		}, keys)
	})
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, model.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, model.StoreConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, model.StoreConfig{Driver: "postgres"})
	assert.Error(t, err, "postgres requires a DSN")

	_, err = Open(ctx, model.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
