package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/jurisdoc/internal/artifact"
	"github.com/ppiankov/jurisdoc/internal/llm"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/store"
	"github.com/ppiankov/jurisdoc/internal/validate"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testMinWords = 100

type fakeProvider struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string) (*llm.GenerateResponse, error)
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *fakeProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, req.Prompt)
	p.mu.Unlock()
	if p.respond != nil {
		return p.respond(req.Prompt)
	}
	return &llm.GenerateResponse{Text: validDocument(), Model: "fake-model"}, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

// validDocument covers the default outline with enough words and a citation
func validDocument() string {
	filler := strings.TrimSpace(strings.Repeat("owners must follow the rules ", 3))
	var b strings.Builder
	b.WriteString("# Short-Term Rental Compliance Guide\n\n")
	for _, s := range validate.DefaultOutline() {
		fmt.Fprintf(&b, "## %d. %s\n\n%s\n\n", s.Number, s.Title, filler)
		for i, sub := range s.Subsections {
			fmt.Fprintf(&b, "### %c. %s\n\n%s\n\n", 'A'+i, sub, filler)
		}
	}
	b.WriteString("See Sec. 11.0210 at https://codes.example.gov/ca.\n")
	return b.String()
}

func newRecord(state, locality string, confidence float64, created time.Time) *model.KnowledgeRecord {
	return &model.KnowledgeRecord{
		Jurisdiction:        model.NewJurisdictionKey(state, locality),
		Zoning:              &model.ZoningRules{PermittedZones: model.String("R-1")},
		InterpretiveSummary: "Permitted with a license.",
		Status:              model.StatusPermittedWithConditions,
		Provenance: model.Provenance{
			DataSource: model.DataSourceAutomated,
			SourceURLs: []string{"https://codes.example.gov/" + strings.ToLower(state)},
			RawText:    "Sec. 1. Rentals are permitted.",
		},
		ConfidenceScore: model.Float(confidence),
		CreatedAt:       created,
	}
}

func seedRecords(t *testing.T, s store.RecordStore, records ...*model.KnowledgeRecord) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, s.UpsertRecord(context.Background(), r))
	}
}

type harness struct {
	store    *store.MemoryStore
	provider *fakeProvider
	orch     *Orchestrator
	sleeps   []time.Duration
}

func newHarness(t *testing.T, cfg Config, sink artifact.Sink) *harness {
	t.Helper()
	h := &harness{store: store.NewMemoryStore(), provider: &fakeProvider{}}
	h.orch = New(h.store, h.store, h.provider, validate.NewValidator(testMinWords, nil), sink, cfg, nil)
	h.orch.now = func() time.Time { return baseTime }
	h.orch.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return h
}

func TestRun_ConcreteScenario(t *testing.T) {
	h := newHarness(t, Config{RateLimitDelay: time.Second}, nil)
	ctx := context.Background()

	seedRecords(t, h.store,
		newRecord("CA", "San Diego", 90, baseTime),
		newRecord("OR", "Portland", 80, baseTime),
		newRecord("TX", "Austin", 60, baseTime),
	)
	require.NoError(t, h.store.InsertDocument(ctx, &model.GeneratedDocument{
		Jurisdiction: model.NewJurisdictionKey("OR", "Portland"),
		Title:        "existing",
	}))

	report, err := h.orch.Run(ctx, Params{MinConfidence: model.Float(70), Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Success)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Details, 1)
	assert.Equal(t, "CA/San Diego", report.Details[0].JurisdictionKey)
	assert.Equal(t, 70.0, report.Params.MinConfidence)
	assert.Equal(t, 2, report.Params.Limit)
	assert.Empty(t, h.sleeps, "no delay after the last item")

	doc, err := h.store.GetDocument(ctx, model.NewJurisdictionKey("CA", "San Diego"))
	require.NoError(t, err)
	assert.Equal(t, report.Details[0].OutputID, doc.ID)
	assert.Equal(t, "Short-Term Rental Compliance Guide", doc.Title)
	assert.True(t, doc.Metadata.Validation.IsValid, "errors: %v", doc.Metadata.Validation.Errors)
	assert.Equal(t, 90.0, *doc.Metadata.ConfidenceAtGeneration)
	assert.Equal(t, "fake", doc.Metadata.Provider)
	assert.Equal(t, "fake-model", doc.Metadata.Model)
	assert.NotEmpty(t, doc.Sections)
}

func TestRun_DedupMakesRerunNoOp(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	seedRecords(t, h.store, newRecord("CA", "Fresno", 85, baseTime))

	first, err := h.orch.Run(ctx, Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Success)

	second, err := h.orch.Run(ctx, Params{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Total)
	assert.Equal(t, 0, second.Failed)
	assert.Equal(t, 0, second.Skipped)
	assert.Equal(t, 1, h.provider.calls())
}

func TestRun_LimitAppliedAfterDedup(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	seedRecords(t, h.store,
		newRecord("CA", "A", 99, baseTime),
		newRecord("CA", "B", 98, baseTime),
		newRecord("CA", "C", 97, baseTime),
	)
	require.NoError(t, h.store.InsertDocument(ctx, &model.GeneratedDocument{Jurisdiction: model.NewJurisdictionKey("CA", "A")}))

	report, err := h.orch.Run(ctx, Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, report.Details, 2)
	assert.Equal(t, "CA/B", report.Details[0].JurisdictionKey)
	assert.Equal(t, "CA/C", report.Details[1].JurisdictionKey)
}

func TestRun_UnsuitableIsSkippedWithoutGeneration(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	r := newRecord("WA", "Seattle", 90, baseTime)
	r.Zoning = nil
	r.Provenance.RawText = ""
	seedRecords(t, h.store, r)

	report, err := h.orch.Run(context.Background(), Params{})
	require.NoError(t, err)

	require.Len(t, report.Details, 1)
	assert.Equal(t, model.BatchSkipped, report.Details[0].Status)
	assert.Contains(t, report.Details[0].Reason, "no structured data extracted")
	assert.NotContains(t, report.Details[0].Reason, "no narrative basis for generation")
	assert.Equal(t, 0, h.provider.calls())
}

func TestRun_ItemFailureDoesNotAbortBatch(t *testing.T) {
	h := newHarness(t, Config{RateLimitDelay: 2 * time.Second}, nil)
	h.provider.respond = func(prompt string) (*llm.GenerateResponse, error) {
		if strings.Contains(prompt, "Portland") {
			return nil, errors.New("upstream 503")
		}
		return &llm.GenerateResponse{Text: validDocument()}, nil
	}
	seedRecords(t, h.store,
		newRecord("CA", "San Diego", 95, baseTime),
		newRecord("OR", "Portland", 85, baseTime),
		newRecord("WA", "Seattle", 75, baseTime),
	)

	report, err := h.orch.Run(context.Background(), Params{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, model.BatchFailed, report.Details[1].Status)
	assert.Equal(t, "upstream 503", report.Details[1].Reason)
	assert.Equal(t, model.BatchSuccess, report.Details[2].Status)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, h.sleeps)
}

func TestRun_EmptyResponseFails(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.provider.respond = func(string) (*llm.GenerateResponse, error) {
		return &llm.GenerateResponse{Text: "  \n"}, nil
	}
	seedRecords(t, h.store, newRecord("CA", "Fresno", 85, baseTime))

	report, err := h.orch.Run(context.Background(), Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, ErrEmptyResponse.Error(), report.Details[0].Reason)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.provider.respond = func(prompt string) (*llm.GenerateResponse, error) {
		if strings.Contains(prompt, "Fresno") {
			panic("boom")
		}
		return &llm.GenerateResponse{Text: validDocument()}, nil
	}
	seedRecords(t, h.store,
		newRecord("CA", "Fresno", 90, baseTime),
		newRecord("CA", "Irvine", 80, baseTime),
	)

	report, err := h.orch.Run(context.Background(), Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Success)
	assert.Equal(t, "panic: boom", report.Details[0].Reason)
}

func TestRun_InvalidDocumentStillPersisted(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	h.provider.respond = func(string) (*llm.GenerateResponse, error) {
		return &llm.GenerateResponse{Text: "## 1. Overview\n\nToo short. [insert details]"}, nil
	}
	seedRecords(t, h.store, newRecord("CA", "Fresno", 85, baseTime))

	report, err := h.orch.Run(context.Background(), Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)

	doc, err := h.store.GetDocument(context.Background(), model.NewJurisdictionKey("CA", "Fresno"))
	require.NoError(t, err)
	assert.False(t, doc.Metadata.Validation.IsValid)
	assert.True(t, doc.Metadata.Validation.HasPlaceholders)
	assert.Contains(t, doc.Metadata.Validation.MissingSections, "Definitions")
}

func TestRun_BlockOnInvalid(t *testing.T) {
	h := newHarness(t, Config{BlockOnInvalid: true}, nil)
	h.provider.respond = func(string) (*llm.GenerateResponse, error) {
		return &llm.GenerateResponse{Text: "## 1. Overview\n\nToo short."}, nil
	}
	seedRecords(t, h.store, newRecord("CA", "Fresno", 85, baseTime))

	report, err := h.orch.Run(context.Background(), Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, strings.HasPrefix(report.Details[0].Reason, "validation failed: "), report.Details[0].Reason)

	_, err = h.store.GetDocument(context.Background(), model.NewJurisdictionKey("CA", "Fresno"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// racingStore hides existing documents from the dedup read, as a concurrent run would
type racingStore struct {
	*store.MemoryStore
}

func (racingStore) ExistingKeys(ctx context.Context) (map[model.JurisdictionKey]bool, error) {
	return map[model.JurisdictionKey]bool{}, nil
}

func TestRun_DuplicateInsertIsDistinctFailure(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	ctx := context.Background()
	seedRecords(t, h.store, newRecord("CA", "Fresno", 85, baseTime))
	require.NoError(t, h.store.InsertDocument(ctx, &model.GeneratedDocument{Jurisdiction: model.NewJurisdictionKey("CA", "Fresno")}))

	h.orch.documents = racingStore{h.store}

	report, err := h.orch.Run(ctx, Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, strings.HasPrefix(report.Details[0].Reason, "already exists: "), report.Details[0].Reason)
}

func TestRun_DryRunPersistsNothing(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	seedRecords(t, h.store, newRecord("CA", "Fresno", 85, baseTime))

	report, err := h.orch.Run(context.Background(), Params{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)
	assert.True(t, report.Params.DryRun)
	assert.Empty(t, report.Details[0].OutputID)
	require.NotNil(t, report.Details[0].WordCount)
	assert.Greater(t, *report.Details[0].WordCount, testMinWords)

	keys, err := h.store.ExistingKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRun_ScopeFilter(t *testing.T) {
	h := newHarness(t, Config{}, nil)
	seedRecords(t, h.store,
		newRecord("CA", "Fresno", 85, baseTime),
		newRecord("OR", "Portland", 95, baseTime),
	)

	report, err := h.orch.Run(context.Background(), Params{Scope: model.NewJurisdictionKey("CA", "")})
	require.NoError(t, err)
	require.Len(t, report.Details, 1)
	assert.Equal(t, "CA/Fresno", report.Details[0].JurisdictionKey)
	assert.Equal(t, "CA", report.Params.JurisdictionFilter)
}

type failingRecords struct {
	*store.MemoryStore
}

func (failingRecords) ListCandidates(ctx context.Context, q store.CandidateQuery) ([]*model.KnowledgeRecord, error) {
	return nil, errors.New("connection refused")
}

func TestRun_MinConfidence(t *testing.T) {
	seedLow := func(h *harness) {
		seedRecords(t, h.store,
			newRecord("CA", "San Diego", 90, baseTime),
			newRecord("NV", "Reno", 10, baseTime),
		)
	}

	t.Run("unset uses config", func(t *testing.T) {
		h := newHarness(t, Config{MinConfidence: 50}, nil)
		seedLow(h)
		report, err := h.orch.Run(context.Background(), Params{})
		require.NoError(t, err)
		assert.Equal(t, 50.0, report.Params.MinConfidence)
		assert.Equal(t, 1, report.Total)
	})

	t.Run("explicit zero admits every scored record", func(t *testing.T) {
		h := newHarness(t, Config{MinConfidence: 50}, nil)
		seedLow(h)
		unscored := newRecord("WA", "Seattle", 0, baseTime)
		unscored.ConfidenceScore = nil
		seedRecords(t, h.store, unscored)

		report, err := h.orch.Run(context.Background(), Params{MinConfidence: model.Float(0)})
		require.NoError(t, err)
		assert.Equal(t, 0.0, report.Params.MinConfidence)
		assert.Equal(t, 2, report.Total)
		assert.Equal(t, 2, report.Success)
		assert.Equal(t, 2, h.provider.calls())
	})
}

func TestRun_SetupErrorsAbort(t *testing.T) {
	h := newHarness(t, Config{}, nil)

	_, err := h.orch.Run(context.Background(), Params{MinConfidence: model.Float(150)})
	assert.Error(t, err)

	_, err = h.orch.Run(context.Background(), Params{Limit: -1})
	assert.Error(t, err)

	_, err = h.orch.Run(context.Background(), Params{Scope: model.JurisdictionKey{State: "Cal"}})
	assert.Error(t, err)

	h.orch.records = failingRecords{h.store}
	_, err = h.orch.Run(context.Background(), Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list candidates")
	assert.Equal(t, 0, h.provider.calls())
}

func TestRun_CancelledBetweenItems(t *testing.T) {
	h := newHarness(t, Config{RateLimitDelay: time.Second}, nil)
	h.orch.sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }
	seedRecords(t, h.store,
		newRecord("CA", "Fresno", 90, baseTime),
		newRecord("CA", "Irvine", 80, baseTime),
	)

	report, err := h.orch.Run(context.Background(), Params{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Total)
}

// countingSink records every write
type countingSink struct {
	mu     sync.Mutex
	writes []string
	data   map[string][]byte
}

func (s *countingSink) Write(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.writes = append(s.writes, name)
	s.data[name] = data
	return nil
}

func (s *countingSink) Location(name string) string { return "mem://" + name }

func TestRun_ReportFlushedAfterEveryItem(t *testing.T) {
	sink := &countingSink{}
	h := newHarness(t, Config{}, sink)
	h.provider.respond = func(prompt string) (*llm.GenerateResponse, error) {
		if strings.Contains(prompt, "Irvine") {
			return nil, errors.New("rate limited")
		}
		return &llm.GenerateResponse{Text: validDocument()}, nil
	}
	seedRecords(t, h.store,
		newRecord("CA", "Fresno", 90, baseTime),
		newRecord("CA", "Irvine", 80, baseTime),
	)

	_, err := h.orch.Run(context.Background(), Params{})
	require.NoError(t, err)

	run := RunName(baseTime)
	assert.Equal(t, []string{run + ".json", run + ".json", run + ".json", run + "-failed.json"}, sink.writes)

	var failed struct {
		Count   int                 `json:"count"`
		Details []model.BatchDetail `json:"details"`
	}
	require.NoError(t, json.Unmarshal(sink.data[run+"-failed.json"], &failed))
	assert.Equal(t, 1, failed.Count)
	assert.Equal(t, "CA/Irvine", failed.Details[0].JurisdictionKey)
}

func TestRun_ReportWireFormat(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, Config{}, artifact.NewFileSink(dir))
	seedRecords(t, h.store, newRecord("CA", "Fresno", 85, baseTime))

	_, err := h.orch.Run(context.Background(), Params{Verbose: true})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, RunName(baseTime)+".json"))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"success", "failed", "skipped", "total", "details", "generatedAt", "params"} {
		assert.Contains(t, raw, key)
	}

	var details []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw["details"], &details))
	require.Len(t, details, 1)
	for _, key := range []string{"jurisdictionKey", "status", "outputId", "wordCount", "confidenceScore", "processingTimeMs"} {
		assert.Contains(t, details[0], key)
	}
	assert.NotContains(t, details[0], "reason")

	_, err = os.Stat(filepath.Join(dir, RunName(baseTime)+"-failed.json"))
	assert.True(t, os.IsNotExist(err), "no failed export without failures")
}

func TestRenderPrompt_Deterministic(t *testing.T) {
	r := newRecord("CA", "San Diego", 90, baseTime)
	r.LocalRequirements = &model.LocalRequirementRules{PermitRequired: model.Bool(true), PermitFee: model.Float(125)}
	outline := validate.DefaultOutline()

	a := RenderPrompt(r, outline, 1200)
	b := RenderPrompt(r.Clone(), outline, 1200)
	assert.Equal(t, a, b)

	assert.Contains(t, a, "San Diego, CA")
	assert.Contains(t, a, "5. Permits and Registration")
	assert.Contains(t, a, "   C. Inspections")
	assert.Contains(t, a, "- Permit fee: $125.00")
	assert.Contains(t, a, "- Permit required: yes")
	assert.Contains(t, a, "- Permitted zones: R-1")
	assert.Contains(t, a, "- Regulatory status: permitted with conditions")
	assert.Contains(t, a, "at least 1200 words")
	assert.NotContains(t, a, "### Occupancy")
}
