package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// Refresher re-acquires the record for one jurisdiction
type Refresher interface {
	Refresh(ctx context.Context, key model.JurisdictionKey) (*model.KnowledgeRecord, error)
}

// RefreshJob refreshes a single jurisdiction
type RefreshJob struct {
	Key       model.JurisdictionKey
	Refresher Refresher
}

// Execute executes the refresh job
func (j *RefreshJob) Execute(ctx context.Context) Result {
	record, err := j.Refresher.Refresh(ctx, j.Key)
	return &RefreshResult{
		Key:    j.Key,
		Record: record,
		Error:  err,
	}
}

// RefreshResult is the outcome of one refresh
type RefreshResult struct {
	Key    model.JurisdictionKey
	Record *model.KnowledgeRecord
	Error  error
}

// GetError returns the error from the refresh result
func (r *RefreshResult) GetError() error {
	return r.Error
}

// RefreshProcessor refreshes distinct jurisdictions concurrently
type RefreshProcessor struct {
	refresher   Refresher
	concurrency int
}

// NewRefreshProcessor creates a new refresh processor
func NewRefreshProcessor(refresher Refresher, concurrency int) *RefreshProcessor {
	return &RefreshProcessor{
		refresher:   refresher,
		concurrency: concurrency,
	}
}

// ProcessKeys refreshes keys concurrently. Duplicate keys run once.
// Results follow the order of first appearance.
func (b *RefreshProcessor) ProcessKeys(ctx context.Context, keys []model.JurisdictionKey) []*RefreshResult {
	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return []*RefreshResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, key := range keys {
		if !pool.Submit(&RefreshJob{Key: key, Refresher: b.refresher}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*RefreshResult, len(results))
	for i, r := range results {
		out[i] = r.(*RefreshResult)
	}
	return out
}

// ProcessFile reads jurisdictions from a file and refreshes them
func (b *RefreshProcessor) ProcessFile(ctx context.Context, filePath string) ([]*RefreshResult, error) {
	keys, err := ReadKeysFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read jurisdictions: %w", err)
	}
	return b.ProcessKeys(ctx, keys), nil
}

// ReadKeysFromFile reads jurisdiction keys from a file (one per line).
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadKeysFromFile(filePath string) ([]model.JurisdictionKey, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var keys []model.JurisdictionKey
	lineNo := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, err := model.ParseJurisdictionKey(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		keys = append(keys, key)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return uniqueKeys(keys), nil
}

func uniqueKeys(keys []model.JurisdictionKey) []model.JurisdictionKey {
	seen := make(map[model.JurisdictionKey]bool, len(keys))
	out := make([]model.JurisdictionKey, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
