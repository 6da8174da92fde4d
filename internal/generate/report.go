package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/jurisdoc/internal/artifact"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/util"
)

// RunName names the artifacts of a run started at t
func RunName(t time.Time) string {
	return "batch-" + t.UTC().Format("20060102-150405")
}

// ReportWriter persists the batch report to a sink. The report is rewritten after
// every item so a killed run still leaves a usable partial report.
type ReportWriter struct {
	sink   artifact.Sink
	name   string
	logger *slog.Logger
}

// NewReportWriter creates a writer for run. A nil sink makes every write a no-op.
func NewReportWriter(sink artifact.Sink, run string, logger *slog.Logger) *ReportWriter {
	return &ReportWriter{sink: sink, name: run, logger: util.OrDiscard(logger)}
}

// ReportName is the artifact name of the full report
func (w *ReportWriter) ReportName() string {
	return w.name + ".json"
}

// FailedName is the artifact name of the failed-items export
func (w *ReportWriter) FailedName() string {
	return w.name + "-failed.json"
}

// Location describes where the report is stored
func (w *ReportWriter) Location() string {
	if w.sink == nil {
		return ""
	}
	return w.sink.Location(w.ReportName())
}

// Flush writes the current state of report
func (w *ReportWriter) Flush(ctx context.Context, report *model.BatchReport) error {
	if w.sink == nil {
		return nil
	}
	return w.write(ctx, w.ReportName(), report)
}

// Finish writes the final report and, when any item failed, the failed-items export
func (w *ReportWriter) Finish(ctx context.Context, report *model.BatchReport) error {
	if w.sink == nil {
		return nil
	}
	if err := w.Flush(ctx, report); err != nil {
		return err
	}

	failed := report.FailedDetails()
	if len(failed) == 0 {
		return nil
	}
	export := struct {
		Count       int                 `json:"count"`
		GeneratedAt time.Time           `json:"generatedAt"`
		Details     []model.BatchDetail `json:"details"`
	}{
		Count:       len(failed),
		GeneratedAt: report.GeneratedAt,
		Details:     failed,
	}
	if err := w.write(ctx, w.FailedName(), export); err != nil {
		return err
	}
	w.logger.Info("failed items exported", "count", len(failed), "location", w.sink.Location(w.FailedName()))
	return nil
}

func (w *ReportWriter) write(ctx context.Context, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := w.sink.Write(ctx, name, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
