package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/worker"
)

var (
	refreshFile    string
	refreshWorkers int
	refreshLimit   int
)

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-acquire expired or flagged records concurrently",
	Long: `Refresh marks expired records, then re-acquires every stale record with a pool of workers.
With --file, the jurisdictions listed in the file are refreshed instead (one per line,
"CA/San Diego" or "Portland, OR"; blank lines and # comments are skipped).

Concurrent refreshes of the same jurisdiction share one acquisition.

Example:
  jurisdoc refresh --workers 8
  jurisdoc refresh --file jurisdictions.txt`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringVarP(&refreshFile, "file", "f", "", "file with jurisdictions to refresh")
	refreshCmd.Flags().IntVarP(&refreshWorkers, "workers", "w", 0, "number of concurrent workers (default from config)")
	refreshCmd.Flags().IntVar(&refreshLimit, "limit", 0, "maximum stale records to refresh (0 = all)")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.lookupService()
	if err != nil {
		return err
	}

	workers := refreshWorkers
	if workers <= 0 {
		workers = a.cfg.Refresh.Workers
	}
	processor := worker.NewRefreshProcessor(svc, workers)

	start := time.Now()
	var results []*worker.RefreshResult

	if refreshFile != "" {
		results, err = processor.ProcessFile(ctx, refreshFile)
		if err != nil {
			return err
		}
	} else {
		now := time.Now()
		marked, err := a.store.MarkExpired(ctx, now)
		if err != nil {
			return fmt.Errorf("mark expired: %w", err)
		}
		stale, err := a.store.ListStale(ctx, now, refreshLimit)
		if err != nil {
			return fmt.Errorf("list stale records: %w", err)
		}
		a.logger.Info("stale records selected", "newly_expired", marked, "stale", len(stale))

		keys := make([]model.JurisdictionKey, len(stale))
		for i, r := range stale {
			keys[i] = r.Jurisdiction
		}
		results = processor.ProcessKeys(ctx, keys)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Refreshing %d jurisdictions with %d workers\n", len(results), workers)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Key, r.Error)
			continue
		}
		quality := 0
		if r.Record != nil && r.Record.QualityScore != nil {
			quality = *r.Record.QualityScore
		}
		fmt.Fprintf(os.Stderr, "✓ %s (quality %d/100)\n", r.Key, quality)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Refreshed:  %d\n", len(results)-failed)
	fmt.Fprintf(os.Stderr, "  Failed:     %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Duration:   %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")

	if failed > 0 {
		return fmt.Errorf("%d of %d refreshes failed", failed, len(results))
	}
	return nil
}
