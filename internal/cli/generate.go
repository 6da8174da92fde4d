package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jurisdoc/internal/artifact"
	"github.com/ppiankov/jurisdoc/internal/generate"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/validate"
)

// ErrBatchFailures makes the process exit non-zero when any item failed
var ErrBatchFailures = errors.New("batch finished with failures")

var (
	genJurisdiction  string
	genMinConfidence float64
	genLimit         int
	genDryRun        bool
	genBlockInvalid  bool
	genDelay         time.Duration
	genReportDir     string
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate compliance documents for suitable cached records",
	Long: `Generate runs one batch:
- Select records at or above the confidence threshold, highest first
- Drop jurisdictions that already have a document
- Apply the limit, then process records one at a time with a fixed delay
- Skip unsuitable records, generate, validate and save the rest
- Write the batch report after every item

Exit status is non-zero when any item failed. Skipped items do not count as failures.

Example:
  jurisdoc generate
  jurisdoc generate --jurisdiction CA --min-confidence 70 --limit 10
  jurisdoc generate --dry-run --verbose`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&genJurisdiction, "jurisdiction", "", `scope filter ("CA" or "CA/San Diego")`)
	generateCmd.Flags().Float64Var(&genMinConfidence, "min-confidence", 0, "minimum confidence, 0 admits every scored record (default from config, 60)")
	generateCmd.Flags().IntVar(&genLimit, "limit", 0, "maximum documents to generate after dedup (0 = no limit)")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "generate and validate without saving")
	generateCmd.Flags().BoolVar(&genBlockInvalid, "block-on-invalid", false, "record invalid documents as failed instead of saving them")
	generateCmd.Flags().DurationVar(&genDelay, "delay", 0, "pause between generation calls (default from config, 2s)")
	generateCmd.Flags().StringVar(&genReportDir, "report-dir", "", "directory for batch reports (default from config)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params := generate.Params{
		Limit:   genLimit,
		DryRun:  genDryRun,
		Verbose: verbose,
	}
	if cmd.Flags().Changed("min-confidence") {
		params.MinConfidence = model.Float(genMinConfidence)
	}
	if genJurisdiction != "" {
		scope, err := model.ParseJurisdictionKey(genJurisdiction)
		if err != nil {
			return fmt.Errorf("invalid --jurisdiction: %w", err)
		}
		params.Scope = scope
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if genDelay > 0 {
		cfg.Generation.RateLimitDelay = genDelay
	}
	if genBlockInvalid {
		cfg.Generation.BlockOnInvalid = true
	}
	if genReportDir != "" {
		cfg.Report.Dir = genReportDir
	}

	provider, err := a.provider(cfg.LLM)
	if err != nil {
		return err
	}
	if provider == nil {
		return fmt.Errorf("no generation provider configured (set llm.provider)")
	}

	sink, err := artifact.New(ctx, cfg.Report)
	if err != nil {
		return fmt.Errorf("report sink: %w", err)
	}

	orch := generate.New(a.store, a.store, provider,
		validate.NewValidator(cfg.Generation.MinWords, nil), sink,
		generate.ConfigFromModel(cfg.Generation, cfg.LLM.MaxTokens), a.logger)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Jurisdoc Batch Generation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Scope:          %s\n", scopeLabel(params.Scope))
	fmt.Fprintf(os.Stderr, "  Provider:       %s/%s\n", provider.Name(), cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Delay:          %v\n", cfg.Generation.RateLimitDelay)
	fmt.Fprintf(os.Stderr, "  Dry run:        %v\n", params.DryRun || cfg.Generation.DryRun)
	fmt.Fprintf(os.Stderr, "\n")

	report, err := orch.Run(ctx, params)
	if report == nil {
		return err
	}

	printBatchSummary(report)

	if err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%w: %d of %d failed", ErrBatchFailures, report.Failed, report.Total)
	}
	return nil
}

func printBatchSummary(report *model.BatchReport) {
	for _, d := range report.Details {
		switch d.Status {
		case model.BatchSuccess:
			words := 0
			if d.WordCount != nil {
				words = *d.WordCount
			}
			fmt.Fprintf(os.Stderr, "✓ %s (%d words)\n", d.JurisdictionKey, words)
		case model.BatchSkipped:
			fmt.Fprintf(os.Stderr, "- %s: skipped (%s)\n", d.JurisdictionKey, d.Reason)
		case model.BatchFailed:
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", d.JurisdictionKey, d.Reason)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:    %d\n", report.Total)
	fmt.Fprintf(os.Stderr, "  Success:  %d\n", report.Success)
	fmt.Fprintf(os.Stderr, "  Skipped:  %d\n", report.Skipped)
	fmt.Fprintf(os.Stderr, "  Failed:   %d\n", report.Failed)
	fmt.Fprintf(os.Stderr, "\n")
}

func scopeLabel(k model.JurisdictionKey) string {
	if k.State == "" {
		return "all jurisdictions"
	}
	return k.String()
}
