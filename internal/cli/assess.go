package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jurisdoc/internal/assess"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/score"
	"github.com/ppiankov/jurisdoc/internal/validate"
)

var (
	assessMinConfidence float64
	assessCheckLinks    bool
	assessJSON          bool
)

// assessCmd represents the assess command
var assessCmd = &cobra.Command{
	Use:   "assess <jurisdiction>",
	Short: "Score a cached record and decide whether it is suitable for generation",
	Long: `Assess reads the stored record without acquiring it, recomputes its quality score
and runs the suitability gate. Every failing rule is listed.

Source URLs are ranked by publisher authority (official code, legal reference, other).
With --check-links they are also checked with HEAD requests.

Example:
  jurisdoc assess "CA/San Diego"
  jurisdoc assess "Portland, OR" --check-links --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAssess,
}

func init() {
	rootCmd.AddCommand(assessCmd)

	assessCmd.Flags().Float64Var(&assessMinConfidence, "min-confidence", 0, "minimum confidence (default from config)")
	assessCmd.Flags().BoolVar(&assessCheckLinks, "check-links", false, "check that source URLs are reachable")
	assessCmd.Flags().BoolVar(&assessJSON, "json", false, "print the assessment as JSON")
}

// assessment is the printable result of the assess command
type assessment struct {
	Jurisdiction string                     `json:"jurisdiction"`
	Confidence   *float64                   `json:"confidence,omitempty"`
	Quality      model.QualityReport        `json:"quality"`
	Suitability  assess.Result              `json:"suitability"`
	Sources      []validate.SourceAuthority `json:"sources"`
	Links        []validate.LinkStatus      `json:"links,omitempty"`
}

func runAssess(cmd *cobra.Command, args []string) error {
	key, err := model.ParseJurisdictionKey(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	record, err := a.store.GetRecord(ctx, key)
	if err != nil {
		return fmt.Errorf("load record %s: %w", key, err)
	}

	assessor := assess.NewAssessor(a.cfg.Generation.MinConfidence)
	if cmd.Flags().Changed("min-confidence") {
		if assessMinConfidence < 0 || assessMinConfidence > 100 {
			return fmt.Errorf("min confidence must be between 0 and 100, got %v", assessMinConfidence)
		}
		assessor = assess.NewExactAssessor(assessMinConfidence)
	}

	result := assessment{
		Jurisdiction: key.String(),
		Confidence:   record.ConfidenceScore,
		Quality:      score.NewScorer().Calculate(record),
		Suitability:  assessor.Assess(record),
		Sources:      validate.NewAuthorityClassifier(&a.cfg.Authority).ClassifyAll(record.Provenance.SourceURLs),
	}

	if assessCheckLinks && len(record.Provenance.SourceURLs) > 0 {
		src := a.cfg.Source
		checker := validate.NewLinkChecker(10*time.Second, 8, src.UserAgent, src.HTTPProxy, src.HTTPSProxy, src.NoProxy)
		result.Links = checker.Check(ctx, record.Provenance.SourceURLs)
	}

	out := cmd.OutOrStdout()
	if assessJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "Jurisdiction:  %s\n", key.Display())
	fmt.Fprintf(out, "Confidence:    %s (threshold %.0f)\n", formatScore(record.ConfidenceScore), assessor.MinConfidence())
	fmt.Fprintf(out, "Quality:       %d/100\n", result.Quality.Score)
	for _, s := range result.Quality.Signals {
		fmt.Fprintf(out, "  [%s] %s\n", s.Severity, s.Description)
	}

	if result.Suitability.IsSuitable {
		fmt.Fprintf(out, "\n✓ Suitable for generation\n")
	} else {
		fmt.Fprintf(out, "\n✗ Not suitable for generation\n")
		for _, issue := range result.Suitability.Issues {
			fmt.Fprintf(out, "  - %s\n", issue)
		}
	}

	if len(result.Sources) > 0 {
		fmt.Fprintf(out, "\nSources:\n")
		for _, src := range result.Sources {
			fmt.Fprintf(out, "  [%s] %s\n", src.Tier, src.URL)
		}
		if !validate.HasPrimary(result.Sources) {
			fmt.Fprintf(out, "⚠️  No primary (official) source; verify facts before publishing\n")
		}
	}

	if len(result.Links) > 0 {
		fmt.Fprintf(out, "\nSource links:\n")
		for _, l := range result.Links {
			switch {
			case l.IsAccessible:
				fmt.Fprintf(out, "  ✓ %s (%d)\n", l.URL, l.StatusCode)
			case l.IsDead:
				fmt.Fprintf(out, "  ✗ %s (dead) %s\n", l.URL, l.Error)
			default:
				fmt.Fprintf(out, "  ? %s (%d) %s\n", l.URL, l.StatusCode, l.Error)
			}
		}
		if validate.AnyDead(result.Links) {
			fmt.Fprintf(out, "\n⚠️  At least one source link is dead; consider refreshing this record\n")
		}
	}
	return nil
}
