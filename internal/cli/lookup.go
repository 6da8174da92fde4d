package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jurisdoc/internal/model"
)

var (
	lookupTopic   string
	lookupJSON    bool
	lookupTimeout time.Duration
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <jurisdiction>",
	Short: "Look up the cached record for a jurisdiction, acquiring it when missing or stale",
	Long: `Lookup runs the cache state machine for one jurisdiction:
- FRESH records are served from cache and their hit counter is incremented
- MISS records are acquired from the content source and extracted
- STALE records are refreshed; if refresh fails the stale record is still served

Example:
  jurisdoc lookup "CA/San Diego"
  jurisdoc lookup "Portland, OR" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&lookupTopic, "topic", "", "topic hint (default from config)")
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "print the record as JSON")
	lookupCmd.Flags().DurationVar(&lookupTimeout, "timeout", 3*time.Minute, "overall lookup timeout")
}

func runLookup(cmd *cobra.Command, args []string) error {
	key, err := model.ParseJurisdictionKey(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.lookupService()
	if err != nil {
		return err
	}

	res, err := svc.Lookup(ctx, key, lookupTopic)
	if err != nil {
		return err
	}

	if res.ServedStale {
		fmt.Fprintf(os.Stderr, "⚠️  Refresh failed, serving stale record: %v\n", res.Err)
	}

	out := cmd.OutOrStdout()
	if lookupJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			State       string                 `json:"state"`
			Refreshed   bool                   `json:"refreshed"`
			ServedStale bool                   `json:"served_stale"`
			Record      *model.KnowledgeRecord `json:"record"`
		}{string(res.State), res.Refreshed, res.ServedStale, res.Record})
	}

	r := res.Record
	fmt.Fprintf(out, "Jurisdiction:  %s\n", r.Jurisdiction.Display())
	fmt.Fprintf(out, "Cache state:   %s (refreshed: %v, served stale: %v)\n", res.State, res.Refreshed, res.ServedStale)
	fmt.Fprintf(out, "Status:        %s\n", valueOr(string(r.Status), "unknown"))
	fmt.Fprintf(out, "Confidence:    %s\n", formatScore(r.ConfidenceScore))
	if r.QualityScore != nil {
		fmt.Fprintf(out, "Quality:       %d/100\n", *r.QualityScore)
	}
	fmt.Fprintf(out, "Hits:          %d\n", r.HitCount)
	if r.CacheExpiresAt != nil {
		fmt.Fprintf(out, "Expires:       %s\n", r.CacheExpiresAt.Format(time.RFC3339))
	}
	if r.InterpretiveSummary != "" {
		fmt.Fprintf(out, "\n%s\n", r.InterpretiveSummary)
	}
	if len(r.Provenance.SourceURLs) > 0 {
		fmt.Fprintf(out, "\nSources:\n")
		for _, u := range r.Provenance.SourceURLs {
			fmt.Fprintf(out, "  - %s\n", u)
		}
	}
	return nil
}

func formatScore(v *float64) string {
	if v == nil {
		return "unscored"
	}
	return fmt.Sprintf("%.1f", *v)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
