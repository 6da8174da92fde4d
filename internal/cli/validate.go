package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jurisdoc/internal/validate"
)

// ErrInvalidDocument is returned when a checked document fails validation
var ErrInvalidDocument = errors.New("document failed validation")

var (
	validateMinWords   int
	validateSourceURLs []string
	validateJSON       bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <document.md>",
	Short: "Check a Markdown document against the length, outline and placeholder rules",
	Long: `Validate runs the same structural checks applied to generated documents:
minimum word count, the required section outline and placeholder artifacts.
Missing legal citations and unreferenced source URLs are reported as warnings.

Example:
  jurisdoc validate guide.md
  jurisdoc validate guide.md --min-words 800 --source-url https://library.municode.com/ca/san_diego`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().IntVar(&validateMinWords, "min-words", 0, "minimum word count (default from config)")
	validateCmd.Flags().StringSliceVar(&validateSourceURLs, "source-url", nil, "source URL expected in the text (repeatable)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the result as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	minWords := validateMinWords
	if minWords <= 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		minWords = cfg.Generation.MinWords
	}

	result := validate.NewValidator(minWords, nil).Validate(string(data), validateSourceURLs)

	out := cmd.OutOrStdout()
	if validateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Words:     %d (minimum %d)\n", result.WordCount, result.MinWords)
		fmt.Fprintf(out, "Sections:  %v\n", result.HasAllSections)
		for _, e := range result.Errors {
			fmt.Fprintf(out, "✗ %s\n", e)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "⚠️  %s\n", w)
		}
		if result.IsValid {
			fmt.Fprintf(out, "✓ Valid\n")
		}
	}

	if !result.IsValid {
		return ErrInvalidDocument
	}
	return nil
}
