//go:build property
// +build property

package generate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ppiankov/jurisdoc/internal/llm"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/store"
	"github.com/ppiankov/jurisdoc/internal/validate"
)

func propertyOrchestrator(s *store.MemoryStore, p llm.Provider) *Orchestrator {
	o := New(s, s, p, validate.NewValidator(testMinWords, nil), nil, Config{}, nil)
	o.now = func() time.Time { return baseTime }
	o.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return o
}

// Property: details are ordered by descending confidence and every eligible candidate appears once.
func TestRunOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("details sorted by descending confidence", prop.ForAll(
		func(confidences []int) bool {
			s := store.NewMemoryStore()
			eligible := 0
			for i, c := range confidences {
				r := newRecord("CA", fmt.Sprintf("City %d", i), float64(c), baseTime.Add(time.Duration(i)*time.Second))
				if err := s.UpsertRecord(context.Background(), r); err != nil {
					return false
				}
				if c >= 60 {
					eligible++
				}
			}

			report, err := propertyOrchestrator(s, &fakeProvider{}).Run(context.Background(), Params{})
			if err != nil || report.Total != eligible || report.Success != eligible {
				return false
			}
			for i := 1; i < len(report.Details); i++ {
				if *report.Details[i-1].ConfidenceScore < *report.Details[i].ConfidenceScore {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}

// Property: each failing generation adds exactly one failed entry and the batch runs to completion.
func TestRunResilience(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("failures are counted, never fatal", prop.ForAll(
		func(failures []bool) bool {
			s := store.NewMemoryStore()
			failing := make(map[string]bool)
			wantFailed := 0
			for i, f := range failures {
				locality := fmt.Sprintf("Town %d", i)
				r := newRecord("OR", locality, 90, baseTime.Add(time.Duration(i)*time.Second))
				if err := s.UpsertRecord(context.Background(), r); err != nil {
					return false
				}
				if f {
					failing[locality+", OR"] = true
					wantFailed++
				}
			}

			provider := &fakeProvider{}
			provider.respond = func(prompt string) (*llm.GenerateResponse, error) {
				for display := range failing {
					if containsLine(prompt, display) {
						return nil, errors.New("generation failed")
					}
				}
				return &llm.GenerateResponse{Text: validDocument()}, nil
			}

			report, err := propertyOrchestrator(s, provider).Run(context.Background(), Params{})
			if err != nil {
				return false
			}
			return report.Total == len(failures) &&
				report.Failed == wantFailed &&
				report.Success == len(failures)-wantFailed
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

// containsLine matches the jurisdiction in the prompt's first line exactly
func containsLine(prompt, display string) bool {
	first := prompt
	for i, r := range prompt {
		if r == '\n' {
			first = prompt[:i]
			break
		}
	}
	return first == "Write a compliance guide for short-term rentals in "+display+"."
}
