package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// ErrNotFound is returned when no raw content exists for a jurisdiction
var ErrNotFound = errors.New("raw content not found")

// RawContent is the unstructured text gathered for one jurisdiction
type RawContent struct {
	Text        string
	URLs        []string
	SearchTerms []string
}

// ContentSource retrieves raw regulatory text
type ContentSource interface {
	Fetch(ctx context.Context, key model.JurisdictionKey, topic string) (*RawContent, error)
}

// New builds the content source named by cfg.Kind
func New(cfg model.SourceConfig, logger *slog.Logger) (ContentSource, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "web":
		if len(cfg.URLTemplates) == 0 {
			return nil, fmt.Errorf("web source requires at least one url template")
		}
		return NewWebSource(cfg, logger), nil
	case "file":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file source requires a directory")
		}
		return NewFileSource(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s (supported: web, file)", cfg.Kind)
	}
}

func notFound(key model.JurisdictionKey) error {
	return fmt.Errorf("%s: %w", key, ErrNotFound)
}

// searchTerms records what the acquisition looked for
func searchTerms(key model.JurisdictionKey, topic string) []string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return []string{key.Display()}
	}
	return []string{topic + " " + key.Display()}
}
