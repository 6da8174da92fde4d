package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/jurisdoc/internal/extract"
	"github.com/ppiankov/jurisdoc/internal/model"
	"github.com/ppiankov/jurisdoc/internal/util"
	"github.com/ppiankov/jurisdoc/internal/worker"
)

// WebSource fetches code pages from URL templates.
//
// Templates may use {state}, {state_lower}, {locality}, {locality_slug},
// {locality_underscore} and {topic}. Templates naming a locality placeholder
// are skipped for state-level keys.
type WebSource struct {
	fetcher   *Fetcher
	robots    *util.RobotsChecker
	limiter   *worker.Limiter
	templates []string
	logger    *slog.Logger
}

// NewWebSource creates a web source from cfg
func NewWebSource(cfg model.SourceConfig, logger *slog.Logger) *WebSource {
	fetcher := NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBodyBytes, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	s := &WebSource{
		fetcher:   fetcher,
		limiter:   worker.NewLimiter(cfg.RequestsPerSecond, 1),
		templates: cfg.URLTemplates,
		logger:    util.OrDiscard(logger),
	}
	if cfg.RespectRobots {
		s.robots = util.NewRobotsChecker(cfg.UserAgent, fetcher.Client())
	}
	return s
}

// Fetch implements ContentSource
func (s *WebSource) Fetch(ctx context.Context, key model.JurisdictionKey, topic string) (*RawContent, error) {
	var (
		texts   []string
		urls    []string
		lastErr error
	)

	for _, rawURL := range ExpandTemplates(s.templates, key, topic) {
		text, finalURL, err := s.fetchOne(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
				s.logger.Debug("source page not found", "url", rawURL)
				continue
			}
			s.logger.Warn("source fetch failed", "url", rawURL, "error", err)
			lastErr = err
			continue
		}
		if text == "" {
			continue
		}
		texts = append(texts, text)
		urls = append(urls, finalURL)
	}

	if len(texts) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", key, lastErr)
		}
		return nil, notFound(key)
	}

	return &RawContent{
		Text:        strings.Join(texts, "\n\n"),
		URLs:        urls,
		SearchTerms: searchTerms(key, topic),
	}, nil
}

func (s *WebSource) fetchOne(ctx context.Context, rawURL string) (string, string, error) {
	host, err := worker.HostKey(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse URL: %w", err)
	}

	crawlDelay := s.crawlDelay(ctx, rawURL)
	if crawlDelay < 0 {
		s.logger.Info("robots.txt disallows URL, skipping", "url", rawURL)
		return "", "", nil
	}

	if err := s.limiter.WaitWithDelay(ctx, host, crawlDelay); err != nil {
		return "", "", err
	}

	result, err := s.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return "", "", err
	}

	text := strings.TrimSpace(result.Body)
	if strings.Contains(strings.ToLower(result.ContentType), "html") || looksLikeHTML(text) {
		text, err = extract.VisibleText(result.Body)
		if err != nil {
			return "", "", fmt.Errorf("parse HTML: %w", err)
		}
	}
	return strings.TrimSpace(text), result.FinalURL, nil
}

// crawlDelay returns the robots.txt crawl delay, or -1 when the URL is disallowed
func (s *WebSource) crawlDelay(ctx context.Context, rawURL string) time.Duration {
	if s.robots == nil {
		return 0
	}
	allowed, delay, err := s.robots.CanFetch(ctx, rawURL)
	if err != nil || !allowed {
		return -1
	}
	return delay
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(s)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// ExpandTemplates fills URL templates for key and topic
func ExpandTemplates(templates []string, key model.JurisdictionKey, topic string) []string {
	locality := strings.TrimSpace(key.Locality)
	slug := strings.ToLower(strings.Join(strings.Fields(locality), "-"))

	replacer := strings.NewReplacer(
		"{state}", key.State,
		"{state_lower}", strings.ToLower(key.State),
		"{locality}", url.PathEscape(locality),
		"{locality_slug}", slug,
		"{locality_underscore}", strings.ReplaceAll(slug, "-", "_"),
		"{topic}", url.QueryEscape(strings.TrimSpace(topic)),
	)

	seen := make(map[string]bool)
	var out []string
	for _, tmpl := range templates {
		if key.IsStateLevel() && strings.Contains(tmpl, "{locality") {
			continue
		}
		u := replacer.Replace(tmpl)
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
