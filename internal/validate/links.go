package validate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/jurisdoc/internal/util"
)

const linkMaxRetries = 3

// linkSleepFunc is the sleep function used between retries (injectable for tests)
var linkSleepFunc = time.Sleep

// LinkStatus is the reachability of one provenance URL
type LinkStatus struct {
	URL          string     `json:"url"`
	StatusCode   int        `json:"status_code,omitempty"`
	IsAccessible bool       `json:"is_accessible"`
	IsDead       bool       `json:"is_dead"`
	RedirectURL  string     `json:"redirect_url,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// LinkChecker checks source URLs concurrently with HEAD requests
type LinkChecker struct {
	httpClient *http.Client
	maxWorkers int
	userAgent  string
}

// NewLinkChecker creates a new link checker
func NewLinkChecker(timeout time.Duration, maxWorkers int, userAgent, httpProxy, httpsProxy, noProxy string) *LinkChecker {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	if userAgent == "" {
		userAgent = "jurisdoc/0.1"
	}

	return &LinkChecker{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxWorkers: maxWorkers,
		userAgent:  userAgent,
	}
}

// Check checks every URL and returns results in input order
func (c *LinkChecker) Check(ctx context.Context, urls []string) []LinkStatus {
	results := make([]LinkStatus, len(urls))
	if len(urls) == 0 {
		return results
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.maxWorkers)

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, link string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = LinkStatus{URL: link, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = c.checkWithRetry(ctx, link)
		}(i, u)
	}

	wg.Wait()
	return results
}

// checkOne issues a single HEAD request
func (c *LinkChecker) checkOne(ctx context.Context, link string) LinkStatus {
	result := LinkStatus{URL: link}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		result.Error = fmt.Sprintf("create request: %v", err)
		result.IsDead = true
		return result
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.IsDead = true
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.IsAccessible = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.IsDead = true
	}

	if final := resp.Request.URL.String(); final != link {
		result.RedirectURL = final
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := time.Parse(time.RFC1123, lm); err == nil {
			result.LastModified = &t
		}
	}

	return result
}

// checkWithRetry retries transient failures with exponential backoff
func (c *LinkChecker) checkWithRetry(ctx context.Context, link string) LinkStatus {
	var result LinkStatus
	for attempt := 0; attempt < linkMaxRetries; attempt++ {
		result = c.checkOne(ctx, link)
		if !isRetryable(result) {
			return result
		}
		if attempt < linkMaxRetries-1 {
			linkSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return result
}

func isRetryable(result LinkStatus) bool {
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	if result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if result.Error != "" {
		s := strings.ToLower(result.Error)
		return strings.Contains(s, "timeout") ||
			strings.Contains(s, "connection refused") ||
			strings.Contains(s, "connection reset")
	}
	return false
}

// AnyDead reports whether any checked link is gone
func AnyDead(results []LinkStatus) bool {
	for _, r := range results {
		if r.IsDead {
			return true
		}
	}
	return false
}
