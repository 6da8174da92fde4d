package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/extract"
	"github.com/ppiankov/jurisdoc/internal/model"
)

// stateFileName holds state-level text inside a state directory
const stateFileName = "_state"

// fileExtensions are tried in order for each candidate name
var fileExtensions = []string{".txt", ".md", ".html"}

// FileSource reads pre-collected code text from a directory tree:
//
//	<dir>/<STATE>/<locality>.txt   (also .md, .html; locality may be slugged)
//	<dir>/<STATE>/_state.txt       (state-level text)
//
// Lines of the form "Source: <url>" are collected as source URLs.
type FileSource struct {
	dir string
}

// NewFileSource creates a source rooted at dir
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Fetch implements ContentSource
func (s *FileSource) Fetch(ctx context.Context, key model.JurisdictionKey, topic string) (*RawContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.locate(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text := string(data)
	if strings.HasSuffix(path, ".html") {
		if text, err = extract.VisibleText(text); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	text, urls := splitSourceLines(text)
	if text == "" {
		return nil, notFound(key)
	}

	return &RawContent{
		Text:        text,
		URLs:        urls,
		SearchTerms: searchTerms(key, topic),
	}, nil
}

func (s *FileSource) locate(key model.JurisdictionKey) (string, error) {
	stateDir := filepath.Join(s.dir, key.State)

	var names []string
	if key.IsStateLevel() {
		names = []string{stateFileName}
	} else {
		slug := strings.ToLower(strings.Join(strings.Fields(key.Locality), "-"))
		names = []string{key.Locality, slug, strings.ReplaceAll(slug, "-", "_")}
	}

	for _, name := range names {
		for _, ext := range fileExtensions {
			path := filepath.Join(stateDir, name+ext)
			info, err := os.Stat(path)
			if err == nil && !info.IsDir() {
				return path, nil
			}
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("stat %s: %w", path, err)
			}
		}
	}
	return "", notFound(key)
}

// splitSourceLines separates "Source: <url>" lines from the body text
func splitSourceLines(text string) (string, []string) {
	var body []string
	var urls []string

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "Source:"); ok {
			if u := strings.TrimSpace(rest); strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
				urls = append(urls, u)
				continue
			}
		}
		body = append(body, line)
	}

	return strings.TrimSpace(strings.Join(body, "\n")), urls
}
