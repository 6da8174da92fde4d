// Package artifact writes batch report artifacts to a local directory or S3.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ppiankov/jurisdoc/internal/model"
)

// Sink stores named artifacts. Writing an existing name replaces it.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error

	// Location describes where name is stored, for operator output
	Location(name string) string
}

// New returns the sink selected by cfg: S3 when a bucket is configured, the local directory otherwise
func New(ctx context.Context, cfg model.ReportConfig) (Sink, error) {
	if cfg.S3Bucket != "" {
		return NewS3Sink(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    cfg.S3Prefix,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
		})
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("report directory is required when no S3 bucket is set")
	}
	return NewFileSink(cfg.Dir), nil
}

// FileSink writes artifacts into a directory
type FileSink struct {
	dir string
}

// NewFileSink creates a sink rooted at dir. The directory is created on first write.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Write replaces the artifact atomically so a reader never sees a partial report
func (s *FileSink) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// Location implements Sink
func (s *FileSink) Location(name string) string {
	return filepath.Join(s.dir, name)
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}

func joinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
