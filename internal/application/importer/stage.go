package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// sideFileSuffixes are SQLite's write-ahead log and shared-memory companions
var sideFileSuffixes = []string{"-wal", "-shm"}

// Stager copies live browser files into private temporary directories
type Stager struct {
	Attempts  int
	BaseDelay time.Duration
	TempRoot  string
	copyFile  func(src, dst string) error
}

// NewStager creates a stager retrying attempts times with exponential backoff
func NewStager(attempts int, baseDelay time.Duration) *Stager {
	if attempts <= 0 {
		attempts = 1
	}
	return &Stager{Attempts: attempts, BaseDelay: baseDelay, copyFile: copyFile}
}

// Stage copies src into a fresh temporary directory and returns the directory
// and the staged path. When withSideFiles is set the -wal and -shm files are
// copied too, best effort. The caller owns the directory and must remove it.
func (s *Stager) Stage(ctx context.Context, src string, withSideFiles bool) (string, string, error) {
	dir, err := os.MkdirTemp(s.TempRoot, "memoria-import-*")
	if err != nil {
		return "", "", fmt.Errorf("create staging dir: %w", err)
	}

	target := filepath.Join(dir, filepath.Base(src))
	if err := s.copyWithRetry(ctx, src, target); err != nil {
		os.RemoveAll(dir)
		return "", "", err
	}

	if withSideFiles {
		for _, suffix := range sideFileSuffixes {
			if !fileExists(src + suffix) {
				continue
			}
			// a missing side file only loses the newest uncheckpointed rows
			_ = s.copyFile(src+suffix, target+suffix)
		}
	}

	return dir, target, nil
}

func (s *Stager) copyWithRetry(ctx context.Context, src, dst string) error {
	delay := s.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= s.Attempts; attempt++ {
		if lastErr = s.copyFile(src, dst); lastErr == nil {
			return nil
		}
		if attempt == s.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("stage %s after %d attempts: %w", filepath.Base(src), s.Attempts, lastErr)
}

// copyFile streams src to dst. The standard library is enough here: it is a
// plain byte copy that must honor OS-level sharing locks.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
