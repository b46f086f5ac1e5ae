// Package backup snapshots the store, verifies the copy, encrypts it and
// prunes old artifacts.
package backup

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/infrastructure/metrics"
)

const (
	artifactPrefix   = "backup-"
	artifactSuffix   = ".db.enc"
	artifactLayout   = "20060102-150405"
	snapshotName     = ".memoria-snapshot.db"
	defaultRetention = 24
)

// Snapshotter writes a consistent copy of the live store to target
type Snapshotter func(ctx context.Context, target string) error

// Service runs backup cycles
type Service struct {
	snapshot  Snapshotter
	dir       string
	key       []byte
	retention int
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	random    io.Reader
}

// NewService creates a backup service writing artifacts to dir
func NewService(db *database.DB, dir string, cfg config.BackupConfig, appLogger *logger.Logger, m *metrics.Metrics) (*Service, error) {
	key, err := DeriveKey(cfg.Passphrase, cfg.Salt)
	if err != nil {
		return nil, err
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	return &Service{
		snapshot:  db.SnapshotTo,
		dir:       dir,
		key:       key,
		retention: retention,
		logger:    appLogger.WithComponent("backup"),
		metrics:   m,
		now:       time.Now,
		random:    rand.Reader,
	}, nil
}

// ArtifactName returns the file name of a backup taken at t
func ArtifactName(t time.Time) string {
	return artifactPrefix + t.UTC().Format(artifactLayout) + artifactSuffix
}

func isArtifact(name string) bool {
	if !strings.HasPrefix(name, artifactPrefix) || !strings.HasSuffix(name, artifactSuffix) {
		return false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, artifactPrefix), artifactSuffix)
	_, err := time.Parse(artifactLayout, stamp)
	return err == nil
}

// RunOnce performs one full cycle and returns the artifact path. A failing
// stage aborts the cycle and leaves existing artifacts untouched.
func (s *Service) RunOnce(ctx context.Context) (string, error) {
	start := time.Now()

	artifact, err := s.run(ctx)
	details := map[string]interface{}{"artifact": artifact}
	s.logger.LogPipelineRun("backup", float64(time.Since(start).Milliseconds()), details, err)

	return artifact, err
}

func (s *Service) run(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.metrics.BackupRun("setup")
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	plain := filepath.Join(s.dir, snapshotName)

	if err := s.snapshot(ctx, plain); err != nil {
		os.Remove(plain)
		s.metrics.BackupRun("snapshot")
		return "", fmt.Errorf("snapshot: %w", err)
	}

	if err := s.verify(ctx, plain); err != nil {
		os.Remove(plain)
		s.metrics.BackupRun("verify")
		return "", err
	}

	artifact := filepath.Join(s.dir, ArtifactName(s.now()))
	encryptErr := s.encryptFile(plain, artifact)

	// the plaintext copy goes away whether or not encryption worked
	if err := os.Remove(plain); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnw("Plaintext snapshot not removed", "path", plain, "error", err)
	}

	if encryptErr != nil {
		s.metrics.BackupRun("encrypt")
		return "", encryptErr
	}

	removed, err := Prune(s.dir, s.retention)
	if err != nil {
		// the new artifact is complete; a failed prune is retried next cycle
		s.logger.Warnw("Backup retention prune failed", "error", err)
	}
	if len(removed) > 0 {
		s.logger.Infow("Old backups pruned", "removed", len(removed))
	}

	s.metrics.BackupRun("success")

	return artifact, nil
}

func (s *Service) verify(ctx context.Context, plain string) error {
	count, err := database.CountSchemaObjects(ctx, plain)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrSnapshotInvalid, err)
	}
	if count == 0 {
		return entities.ErrSnapshotInvalid
	}
	return nil
}

// encryptFile writes through a temporary name so a crash never leaves a
// half-written artifact matching the backup pattern
func (s *Service) encryptFile(plain, artifact string) error {
	in, err := os.Open(plain)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer in.Close()

	tmp := artifact + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}

	if err := Encrypt(out, in, s.key, s.random); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close artifact: %w", err)
	}

	if err := os.Rename(tmp, artifact); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize artifact: %w", err)
	}
	return nil
}

// DecryptFile restores an artifact to a plain SQLite file
func (s *Service) DecryptFile(in, out string) error {
	src, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(out, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if err := Decrypt(dst, src, s.key); err != nil {
		dst.Close()
		os.Remove(out)
		return err
	}
	return dst.Close()
}

// Prune deletes the artifacts in dir beyond the newest retention by
// modification time and returns the removed paths
func Prune(dir string, retention int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	type artifact struct {
		path    string
		modTime time.Time
	}
	var artifacts []artifact
	for _, entry := range entries {
		if entry.IsDir() || !isArtifact(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, artifact{path: filepath.Join(dir, entry.Name()), modTime: info.ModTime()})
	}

	if len(artifacts) <= retention {
		return nil, nil
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].modTime.After(artifacts[j].modTime)
	})

	var removed []string
	var errs []error
	for _, a := range artifacts[retention:] {
		if err := os.Remove(a.path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, a.path)
	}

	return removed, errors.Join(errs...)
}
