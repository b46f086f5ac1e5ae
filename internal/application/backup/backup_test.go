package backup

import (
	"bytes"
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/infrastructure/metrics"
	"github.com/memoria/core/internal/testutil"
)

var testConfig = config.BackupConfig{Passphrase: "correct horse", Salt: "battery staple", Retention: 3}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "backups")
	svc, err := NewService(testutil.NewDB(t), dir, testConfig, logger.NewNop(), metrics.New())
	require.NoError(t, err)
	return svc, dir
}

func artifacts(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunOnceProducesRestorableArtifact(t *testing.T) {
	svc, dir := newTestService(t)
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	artifact, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "backup-20240506-070809.db.enc"), artifact)

	// only the encrypted artifact remains
	assert.Equal(t, []string{"backup-20240506-070809.db.enc"}, artifacts(t, dir))

	raw, err := os.ReadFile(artifact)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "SQLite format 3")

	restored := filepath.Join(t.TempDir(), "restored.db")
	require.NoError(t, svc.DecryptFile(artifact, restored))

	count, err := database.CountSchemaObjects(context.Background(), restored)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestCorruptSnapshotLeavesArtifactsUntouched(t *testing.T) {
	svc, dir := newTestService(t)
	require.NoError(t, os.MkdirAll(dir, 0o700))

	existing := filepath.Join(dir, "backup-20240101-000000.db.enc")
	require.NoError(t, os.WriteFile(existing, []byte("previous"), 0o600))

	for name, write := range map[string]func(string) error{
		"empty":   func(p string) error { return os.WriteFile(p, nil, 0o600) },
		"garbage": func(p string) error { return os.WriteFile(p, []byte("definitely not sqlite"), 0o600) },
	} {
		t.Run(name, func(t *testing.T) {
			svc.snapshot = func(_ context.Context, target string) error { return write(target) }

			_, err := svc.RunOnce(context.Background())
			assert.ErrorIs(t, err, entities.ErrSnapshotInvalid)
			assert.Equal(t, []string{"backup-20240101-000000.db.enc"}, artifacts(t, dir))
		})
	}

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestPruneKeepsNewestByModTime(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// names deliberately out of order with modification times
	names := []string{
		"backup-20240105-000000.db.enc",
		"backup-20240101-000000.db.enc",
		"backup-20240104-000000.db.enc",
		"backup-20240102-000000.db.enc",
		"backup-20240103-000000.db.enc",
	}
	for i, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		mtime := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o600))

	removed, err := Prune(dir, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "backup-20240105-000000.db.enc"),
		filepath.Join(dir, "backup-20240101-000000.db.enc"),
	}, removed)
	assert.ElementsMatch(t, []string{
		"backup-20240104-000000.db.enc",
		"backup-20240102-000000.db.enc",
		"backup-20240103-000000.db.enc",
		"notes.txt",
	}, artifacts(t, dir))

	removed, err = Prune(dir, 3)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestRunOnceAppliesRetention(t *testing.T) {
	svc, dir := newTestService(t)
	clock := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	for i := 0; i < 5; i++ {
		path, err := svc.RunOnce(context.Background())
		require.NoError(t, err)
		mtime := clock
		require.NoError(t, os.Chtimes(path, mtime, mtime))
		clock = clock.Add(time.Hour)
	}

	assert.ElementsMatch(t, []string{
		"backup-20240506-020000.db.enc",
		"backup-20240506-030000.db.enc",
		"backup-20240506-040000.db.enc",
	}, artifacts(t, dir))
}

func TestEncryptRoundTrip(t *testing.T) {
	key, err := DeriveKey("pass", "salt")
	require.NoError(t, err)
	assert.Len(t, key, 32)

	plain := bytes.Repeat([]byte("memoria "), 1000)

	var first, second bytes.Buffer
	require.NoError(t, Encrypt(&first, bytes.NewReader(plain), key, rand.Reader))
	require.NoError(t, Encrypt(&second, bytes.NewReader(plain), key, rand.Reader))
	assert.Len(t, first.Bytes(), len(plain)+16)
	assert.NotEqual(t, first.Bytes(), second.Bytes())

	var out bytes.Buffer
	require.NoError(t, Decrypt(&out, bytes.NewReader(first.Bytes()), key))
	assert.Equal(t, plain, out.Bytes())

	assert.ErrorIs(t, Decrypt(&out, bytes.NewReader([]byte("short")), key), ErrShortArtifact)

	_, err = DeriveKey("", "salt")
	assert.Error(t, err)
}

func TestSchedulerRunsAfterInitialDelay(t *testing.T) {
	svc, dir := newTestService(t)
	runs := make(chan struct{}, 4)
	svc.snapshot = func(ctx context.Context, target string) error {
		runs <- struct{}{}
		return os.WriteFile(target, nil, 0o600)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewScheduler(svc, 10*time.Millisecond, time.Hour, logger.NewNop()).Run(ctx)
	}()

	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("backup did not run after the initial delay")
	}
	cancel()
	assert.NoError(t, <-done)

	// the failed verification left nothing behind
	assert.Empty(t, artifacts(t, dir))
}
