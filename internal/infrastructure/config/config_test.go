package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir keeps a developer's .env out of Load
func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)
	t.Setenv("DATA_DIR", "/var/lib/memoria")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:3001", cfg.Server.Address())
	assert.Equal(t, filepath.Join("/var/lib/memoria", "memoria.db"), cfg.Database.Path)
	assert.Equal(t, filepath.Join("/var/lib/memoria", "images"), cfg.Storage.ImagesDir)
	assert.Equal(t, filepath.Join("/var/lib/memoria", "backups"), cfg.Storage.BackupsDir)
	assert.Equal(t, filepath.Join("/var/lib/memoria", "settings.env"), cfg.Settings.File)
	assert.Equal(t, 24, cfg.Backup.Retention)
	assert.Equal(t, 10*time.Second, cfg.Backup.InitialDelay)
	assert.Equal(t, time.Hour, cfg.Backup.Interval)
	assert.Equal(t, 30*time.Minute, cfg.Import.Interval())
	assert.Equal(t, 15*time.Minute, cfg.Calendar.CacheTTL)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
}

func TestLoadFromEnvironment(t *testing.T) {
	inTempDir(t)
	t.Setenv("PORT", "8088")
	t.Setenv("DB_PATH", "/tmp/custom.db")
	t.Setenv("CALENDAR_URLS", "https://a/cal.ics, ,https://b/cal.ics")
	t.Setenv("CHROME_PROFILES", "Default,Profile 2")
	t.Setenv("BACKUP_RETENTION", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	assert.Equal(t, []string{"https://a/cal.ics", "https://b/cal.ics"}, cfg.Calendar.FeedList())
	assert.Equal(t, []string{"Default", "Profile 2"}, cfg.Browsers.Chrome.ProfileList())
	assert.Equal(t, 5, cfg.Backup.Retention)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	inTempDir(t)
	t.Setenv("BACKUP_RETENTION", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "retention")
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Equal(t, []string{"a", "b"}, SplitList(" a ,, b "))
}
