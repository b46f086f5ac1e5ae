package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/adapters/repository"
	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/infrastructure/metrics"
	"github.com/memoria/core/internal/testutil"
)

func TestChromiumMillis(t *testing.T) {
	ms := ChromiumMillis("13350000000000000", time.Now())
	assert.Equal(t, int64(1705526400000), ms)
	assert.Equal(t, time.Date(2024, 1, 17, 21, 20, 0, 0, time.UTC), time.UnixMilli(ms).UTC())
}

func TestTimestampFallbacks(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, now.UnixMilli(), ChromiumMillis("", now))
	assert.Equal(t, now.UnixMilli(), ChromiumMillis("yesterday", now))
	assert.Equal(t, now.UnixMilli(), FirefoxMillis("0", now))
	assert.Equal(t, int64(1705526400000), FirefoxMillis("1705526400000000", now))
}

func TestRecordIDIsDeterministic(t *testing.T) {
	a := RecordID("chrome_default", "13350000000000000", "https://go.dev")
	b := RecordID("chrome_default", "13350000000000000", "https://go.dev")
	c := RecordID("chrome_default", "13350000000000000", "https://go.dev/doc")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len("chrome_default_")+idHashLength)
	assert.Regexp(t, `^[a-z0-9_]+$`, a)
}

func TestSourceTag(t *testing.T) {
	src := Source{Browser: "chrome", Profile: "Profile 1"}
	assert.Equal(t, "chrome_profile_1", src.Tag())
	assert.Equal(t, "chrome:Profile 1", src.Label())
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestDiscover(t *testing.T) {
	chromeRoot := t.TempDir()
	touch(t, filepath.Join(chromeRoot, "Default", "History"))
	require.NoError(t, os.MkdirAll(filepath.Join(chromeRoot, "Profile 1"), 0o755))
	touch(t, filepath.Join(chromeRoot, "Profile 2", "History"))
	require.NoError(t, os.MkdirAll(filepath.Join(chromeRoot, "System Profile"), 0o755))

	firefoxRoot := t.TempDir()
	touch(t, filepath.Join(firefoxRoot, "abcd.default-release", "places.sqlite"))
	require.NoError(t, os.MkdirAll(filepath.Join(firefoxRoot, "Crash Reports"), 0o755))

	sources := Discover(config.BrowsersConfig{
		Chrome:  config.BrowserProfile{UserDataDir: chromeRoot},
		Firefox: config.BrowserProfile{UserDataDir: firefoxRoot},
		Edge:    config.BrowserProfile{UserDataDir: filepath.Join(chromeRoot, "missing")},
	}, Environment{GOOS: "plan9", Home: t.TempDir()})

	var labels []string
	for _, s := range sources {
		labels = append(labels, s.Label())
	}
	assert.Equal(t, []string{"chrome:Default", "chrome:Profile 2", "firefox:abcd.default-release"}, labels)

	only := Discover(config.BrowsersConfig{
		Chrome: config.BrowserProfile{UserDataDir: chromeRoot, Profiles: "Profile 2, Profile 9"},
	}, Environment{GOOS: "plan9"})
	require.Len(t, only, 1)
	assert.Equal(t, "Profile 2", only[0].Profile)
}

func TestStageRetriesWithBackoff(t *testing.T) {
	src := filepath.Join(t.TempDir(), "History")
	touch(t, src)

	stager := NewStager(4, time.Millisecond)
	stager.TempRoot = t.TempDir()
	failures := 2
	calls := 0
	stager.copyFile = func(s, d string) error {
		calls++
		if calls <= failures {
			return errors.New("file is locked")
		}
		return copyFile(s, d)
	}

	dir, staged, err := stager.Stage(context.Background(), src, true)
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	assert.Equal(t, 3, calls)
	assert.FileExists(t, staged)
}

func TestStageGivesUpAndCleansUp(t *testing.T) {
	stager := NewStager(3, time.Millisecond)
	stager.TempRoot = t.TempDir()
	stager.copyFile = func(string, string) error { return errors.New("file is locked") }

	_, _, err := stager.Stage(context.Background(), "/nowhere/History", false)
	require.Error(t, err)

	leftovers, err := os.ReadDir(stager.TempRoot)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func createChromiumProfile(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	db, err := sqlx.Open(database.DriverName, filepath.Join(dir, "History"))
	require.NoError(t, err)
	defer db.Close()

	db.MustExec(`CREATE TABLE urls (id INTEGER PRIMARY KEY, url LONGVARCHAR, title LONGVARCHAR, visit_count INTEGER, last_visit_time INTEGER NOT NULL)`)
	db.MustExec(`INSERT INTO urls (url, title, last_visit_time) VALUES
		('https://go.dev', 'The Go Programming Language', 13350000000000000),
		('https://pkg.go.dev', 'Go Packages', 13350000001000000),
		('https://untitled.example', NULL, 13350000002000000)`)

	bookmarks := `{"version":1,"roots":{
		"bookmark_bar":{"type":"folder","name":"Bar","children":[
			{"type":"url","name":"SQLite","url":"https://sqlite.org","date_added":"13350000003000000"},
			{"type":"folder","name":"Nested","children":[
				{"type":"url","name":"Echo","url":"https://echo.labstack.com","date_added":"13350000004000000"}]}]},
		"other":{"type":"folder","name":"Other","children":[]}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Bookmarks"), []byte(bookmarks), 0o644))
}

func createFirefoxProfile(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	db, err := sqlx.Open(database.DriverName, filepath.Join(dir, "places.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	db.MustExec(`CREATE TABLE moz_places (id INTEGER PRIMARY KEY, url LONGVARCHAR, title LONGVARCHAR, last_visit_date INTEGER)`)
	db.MustExec(`CREATE TABLE moz_bookmarks (id INTEGER PRIMARY KEY, type INTEGER, fk INTEGER, title LONGVARCHAR, dateAdded INTEGER)`)
	db.MustExec(`INSERT INTO moz_places (id, url, title, last_visit_date) VALUES
		(1, 'https://mozilla.org', 'Mozilla', 1705526400000000),
		(2, 'https://never.example', 'Never visited', NULL)`)
	db.MustExec(`INSERT INTO moz_bookmarks (type, fk, title, dateAdded) VALUES
		(1, 2, 'Saved for later', 1705526500000000),
		(2, NULL, 'Folder', 1705526500000000)`)
}

func newTestPipeline(t *testing.T, sources []Source) (*Pipeline, *metrics.Metrics, *database.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	m := metrics.New()

	p := NewPipeline(repository.NewImportedRecordRepository(db, logger.NewNop()),
		config.ImportConfig{Limit: 100, StageAttempts: 2}, config.BrowsersConfig{}, logger.NewNop(), m)
	p.discover = func() []Source { return sources }
	p.stager.BaseDelay = time.Millisecond
	p.stager.TempRoot = t.TempDir()

	return p, m, db
}

func TestPipelineIsIdempotent(t *testing.T) {
	root := t.TempDir()
	chrome := Source{Browser: "chrome", Family: FamilyChromium, Profile: "Default", Dir: filepath.Join(root, "chrome", "Default")}
	firefox := Source{Browser: "firefox", Family: FamilyFirefox, Profile: "main", Dir: filepath.Join(root, "firefox", "main")}
	createChromiumProfile(t, chrome.Dir)
	createFirefoxProfile(t, firefox.Dir)

	p, _, db := newTestPipeline(t, []Source{chrome, firefox})
	ctx := context.Background()

	first, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, first.Added)

	second, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Read, second.Read)
	assert.Zero(t, second.Added)

	repo := repository.NewImportedRecordRepository(db, logger.NewNop())
	history, err := repo.Count(ctx, entities.ImportKindHistory)
	require.NoError(t, err)
	assert.Equal(t, 4, history)
	bookmarks, err := repo.Count(ctx, entities.ImportKindBookmark)
	require.NoError(t, err)
	assert.Equal(t, 3, bookmarks)

	found, err := repo.Search(ctx, entities.ImportKindHistory, "go.dev", 10)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int64(1705526401000), found[0].Timestamp)
	assert.Equal(t, "chrome:Default", found[0].Source)

	untitled, err := repo.Search(ctx, entities.ImportKindHistory, "untitled", 10)
	require.NoError(t, err)
	require.Len(t, untitled, 1)
	assert.Equal(t, "https://untitled.example", untitled[0].Title)

	// staged copies never outlive a run
	leftovers, err := os.ReadDir(p.stager.TempRoot)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestPipelineSkipsBrokenSources(t *testing.T) {
	root := t.TempDir()
	missing := Source{Browser: "edge", Family: FamilyChromium, Profile: "Default", Dir: filepath.Join(root, "gone")}
	garbage := Source{Browser: "brave", Family: FamilyChromium, Profile: "Default", Dir: filepath.Join(root, "brave")}
	touch(t, garbage.HistoryFile())
	good := Source{Browser: "chrome", Family: FamilyChromium, Profile: "Default", Dir: filepath.Join(root, "chrome")}
	createChromiumProfile(t, good.Dir)

	p, m, _ := newTestPipeline(t, []Source{missing, garbage, good})

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Sources, 3)
	assert.NotEmpty(t, summary.Sources[0].Error)
	assert.Zero(t, summary.Sources[1].Added)
	assert.Equal(t, 5, summary.Sources[2].Added)

	assert.Equal(t, 3.0, counterValue(t, m, "chrome_default", "history"))
	assert.Equal(t, 2.0, counterValue(t, m, "chrome_default", "bookmark"))
	assert.Equal(t, "partial", summary.Result())
	assert.Equal(t, 1.0, promtest.ToFloat64(m.ImportRuns.WithLabelValues("partial")))
	assert.Zero(t, promtest.ToFloat64(m.ImportRuns.WithLabelValues("success")))
}

func TestPipelineReportsFailureWhenEverySourceFails(t *testing.T) {
	root := t.TempDir()
	missing := Source{Browser: "edge", Family: FamilyChromium, Profile: "Default", Dir: filepath.Join(root, "gone")}

	p, m, _ := newTestPipeline(t, []Source{missing})

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "failed", summary.Result())
	assert.Equal(t, 1.0, promtest.ToFloat64(m.ImportRuns.WithLabelValues("failed")))
	assert.Zero(t, promtest.ToFloat64(m.ImportRuns.WithLabelValues("success")))
}

func TestPipelineStopsWhenCancelled(t *testing.T) {
	root := t.TempDir()
	src := Source{Browser: "chrome", Family: FamilyChromium, Profile: "Default", Dir: filepath.Join(root, "chrome")}
	createChromiumProfile(t, src.Dir)

	p, _, _ := newTestPipeline(t, []Source{src})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func counterValue(t *testing.T, m *metrics.Metrics, source, kind string) float64 {
	t.Helper()
	return promtest.ToFloat64(m.ImportRecords.WithLabelValues(source, kind))
}
