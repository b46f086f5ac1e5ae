// Package importer copies browser history and bookmarks into the store.
//
// Each browser profile goes through discover, stage, read, transform, upsert
// and cleanup. Sources are independent: one that cannot be staged or read is
// skipped without affecting the others.
package importer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/infrastructure/metrics"
	"github.com/memoria/core/internal/ports"
)

const defaultLimit = 5000

// SourceResult reports what one source contributed to a run
type SourceResult struct {
	Source string `json:"source"`
	Read   int    `json:"read"`
	Added  int    `json:"added"`
	Error  string `json:"error,omitempty"`
}

// Summary reports a whole run
type Summary struct {
	Sources  []SourceResult `json:"sources"`
	Read     int            `json:"read"`
	Added    int            `json:"added"`
	Failed   int            `json:"failed"`
	Duration time.Duration  `json:"duration"`
}

// Result labels the run: "failed" when every source failed, "partial" when
// some did, otherwise "success"
func (s *Summary) Result() string {
	switch {
	case s.Failed == 0:
		return "success"
	case s.Failed == len(s.Sources):
		return "failed"
	default:
		return "partial"
	}
}

// Pipeline imports every discovered browser profile
type Pipeline struct {
	repo     ports.ImportedRecordRepository
	discover func() []Source
	stager   *Stager
	limit    int
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewPipeline creates a pipeline discovering profiles on the running host
func NewPipeline(repo ports.ImportedRecordRepository, cfg config.ImportConfig, browsers config.BrowsersConfig, appLogger *logger.Logger, m *metrics.Metrics) *Pipeline {
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	return &Pipeline{
		repo: repo,
		discover: func() []Source {
			return Discover(browsers, CurrentEnvironment())
		},
		stager:  NewStager(cfg.StageAttempts, 200*time.Millisecond),
		limit:   limit,
		logger:  appLogger.WithComponent("importer"),
		metrics: m,
		now:     time.Now,
	}
}

// Run imports all sources sequentially. It only fails when ctx is cancelled;
// per-source problems are logged and reported in the summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Sources: []SourceResult{}}

	sources := p.discover()
	p.logger.Infow("Import run started", "sources", len(sources))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			p.metrics.ImportRun("cancelled")
			return summary, err
		}

		result := p.runSource(ctx, src)
		summary.Sources = append(summary.Sources, result)
		summary.Read += result.Read
		summary.Added += result.Added
		if result.Error != "" {
			summary.Failed++
		}
	}

	summary.Duration = time.Since(start)
	p.metrics.ImportRun(summary.Result())
	p.logger.LogPipelineRun("import", float64(summary.Duration.Milliseconds()), map[string]interface{}{
		"result":  summary.Result(),
		"sources": len(summary.Sources),
		"failed":  summary.Failed,
		"read":    summary.Read,
		"added":   summary.Added,
	}, nil)

	return summary, nil
}

func (p *Pipeline) runSource(ctx context.Context, src Source) SourceResult {
	result := SourceResult{Source: src.Label()}
	log := p.logger.WithFields("source", src.Label())

	entries, err := p.readSource(ctx, src, log)
	if err != nil {
		log.Warnw("Skipping import source", "error", err)
		result.Error = err.Error()
		return result
	}
	result.Read = len(entries)

	records := p.transform(src, entries)
	added, err := p.repo.InsertIgnore(ctx, records)
	if err != nil {
		log.Errorw("Failed to store imported records", "error", err)
		result.Error = err.Error()
		return result
	}
	for kind, n := range added {
		result.Added += n
		p.metrics.RecordImported(src.Tag(), string(kind), n)
	}

	log.Infow("Import source finished", "read", result.Read, "added", result.Added)

	return result
}

// readSource stages and reads one profile. Staged copies are removed before it returns.
func (p *Pipeline) readSource(ctx context.Context, src Source, log *logger.Logger) ([]rawEntry, error) {
	dir, staged, err := p.stager.Stage(ctx, src.HistoryFile(), true)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	db, err := database.OpenReadOnly(staged)
	if err != nil {
		return nil, fmt.Errorf("open staged copy: %w", err)
	}
	defer db.Close()

	var entries []rawEntry
	switch src.Family {
	case FamilyFirefox:
		entries = append(entries, p.query(ctx, db, firefoxHistoryQuery, entities.ImportKindHistory, log)...)
		entries = append(entries, p.query(ctx, db, firefoxBookmarksQuery, entities.ImportKindBookmark, log)...)
	default:
		entries = append(entries, p.query(ctx, db, chromiumHistoryQuery, entities.ImportKindHistory, log)...)
		entries = append(entries, p.chromiumBookmarks(ctx, src, log)...)
	}

	return entries, nil
}

func (p *Pipeline) query(ctx context.Context, db *sqlx.DB, query string, kind entities.ImportKind, log *logger.Logger) []rawEntry {
	entries, err := queryEntries(ctx, db, query, p.limit, kind)
	if err != nil {
		log.Warnw("Browser query failed", "kind", kind, "error", err)
		return nil
	}
	return entries
}

func (p *Pipeline) chromiumBookmarks(ctx context.Context, src Source, log *logger.Logger) []rawEntry {
	path := src.BookmarksFile()
	if !fileExists(path) {
		return nil
	}

	dir, staged, err := p.stager.Stage(ctx, path, false)
	if err != nil {
		log.Warnw("Bookmarks file not staged", "error", err)
		return nil
	}
	defer os.RemoveAll(dir)

	entries, err := readChromiumBookmarks(staged, p.limit)
	if err != nil {
		log.Warnw("Bookmarks file unreadable", "error", err)
		return nil
	}
	return entries
}

func (p *Pipeline) transform(src Source, entries []rawEntry) []entities.ImportedRecord {
	now := p.now()
	tag := src.Tag()

	records := make([]entities.ImportedRecord, 0, len(entries))
	for _, e := range entries {
		var ts int64
		if src.Family == FamilyFirefox {
			ts = FirefoxMillis(e.Raw, now)
		} else {
			ts = ChromiumMillis(e.Raw, now)
		}

		title := e.Title
		if title == "" {
			title = e.URL
		}

		records = append(records, entities.ImportedRecord{
			ID:        RecordID(tag, e.Raw, e.URL),
			URL:       e.URL,
			Title:     title,
			Timestamp: ts,
			Source:    src.Label(),
			Kind:      e.Kind,
		})
	}
	return records
}
