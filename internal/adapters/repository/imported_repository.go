package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

// ImportedRecordRepositoryImpl implements the ImportedRecordRepository interface
type ImportedRecordRepositoryImpl struct {
	db     *database.DB
	logger *logger.Logger
}

// NewImportedRecordRepository creates a new imported record repository
func NewImportedRecordRepository(db *database.DB, appLogger *logger.Logger) ports.ImportedRecordRepository {
	return &ImportedRecordRepositoryImpl{db: db, logger: appLogger.WithComponent("imported_records")}
}

func importTable(kind entities.ImportKind) (string, error) {
	switch kind {
	case entities.ImportKindHistory:
		return "browser_history", nil
	case entities.ImportKindBookmark:
		return "browser_bookmarks", nil
	default:
		return "", fmt.Errorf("%w: unknown import kind %q", entities.ErrValidation, kind)
	}
}

func (r *ImportedRecordRepositoryImpl) InsertIgnore(ctx context.Context, records []entities.ImportedRecord) (map[entities.ImportKind]int, error) {
	var inserted map[entities.ImportKind]int

	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		inserted = map[entities.ImportKind]int{}
		for _, record := range records {
			added, err := insertRecord(ctx, tx, record)
			if err != nil {
				// a single malformed record must not sink the batch
				r.logger.Debugw("Skipping imported record", "id", record.ID, "source", record.Source, "error", err)
				continue
			}
			if added {
				inserted[record.Kind]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert imported records: %w", err)
	}

	return inserted, nil
}

func insertRecord(ctx context.Context, db execer, record entities.ImportedRecord) (bool, error) {
	table, err := importTable(record.Kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (id, url, title, timestamp, source) VALUES (?, ?, ?, ?, ?)`, table)

	result, err := db.ExecContext(ctx, query, record.ID, record.URL, record.Title, record.Timestamp, record.Source)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *ImportedRecordRepositoryImpl) Count(ctx context.Context, kind entities.ImportKind) (int, error) {
	table, err := importTable(kind)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.DB.GetContext(ctx, &count, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}

	return count, nil
}

func (r *ImportedRecordRepositoryImpl) Search(ctx context.Context, kind entities.ImportKind, query string, limit int) ([]entities.ImportedRecord, error) {
	table, err := importTable(kind)
	if err != nil {
		return nil, err
	}

	sqlQuery := fmt.Sprintf(`
		SELECT id, url, title, timestamp, source
		FROM %s
		WHERE title LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\'
		ORDER BY timestamp DESC
		LIMIT ?`, table)

	pattern := likePattern(query)
	records := []entities.ImportedRecord{}
	if err := r.db.DB.SelectContext(ctx, &records, sqlQuery, pattern, pattern, clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("search %s: %w", table, err)
	}

	for i := range records {
		records[i].Kind = kind
	}

	return records, nil
}
