package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/ports"
)

// CalendarSourceRepositoryImpl implements the CalendarSourceRepository interface
type CalendarSourceRepositoryImpl struct {
	db *database.DB
}

// NewCalendarSourceRepository creates a new calendar source repository
func NewCalendarSourceRepository(db *database.DB) ports.CalendarSourceRepository {
	return &CalendarSourceRepositoryImpl{db: db}
}

func (r *CalendarSourceRepositoryImpl) Create(ctx context.Context, source *entities.CalendarSource) error {
	query := `
		INSERT INTO calendar_sources (id, name, url, type, color, created_at)
		VALUES (:id, :name, :url, :type, :color, :created_at)`

	if _, err := r.db.DB.NamedExecContext(ctx, query, source); err != nil {
		return fmt.Errorf("create calendar source: %w", err)
	}

	return nil
}

func (r *CalendarSourceRepositoryImpl) GetByID(ctx context.Context, id string) (*entities.CalendarSource, error) {
	query := `SELECT id, name, url, type, color, created_at FROM calendar_sources WHERE id = ?`

	var source entities.CalendarSource
	if err := r.db.DB.GetContext(ctx, &source, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("calendar source %s: %w", id, entities.ErrNotFound)
		}
		return nil, fmt.Errorf("get calendar source: %w", err)
	}

	return &source, nil
}

func (r *CalendarSourceRepositoryImpl) Delete(ctx context.Context, id string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM calendar_sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete calendar source: %w", err)
	}

	return expectAffected(result, "calendar source")
}

func (r *CalendarSourceRepositoryImpl) List(ctx context.Context) ([]*entities.CalendarSource, error) {
	query := `SELECT id, name, url, type, color, created_at FROM calendar_sources ORDER BY created_at`

	sources := []*entities.CalendarSource{}
	if err := r.db.DB.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("list calendar sources: %w", err)
	}

	return sources, nil
}

func (r *CalendarSourceRepositoryImpl) ListByType(ctx context.Context, sourceType entities.CalendarSourceType) ([]*entities.CalendarSource, error) {
	query := `SELECT id, name, url, type, color, created_at FROM calendar_sources WHERE type = ? ORDER BY created_at`

	sources := []*entities.CalendarSource{}
	if err := r.db.DB.SelectContext(ctx, &sources, query, sourceType); err != nil {
		return nil, fmt.Errorf("list calendar sources by type: %w", err)
	}

	return sources, nil
}

// ChatRepositoryImpl implements the ChatRepository interface
type ChatRepositoryImpl struct {
	db *database.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *database.DB) ports.ChatRepository {
	return &ChatRepositoryImpl{db: db}
}

func (r *ChatRepositoryImpl) Append(ctx context.Context, message *entities.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, conversation_id, role, content, created_at)
		VALUES (:id, :conversation_id, :role, :content, :created_at)`

	if _, err := r.db.DB.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}

	return nil
}

func (r *ChatRepositoryImpl) ListConversation(ctx context.Context, conversationID string) ([]*entities.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM chat_messages
		WHERE conversation_id = ?
		ORDER BY created_at, rowid`

	messages := []*entities.ChatMessage{}
	if err := r.db.DB.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}

	return messages, nil
}

// CounterRepositoryImpl implements the CounterRepository interface
type CounterRepositoryImpl struct {
	db *database.DB
}

// NewCounterRepository creates a new daily counter repository
func NewCounterRepository(db *database.DB) ports.CounterRepository {
	return &CounterRepositoryImpl{db: db}
}

func (r *CounterRepositoryImpl) Get(ctx context.Context, date string) (*entities.DailyCounter, error) {
	return getCounter(ctx, r.db.DB, date)
}

func (r *CounterRepositoryImpl) Increment(ctx context.Context, date string, delta int) (*entities.DailyCounter, error) {
	var counter *entities.DailyCounter

	err := r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO daily_counters (date, count) VALUES (?, ?)
			ON CONFLICT(date) DO UPDATE SET count = count + excluded.count`
		if _, err := tx.ExecContext(ctx, query, date, delta); err != nil {
			return fmt.Errorf("increment counter: %w", err)
		}

		var err error
		counter, err = getCounter(ctx, tx, date)
		return err
	})
	if err != nil {
		return nil, err
	}

	return counter, nil
}

func getCounter(ctx context.Context, q sqlx.QueryerContext, date string) (*entities.DailyCounter, error) {
	counter := entities.DailyCounter{Date: date}
	err := sqlx.GetContext(ctx, q, &counter, `SELECT date, count FROM daily_counters WHERE date = ?`, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get counter: %w", err)
	}

	return &counter, nil
}

// LinkPreviewRepositoryImpl implements the LinkPreviewRepository interface
type LinkPreviewRepositoryImpl struct {
	db *database.DB
}

// NewLinkPreviewRepository creates a new link preview repository
func NewLinkPreviewRepository(db *database.DB) ports.LinkPreviewRepository {
	return &LinkPreviewRepositoryImpl{db: db}
}

func (r *LinkPreviewRepositoryImpl) Get(ctx context.Context, url string) (*entities.LinkPreview, error) {
	query := `SELECT url, title, description, image, favicon, fetched_at FROM link_previews WHERE url = ?`

	var preview entities.LinkPreview
	if err := r.db.DB.GetContext(ctx, &preview, query, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("link preview %s: %w", url, entities.ErrNotFound)
		}
		return nil, fmt.Errorf("get link preview: %w", err)
	}

	return &preview, nil
}

func (r *LinkPreviewRepositoryImpl) Upsert(ctx context.Context, preview *entities.LinkPreview) error {
	query := `
		INSERT INTO link_previews (url, title, description, image, favicon, fetched_at)
		VALUES (:url, :title, :description, :image, :favicon, :fetched_at)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			image = excluded.image,
			favicon = excluded.favicon,
			fetched_at = excluded.fetched_at`

	if _, err := r.db.DB.NamedExecContext(ctx, query, preview); err != nil {
		return fmt.Errorf("upsert link preview: %w", err)
	}

	return nil
}

// SearchRepositoryImpl implements the SearchRepository interface
type SearchRepositoryImpl struct {
	db *database.DB
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(db *database.DB) ports.SearchRepository {
	return &SearchRepositoryImpl{db: db}
}

func (r *SearchRepositoryImpl) SearchMemos(ctx context.Context, query string, limit int) ([]*entities.Memo, error) {
	sqlQuery := `
		SELECT id, content, tags, pinned, created_at, updated_at
		FROM memos
		WHERE content LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC
		LIMIT ?`

	memos := []*entities.Memo{}
	if err := r.db.DB.SelectContext(ctx, &memos, sqlQuery, likePattern(query), clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("search memos: %w", err)
	}

	return memos, nil
}

func (r *SearchRepositoryImpl) SearchBookmarks(ctx context.Context, query string, limit int) ([]*entities.Bookmark, error) {
	sqlQuery := `
		SELECT id, url, title, description, tags, created_at, updated_at
		FROM bookmarks
		WHERE title LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC
		LIMIT ?`

	pattern := likePattern(query)
	bookmarks := []*entities.Bookmark{}
	if err := r.db.DB.SelectContext(ctx, &bookmarks, sqlQuery, pattern, pattern, pattern, clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("search bookmarks: %w", err)
	}

	return bookmarks, nil
}
