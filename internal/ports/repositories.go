package ports

import (
	"context"

	"github.com/memoria/core/internal/domain/entities"
)

// Repository defines the CRUD contract shared by the simple resources
type Repository[T any] interface {
	Create(ctx context.Context, item *T) error
	GetByID(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, item *T) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]*T, error)
}

// EventRepository adds a date-window query to the local event CRUD
type EventRepository interface {
	Repository[entities.Event]
	// ListBetween returns events whose day span touches [fromDay, toDay].
	// Days are YYYY-MM-DD; a blank bound is open.
	ListBetween(ctx context.Context, fromDay, toDay string) ([]*entities.Event, error)
}

// TaskRepository defines the storage operations behind the day-state engine
type TaskRepository interface {
	// GetDayState returns nil when the date was never explicitly saved
	GetDayState(ctx context.Context, date string) (*entities.DayState, error)
	ListByDate(ctx context.Context, date string) ([]entities.Task, error)
	// LatestDateBefore returns the most recent date strictly before date that has
	// at least one task row, or "" when there is none
	LatestDateBefore(ctx context.Context, date string) (string, error)
	// ReplaceDay atomically swaps the stored tasks and day state of date
	ReplaceDay(ctx context.Context, date string, tasks []entities.Task) error
}

// ImportedRecordRepository stores browser history entries and bookmarks
type ImportedRecordRepository interface {
	// InsertIgnore writes records inside one transaction, skipping ids that already
	// exist. It returns how many rows were new per kind.
	InsertIgnore(ctx context.Context, records []entities.ImportedRecord) (map[entities.ImportKind]int, error)
	Count(ctx context.Context, kind entities.ImportKind) (int, error)
	Search(ctx context.Context, kind entities.ImportKind, query string, limit int) ([]entities.ImportedRecord, error)
}

// CalendarSourceRepository stores external calendar feeds
type CalendarSourceRepository interface {
	Create(ctx context.Context, source *entities.CalendarSource) error
	GetByID(ctx context.Context, id string) (*entities.CalendarSource, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*entities.CalendarSource, error)
	ListByType(ctx context.Context, sourceType entities.CalendarSourceType) ([]*entities.CalendarSource, error)
}

// ChatRepository persists conversation turns
type ChatRepository interface {
	Append(ctx context.Context, message *entities.ChatMessage) error
	ListConversation(ctx context.Context, conversationID string) ([]*entities.ChatMessage, error)
}

// CounterRepository stores the daily counter
type CounterRepository interface {
	Get(ctx context.Context, date string) (*entities.DailyCounter, error)
	Increment(ctx context.Context, date string, delta int) (*entities.DailyCounter, error)
}

// LinkPreviewRepository caches fetched link previews
type LinkPreviewRepository interface {
	Get(ctx context.Context, url string) (*entities.LinkPreview, error)
	Upsert(ctx context.Context, preview *entities.LinkPreview) error
}

// SearchRepository runs substring queries over stored content
type SearchRepository interface {
	SearchMemos(ctx context.Context, query string, limit int) ([]*entities.Memo, error)
	SearchBookmarks(ctx context.Context, query string, limit int) ([]*entities.Bookmark, error)
}

// ListFilter narrows a resource listing
type ListFilter struct {
	Search    string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}
