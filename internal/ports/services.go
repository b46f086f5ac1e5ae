package ports

import (
	"context"
	"io"

	"github.com/memoria/core/internal/domain/entities"
)

// TaskService resolves and saves the task list of a day
type TaskService interface {
	ResolveTasksForDate(ctx context.Context, date string) (*entities.ResolvedDay, error)
	SaveTasksForDate(ctx context.Context, date string, tasks []entities.Task) (*entities.ResolvedDay, error)
	ResolveDate(input string) (string, error)
}

// ResourceService is the CRUD contract served by the generic resource handler
type ResourceService[T any] interface {
	Create(ctx context.Context, item *T) (*T, error)
	Get(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, id string, item *T) (*T, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]*T, error)
}

// CalendarService manages feed sources and the merged event view
type CalendarService interface {
	ListSources(ctx context.Context) ([]*entities.CalendarSource, error)
	CreateSource(ctx context.Context, source *entities.CalendarSource) (*entities.CalendarSource, error)
	DeleteSource(ctx context.Context, id string) error
	Events(ctx context.Context, from, to string) ([]entities.CalendarEvent, error)
}

// ChatService relays prompts to the inference service
type ChatService interface {
	Send(ctx context.Context, conversationID, prompt string) (*ChatReply, error)
	History(ctx context.Context, conversationID string) ([]*entities.ChatMessage, error)
}

// SettingsStore reads and merges the user settings file
type SettingsStore interface {
	All() (map[string]interface{}, error)
	Merge(updates map[string]interface{}) (map[string]interface{}, error)
}

// PreviewService returns link previews
type PreviewService interface {
	Get(ctx context.Context, url string) (*entities.LinkPreview, error)
}

// ImageUploader stores an uploaded image and returns its public path
type ImageUploader interface {
	Save(r io.Reader) (string, error)
}

// GraphService builds the tag graph
type GraphService interface {
	Build(ctx context.Context) (*entities.Graph, error)
}

// SearchService runs a merged search across stored content
type SearchService interface {
	Search(ctx context.Context, query string, limit int) ([]entities.SearchResult, error)
}

// CounterService exposes the daily counter
type CounterService interface {
	Get(ctx context.Context, date string) (*entities.DailyCounter, error)
	Increment(ctx context.Context, date string, delta int) (*entities.DailyCounter, error)
}

// Request/Response Types

// SaveTasksRequest replaces the task list of a day. Tasks must be present;
// an empty list clears the day.
type SaveTasksRequest struct {
	Tasks []entities.Task `json:"tasks" validate:"required"`
}

// CreateCalendarSourceRequest adds a user-managed feed
type CreateCalendarSourceRequest struct {
	Name  string `json:"name" validate:"omitempty,max=200"`
	URL   string `json:"url" validate:"required,max=2000"`
	Type  string `json:"type" validate:"omitempty,oneof=ics env"`
	Color string `json:"color" validate:"omitempty,max=32"`
}

// ChatRequest sends one prompt
type ChatRequest struct {
	ConversationID string `json:"conversation_id" validate:"omitempty,max=64"`
	Prompt         string `json:"prompt" validate:"required"`
}

// ChatReply is the outcome of one prompt
type ChatReply struct {
	ConversationID string                `json:"conversation_id"`
	Message        *entities.ChatMessage `json:"message"`
}

// IncrementCounterRequest carries an optional delta
type IncrementCounterRequest struct {
	Delta int `json:"delta"`
}

// UploadResponse points to a stored image
type UploadResponse struct {
	URL string `json:"url"`
}

// SearchResponse wraps merged search hits
type SearchResponse struct {
	Query   string                  `json:"query"`
	Results []entities.SearchResult `json:"results"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
