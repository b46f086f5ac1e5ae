package entities

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrCorruptData     = errors.New("stored data is corrupted")
	ErrReadOnlySource  = errors.New("calendar source is managed by configuration")
	ErrInvalidDate     = errors.New("invalid date, expected YYYY-MM-DD")
	ErrSnapshotInvalid = errors.New("backup snapshot contains no schema objects")
	ErrUpstream        = errors.New("external service unavailable")
)

// DateLayout is the wire and storage format of logical days
const DateLayout = "2006-01-02"

// DaySource describes where a resolved task list came from
type DaySource string

const (
	DaySourceExplicit  DaySource = "explicit"
	DaySourceEmpty     DaySource = "empty"
	DaySourceInherited DaySource = "inherited"
	DaySourceNone      DaySource = "none"
)

// ImportKind distinguishes history entries from bookmarks
type ImportKind string

const (
	ImportKindHistory  ImportKind = "history"
	ImportKindBookmark ImportKind = "bookmark"
)

// CalendarSourceType is the origin of a calendar source row
type CalendarSourceType string

const (
	CalendarSourceICS CalendarSourceType = "ics"
	// CalendarSourceEnv rows mirror CALENDAR_URLS and are read-only over the API
	CalendarSourceEnv CalendarSourceType = "env"
)

// ChatRole identifies the author of a chat turn
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// Task is one entry of a day's list
type Task struct {
	ID        string  `json:"id" db:"id"`
	Content   string  `json:"content" db:"content" validate:"required"`
	Quadrant  string  `json:"quadrant" db:"quadrant"`
	Date      string  `json:"date" db:"date"`
	Completed bool    `json:"completed" db:"completed"`
	DeletedOn *string `json:"deleted_on,omitempty" db:"deleted_on"`
}

// DayState records that a date has been explicitly saved
type DayState struct {
	Date              string `json:"date" db:"date"`
	IsExplicitlyEmpty bool   `json:"is_explicitly_empty" db:"is_explicitly_empty"`
}

// ResolvedDay is the visible task list for a date and how it was derived
type ResolvedDay struct {
	Date          string    `json:"date"`
	Source        DaySource `json:"source"`
	InheritedFrom string    `json:"inherited_from,omitempty"`
	Tasks         []Task    `json:"tasks"`
}

// ImportedRecord is a browser history entry or bookmark
type ImportedRecord struct {
	ID        string     `json:"id" db:"id"`
	URL       string     `json:"url" db:"url"`
	Title     string     `json:"title" db:"title"`
	Timestamp int64      `json:"timestamp" db:"timestamp"`
	Source    string     `json:"source" db:"source"`
	Kind      ImportKind `json:"kind" db:"-"`
}

// Memo is a short free-form note
type Memo struct {
	ID        string     `json:"id" db:"id"`
	Content   string     `json:"content" db:"content" validate:"required"`
	Tags      StringList `json:"tags" db:"tags"`
	Pinned    bool       `json:"pinned" db:"pinned"`
	CreatedAt int64      `json:"created_at" db:"created_at"`
	UpdatedAt int64      `json:"updated_at" db:"updated_at"`
}

// Bookmark is a manually saved link
type Bookmark struct {
	ID          string     `json:"id" db:"id"`
	URL         string     `json:"url" db:"url" validate:"required,url"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Tags        StringList `json:"tags" db:"tags"`
	CreatedAt   int64      `json:"created_at" db:"created_at"`
	UpdatedAt   int64      `json:"updated_at" db:"updated_at"`
}

// Event is a locally created calendar event
type Event struct {
	ID          string `json:"id" db:"id"`
	Title       string `json:"title" db:"title" validate:"required"`
	Description string `json:"description" db:"description"`
	Location    string `json:"location" db:"location"`
	Start       string `json:"start" db:"start" validate:"required"`
	End         string `json:"end" db:"end"`
	AllDay      bool   `json:"all_day" db:"all_day"`
	Color       string `json:"color" db:"color"`
	CreatedAt   int64  `json:"created_at" db:"created_at"`
	UpdatedAt   int64  `json:"updated_at" db:"updated_at"`
}

// Notebook is a long-form document
type Notebook struct {
	ID        string     `json:"id" db:"id"`
	Title     string     `json:"title" db:"title" validate:"required"`
	Content   string     `json:"content" db:"content"`
	Tags      StringList `json:"tags" db:"tags"`
	CreatedAt int64      `json:"created_at" db:"created_at"`
	UpdatedAt int64      `json:"updated_at" db:"updated_at"`
}

// Identity is a contact card
type Identity struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name" validate:"required"`
	Email     string     `json:"email" db:"email" validate:"omitempty,email"`
	Phone     string     `json:"phone" db:"phone"`
	Address   string     `json:"address" db:"address"`
	Notes     string     `json:"notes" db:"notes"`
	Tags      StringList `json:"tags" db:"tags"`
	CreatedAt int64      `json:"created_at" db:"created_at"`
	UpdatedAt int64      `json:"updated_at" db:"updated_at"`
}

// Credential is a single login inside a group
type Credential struct {
	Label    string `json:"label"`
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
}

// CredentialGroup bundles related credentials
type CredentialGroup struct {
	ID          string         `json:"id" db:"id"`
	Name        string         `json:"name" db:"name" validate:"required"`
	Credentials CredentialList `json:"credentials" db:"credentials"`
	CreatedAt   int64          `json:"created_at" db:"created_at"`
	UpdatedAt   int64          `json:"updated_at" db:"updated_at"`
}

// ToolboxItem is a launcher shortcut
type ToolboxItem struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name" validate:"required"`
	URL       string `json:"url" db:"url" validate:"required"`
	Icon      string `json:"icon" db:"icon"`
	Category  string `json:"category" db:"category"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

// CalendarSource is an external ICS feed
type CalendarSource struct {
	ID        string             `json:"id" db:"id"`
	Name      string             `json:"name" db:"name"`
	URL       string             `json:"url" db:"url" validate:"required,url"`
	Type      CalendarSourceType `json:"type" db:"type"`
	Color     string             `json:"color" db:"color"`
	CreatedAt int64              `json:"created_at" db:"created_at"`
}

// CalendarEvent is the unified shape of local and feed events
type CalendarEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	AllDay      bool   `json:"all_day"`
	Color       string `json:"color,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	Origin      string `json:"origin"`
}

// ChatMessage is one persisted conversation turn
type ChatMessage struct {
	ID             string   `json:"id" db:"id"`
	ConversationID string   `json:"conversation_id" db:"conversation_id"`
	Role           ChatRole `json:"role" db:"role"`
	Content        string   `json:"content" db:"content"`
	CreatedAt      int64    `json:"created_at" db:"created_at"`
}

// DailyCounter is a per-day tally
type DailyCounter struct {
	Date  string `json:"date" db:"date"`
	Count int    `json:"count" db:"count"`
}

// LinkPreview is the metadata extracted from a web page
type LinkPreview struct {
	URL         string `json:"url" db:"url"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Image       string `json:"image" db:"image"`
	Favicon     string `json:"favicon" db:"favicon"`
	FetchedAt   int64  `json:"fetched_at" db:"fetched_at"`
}

// SearchResult is one hit of the free-text search
type SearchResult struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// GraphNode is a vertex of the knowledge graph
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	URL   string `json:"url,omitempty"`
	Count int    `json:"count"`
}

// GraphEdge connects two graph nodes
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// Graph is the derived tag graph
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// NowMillis returns the current time in milliseconds since the Unix epoch
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// ParseDate validates a YYYY-MM-DD logical day
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
