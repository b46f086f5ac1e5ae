package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/ports"
)

// NewMemoRepository creates the memo repository
func NewMemoRepository(db *database.DB) *Table[entities.Memo] {
	return NewTable[entities.Memo](db, TableSpec{
		Name:        "memos",
		Columns:     []string{"id", "content", "tags", "pinned", "created_at", "updated_at"},
		Searchable:  []string{"content", "tags"},
		DefaultSort: "created_at",
	})
}

// NewBookmarkRepository creates the bookmark repository
func NewBookmarkRepository(db *database.DB) *Table[entities.Bookmark] {
	return NewTable[entities.Bookmark](db, TableSpec{
		Name:        "bookmarks",
		Columns:     []string{"id", "url", "title", "description", "tags", "created_at", "updated_at"},
		Searchable:  []string{"url", "title", "description", "tags"},
		DefaultSort: "created_at",
	})
}

// EventRepository is the local calendar event table plus a window query
type EventRepository struct {
	*Table[entities.Event]
}

var _ ports.EventRepository = (*EventRepository)(nil)

// NewEventRepository creates the local calendar event repository
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{Table: NewTable[entities.Event](db, TableSpec{
		Name:         "events",
		Columns:      []string{"id", "title", "description", "location", "start", "end", "all_day", "color", "created_at", "updated_at"},
		Searchable:   []string{"title", "description", "location"},
		DefaultSort:  "start",
		DefaultOrder: "asc",
	})}
}

// ListBetween compares the date part of start and end, so every event whose
// days touch the window is returned without a row cap. Callers refine to the
// exact instant.
func (r *EventRepository) ListBetween(ctx context.Context, fromDay, toDay string) ([]*entities.Event, error) {
	var (
		where []string
		args  []interface{}
	)

	if toDay != "" {
		where = append(where, `substr("start", 1, 10) <= ?`)
		args = append(args, toDay)
	}
	if fromDay != "" {
		where = append(where, `substr(CASE WHEN "end" = '' THEN "start" ELSE "end" END, 1, 10) >= ?`)
		args = append(args, fromDay)
	}

	query := fmt.Sprintf(`SELECT %s FROM events`, quoteColumns(r.spec.Columns))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY "start" ASC`

	items := []*entities.Event{}
	if err := r.db.DB.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list events between %q and %q: %w", fromDay, toDay, err)
	}

	return items, nil
}

// NewNotebookRepository creates the notebook repository
func NewNotebookRepository(db *database.DB) *Table[entities.Notebook] {
	return NewTable[entities.Notebook](db, TableSpec{
		Name:        "notebooks",
		Columns:     []string{"id", "title", "content", "tags", "created_at", "updated_at"},
		Searchable:  []string{"title", "content"},
		DefaultSort: "updated_at",
	})
}

// NewIdentityRepository creates the identity repository
func NewIdentityRepository(db *database.DB) *Table[entities.Identity] {
	return NewTable[entities.Identity](db, TableSpec{
		Name:         "identities",
		Columns:      []string{"id", "name", "email", "phone", "address", "notes", "tags", "created_at", "updated_at"},
		Searchable:   []string{"name", "email", "phone", "notes"},
		DefaultSort:  "name",
		DefaultOrder: "asc",
	})
}

// NewCredentialGroupRepository creates the credential group repository
func NewCredentialGroupRepository(db *database.DB) *Table[entities.CredentialGroup] {
	return NewTable[entities.CredentialGroup](db, TableSpec{
		Name:         "credential_groups",
		Columns:      []string{"id", "name", "credentials", "created_at", "updated_at"},
		Searchable:   []string{"name"},
		DefaultSort:  "name",
		DefaultOrder: "asc",
	})
}

// NewToolboxRepository creates the toolbox item repository
func NewToolboxRepository(db *database.DB) *Table[entities.ToolboxItem] {
	return NewTable[entities.ToolboxItem](db, TableSpec{
		Name:         "toolbox_items",
		Columns:      []string{"id", "name", "url", "icon", "category", "sort_order", "created_at", "updated_at"},
		Searchable:   []string{"name", "url", "category"},
		DefaultSort:  "sort_order",
		DefaultOrder: "asc",
	})
}
