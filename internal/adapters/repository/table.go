package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/database"
	"github.com/memoria/core/internal/ports"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// TableSpec describes how a resource maps onto its table
type TableSpec struct {
	Name string
	// Columns lists every column, "id" first. Column names equal the `db` tags of the row type.
	Columns []string
	// Searchable columns are matched with LIKE when a filter carries a search term
	Searchable   []string
	DefaultSort  string
	DefaultOrder string
}

// Table implements ports.Repository over a single table whose rows map onto T
// through sqlx `db` tags
type Table[T any] struct {
	db   *database.DB
	spec TableSpec
}

// NewTable creates a generic repository for spec
func NewTable[T any](db *database.DB, spec TableSpec) *Table[T] {
	return &Table[T]{db: db, spec: spec}
}

var _ ports.Repository[entities.Memo] = (*Table[entities.Memo])(nil)

func quoteColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ", ")
}

func (t *Table[T]) Create(ctx context.Context, item *T) error {
	params := make([]string, len(t.spec.Columns))
	for i, c := range t.spec.Columns {
		params[i] = ":" + c
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		t.spec.Name, quoteColumns(t.spec.Columns), strings.Join(params, ", "))

	if _, err := t.db.DB.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create %s: %w", t.spec.Name, err)
	}

	return nil
}

func (t *Table[T]) GetByID(ctx context.Context, id string) (*T, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, quoteColumns(t.spec.Columns), t.spec.Name)

	var item T
	if err := t.db.DB.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", t.spec.Name, id, entities.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s by id: %w", t.spec.Name, err)
	}

	return &item, nil
}

func (t *Table[T]) Update(ctx context.Context, item *T) error {
	var sets []string
	for _, c := range t.spec.Columns {
		if c == "id" || c == "created_at" {
			continue
		}
		sets = append(sets, fmt.Sprintf(`"%s" = :%s`, c, c))
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = :id`, t.spec.Name, strings.Join(sets, ", "))

	result, err := t.db.DB.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.spec.Name, err)
	}

	return expectAffected(result, t.spec.Name)
}

func (t *Table[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.spec.Name)

	result, err := t.db.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.spec.Name, err)
	}

	return expectAffected(result, t.spec.Name)
}

func (t *Table[T]) List(ctx context.Context, filter ports.ListFilter) ([]*T, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter.Search != "" && len(t.spec.Searchable) > 0 {
		pattern := likePattern(filter.Search)
		var ors []string
		for _, c := range t.spec.Searchable {
			ors = append(ors, fmt.Sprintf(`"%s" LIKE ? ESCAPE '\'`, c))
			args = append(args, pattern)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, quoteColumns(t.spec.Columns), t.spec.Name)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + t.orderBy(filter) + " LIMIT ? OFFSET ?"
	args = append(args, clampLimit(filter.Limit), max(filter.Offset, 0))

	items := []*T{}
	if err := t.db.DB.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.spec.Name, err)
	}

	return items, nil
}

// orderBy only accepts known columns so the clause can be interpolated safely
func (t *Table[T]) orderBy(filter ports.ListFilter) string {
	column := t.spec.DefaultSort
	for _, c := range t.spec.Columns {
		if c == filter.SortBy {
			column = c
			break
		}
	}
	if column == "" {
		column = "id"
	}

	order := filter.SortOrder
	if order == "" {
		order = t.spec.DefaultOrder
	}
	direction := "DESC"
	if strings.EqualFold(order, "asc") {
		direction = "ASC"
	}

	return fmt.Sprintf(`"%s" %s`, column, direction)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

func expectAffected(result sql.Result, entity string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", entity, entities.ErrNotFound)
	}
	return nil
}

// likePattern wraps a search term for LIKE ... ESCAPE '\'
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}

// execer is satisfied by both *sqlx.DB and *sqlx.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var (
	_ execer = (*sqlx.DB)(nil)
	_ execer = (*sqlx.Tx)(nil)
)
