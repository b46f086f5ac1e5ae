package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
	"github.com/memoria/core/internal/testutil"
)

func TestTableCRUD(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMemoRepository(db)
	ctx := context.Background()

	memo := &entities.Memo{ID: "m1", Content: "read about #golang", Tags: entities.StringList{"golang"}, CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, repo.Create(ctx, memo))

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "read about #golang", got.Content)
	assert.Equal(t, entities.StringList{"golang"}, got.Tags)

	got.Content = "updated"
	got.Pinned = true
	got.UpdatedAt = 2
	require.NoError(t, repo.Update(ctx, got))

	list, err := repo.List(ctx, ports.ListFilter{Search: "updat"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Pinned)
	assert.Equal(t, int64(1), list[0].CreatedAt)

	require.NoError(t, repo.Delete(ctx, "m1"))
	_, err = repo.GetByID(ctx, "m1")
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "m1"), entities.ErrNotFound)
}

func TestTableQuotedColumns(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	event := &entities.Event{ID: "e1", Title: "Dentist", Start: "2024-03-01T09:00:00Z", End: "2024-03-01T10:00:00Z", CreatedAt: 1, UpdatedAt: 1}
	require.NoError(t, repo.Create(ctx, event))

	got, err := repo.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T10:00:00Z", got.End)
}

func TestEventListBetween(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	for _, e := range []*entities.Event{
		{ID: "past", Title: "Past", Start: "2024-02-01T09:00:00Z"},
		{ID: "span", Title: "Trip", Start: "2024-02-27", End: "2024-03-02", AllDay: true},
		{ID: "day", Title: "Dentist", Start: "2024-03-01T09:00:00Z", End: "2024-03-01T10:00:00Z"},
		{ID: "later", Title: "Later", Start: "2024-04-01T09:00:00Z"},
	} {
		e.CreatedAt, e.UpdatedAt = 1, 1
		require.NoError(t, repo.Create(ctx, e))
	}

	var ids []string
	got, err := repo.ListBetween(ctx, "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"span", "day"}, ids)

	got, err = repo.ListBetween(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestTableCorruptedTags(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMemoRepository(db)
	ctx := context.Background()

	_, err := db.DB.ExecContext(ctx, `INSERT INTO memos (id, content, tags, pinned, created_at, updated_at) VALUES ('bad', 'x', '{oops', 0, 1, 1)`)
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, "bad")
	assert.ErrorIs(t, err, entities.ErrCorruptData)
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}

func TestReplaceDay(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	tasks := []entities.Task{
		{ID: "a", Content: "first", Quadrant: "q1"},
		{ID: "b", Content: "second", Quadrant: "q2"},
	}
	require.NoError(t, repo.ReplaceDay(ctx, "2024-01-01", tasks))

	stored, err := repo.ListByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "a", stored[0].ID)
	assert.Equal(t, "2024-01-01", stored[0].Date)

	state, err := repo.GetDayState(ctx, "2024-01-01")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.False(t, state.IsExplicitlyEmpty)

	latest, err := repo.LatestDateBefore(ctx, "2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", latest)

	latest, err = repo.LatestDateBefore(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, latest)

	missing, err := repo.GetDayState(ctx, "2024-02-01")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReplaceDayRollsBackOnFailure(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.ReplaceDay(ctx, "2024-01-01", []entities.Task{{ID: "a", Content: "keep me"}}))

	// the trigger makes the second insert fail mid-transaction
	_, err := db.DB.ExecContext(ctx, `CREATE TRIGGER reject_bad BEFORE INSERT ON tasks WHEN NEW.id = 'bad' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	err = repo.ReplaceDay(ctx, "2024-01-01", []entities.Task{{ID: "c", Content: "new"}, {ID: "bad", Content: "boom"}})
	require.Error(t, err)

	stored, err := repo.ListByDate(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "keep me", stored[0].Content)
}

func TestImportedInsertIgnore(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewImportedRecordRepository(db, logger.NewNop())
	ctx := context.Background()

	records := []entities.ImportedRecord{
		{ID: "chrome_1", URL: "https://go.dev", Title: "Go", Timestamp: 10, Source: "chrome:Default", Kind: entities.ImportKindHistory},
		{ID: "chrome_2", URL: "https://pkg.go.dev", Title: "Packages", Timestamp: 20, Source: "chrome:Default", Kind: entities.ImportKindBookmark},
		{ID: "broken", URL: "x", Kind: "unknown"},
	}

	added, err := repo.InsertIgnore(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, map[entities.ImportKind]int{entities.ImportKindHistory: 1, entities.ImportKindBookmark: 1}, added)

	added, err = repo.InsertIgnore(ctx, records)
	require.NoError(t, err)
	assert.Empty(t, added)

	count, err := repo.Count(ctx, entities.ImportKindHistory)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := repo.Search(ctx, entities.ImportKindBookmark, "packages", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, entities.ImportKindBookmark, found[0].Kind)
}

func TestCounterIncrement(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCounterRepository(db)
	ctx := context.Background()

	counter, err := repo.Get(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Zero(t, counter.Count)

	_, err = repo.Increment(ctx, "2024-01-01", 2)
	require.NoError(t, err)
	counter, err = repo.Increment(ctx, "2024-01-01", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, counter.Count)
}
