package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/adapters/repository"
	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/testutil"
)

func newTaskService(t *testing.T) *TaskService {
	t.Helper()
	db := testutil.NewDB(t)
	return NewTaskService(repository.NewTaskRepository(db), logger.NewNop())
}

func strPtr(s string) *string { return &s }

func TestResolveWithoutAnyData(t *testing.T) {
	svc := newTaskService(t)

	day, err := svc.ResolveTasksForDate(context.Background(), "2024-01-02")
	require.NoError(t, err)
	assert.Empty(t, day.Tasks)
	assert.NotNil(t, day.Tasks)
	assert.Equal(t, entities.DaySourceNone, day.Source)
}

func TestResolveInheritsFromNearestEarlierDay(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	_, err := svc.SaveTasksForDate(ctx, "2023-12-30", []entities.Task{{ID: "old", Content: "older"}})
	require.NoError(t, err)
	_, err = svc.SaveTasksForDate(ctx, "2024-01-01", []entities.Task{
		{ID: "a", Content: "write report", Quadrant: "q1"},
		{ID: "b", Content: "call bank", DeletedOn: strPtr("2024-01-02")},
	})
	require.NoError(t, err)

	day, err := svc.ResolveTasksForDate(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, entities.DaySourceInherited, day.Source)
	assert.Equal(t, "2024-01-01", day.InheritedFrom)
	require.Len(t, day.Tasks, 1)
	assert.Equal(t, "a", day.Tasks[0].ID)
	assert.Equal(t, "2024-01-02", day.Tasks[0].Date)

	// inheritance is virtual: nothing is stored under the query date
	stored, err := svc.taskRepo.ListByDate(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestResolveAppliesDeletionBoundary(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	_, err := svc.SaveTasksForDate(ctx, "2024-01-01", []entities.Task{
		{ID: "t", Content: "expires", DeletedOn: strPtr("2024-01-03")},
	})
	require.NoError(t, err)

	day, err := svc.ResolveTasksForDate(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Len(t, day.Tasks, 1)

	for _, date := range []string{"2024-01-03", "2024-01-10"} {
		day, err = svc.ResolveTasksForDate(ctx, date)
		require.NoError(t, err)
		assert.Empty(t, day.Tasks, date)
	}
}

func TestSaveEmptyMarksDayExplicitlyEmpty(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	_, err := svc.SaveTasksForDate(ctx, "2024-01-01", []entities.Task{{ID: "a", Content: "carry over"}})
	require.NoError(t, err)
	_, err = svc.SaveTasksForDate(ctx, "2024-01-02", []entities.Task{{ID: "b", Content: "today"}})
	require.NoError(t, err)

	day, err := svc.SaveTasksForDate(ctx, "2024-01-02", nil)
	require.NoError(t, err)
	assert.Equal(t, entities.DaySourceEmpty, day.Source)
	assert.Empty(t, day.Tasks)

	stored, err := svc.taskRepo.ListByDate(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Empty(t, stored)

	state, err := svc.taskRepo.GetDayState(ctx, "2024-01-02")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.IsExplicitlyEmpty)
}

func TestExplicitTasksWin(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	_, err := svc.SaveTasksForDate(ctx, "2024-01-01", []entities.Task{{ID: "a", Content: "yesterday"}})
	require.NoError(t, err)
	_, err = svc.SaveTasksForDate(ctx, "2024-01-02", []entities.Task{{Content: "fresh"}})
	require.NoError(t, err)

	day, err := svc.ResolveTasksForDate(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, entities.DaySourceExplicit, day.Source)
	require.Len(t, day.Tasks, 1)
	assert.Equal(t, "fresh", day.Tasks[0].Content)
	assert.NotEmpty(t, day.Tasks[0].ID)
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	svc := newTaskService(t)
	ctx := context.Background()

	_, err := svc.SaveTasksForDate(ctx, "2024-01-01", []entities.Task{{ID: "a", Content: "  "}})
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = svc.SaveTasksForDate(ctx, "2024-01-01", []entities.Task{{ID: "a", Content: "x", DeletedOn: strPtr("soon")}})
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = svc.SaveTasksForDate(ctx, "2024-01-01", []entities.Task{{ID: "a", Content: "x"}, {ID: "a", Content: "y"}})
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = svc.SaveTasksForDate(ctx, "01/02/2024", nil)
	assert.ErrorIs(t, err, entities.ErrInvalidDate)

	// nothing was written by the rejected saves
	state, err := svc.taskRepo.GetDayState(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestResolveDate(t *testing.T) {
	svc := newTaskService(t)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

	date, err := svc.ResolveDate("")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", date)

	date, err = svc.ResolveDate("2024-01-09")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-09", date)

	date, err = svc.ResolveDate("yesterday")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-14", date)

	_, err = svc.ResolveDate("qwerty")
	assert.ErrorIs(t, err, entities.ErrInvalidDate)
}
