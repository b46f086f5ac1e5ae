package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/adapters/repository"
	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
	"github.com/memoria/core/internal/testutil"
)

func TestResourceServiceLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewResourceService[entities.Memo]("memos", repository.NewMemoRepository(db), logger.NewNop(), PrepareMemo)
	ctx := context.Background()

	clock := int64(1000)
	svc.now = func() int64 { return clock }

	created, err := svc.Create(ctx, &entities.Memo{Content: "Learning #Go and #sqlite, more #go", Tags: entities.StringList{"notes"}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, entities.StringList{"notes", "go", "sqlite"}, created.Tags)
	assert.Equal(t, int64(1000), created.CreatedAt)

	clock = 2000
	updated, err := svc.Update(ctx, created.ID, &entities.Memo{Content: "rewritten"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), updated.CreatedAt)
	assert.Equal(t, int64(2000), updated.UpdatedAt)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "rewritten", got.Content)
	assert.Equal(t, int64(1000), got.CreatedAt)

	list, err := svc.List(ctx, ports.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Update(ctx, created.ID, &entities.Memo{Content: "gone"})
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestResourceServiceRejectsBeforeWriting(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewResourceService[entities.Event]("events", repository.NewEventRepository(db), logger.NewNop(), PrepareEvent)
	ctx := context.Background()

	_, err := svc.Create(ctx, &entities.Event{Title: "Bad", Start: "2024-03-01T10:00:00Z", End: "2024-03-01T09:00:00Z"})
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = svc.Create(ctx, &entities.Event{Title: "Bad", Start: "tomorrow"})
	assert.ErrorIs(t, err, entities.ErrValidation)

	list, err := svc.List(ctx, ports.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Create(ctx, &entities.Event{Title: "Holiday", Start: "2024-03-01", AllDay: true})
	assert.NoError(t, err)
}

func TestExtractTags(t *testing.T) {
	assert.Equal(t, []string{"go", "knowledge-graph"}, ExtractTags("#Go notes about #knowledge-graph and #go again, not an#anchor"))
	assert.Nil(t, ExtractTags("no tags here"))
}
