package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/adapters/repository"
	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/infrastructure/preview"
	"github.com/memoria/core/internal/testutil"
)

type stubPages struct {
	fetches int
	meta    *preview.Metadata
	err     error
}

func (s *stubPages) Fetch(context.Context, string) (*preview.Metadata, error) {
	s.fetches++
	return s.meta, s.err
}

func (s *stubPages) FallbackFavicon(host string) string {
	return fmt.Sprintf("https://icons.test/%s", host)
}

func (s *stubPages) OpenImage(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("img")), nil
}

type stubImages struct{}

func (stubImages) Save(io.Reader) (string, error) { return "/images/2024/01/01/x.jpg", nil }

func TestPreviewStoresLocalImageAndCaches(t *testing.T) {
	db := testutil.NewDB(t)
	pages := &stubPages{meta: &preview.Metadata{Title: "Go", Image: "https://go.dev/cover.png", Favicon: "https://go.dev/favicon.ico"}}
	svc := NewPreviewService(repository.NewLinkPreviewRepository(db), pages, stubImages{}, logger.NewNop())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	p, err := svc.Get(ctx, "https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, "Go", p.Title)
	assert.Equal(t, "/images/2024/01/01/x.jpg", p.Image)

	_, err = svc.Get(ctx, "https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, 1, pages.fetches)

	now = now.Add(8 * 24 * time.Hour)
	_, err = svc.Get(ctx, "https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, 2, pages.fetches)
}

func TestPreviewDegradesOnFetchFailure(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewLinkPreviewRepository(db)
	pages := &stubPages{err: errors.New("timeout")}
	svc := NewPreviewService(repo, pages, stubImages{}, logger.NewNop())
	ctx := context.Background()

	p, err := svc.Get(ctx, "https://slow.example/page")
	require.NoError(t, err)
	assert.Equal(t, "https://icons.test/slow.example", p.Favicon)

	_, err = repo.Get(ctx, "https://slow.example/page")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}
