package services

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/infrastructure/preview"
	"github.com/memoria/core/internal/ports"
)

const previewFreshFor = 7 * 24 * time.Hour

// PageFetcher retrieves page metadata and images
type PageFetcher interface {
	Fetch(ctx context.Context, target string) (*preview.Metadata, error)
	FallbackFavicon(host string) string
	OpenImage(ctx context.Context, imageURL string) (io.ReadCloser, error)
}

// ImageStore persists images and returns their public path
type ImageStore interface {
	Save(r io.Reader) (string, error)
}

// PreviewService builds and caches link previews
type PreviewService struct {
	repo    ports.LinkPreviewRepository
	fetcher PageFetcher
	images  ImageStore
	logger  *logger.Logger
	now     func() time.Time
}

// NewPreviewService creates a preview service
func NewPreviewService(repo ports.LinkPreviewRepository, fetcher PageFetcher, images ImageStore, appLogger *logger.Logger) *PreviewService {
	return &PreviewService{
		repo:    repo,
		fetcher: fetcher,
		images:  images,
		logger:  appLogger.WithComponent("preview"),
		now:     time.Now,
	}
}

// Get returns the preview of target. Stored previews younger than a week are
// reused. When the page cannot be fetched a bare preview with the fallback
// favicon is returned and nothing is stored.
func (s *PreviewService) Get(ctx context.Context, target string) (*entities.LinkPreview, error) {
	target = strings.TrimSpace(target)

	cached, err := s.repo.Get(ctx, target)
	switch {
	case err == nil && s.now().Sub(time.UnixMilli(cached.FetchedAt)) < previewFreshFor:
		return cached, nil
	case err != nil && !errors.Is(err, entities.ErrNotFound):
		return nil, err
	}

	meta, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		if errors.Is(err, entities.ErrValidation) {
			return nil, err
		}
		s.logger.Warnw("Link preview fetch failed", "url", target, "error", err)
		return s.bare(target), nil
	}

	result := &entities.LinkPreview{
		URL:         target,
		Title:       meta.Title,
		Description: meta.Description,
		Image:       meta.Image,
		Favicon:     meta.Favicon,
		FetchedAt:   s.now().UnixMilli(),
	}
	if result.Image != "" {
		result.Image = s.localImage(ctx, result.Image)
	}

	if err := s.repo.Upsert(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

// localImage downloads the preview image into the image store, keeping the
// remote URL when that fails
func (s *PreviewService) localImage(ctx context.Context, remote string) string {
	body, err := s.fetcher.OpenImage(ctx, remote)
	if err != nil {
		s.logger.Debugw("Preview image unavailable", "url", remote, "error", err)
		return remote
	}
	defer body.Close()

	local, err := s.images.Save(body)
	if err != nil {
		s.logger.Debugw("Preview image not stored", "url", remote, "error", err)
		return remote
	}
	return local
}

func (s *PreviewService) bare(target string) *entities.LinkPreview {
	p := &entities.LinkPreview{URL: target, Title: target}
	if u, err := url.Parse(target); err == nil {
		p.Favicon = s.fetcher.FallbackFavicon(u.Hostname())
	}
	return p
}
