package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/cache"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

const feedFetchConcurrency = 4

// FeedFetcher downloads the events of one ICS feed
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]entities.CalendarEvent, error)
}

// CalendarService manages feed sources and merges local and feed events
type CalendarService struct {
	sources ports.CalendarSourceRepository
	events  ports.EventRepository
	fetcher FeedFetcher
	cache   *cache.TTLCache[[]entities.CalendarEvent]
	logger  *logger.Logger
}

// NewCalendarService creates a calendar service. Feed results are cached per URL
// in feedCache.
func NewCalendarService(
	sources ports.CalendarSourceRepository,
	events ports.EventRepository,
	fetcher FeedFetcher,
	feedCache *cache.TTLCache[[]entities.CalendarEvent],
	appLogger *logger.Logger,
) *CalendarService {
	return &CalendarService{
		sources: sources,
		events:  events,
		fetcher: fetcher,
		cache:   feedCache,
		logger:  appLogger.WithComponent("calendar"),
	}
}

// ListSources returns every configured feed
func (s *CalendarService) ListSources(ctx context.Context) ([]*entities.CalendarSource, error) {
	return s.sources.List(ctx)
}

// CreateSource adds a user-managed ICS feed. The env type is reserved for
// feeds mirrored from configuration.
func (s *CalendarService) CreateSource(ctx context.Context, source *entities.CalendarSource) (*entities.CalendarSource, error) {
	if source.Type == entities.CalendarSourceEnv {
		return nil, entities.ErrReadOnlySource
	}
	if source.Type == "" {
		source.Type = entities.CalendarSourceICS
	}
	if source.Type != entities.CalendarSourceICS {
		return nil, fmt.Errorf("%w: unknown calendar source type %q", entities.ErrValidation, source.Type)
	}

	source.URL = strings.TrimSpace(source.URL)
	if source.URL == "" {
		return nil, fmt.Errorf("%w: calendar source url is required", entities.ErrValidation)
	}
	if source.Name == "" {
		source.Name = sourceName(source.URL)
	}
	source.ID = uuid.NewString()
	source.CreatedAt = entities.NowMillis()

	if err := s.sources.Create(ctx, source); err != nil {
		return nil, err
	}

	s.logger.Infow("Calendar source created", "id", source.ID, "url", source.URL)

	return source, nil
}

// DeleteSource removes a user-managed feed
func (s *CalendarService) DeleteSource(ctx context.Context, id string) error {
	source, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if source.Type == entities.CalendarSourceEnv {
		return entities.ErrReadOnlySource
	}

	if err := s.sources.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(source.URL)

	s.logger.Infow("Calendar source deleted", "id", id)

	return nil
}

// SyncEnvSources makes the env-typed sources match urls exactly: missing URLs
// are added and URLs no longer configured are removed.
func (s *CalendarService) SyncEnvSources(ctx context.Context, urls []string) (added, removed int, err error) {
	existing, err := s.sources.ListByType(ctx, entities.CalendarSourceEnv)
	if err != nil {
		return 0, 0, err
	}

	wanted := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			wanted[u] = struct{}{}
		}
	}

	have := make(map[string]struct{}, len(existing))
	for _, source := range existing {
		have[source.URL] = struct{}{}
		if _, keep := wanted[source.URL]; keep {
			continue
		}
		if err := s.sources.Delete(ctx, source.ID); err != nil {
			return added, removed, fmt.Errorf("remove env calendar source: %w", err)
		}
		s.cache.Delete(source.URL)
		removed++
	}

	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := have[u]; ok {
			continue
		}
		have[u] = struct{}{}

		source := &entities.CalendarSource{
			ID:        uuid.NewString(),
			Name:      sourceName(u),
			URL:       u,
			Type:      entities.CalendarSourceEnv,
			CreatedAt: entities.NowMillis(),
		}
		if err := s.sources.Create(ctx, source); err != nil {
			return added, removed, fmt.Errorf("add env calendar source: %w", err)
		}
		added++
	}

	s.logger.Infow("Calendar sources synchronized", "added", added, "removed", removed, "configured", len(wanted))

	return added, removed, nil
}

// Events returns local events and feed events overlapping [from, to], ordered
// by start. Blank bounds are open. A feed that cannot be fetched contributes
// nothing.
func (s *CalendarService) Events(ctx context.Context, from, to string) ([]entities.CalendarEvent, error) {
	window, err := newTimeWindow(from, to)
	if err != nil {
		return nil, err
	}

	fromDay, toDay := window.days()
	local, err := s.events.ListBetween(ctx, fromDay, toDay)
	if err != nil {
		return nil, err
	}

	merged := make([]entities.CalendarEvent, 0, len(local))
	for _, e := range local {
		event := entities.CalendarEvent{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Location:    e.Location,
			Start:       e.Start,
			End:         e.End,
			AllDay:      e.AllDay,
			Color:       e.Color,
			Origin:      "local",
		}
		if window.overlaps(event) {
			merged = append(merged, event)
		}
	}

	sources, err := s.sources.List(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedFetchConcurrency)
	for _, source := range sources {
		source := source
		g.Go(func() error {
			for _, event := range s.feedEvents(gctx, source.URL) {
				event.SourceID = source.ID
				if event.Color == "" {
					event.Color = source.Color
				}
				if !window.overlaps(event) {
					continue
				}
				mu.Lock()
				merged = append(merged, event)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(merged, func(i, j int) bool {
		return eventTime(merged[i].Start).Before(eventTime(merged[j].Start))
	})

	return merged, nil
}

func (s *CalendarService) feedEvents(ctx context.Context, feedURL string) []entities.CalendarEvent {
	if cached, _, ok := s.cache.Get(feedURL); ok {
		return cached
	}

	events, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		s.logger.Warnw("Calendar feed unavailable", "url", feedURL, "error", err)
		return nil
	}

	s.cache.Put(feedURL, events)
	return events
}

func sourceName(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Host
	}
	return raw
}

type timeWindow struct {
	from, to time.Time
}

func newTimeWindow(from, to string) (timeWindow, error) {
	var w timeWindow
	if from != "" {
		t, err := parseEventTime(from)
		if err != nil {
			return w, fmt.Errorf("%w: from %q", entities.ErrValidation, from)
		}
		w.from = t
	}
	if to != "" {
		t, err := parseEventTime(to)
		if err != nil {
			return w, fmt.Errorf("%w: to %q", entities.ErrValidation, to)
		}
		// a bare date includes the whole day
		if len(to) == len(entities.DateLayout) {
			t = t.Add(24 * time.Hour)
		}
		w.to = t
	}
	return w, nil
}

// days widens the window by a day on each side so offsets in stored
// timestamps cannot push a matching event out of the date comparison
func (w timeWindow) days() (from, to string) {
	if !w.from.IsZero() {
		from = w.from.UTC().AddDate(0, 0, -1).Format(entities.DateLayout)
	}
	if !w.to.IsZero() {
		to = w.to.UTC().AddDate(0, 0, 1).Format(entities.DateLayout)
	}
	return from, to
}

func (w timeWindow) overlaps(event entities.CalendarEvent) bool {
	start := eventTime(event.Start)
	end := start
	if event.End != "" {
		end = eventTime(event.End)
	}
	if !w.to.IsZero() && !start.Before(w.to) {
		return false
	}
	if !w.from.IsZero() && end.Before(w.from) {
		return false
	}
	return true
}

func eventTime(value string) time.Time {
	t, _ := parseEventTime(value)
	return t
}
