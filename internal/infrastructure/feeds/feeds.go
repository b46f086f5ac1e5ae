// Package feeds fetches and parses external ICS calendar feeds.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
	"github.com/memoria/core/internal/infrastructure/logger"
)

const maxFeedBytes = 8 << 20

// Client downloads ICS feeds
type Client struct {
	http    *http.Client
	timeout time.Duration
	logger  *logger.Logger
}

// NewClient creates a feed client honoring the configured fetch timeout
func NewClient(cfg config.CalendarConfig, appLogger *logger.Logger) *Client {
	return &Client{
		http:    &http.Client{},
		timeout: cfg.FetchTimeout,
		logger:  appLogger.WithComponent("feeds"),
	}
}

// Fetch downloads url and returns its events
func (c *Client) Fetch(ctx context.Context, url string) ([]entities.CalendarEvent, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalizeURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}

	events, err := Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, err
	}

	c.logger.Debugw("Feed fetched", "url", url, "events", len(events))

	return events, nil
}

// webcal:// is an alias clients use for https feeds
func normalizeURL(url string) string {
	if strings.HasPrefix(url, "webcal://") {
		return "https://" + strings.TrimPrefix(url, "webcal://")
	}
	return url
}

// Parse reads an ICS document into unified calendar events. Events without a
// parseable start are dropped.
func Parse(r io.Reader) ([]entities.CalendarEvent, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	events := make([]entities.CalendarEvent, 0, len(cal.Events()))
	for _, ev := range cal.Events() {
		event, ok := convert(ev)
		if !ok {
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

func convert(ev *ics.VEvent) (entities.CalendarEvent, bool) {
	event := entities.CalendarEvent{
		ID:          ev.Id(),
		Title:       propertyValue(ev, ics.ComponentPropertySummary),
		Description: propertyValue(ev, ics.ComponentPropertyDescription),
		Location:    propertyValue(ev, ics.ComponentPropertyLocation),
		Origin:      "feed",
	}

	start := ev.GetProperty(ics.ComponentPropertyDtStart)
	if start == nil {
		return event, false
	}

	// a DATE value (no time part) marks an all-day event
	if len(start.Value) == len("20060102") {
		event.AllDay = true
		startAt, err := ev.GetAllDayStartAt()
		if err != nil {
			return event, false
		}
		event.Start = startAt.Format(entities.DateLayout)
		if endAt, err := ev.GetAllDayEndAt(); err == nil {
			event.End = endAt.Format(entities.DateLayout)
		}
		return event, true
	}

	startAt, err := ev.GetStartAt()
	if err != nil {
		return event, false
	}
	event.Start = startAt.UTC().Format(time.RFC3339)
	if endAt, err := ev.GetEndAt(); err == nil {
		event.End = endAt.UTC().Format(time.RFC3339)
	}

	return event, true
}

func propertyValue(ev *ics.VEvent, prop ics.ComponentProperty) string {
	p := ev.GetProperty(prop)
	if p == nil {
		return ""
	}
	return unescape(p.Value)
}

func unescape(value string) string {
	return strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`).Replace(value)
}
