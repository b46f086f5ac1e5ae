package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/infrastructure/config"
	"github.com/memoria/core/internal/infrastructure/logger"
)

const sampleFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//memoria//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup@example.com\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240301T090000Z\r\n" +
	"DTEND:20240301T091500Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"LOCATION:Room 4\\, floor 2\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday@example.com\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20240302\r\n" +
	"DTEND;VALUE=DATE:20240303\r\n" +
	"SUMMARY:Holiday\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:broken@example.com\r\n" +
	"SUMMARY:No start\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParse(t *testing.T) {
	events, err := Parse(strings.NewReader(sampleFeed))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "standup@example.com", events[0].ID)
	assert.Equal(t, "Standup", events[0].Title)
	assert.Equal(t, "Room 4, floor 2", events[0].Location)
	assert.Equal(t, "2024-03-01T09:00:00Z", events[0].Start)
	assert.Equal(t, "2024-03-01T09:15:00Z", events[0].End)
	assert.False(t, events[0].AllDay)

	assert.True(t, events[1].AllDay)
	assert.Equal(t, "2024-03-02", events[1].Start)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := NewClient(config.CalendarConfig{FetchTimeout: time.Second}, logger.NewNop())
	events, err := client.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestFetchTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(config.CalendarConfig{FetchTimeout: 50 * time.Millisecond}, logger.NewNop())
	_, err := client.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/a.ics", normalizeURL("webcal://example.com/a.ics"))
	assert.Equal(t, "http://x/a.ics", normalizeURL("http://x/a.ics"))
}
