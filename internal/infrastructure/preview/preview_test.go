package preview

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
)

const page = `<!doctype html><html><head>
<title> Plain title </title>
<meta name="description" content="fallback description">
<meta property="og:title" content="Open Graph Title">
<meta property="og:image" content="/img/cover.png">
<link rel="shortcut icon" href="favicon.ico">
</head><body></body></html>`

func TestParse(t *testing.T) {
	base, _ := url.Parse("https://example.com/articles/1")
	meta, err := Parse(strings.NewReader(page), base)
	require.NoError(t, err)

	assert.Equal(t, "Open Graph Title", meta.Title)
	assert.Equal(t, "fallback description", meta.Description)
	assert.Equal(t, "https://example.com/img/cover.png", meta.Image)
	assert.Equal(t, "https://example.com/articles/favicon.ico", meta.Favicon)
}

func TestFetchFallsBackToFaviconService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Bare</title></head></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(config.PreviewConfig{Timeout: time.Second, FaviconURL: "https://icons.test/?domain=%s"})
	meta, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Bare", meta.Title)
	assert.Equal(t, "https://icons.test/?domain=127.0.0.1", meta.Favicon)
}

func TestFetchRejectsNonHTTP(t *testing.T) {
	f := NewFetcher(config.PreviewConfig{})
	_, err := f.Fetch(context.Background(), "file:///etc/passwd")
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestOpenImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	f := NewFetcher(config.PreviewConfig{ImageTimeout: time.Second})
	body, err := f.OpenImage(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "bytes", string(data))

	_, err = f.OpenImage(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}
