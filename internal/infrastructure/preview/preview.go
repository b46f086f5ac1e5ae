// Package preview extracts link metadata from web pages.
package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
)

const maxPageBytes = 2 << 20

// Metadata is what a page says about itself
type Metadata struct {
	Title       string
	Description string
	Image       string
	Favicon     string
}

// Fetcher downloads pages and images with per-request timeouts
type Fetcher struct {
	http         *http.Client
	timeout      time.Duration
	imageTimeout time.Duration
	faviconURL   string
}

// NewFetcher creates a fetcher from configuration
func NewFetcher(cfg config.PreviewConfig) *Fetcher {
	return &Fetcher{
		http:         &http.Client{},
		timeout:      cfg.Timeout,
		imageTimeout: cfg.ImageTimeout,
		faviconURL:   cfg.FaviconURL,
	}
}

// Fetch downloads target and parses its metadata. Relative image and icon
// references are resolved against the final page URL. When the page declares
// no icon the favicon service URL is used.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*Metadata, error) {
	pageURL, err := url.Parse(target)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return nil, fmt.Errorf("%w: url must be absolute http(s)", entities.ErrValidation)
	}

	ctx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build preview request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; memoria-preview)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	meta, err := Parse(io.LimitReader(resp.Body, maxPageBytes), resp.Request.URL)
	if err != nil {
		return nil, err
	}
	if meta.Favicon == "" {
		meta.Favicon = f.FallbackFavicon(resp.Request.URL.Hostname())
	}

	return meta, nil
}

// FallbackFavicon builds the favicon service URL for host
func (f *Fetcher) FallbackFavicon(host string) string {
	if f.faviconURL == "" {
		return ""
	}
	return fmt.Sprintf(f.faviconURL, url.QueryEscape(host))
}

// OpenImage starts downloading an image. The caller must close the body.
func (f *Fetcher) OpenImage(ctx context.Context, imageURL string) (io.ReadCloser, error) {
	ctx, cancel := withTimeout(ctx, f.imageTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build image request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Parse walks an HTML document collecting OpenGraph, meta and link tags
func Parse(r io.Reader, base *url.URL) (*Metadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var (
		meta                       Metadata
		ogTitle, ogDesc, titleText string
		description, icon          string
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if titleText == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					titleText = n.FirstChild.Data
				}
			case atom.Meta:
				key := strings.ToLower(attr(n, "property"))
				if key == "" {
					key = strings.ToLower(attr(n, "name"))
				}
				content := attr(n, "content")
				switch key {
				case "og:title", "twitter:title":
					if ogTitle == "" {
						ogTitle = content
					}
				case "og:description", "twitter:description":
					if ogDesc == "" {
						ogDesc = content
					}
				case "description":
					if description == "" {
						description = content
					}
				case "og:image", "og:image:url", "twitter:image":
					if meta.Image == "" {
						meta.Image = content
					}
				}
			case atom.Link:
				rel := strings.ToLower(attr(n, "rel"))
				if icon == "" && strings.Contains(rel, "icon") {
					icon = attr(n, "href")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	meta.Title = strings.TrimSpace(firstNonEmpty(ogTitle, titleText))
	meta.Description = strings.TrimSpace(firstNonEmpty(ogDesc, description))
	meta.Image = resolve(base, meta.Image)
	meta.Favicon = resolve(base, icon)

	return &meta, nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
