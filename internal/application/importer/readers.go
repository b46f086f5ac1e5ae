package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/memoria/core/internal/domain/entities"
)

// rawEntry is a row as the browser stores it, before timestamp conversion
type rawEntry struct {
	URL   string
	Title string
	Raw   string
	Kind  entities.ImportKind
}

const (
	chromiumHistoryQuery = `
		SELECT url, title, last_visit_time
		FROM urls
		WHERE url IS NOT NULL
		ORDER BY last_visit_time DESC
		LIMIT ?`

	firefoxHistoryQuery = `
		SELECT url, title, last_visit_date
		FROM moz_places
		WHERE url IS NOT NULL AND last_visit_date IS NOT NULL
		ORDER BY last_visit_date DESC
		LIMIT ?`

	firefoxBookmarksQuery = `
		SELECT p.url, COALESCE(b.title, p.title), b.dateAdded
		FROM moz_bookmarks b
		JOIN moz_places p ON p.id = b.fk
		WHERE b.type = 1 AND p.url IS NOT NULL
		ORDER BY b.dateAdded DESC
		LIMIT ?`
)

// queryEntries runs one bounded query against a staged database
func queryEntries(ctx context.Context, db *sqlx.DB, query string, limit int, kind entities.ImportKind) ([]rawEntry, error) {
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []rawEntry
	for rows.Next() {
		var (
			url   string
			title sql.NullString
			raw   interface{}
		)
		if err := rows.Scan(&url, &title, &raw); err != nil {
			return nil, err
		}
		entries = append(entries, rawEntry{URL: url, Title: title.String, Raw: rawString(raw), Kind: kind})
	}

	return entries, rows.Err()
}

// chromiumBookmarkNode mirrors the Bookmarks JSON tree
type chromiumBookmarkNode struct {
	Type      string                 `json:"type"`
	Name      string                 `json:"name"`
	URL       string                 `json:"url"`
	DateAdded string                 `json:"date_added"`
	Children  []chromiumBookmarkNode `json:"children"`
}

type chromiumBookmarksFile struct {
	Roots map[string]chromiumBookmarkNode `json:"roots"`
}

// readChromiumBookmarks walks every root of the Bookmarks file and returns the
// newest limit URL entries
func readChromiumBookmarks(path string, limit int) ([]rawEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file chromiumBookmarksFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode bookmarks: %w", err)
	}

	var entries []rawEntry
	var walk func(n chromiumBookmarkNode)
	walk = func(n chromiumBookmarkNode) {
		if n.Type == "url" && n.URL != "" {
			entries = append(entries, rawEntry{URL: n.URL, Title: n.Name, Raw: n.DateAdded, Kind: entities.ImportKindBookmark})
		}
		for _, child := range n.Children {
			walk(child)
		}
	}

	roots := make([]string, 0, len(file.Roots))
	for name := range file.Roots {
		roots = append(roots, name)
	}
	sort.Strings(roots)
	for _, name := range roots {
		walk(file.Roots[name])
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, _ := strconv.ParseInt(entries[i].Raw, 10, 64)
		b, _ := strconv.ParseInt(entries[j].Raw, 10, 64)
		return a > b
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
