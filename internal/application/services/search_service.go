package services

import (
	"context"
	"sort"
	"strings"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/ports"
)

const (
	defaultSearchLimit = 50
	snippetLength      = 160
)

// SearchService runs substring search across memos, bookmarks and browser data
type SearchService struct {
	search   ports.SearchRepository
	imported ports.ImportedRecordRepository
}

// NewSearchService creates a search service
func NewSearchService(search ports.SearchRepository, imported ports.ImportedRecordRepository) *SearchService {
	return &SearchService{search: search, imported: imported}
}

// Search returns up to limit hits for query, newest first. A blank query
// returns nothing.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]entities.SearchResult, error) {
	query = strings.TrimSpace(query)
	results := []entities.SearchResult{}
	if query == "" {
		return results, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	memos, err := s.search.SearchMemos(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	for _, m := range memos {
		results = append(results, entities.SearchResult{
			Kind: "memo", ID: m.ID, Title: firstLine(m.Content), Snippet: snippet(m.Content), Timestamp: m.UpdatedAt,
		})
	}

	bookmarks, err := s.search.SearchBookmarks(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	for _, b := range bookmarks {
		results = append(results, entities.SearchResult{
			Kind: "bookmark", ID: b.ID, Title: b.Title, URL: b.URL, Snippet: snippet(b.Description), Timestamp: b.UpdatedAt,
		})
	}

	for _, kind := range []entities.ImportKind{entities.ImportKindHistory, entities.ImportKindBookmark} {
		records, err := s.imported.Search(ctx, kind, query, limit)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			results = append(results, entities.SearchResult{
				Kind: "browser_" + string(kind), ID: r.ID, Title: r.Title, URL: r.URL, Timestamp: r.Timestamp,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp > results[j].Timestamp
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return snippet(line)
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "…"
}
