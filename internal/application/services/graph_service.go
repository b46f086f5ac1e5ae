package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

const (
	graphMaxTags     = 60
	graphLinksPerTag = 5
)

// GraphService derives the tag graph from memos and links tags to saved pages
type GraphService struct {
	memos    ports.Repository[entities.Memo]
	search   ports.SearchRepository
	imported ports.ImportedRecordRepository
	logger   *logger.Logger
}

// NewGraphService creates a graph service
func NewGraphService(memos ports.Repository[entities.Memo], search ports.SearchRepository, imported ports.ImportedRecordRepository, appLogger *logger.Logger) *GraphService {
	return &GraphService{
		memos:    memos,
		search:   search,
		imported: imported,
		logger:   appLogger.WithComponent("graph"),
	}
}

// Build returns tag nodes weighted by how many memos use them, co-occurrence
// edges between tags of the same memo, and edges from each tag to bookmarks and
// history entries whose title contains it.
func (s *GraphService) Build(ctx context.Context) (*entities.Graph, error) {
	memos, err := s.allMemos(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	pairs := map[[2]string]int{}
	for _, memo := range memos {
		tags := normalizeTags(memo.Tags, ExtractTags(memo.Content)...)
		sort.Strings(tags)
		for i, a := range tags {
			counts[a]++
			for _, b := range tags[i+1:] {
				pairs[[2]string{a, b}]++
			}
		}
	}

	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > graphMaxTags {
		tags = tags[:graphMaxTags]
	}

	graph := &entities.Graph{Nodes: []entities.GraphNode{}, Edges: []entities.GraphEdge{}}
	kept := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		kept[tag] = struct{}{}
		graph.Nodes = append(graph.Nodes, entities.GraphNode{ID: tagNodeID(tag), Label: "#" + tag, Kind: "tag", Count: counts[tag]})
	}

	pairKeys := make([][2]string, 0, len(pairs))
	for pair := range pairs {
		pairKeys = append(pairKeys, pair)
	}
	sort.Slice(pairKeys, func(i, j int) bool {
		if pairKeys[i][0] != pairKeys[j][0] {
			return pairKeys[i][0] < pairKeys[j][0]
		}
		return pairKeys[i][1] < pairKeys[j][1]
	})
	for _, pair := range pairKeys {
		_, okA := kept[pair[0]]
		_, okB := kept[pair[1]]
		if okA && okB {
			graph.Edges = append(graph.Edges, entities.GraphEdge{Source: tagNodeID(pair[0]), Target: tagNodeID(pair[1]), Weight: pairs[pair]})
		}
	}

	linked := map[string]struct{}{}
	addLink := func(tag string, node entities.GraphNode) {
		if _, seen := linked[node.ID]; !seen {
			linked[node.ID] = struct{}{}
			graph.Nodes = append(graph.Nodes, node)
		}
		graph.Edges = append(graph.Edges, entities.GraphEdge{Source: tagNodeID(tag), Target: node.ID, Weight: 1})
	}

	for _, tag := range tags {
		bookmarks, err := s.search.SearchBookmarks(ctx, tag, graphLinksPerTag)
		if err != nil {
			return nil, err
		}
		for _, b := range bookmarks {
			addLink(tag, entities.GraphNode{ID: "bookmark:" + b.ID, Label: b.Title, Kind: "bookmark", URL: b.URL, Count: 1})
		}

		history, err := s.imported.Search(ctx, entities.ImportKindHistory, tag, graphLinksPerTag)
		if err != nil {
			return nil, err
		}
		for _, h := range history {
			addLink(tag, entities.GraphNode{ID: "history:" + h.ID, Label: h.Title, Kind: "history", URL: h.URL, Count: 1})
		}
	}

	s.logger.Debugw("Graph built", "tags", len(tags), "nodes", len(graph.Nodes), "edges", len(graph.Edges))

	return graph, nil
}

func tagNodeID(tag string) string {
	return "tag:" + tag
}

const graphPageSize = 500

// allMemos pages through the memo table so the graph covers every memo
func (s *GraphService) allMemos(ctx context.Context) ([]*entities.Memo, error) {
	var memos []*entities.Memo
	for offset := 0; ; offset += graphPageSize {
		page, err := s.memos.List(ctx, ports.ListFilter{Limit: graphPageSize, Offset: offset, SortBy: "id", SortOrder: "asc"})
		if err != nil {
			return nil, fmt.Errorf("list memos for graph: %w", err)
		}
		memos = append(memos, page...)
		if len(page) < graphPageSize {
			return memos, nil
		}
	}
}
