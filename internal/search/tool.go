package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kurtgav/tinker/internal/tools"
)

// RegisterTool adds the web_search tool backed by the manager's primary
// provider. The tool takes the raw Action Input text as the query and
// returns a numbered markdown result list.
func RegisterTool(r *tools.Registry, mgr *Manager) {
	r.Register(&tools.Tool{
		Name: "web_search",
		Params: []tools.Param{
			{Name: "query", Type: "string"},
		},
		Description: "Performs a web search and returns titles, URLs, and snippets of the top results.",
		Handler: func(ctx context.Context, input string) (string, error) {
			query := strings.TrimSpace(input)
			if query == "" {
				return "", fmt.Errorf("web_search: query is required")
			}

			results, err := mgr.Search(ctx, query, Options{})
			if err != nil {
				return "", fmt.Errorf("web_search: %w", err)
			}

			return FormatResults(results), nil
		},
	})
}
