package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/kurtgav/tinker/internal/tools"
)

// RegisterTool adds the read_page tool. The Action Input is the URL to
// read; the result is the page title followed by its readable text,
// sized for feeding back into the reasoning transcript.
func RegisterTool(r *tools.Registry, f *Fetcher) {
	r.Register(&tools.Tool{
		Name: "read_page",
		Params: []tools.Param{
			{Name: "url", Type: "string"},
		},
		Description: "Fetches a web page and returns its readable text content. Refuses disallowed domains.",
		Handler: func(ctx context.Context, input string) (string, error) {
			url := strings.TrimSpace(input)
			if url == "" {
				return "", fmt.Errorf("read_page: url is required")
			}

			// Observations share the transcript with everything else;
			// keep pages well under the full extraction limit.
			result, err := f.Fetch(ctx, url, 8000)
			if err != nil {
				return "", err
			}

			if result.Title != "" {
				return fmt.Sprintf("Title: %s\n\n%s", result.Title, result.Content), nil
			}
			return result.Content, nil
		},
	})
}
