package tools

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/kurtgav/tinker/internal/llm"
)

// summarizeMaxInput caps the content sent to the model. Longer inputs
// are truncated rather than rejected; a summary of the first part still
// beats an error.
const summarizeMaxInput = 10000

// RegisterSummarizeTool adds the summarize_page tool, which condenses
// text through a single fast-model completion.
func RegisterSummarizeTool(r *Registry, client llm.Client, model string) {
	r.Register(&Tool{
		Name: "summarize_page",
		Params: []Param{
			{Name: "content", Type: "string"},
		},
		Description: "Summarizes the given text content. Useful after reading a page to condense it.",
		Handler: func(ctx context.Context, input string) (string, error) {
			if input == "" {
				return "", fmt.Errorf("summarize_page: content is required")
			}
			input = truncateUTF8(input, summarizeMaxInput)

			resp, err := client.Chat(ctx, llm.ChatRequest{
				Model: model,
				Messages: []llm.Message{
					{
						Role:    llm.RoleSystem,
						Content: "You are a helpful assistant that summarizes text. Keep it concise and capture the main points.",
					},
					{
						Role:    llm.RoleUser,
						Content: "Summarize the following text:\n\n" + input,
					},
				},
				MaxTokens: 500,
			})
			if err != nil {
				return "", fmt.Errorf("summarize_page: %w", err)
			}
			return resp.Content, nil
		},
	})
}

// truncateUTF8 cuts a string to at most maxChars bytes without breaking
// a multi-byte character.
func truncateUTF8(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
