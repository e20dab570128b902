package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kurtgav/tinker/internal/llm"
)

// Intent is the coarse category assigned to an inbound message before
// deciding whether to enter the tool-use loop.
type Intent string

const (
	IntentChat    Intent = "chat"
	IntentSearch  Intent = "search"
	IntentUnknown Intent = "unknown"
)

// Classifier labels messages with a single deterministic completion.
type Classifier struct {
	client llm.Client
	model  string
	logger *slog.Logger
}

// NewClassifier creates an intent classifier using the given model.
func NewClassifier(client llm.Client, model string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, model: model, logger: logger}
}

// Classify returns the intent label for a message. Service failures and
// out-of-vocabulary responses both fold into IntentUnknown; this method
// never fails. Downstream, unknown takes the same path as search.
func (c *Classifier) Classify(ctx context.Context, message string) Intent {
	resp, err := c.client.Chat(ctx, llm.ChatRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: classifyPrompt(message)},
		},
		Temperature: llm.Temp(0),
		MaxTokens:   10,
	})
	if err != nil {
		c.logger.Warn("intent classification failed", "error", err)
		return IntentUnknown
	}

	label := strings.ToLower(strings.TrimSpace(resp.Content))
	switch Intent(label) {
	case IntentChat, IntentSearch, IntentUnknown:
		return Intent(label)
	}

	c.logger.Debug("unrecognized intent label", "label", label)
	return IntentUnknown
}
