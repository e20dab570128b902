package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/kurtgav/tinker/internal/llm"
)

// labelClient returns a fixed classification response.
type labelClient struct {
	content string
	err     error
	lastReq llm.ChatRequest
}

func (c *labelClient) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.ChatResponse{Content: c.content}, nil
}

func (c *labelClient) Ping(ctx context.Context) error { return nil }

func TestClassifyLabels(t *testing.T) {
	tests := []struct {
		response string
		want     Intent
	}{
		{"chat", IntentChat},
		{"search", IntentSearch},
		{"unknown", IntentUnknown},
		{"  Chat  ", IntentChat},
		{"SEARCH", IntentSearch},
		{"banana", IntentUnknown},
		{"", IntentUnknown},
		{"search.", IntentUnknown}, // punctuation breaks the vocabulary
	}

	for _, tt := range tests {
		c := NewClassifier(&labelClient{content: tt.response}, "fast", nil)
		if got := c.Classify(context.Background(), "hello"); got != tt.want {
			t.Errorf("Classify with response %q = %q, want %q", tt.response, got, tt.want)
		}
	}
}

func TestClassifyServiceErrorFoldsToUnknown(t *testing.T) {
	c := NewClassifier(&labelClient{err: fmt.Errorf("service down")}, "fast", nil)
	if got := c.Classify(context.Background(), "hello"); got != IntentUnknown {
		t.Errorf("Classify on error = %q, want unknown", got)
	}
}

func TestClassifyRequestShape(t *testing.T) {
	client := &labelClient{content: "chat"}
	c := NewClassifier(client, "fast-model", nil)
	c.Classify(context.Background(), "hi there")

	req := client.lastReq
	if req.Model != "fast-model" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Temperature == nil || *req.Temperature != 0 {
		t.Errorf("temperature = %v, want explicit 0 (deterministic)", req.Temperature)
	}
	if req.MaxTokens != 10 {
		t.Errorf("max tokens = %d, want 10", req.MaxTokens)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != llm.RoleUser {
		t.Errorf("messages = %+v", req.Messages)
	}
}
