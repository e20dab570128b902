package llm

import "time"

// Message roles. The completion API accepts exactly these three.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message for the completion service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral completion request.
type ChatRequest struct {
	Model    string
	Messages []Message

	// Temperature, when non-nil, overrides the provider default.
	// A pointer so that an explicit 0 (deterministic sampling) survives
	// serialization.
	Temperature *float64

	// MaxTokens caps the generated output length. Zero means provider default.
	MaxTokens int

	// Stop sequences halt generation when emitted by the model.
	Stop []string
}

// ChatResponse is the unified response from a completion provider.
// Wire format conversion happens at the provider boundary (groq.go).
type ChatResponse struct {
	Model        string
	CreatedAt    time.Time
	Content      string
	FinishReason string

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int
}

// Temp returns a pointer to v, for ChatRequest.Temperature literals.
func Temp(v float64) *float64 { return &v }
