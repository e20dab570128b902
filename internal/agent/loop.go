// Package agent implements the core orchestration loop: admission,
// intent classification, and the think/act/observe cycle that drives
// tool use until a final answer is produced or the step budget runs out.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kurtgav/tinker/internal/llm"
	"github.com/kurtgav/tinker/internal/ratelimit"
	"github.com/kurtgav/tinker/internal/tools"
)

// DefaultMaxSteps bounds the think/act/observe iterations per request.
const DefaultMaxSteps = 5

// maxStepsMessage is returned when the step budget is exhausted.
const maxStepsMessage = "I processed the task but reached the maximum number of steps without a final answer."

// chatHistoryWindow and reactHistoryWindow cap how many prior turns are
// replayed into each path's prompt.
const (
	chatHistoryWindow  = 10
	reactHistoryWindow = 5
)

// Config wires an Agent's collaborators and models.
type Config struct {
	Client   llm.Client
	Registry *tools.Registry
	Limiter  *ratelimit.Limiter

	// FastModel handles small talk; ReasoningModel drives the loop.
	FastModel      string
	ReasoningModel string

	// MaxSteps bounds loop iterations. Zero means DefaultMaxSteps.
	MaxSteps int

	// RateLimitMessage is shown on admission rejection. Empty selects
	// a generic default.
	RateLimitMessage string
}

// Agent is the orchestration entry point shared by all chat surfaces.
type Agent struct {
	logger           *slog.Logger
	client           llm.Client
	registry         *tools.Registry
	limiter          *ratelimit.Limiter
	classifier       *Classifier
	fastModel        string
	reasoningModel   string
	maxSteps         int
	rateLimitMessage string
}

// New creates an agent. All collaborators are injected; the agent owns
// no hidden global state.
func New(logger *slog.Logger, cfg Config) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	msg := cfg.RateLimitMessage
	if msg == "" {
		msg = "You have reached the rate limit. Please try again later."
	}
	return &Agent{
		logger:           logger,
		client:           cfg.Client,
		registry:         cfg.Registry,
		limiter:          cfg.Limiter,
		classifier:       NewClassifier(cfg.Client, cfg.FastModel, logger),
		fastModel:        cfg.FastModel,
		reasoningModel:   cfg.ReasoningModel,
		maxSteps:         maxSteps,
		rateLimitMessage: msg,
	}
}

// RateLimitMessage formats the standard admission-rejection text for
// the given limits.
func RateLimitMessage(maxRequests int, period time.Duration) string {
	return fmt.Sprintf("You have reached the rate limit (%d requests per %d minutes). Please try again later.",
		maxRequests, int(period.Minutes()))
}

// HandleMessage processes one inbound message and returns the reply
// text. history is the prior conversation, oldest first; it is read,
// never mutated. The only error returned is a completion-service
// failure; everything else resolves to reply text.
func (a *Agent) HandleMessage(ctx context.Context, text string, history []llm.Message, userID string) (string, error) {
	logger := a.logger.With("request_id", uuid.NewString()[:8], "user", userID)

	// Admission comes first: a rejected request does no classification,
	// no tool use, and records nothing.
	if !a.limiter.Admit(userID) {
		logger.Info("request rejected by rate limiter")
		return a.rateLimitMessage, nil
	}

	// Bind the acting user for tools invoked during this request. Each
	// request carries its own binding in its context.
	ctx = tools.WithUserID(ctx, userID)

	intent := a.classifier.Classify(ctx, text)
	logger.Info("message classified", "intent", intent)

	if intent == IntentChat {
		return a.handleChat(ctx, text, history)
	}
	// search and unknown both enter the full loop; unknown messages are
	// treated as potential tasks rather than bounced.
	return a.runReactLoop(ctx, logger, text, history)
}

// handleChat answers small talk with a single completion. No tools.
func (a *Agent) handleChat(ctx context.Context, text string, history []llm.Message) (string, error) {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: personaPrompt}}
	messages = append(messages, filterHistory(history, chatHistoryWindow)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})

	resp, err := a.client.Chat(ctx, llm.ChatRequest{
		Model:    a.fastModel,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return resp.Content, nil
}

// runReactLoop executes the think/act/observe cycle for a task.
func (a *Agent) runReactLoop(ctx context.Context, logger *slog.Logger, task string, history []llm.Message) (string, error) {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: reactSystemPrompt(a.registry)}}
	messages = append(messages, filterHistory(history, reactHistoryWindow)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: "Task: " + task})

	for step := 1; step <= a.maxSteps; step++ {
		// The stop sequence halts generation before the model invents
		// its own observation; the loop supplies the real one below.
		resp, err := a.client.Chat(ctx, llm.ChatRequest{
			Model:    a.reasoningModel,
			Messages: messages,
			Stop:     []string{"Observation:"},
		})
		if err != nil {
			return "", fmt.Errorf("completion failed at step %d: %w", step, err)
		}

		output := resp.Content
		logger.Debug("loop step", "step", step, "output_len", len(output))

		// Every step sees the full transcript so far.
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: output})

		if answer, done := extractFinalAnswer(output); done {
			logger.Info("final answer produced", "steps", step)
			return answer, nil
		}

		name, input, ok := parseAction(output)
		if !ok {
			// The model broke protocol. Its raw reply is still more
			// useful to the user than a hard failure.
			logger.Info("model output did not follow action protocol, returning as answer", "step", step)
			return output, nil
		}

		observation := a.invokeTool(ctx, logger, name, input)
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: "Observation: " + observation})
	}

	logger.Info("step budget exhausted", "max_steps", a.maxSteps)
	return maxStepsMessage, nil
}

// invokeTool resolves and runs a tool, converting every failure mode
// (unknown name, returned error, panic) into observation text the
// model reads on the next step.
func (a *Agent) invokeTool(ctx context.Context, logger *slog.Logger, name, input string) (observation string) {
	tool := a.registry.Get(name)
	if tool == nil {
		logger.Warn("unknown tool requested", "tool", name)
		return fmt.Sprintf("Tool '%s' not found.", name)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool panicked", "tool", name, "panic", r)
			observation = fmt.Sprintf("Error executing %s: %v", name, r)
		}
	}()

	result, err := tool.Handler(ctx, input)
	if err != nil {
		logger.Warn("tool failed", "tool", name, "error", err)
		return fmt.Sprintf("Error executing %s: %v", name, err)
	}

	logger.Debug("tool executed", "tool", name, "result_len", len(result))
	return result
}

// filterHistory keeps the last n user/assistant turns, preserving
// order. System and any other roles are dropped: replayed history must
// not smuggle in instructions.
func filterHistory(history []llm.Message, n int) []llm.Message {
	var filtered []llm.Message
	for _, m := range history {
		if m.Role == llm.RoleUser || m.Role == llm.RoleAssistant {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}
