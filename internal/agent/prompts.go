package agent

import (
	"fmt"
	"strings"

	"github.com/kurtgav/tinker/internal/tools"
)

// personaPrompt is the system message for the small-talk path.
const personaPrompt = "You are Tinker, a helpful AI assistant. Be brief and friendly."

// classifyPromptFormat asks for exactly one label token. The response
// is matched case-insensitively; anything outside the vocabulary is
// treated as unknown by the caller.
const classifyPromptFormat = `Classify the intent of the following user message sent to a bot named 'Tinker'.

Intents:
- 'search': The user wants to find information, look something up, or asks a question that requires external knowledge.
- 'chat': The user is greeting, thanking, or making small talk.
- 'unknown': The intent is unclear.

Message: %q

Respond ONLY with the intent label (search, chat, unknown). Do not add punctuation or explanation.`

// reactPromptFormat is the instruction message for the tool-use loop.
// The %s slots take the registry's description block and the
// comma-joined tool names. The Thought/Action/Action Input/Observation
// vocabulary here is load-bearing: the parser and the stop sequence
// both depend on it.
const reactPromptFormat = `You are Tinker, an autonomous agent.
You have access to the following tools:
%s

Use the following format:
Task: the input task you must solve
Thought: you should always think about what to do
Action: the action to take, should be one of [%s]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input task

Begin!`

// classifyPrompt renders the classification request for a message.
func classifyPrompt(message string) string {
	return fmt.Sprintf(classifyPromptFormat, message)
}

// reactSystemPrompt renders the loop instruction message for the
// current registry contents.
func reactSystemPrompt(registry *tools.Registry) string {
	return fmt.Sprintf(reactPromptFormat, registry.Describe(), strings.Join(registry.Names(), ", "))
}
