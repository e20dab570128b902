package agent

import (
	"regexp"
	"strings"
)

// finalAnswerMarker terminates the loop when present in model output.
const finalAnswerMarker = "Final Answer:"

// actionPattern matches the Action/Action Input pair. (?s) lets the
// input capture span multiple lines since models frequently emit multi-line
// tool inputs and the protocol tolerates that.
var actionPattern = regexp.MustCompile(`(?s)Action:[ \t]*(\w+)[ \t]*\r?\nAction Input:[ \t]*(.+)`)

// extractFinalAnswer returns the text following the last final-answer
// marker, trimmed, and whether the marker was present.
func extractFinalAnswer(output string) (string, bool) {
	idx := strings.LastIndex(output, finalAnswerMarker)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(output[idx+len(finalAnswerMarker):]), true
}

// parseAction extracts the tool name and input from model output.
// Returns ok=false when the output does not follow the action protocol;
// the caller treats that as a free-text answer, not an error.
func parseAction(output string) (name, input string, ok bool) {
	m := actionPattern.FindStringSubmatch(output)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}
