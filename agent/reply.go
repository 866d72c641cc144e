package agent

import (
	"strings"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

// fallbackReply is substituted when the model's answer carries no body text
// besides the sentinel line.
const fallbackReply = "Completed."

// parseReply splits the model's reply into body text and terminal state. The
// last non-empty trimmed line, upper-cased, is the control sentinel:
// COMPLETED maps to completed, AWAITING_USER_INPUT to input-required. Any
// other value is reported as unexpected and defaults to completed so a model
// deviating from the output protocol never strands a task in a non-terminal
// state.
func parseReply(text string) (body string, state protocol.TaskState, unexpected bool) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	sentinel := strings.ToUpper(strings.TrimSpace(lines[len(lines)-1]))
	body = strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n"))
	if body == "" {
		body = fallbackReply
	}

	switch sentinel {
	case "COMPLETED":
		state = protocol.TaskStateCompleted
	case "AWAITING_USER_INPUT":
		state = protocol.TaskStateInputRequired
	default:
		state = protocol.TaskStateCompleted
		unexpected = true
	}
	return body, state, unexpected
}

// messageText concatenates the text-bearing parts of a message. Non-text
// parts are ignored for prompt construction.
func messageText(msg protocol.Message) string {
	var texts []string
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case protocol.TextPart:
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		case *protocol.TextPart:
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
	}
	return strings.Join(texts, "\n")
}
