package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		body       string
		state      protocol.TaskState
		unexpected bool
	}{
		{
			name:  "completed",
			text:  "Forrest Gump was released on July 6, 1994.\nCOMPLETED",
			body:  "Forrest Gump was released on July 6, 1994.",
			state: protocol.TaskStateCompleted,
		},
		{
			name:  "awaiting user input",
			text:  "Which Batman movie do you mean?\nAWAITING_USER_INPUT",
			body:  "Which Batman movie do you mean?",
			state: protocol.TaskStateInputRequired,
		},
		{
			name:  "sentinel is case insensitive",
			text:  "Done.\ncompleted",
			body:  "Done.",
			state: protocol.TaskStateCompleted,
		},
		{
			name:  "surrounding whitespace trimmed",
			text:  "  Done.  \n  COMPLETED  \n",
			body:  "Done.",
			state: protocol.TaskStateCompleted,
		},
		{
			name:  "multi line body preserved",
			text:  "Line one.\nLine two.\nCOMPLETED",
			body:  "Line one.\nLine two.",
			state: protocol.TaskStateCompleted,
		},
		{
			name:  "sentinel only falls back to default body",
			text:  "COMPLETED",
			body:  fallbackReply,
			state: protocol.TaskStateCompleted,
		},
		{
			name:       "missing sentinel defaults to completed",
			text:       "An answer that forgot the protocol",
			body:       fallbackReply,
			state:      protocol.TaskStateCompleted,
			unexpected: true,
		},
		{
			name:       "unknown sentinel reported",
			text:       "Some answer.\nMAYBE_DONE",
			body:       "Some answer.",
			state:      protocol.TaskStateCompleted,
			unexpected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, state, unexpected := parseReply(tt.text)
			assert.Equal(t, tt.body, body)
			assert.Equal(t, tt.state, state)
			assert.Equal(t, tt.unexpected, unexpected)
		})
	}
}

func TestMessageText(t *testing.T) {
	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{
		protocol.NewTextPart("first"),
		protocol.NewTextPart(""),
		protocol.NewTextPart("second"),
	})
	assert.Equal(t, "first\nsecond", messageText(msg))

	empty := protocol.NewMessage(protocol.MessageRoleUser, nil)
	assert.Equal(t, "", messageText(empty))
}
