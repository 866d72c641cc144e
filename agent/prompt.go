package agent

import (
	"fmt"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"github.com/hupe1980/moviemesh/model"
)

// systemPromptTemplate instructs the model on its role, its tools and the
// terminal-sentinel output protocol. {{now}} is substituted per execution.
const systemPromptTemplate = `You are a movie expert. Answer the user's question about movies and film industry personalities, using the searchMovies and searchPeople tools to find out more information as needed. Feel free to call them multiple times in parallel if necessary.

The current date and time is: {{now}}

If the user asks you for specific information about a movie or person (such as the plot or a specific role an actor played), do a search for that movie/actor using the available functions before responding.

## Output Instructions

ALWAYS end your response with either "COMPLETED" or "AWAITING_USER_INPUT" on its own line. If you have answered the user's question, use COMPLETED. If you need more information to answer the question, use AWAITING_USER_INPUT.

Example:
User: when was [some_movie] released?
Assistant: [some_movie] was released on October 3, 1992.
COMPLETED`

// systemPrompt substitutes the current timestamp into the template and
// appends a goal directive when either the existing task's metadata or the
// incoming message's metadata carries one.
func (e *Executor) systemPrompt(reqCtx RequestContext) string {
	prompt := strings.Replace(systemPromptTemplate, "{{now}}", e.now().UTC().Format(time.RFC3339), 1)
	if goal := goalDirective(reqCtx); goal != "" {
		prompt += fmt.Sprintf("\n\nYour goal in this task is: %s", goal)
	}
	return prompt
}

// goalDirective prefers the task's goal over the message's.
func goalDirective(reqCtx RequestContext) string {
	if reqCtx.Task != nil {
		if goal, ok := reqCtx.Task.Metadata["goal"].(string); ok && goal != "" {
			return goal
		}
	}
	if goal, ok := reqCtx.UserMessage.Metadata["goal"].(string); ok && goal != "" {
		return goal
	}
	return ""
}

// assembleMessages flattens the conversation history into role-tagged text
// entries behind the system prompt. History messages without any text-bearing
// parts contribute nothing.
func (e *Executor) assembleMessages(reqCtx RequestContext) []model.Message {
	messages := []model.Message{{Role: "system", Content: e.systemPrompt(reqCtx)}}
	for _, msg := range e.store.History(reqCtx.ContextID) {
		text := messageText(msg)
		if text == "" {
			continue
		}
		role := "user"
		if msg.Role == protocol.MessageRoleAgent {
			role = "assistant"
		}
		messages = append(messages, model.Message{Role: role, Content: text})
	}
	return messages
}
