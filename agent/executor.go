package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"github.com/hupe1980/moviemesh/logging"
	"github.com/hupe1980/moviemesh/model"
	"github.com/hupe1980/moviemesh/tool"
)

// workingReply is the status text announced as soon as a task enters the
// working state, before any model call is made.
const workingReply = "Processing your question, hang tight!"

// toolPlaceholderReply stands in for the assistant turn when the first model
// round requested tools without producing any text of its own.
const toolPlaceholderReply = "Using tools to get information..."

// errCanceled aborts the conversation at the post-first-round checkpoint.
var errCanceled = errors.New("task canceled")

// RequestContext carries everything the executor needs to process one
// incoming user message. Task is nil for brand new tasks and carries the
// existing task for continuation turns (e.g. after input-required).
type RequestContext struct {
	TaskID      string
	ContextID   string
	UserMessage protocol.Message
	Task        *protocol.Task
}

// EventBus receives the ordered lifecycle events of a single execution. The
// executor publishes at most one Task event (new tasks only) followed by
// status update events, of which exactly the last one is final.
type EventBus interface {
	Publish(event protocol.Event)
}

// ContextStore is the conversation history the executor reads at context
// assembly time and appends committed messages to.
type ContextStore interface {
	History(contextID string) []protocol.Message
	AppendIfAbsent(contextID string, msg protocol.Message) bool
}

// Options configures an Executor.
type Options struct {
	// Logger used for diagnostics. Defaults to a no-op logger.
	Logger logging.Logger

	// Now supplies timestamps for status events and the system prompt.
	// Defaults to time.Now.
	Now func() time.Time
}

// Executor drives the two-round tool-calling conversation for incoming user
// messages and publishes the resulting task lifecycle events. It holds no
// per-task state of its own; the conversation store and the cancellation
// checker are shared collaborators injected at construction.
type Executor struct {
	model    model.Model
	registry *tool.Registry
	defs     []tool.Definition
	store    ContextStore
	canceled CancelChecker
	logger   logging.Logger
	now      func() time.Time
}

// NewExecutor creates an Executor. The tool definitions are advertised to the
// model on the first round of every execution; the registry resolves the
// calls the model makes against them.
func NewExecutor(m model.Model, registry *tool.Registry, defs []tool.Definition, store ContextStore, canceled CancelChecker, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		model:    m,
		registry: registry,
		defs:     defs,
		store:    store,
		canceled: canceled,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Execute processes one user message for the task identified by reqCtx. It
// always terminates the task on the bus: the last published event is a final
// status update in a terminal or input-required state. Failures inside the
// conversation are reported as failed status events rather than returned.
func (e *Executor) Execute(ctx context.Context, reqCtx RequestContext, bus EventBus) error {
	if reqCtx.Task == nil {
		task := e.newTask(reqCtx)
		reqCtx.Task = task
		bus.Publish(task)
	}

	working := e.agentMessage(reqCtx, workingReply)
	bus.Publish(e.statusUpdate(reqCtx, protocol.TaskStateWorking, &working, false))

	e.store.AppendIfAbsent(reqCtx.ContextID, reqCtx.UserMessage)

	messages := e.assembleMessages(reqCtx)
	if len(messages) <= 1 {
		e.logger.Warn("no usable input in context", "task_id", reqCtx.TaskID, "context_id", reqCtx.ContextID)
		e.fail(reqCtx, bus, "No message found to process.")
		return nil
	}

	body, state, err := e.converse(ctx, reqCtx, messages)
	if errors.Is(err, errCanceled) {
		e.logger.Info("task canceled", "task_id", reqCtx.TaskID)
		bus.Publish(e.statusUpdate(reqCtx, protocol.TaskStateCanceled, nil, true))
		return nil
	}
	if err != nil {
		e.logger.Error("task execution failed", "task_id", reqCtx.TaskID, "error", err)
		e.fail(reqCtx, bus, fmt.Sprintf("Agent error: %s", err))
		return nil
	}

	reply := e.agentMessage(reqCtx, body)
	e.store.AppendIfAbsent(reqCtx.ContextID, reply)
	bus.Publish(e.statusUpdate(reqCtx, state, &reply, true))
	return nil
}

// converse runs the bounded conversation: one model round with tools
// advertised, a cancellation checkpoint, then (only if tools were called)
// sequential tool resolution and a second round without tools. The reply of
// the last round is parsed for the terminal sentinel.
func (e *Executor) converse(ctx context.Context, reqCtx RequestContext, messages []model.Message) (string, protocol.TaskState, error) {
	first, err := e.model.Complete(ctx, model.Request{Messages: messages, Tools: e.defs})
	if err != nil {
		return "", "", fmt.Errorf("model completion: %w", err)
	}

	if e.canceled.IsCanceled(reqCtx.TaskID) {
		return "", "", errCanceled
	}

	text := first.Content
	if len(first.ToolCalls) > 0 {
		results := e.resolveTools(ctx, first.ToolCalls)

		placeholder := first.Content
		if placeholder == "" {
			placeholder = toolPlaceholderReply
		}
		messages = append(messages,
			model.Message{Role: "assistant", Content: placeholder},
			model.Message{
				Role:    "user",
				Content: fmt.Sprintf("Tool results:\n%s\n\nPlease provide your final answer based on this information.", strings.Join(results, "\n\n")),
			},
		)

		second, err := e.model.Complete(ctx, model.Request{Messages: messages})
		if err != nil {
			return "", "", fmt.Errorf("model completion: %w", err)
		}
		text = second.Content
	}

	body, state, unexpected := parseReply(text)
	if unexpected {
		e.logger.Warn("model reply missing terminal sentinel", "task_id", reqCtx.TaskID)
	}
	return body, state, nil
}

// resolveTools invokes the requested tools in order. Individual failures do
// not abort the batch; they are folded into the results as textual error
// entries so the model can reason about partial outcomes.
func (e *Executor) resolveTools(ctx context.Context, calls []tool.Call) []string {
	results := make([]string, 0, len(calls))
	for _, call := range calls {
		e.logger.Debug("invoking tool", "tool", call.Name, "call_id", call.ID)
		result, err := e.registry.Invoke(ctx, call)
		if err != nil {
			results = append(results, fmt.Sprintf("Tool %s error: %s", call.Name, err))
			continue
		}
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			results = append(results, fmt.Sprintf("Tool %s error: %s", call.Name, err))
			continue
		}
		results = append(results, fmt.Sprintf("Tool %s result: %s", call.Name, encoded))
	}
	return results
}

// fail publishes the final failed status update carrying text.
func (e *Executor) fail(reqCtx RequestContext, bus EventBus, text string) {
	msg := e.agentMessage(reqCtx, text)
	bus.Publish(e.statusUpdate(reqCtx, protocol.TaskStateFailed, &msg, true))
}

// newTask builds the submitted-state task announced for a brand new task id.
// The incoming user message seeds the task history and its metadata is
// carried over onto the task.
func (e *Executor) newTask(reqCtx RequestContext) *protocol.Task {
	return &protocol.Task{
		ID:        reqCtx.TaskID,
		ContextID: reqCtx.ContextID,
		Kind:      protocol.KindTask,
		Status: protocol.TaskStatus{
			State:     protocol.TaskStateSubmitted,
			Timestamp: e.timestamp(),
		},
		History:  []protocol.Message{reqCtx.UserMessage},
		Metadata: reqCtx.UserMessage.Metadata,
	}
}

func (e *Executor) statusUpdate(reqCtx RequestContext, state protocol.TaskState, msg *protocol.Message, final bool) *protocol.TaskStatusUpdateEvent {
	return &protocol.TaskStatusUpdateEvent{
		TaskID:    reqCtx.TaskID,
		ContextID: reqCtx.ContextID,
		Kind:      protocol.KindTaskStatusUpdate,
		Status: protocol.TaskStatus{
			State:     state,
			Message:   msg,
			Timestamp: e.timestamp(),
		},
		Final: final,
	}
}

// agentMessage builds a fresh agent-role text message bound to the task.
func (e *Executor) agentMessage(reqCtx RequestContext, text string) protocol.Message {
	taskID, contextID := reqCtx.TaskID, reqCtx.ContextID
	return protocol.Message{
		MessageID: uuid.NewString(),
		Kind:      protocol.KindMessage,
		Role:      protocol.MessageRoleAgent,
		Parts:     []protocol.Part{protocol.NewTextPart(text)},
		TaskID:    &taskID,
		ContextID: &contextID,
	}
}

func (e *Executor) timestamp() string {
	return e.now().UTC().Format(time.RFC3339Nano)
}
