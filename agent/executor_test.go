package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	"github.com/hupe1980/moviemesh/model"
	"github.com/hupe1980/moviemesh/session"
	"github.com/hupe1980/moviemesh/tool"
)

type captureBus struct {
	events []protocol.Event
}

func (b *captureBus) Publish(event protocol.Event) {
	b.events = append(b.events, event)
}

func (b *captureBus) statusUpdates(t *testing.T) []*protocol.TaskStatusUpdateEvent {
	t.Helper()
	var updates []*protocol.TaskStatusUpdateEvent
	for _, ev := range b.events {
		if update, ok := ev.(*protocol.TaskStatusUpdateEvent); ok {
			updates = append(updates, update)
		}
	}
	return updates
}

func (b *captureBus) final(t *testing.T) *protocol.TaskStatusUpdateEvent {
	t.Helper()
	updates := b.statusUpdates(t)
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	require.True(t, last.Final, "last status update must be final")
	return last
}

type executorFixture struct {
	model    *model.MockModel
	registry *tool.Registry
	store    *session.InMemoryStore
	canceled *CancelRegistry
	executor *Executor

	peopleCalls int
}

func newExecutorFixture(t *testing.T) *executorFixture {
	t.Helper()
	f := &executorFixture{
		model:    model.NewMockModel("test-model", "mock"),
		registry: tool.NewRegistry(),
		store:    session.NewInMemoryStore(),
		canceled: NewCancelRegistry(),
	}
	f.registry.Register("searchPeople", func(_ context.Context, args map[string]any) (any, error) {
		f.peopleCalls++
		return map[string]any{"name": args["query"], "id": 31}, nil
	})
	defs := []tool.Definition{
		tool.NewDefinition("searchPeople", "Search for people", map[string]any{
			"query": map[string]any{"type": "string"},
		}, []string{"query"}),
	}
	f.executor = NewExecutor(f.model, f.registry, defs, f.store, f.canceled, func(o *Options) {
		o.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	})
	return f
}

func userMessage(text string) protocol.Message {
	var parts []protocol.Part
	if text != "" {
		parts = append(parts, protocol.NewTextPart(text))
	}
	return protocol.NewMessage(protocol.MessageRoleUser, parts)
}

func newRequest(msg protocol.Message) RequestContext {
	return RequestContext{
		TaskID:      "task-1",
		ContextID:   "ctx-1",
		UserMessage: msg,
	}
}

func TestExecutor_NewTaskEventOrdering(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{Content: "Forrest Gump came out in 1994.\nCOMPLETED"})

	bus := &captureBus{}
	err := f.executor.Execute(context.Background(), newRequest(userMessage("When was Forrest Gump released?")), bus)
	require.NoError(t, err)

	require.Len(t, bus.events, 3)

	task, ok := bus.events[0].(*protocol.Task)
	require.True(t, ok, "first event must announce the task")
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, "ctx-1", task.ContextID)
	assert.Equal(t, protocol.TaskStateSubmitted, task.Status.State)
	assert.NotEmpty(t, task.Status.Timestamp)
	require.Len(t, task.History, 1)

	updates := bus.statusUpdates(t)
	require.Len(t, updates, 2)

	working := updates[0]
	assert.Equal(t, protocol.TaskStateWorking, working.Status.State)
	assert.False(t, working.Final)
	require.NotNil(t, working.Status.Message)
	assert.Equal(t, workingReply, messageText(*working.Status.Message))

	final := bus.final(t)
	assert.Equal(t, protocol.TaskStateCompleted, final.Status.State)
	require.NotNil(t, final.Status.Message)
	assert.Equal(t, "Forrest Gump came out in 1994.", messageText(*final.Status.Message))
	assert.Equal(t, protocol.MessageRoleAgent, final.Status.Message.Role)
}

func TestExecutor_ContinuationSkipsTaskAnnouncement(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{Content: "Batman Begins (2005).\nCOMPLETED"})

	reqCtx := newRequest(userMessage("The 2005 one."))
	reqCtx.Task = &protocol.Task{
		ID:        reqCtx.TaskID,
		ContextID: reqCtx.ContextID,
		Kind:      protocol.KindTask,
		Status:    protocol.TaskStatus{State: protocol.TaskStateInputRequired},
	}

	bus := &captureBus{}
	require.NoError(t, f.executor.Execute(context.Background(), reqCtx, bus))

	require.Len(t, bus.events, 2)
	_, isTask := bus.events[0].(*protocol.Task)
	assert.False(t, isTask)
	assert.Equal(t, protocol.TaskStateWorking, bus.statusUpdates(t)[0].Status.State)
}

func TestExecutor_InputRequiredSentinel(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{Content: "Which Batman movie do you mean?\nAWAITING_USER_INPUT"})

	bus := &captureBus{}
	require.NoError(t, f.executor.Execute(context.Background(), newRequest(userMessage("Who played Batman?")), bus))

	final := bus.final(t)
	assert.Equal(t, protocol.TaskStateInputRequired, final.Status.State)
	assert.Equal(t, "Which Batman movie do you mean?", messageText(*final.Status.Message))
}

func TestExecutor_UserMessageAppendIsIdempotent(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{Content: "Answer one.\nCOMPLETED"})
	f.model.Enqueue(&model.Response{Content: "Answer two.\nCOMPLETED"})

	msg := userMessage("Tell me about Tom Hanks")
	reqCtx := newRequest(msg)

	require.NoError(t, f.executor.Execute(context.Background(), reqCtx, &captureBus{}))

	// Redelivery of the same message must not duplicate it in the history.
	reqCtx.Task = &protocol.Task{ID: reqCtx.TaskID, ContextID: reqCtx.ContextID, Kind: protocol.KindTask}
	require.NoError(t, f.executor.Execute(context.Background(), reqCtx, &captureBus{}))

	history := f.store.History("ctx-1")
	var userEntries int
	for _, m := range history {
		if m.MessageID == msg.MessageID {
			userEntries++
		}
	}
	assert.Equal(t, 1, userEntries)
	// One user entry plus two committed agent replies.
	assert.Len(t, history, 3)
}

func TestExecutor_NoUsableInputFailsWithoutModelCall(t *testing.T) {
	f := newExecutorFixture(t)

	bus := &captureBus{}
	require.NoError(t, f.executor.Execute(context.Background(), newRequest(userMessage("")), bus))

	assert.Empty(t, f.model.Requests, "model must not be called without usable input")

	final := bus.final(t)
	assert.Equal(t, protocol.TaskStateFailed, final.Status.State)
	assert.Equal(t, "No message found to process.", messageText(*final.Status.Message))
}

func TestExecutor_CancellationCheckpoint(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{
		ToolCalls: []tool.Call{{ID: "call-1", Name: "searchPeople", Arguments: `{"query":"Tom Hanks"}`}},
	})
	f.canceled.Cancel("task-1")

	bus := &captureBus{}
	require.NoError(t, f.executor.Execute(context.Background(), newRequest(userMessage("Who is Tom Hanks?")), bus))

	assert.Len(t, f.model.Requests, 1, "only the first round runs before the checkpoint")
	assert.Zero(t, f.peopleCalls, "tools must not run after cancellation")

	final := bus.final(t)
	assert.Equal(t, protocol.TaskStateCanceled, final.Status.State)
	assert.Nil(t, final.Status.Message)
}

func TestExecutor_ToolRoundTrip(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{
		ToolCalls: []tool.Call{{ID: "call-1", Name: "searchPeople", Arguments: `{"query":"Tom Hanks"}`}},
	})
	f.model.Enqueue(&model.Response{Content: "Tom Hanks is an American actor.\nCOMPLETED"})

	bus := &captureBus{}
	require.NoError(t, f.executor.Execute(context.Background(), newRequest(userMessage("Who is Tom Hanks?")), bus))

	assert.Equal(t, 1, f.peopleCalls)
	require.Len(t, f.model.Requests, 2)

	first := f.model.Requests[0]
	require.NotEmpty(t, first.Tools)
	assert.Equal(t, "searchPeople", first.Tools[0].Function.Name)

	second := f.model.Requests[1]
	assert.Empty(t, second.Tools, "second round must not advertise tools")

	assistant := second.Messages[len(second.Messages)-2]
	assert.Equal(t, "assistant", assistant.Role)
	assert.Equal(t, toolPlaceholderReply, assistant.Content)

	results := second.Messages[len(second.Messages)-1]
	assert.Equal(t, "user", results.Role)
	assert.Contains(t, results.Content, "Tool searchPeople result:")
	assert.Contains(t, results.Content, `"name": "Tom Hanks"`)
	assert.Contains(t, results.Content, "Please provide your final answer based on this information.")

	final := bus.final(t)
	assert.Equal(t, protocol.TaskStateCompleted, final.Status.State)
	assert.Equal(t, "Tom Hanks is an American actor.", messageText(*final.Status.Message))
}

func TestExecutor_FirstRoundTextKeptAsPlaceholder(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{
		Content:   "Let me look that up.",
		ToolCalls: []tool.Call{{ID: "call-1", Name: "searchPeople", Arguments: `{"query":"Tom Hanks"}`}},
	})
	f.model.Enqueue(&model.Response{Content: "Done.\nCOMPLETED"})

	require.NoError(t, f.executor.Execute(context.Background(), newRequest(userMessage("Who is Tom Hanks?")), &captureBus{}))

	second := f.model.Requests[1]
	assistant := second.Messages[len(second.Messages)-2]
	assert.Equal(t, "Let me look that up.", assistant.Content)
}

func TestExecutor_UnknownToolSurfacesAsTextualError(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{
		ToolCalls: []tool.Call{{ID: "call-1", Name: "lookupBoxOffice", Arguments: `{}`}},
	})
	f.model.Enqueue(&model.Response{Content: "I could not find that.\nCOMPLETED"})

	bus := &captureBus{}
	require.NoError(t, f.executor.Execute(context.Background(), newRequest(userMessage("Box office of Dune?")), bus))

	second := f.model.Requests[1]
	results := second.Messages[len(second.Messages)-1]
	assert.Contains(t, results.Content, "Tool lookupBoxOffice error: unknown tool: lookupBoxOffice")

	assert.Equal(t, protocol.TaskStateCompleted, bus.final(t).Status.State)
}

func TestExecutor_ModelFailureProducesFailedStatus(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Fail(errors.New("upstream unavailable"))

	bus := &captureBus{}
	require.NoError(t, f.executor.Execute(context.Background(), newRequest(userMessage("Hello")), bus))

	final := bus.final(t)
	assert.Equal(t, protocol.TaskStateFailed, final.Status.State)
	text := messageText(*final.Status.Message)
	assert.Contains(t, text, "Agent error:")
	assert.Contains(t, text, "upstream unavailable")
}

func TestExecutor_SecondRoundFailureProducesFailedStatus(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{
		ToolCalls: []tool.Call{{ID: "call-1", Name: "searchPeople", Arguments: `{"query":"Tom Hanks"}`}},
	})
	// Drained queue with a forced error makes the second round fail.
	f.model.Enqueue(&model.Response{})
	f.model.Fail(errors.New("rate limited"))

	bus := &captureBus{}
	require.NoError(t, f.executor.Execute(context.Background(), newRequest(userMessage("Who is Tom Hanks?")), bus))

	final := bus.final(t)
	assert.Equal(t, protocol.TaskStateFailed, final.Status.State)
	assert.Contains(t, messageText(*final.Status.Message), "rate limited")
}

func TestExecutor_GoalDirectiveInSystemPrompt(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{Content: "Sure.\nCOMPLETED"})

	msg := userMessage("Recommend something")
	msg.Metadata = map[string]any{"goal": "recommend feel-good comedies"}

	require.NoError(t, f.executor.Execute(context.Background(), newRequest(msg), &captureBus{}))

	require.NotEmpty(t, f.model.Requests)
	system := f.model.Requests[0].Messages[0]
	require.Equal(t, "system", system.Role)
	assert.Contains(t, system.Content, "Your goal in this task is: recommend feel-good comedies")
	assert.Contains(t, system.Content, "2024-05-01T12:00:00Z")
	assert.NotContains(t, system.Content, "{{now}}")
}

func TestExecutor_TaskGoalWinsOverMessageGoal(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{Content: "Sure.\nCOMPLETED"})

	msg := userMessage("Recommend something")
	msg.Metadata = map[string]any{"goal": "message goal"}
	reqCtx := newRequest(msg)
	reqCtx.Task = &protocol.Task{
		ID:        reqCtx.TaskID,
		ContextID: reqCtx.ContextID,
		Kind:      protocol.KindTask,
		Metadata:  map[string]any{"goal": "task goal"},
	}

	require.NoError(t, f.executor.Execute(context.Background(), reqCtx, &captureBus{}))

	system := f.model.Requests[0].Messages[0]
	assert.Contains(t, system.Content, "Your goal in this task is: task goal")
}

func TestExecutor_MultipleToolCallsResolvedInOrder(t *testing.T) {
	f := newExecutorFixture(t)
	var order []string
	f.registry.Register("searchMovies", func(_ context.Context, args map[string]any) (any, error) {
		order = append(order, "searchMovies")
		return map[string]any{"title": args["query"]}, nil
	})
	f.registry.Register("searchPeople", func(_ context.Context, args map[string]any) (any, error) {
		order = append(order, "searchPeople")
		return map[string]any{"name": args["query"]}, nil
	})

	f.model.Enqueue(&model.Response{
		ToolCalls: []tool.Call{
			{ID: "call-1", Name: "searchPeople", Arguments: `{"query":"Tom Hanks"}`},
			{ID: "call-2", Name: "searchMovies", Arguments: `{"query":"Forrest Gump"}`},
		},
	})
	f.model.Enqueue(&model.Response{Content: "He starred in Forrest Gump.\nCOMPLETED"})

	require.NoError(t, f.executor.Execute(context.Background(), newRequest(userMessage("What did Tom Hanks star in?")), &captureBus{}))

	assert.Equal(t, []string{"searchPeople", "searchMovies"}, order)

	results := f.model.Requests[1].Messages[len(f.model.Requests[1].Messages)-1]
	peopleIdx := strings.Index(results.Content, "Tool searchPeople result:")
	moviesIdx := strings.Index(results.Content, "Tool searchMovies result:")
	require.GreaterOrEqual(t, peopleIdx, 0)
	require.GreaterOrEqual(t, moviesIdx, 0)
	assert.Less(t, peopleIdx, moviesIdx, "tool results keep call order")
	assert.Contains(t, results.Content, "}\n\nTool searchMovies result:", "entries are blank-line separated")
}

func TestExecutor_FollowUpAfterRequestTeardownCompletes(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{Content: "Which Batman movie do you mean?\nAWAITING_USER_INPUT"})
	f.model.Enqueue(&model.Response{Content: "Christian Bale.\nCOMPLETED"})

	ctx, cancel := context.WithCancel(context.Background())
	bus := &captureBus{}
	require.NoError(t, f.executor.Execute(ctx, newRequest(userMessage("Who played Batman?")), bus))
	require.Equal(t, protocol.TaskStateInputRequired, bus.final(t).Status.State)

	// The transport cancels the request context once the response is
	// written; the task itself stays resumable.
	cancel()

	followUp := newRequest(userMessage("The 2005 one."))
	followUp.Task = &protocol.Task{
		ID:        followUp.TaskID,
		ContextID: followUp.ContextID,
		Kind:      protocol.KindTask,
		Status:    protocol.TaskStatus{State: protocol.TaskStateInputRequired},
	}

	second := &captureBus{}
	require.NoError(t, f.executor.Execute(context.Background(), followUp, second))

	final := second.final(t)
	assert.Equal(t, protocol.TaskStateCompleted, final.Status.State)
	assert.Equal(t, "Christian Bale.", messageText(*final.Status.Message))
	assert.False(t, f.canceled.IsCanceled(followUp.TaskID))
}

func TestExecutor_HistoryFeedsSubsequentTurns(t *testing.T) {
	f := newExecutorFixture(t)
	f.model.Enqueue(&model.Response{Content: "Which Batman movie do you mean?\nAWAITING_USER_INPUT"})
	f.model.Enqueue(&model.Response{Content: "Christian Bale.\nCOMPLETED"})

	first := newRequest(userMessage("Who played Batman?"))
	require.NoError(t, f.executor.Execute(context.Background(), first, &captureBus{}))

	followUp := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart("The 2005 one.")})
	second := RequestContext{
		TaskID:      "task-2",
		ContextID:   "ctx-1",
		UserMessage: followUp,
	}
	require.NoError(t, f.executor.Execute(context.Background(), second, &captureBus{}))

	req := f.model.Requests[1]
	var contents []string
	for _, m := range req.Messages {
		contents = append(contents, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	joined := fmt.Sprintf("%v", contents)
	assert.Contains(t, joined, "user: Who played Batman?")
	assert.Contains(t, joined, "assistant: Which Batman movie do you mean?")
	assert.Contains(t, joined, "user: The 2005 one.")
}
