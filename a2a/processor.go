package a2a

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"github.com/hupe1980/moviemesh/agent"
	"github.com/hupe1980/moviemesh/logging"
)

// Executor is the slice of the task executor the processor drives.
type Executor interface {
	Execute(ctx context.Context, reqCtx agent.RequestContext, bus agent.EventBus) error
}

// Options configures a Processor.
type Options struct {
	// Logger used for diagnostics. Defaults to a no-op logger.
	Logger logging.Logger
}

// Processor translates incoming A2A messages into executor runs. It satisfies
// taskmanager.MessageProcessor and is registered with a task manager at
// startup.
type Processor struct {
	executor Executor
	logger   logging.Logger
}

// NewProcessor creates a Processor. Cancellation is not the processor's
// concern: the request context ends on every normal handler return, so only
// an explicit tasks/cancel request may mark a task canceled (see
// CancelAwareManager).
func NewProcessor(executor Executor, optFns ...func(o *Options)) *Processor {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Processor{
		executor: executor,
		logger:   opts.Logger,
	}
}

// ProcessMessage implements taskmanager.MessageProcessor.
func (p *Processor) ProcessMessage(ctx context.Context, message protocol.Message, options taskmanager.ProcessOptions, handler taskmanager.TaskHandler) (*taskmanager.MessageProcessingResult, error) {
	reqCtx, err := p.buildRequestContext(message, handler)
	if err != nil {
		return nil, err
	}

	if options.Streaming {
		return p.processStreaming(ctx, reqCtx, handler)
	}
	return p.processUnary(ctx, reqCtx, handler)
}

// buildRequestContext resolves the task the message belongs to. A message
// referencing an existing task id continues that task; anything else starts a
// fresh one, adopting the message's context id when present so multi-task
// conversations share history.
func (p *Processor) buildRequestContext(message protocol.Message, handler taskmanager.TaskHandler) (agent.RequestContext, error) {
	reqCtx := agent.RequestContext{UserMessage: message}

	if message.TaskID != nil && *message.TaskID != "" {
		taskID := *message.TaskID
		existing, err := handler.GetTask(&taskID)
		if err != nil {
			return reqCtx, fmt.Errorf("task %s not found: %w", taskID, err)
		}
		task := existing.Task()
		reqCtx.TaskID = taskID
		reqCtx.ContextID = task.ContextID
		reqCtx.Task = task
		if message.ContextID != nil && *message.ContextID != "" {
			reqCtx.ContextID = *message.ContextID
		}
		return reqCtx, nil
	}

	contextID := uuid.NewString()
	if message.ContextID != nil && *message.ContextID != "" {
		contextID = *message.ContextID
	}
	taskID, err := handler.BuildTask(nil, &contextID)
	if err != nil {
		return reqCtx, fmt.Errorf("build task: %w", err)
	}
	reqCtx.TaskID = taskID
	reqCtx.ContextID = contextID
	return reqCtx, nil
}

func (p *Processor) processUnary(ctx context.Context, reqCtx agent.RequestContext, handler taskmanager.TaskHandler) (*taskmanager.MessageProcessingResult, error) {
	bus := newHandlerBus(reqCtx.TaskID, handler, p.logger)
	if err := p.executor.Execute(ctx, reqCtx, bus); err != nil {
		return nil, err
	}

	if reply := bus.finalMessage(); reply != nil {
		return &taskmanager.MessageProcessingResult{Result: reply}, nil
	}
	// Some terminal states (cancellation) carry no message; answer with the
	// task snapshot instead.
	taskID := reqCtx.TaskID
	existing, err := handler.GetTask(&taskID)
	if err != nil {
		return nil, fmt.Errorf("task %s produced no result: %w", taskID, err)
	}
	return &taskmanager.MessageProcessingResult{Result: existing.Task()}, nil
}

func (p *Processor) processStreaming(ctx context.Context, reqCtx agent.RequestContext, handler taskmanager.TaskHandler) (*taskmanager.MessageProcessingResult, error) {
	taskID := reqCtx.TaskID
	subscriber, err := handler.SubscribeTask(&taskID)
	if err != nil {
		return nil, fmt.Errorf("subscribe task %s: %w", taskID, err)
	}

	go func() {
		defer subscriber.Close()
		bus := newHandlerBus(taskID, handler, p.logger)
		if err := p.executor.Execute(ctx, reqCtx, bus); err != nil {
			p.logger.Error("task processing failed", "task_id", taskID, "error", err)
		}
	}()

	return &taskmanager.MessageProcessingResult{StreamingEvents: subscriber}, nil
}

// stateUpdater is the slice of taskmanager.TaskHandler the event bridge
// needs.
type stateUpdater interface {
	UpdateTaskState(taskID *string, state protocol.TaskState, message *protocol.Message) error
}

// handlerBus forwards executor events to the task handler, which persists the
// state transition and fans it out to any stream subscribers. Task
// announcements are dropped: the task manager already materialized the task
// when it was built.
type handlerBus struct {
	taskID  string
	handler stateUpdater
	logger  logging.Logger

	mu    sync.Mutex
	final *protocol.Message
}

func newHandlerBus(taskID string, handler stateUpdater, logger logging.Logger) *handlerBus {
	return &handlerBus{
		taskID:  taskID,
		handler: handler,
		logger:  logger,
	}
}

// Publish implements agent.EventBus.
func (b *handlerBus) Publish(event protocol.Event) {
	update, ok := event.(*protocol.TaskStatusUpdateEvent)
	if !ok {
		return
	}

	taskID := b.taskID
	if err := b.handler.UpdateTaskState(&taskID, update.Status.State, update.Status.Message); err != nil {
		b.logger.Error("update task state", "task_id", taskID, "state", update.Status.State, "error", err)
	}

	if update.Final {
		b.mu.Lock()
		b.final = update.Status.Message
		b.mu.Unlock()
	}
}

// finalMessage returns the message of the final status update, if any.
func (b *handlerBus) finalMessage() *protocol.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.final
}
