package a2a

import (
	"context"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"github.com/hupe1980/moviemesh/agent"
	"github.com/hupe1980/moviemesh/logging"
)

// CancelAwareManager wraps the framework task manager so a tasks/cancel
// request reaches the executor's cancellation registry. The framework only
// tears down its own task bookkeeping on cancel; without the registry mark an
// in-flight execution would keep running tools and model rounds past its
// checkpoint.
type CancelAwareManager struct {
	*taskmanager.MemoryTaskManager

	canceled *agent.CancelRegistry
	logger   logging.Logger
}

// NewCancelAwareManager wraps inner. The registry must be the same instance
// the executor checkpoints against.
func NewCancelAwareManager(inner *taskmanager.MemoryTaskManager, canceled *agent.CancelRegistry, optFns ...func(o *Options)) *CancelAwareManager {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &CancelAwareManager{
		MemoryTaskManager: inner,
		canceled:          canceled,
		logger:            opts.Logger,
	}
}

// OnCancelTask marks the task in the registry before delegating, so an
// in-flight execution observes the cancellation at its checkpoint even while
// the framework is still tearing the task down.
func (m *CancelAwareManager) OnCancelTask(ctx context.Context, params protocol.TaskIDParams) (*protocol.Task, error) {
	m.canceled.Cancel(params.ID)
	m.logger.Info("task cancel requested", "task_id", params.ID)
	return m.MemoryTaskManager.OnCancelTask(ctx, params)
}
