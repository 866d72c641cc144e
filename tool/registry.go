package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/moviemesh/logging"
)

// Registry maps tool names to executable capabilities. It is constructed once
// at startup and passed by reference to the executor; registration order does
// not matter and the last registration for a name wins.
type Registry struct {
	mu      sync.RWMutex
	funcs   map[string]Func
	schemas map[string]Parameters
	logger  logging.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(optFns ...func(r *Registry)) *Registry {
	r := &Registry{
		funcs:   make(map[string]Func),
		schemas: make(map[string]Parameters),
		logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(r)
	}
	return r
}

// WithLogger sets the logger used for invocation tracing.
func WithLogger(logger logging.Logger) func(r *Registry) {
	return func(r *Registry) { r.logger = logger }
}

// Register stores a capability under a unique name, replacing any previous
// registration for the same name. Arguments are not validated; use
// RegisterWithDefinition for schema-checked registration.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
	delete(r.schemas, name)
}

// RegisterWithDefinition stores a capability together with its declaration so
// call arguments are validated against the parameter schema before the
// capability runs.
func (r *Registry) RegisterWithDefinition(def Definition, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := def.Function.Name
	r.funcs[name] = fn
	r.schemas[name] = def.Function.Parameters
}

// Invoke resolves a tool call by its declared function name, decodes the JSON
// argument payload and executes the capability. The capability's result or
// error is propagated to the caller unchanged.
func (r *Registry) Invoke(ctx context.Context, call Call) (any, error) {
	r.mu.RLock()
	fn, ok := r.funcs[call.Name]
	schema, validated := r.schemas[call.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", call.Name)
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return nil, fmt.Errorf("decode arguments for tool %s: %w", call.Name, err)
	}

	if validated {
		if err := schema.Validate(args); err != nil {
			return nil, fmt.Errorf("invalid arguments for tool %s: %w", call.Name, err)
		}
	}

	r.logger.Debug("tool.invoke", "tool", call.Name, "call_id", call.ID)
	result, err := fn(ctx, args)
	if err != nil {
		r.logger.Error("tool.invoke.error", "tool", call.Name, "error", err.Error())
		return nil, err
	}
	return result, nil
}

// Names returns the registered tool names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}
