package interpreter

import (
	gocontext "context"
	"fmt"
	"sync"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/context"
	"github.com/alexchoi0/blueprint/internal/plan"
)

// Executor is the signature every native op implementation must satisfy.
// Concrete bodies (filesystem, network, exec, clock) live in the
// nativeops package, outside this one; Registry only models the
// dispatch boundary.
type Executor func(ctx gocontext.Context, inputs []blueprintvalue.RecordedValue, ectx *context.ExecutionContext) (blueprintvalue.RecordedValue, error)

// Registry maps side-effecting OpKindTags to the Executor that performs
// them. Pure and control-flow tags never need an entry; Execute handles
// those internally.
type Registry struct {
	mu        sync.RWMutex
	executors map[plan.OpKindTag]Executor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[plan.OpKindTag]Executor)}
}

// Register installs the Executor for a given tag, overwriting any prior
// registration - callers assemble a Registry once at startup.
func (r *Registry) Register(tag plan.OpKindTag, exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[tag] = exec
}

// Dispatch invokes the registered Executor for tag, or an error if none
// is registered.
func (r *Registry) Dispatch(ctx gocontext.Context, tag plan.OpKindTag, inputs []blueprintvalue.RecordedValue, ectx *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	r.mu.RLock()
	exec, ok := r.executors[tag]
	r.mu.RUnlock()
	if !ok {
		return blueprintvalue.RecordedValue{}, fmt.Errorf("no executor registered for op kind %s", tag)
	}
	return exec(ctx, inputs, ectx)
}
