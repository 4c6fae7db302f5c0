// Package interpreter executes a validated plan.Plan: it computes
// topological levels (or accepts ones already computed by the
// validator), runs each level's ops concurrently via errgroup, resolves
// operands through a three-tier ValueResolver, dispatches side-effecting
// ops to an external op registry behind the approval gate, and records
// results into a shared OpCache.
package interpreter

import (
	"fmt"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/cache"
	"github.com/alexchoi0/blueprint/internal/plan"
)

// ValueResolver resolves a plan.ValueRef into a concrete RecordedValue,
// consulting in order: (a) the current sub-plan invocation's parameter
// bindings, (b) results already computed within the current sub-plan
// invocation, then (c) the shared op cache's Latest layer.
type ValueResolver struct {
	params map[string]blueprintvalue.RecordedValue
	local  map[plan.OpId]blueprintvalue.RecordedValue
	oc     *cache.OpCache
}

// NewValueResolver builds a resolver for a single sub-plan invocation
// (or the top-level plan, with an empty params map).
func NewValueResolver(params map[string]blueprintvalue.RecordedValue, oc *cache.OpCache) *ValueResolver {
	return &ValueResolver{
		params: params,
		local:  make(map[plan.OpId]blueprintvalue.RecordedValue),
		oc:     oc,
	}
}

// Bind records the result of an op computed within this invocation,
// making it visible to sibling ops in the same sub-plan without a cache
// round-trip.
func (r *ValueResolver) Bind(id plan.OpId, v blueprintvalue.RecordedValue) {
	r.local[id] = v
}

// Resolve returns the concrete value a ValueRef denotes.
func (r *ValueResolver) Resolve(ref plan.ValueRef) (blueprintvalue.RecordedValue, error) {
	switch ref.Kind {
	case blueprintvalue.RefLiteral:
		return ref.Literal, nil

	case blueprintvalue.RefDynamic:
		if v, ok := r.params[ref.Name]; ok {
			return v, nil
		}
		return blueprintvalue.RecordedValue{}, fmt.Errorf("unbound parameter %q", ref.Name)

	case blueprintvalue.RefOpOutput:
		base, ok := r.local[ref.Op]
		if !ok {
			base, ok = r.oc.GetValue(ref.Op)
		}
		if !ok {
			return blueprintvalue.RecordedValue{}, fmt.Errorf("op %d has no recorded value", ref.Op)
		}
		if len(ref.Path) == 0 {
			return base, nil
		}
		resolved, ok := blueprintvalue.ResolvePath(base, ref.Path)
		if !ok {
			return blueprintvalue.RecordedValue{}, fmt.Errorf("op %d: accessor path not resolvable on %s", ref.Op, base.Kind)
		}
		return resolved, nil

	case blueprintvalue.RefList:
		items := make([]blueprintvalue.RecordedValue, len(ref.Items))
		for i, item := range ref.Items {
			v, err := r.Resolve(item)
			if err != nil {
				return blueprintvalue.RecordedValue{}, err
			}
			items[i] = v
		}
		return blueprintvalue.ListVal(items), nil

	default:
		return blueprintvalue.RecordedValue{}, fmt.Errorf("unknown ValueRef kind %d", ref.Kind)
	}
}

// ResolveAll resolves a list of ValueRefs in order, stopping at the
// first error.
func (r *ValueResolver) ResolveAll(refs []plan.ValueRef) ([]blueprintvalue.RecordedValue, error) {
	out := make([]blueprintvalue.RecordedValue, len(refs))
	for i, ref := range refs {
		v, err := r.Resolve(ref)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
