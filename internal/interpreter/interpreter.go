package interpreter

import (
	gocontext "context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/alexchoi0/blueprint/internal/approval"
	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/cache"
	"github.com/alexchoi0/blueprint/internal/context"
	"github.com/alexchoi0/blueprint/internal/export"
	"github.com/alexchoi0/blueprint/internal/optimizer"
	"github.com/alexchoi0/blueprint/internal/plan"
)

// Options configures a single Execute call.
type Options struct {
	// Workers bounds the number of ops dispatched concurrently within a
	// single level. Zero means runtime.NumCPU().
	Workers int

	// DryRun skips every side-effecting op's executor entirely (the
	// approval gate is never consulted) and returns RecordedValue{} for
	// each, so a plan can be traced without touching the outside world.
	DryRun bool

	// Gate is consulted before dispatching an op export.RequiresApproval
	// reports true for, whenever an approval.Action can be built from its
	// resolved inputs. A nil Gate denies every such op. Ops with no Action
	// (Sleep, FileExists, IsDir, IsFile, FileSize, or operands of the wrong
	// type) run without consulting the gate.
	Gate *approval.Gate

	// Cache lets a caller reuse an OpCache across runs (the contract that
	// makes Execute idempotent given identical inputs). A nil Cache gets
	// a fresh one with default capacity/TTL.
	Cache *cache.OpCache
}

// Execute runs every op of p across its topological levels, in order,
// returning the populated OpCache on success or a *CompoundError /
// *CancellationError on failure.
func Execute(ctx gocontext.Context, p *plan.Plan, levels [][]plan.OpId, ectx *context.ExecutionContext, registry *Registry, opts Options) (*cache.OpCache, error) {
	oc := opts.Cache
	if oc == nil {
		oc = cache.New()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	resolver := NewValueResolver(nil, oc)
	absorbed := computeAbsorbedOps(p)
	failed := make(map[plan.OpId]error)

	for levelIdx, level := range levels {
		if err := ctx.Err(); err != nil {
			return oc, &CancellationError{Unstarted: remainingOps(levels, levelIdx)}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)

		type failure struct {
			op  plan.OpId
			err error
		}
		results := make(chan failure, len(level))

		for _, id := range level {
			id := id
			g.Go(func() error {
				op, ok := p.Get(id)
				if !ok {
					return nil
				}

				if op.Guard != nil {
					guardVal, err := resolver.Resolve(*op.Guard)
					if err != nil || !guardVal.IsTruthy() {
						return nil
					}
				}

				value, err := executeOp(gctx, op, resolver, registry, ectx, oc, opts)
				if err != nil {
					results <- failure{op: id, err: err}
					return nil
				}
				resolver.Bind(id, value)
				inputVals, _ := resolver.ResolveAll(op.Kind.Operands())
				inputHash := cache.ComputeInputHash(inputVals)
				oc.Insert(id, inputHash, value)
				return nil
			})
		}

		_ = g.Wait()
		close(results)

		var errs []*OpError
		for f := range results {
			if absorbed[f.op] {
				failed[f.op] = f.err
				continue
			}
			errs = append(errs, &OpError{Op: f.op, Err: f.err})
		}
		if len(errs) > 0 {
			return oc, &CompoundError{Errors: errs}
		}
	}

	return oc, nil
}

func remainingOps(levels [][]plan.OpId, fromLevel int) []plan.OpId {
	var out []plan.OpId
	for i := fromLevel; i < len(levels); i++ {
		out = append(out, levels[i]...)
	}
	return out
}

// computeAbsorbedOps returns the set of OpIds directly referenced by any
// AtLeast combinator's Items, whose individual failures are absorbed
// rather than treated as fatal to the whole run.
func computeAbsorbedOps(p *plan.Plan) map[plan.OpId]bool {
	out := make(map[plan.OpId]bool)
	for _, op := range p.Ops {
		if op.Kind.Tag != plan.AtLeast {
			continue
		}
		for _, item := range op.Kind.Items {
			if item.Kind == blueprintvalue.RefOpOutput {
				out[item.Op] = true
			}
		}
	}
	return out
}

func executeOp(ctx gocontext.Context, op plan.Op, resolver *ValueResolver, registry *Registry, ectx *context.ExecutionContext, oc *cache.OpCache, opts Options) (blueprintvalue.RecordedValue, error) {
	k := op.Kind

	switch k.Tag {
	case plan.Break:
		return blueprintvalue.RecordedValue{}, &unwind{kind: unwindBreak}
	case plan.Continue:
		return blueprintvalue.RecordedValue{}, &unwind{kind: unwindContinue}

	case plan.After:
		return resolver.Resolve(k.A)

	case plan.IfBlock:
		cond, err := resolver.Resolve(k.A)
		if err != nil {
			return blueprintvalue.RecordedValue{}, err
		}
		body := k.Else
		if cond.IsTruthy() {
			body = k.Then
		}
		if body == nil {
			return blueprintvalue.None(), nil
		}
		return runSubPlan(ctx, body, nil, registry, ectx, oc, opts)

	case plan.ForEach:
		return executeForEach(ctx, k, resolver, registry, ectx, oc, opts)

	case plan.AtLeast:
		return executeAtLeast(k, resolver)

	case plan.AtMost:
		// Recorded but never enforced, matching the reference
		// implementation's empty-bodied AtMost branch (see DESIGN.md).
		var succeeded []blueprintvalue.RecordedValue
		for _, item := range k.Items {
			if v, err := resolver.Resolve(item); err == nil {
				succeeded = append(succeeded, v)
			}
		}
		return blueprintvalue.ListVal(succeeded), nil

	default:
		if k.IsPure() {
			a, err := resolver.Resolve(k.A)
			if err != nil {
				return blueprintvalue.RecordedValue{}, err
			}
			b, err := resolver.Resolve(k.B)
			if err != nil {
				return blueprintvalue.RecordedValue{}, err
			}
			c, err := resolver.Resolve(k.C)
			if err != nil {
				return blueprintvalue.RecordedValue{}, err
			}
			items, err := resolver.ResolveAll(k.Items)
			if err != nil {
				return blueprintvalue.RecordedValue{}, err
			}
			v, ok := optimizer.EvaluatePure(k.Tag, a, b, c, items)
			if !ok {
				return blueprintvalue.RecordedValue{}, &OpError{Op: op.Id, Err: errUnevaluable(k.Tag)}
			}
			return v, nil
		}

		return executeSideEffect(ctx, op, resolver, registry, ectx, opts)
	}
}

func errUnevaluable(tag plan.OpKindTag) error {
	return &evalError{tag: tag}
}

type evalError struct{ tag plan.OpKindTag }

func (e *evalError) Error() string { return "could not evaluate op kind " + e.tag.String() }

func executeSideEffect(ctx gocontext.Context, op plan.Op, resolver *ValueResolver, registry *Registry, ectx *context.ExecutionContext, opts Options) (blueprintvalue.RecordedValue, error) {
	k := op.Kind
	inputs, err := resolver.ResolveAll(k.Operands())
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}

	if opts.DryRun {
		return blueprintvalue.None(), nil
	}

	if export.RequiresApproval(k.Tag) {
		action, ok := actionFromResolved(k.Tag, inputs)
		if ok {
			decision := approval.Deny
			if opts.Gate != nil {
				decision = opts.Gate.Check(action)
			}
			if decision == approval.Deny || decision == approval.DenyAlways {
				return blueprintvalue.RecordedValue{}, &ApprovalDeniedError{Op: op.Id, Reason: action.String()}
			}
		}
	}

	return registry.Dispatch(ctx, k.Tag, inputs, ectx)
}

func executeForEach(ctx gocontext.Context, k plan.OpKind, resolver *ValueResolver, registry *Registry, ectx *context.ExecutionContext, oc *cache.OpCache, opts Options) (blueprintvalue.RecordedValue, error) {
	itemsVal, err := resolver.Resolve(k.A)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	if itemsVal.Kind != blueprintvalue.KindList {
		return blueprintvalue.RecordedValue{}, &evalError{tag: plan.ForEach}
	}
	if k.Body == nil {
		return blueprintvalue.ListVal(nil), nil
	}

	run := func(item blueprintvalue.RecordedValue) (blueprintvalue.RecordedValue, bool, error) {
		params := map[string]blueprintvalue.RecordedValue{k.Name: item}
		v, err := runSubPlan(ctx, k.Body, params, registry, ectx, oc, opts)
		if u, ok := err.(*unwind); ok {
			return blueprintvalue.RecordedValue{}, u.kind == unwindBreak, nil
		}
		if err != nil {
			return blueprintvalue.RecordedValue{}, false, err
		}
		return v, false, nil
	}

	results := make([]blueprintvalue.RecordedValue, 0, len(itemsVal.List))

	if k.Parallel {
		type outcome struct {
			v     blueprintvalue.RecordedValue
			err   error
			index int
		}
		g, gctx := errgroup.WithContext(ctx)
		out := make([]outcome, len(itemsVal.List))
		for i, item := range itemsVal.List {
			i, item := i, item
			g.Go(func() error {
				_ = gctx
				v, brk, err := run(item)
				out[i] = outcome{v: v, err: err, index: i}
				_ = brk
				return nil
			})
		}
		_ = g.Wait()
		for _, o := range out {
			if o.err != nil {
				return blueprintvalue.RecordedValue{}, o.err
			}
			results = append(results, o.v)
		}
	} else {
		for _, item := range itemsVal.List {
			v, brk, err := run(item)
			if err != nil {
				return blueprintvalue.RecordedValue{}, err
			}
			if brk {
				break
			}
			results = append(results, v)
		}
	}

	return blueprintvalue.ListVal(results), nil
}

func executeAtLeast(k plan.OpKind, resolver *ValueResolver) (blueprintvalue.RecordedValue, error) {
	var succeeded []blueprintvalue.RecordedValue
	for _, item := range k.Items {
		v, err := resolver.Resolve(item)
		if err == nil {
			succeeded = append(succeeded, v)
		}
	}
	if int64(len(succeeded)) < k.Count {
		return blueprintvalue.RecordedValue{}, &evalError{tag: k.Tag}
	}
	return blueprintvalue.ListVal(succeeded), nil
}

// runSubPlan executes a SubPlan's ops to a fixed topological order
// computed fresh (sub-plans are small and re-leveled per invocation
// rather than cached, since each invocation binds different parameters),
// returning the value of its declared Output op.
func runSubPlan(ctx gocontext.Context, sp *plan.SubPlan, params map[string]blueprintvalue.RecordedValue, registry *Registry, ectx *context.ExecutionContext, oc *cache.OpCache, opts Options) (blueprintvalue.RecordedValue, error) {
	inner := &plan.Plan{Ops: append([]plan.Op(nil), sp.Ops...)}

	levels, err := plan.ComputeLevels(inner)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}

	resolver := NewValueResolver(params, oc)
	for _, level := range levels {
		for _, id := range level {
			op, ok := inner.Get(id)
			if !ok {
				continue
			}
			if op.Guard != nil {
				guardVal, err := resolver.Resolve(*op.Guard)
				if err != nil || !guardVal.IsTruthy() {
					continue
				}
			}
			v, err := executeOp(ctx, op, resolver, registry, ectx, oc, opts)
			if err != nil {
				return blueprintvalue.RecordedValue{}, err
			}
			resolver.Bind(id, v)
		}
	}

	if v, ok := resolver.local[sp.Output]; ok {
		return v, nil
	}
	return blueprintvalue.None(), nil
}
