// Package resolver implements the plan resolver: it materializes
// a schema.Schema against a context.ExecutionContext into a concrete
// plan.Plan, substituting ConfigPath/EnvRef/ContextVar placeholders and
// assigning fresh plan.OpIds while preserving the schema's linear order.
package resolver

import (
	"fmt"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/context"
	"github.com/alexchoi0/blueprint/internal/plan"
	"github.com/alexchoi0/blueprint/internal/schema"
)

// Error reports a resolution failure: a schema op referenced an env
// variable or config key the supplied ExecutionContext does not provide.
type Error struct {
	Op  schema.SchemaOpId
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("resolving op %d: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Resolve produces a plan.Plan from s and ctx.
func Resolve(s *schema.Schema, ctx *context.ExecutionContext) (*plan.Plan, error) {
	r := &resolving{ctx: ctx, ids: make(map[schema.SchemaOpId]plan.OpId)}
	p := plan.New()
	if err := r.resolveOps(p, s.Ops); err != nil {
		return nil, err
	}
	return p, nil
}

type resolving struct {
	ctx *context.ExecutionContext
	ids map[schema.SchemaOpId]plan.OpId
}

func (r *resolving) resolveOps(p *plan.Plan, ops []schema.SchemaOp) error {
	for _, op := range ops {
		kind, err := r.resolveKind(op)
		if err != nil {
			return &Error{Op: op.Id, Err: err}
		}
		newID := p.AddOp(kind, op.SourceLocation)
		r.ids[op.Id] = newID
	}
	return nil
}

func (r *resolving) resolveKind(op schema.SchemaOp) (plan.OpKind, error) {
	a, err := r.resolveValue(op.A)
	if err != nil {
		return plan.OpKind{}, err
	}
	b, err := r.resolveValue(op.B)
	if err != nil {
		return plan.OpKind{}, err
	}
	c, err := r.resolveValue(op.C)
	if err != nil {
		return plan.OpKind{}, err
	}
	items, err := r.resolveValues(op.Items)
	if err != nil {
		return plan.OpKind{}, err
	}

	kind := plan.OpKind{
		Tag:      plan.OpKindTag(op.Tag),
		A:        a,
		B:        b,
		C:        c,
		Items:    items,
		Count:    op.Count,
		Name:     op.Name,
		Parallel: op.Parallel,
	}

	if op.Then != nil {
		sp, err := r.resolveSubPlan(op.Then)
		if err != nil {
			return plan.OpKind{}, err
		}
		kind.Then = sp
	}
	if op.Else != nil {
		sp, err := r.resolveSubPlan(op.Else)
		if err != nil {
			return plan.OpKind{}, err
		}
		kind.Else = sp
	}
	if op.Body != nil {
		sp, err := r.resolveSubPlan(op.Body)
		if err != nil {
			return plan.OpKind{}, err
		}
		kind.Body = sp
	}
	if op.Tag == int(plan.After) {
		if resolvedID, ok := r.ids[op.After]; ok {
			kind.After = resolvedID
		}
	}

	return kind, nil
}

func (r *resolving) resolveSubPlan(sp *schema.SubPlan) (*plan.SubPlan, error) {
	out := &plan.SubPlan{Params: append([]string(nil), sp.Params...)}
	sub := &resolving{ctx: r.ctx, ids: make(map[schema.SchemaOpId]plan.OpId)}
	subPlan := plan.New()
	if err := sub.resolveOps(subPlan, sp.Ops); err != nil {
		return nil, err
	}
	out.Ops = subPlan.Ops
	if resolvedOutput, ok := sub.ids[sp.Output]; ok {
		out.Output = resolvedOutput
	}
	return out, nil
}

func (r *resolving) resolveValues(vals []schema.SchemaValue) ([]plan.ValueRef, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]plan.ValueRef, len(vals))
	for i, v := range vals {
		resolved, err := r.resolveValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func (r *resolving) resolveValue(v schema.SchemaValue) (plan.ValueRef, error) {
	switch v.Kind {
	case schema.RefLiteral:
		return blueprintvalue.Literal(v.Literal), nil

	case schema.RefOpOutput:
		resolvedID, ok := r.ids[v.Op]
		if !ok {
			return plan.ValueRef{}, fmt.Errorf("reference to unresolved schema op %d", v.Op)
		}
		return blueprintvalue.OpOutput(resolvedID, v.Path...), nil

	case schema.RefDynamic:
		return blueprintvalue.Dynamic(v.Name), nil

	case schema.RefList:
		items := make([]plan.ValueRef, len(v.Items))
		for i, item := range v.Items {
			resolved, err := r.resolveValue(item)
			if err != nil {
				return plan.ValueRef{}, err
			}
			items[i] = resolved
		}
		return blueprintvalue.ListRef(items), nil

	case schema.RefConfigPath:
		s, err := r.ctx.ResolveConfigPath(v.Name)
		if err != nil {
			return plan.ValueRef{}, err
		}
		return blueprintvalue.LiteralString(s), nil

	case schema.RefEnvRef:
		s, err := r.ctx.ResolveEnv(v.Name)
		if err != nil {
			return plan.ValueRef{}, err
		}
		return blueprintvalue.LiteralString(s), nil

	case schema.RefContextVar:
		s, err := r.ctx.ResolveConfigVar(v.Name)
		if err != nil {
			return plan.ValueRef{}, err
		}
		return blueprintvalue.LiteralString(s), nil

	default:
		return plan.ValueRef{}, fmt.Errorf("unknown schema value kind %d", v.Kind)
	}
}
