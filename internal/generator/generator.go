package generator

import (
	"github.com/alexchoi0/blueprint/internal/ast"
	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/optimizer"
	"github.com/alexchoi0/blueprint/internal/plan"
	"github.com/alexchoi0/blueprint/internal/schema"
)

// Generator walks a typed ast.Program, partially evaluating every pure
// subexpression it can and emitting schema.SchemaOps for the rest.
type Generator struct {
	sch *schema.Schema
}

func New() *Generator {
	return &Generator{sch: schema.New()}
}

// Generate runs the full program and returns the resulting Schema. A
// top-level program never returns a value of its own; its purpose is
// the side effects (schema ops) accumulated while executing it.
func (g *Generator) Generate(prog *ast.Program) (*schema.Schema, error) {
	scope := NewScope()
	installVirtualModules(scope)
	for _, stmt := range prog.Body {
		if _, err := g.exec(stmt, scope); err != nil {
			return nil, err
		}
	}
	return g.sch, nil
}

// ctrlKind signals a loop/function control-flow transfer propagating up
// through exec, analogous to the interpreter's unwind sentinel.
type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
)

type ctrl struct {
	kind ctrlKind
	val  Value
}

func (g *Generator) exec(stmt ast.Stmt, scope *Scope) (ctrl, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := g.eval(s.Value, scope)
		return ctrl{}, err

	case *ast.Assign:
		v, err := g.eval(s.Value, scope)
		if err != nil {
			return ctrl{}, err
		}
		for _, target := range s.Targets {
			if err := g.assign(target, v, scope); err != nil {
				return ctrl{}, err
			}
		}
		return ctrl{}, nil

	case *ast.If:
		cond, err := g.eval(s.Cond, scope)
		if err != nil {
			return ctrl{}, err
		}
		if !cond.IsDynamic() {
			if cond.IsTruthy() {
				return g.execBlock(s.Then, scope.Child())
			}
			return g.execBlock(s.Else, scope.Child())
		}
		return g.execDynamicIf(s, cond, scope)

	case *ast.For:
		return g.execFor(s, scope)

	case *ast.FunctionDef:
		closure := &Closure{
			Name:    s.Name,
			Params:  paramsFromAST(s.Params),
			Body:    s.Body,
			Defined: scope,
		}
		scope.Define(s.Name, Value{Kind: VClosure, Closure: closure})
		return ctrl{}, nil

	case *ast.Return:
		if s.Value == nil {
			return ctrl{kind: ctrlReturn, val: None()}, nil
		}
		v, err := g.eval(s.Value, scope)
		if err != nil {
			return ctrl{}, err
		}
		return ctrl{kind: ctrlReturn, val: v}, nil

	case *ast.Break:
		return ctrl{kind: ctrlBreak}, nil

	case *ast.Continue:
		return ctrl{kind: ctrlContinue}, nil

	case *ast.Pass:
		return ctrl{}, nil

	case *ast.Load:
		return ctrl{}, g.execLoad(s, scope)

	case *ast.Fail:
		msg := "generation failed"
		if s.Message != nil {
			v, err := g.eval(s.Message, scope)
			if err != nil {
				return ctrl{}, err
			}
			if !v.IsDynamic() {
				msg = displayString(v)
			}
		}
		return ctrl{}, withLine(explicitFailError(msg), stmt.Line())

	default:
		return ctrl{}, withLine(unsupportedNodeError("unsupported statement node"), stmt.Line())
	}
}

func (g *Generator) execBlock(body []ast.Stmt, scope *Scope) (ctrl, error) {
	for _, stmt := range body {
		c, err := g.exec(stmt, scope)
		if err != nil {
			return ctrl{}, err
		}
		if c.kind != ctrlNone {
			return c, nil
		}
	}
	return ctrl{}, nil
}

// execDynamicIf emits an IfBlock schema op wrapping the then/else blocks
// as SubPlans, used when the condition can't be folded at generation time.
func (g *Generator) execDynamicIf(s *ast.If, cond Value, scope *Scope) (ctrl, error) {
	thenSub, err := g.blockToSubPlan(s.Then, scope)
	if err != nil {
		return ctrl{}, err
	}
	elseSub, err := g.blockToSubPlan(s.Else, scope)
	if err != nil {
		return ctrl{}, err
	}
	g.sch.AddOp(schema.SchemaOp{
		Tag:  int(plan.IfBlock),
		A:    ToSchemaValue(cond),
		Then: thenSub,
		Else: elseSub,
	})
	return ctrl{}, nil
}

// blockToSubPlan generates a block into its own nested Schema so it can
// be embedded as a schema.SubPlan inside a control-flow op; the nested ops
// are embedded as generated, so SubPlan.Ops keep their own local ids,
// mirroring plan.SubPlan.
func (g *Generator) blockToSubPlan(body []ast.Stmt, parent *Scope) (*schema.SubPlan, error) {
	inner := &Generator{sch: schema.New()}
	childScope := parent.Child()
	for _, stmt := range body {
		if _, err := inner.exec(stmt, childScope); err != nil {
			return nil, err
		}
	}
	return &schema.SubPlan{Ops: inner.sch.Ops}, nil
}

func (g *Generator) execFor(s *ast.For, scope *Scope) (ctrl, error) {
	iterable, err := g.eval(s.Iterable, scope)
	if err != nil {
		return ctrl{}, err
	}
	if iterable.IsDynamic() {
		return g.execDynamicFor(s, iterable, scope)
	}
	if iterable.Kind != VList && iterable.Kind != VSet && iterable.Kind != VTuple {
		return ctrl{}, withLine(typeError("for loop requires an iterable"), s.Line())
	}
	for _, item := range iterable.List {
		inner := scope.Child()
		inner.Define(s.ItemName, item)
		c, err := g.execBlock(s.Body, inner)
		if err != nil {
			return ctrl{}, err
		}
		if c.kind == ctrlBreak {
			break
		}
		if c.kind == ctrlReturn {
			return c, nil
		}
	}
	return ctrl{}, nil
}

// execDynamicFor emits a ForEach schema op: the loop body becomes a
// parameterized SubPlan taking the element as its single bound param,
// matching the comprehension desugaring strategy used for dynamic
// list/set comprehensions (see comprehension.go).
func (g *Generator) execDynamicFor(s *ast.For, iterable Value, scope *Scope) (ctrl, error) {
	inner := &Generator{sch: schema.New()}
	bodyScope := scope.Child()
	bodyScope.Define(s.ItemName, Value{Kind: VParamRef, ParamRef: s.ItemName})
	for _, stmt := range s.Body {
		if _, err := inner.exec(stmt, bodyScope); err != nil {
			return ctrl{}, err
		}
	}
	g.sch.AddOp(schema.SchemaOp{
		Tag:      int(plan.ForEach),
		A:        ToSchemaValue(iterable),
		Body:     &schema.SubPlan{Params: []string{s.ItemName}, Ops: inner.sch.Ops},
		Parallel: s.Parallel,
		Name:     s.ItemName,
	})
	return ctrl{}, nil
}

func (g *Generator) execLoad(s *ast.Load, scope *Scope) error {
	symbols, ok := virtualModules[s.Module]
	if !ok {
		return withLine(undefinedNameError(s.Module), s.Line())
	}
	for _, sym := range s.Symbols {
		found := false
		for _, exported := range symbols {
			if exported == sym {
				found = true
				break
			}
		}
		if !found {
			return withLine(undefinedNameError(s.Module+"."+sym), s.Line())
		}
		scope.Define(sym, builtinSymbol(sym))
	}
	return nil
}

func (g *Generator) assign(target ast.Expr, v Value, scope *Scope) error {
	switch t := target.(type) {
	case *ast.Name:
		scope.Set(t.Ident, v)
		return nil
	case *ast.TupleExpr:
		return g.destructure(t.Items, v, scope, target.Line())
	case *ast.ListExpr:
		return g.destructure(t.Items, v, scope, target.Line())
	case *ast.Subscript:
		return g.assignSubscript(t, v, scope)
	default:
		return withLine(unsupportedNodeError("unsupported assignment target"), target.Line())
	}
}

func (g *Generator) destructure(targets []ast.Expr, v Value, scope *Scope, line int) error {
	if v.Kind != VList && v.Kind != VTuple && v.Kind != VSet {
		return withLine(typeError("cannot unpack non-sequence value"), line)
	}
	if len(targets) != len(v.List) {
		return withLine(typeError("unpacking mismatch"), line)
	}
	for i, t := range targets {
		if err := g.assign(t, v.List[i], scope); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) assignSubscript(t *ast.Subscript, v Value, scope *Scope) error {
	base, err := g.eval(t.Value, scope)
	if err != nil {
		return err
	}
	idx, err := g.eval(t.Index, scope)
	if err != nil {
		return err
	}
	if base.Kind != VDict || idx.Kind != VStr {
		return withLine(typeError("subscript assignment requires a dict target and string key"), t.Line())
	}
	base.Dict[idx.Str] = v
	found := false
	for _, k := range base.keys {
		if k == idx.Str {
			found = true
			break
		}
	}
	if !found {
		base.keys = append(base.keys, idx.Str)
	}
	if name, ok := t.Value.(*ast.Name); ok {
		scope.Set(name.Ident, base)
	}
	return nil
}

func paramsFromAST(params []ast.Param) []ClosureParam {
	out := make([]ClosureParam, len(params))
	for i, p := range params {
		cp := ClosureParam{Name: p.Name, IsVarArgs: p.IsVarArgs, IsKwArgs: p.IsKwArgs}
		out[i] = cp
	}
	return out
}

// fromRecordedValue converts a folded blueprintvalue.RecordedValue back
// into a generator Value, the inverse of toRecordedValue, used after
// delegating pure-op evaluation to optimizer.EvaluatePure.
func fromRecordedValue(rv blueprintvalue.RecordedValue) Value {
	switch rv.Kind {
	case blueprintvalue.KindNone:
		return None()
	case blueprintvalue.KindBool:
		return BoolVal(rv.Bool)
	case blueprintvalue.KindInt:
		return IntVal(rv.Int)
	case blueprintvalue.KindFloat:
		return FloatVal(rv.Float)
	case blueprintvalue.KindString:
		return StrVal(rv.Str)
	case blueprintvalue.KindBytes:
		return BytesVal(rv.Bytes)
	case blueprintvalue.KindList:
		items := make([]Value, len(rv.List))
		for i, it := range rv.List {
			items[i] = fromRecordedValue(it)
		}
		return ListVal(items)
	case blueprintvalue.KindDict:
		keys := rv.SortedKeys()
		m := make(map[string]Value, len(keys))
		for _, k := range keys {
			m[k] = fromRecordedValue(rv.Dict[k])
		}
		return DictVal(keys, m)
	default:
		return None()
	}
}

// foldPure delegates to the optimizer's pure-op evaluator so the
// generator's static-folding arithmetic and the interpreter's
// runtime pure-op evaluation share one implementation.
func foldPure(tag plan.OpKindTag, a, b, c Value, items []Value) (Value, bool) {
	recItems := make([]blueprintvalue.RecordedValue, len(items))
	for i, it := range items {
		recItems[i] = toRecordedValue(it)
	}
	rv, ok := optimizer.EvaluatePure(tag, toRecordedValue(a), toRecordedValue(b), toRecordedValue(c), recItems)
	if !ok {
		return Value{}, false
	}
	return fromRecordedValue(rv), true
}

func emitBinary(g *Generator, tag plan.OpKindTag, a, b Value) Value {
	id := g.sch.AddOp(schema.SchemaOp{Tag: int(tag), A: ToSchemaValue(a), B: ToSchemaValue(b)})
	return OpRefVal(id)
}

func emitUnary(g *Generator, tag plan.OpKindTag, a Value) Value {
	id := g.sch.AddOp(schema.SchemaOp{Tag: int(tag), A: ToSchemaValue(a)})
	return OpRefVal(id)
}
