package generator

import (
	"github.com/alexchoi0/blueprint/internal/ast"
	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/plan"
	"github.com/alexchoi0/blueprint/internal/schema"
)

func (g *Generator) eval(expr ast.Expr, scope *Scope) (Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return g.evalLiteral(e), nil

	case *ast.Name:
		v, ok := scope.Get(e.Ident)
		if !ok {
			return Value{}, withLine(undefinedNameError(e.Ident), e.Line())
		}
		return v, nil

	case *ast.BinOp:
		return g.evalBinOp(e, scope)

	case *ast.BoolOp:
		return g.evalBoolOp(e, scope)

	case *ast.UnaryOp:
		return g.evalUnaryOp(e, scope)

	case *ast.Call:
		return g.evalCall(e, scope)

	case *ast.Attribute:
		return g.evalAttribute(e, scope)

	case *ast.Subscript:
		return g.evalSubscript(e, scope)

	case *ast.ListExpr:
		return g.evalSequence(e.Items, scope, ListVal)

	case *ast.SetExpr:
		return g.evalSequence(e.Items, scope, SetVal)

	case *ast.TupleExpr:
		return g.evalSequence(e.Items, scope, TupleVal)

	case *ast.DictExpr:
		return g.evalDict(e, scope)

	case *ast.IfExpr:
		return g.evalIfExpr(e, scope)

	case *ast.Lambda:
		return Value{Kind: VClosure, Closure: &Closure{
			Params:  paramsFromAST(e.Params),
			Body:    []ast.Stmt{ast.NewReturn(e.Line(), e.Body)},
			Defined: scope,
		}}, nil

	case *ast.Comprehension:
		return g.evalComprehension(e, scope)

	case *ast.Starred:
		return g.eval(e.Value, scope)

	default:
		return Value{}, withLine(unsupportedNodeError("unsupported expression node"), expr.Line())
	}
}

func (g *Generator) evalLiteral(l *ast.Literal) Value {
	switch l.Kind {
	case ast.LitNone:
		return None()
	case ast.LitBool:
		return BoolVal(l.Bool)
	case ast.LitInt:
		return IntVal(l.Int)
	case ast.LitFloat:
		return FloatVal(l.Float)
	case ast.LitString:
		return StrVal(l.Str)
	case ast.LitBytes:
		return BytesVal(l.Bytes)
	default:
		return None()
	}
}

func (g *Generator) evalSequence(items []ast.Expr, scope *Scope, build func([]Value) Value) (Value, error) {
	out := make([]Value, 0, len(items))
	for _, item := range items {
		if star, ok := item.(*ast.Starred); ok {
			v, err := g.eval(star.Value, scope)
			if err != nil {
				return Value{}, err
			}
			if v.IsDynamic() {
				return Value{}, withLine(unsupportedNodeError("splat of a dynamic value is unsupported"), item.Line())
			}
			out = append(out, v.List...)
			continue
		}
		v, err := g.eval(item, scope)
		if err != nil {
			return Value{}, err
		}
		out = append(out, v)
	}
	return build(out), nil
}

func (g *Generator) evalDict(e *ast.DictExpr, scope *Scope) (Value, error) {
	keys := make([]string, 0, len(e.Entries))
	m := make(map[string]Value, len(e.Entries))
	for _, entry := range e.Entries {
		k, err := g.eval(entry.Key, scope)
		if err != nil {
			return Value{}, err
		}
		if k.Kind != VStr {
			return Value{}, withLine(unhashableKeyError(), e.Line())
		}
		v, err := g.eval(entry.Value, scope)
		if err != nil {
			return Value{}, err
		}
		if _, exists := m[k.Str]; !exists {
			keys = append(keys, k.Str)
		}
		m[k.Str] = v
	}
	return DictVal(keys, m), nil
}

func (g *Generator) evalBinOp(e *ast.BinOp, scope *Scope) (Value, error) {
	left, err := g.eval(e.Left, scope)
	if err != nil {
		return Value{}, err
	}
	right, err := g.eval(e.Right, scope)
	if err != nil {
		return Value{}, err
	}
	tag, ok := binOpTag(e.Op)
	if !ok {
		return Value{}, withLine(unsupportedNodeError("unsupported binary operator"), e.Line())
	}
	if !left.IsDynamic() && !right.IsDynamic() {
		if tag == plan.Div || tag == plan.FloorDiv || tag == plan.Mod {
			if isZero(right) {
				return Value{}, withLine(divisionByZeroError(), e.Line())
			}
		}
		if folded, ok := foldPure(tag, left, right, None(), nil); ok {
			return folded, nil
		}
		return Value{}, withLine(typeError("incompatible operand types"), e.Line())
	}
	return emitBinary(g, tag, left, right), nil
}

func isZero(v Value) bool {
	return (v.Kind == VInt && v.Int == 0) || (v.Kind == VFloat && v.Float == 0)
}

func binOpTag(op ast.BinOpKind) (plan.OpKindTag, bool) {
	switch op {
	case ast.OpAdd:
		return plan.Add, true
	case ast.OpSub:
		return plan.Sub, true
	case ast.OpMul:
		return plan.Mul, true
	case ast.OpDiv:
		return plan.Div, true
	case ast.OpFloorDiv:
		return plan.FloorDiv, true
	case ast.OpMod:
		return plan.Mod, true
	case ast.OpEq:
		return plan.Eq, true
	case ast.OpNe:
		return plan.Ne, true
	case ast.OpLt:
		return plan.Lt, true
	case ast.OpLe:
		return plan.Le, true
	case ast.OpGt:
		return plan.Gt, true
	case ast.OpGe:
		return plan.Ge, true
	case ast.OpConcat:
		return plan.Concat, true
	default:
		return 0, false
	}
}

func (g *Generator) evalBoolOp(e *ast.BoolOp, scope *Scope) (Value, error) {
	tag := plan.And
	if e.Op == ast.BoolOr {
		tag = plan.Or
	}
	if len(e.Values) == 0 {
		return Value{}, withLine(unsupportedNodeError("empty bool expression"), e.Line())
	}
	acc, err := g.eval(e.Values[0], scope)
	if err != nil {
		return Value{}, err
	}
	for _, expr := range e.Values[1:] {
		right, err := g.eval(expr, scope)
		if err != nil {
			return Value{}, err
		}
		if !acc.IsDynamic() && !right.IsDynamic() {
			acc, _ = foldPure(tag, acc, right, None(), nil)
			continue
		}
		acc = emitBinary(g, tag, acc, right)
	}
	return acc, nil
}

func (g *Generator) evalUnaryOp(e *ast.UnaryOp, scope *Scope) (Value, error) {
	operand, err := g.eval(e.Operand, scope)
	if err != nil {
		return Value{}, err
	}
	if e.Op == ast.UnaryPos {
		return operand, nil
	}
	tag := plan.Not
	if e.Op == ast.UnaryNeg {
		tag = plan.Neg
	}
	if !operand.IsDynamic() {
		if folded, ok := foldPure(tag, operand, None(), None(), nil); ok {
			return folded, nil
		}
		return Value{}, withLine(typeError("incompatible operand type"), e.Line())
	}
	return emitUnary(g, tag, operand), nil
}

func (g *Generator) evalAttribute(e *ast.Attribute, scope *Scope) (Value, error) {
	base, err := g.eval(e.Value, scope)
	if err != nil {
		return Value{}, err
	}
	if base.Kind != VDict {
		return Value{}, withLine(typeError("attribute access requires a dict-like value"), e.Line())
	}
	if v, ok := base.Dict[e.Name]; ok {
		return v, nil
	}
	return Value{}, withLine(undefinedNameError(e.Name), e.Line())
}

func (g *Generator) evalSubscript(e *ast.Subscript, scope *Scope) (Value, error) {
	base, err := g.eval(e.Value, scope)
	if err != nil {
		return Value{}, err
	}
	idx, err := g.eval(e.Index, scope)
	if err != nil {
		return Value{}, err
	}
	if base.Kind == VDict {
		if idx.IsDynamic() {
			return Value{}, withLine(unsupportedNodeError("dynamic dict subscript is unsupported"), e.Line())
		}
		if idx.Kind != VStr {
			return Value{}, withLine(unhashableKeyError(), e.Line())
		}
		v, ok := base.Dict[idx.Str]
		if !ok {
			return Value{}, withLine(typeError("key not found: "+idx.Str), e.Line())
		}
		return v, nil
	}
	if !base.IsDynamic() && !idx.IsDynamic() {
		if folded, ok := foldPure(plan.Index, base, idx, None(), nil); ok {
			return folded, nil
		}
		return Value{}, withLine(typeError("index out of range"), e.Line())
	}
	return emitBinary(g, plan.Index, base, idx), nil
}

func (g *Generator) evalIfExpr(e *ast.IfExpr, scope *Scope) (Value, error) {
	cond, err := g.eval(e.Cond, scope)
	if err != nil {
		return Value{}, err
	}
	if !cond.IsDynamic() {
		if cond.IsTruthy() {
			return g.eval(e.Then, scope)
		}
		return g.eval(e.Else, scope)
	}
	then, err := g.eval(e.Then, scope)
	if err != nil {
		return Value{}, err
	}
	els, err := g.eval(e.Else, scope)
	if err != nil {
		return Value{}, err
	}
	id := g.sch.AddOp(schema.SchemaOp{Tag: int(plan.If), A: ToSchemaValue(cond), B: ToSchemaValue(then), C: ToSchemaValue(els)})
	return OpRefVal(id), nil
}

// wrapAsOp materializes v as a schema op id within sch, so it can serve
// as a SubPlan.Output. An already-dynamic OpRef value is used directly;
// a static value is wrapped in a trivially-true If, reusing If's
// existing fold/execute semantics as an identity operation rather than
// introducing a dedicated no-op tag.
func wrapAsOp(sch *schema.Schema, v Value) schema.SchemaOpId {
	if v.Kind == VOpRef {
		return v.OpRef
	}
	sv := ToSchemaValue(v)
	return sch.AddOp(schema.SchemaOp{
		Tag: int(plan.If),
		A:   schema.Literal(blueprintvalue.BoolVal(true)),
		B:   sv,
		C:   sv,
	})
}
