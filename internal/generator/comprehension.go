package generator

import (
	"github.com/alexchoi0/blueprint/internal/ast"
	"github.com/alexchoi0/blueprint/internal/plan"
	"github.com/alexchoi0/blueprint/internal/schema"
)

func (g *Generator) evalComprehension(e *ast.Comprehension, scope *Scope) (Value, error) {
	iterable, err := g.eval(e.Iterable, scope)
	if err != nil {
		return Value{}, err
	}
	if !iterable.IsDynamic() {
		return g.evalStaticComprehension(e, iterable, scope)
	}
	if e.Kind == ast.CompDict {
		return Value{}, withLine(unsupportedNodeError("dict comprehension over a dynamic iterable is unsupported"), e.Line())
	}
	return g.evalDynamicComprehension(e, iterable, scope)
}

func (g *Generator) evalStaticComprehension(e *ast.Comprehension, iterable Value, scope *Scope) (Value, error) {
	if iterable.Kind != VList && iterable.Kind != VSet && iterable.Kind != VTuple {
		return Value{}, withLine(typeError("comprehension requires an iterable"), e.Line())
	}
	var items []Value
	var dictKeys []string
	dict := map[string]Value{}
	for _, item := range iterable.List {
		inner := scope.Child()
		inner.Define(e.ItemName, item)
		if e.Cond != nil {
			cond, err := g.eval(e.Cond, inner)
			if err != nil {
				return Value{}, err
			}
			if cond.IsDynamic() {
				return Value{}, withLine(unsupportedNodeError("comprehension filter depends on a dynamic value"), e.Line())
			}
			if !cond.IsTruthy() {
				continue
			}
		}
		if e.Kind == ast.CompDict {
			k, err := g.eval(e.KeyElem, inner)
			if err != nil {
				return Value{}, err
			}
			if k.Kind != VStr {
				return Value{}, withLine(unhashableKeyError(), e.Line())
			}
			v, err := g.eval(e.ValElem, inner)
			if err != nil {
				return Value{}, err
			}
			if _, exists := dict[k.Str]; !exists {
				dictKeys = append(dictKeys, k.Str)
			}
			dict[k.Str] = v
			continue
		}
		v, err := g.eval(e.Element, inner)
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	switch e.Kind {
	case ast.CompDict:
		return DictVal(dictKeys, dict), nil
	case ast.CompSet:
		return SetVal(items), nil
	default:
		return ListVal(items), nil
	}
}

// evalDynamicComprehension desugars a list/set/generator comprehension
// over a dynamic iterable into a ForEach schema op, with the element
// expression as the body's sole output. A filter clause is rejected here
// rather than lowered to a nested IfBlock: the interpreter always invokes
// an IfBlock's Then/Else branch with an empty parameter binding (see
// runSubPlan's IfBlock case), so a filter nested inside a ForEach body
// would lose access to the very loop variable it needs to test - this is
// recorded as a known limitation rather than worked around with a
// redesign of IfBlock's parameter passing (see DESIGN.md).
func (g *Generator) evalDynamicComprehension(e *ast.Comprehension, iterable Value, scope *Scope) (Value, error) {
	if e.Cond != nil {
		return Value{}, withLine(unsupportedNodeError("comprehension filter over a dynamic iterable is unsupported"), e.Line())
	}
	inner := &Generator{sch: schema.New()}
	bodyScope := scope.Child()
	bodyScope.Define(e.ItemName, Value{Kind: VParamRef, ParamRef: e.ItemName})

	element, err := inner.eval(e.Element, bodyScope)
	if err != nil {
		return Value{}, err
	}
	outputID := wrapAsOp(inner.sch, element)

	id := g.sch.AddOp(schema.SchemaOp{
		Tag:  int(plan.ForEach),
		A:    ToSchemaValue(iterable),
		Body: &schema.SubPlan{Params: []string{e.ItemName}, Ops: inner.sch.Ops, Output: outputID},
		Name: e.ItemName,
	})
	return OpRefVal(id), nil
}
