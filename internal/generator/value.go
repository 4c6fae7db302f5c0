// Package generator implements the schema generator: it walks a
// typed ast.Program, partially evaluating pure subexpressions and
// emitting schema.SchemaOps for anything that depends on I/O or a
// dynamic (not-yet-known) value.
package generator

import "github.com/alexchoi0/blueprint/internal/schema"

// ValueKind tags the variant of a generator-internal Value. Richer than
// blueprintvalue.RecordedValue: it additionally represents sets, tuples,
// closures, partial applications, and the two dynamic markers (OpRef,
// ParamRef) that make "this subexpression can't be evaluated at
// generation time" a first-class value rather than an error.
type ValueKind int

const (
	VNone ValueKind = iota
	VBool
	VInt
	VFloat
	VStr
	VBytes
	VList
	VDict
	VSet
	VTuple
	VClosure
	VPartial
	VOpRef
	VParamRef
)

// Value is the generator's internal runtime value, rich enough to
// partially evaluate arbitrary pure Python-subset expressions before
// lowering the result to a schema.SchemaValue at the point it's consumed
// by an emitted op or becomes the generator's final output.
type Value struct {
	Kind ValueKind

	Bool  bool
	Int   int64
	Float float64
	Str   string
	Bytes []byte

	List []Value
	Dict map[string]Value
	keys []string // insertion order, for deterministic iteration/dict lowering

	Closure *Closure
	Partial *Partial

	OpRef    schema.SchemaOpId
	ParamRef string
}

// Closure captures a function's parameter list, body, and a reference to
// the scope active when it was defined - the defining scope may in turn
// hold the closure itself (a function that recurses via its own name),
// which is an ordinary reference cycle Go's garbage collector resolves
// without any special handling.
type Closure struct {
	Name    string
	Params  []ClosureParam
	Body    interface{} // []ast.Stmt, typed at the call site to avoid an import cycle with ast in this file
	Defined *Scope
}

type ClosureParam struct {
	Name      string
	Default   *Value
	IsVarArgs bool
	IsKwArgs  bool
}

// Partial is a partially-applied call: a callable plus a prefix of
// already-bound positional arguments, produced by binding fewer
// arguments than a closure's arity requires it to be called (builtins
// never partially apply; only user closures do).
type Partial struct {
	Target Value
	Bound  []Value
}

func None() Value               { return Value{Kind: VNone} }
func BoolVal(b bool) Value       { return Value{Kind: VBool, Bool: b} }
func IntVal(i int64) Value       { return Value{Kind: VInt, Int: i} }
func FloatVal(f float64) Value   { return Value{Kind: VFloat, Float: f} }
func StrVal(s string) Value      { return Value{Kind: VStr, Str: s} }
func BytesVal(b []byte) Value    { return Value{Kind: VBytes, Bytes: b} }
func ListVal(items []Value) Value { return Value{Kind: VList, List: items} }
func SetVal(items []Value) Value  { return Value{Kind: VSet, List: items} }
func TupleVal(items []Value) Value { return Value{Kind: VTuple, List: items} }
func OpRefVal(id schema.SchemaOpId) Value { return Value{Kind: VOpRef, OpRef: id} }
func ParamRefVal(name string) Value       { return Value{Kind: VParamRef, ParamRef: name} }

func DictVal(keys []string, m map[string]Value) Value {
	return Value{Kind: VDict, Dict: m, keys: append([]string(nil), keys...)}
}

// Keys returns a dict Value's keys in insertion order.
func (v Value) Keys() []string { return v.keys }

// IsDynamic reports whether v is, or transitively contains, an OpRef or
// ParamRef marker - the condition under which an expression built from v
// can no longer be evaluated at generation time and must instead emit a
// schema op.
func (v Value) IsDynamic() bool {
	switch v.Kind {
	case VOpRef, VParamRef:
		return true
	case VList, VSet, VTuple:
		for _, item := range v.List {
			if item.IsDynamic() {
				return true
			}
		}
		return false
	case VDict:
		for _, k := range v.keys {
			if v.Dict[k].IsDynamic() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IsTruthy mirrors Python's truthiness for the value kinds the generator
// can fold: used by `if`/`and`/`or`/ternary evaluation over fully static
// operands.
func (v Value) IsTruthy() bool {
	switch v.Kind {
	case VNone:
		return false
	case VBool:
		return v.Bool
	case VInt:
		return v.Int != 0
	case VFloat:
		return v.Float != 0
	case VStr:
		return v.Str != ""
	case VBytes:
		return len(v.Bytes) > 0
	case VList, VSet, VTuple:
		return len(v.List) > 0
	case VDict:
		return len(v.keys) > 0
	default:
		return true
	}
}
