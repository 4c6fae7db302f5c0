// Package blueprintvalue defines the canonical, serializable value types
// shared by the schema, plan, resolver, optimizer, validator, and
// interpreter: RecordedValue, Accessor, and ValueRef.
//
// These are the "flat" wire-level values. The richer
// generator-internal value model - closures, sets, partials - lives in
// package generator and lowers into RecordedValue at the schema-emission
// boundary; it never appears here.
package blueprintvalue

import (
	"fmt"
	"sort"
)

// OpId is a dense, monotonically assigned identifier for an Op within a
// Plan (or a SchemaOp within a Schema - the two id spaces are distinct but
// share this representation).
type OpId uint64

// Kind tags the variant of a RecordedValue.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindList:
		return "List"
	case KindDict:
		return "Dict"
	default:
		return "Unknown"
	}
}

// RecordedValue is the canonical, serializable value sum produced by ops
// and carried by Literal ValueRefs. Equality between RecordedValues is
// strict per-variant: Int(1) and Bool(true) are never equal here, even
// though the generator's own internal Value type coerces Int/Float
// comparisons across types. The two equality definitions are intentionally
// not unified - see DESIGN.md.
type RecordedValue struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Bytes []byte
	List  []RecordedValue
	Dict  map[string]RecordedValue
}

func None() RecordedValue                        { return RecordedValue{Kind: KindNone} }
func BoolVal(b bool) RecordedValue                { return RecordedValue{Kind: KindBool, Bool: b} }
func IntVal(i int64) RecordedValue                { return RecordedValue{Kind: KindInt, Int: i} }
func FloatVal(f float64) RecordedValue            { return RecordedValue{Kind: KindFloat, Float: f} }
func StringVal(s string) RecordedValue            { return RecordedValue{Kind: KindString, Str: s} }
func BytesVal(b []byte) RecordedValue             { return RecordedValue{Kind: KindBytes, Bytes: b} }
func ListVal(items []RecordedValue) RecordedValue { return RecordedValue{Kind: KindList, List: items} }
func DictVal(m map[string]RecordedValue) RecordedValue {
	return RecordedValue{Kind: KindDict, Dict: m}
}

// SortedKeys returns the Dict's keys in sorted order, the order used by
// every deterministic serialization and hash of a Dict value.
func (v RecordedValue) SortedKeys() []string {
	keys := make([]string, 0, len(v.Dict))
	for k := range v.Dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal implements the strict per-variant equality used by the Eq/Ne fold
// path: values of different Kind are never equal, including Int vs Bool.
func (v RecordedValue) Equal(other RecordedValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNone:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.Str == other.Str
	case KindBytes:
		if len(v.Bytes) != len(other.Bytes) {
			return false
		}
		for i := range v.Bytes {
			if v.Bytes[i] != other.Bytes[i] {
				return false
			}
		}
		return true
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case KindDict:
		if len(v.Dict) != len(other.Dict) {
			return false
		}
		for k, a := range v.Dict {
			b, ok := other.Dict[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsTruthy implements Python-style truthiness for conditions folded or
// executed against a RecordedValue.
func (v RecordedValue) IsTruthy() bool {
	switch v.Kind {
	case KindNone:
		return false
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindString:
		return v.Str != ""
	case KindBytes:
		return len(v.Bytes) > 0
	case KindList:
		return len(v.List) > 0
	case KindDict:
		return len(v.Dict) > 0
	default:
		return false
	}
}

// String renders a RecordedValue the way Print op execution and the str()
// builtin do: Python str() conventions, not repr().
func (v RecordedValue) String() string {
	switch v.Kind {
	case KindNone:
		return "None"
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return formatFloat(v.Float)
	case KindString:
		return v.Str
	case KindBytes:
		return string(v.Bytes)
	case KindList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.Repr()
		}
		return "[" + joinComma(parts) + "]"
	case KindDict:
		keys := v.SortedKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%q: %s", k, v.Dict[k].Repr())
		}
		return "{" + joinComma(parts) + "}"
	default:
		return ""
	}
}

// Repr renders a RecordedValue the way Python's repr() would: strings
// quoted, bytes as b"...", floats always carrying a decimal point.
func (v RecordedValue) Repr() string {
	switch v.Kind {
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindBytes:
		return "b" + fmt.Sprintf("%q", string(v.Bytes))
	default:
		return v.String()
	}
}

func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			return s
		}
	}
	return s + ".0"
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// AccessorKind tags the variant of an Accessor path step.
type AccessorKind int

const (
	AccessorField AccessorKind = iota
	AccessorIndex
)

// Accessor is one step of a projection path applied to an OpOutput value:
// a Dict field name or a List index (negative indices count from the end).
type Accessor struct {
	Kind  AccessorKind
	Field string
	Index int64
}

func FieldAccessor(name string) Accessor { return Accessor{Kind: AccessorField, Field: name} }
func IndexAccessor(i int64) Accessor     { return Accessor{Kind: AccessorIndex, Index: i} }

// RefKind tags the variant of a ValueRef.
type RefKind int

const (
	RefLiteral RefKind = iota
	RefOpOutput
	RefDynamic
	RefList
)

// ValueRef is a plan-level reference to a concrete value: a literal, an
// op's (optionally projected) output, a sub-plan parameter, or a
// heterogeneous list of further ValueRefs.
type ValueRef struct {
	Kind    RefKind
	Literal RecordedValue
	Op      OpId
	Path    []Accessor
	Name    string
	Items   []ValueRef
}

func Literal(v RecordedValue) ValueRef { return ValueRef{Kind: RefLiteral, Literal: v} }
func LiteralString(s string) ValueRef  { return Literal(StringVal(s)) }
func LiteralInt(i int64) ValueRef      { return Literal(IntVal(i)) }
func OpOutput(op OpId, path ...Accessor) ValueRef {
	return ValueRef{Kind: RefOpOutput, Op: op, Path: path}
}
func Dynamic(name string) ValueRef { return ValueRef{Kind: RefDynamic, Name: name} }
func ListRef(items []ValueRef) ValueRef {
	return ValueRef{Kind: RefList, Items: items}
}

// OpRefs returns the OpIds this ValueRef transitively references, used by
// Op construction to compute materialized Inputs and by the optimizer/
// validator to walk data dependencies.
func (r ValueRef) OpRefs() []OpId {
	switch r.Kind {
	case RefOpOutput:
		return []OpId{r.Op}
	case RefList:
		var out []OpId
		for _, item := range r.Items {
			out = append(out, item.OpRefs()...)
		}
		return out
	default:
		return nil
	}
}

// ResolvePath projects accessors onto a base RecordedValue: Field on Dict
// only, Index on List only, with negative-index wraparound.
func ResolvePath(base RecordedValue, path []Accessor) (RecordedValue, bool) {
	current := base
	for _, acc := range path {
		switch acc.Kind {
		case AccessorField:
			if current.Kind != KindDict {
				return RecordedValue{}, false
			}
			v, ok := current.Dict[acc.Field]
			if !ok {
				return RecordedValue{}, false
			}
			current = v
		case AccessorIndex:
			if current.Kind != KindList {
				return RecordedValue{}, false
			}
			idx := acc.Index
			if idx < 0 {
				idx = int64(len(current.List)) + idx
			}
			if idx < 0 || idx >= int64(len(current.List)) {
				return RecordedValue{}, false
			}
			current = current.List[idx]
		}
	}
	return current, true
}
