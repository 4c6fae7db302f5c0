package generator

import (
	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/schema"
)

// ToSchemaValue lowers a fully-evaluated or partially-dynamic generator
// Value into the SchemaValue the plan resolver understands. Fully static
// values become Literal; any value holding a dynamic marker becomes
// List([...]) with per-element lowering, or the marker's own
// OpOutput/Dynamic form directly. Bytes values lower to List<Int> (one
// element per byte) rather than RecordedValue's own Bytes variant - the
// generator never produces that variant directly, preserving the
// original's lowering boundary exactly rather than "fixing" the
// asymmetry (see DESIGN.md).
func ToSchemaValue(v Value) schema.SchemaValue {
	switch v.Kind {
	case VNone:
		return schema.Literal(blueprintvalue.None())
	case VBool:
		return schema.Literal(blueprintvalue.BoolVal(v.Bool))
	case VInt:
		return schema.Literal(blueprintvalue.IntVal(v.Int))
	case VFloat:
		return schema.Literal(blueprintvalue.FloatVal(v.Float))
	case VStr:
		return schema.Literal(blueprintvalue.StringVal(v.Str))

	case VBytes:
		items := make([]schema.SchemaValue, len(v.Bytes))
		for i, b := range v.Bytes {
			items[i] = schema.Literal(blueprintvalue.IntVal(int64(b)))
		}
		return schema.ListVal(items)

	case VList, VSet, VTuple:
		if !v.IsDynamic() {
			items := make([]blueprintvalue.RecordedValue, len(v.List))
			for i, item := range v.List {
				items[i] = toRecordedValue(item)
			}
			return schema.Literal(blueprintvalue.ListVal(items))
		}
		items := make([]schema.SchemaValue, len(v.List))
		for i, item := range v.List {
			items[i] = ToSchemaValue(item)
		}
		return schema.ListVal(items)

	case VDict:
		if !v.IsDynamic() {
			m := make(map[string]blueprintvalue.RecordedValue, len(v.keys))
			for _, k := range v.keys {
				m[k] = toRecordedValue(v.Dict[k])
			}
			return schema.Literal(blueprintvalue.DictVal(m))
		}
		// A dynamic dict has no schema-level representation (SchemaValue
		// carries no Dict variant); lower it to a List of [key, value]
		// pairs, which ToSchemaValue's List case already knows how to fold.
		pairs := make([]Value, len(v.keys))
		for i, k := range v.keys {
			pairs[i] = TupleVal([]Value{StrVal(k), v.Dict[k]})
		}
		return ToSchemaValue(ListVal(pairs))

	case VOpRef:
		return schema.OpOutput(v.OpRef)

	case VParamRef:
		return schema.Dynamic(v.ParamRef)

	default:
		return schema.Literal(blueprintvalue.None())
	}
}

// toRecordedValue converts a fully-static Value (IsDynamic() == false)
// directly to a RecordedValue, skipping the SchemaValue indirection -
// used when lowering a static list/dict's elements.
func toRecordedValue(v Value) blueprintvalue.RecordedValue {
	switch v.Kind {
	case VNone:
		return blueprintvalue.None()
	case VBool:
		return blueprintvalue.BoolVal(v.Bool)
	case VInt:
		return blueprintvalue.IntVal(v.Int)
	case VFloat:
		return blueprintvalue.FloatVal(v.Float)
	case VStr:
		return blueprintvalue.StringVal(v.Str)
	case VBytes:
		return blueprintvalue.BytesVal(v.Bytes)
	case VList, VSet, VTuple:
		items := make([]blueprintvalue.RecordedValue, len(v.List))
		for i, item := range v.List {
			items[i] = toRecordedValue(item)
		}
		return blueprintvalue.ListVal(items)
	case VDict:
		m := make(map[string]blueprintvalue.RecordedValue, len(v.keys))
		for _, k := range v.keys {
			m[k] = toRecordedValue(v.Dict[k])
		}
		return blueprintvalue.DictVal(m)
	default:
		return blueprintvalue.None()
	}
}
