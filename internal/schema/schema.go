// Package schema defines the pre-resolution analog of a plan.Plan: the
// output of the schema generator before an ExecutionContext is available.
// SchemaValue carries the same variants as blueprintvalue.ValueRef plus
// placeholder references (ConfigPath/EnvRef/ContextVar) that only the
// plan resolver can evaluate.
package schema

import "github.com/alexchoi0/blueprint/internal/blueprintvalue"

// SchemaOpId is a schema-local op identifier, in its own numbering space
// distinct from plan.OpId (the resolver assigns fresh plan OpIds when it
// materializes a Schema into a Plan).
type SchemaOpId uint64

// RefKind tags the variant of a SchemaValue.
type RefKind int

const (
	RefLiteral RefKind = iota
	RefOpOutput
	RefDynamic
	RefList
	RefConfigPath
	RefEnvRef
	RefContextVar
)

// SchemaValue mirrors blueprintvalue.ValueRef with three additional
// placeholder variants that remain symbolic until plan resolution.
type SchemaValue struct {
	Kind    RefKind
	Literal blueprintvalue.RecordedValue
	Op      SchemaOpId
	Path    []blueprintvalue.Accessor
	Name    string
	Items   []SchemaValue
}

func Literal(v blueprintvalue.RecordedValue) SchemaValue {
	return SchemaValue{Kind: RefLiteral, Literal: v}
}
func OpOutput(op SchemaOpId, path ...blueprintvalue.Accessor) SchemaValue {
	return SchemaValue{Kind: RefOpOutput, Op: op, Path: path}
}
func Dynamic(name string) SchemaValue { return SchemaValue{Kind: RefDynamic, Name: name} }
func ListVal(items []SchemaValue) SchemaValue {
	return SchemaValue{Kind: RefList, Items: items}
}
func ConfigPath(name string) SchemaValue { return SchemaValue{Kind: RefConfigPath, Name: name} }
func EnvRef(name string) SchemaValue     { return SchemaValue{Kind: RefEnvRef, Name: name} }
func ContextVar(name string) SchemaValue { return SchemaValue{Kind: RefContextVar, Name: name} }

// OpRefs returns every SchemaOpId this SchemaValue transitively references.
func (r SchemaValue) OpRefs() []SchemaOpId {
	switch r.Kind {
	case RefOpOutput:
		return []SchemaOpId{r.Op}
	case RefList:
		var out []SchemaOpId
		for _, item := range r.Items {
			out = append(out, item.OpRefs()...)
		}
		return out
	default:
		return nil
	}
}

// SchemaOp mirrors plan.Op at the schema level: same OpKind tag space
// (reusing plan's OpKindTag so resolver translation is a direct copy),
// but operands are SchemaValues and dependencies are schema-local ids.
type SchemaOp struct {
	Id             SchemaOpId
	Tag            int // plan.OpKindTag, kept untyped here to avoid an import cycle
	A, B, C        SchemaValue
	Items          []SchemaValue
	Count          int64
	Name           string
	Then           *SubPlan
	Else           *SubPlan
	Body           *SubPlan
	Parallel       bool
	After          SchemaOpId
	SourceLocation string
}

// SubPlan is the schema-level analog of plan.SubPlan.
type SubPlan struct {
	Params []string
	Ops    []SchemaOp
	Output SchemaOpId
}

// Schema is a flat, ordered list of schema ops with local ids, plus a
// side dictionary of emitted top-level globals kept for inspection only
// (the core pipeline never reads it back).
type Schema struct {
	Ops     []SchemaOp
	NextID  SchemaOpId
	Globals map[string]blueprintvalue.RecordedValue
}

func New() *Schema {
	return &Schema{Globals: make(map[string]blueprintvalue.RecordedValue)}
}

// AddOp appends a schema op and returns its freshly assigned id.
func (s *Schema) AddOp(op SchemaOp) SchemaOpId {
	id := s.NextID
	s.NextID++
	op.Id = id
	s.Ops = append(s.Ops, op)
	return id
}
