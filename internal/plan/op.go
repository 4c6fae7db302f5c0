// Package plan defines the concrete, resolved dataflow graph: Op, OpKind,
// Plan, and SubPlan, plus ComputeLevels - the topological leveling that
// the interpreter drives. OpKind is a closed tagged union; the functions
// that switch over it (input collection, folding, side-effect
// classification, rendering) send unlisted tags to a default branch, and
// the compiler does not flag a switch that misses a newly added tag.
package plan

import (
	"fmt"
	"sort"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
)

type OpId = blueprintvalue.OpId
type ValueRef = blueprintvalue.ValueRef
type Accessor = blueprintvalue.Accessor
type RecordedValue = blueprintvalue.RecordedValue

// OpKindTag identifies the variant of an OpKind.
type OpKindTag int

const (
	// arithmetic and comparison
	Add OpKindTag = iota
	Sub
	Mul
	Div
	FloorDiv
	Mod
	Neg
	Abs
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	Not
	And
	Or

	// collection
	Concat
	Len
	Contains
	Index
	Min
	Max
	Sum
	Sorted
	Reversed

	// coercion
	ToBool
	ToInt
	ToFloat
	ToStr

	// control
	If
	IfBlock
	ForEach
	Break
	Continue
	After
	AtLeast
	AtMost

	// codecs
	JsonEncode
	JsonDecode

	// effects
	Print
	Now
	Sleep
	ReadFile
	WriteFile
	AppendFile
	DeleteFile
	ListDir
	Mkdir
	Rmdir
	CopyFile
	MoveFile
	FileExists
	IsDir
	IsFile
	FileSize
	HttpRequest
	TcpConnect
	TcpListen
	UdpBind
	UdpSendTo
	UnixConnect
	UnixListen
	Exec
	EnvGet
)

var tagNames = map[OpKindTag]string{
	Add: "Add", Sub: "Sub", Mul: "Mul", Div: "Div", FloorDiv: "FloorDiv", Mod: "Mod",
	Neg: "Neg", Abs: "Abs", Eq: "Eq", Ne: "Ne", Lt: "Lt", Le: "Le", Gt: "Gt", Ge: "Ge",
	Not: "Not", And: "And", Or: "Or",
	Concat: "Concat", Len: "Len", Contains: "Contains", Index: "Index",
	Min: "Min", Max: "Max", Sum: "Sum", Sorted: "Sorted", Reversed: "Reversed",
	ToBool: "ToBool", ToInt: "ToInt", ToFloat: "ToFloat", ToStr: "ToStr",
	If: "If", IfBlock: "IfBlock", ForEach: "ForEach", Break: "Break", Continue: "Continue",
	After: "After", AtLeast: "AtLeast", AtMost: "AtMost",
	JsonEncode: "JsonEncode", JsonDecode: "JsonDecode",
	Print: "Print", Now: "Now", Sleep: "Sleep",
	ReadFile: "ReadFile", WriteFile: "WriteFile", AppendFile: "AppendFile", DeleteFile: "DeleteFile",
	ListDir: "ListDir", Mkdir: "Mkdir", Rmdir: "Rmdir", CopyFile: "CopyFile", MoveFile: "MoveFile",
	FileExists: "FileExists", IsDir: "IsDir", IsFile: "IsFile", FileSize: "FileSize",
	HttpRequest: "HttpRequest", TcpConnect: "TcpConnect", TcpListen: "TcpListen",
	UdpBind: "UdpBind", UdpSendTo: "UdpSendTo", UnixConnect: "UnixConnect", UnixListen: "UnixListen",
	Exec: "Exec", EnvGet: "EnvGet",
}

func (t OpKindTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("OpKindTag(%d)", int(t))
}

// OpKind is the closed tagged union of supported operations. Rather than
// one Go type per variant, the less-common operand shapes share generic
// slots (A/B/C, Items, Count, Name) the way a discriminated union would
// in a language without algebraic data types. Operands and OpRefs below
// show which slots each tag reads, and every switch over Tag has to be
// updated by hand when a new variant is added.
type OpKind struct {
	Tag OpKindTag

	A, B, C ValueRef
	Items   []ValueRef

	Count int64
	Name  string

	Then *SubPlan
	Else *SubPlan
	Body *SubPlan

	Parallel bool
	After    OpId
}

// Operands returns every ValueRef directly held by this OpKind, in a
// stable order, used to compute an Op's materialized Inputs.
func (k OpKind) Operands() []ValueRef {
	var out []ValueRef
	switch k.Tag {
	case Neg, Abs, Not, Len, ToBool, ToInt, ToFloat, ToStr, JsonEncode, JsonDecode,
		Print, Sleep, ReadFile, DeleteFile, ListDir, Mkdir, Rmdir, FileExists, IsDir, IsFile,
		FileSize, UnixConnect, UnixListen, EnvGet, Min, Max, Sum, Sorted, Reversed:
		out = append(out, k.A)
	case Add, Sub, Mul, Div, FloorDiv, Mod, Eq, Ne, Lt, Le, Gt, Ge, And, Or,
		Concat, Contains, Index, WriteFile, AppendFile, CopyFile, MoveFile,
		TcpConnect, TcpListen, UdpBind, UdpSendTo:
		out = append(out, k.A, k.B)
	case If, Exec:
		out = append(out, k.A, k.B, k.C)
	case HttpRequest:
		out = append(out, k.A, k.B, k.C)
	case Now:
		// no operands
	case AtLeast, AtMost:
		out = append(out, k.Items...)
	default:
		// control-flow kinds (IfBlock, ForEach, Break, Continue, After) carry
		// their dynamic operands in dedicated fields handled by callers that
		// need sub-plan traversal; OpRefs below adds the IfBlock/ForEach A
		// operand and the After edge.
	}
	return out
}

// OpRefs returns every OpId referenced by this OpKind's operands, by the
// IfBlock/ForEach A operand, and by the After ordering edge. Ops inside
// Then/Else/Body sub-plans are not traversed.
func (k OpKind) OpRefs() []OpId {
	var out []OpId
	for _, ref := range k.Operands() {
		out = append(out, ref.OpRefs()...)
	}
	switch k.Tag {
	case IfBlock:
		out = append(out, k.A.OpRefs()...)
	case ForEach:
		out = append(out, k.A.OpRefs()...)
	case After:
		out = append(out, k.After)
	}
	return out
}

// HasSideEffects reports whether executing this op performs observable
// I/O - the exact set the dead-code eliminator seeds its live set with.
func (k OpKind) HasSideEffects() bool {
	switch k.Tag {
	case Print, Now, Sleep,
		ReadFile, WriteFile, AppendFile, DeleteFile, ListDir, Mkdir, Rmdir, CopyFile, MoveFile,
		FileExists, IsDir, IsFile, FileSize,
		HttpRequest, TcpConnect, TcpListen, UdpBind, UdpSendTo, UnixConnect, UnixListen,
		Exec, EnvGet:
		return true
	default:
		return false
	}
}

// IsPure reports whether this op kind is eligible for constant folding:
// arithmetic, comparison, coercion, pure collection ops, and pure If/Json.
func (k OpKind) IsPure() bool {
	switch k.Tag {
	case Add, Sub, Mul, Div, FloorDiv, Mod, Neg, Abs, Eq, Ne, Lt, Le, Gt, Ge, Not, And, Or,
		Concat, Len, Contains, Index, Min, Max, Sum, Sorted, Reversed,
		ToBool, ToInt, ToFloat, ToStr, If, JsonEncode, JsonDecode:
		return true
	default:
		return false
	}
}

// Op is one node of a Plan: a kind, its materialized dependency set, and
// bookkeeping for source location and conditional guards.
type Op struct {
	Id             OpId
	Kind           OpKind
	Inputs         []OpId
	SourceLocation string
	Guard          *ValueRef
}

// SubPlan is a parameterized inner plan embedded in control-flow ops
// (ForEach, IfBlock). Its ops use local OpIds in their own numbering
// space; they may still reference outer op outputs through the ordinary
// OpOutput mechanism, which the interpreter resolves against the
// invocation's own local results first and then the shared cache.
type SubPlan struct {
	Params []string
	Ops    []Op
	Output OpId
}

// Plan is an ordered, append-only collection of Ops produced by the
// resolver and consumed by the optimizer, validator, and interpreter.
type Plan struct {
	Ops    []Op
	NextID OpId

	index map[OpId]int
}

// New returns an empty Plan ready for AddOp.
func New() *Plan {
	return &Plan{index: make(map[OpId]int)}
}

// AddOp appends an Op of the given kind, computing its materialized
// Inputs from the kind's operands plus any explicit After dependency, and
// returns the freshly assigned OpId.
func (p *Plan) AddOp(kind OpKind, sourceLocation string) OpId {
	id := p.NextID
	p.NextID++

	inputs := dedupeOpIds(kind.OpRefs())

	op := Op{Id: id, Kind: kind, Inputs: inputs, SourceLocation: sourceLocation}
	if p.index == nil {
		p.index = make(map[OpId]int)
	}
	p.index[id] = len(p.Ops)
	p.Ops = append(p.Ops, op)
	return id
}

// Get returns the Op with the given id, if present.
func (p *Plan) Get(id OpId) (Op, bool) {
	if p.index == nil {
		p.rebuildIndex()
	}
	idx, ok := p.index[id]
	if !ok || idx >= len(p.Ops) {
		return Op{}, false
	}
	return p.Ops[idx], true
}

func (p *Plan) rebuildIndex() {
	p.index = make(map[OpId]int, len(p.Ops))
	for i, op := range p.Ops {
		p.index[op.Id] = i
	}
}

func dedupeOpIds(ids []OpId) []OpId {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[OpId]bool, len(ids))
	out := make([]OpId, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
