// Package export renders a plan.Plan for humans and tooling: a terse text
// summary, a Graphviz DOT graph, and a debug JSON document, following
// the same text/tree/diff rendering approach used elsewhere in this
// codebase for execution-plan types, generalized to the Plan/Op model.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/alexchoi0/blueprint/internal/plan"
)

// RequiresApproval reports whether an op's kind performs outside-world
// I/O that counts as approval-requiring. The JSON and DOT exporters use
// it to flag ops, the validator to warn about dynamic operands, and the
// interpreter to decide when to consult the approval gate; Sleep,
// FileExists, IsDir, IsFile and FileSize report true but have no
// approval.Action, so the gate is never consulted for them.
func RequiresApproval(k plan.OpKindTag) bool {
	switch k {
	case plan.Print, plan.Now, plan.ToBool, plan.ToInt, plan.ToFloat, plan.ToStr,
		plan.Add, plan.Sub, plan.Mul, plan.Div, plan.FloorDiv, plan.Mod, plan.Neg, plan.Abs,
		plan.Eq, plan.Ne, plan.Lt, plan.Le, plan.Gt, plan.Ge, plan.Not, plan.And, plan.Or,
		plan.Concat, plan.Len, plan.Contains, plan.Index, plan.Min, plan.Max, plan.Sum,
		plan.Sorted, plan.Reversed, plan.JsonEncode, plan.JsonDecode,
		plan.If, plan.IfBlock, plan.ForEach, plan.Break, plan.Continue, plan.After,
		plan.AtLeast, plan.AtMost:
		return false
	default:
		return true
	}
}

// ToText renders a one-line-per-op summary: "#<id> <Kind> <- [inputs]".
func ToText(p *plan.Plan) string {
	var b strings.Builder
	for _, op := range p.Ops {
		fmt.Fprintf(&b, "#%d %s <- %v\n", op.Id, op.Kind.Tag, op.Inputs)
	}
	return b.String()
}

type jsonOp struct {
	Id               uint64   `json:"id"`
	Kind             string   `json:"kind"`
	Inputs           []uint64 `json:"inputs"`
	RequiresApproval bool     `json:"requires_approval"`
}

type jsonPlan struct {
	Ops    []jsonOp   `json:"ops"`
	Levels [][]uint64 `json:"levels"`
}

// ToJSON produces the debug export document: `{ ops: [...], levels: [...] }`.
func ToJSON(p *plan.Plan, levels [][]plan.OpId) ([]byte, error) {
	doc := jsonPlan{}
	for _, op := range p.Ops {
		inputs := make([]uint64, len(op.Inputs))
		for i, id := range op.Inputs {
			inputs[i] = uint64(id)
		}
		doc.Ops = append(doc.Ops, jsonOp{
			Id:               uint64(op.Id),
			Kind:             op.Kind.Tag.String(),
			Inputs:           inputs,
			RequiresApproval: RequiresApproval(op.Kind.Tag),
		})
	}
	for _, level := range levels {
		row := make([]uint64, len(level))
		for i, id := range level {
			row[i] = uint64(id)
		}
		doc.Levels = append(doc.Levels, row)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ToDot renders a Graphviz digraph: one node per op, red-tinted when it
// requires approval, one edge per materialized input dependency.
func ToDot(p *plan.Plan) string {
	var b strings.Builder
	b.WriteString("digraph Plan {\n")
	b.WriteString("  rankdir=LR;\n")

	ids := make([]plan.OpId, 0, len(p.Ops))
	byID := make(map[plan.OpId]plan.Op, len(p.Ops))
	for _, op := range p.Ops {
		ids = append(ids, op.Id)
		byID[op.Id] = op
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		op := byID[id]
		color := "black"
		if RequiresApproval(op.Kind.Tag) {
			color = "red"
		}
		fmt.Fprintf(&b, "  op%d [label=\"#%d %s\", color=%s];\n", id, id, op.Kind.Tag, color)
	}
	for _, id := range ids {
		op := byID[id]
		for _, dep := range op.Inputs {
			fmt.Fprintf(&b, "  op%d -> op%d;\n", dep, id)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
