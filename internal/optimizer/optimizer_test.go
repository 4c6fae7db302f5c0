package optimizer

import (
	"testing"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/plan"
)

func TestEvaluatePureArith(t *testing.T) {
	tests := []struct {
		name string
		tag  plan.OpKindTag
		a, b plan.RecordedValue
		want plan.RecordedValue
		ok   bool
	}{
		{"int add", plan.Add, blueprintvalue.IntVal(2), blueprintvalue.IntVal(3), blueprintvalue.IntVal(5), true},
		{"float promotion", plan.Add, blueprintvalue.IntVal(2), blueprintvalue.FloatVal(0.5), blueprintvalue.FloatVal(2.5), true},
		{"string concat via add", plan.Add, blueprintvalue.StringVal("a"), blueprintvalue.StringVal("b"), blueprintvalue.StringVal("ab"), true},
		{"div always float", plan.Div, blueprintvalue.IntVal(4), blueprintvalue.IntVal(2), blueprintvalue.FloatVal(2), true},
		{"div by zero fails", plan.Div, blueprintvalue.IntVal(4), blueprintvalue.IntVal(0), plan.RecordedValue{}, false},
		{"floordiv", plan.FloorDiv, blueprintvalue.IntVal(7), blueprintvalue.IntVal(2), blueprintvalue.IntVal(3), true},
		{"mod", plan.Mod, blueprintvalue.IntVal(7), blueprintvalue.IntVal(2), blueprintvalue.IntVal(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EvaluatePure(tt.tag, tt.a, tt.b, plan.RecordedValue{}, nil)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluatePureIf(t *testing.T) {
	got, ok := EvaluatePure(plan.If, blueprintvalue.BoolVal(true), blueprintvalue.IntVal(1), blueprintvalue.IntVal(2), nil)
	if !ok || !got.Equal(blueprintvalue.IntVal(1)) {
		t.Errorf("If(true, 1, 2) = %v, %v, want 1, true", got, ok)
	}

	got, ok = EvaluatePure(plan.If, blueprintvalue.BoolVal(false), blueprintvalue.IntVal(1), blueprintvalue.IntVal(2), nil)
	if !ok || !got.Equal(blueprintvalue.IntVal(2)) {
		t.Errorf("If(false, 1, 2) = %v, %v, want 2, true", got, ok)
	}
}

func TestEvaluatePureEqVsNe(t *testing.T) {
	// Eq/Ne use strict per-variant equality: Int(1) and Bool(true) never match.
	got, ok := EvaluatePure(plan.Eq, blueprintvalue.IntVal(1), blueprintvalue.BoolVal(true), plan.RecordedValue{}, nil)
	if !ok || got.Bool {
		t.Errorf("Eq(1, true) = %v, %v, want false, true", got, ok)
	}
}

func buildConstFoldablePlan() *plan.Plan {
	p := plan.New()
	a := p.AddOp(plan.OpKind{Tag: plan.Add, A: blueprintvalue.LiteralInt(2), B: blueprintvalue.LiteralInt(3)}, "")
	p.AddOp(plan.OpKind{Tag: plan.Mul, A: blueprintvalue.OpOutput(a), B: blueprintvalue.LiteralInt(10)}, "")
	return p
}

func TestOptimizeNoneClonesWithoutFolding(t *testing.T) {
	p := buildConstFoldablePlan()
	out := Optimize(p, None)
	if len(out.Ops) != len(p.Ops) {
		t.Fatalf("None level changed op count: got %d, want %d", len(out.Ops), len(p.Ops))
	}
	// Mutating the clone must not affect the original.
	out.Ops[0].SourceLocation = "mutated"
	if p.Ops[0].SourceLocation == "mutated" {
		t.Errorf("Optimize(None) aliased the original plan's Ops slice")
	}
}

func TestOptimizeBasicFoldsConstants(t *testing.T) {
	p := buildConstFoldablePlan()
	out := Optimize(p, Basic)

	// Both ops are pure and folded away; nothing side-effecting survives.
	if len(out.Ops) != 0 {
		t.Errorf("Optimize(Basic) left %d ops, want 0 (both ops are pure and foldable)", len(out.Ops))
	}
}

func TestOptimizeAggressiveDropsDeadPureOps(t *testing.T) {
	p := plan.New()
	// A pure op nothing depends on.
	p.AddOp(plan.OpKind{Tag: plan.Add, A: blueprintvalue.LiteralInt(1), B: blueprintvalue.LiteralInt(2)}, "")
	// A side-effecting op that keeps itself alive regardless of folding.
	printOp := p.AddOp(plan.OpKind{Tag: plan.Print, A: blueprintvalue.LiteralString("hi")}, "")

	out := Optimize(p, Aggressive)

	found := false
	for _, op := range out.Ops {
		if op.Id == printOp {
			found = true
		}
	}
	if !found {
		t.Errorf("Optimize(Aggressive) dropped the side-effecting op")
	}
	if len(out.Ops) != 1 {
		t.Errorf("Optimize(Aggressive) left %d ops, want 1 (only the live Print)", len(out.Ops))
	}
}

func TestOptimizeAggressiveKeepsLiveDependencyChain(t *testing.T) {
	p := plan.New()
	dynamic := p.AddOp(plan.OpKind{Tag: plan.ReadFile, A: blueprintvalue.LiteralString("f.txt")}, "")
	upper := p.AddOp(plan.OpKind{Tag: plan.ToStr, A: blueprintvalue.OpOutput(dynamic)}, "")
	printOp := p.AddOp(plan.OpKind{Tag: plan.Print, A: blueprintvalue.OpOutput(upper)}, "")

	out := Optimize(p, Aggressive)

	ids := make(map[plan.OpId]bool)
	for _, op := range out.Ops {
		ids[op.Id] = true
	}
	for _, want := range []plan.OpId{dynamic, upper, printOp} {
		if !ids[want] {
			t.Errorf("Optimize(Aggressive) dropped live op %d", want)
		}
	}
}
