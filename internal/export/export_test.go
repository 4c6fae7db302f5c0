package export

import (
	"strings"
	"testing"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/plan"
)

func samplePlan() *plan.Plan {
	p := plan.New()
	addId := p.AddOp(plan.OpKind{Tag: plan.Add, A: blueprintvalue.LiteralInt(1), B: blueprintvalue.LiteralInt(2)}, "line 1")
	p.AddOp(plan.OpKind{Tag: plan.ReadFile, A: blueprintvalue.OpOutput(addId)}, "line 2")
	return p
}

func TestRequiresApprovalDistinguishesPureFromSideEffecting(t *testing.T) {
	if RequiresApproval(plan.Add) {
		t.Errorf("RequiresApproval(Add) = true, want false")
	}
	if RequiresApproval(plan.IfBlock) {
		t.Errorf("RequiresApproval(IfBlock) = true, want false")
	}
	if !RequiresApproval(plan.ReadFile) {
		t.Errorf("RequiresApproval(ReadFile) = false, want true")
	}
	if !RequiresApproval(plan.Exec) {
		t.Errorf("RequiresApproval(Exec) = false, want true")
	}
}

func TestToTextRendersOneLinePerOp(t *testing.T) {
	text := ToText(samplePlan())
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("ToText() produced %d lines, want 2: %q", len(lines), text)
	}
	if !strings.HasPrefix(lines[0], "#0 ") || !strings.HasPrefix(lines[1], "#1 ") {
		t.Errorf("ToText() lines = %v, want to start with #0/#1", lines)
	}
}

func TestToJSONIncludesRequiresApprovalFlag(t *testing.T) {
	p := samplePlan()
	levels, err := plan.ComputeLevels(p)
	if err != nil {
		t.Fatalf("ComputeLevels: %v", err)
	}
	data, err := ToJSON(p, levels)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"requires_approval": false`) || !strings.Contains(s, `"requires_approval": true`) {
		t.Errorf("ToJSON() = %s, want both a false and a true requires_approval flag", s)
	}
}

func TestToDotMarksApprovalRequiredOpsRed(t *testing.T) {
	dot := ToDot(samplePlan())
	if !strings.HasPrefix(dot, "digraph Plan {") {
		t.Errorf("ToDot() doesn't start with the digraph header: %q", dot)
	}
	if !strings.Contains(dot, "color=red") {
		t.Errorf("ToDot() = %q, want a red-colored node for the approval-requiring op", dot)
	}
	if !strings.Contains(dot, "op0 -> op1") {
		t.Errorf("ToDot() = %q, want an edge from op0 to op1", dot)
	}
}
