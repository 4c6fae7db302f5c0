package validator

import (
	"testing"

	"github.com/alexchoi0/blueprint/internal/approval"
	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/context"
	"github.com/alexchoi0/blueprint/internal/plan"
)

type fakePolicy struct {
	decision approval.PolicyDecision
}

func (f fakePolicy) Check(approval.Action) approval.PolicyDecision { return f.decision }

func TestValidateDetectsCycle(t *testing.T) {
	p := &plan.Plan{Ops: []plan.Op{
		{Id: 0, Kind: plan.OpKind{Tag: plan.ToInt, A: blueprintvalue.OpOutput(1)}, Inputs: []plan.OpId{1}},
		{Id: 1, Kind: plan.OpKind{Tag: plan.ToInt, A: blueprintvalue.OpOutput(0)}, Inputs: []plan.OpId{0}},
	}}

	result, err := Validate(p, &context.ExecutionContext{}, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid() {
		t.Fatalf("Valid() = true, want false for a cyclic plan")
	}
	found := false
	for _, e := range result.Errors {
		if e.Kind == CycleDetected {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want a CycleDetected error", result.Errors)
	}
}

func TestValidateDetectsUnknownReference(t *testing.T) {
	p := &plan.Plan{Ops: []plan.Op{
		{Id: 0, Kind: plan.OpKind{Tag: plan.ToInt, A: blueprintvalue.LiteralInt(1)}, Inputs: []plan.OpId{99}},
	}}

	result, err := Validate(p, &context.ExecutionContext{}, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid() {
		t.Fatalf("Valid() = true, want false for an unknown reference")
	}
	if result.Errors[0].Kind != UnknownOpReference || result.Errors[0].To != 99 {
		t.Errorf("Errors[0] = %+v, want UnknownOpReference to op 99", result.Errors[0])
	}
}

func TestValidateAtLeastArityViolation(t *testing.T) {
	p := plan.New()
	p.AddOp(plan.OpKind{Tag: plan.AtLeast, Count: 3, Items: []blueprintvalue.ValueRef{blueprintvalue.LiteralInt(1)}}, "")

	result, err := Validate(p, &context.ExecutionContext{}, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid() {
		t.Fatalf("Valid() = true, want false for AtLeast(3) with only 1 item")
	}
	if result.Errors[0].Kind != InvalidCombinatorCount {
		t.Errorf("Errors[0].Kind = %v, want InvalidCombinatorCount", result.Errors[0].Kind)
	}
}

func TestValidatePlatformGateUsesContextOS(t *testing.T) {
	p := plan.New()
	p.AddOp(plan.OpKind{Tag: plan.UnixConnect, A: blueprintvalue.LiteralString("/tmp/sock")}, "")

	result, err := Validate(p, &context.ExecutionContext{OS: "windows"}, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid() {
		t.Fatalf("Valid() = true, want false for a unix socket op targeting windows")
	}
	if result.Errors[0].Kind != UnsupportedPlatform {
		t.Errorf("Errors[0].Kind = %v, want UnsupportedPlatform", result.Errors[0].Kind)
	}

	result, err = Validate(p, &context.ExecutionContext{OS: "linux"}, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid() {
		t.Errorf("Valid() = false on linux, want true: %v", result.Errors)
	}
}

func TestValidatePolicyDenyIsFatal(t *testing.T) {
	p := plan.New()
	p.AddOp(plan.OpKind{Tag: plan.ReadFile, A: blueprintvalue.LiteralString("/etc/passwd")}, "")

	result, err := Validate(p, &context.ExecutionContext{}, fakePolicy{decision: approval.PolicyDeny})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid() {
		t.Fatalf("Valid() = true, want false when policy denies")
	}
	if result.Errors[0].Kind != PolicyDenied {
		t.Errorf("Errors[0].Kind = %v, want PolicyDenied", result.Errors[0].Kind)
	}
}

func TestValidatePolicyAllowOrNoMatchIsNotFatal(t *testing.T) {
	p := plan.New()
	p.AddOp(plan.OpKind{Tag: plan.ReadFile, A: blueprintvalue.LiteralString("/etc/passwd")}, "")

	result, err := Validate(p, &context.ExecutionContext{}, fakePolicy{decision: approval.PolicyAllow})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid() {
		t.Errorf("Valid() = false with PolicyAllow, want true: %v", result.Errors)
	}

	result, err = Validate(p, &context.ExecutionContext{}, fakePolicy{decision: approval.PolicyNoMatch})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid() {
		t.Errorf("Valid() = false with PolicyNoMatch, want true: %v", result.Errors)
	}
}

func TestValidateUnusedOpWarning(t *testing.T) {
	p := plan.New()
	p.AddOp(plan.OpKind{Tag: plan.ToInt, A: blueprintvalue.LiteralInt(1)}, "")

	result, err := Validate(p, &context.ExecutionContext{}, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Kind == UnusedOp {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want an UnusedOp warning", result.Warnings)
	}
}

func TestValidateRaceConditionWarning(t *testing.T) {
	p := plan.New()
	p.AddOp(plan.OpKind{Tag: plan.WriteFile, A: blueprintvalue.LiteralString("out.txt"), B: blueprintvalue.LiteralString("a")}, "")
	p.AddOp(plan.OpKind{Tag: plan.WriteFile, A: blueprintvalue.LiteralString("out.txt"), B: blueprintvalue.LiteralString("b")}, "")

	result, err := Validate(p, &context.ExecutionContext{}, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Kind == RaceCondition {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want a RaceCondition warning for two same-level writes to the same path", result.Warnings)
	}
}

func TestValidateDynamicApprovalWarning(t *testing.T) {
	p := plan.New()
	reader := p.AddOp(plan.OpKind{Tag: plan.EnvGet, A: blueprintvalue.LiteralString("PATH_VAR")}, "")
	p.AddOp(plan.OpKind{Tag: plan.ReadFile, A: blueprintvalue.OpOutput(reader)}, "")

	result, err := Validate(p, &context.ExecutionContext{}, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Kind == DynamicApprovalNeeded {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want a DynamicApprovalNeeded warning for ReadFile with a dynamic path", result.Warnings)
	}
}
