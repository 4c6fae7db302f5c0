// Package validator implements the plan validator: topological
// analysis, reference integrity, combinator arity checks, policy
// enforcement against declared Actions, platform gates, and heuristic
// warnings.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexchoi0/blueprint/internal/approval"
	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/context"
	"github.com/alexchoi0/blueprint/internal/export"
	"github.com/alexchoi0/blueprint/internal/plan"
)

// ErrorKind tags the variant of a ValidationError.
type ErrorKind int

const (
	CycleDetected ErrorKind = iota
	UnknownOpReference
	InvalidCombinatorCount
	PolicyDenied
	UnsupportedPlatform
	MalformedUrl
	MalformedPath
)

// ValidationError is a single validation failure. From/To are populated
// for UnknownOpReference; Op identifies the offending op for the rest.
type ValidationError struct {
	Kind    ErrorKind
	Op      plan.OpId
	From    plan.OpId
	To      plan.OpId
	Message string
}

func (e ValidationError) Error() string {
	switch e.Kind {
	case CycleDetected:
		return fmt.Sprintf("cycle detected: %s", e.Message)
	case UnknownOpReference:
		return fmt.Sprintf("op %d references unknown op %d", e.From, e.To)
	case InvalidCombinatorCount:
		return fmt.Sprintf("op %d: %s", e.Op, e.Message)
	case PolicyDenied:
		return fmt.Sprintf("op %d denied by policy: %s", e.Op, e.Message)
	case UnsupportedPlatform:
		return fmt.Sprintf("op %d: %s", e.Op, e.Message)
	case MalformedUrl, MalformedPath:
		return fmt.Sprintf("op %d: %s", e.Op, e.Message)
	default:
		return e.Message
	}
}

// WarningKind tags the variant of a ValidationWarning.
type WarningKind int

const (
	UnusedOp WarningKind = iota
	RaceCondition
	DynamicApprovalNeeded
	LargePlan
)

// ValidationWarning is a non-fatal advisory finding.
type ValidationWarning struct {
	Kind    WarningKind
	Op      plan.OpId
	Other   plan.OpId
	Message string
}

func (w ValidationWarning) String() string {
	return w.Message
}

// Result is the validator's output: non-empty Errors means the plan must
// not be executed. Levels is reused by the interpreter so it need not
// recompute the topological ordering.
type Result struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
	Levels   [][]plan.OpId
}

// Valid reports whether the plan may be executed.
func (r *Result) Valid() bool { return len(r.Errors) == 0 }

const largePlanThreshold = 1000

// Validate runs the full validation pipeline in order: reference
// integrity, topological levels / cycle detection, combinator arity,
// platform support, policy, then heuristic warnings.
func Validate(p *plan.Plan, ctx *context.ExecutionContext, pol approval.PolicyChecker) (*Result, error) {
	result := &Result{}

	result.Errors = append(result.Errors, checkReferences(p)...)

	levels, cycleErr := plan.ComputeLevels(p)
	if cycleErr != nil {
		var msgs []string
		for _, id := range cycleErr.Ops {
			msgs = append(msgs, fmt.Sprintf("%d", id))
		}
		result.Errors = append(result.Errors, ValidationError{
			Kind:    CycleDetected,
			Message: strings.Join(msgs, ", "),
		})
	} else {
		result.Levels = levels
	}

	result.Errors = append(result.Errors, checkCombinators(p)...)
	result.Errors = append(result.Errors, checkPlatform(p, ctx)...)
	result.Errors = append(result.Errors, checkPolicy(p, ctx, pol)...)

	if cycleErr == nil {
		result.Warnings = append(result.Warnings, checkUnused(p)...)
		result.Warnings = append(result.Warnings, checkRaceConditions(p, levels)...)
		result.Warnings = append(result.Warnings, checkDynamicApproval(p)...)
	}
	if len(p.Ops) > largePlanThreshold {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Kind:    LargePlan,
			Message: fmt.Sprintf("plan has %d ops, exceeding the %d-op advisory threshold", len(p.Ops), largePlanThreshold),
		})
	}

	return result, nil
}

func checkReferences(p *plan.Plan) []ValidationError {
	var errs []ValidationError
	for _, op := range p.Ops {
		for _, dep := range op.Inputs {
			if _, ok := p.Get(dep); !ok {
				errs = append(errs, ValidationError{
					Kind: UnknownOpReference,
					From: op.Id,
					To:   dep,
				})
			}
		}
	}
	return errs
}

// checkCombinators enforces AtLeast.Count <= len(items); AtMost's arity
// is recorded on the op but never validated, matching the no-op branch
// the original check_combinators leaves for AtMost.
func checkCombinators(p *plan.Plan) []ValidationError {
	var errs []ValidationError
	for _, op := range p.Ops {
		if op.Kind.Tag == plan.AtLeast && op.Kind.Count > int64(len(op.Kind.Items)) {
			errs = append(errs, ValidationError{
				Kind: InvalidCombinatorCount,
				Op:   op.Id,
				Message: fmt.Sprintf("AtLeast requires %d of %d ops, but only %d are present",
					op.Kind.Count, len(op.Kind.Items), len(op.Kind.Items)),
			})
		}
	}
	return errs
}

// checkPlatform gates Unix-socket ops on the declared ExecutionContext's
// target OS rather than the validating host's runtime.GOOS, so cross-
// compiling a plan for another platform reports the gate correctly.
func checkPlatform(p *plan.Plan, ctx *context.ExecutionContext) []ValidationError {
	var errs []ValidationError
	if ctx == nil {
		return errs
	}
	for _, op := range p.Ops {
		switch op.Kind.Tag {
		case plan.UnixConnect, plan.UnixListen:
			if !isUnixLike(ctx.OS) {
				errs = append(errs, ValidationError{
					Kind:    UnsupportedPlatform,
					Op:      op.Id,
					Message: fmt.Sprintf("unix sockets are unsupported on target OS %q", ctx.OS),
				})
			}
		}
	}
	return errs
}

func isUnixLike(os string) bool {
	switch os {
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos", "android", "ios":
		return true
	default:
		return false
	}
}

// checkPolicy maps every approval-requiring op whose operands are fully
// literal into an approval.Action and consults the policy; a Deny
// decision is a validation error (a NoMatch or Allow is not - those fall
// through to the interactive gate at execution time).
func checkPolicy(p *plan.Plan, ctx *context.ExecutionContext, pol approval.PolicyChecker) []ValidationError {
	var errs []ValidationError
	if pol == nil {
		return errs
	}
	for _, op := range p.Ops {
		action, ok := actionForOp(op)
		if !ok {
			continue
		}
		if pol.Check(action) == approval.PolicyDeny {
			errs = append(errs, ValidationError{
				Kind:    PolicyDenied,
				Op:      op.Id,
				Message: action.String(),
			})
		}
	}
	return errs
}

// actionForOp builds the best-effort approval.Action for an op whose
// operands are all literal strings, the same shape the preflight scanner
// and the interpreter's approval gate both consume. Ops with dynamic
// (non-literal) operands are skipped here - DynamicApprovalNeeded covers
// those as a warning instead.
func actionForOp(op plan.Op) (approval.Action, bool) {
	lit := func(v blueprintvalue.ValueRef) (string, bool) {
		if v.Kind == blueprintvalue.RefLiteral && v.Literal.Kind == blueprintvalue.KindString {
			return v.Literal.Str, true
		}
		return "", false
	}

	switch op.Kind.Tag {
	case plan.ReadFile:
		if p, ok := lit(op.Kind.A); ok {
			return approval.Action{Kind: approval.ReadFile, Path: p}, true
		}
	case plan.ListDir:
		if p, ok := lit(op.Kind.A); ok {
			return approval.Action{Kind: approval.ListDir, Path: p}, true
		}
	case plan.WriteFile:
		if p, ok := lit(op.Kind.A); ok {
			return approval.Action{Kind: approval.WriteFile, Path: p}, true
		}
	case plan.AppendFile:
		if p, ok := lit(op.Kind.A); ok {
			return approval.Action{Kind: approval.AppendFile, Path: p}, true
		}
	case plan.DeleteFile:
		if p, ok := lit(op.Kind.A); ok {
			return approval.Action{Kind: approval.DeleteFile, Path: p}, true
		}
	case plan.Mkdir:
		if p, ok := lit(op.Kind.A); ok {
			return approval.Action{Kind: approval.CreateDir, Path: p}, true
		}
	case plan.Rmdir:
		if p, ok := lit(op.Kind.A); ok {
			return approval.Action{Kind: approval.DeleteDir, Path: p}, true
		}
	case plan.CopyFile:
		src, ok1 := lit(op.Kind.A)
		dst, ok2 := lit(op.Kind.B)
		if ok1 && ok2 {
			return approval.Action{Kind: approval.CopyFile, Src: src, Dst: dst}, true
		}
	case plan.MoveFile:
		src, ok1 := lit(op.Kind.A)
		dst, ok2 := lit(op.Kind.B)
		if ok1 && ok2 {
			return approval.Action{Kind: approval.MoveFile, Src: src, Dst: dst}, true
		}
	case plan.HttpRequest:
		if u, ok := lit(op.Kind.A); ok {
			method, _ := lit(op.Kind.B)
			return approval.Action{Kind: approval.HttpRequest, Method: method, URL: u}, true
		}
	case plan.Exec:
		if c, ok := lit(op.Kind.A); ok {
			return approval.Action{Kind: approval.Exec_, Command: c}, true
		}
	case plan.EnvGet:
		if n, ok := lit(op.Kind.A); ok {
			return approval.Action{Kind: approval.EnvGet, Name: n}, true
		}
	}
	return approval.Action{}, false
}

func checkUnused(p *plan.Plan) []ValidationWarning {
	referenced := make(map[plan.OpId]bool)
	for _, op := range p.Ops {
		for _, dep := range op.Inputs {
			referenced[dep] = true
		}
	}
	var warnings []ValidationWarning
	for _, op := range p.Ops {
		if referenced[op.Id] || op.Kind.HasSideEffects() {
			continue
		}
		warnings = append(warnings, ValidationWarning{
			Kind:    UnusedOp,
			Op:      op.Id,
			Message: fmt.Sprintf("op %d (%s) has no consumer and no side effect", op.Id, op.Kind.Tag),
		})
	}
	return warnings
}

// checkRaceConditions flags two write-category ops in the same
// topological level that target the same literal path. Op-derived
// (dynamic) paths are never compared - a documented heuristic limitation,
// not a bug.
func checkRaceConditions(p *plan.Plan, levels [][]plan.OpId) []ValidationWarning {
	var warnings []ValidationWarning
	for _, level := range levels {
		paths := make(map[string]plan.OpId)
		for _, id := range level {
			op, ok := p.Get(id)
			if !ok || !isWritePath(op.Kind.Tag) {
				continue
			}
			path, ok := literalPath(op.Kind)
			if !ok {
				continue
			}
			if other, seen := paths[path]; seen {
				warnings = append(warnings, ValidationWarning{
					Kind:  RaceCondition,
					Op:    op.Id,
					Other: other,
					Message: fmt.Sprintf("ops %d and %d both write %q in the same execution level",
						other, op.Id, path),
				})
			} else {
				paths[path] = op.Id
			}
		}
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Op < warnings[j].Op })
	return warnings
}

func isWritePath(tag plan.OpKindTag) bool {
	switch tag {
	case plan.WriteFile, plan.AppendFile, plan.DeleteFile, plan.Mkdir, plan.Rmdir, plan.MoveFile:
		return true
	default:
		return false
	}
}

func literalPath(k plan.OpKind) (string, bool) {
	if k.A.Kind == blueprintvalue.RefLiteral && k.A.Literal.Kind == blueprintvalue.KindString {
		return k.A.Literal.Str, true
	}
	return "", false
}

// checkDynamicApproval warns on every approval-requiring op with at
// least one non-literal operand, since those can't be policy-checked
// ahead of time and will need the interactive gate at run time.
func checkDynamicApproval(p *plan.Plan) []ValidationWarning {
	var warnings []ValidationWarning
	for _, op := range p.Ops {
		if !export.RequiresApproval(op.Kind.Tag) {
			continue
		}
		for _, operand := range op.Kind.Operands() {
			if operand.Kind != blueprintvalue.RefLiteral {
				warnings = append(warnings, ValidationWarning{
					Kind:    DynamicApprovalNeeded,
					Op:      op.Id,
					Message: fmt.Sprintf("op %d (%s) has a dynamic operand and needs runtime approval", op.Id, op.Kind.Tag),
				})
				break
			}
		}
	}
	return warnings
}
