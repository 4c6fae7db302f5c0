// Package optimizer implements three optimization levels: None
// (identity), Basic (constant folding), and Aggressive (constant
// folding + dead-code elimination). The fold/evaluate/DCE algorithms
// below are fixed-point loops over a pure-evaluation match, expressed over
// blueprintvalue.RecordedValue instead of the richer generator Value.
package optimizer

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/invariant"
	"github.com/alexchoi0/blueprint/internal/plan"
)

// Level selects which passes Optimize runs.
type Level int

const (
	None Level = iota
	Basic
	Aggressive
)

func (l Level) String() string {
	switch l {
	case None:
		return "None"
	case Basic:
		return "Basic"
	case Aggressive:
		return "Aggressive"
	default:
		return "Unknown"
	}
}

// Optimize returns a new Plan with the passes for level applied. The
// input plan is never mutated.
func Optimize(p *plan.Plan, level Level) *plan.Plan {
	switch level {
	case None:
		return clonePlan(p)
	case Basic:
		return constantFold(p)
	case Aggressive:
		folded := constantFold(p)
		return deadCodeEliminate(folded)
	default:
		invariant.Invariant(false, "unknown optimization level %d", int(level))
		return nil
	}
}

// EvaluatePure runs the same pure-operation evaluation the constant
// folder uses, but over already-resolved RecordedValues rather than
// literal ValueRefs, so the interpreter can reuse this logic for ops
// whose operands are dynamic at compile time but concrete at run time.
func EvaluatePure(tag plan.OpKindTag, a, b, c plan.RecordedValue, items []plan.RecordedValue) (plan.RecordedValue, bool) {
	itemRefs := make([]plan.ValueRef, len(items))
	for i, v := range items {
		itemRefs[i] = blueprintvalue.Literal(v)
	}
	k := plan.OpKind{
		Tag:   tag,
		A:     blueprintvalue.Literal(a),
		B:     blueprintvalue.Literal(b),
		C:     blueprintvalue.Literal(c),
		Items: itemRefs,
	}
	return evaluatePure(k)
}

func clonePlan(p *plan.Plan) *plan.Plan {
	return &plan.Plan{Ops: append([]plan.Op(nil), p.Ops...), NextID: p.NextID}
}

// constantFold iterates to a fixed point: evaluate every pure op whose
// operands are already literal, record the folded value, rewrite
// zero-path OpOutput references to that op into Literal refs, and repeat.
// Once no op folds in a pass, folded ops are dropped from the plan.
func constantFold(p *plan.Plan) *plan.Plan {
	ops := append([]plan.Op(nil), p.Ops...)
	folded := make(map[plan.OpId]plan.RecordedValue)

	for {
		changedThisPass := false
		for i, op := range ops {
			if _, already := folded[op.Id]; already {
				continue
			}
			if !op.Kind.IsPure() {
				continue
			}
			val, ok := evaluatePure(op.Kind)
			if ok {
				folded[op.Id] = val
				changedThisPass = true
				_ = i
			}
		}
		if !changedThisPass {
			break
		}
		for i := range ops {
			ops[i].Kind = substituteFoldedRefs(ops[i].Kind, folded)
		}
	}

	out := &plan.Plan{NextID: p.NextID}
	for _, op := range ops {
		if _, isFolded := folded[op.Id]; isFolded {
			continue
		}
		op.Inputs = dedupeSorted(op.Kind.OpRefs())
		out.Ops = append(out.Ops, op)
	}
	return out
}

func dedupeSorted(ids []plan.OpId) []plan.OpId {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[plan.OpId]bool, len(ids))
	result := make([]plan.OpId, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// substituteFoldedRefs rewrites every ValueRef operand of kind that is an
// OpOutput{op, path: []} for a now-folded op into a Literal. Projected
// references (non-empty path) are substituted only when the projection
// itself resolves against the folded value.
func substituteFoldedRefs(kind plan.OpKind, folded map[plan.OpId]plan.RecordedValue) plan.OpKind {
	kind.A = substituteRef(kind.A, folded)
	kind.B = substituteRef(kind.B, folded)
	kind.C = substituteRef(kind.C, folded)
	for i := range kind.Items {
		kind.Items[i] = substituteRef(kind.Items[i], folded)
	}
	return kind
}

func substituteRef(ref plan.ValueRef, folded map[plan.OpId]plan.RecordedValue) plan.ValueRef {
	switch ref.Kind {
	case blueprintvalue.RefOpOutput:
		val, ok := folded[ref.Op]
		if !ok {
			return ref
		}
		if len(ref.Path) == 0 {
			return blueprintvalue.Literal(val)
		}
		if projected, ok := blueprintvalue.ResolvePath(val, ref.Path); ok {
			return blueprintvalue.Literal(projected)
		}
		return ref
	case blueprintvalue.RefList:
		items := make([]plan.ValueRef, len(ref.Items))
		for i, item := range ref.Items {
			items[i] = substituteRef(item, folded)
		}
		return blueprintvalue.ListRef(items)
	default:
		return ref
	}
}

// deadCodeEliminate seeds liveness from every side-effecting op and every
// control-flow op whose nested sub-plan bodies hold one, then propagates
// it upward across explicit Inputs to a fixed point, dropping everything
// outside the live set.
func deadCodeEliminate(p *plan.Plan) *plan.Plan {
	byID := make(map[plan.OpId]plan.Op, len(p.Ops))
	for _, op := range p.Ops {
		byID[op.Id] = op
	}

	var bodyHasEffects func(sp *plan.SubPlan) bool
	bodyHasEffects = func(sp *plan.SubPlan) bool {
		if sp == nil {
			return false
		}
		for _, inner := range sp.Ops {
			if inner.Kind.HasSideEffects() || bodyHasEffects(inner.Kind.Then) ||
				bodyHasEffects(inner.Kind.Else) || bodyHasEffects(inner.Kind.Body) {
				return true
			}
		}
		return false
	}

	live := make(map[plan.OpId]bool)
	for _, op := range p.Ops {
		if op.Kind.HasSideEffects() || bodyHasEffects(op.Kind.Then) ||
			bodyHasEffects(op.Kind.Else) || bodyHasEffects(op.Kind.Body) {
			live[op.Id] = true
		}
	}

	for {
		changed := false
		for id := range live {
			op, ok := byID[id]
			if !ok {
				continue
			}
			for _, dep := range op.Inputs {
				if !live[dep] {
					live[dep] = true
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	out := &plan.Plan{NextID: p.NextID}
	for _, op := range p.Ops {
		if live[op.Id] {
			out.Ops = append(out.Ops, op)
		}
	}
	return out
}

// evaluatePure attempts to evaluate a pure op kind whose operands are all
// already literal. Returns ok=false when any required operand is not yet
// literal, which simply means "try again next pass" (or never, if it
// depends on a genuinely dynamic value).
func evaluatePure(k plan.OpKind) (plan.RecordedValue, bool) {
	lit := func(ref plan.ValueRef) (plan.RecordedValue, bool) {
		if ref.Kind != blueprintvalue.RefLiteral {
			return plan.RecordedValue{}, false
		}
		return ref.Literal, true
	}

	switch k.Tag {
	case plan.Add, plan.Sub, plan.Mul, plan.Div, plan.FloorDiv, plan.Mod:
		a, ok1 := lit(k.A)
		b, ok2 := lit(k.B)
		if !ok1 || !ok2 {
			return plan.RecordedValue{}, false
		}
		return evalArith(k.Tag, a, b)

	case plan.Neg:
		a, ok := lit(k.A)
		if !ok {
			return plan.RecordedValue{}, false
		}
		if a.Kind == blueprintvalue.KindInt {
			return blueprintvalue.IntVal(-a.Int), true
		}
		if a.Kind == blueprintvalue.KindFloat {
			return blueprintvalue.FloatVal(-a.Float), true
		}
		return plan.RecordedValue{}, false

	case plan.Abs:
		a, ok := lit(k.A)
		if !ok {
			return plan.RecordedValue{}, false
		}
		if a.Kind == blueprintvalue.KindInt {
			if a.Int < 0 {
				return blueprintvalue.IntVal(-a.Int), true
			}
			return a, true
		}
		if a.Kind == blueprintvalue.KindFloat {
			if a.Float < 0 {
				return blueprintvalue.FloatVal(-a.Float), true
			}
			return a, true
		}
		return plan.RecordedValue{}, false

	case plan.Eq, plan.Ne:
		a, ok1 := lit(k.A)
		b, ok2 := lit(k.B)
		if !ok1 || !ok2 {
			return plan.RecordedValue{}, false
		}
		eq := a.Equal(b)
		if k.Tag == plan.Ne {
			eq = !eq
		}
		return blueprintvalue.BoolVal(eq), true

	case plan.Lt, plan.Le, plan.Gt, plan.Ge:
		a, ok1 := lit(k.A)
		b, ok2 := lit(k.B)
		if !ok1 || !ok2 {
			return plan.RecordedValue{}, false
		}
		return evalCompare(k.Tag, a, b)

	case plan.Not:
		a, ok := lit(k.A)
		if !ok {
			return plan.RecordedValue{}, false
		}
		return blueprintvalue.BoolVal(!a.IsTruthy()), true

	case plan.And:
		a, ok1 := lit(k.A)
		b, ok2 := lit(k.B)
		if !ok1 || !ok2 {
			return plan.RecordedValue{}, false
		}
		if !a.IsTruthy() {
			return a, true
		}
		return b, true

	case plan.Or:
		a, ok1 := lit(k.A)
		b, ok2 := lit(k.B)
		if !ok1 || !ok2 {
			return plan.RecordedValue{}, false
		}
		if a.IsTruthy() {
			return a, true
		}
		return b, true

	case plan.Concat:
		a, ok1 := lit(k.A)
		b, ok2 := lit(k.B)
		if !ok1 || !ok2 {
			return plan.RecordedValue{}, false
		}
		if a.Kind == blueprintvalue.KindString && b.Kind == blueprintvalue.KindString {
			return blueprintvalue.StringVal(a.Str + b.Str), true
		}
		if a.Kind == blueprintvalue.KindList && b.Kind == blueprintvalue.KindList {
			out := append(append([]plan.RecordedValue(nil), a.List...), b.List...)
			return blueprintvalue.ListVal(out), true
		}
		return plan.RecordedValue{}, false

	case plan.Len:
		a, ok := lit(k.A)
		if !ok {
			return plan.RecordedValue{}, false
		}
		switch a.Kind {
		case blueprintvalue.KindString:
			return blueprintvalue.IntVal(int64(len([]rune(a.Str)))), true
		case blueprintvalue.KindList:
			return blueprintvalue.IntVal(int64(len(a.List))), true
		case blueprintvalue.KindDict:
			return blueprintvalue.IntVal(int64(len(a.Dict))), true
		case blueprintvalue.KindBytes:
			return blueprintvalue.IntVal(int64(len(a.Bytes))), true
		default:
			return plan.RecordedValue{}, false
		}

	case plan.Contains:
		a, ok1 := lit(k.A)
		b, ok2 := lit(k.B)
		if !ok1 || !ok2 {
			return plan.RecordedValue{}, false
		}
		switch a.Kind {
		case blueprintvalue.KindList:
			for _, item := range a.List {
				if item.Equal(b) {
					return blueprintvalue.BoolVal(true), true
				}
			}
			return blueprintvalue.BoolVal(false), true
		case blueprintvalue.KindString:
			if b.Kind != blueprintvalue.KindString {
				return plan.RecordedValue{}, false
			}
			return blueprintvalue.BoolVal(containsSubstring(a.Str, b.Str)), true
		case blueprintvalue.KindDict:
			if b.Kind != blueprintvalue.KindString {
				return plan.RecordedValue{}, false
			}
			_, ok := a.Dict[b.Str]
			return blueprintvalue.BoolVal(ok), true
		default:
			return plan.RecordedValue{}, false
		}

	case plan.Index:
		a, ok1 := lit(k.A)
		b, ok2 := lit(k.B)
		if !ok1 || !ok2 {
			return plan.RecordedValue{}, false
		}
		return evalIndex(a, b)

	case plan.Min, plan.Max:
		a, ok := lit(k.A)
		if !ok || a.Kind != blueprintvalue.KindList || len(a.List) == 0 {
			return plan.RecordedValue{}, false
		}
		best := a.List[0]
		for _, item := range a.List[1:] {
			cmp, ok := compareNumeric(item, best)
			if !ok {
				return plan.RecordedValue{}, false
			}
			if (k.Tag == plan.Min && cmp < 0) || (k.Tag == plan.Max && cmp > 0) {
				best = item
			}
		}
		return best, true

	case plan.Sum:
		a, ok := lit(k.A)
		if !ok || a.Kind != blueprintvalue.KindList {
			return plan.RecordedValue{}, false
		}
		var isFloat bool
		var fsum float64
		var isum int64
		for _, item := range a.List {
			switch item.Kind {
			case blueprintvalue.KindInt:
				isum += item.Int
				fsum += float64(item.Int)
			case blueprintvalue.KindFloat:
				isFloat = true
				fsum += item.Float
			default:
				return plan.RecordedValue{}, false
			}
		}
		if isFloat {
			return blueprintvalue.FloatVal(fsum), true
		}
		return blueprintvalue.IntVal(isum), true

	case plan.Sorted:
		a, ok := lit(k.A)
		if !ok || a.Kind != blueprintvalue.KindList {
			return plan.RecordedValue{}, false
		}
		out := append([]plan.RecordedValue(nil), a.List...)
		sort.Slice(out, func(i, j int) bool {
			cmp, ok := compareNumeric(out[i], out[j])
			if ok {
				return cmp < 0
			}
			return out[i].String() < out[j].String()
		})
		return blueprintvalue.ListVal(out), true

	case plan.Reversed:
		a, ok := lit(k.A)
		if !ok || a.Kind != blueprintvalue.KindList {
			return plan.RecordedValue{}, false
		}
		out := make([]plan.RecordedValue, len(a.List))
		for i, item := range a.List {
			out[len(a.List)-1-i] = item
		}
		return blueprintvalue.ListVal(out), true

	case plan.ToBool:
		a, ok := lit(k.A)
		if !ok {
			return plan.RecordedValue{}, false
		}
		return blueprintvalue.BoolVal(a.IsTruthy()), true

	case plan.ToInt:
		a, ok := lit(k.A)
		if !ok {
			return plan.RecordedValue{}, false
		}
		return toInt(a)

	case plan.ToFloat:
		a, ok := lit(k.A)
		if !ok {
			return plan.RecordedValue{}, false
		}
		return toFloat(a)

	case plan.ToStr:
		a, ok := lit(k.A)
		if !ok {
			return plan.RecordedValue{}, false
		}
		return blueprintvalue.StringVal(a.String()), true

	case plan.JsonEncode:
		a, ok := lit(k.A)
		if !ok {
			return plan.RecordedValue{}, false
		}
		encoded, err := json.Marshal(toJSONShape(a))
		if err != nil {
			return plan.RecordedValue{}, false
		}
		return blueprintvalue.StringVal(string(encoded)), true

	case plan.JsonDecode:
		a, ok := lit(k.A)
		if !ok || a.Kind != blueprintvalue.KindString {
			return plan.RecordedValue{}, false
		}
		var shape interface{}
		if err := json.Unmarshal([]byte(a.Str), &shape); err != nil {
			return plan.RecordedValue{}, false
		}
		return fromJSONShape(shape), true

	case plan.If:
		cond, ok := lit(k.A)
		if !ok {
			return plan.RecordedValue{}, false
		}
		if cond.IsTruthy() {
			return lit(k.B)
		}
		return lit(k.C)

	default:
		return plan.RecordedValue{}, false
	}
}

func containsSubstring(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// evalArith implements Add/Sub/Mul/Div/FloorDiv/Mod numeric promotion:
// int/int stays int (except Div, which always promotes to float); any
// float operand promotes the whole expression to float; FloorDiv and Mod
// are integer-only truncating operations (Go's native / and % already
// truncate toward zero on signed ints, matching the original's Rust
// semantics without adjustment).
func evalArith(tag plan.OpKindTag, a, b plan.RecordedValue) (plan.RecordedValue, bool) {
	bothInt := a.Kind == blueprintvalue.KindInt && b.Kind == blueprintvalue.KindInt
	numeric := func(v plan.RecordedValue) (float64, bool) {
		switch v.Kind {
		case blueprintvalue.KindInt:
			return float64(v.Int), true
		case blueprintvalue.KindFloat:
			return v.Float, true
		default:
			return 0, false
		}
	}

	switch tag {
	case plan.FloorDiv, plan.Mod:
		if !bothInt {
			return plan.RecordedValue{}, false
		}
		if b.Int == 0 {
			return plan.RecordedValue{}, false
		}
		if tag == plan.FloorDiv {
			return blueprintvalue.IntVal(a.Int / b.Int), true
		}
		return blueprintvalue.IntVal(a.Int % b.Int), true

	case plan.Div:
		fa, ok1 := numeric(a)
		fb, ok2 := numeric(b)
		if !ok1 || !ok2 || fb == 0 {
			return plan.RecordedValue{}, false
		}
		return blueprintvalue.FloatVal(fa / fb), true

	default:
		if bothInt {
			switch tag {
			case plan.Add:
				return blueprintvalue.IntVal(a.Int + b.Int), true
			case plan.Sub:
				return blueprintvalue.IntVal(a.Int - b.Int), true
			case plan.Mul:
				return blueprintvalue.IntVal(a.Int * b.Int), true
			}
		}
		fa, ok1 := numeric(a)
		fb, ok2 := numeric(b)
		if !ok1 || !ok2 {
			if tag == plan.Add && a.Kind == blueprintvalue.KindString && b.Kind == blueprintvalue.KindString {
				return blueprintvalue.StringVal(a.Str + b.Str), true
			}
			return plan.RecordedValue{}, false
		}
		switch tag {
		case plan.Add:
			return blueprintvalue.FloatVal(fa + fb), true
		case plan.Sub:
			return blueprintvalue.FloatVal(fa - fb), true
		case plan.Mul:
			return blueprintvalue.FloatVal(fa * fb), true
		}
		return plan.RecordedValue{}, false
	}
}

func evalCompare(tag plan.OpKindTag, a, b plan.RecordedValue) (plan.RecordedValue, bool) {
	cmp, ok := compareNumeric(a, b)
	if !ok {
		if a.Kind == blueprintvalue.KindString && b.Kind == blueprintvalue.KindString {
			cmp = 0
			if a.Str < b.Str {
				cmp = -1
			} else if a.Str > b.Str {
				cmp = 1
			}
			ok = true
		}
	}
	if !ok {
		return plan.RecordedValue{}, false
	}
	switch tag {
	case plan.Lt:
		return blueprintvalue.BoolVal(cmp < 0), true
	case plan.Le:
		return blueprintvalue.BoolVal(cmp <= 0), true
	case plan.Gt:
		return blueprintvalue.BoolVal(cmp > 0), true
	case plan.Ge:
		return blueprintvalue.BoolVal(cmp >= 0), true
	}
	return plan.RecordedValue{}, false
}

// compareNumeric compares Int/Float values, promoting as needed; this is
// the coerced comparison path, distinct from RecordedValue.Equal's strict
// per-variant equality used by Eq/Ne folding (see DESIGN.md).
func compareNumeric(a, b plan.RecordedValue) (int, bool) {
	toF := func(v plan.RecordedValue) (float64, bool) {
		switch v.Kind {
		case blueprintvalue.KindInt:
			return float64(v.Int), true
		case blueprintvalue.KindFloat:
			return v.Float, true
		default:
			return 0, false
		}
	}
	fa, ok1 := toF(a)
	fb, ok2 := toF(b)
	if !ok1 || !ok2 {
		return 0, false
	}
	if fa < fb {
		return -1, true
	}
	if fa > fb {
		return 1, true
	}
	return 0, true
}

func evalIndex(base, idx plan.RecordedValue) (plan.RecordedValue, bool) {
	if idx.Kind != blueprintvalue.KindInt {
		return plan.RecordedValue{}, false
	}
	i := idx.Int
	switch base.Kind {
	case blueprintvalue.KindList:
		if i < 0 {
			i += int64(len(base.List))
		}
		if i < 0 || i >= int64(len(base.List)) {
			return plan.RecordedValue{}, false
		}
		return base.List[i], true
	case blueprintvalue.KindString:
		runes := []rune(base.Str)
		if i < 0 {
			i += int64(len(runes))
		}
		if i < 0 || i >= int64(len(runes)) {
			return plan.RecordedValue{}, false
		}
		return blueprintvalue.StringVal(string(runes[i])), true
	default:
		return plan.RecordedValue{}, false
	}
}

func toInt(v plan.RecordedValue) (plan.RecordedValue, bool) {
	switch v.Kind {
	case blueprintvalue.KindInt:
		return v, true
	case blueprintvalue.KindFloat:
		return blueprintvalue.IntVal(int64(v.Float)), true
	case blueprintvalue.KindBool:
		if v.Bool {
			return blueprintvalue.IntVal(1), true
		}
		return blueprintvalue.IntVal(0), true
	case blueprintvalue.KindString:
		var i int64
		_, err := fmt.Sscanf(v.Str, "%d", &i)
		if err != nil {
			return plan.RecordedValue{}, false
		}
		return blueprintvalue.IntVal(i), true
	default:
		return plan.RecordedValue{}, false
	}
}

func toFloat(v plan.RecordedValue) (plan.RecordedValue, bool) {
	switch v.Kind {
	case blueprintvalue.KindFloat:
		return v, true
	case blueprintvalue.KindInt:
		return blueprintvalue.FloatVal(float64(v.Int)), true
	case blueprintvalue.KindString:
		var f float64
		_, err := fmt.Sscanf(v.Str, "%g", &f)
		if err != nil {
			return plan.RecordedValue{}, false
		}
		return blueprintvalue.FloatVal(f), true
	default:
		return plan.RecordedValue{}, false
	}
}

func toJSONShape(v plan.RecordedValue) interface{} {
	switch v.Kind {
	case blueprintvalue.KindNone:
		return nil
	case blueprintvalue.KindBool:
		return v.Bool
	case blueprintvalue.KindInt:
		return v.Int
	case blueprintvalue.KindFloat:
		return v.Float
	case blueprintvalue.KindString:
		return v.Str
	case blueprintvalue.KindBytes:
		return string(v.Bytes)
	case blueprintvalue.KindList:
		out := make([]interface{}, len(v.List))
		for i, item := range v.List {
			out[i] = toJSONShape(item)
		}
		return out
	case blueprintvalue.KindDict:
		out := make(map[string]interface{}, len(v.Dict))
		for k, item := range v.Dict {
			out[k] = toJSONShape(item)
		}
		return out
	default:
		return nil
	}
}

func fromJSONShape(v interface{}) plan.RecordedValue {
	switch t := v.(type) {
	case nil:
		return blueprintvalue.None()
	case bool:
		return blueprintvalue.BoolVal(t)
	case float64:
		if t == float64(int64(t)) {
			return blueprintvalue.IntVal(int64(t))
		}
		return blueprintvalue.FloatVal(t)
	case string:
		return blueprintvalue.StringVal(t)
	case []interface{}:
		out := make([]plan.RecordedValue, len(t))
		for i, item := range t {
			out[i] = fromJSONShape(item)
		}
		return blueprintvalue.ListVal(out)
	case map[string]interface{}:
		out := make(map[string]plan.RecordedValue, len(t))
		for k, item := range t {
			out[k] = fromJSONShape(item)
		}
		return blueprintvalue.DictVal(out)
	default:
		return blueprintvalue.None()
	}
}
