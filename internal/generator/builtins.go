package generator

import (
	"sort"
	"strconv"
	"strings"
)

// builtinClass tags whether a builtin can be evaluated immediately
// (pure) or must emit a schema op because it performs I/O (effectful).
type builtinClass int

const (
	classPure builtinClass = iota
	classEffectful
)

// effectfulBuiltins names every builtin that always emits a schema op
// regardless of whether its arguments are static, because the builtin
// itself performs observable I/O. Grounded on the `@bp/io`, `@bp/net`,
// `@bp/proc`, and `@bp/env` virtual modules. print also always emits a
// Print op (see effectfulOpTag) but is not listed here.
var effectfulBuiltins = map[string]bool{
	"read_file": true, "write_file": true, "append_file": true, "delete_file": true,
	"list_dir": true, "mkdir": true, "rmdir": true, "copy_file": true, "move_file": true,
	"file_exists": true, "is_dir": true, "is_file": true, "file_size": true,
	"http_get": true, "http_post": true, "http_put": true, "http_delete": true,
	"tcp_connect": true, "tcp_listen": true, "udp_bind": true, "udp_send_to": true,
	"unix_connect": true, "unix_listen": true,
	"exec_run": true, "env_get": true, "sleep": true, "now": true,
}

func classify(name string) builtinClass {
	if effectfulBuiltins[name] {
		return classEffectful
	}
	return classPure
}

// evalPureBuiltin evaluates a pure builtin call over fully-static
// arguments. ok=false means name isn't a recognized pure builtin (the
// caller should then check for a user-defined closure in scope).
func evalPureBuiltin(name string, args []Value) (Value, bool, error) {
	switch name {
	case "len":
		if len(args) != 1 {
			return Value{}, true, arityError(name, 1, len(args))
		}
		return IntVal(int64(lengthOf(args[0]))), true, nil

	case "str":
		if len(args) != 1 {
			return Value{}, true, arityError(name, 1, len(args))
		}
		return StrVal(displayString(args[0])), true, nil

	case "int":
		if len(args) != 1 {
			return Value{}, true, arityError(name, 1, len(args))
		}
		return toIntValue(args[0])

	case "float":
		if len(args) != 1 {
			return Value{}, true, arityError(name, 1, len(args))
		}
		return toFloatValue(args[0])

	case "bool":
		if len(args) != 1 {
			return Value{}, true, arityError(name, 1, len(args))
		}
		return BoolVal(args[0].IsTruthy()), true, nil

	case "range":
		return evalRange(args)

	case "sorted":
		if len(args) != 1 || args[0].Kind != VList {
			return Value{}, true, typeError("sorted() requires a list argument")
		}
		items := append([]Value(nil), args[0].List...)
		sortValues(items)
		return ListVal(items), true, nil

	case "reversed":
		if len(args) != 1 || args[0].Kind != VList {
			return Value{}, true, typeError("reversed() requires a list argument")
		}
		items := args[0].List
		out := make([]Value, len(items))
		for i, v := range items {
			out[len(items)-1-i] = v
		}
		return ListVal(out), true, nil

	case "sum":
		if len(args) != 1 || args[0].Kind != VList {
			return Value{}, true, typeError("sum() requires a list argument")
		}
		return evalSum(args[0].List)

	case "min", "max":
		items := args
		if len(args) == 1 && args[0].Kind == VList {
			items = args[0].List
		}
		return evalMinMax(name, items)

	case "abs":
		if len(args) != 1 {
			return Value{}, true, arityError(name, 1, len(args))
		}
		switch args[0].Kind {
		case VInt:
			if args[0].Int < 0 {
				return IntVal(-args[0].Int), true, nil
			}
			return args[0], true, nil
		case VFloat:
			if args[0].Float < 0 {
				return FloatVal(-args[0].Float), true, nil
			}
			return args[0], true, nil
		}
		return Value{}, true, typeError("abs() requires a numeric argument")

	case "hash":
		if len(args) != 1 {
			return Value{}, true, arityError(name, 1, len(args))
		}
		return IntVal(int64(hashValueFNV(args[0]))), true, nil

	case "print":
		// evalCall never reaches this case: effectfulOpTag maps every
		// print call, static arguments or not, to a Print op first. Any
		// other caller gets None with no op emitted.
		return None(), true, nil

	default:
		return Value{}, false, nil
	}
}

func lengthOf(v Value) int {
	switch v.Kind {
	case VStr:
		return len(v.Str)
	case VBytes:
		return len(v.Bytes)
	case VList, VSet, VTuple:
		return len(v.List)
	case VDict:
		return len(v.keys)
	default:
		return 0
	}
}

func displayString(v Value) string {
	switch v.Kind {
	case VNone:
		return "None"
	case VBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case VInt:
		return strconv.FormatInt(v.Int, 10)
	case VFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case VStr:
		return v.Str
	case VBytes:
		return string(v.Bytes)
	case VList, VTuple:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = displayString(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

func toIntValue(v Value) (Value, bool, error) {
	switch v.Kind {
	case VInt:
		return v, true, nil
	case VFloat:
		return IntVal(int64(v.Float)), true, nil
	case VBool:
		if v.Bool {
			return IntVal(1), true, nil
		}
		return IntVal(0), true, nil
	case VStr:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return Value{}, true, typeError("invalid literal for int(): " + v.Str)
		}
		return IntVal(n), true, nil
	}
	return Value{}, true, typeError("int() argument has unsupported type")
}

func toFloatValue(v Value) (Value, bool, error) {
	switch v.Kind {
	case VFloat:
		return v, true, nil
	case VInt:
		return FloatVal(float64(v.Int)), true, nil
	case VBool:
		if v.Bool {
			return FloatVal(1), true, nil
		}
		return FloatVal(0), true, nil
	case VStr:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return Value{}, true, typeError("invalid literal for float(): " + v.Str)
		}
		return FloatVal(f), true, nil
	}
	return Value{}, true, typeError("float() argument has unsupported type")
}

func evalRange(args []Value) (Value, bool, error) {
	var start, stop, step int64 = 0, 0, 1
	switch len(args) {
	case 1:
		stop = args[0].Int
	case 2:
		start, stop = args[0].Int, args[1].Int
	case 3:
		start, stop, step = args[0].Int, args[1].Int, args[2].Int
	default:
		return Value{}, true, arityError("range", 1, len(args))
	}
	if step == 0 {
		return Value{}, true, typeError("range() step must not be zero")
	}
	var out []Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, IntVal(i))
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, IntVal(i))
		}
	}
	return ListVal(out), true, nil
}

func evalSum(items []Value) (Value, bool, error) {
	isFloat := false
	var sumInt int64
	var sumFloat float64
	for _, v := range items {
		switch v.Kind {
		case VInt:
			sumInt += v.Int
			sumFloat += float64(v.Int)
		case VFloat:
			isFloat = true
			sumFloat += v.Float
		default:
			return Value{}, true, typeError("sum() requires numeric elements")
		}
	}
	if isFloat {
		return FloatVal(sumFloat), true, nil
	}
	return IntVal(sumInt), true, nil
}

func evalMinMax(name string, items []Value) (Value, bool, error) {
	if len(items) == 0 {
		return Value{}, true, typeError(name + "() arg is an empty sequence")
	}
	best := items[0]
	for _, v := range items[1:] {
		cmp, ok := compareNumericOrString(best, v)
		if !ok {
			return Value{}, true, typeError(name + "() requires comparable elements")
		}
		if (name == "min" && cmp > 0) || (name == "max" && cmp < 0) {
			best = v
		}
	}
	return best, true, nil
}

func compareNumericOrString(a, b Value) (int, bool) {
	if a.Kind == VStr && b.Kind == VStr {
		return strings.Compare(a.Str, b.Str), true
	}
	af, aok := numericOf(a)
	bf, bok := numericOf(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

func numericOf(v Value) (float64, bool) {
	switch v.Kind {
	case VInt:
		return float64(v.Int), true
	case VFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

func sortValues(items []Value) {
	sort.SliceStable(items, func(i, j int) bool {
		cmp, _ := compareNumericOrString(items[i], items[j])
		return cmp < 0
	})
}

func hashValueFNV(v Value) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	write := func(b byte) {
		h ^= uint32(b)
		h *= prime
	}
	var walk func(Value)
	walk = func(v Value) {
		write(byte(v.Kind))
		switch v.Kind {
		case VBool:
			if v.Bool {
				write(1)
			}
		case VInt:
			for i := 0; i < 8; i++ {
				write(byte(v.Int >> (8 * i)))
			}
		case VStr:
			for i := 0; i < len(v.Str); i++ {
				write(v.Str[i])
			}
		case VList, VSet, VTuple:
			for _, item := range v.List {
				walk(item)
			}
		}
	}
	walk(v)
	return h
}
