package generator

import (
	"github.com/alexchoi0/blueprint/internal/ast"
	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/plan"
	"github.com/alexchoi0/blueprint/internal/schema"
)

func httpMethod(builtin string) string {
	switch builtin {
	case "http_get":
		return "GET"
	case "http_post":
		return "POST"
	case "http_put":
		return "PUT"
	case "http_delete":
		return "DELETE"
	default:
		return "GET"
	}
}

func (g *Generator) evalCall(e *ast.Call, scope *Scope) (Value, error) {
	if e.StarArg != nil || e.KwArg != nil {
		return Value{}, withLine(unsupportedNodeError("*args/**kwargs splats are unsupported"), e.Line())
	}
	args := make([]Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := g.eval(a.Value, scope)
		if err != nil {
			return Value{}, err
		}
		args = append(args, v)
	}

	if name, ok := e.Func.(*ast.Name); ok {
		if callee, ok := scope.Get(name.Ident); ok && callee.Kind == VClosure {
			return g.callClosure(callee.Closure, args, e.Line())
		}
		if tag, ok := effectfulOpTag(name.Ident); ok {
			return g.emitEffectful(name.Ident, tag, args), nil
		}
		if !anyDynamic(args) {
			v, handled, err := evalPureBuiltin(name.Ident, args)
			if handled {
				return v, err
			}
		}
		if tag, ok := pureBuiltinOpTag(name.Ident); ok {
			return g.emitPureDynamic(tag, args), nil
		}
		return Value{}, withLine(undefinedNameError(name.Ident), e.Line())
	}

	callee, err := g.eval(e.Func, scope)
	if err != nil {
		return Value{}, err
	}
	if callee.Kind == VClosure {
		return g.callClosure(callee.Closure, args, e.Line())
	}
	return Value{}, withLine(typeError("value is not callable"), e.Line())
}

func anyDynamic(args []Value) bool {
	for _, a := range args {
		if a.IsDynamic() {
			return true
		}
	}
	return false
}

// callClosure inlines a user-defined function at generation time: a new
// scope is created off the closure's defining scope (not the call site),
// giving lexical scoping, and the body executes directly into the
// calling Generator's schema rather than a nested SubPlan. This treats
// function calls as generation-time macro expansion, which is sufficient
// since the dialect has no unbounded recursion construct the generator
// would need to detect and reject.
func (g *Generator) callClosure(c *Closure, args []Value, line int) (Value, error) {
	body, ok := c.Body.([]ast.Stmt)
	if !ok {
		return Value{}, withLine(unsupportedNodeError("malformed closure body"), line)
	}
	callScope := c.Defined.Child()
	if err := bindParams(callScope, c.Params, args, line); err != nil {
		return Value{}, err
	}
	result, err := g.execBlock(body, callScope)
	if err != nil {
		return Value{}, err
	}
	if result.kind == ctrlReturn {
		return result.val, nil
	}
	return None(), nil
}

func bindParams(scope *Scope, params []ClosureParam, args []Value, line int) error {
	i := 0
	for _, p := range params {
		switch {
		case p.IsVarArgs:
			scope.Define(p.Name, ListVal(append([]Value(nil), args[i:]...)))
			i = len(args)
		case p.IsKwArgs:
			scope.Define(p.Name, DictVal(nil, map[string]Value{}))
		case i < len(args):
			scope.Define(p.Name, args[i])
			i++
		case p.Default != nil:
			scope.Define(p.Name, *p.Default)
		default:
			return withLine(arityError("closure", len(params), len(args)), line)
		}
	}
	return nil
}

// pureBuiltinOpTag maps a pure builtin name to the plan op it corresponds
// to, used when that builtin is called with at least one dynamic
// argument and must be emitted as a schema op rather than folded.
func pureBuiltinOpTag(name string) (plan.OpKindTag, bool) {
	switch name {
	case "len":
		return plan.Len, true
	case "str":
		return plan.ToStr, true
	case "int":
		return plan.ToInt, true
	case "float":
		return plan.ToFloat, true
	case "bool":
		return plan.ToBool, true
	case "sorted":
		return plan.Sorted, true
	case "reversed":
		return plan.Reversed, true
	case "sum":
		return plan.Sum, true
	case "min":
		return plan.Min, true
	case "max":
		return plan.Max, true
	case "abs":
		return plan.Abs, true
	default:
		return 0, false
	}
}

func (g *Generator) emitPureDynamic(tag plan.OpKindTag, args []Value) Value {
	k := schema.SchemaOp{Tag: int(tag)}
	switch tag {
	case plan.Min, plan.Max, plan.Sum, plan.Sorted, plan.Reversed:
		if len(args) == 1 && (args[0].Kind == VList || args[0].Kind == VSet || args[0].Kind == VTuple) {
			k.A = ToSchemaValue(args[0])
		} else {
			items := make([]schema.SchemaValue, len(args))
			for i, a := range args {
				items[i] = ToSchemaValue(a)
			}
			k.A = schema.ListVal(items)
		}
	default:
		if len(args) > 0 {
			k.A = ToSchemaValue(args[0])
		}
	}
	id := g.sch.AddOp(k)
	return OpRefVal(id)
}

// effectfulOpTag maps an effectful builtin name to its plan op tag.
func effectfulOpTag(name string) (plan.OpKindTag, bool) {
	switch name {
	case "read_file":
		return plan.ReadFile, true
	case "write_file":
		return plan.WriteFile, true
	case "append_file":
		return plan.AppendFile, true
	case "delete_file":
		return plan.DeleteFile, true
	case "list_dir":
		return plan.ListDir, true
	case "mkdir":
		return plan.Mkdir, true
	case "rmdir":
		return plan.Rmdir, true
	case "copy_file":
		return plan.CopyFile, true
	case "move_file":
		return plan.MoveFile, true
	case "file_exists":
		return plan.FileExists, true
	case "is_dir":
		return plan.IsDir, true
	case "is_file":
		return plan.IsFile, true
	case "file_size":
		return plan.FileSize, true
	case "http_get", "http_post", "http_put", "http_delete":
		return plan.HttpRequest, true
	case "tcp_connect":
		return plan.TcpConnect, true
	case "tcp_listen":
		return plan.TcpListen, true
	case "udp_bind":
		return plan.UdpBind, true
	case "udp_send_to":
		return plan.UdpSendTo, true
	case "unix_connect":
		return plan.UnixConnect, true
	case "unix_listen":
		return plan.UnixListen, true
	case "exec_run":
		return plan.Exec, true
	case "env_get":
		return plan.EnvGet, true
	case "sleep":
		return plan.Sleep, true
	case "now":
		return plan.Now, true
	case "print":
		return plan.Print, true
	default:
		return 0, false
	}
}

func (g *Generator) emitEffectful(name string, tag plan.OpKindTag, args []Value) Value {
	k := schema.SchemaOp{Tag: int(tag)}
	switch tag {
	case plan.Now:
		// no operands
	case plan.HttpRequest:
		if len(args) > 0 {
			k.A = ToSchemaValue(args[0])
		}
		k.B = schema.Literal(blueprintvalue.StringVal(httpMethod(name)))
		if len(args) > 1 {
			k.C = ToSchemaValue(args[1])
		}
	case plan.Exec:
		if len(args) > 0 {
			k.A = ToSchemaValue(args[0])
		}
		if len(args) > 1 {
			k.B = ToSchemaValue(args[1])
		}
		if len(args) > 2 {
			k.C = ToSchemaValue(args[2])
		}
	case plan.WriteFile, plan.AppendFile, plan.CopyFile, plan.MoveFile, plan.TcpConnect, plan.TcpListen, plan.UdpBind, plan.UdpSendTo:
		if len(args) > 0 {
			k.A = ToSchemaValue(args[0])
		}
		if len(args) > 1 {
			k.B = ToSchemaValue(args[1])
		}
	default:
		if len(args) > 0 {
			k.A = ToSchemaValue(args[0])
		}
	}
	id := g.sch.AddOp(k)
	return OpRefVal(id)
}
