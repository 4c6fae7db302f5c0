// Package astjson decodes the typed AST the script parser hands off to
// the generator. The parser itself lives outside this module; this
// package is the concrete wire format an external parser (or a test
// fixture) produces: a tagged-union JSON tree mirroring internal/ast's
// node shapes one-for-one, decoded with the same github.com/goccy/go-json
// encoder already used elsewhere for plan/schema JSON export.
package astjson

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/alexchoi0/blueprint/internal/ast"
)

// Decode parses a JSON-encoded program into its typed ast.Program.
func Decode(data []byte) (*ast.Program, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("astjson: decode program: %w", err)
	}
	if raw.Type != "Program" {
		return nil, fmt.Errorf("astjson: top-level node must be \"Program\", got %q", raw.Type)
	}
	body, err := decodeStmts(raw.Body)
	return ast.NewProgram(raw.Line, body), err
}

// rawNode is the generic envelope every node decodes through before its
// Type field dispatches to a concrete shape.
type rawNode struct {
	Type string `json:"type"`
	Line int    `json:"line"`

	// Shared/overloaded fields across node kinds, left empty/zero by
	// whichever node kind doesn't use them.
	Kind     string            `json:"kind"`
	Op       string            `json:"op"`
	Bool     bool              `json:"bool"`
	Int      int64             `json:"int"`
	Float    float64           `json:"float"`
	Str      string            `json:"str"`
	Bytes    []byte            `json:"bytes"`
	Ident    string            `json:"ident"`
	Name     string            `json:"name"`
	Left     json.RawMessage   `json:"left"`
	Right    json.RawMessage   `json:"right"`
	Values   []json.RawMessage `json:"values"`
	Operand  json.RawMessage   `json:"operand"`
	Func     json.RawMessage   `json:"func"`
	Args     []rawArg          `json:"args"`
	StarArg  json.RawMessage   `json:"star_arg"`
	KwArg    json.RawMessage   `json:"kw_arg"`
	Value    json.RawMessage   `json:"value"`
	Index    json.RawMessage   `json:"index"`
	Items    []json.RawMessage `json:"items"`
	Entries  []rawDictEntry    `json:"entries"`
	Cond     json.RawMessage   `json:"cond"`
	Then     json.RawMessage   `json:"then"`
	Else     json.RawMessage   `json:"else"`
	ThenStmt []json.RawMessage `json:"then_body"`
	ElseStmt []json.RawMessage `json:"else_body"`
	Body     []json.RawMessage `json:"body"`
	Params   []rawParam        `json:"params"`
	Element  json.RawMessage   `json:"element"`
	KeyElem  json.RawMessage   `json:"key_elem"`
	ValElem  json.RawMessage   `json:"val_elem"`
	ItemName string            `json:"item_name"`
	Iterable json.RawMessage   `json:"iterable"`
	Parallel bool              `json:"parallel"`
	Targets  []json.RawMessage `json:"targets"`
	Module   string            `json:"module"`
	Symbols  []string          `json:"symbols"`
	Message  json.RawMessage   `json:"message"`
}

type rawArg struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type rawDictEntry struct {
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
}

type rawParam struct {
	Name      string          `json:"name"`
	Default   json.RawMessage `json:"default"`
	IsVarArgs bool            `json:"is_var_args"`
	IsKwArgs  bool            `json:"is_kw_args"`
}

func decodeExpr(raw json.RawMessage) (ast.Expr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var n rawNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("astjson: decode expr: %w", err)
	}
	switch n.Type {
	case "Literal":
		return decodeLiteral(n)
	case "Name":
		return ast.NewName(n.Line, n.Ident), nil
	case "BinOp":
		left, err := decodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		op, ok := binOpKinds[n.Op]
		if !ok {
			return nil, fmt.Errorf("astjson: unknown binop %q", n.Op)
		}
		return ast.NewBinOp(n.Line, op, left, right), nil
	case "BoolOp":
		values, err := decodeExprList(n.Values)
		if err != nil {
			return nil, err
		}
		op, ok := boolOpKinds[n.Op]
		if !ok {
			return nil, fmt.Errorf("astjson: unknown boolop %q", n.Op)
		}
		return ast.NewBoolOp(n.Line, op, values), nil
	case "UnaryOp":
		operand, err := decodeExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		op, ok := unaryOpKinds[n.Op]
		if !ok {
			return nil, fmt.Errorf("astjson: unknown unaryop %q", n.Op)
		}
		return ast.NewUnaryOp(n.Line, op, operand), nil
	case "Call":
		fn, err := decodeExpr(n.Func)
		if err != nil {
			return nil, err
		}
		args := make([]ast.Arg, len(n.Args))
		for i, a := range n.Args {
			v, err := decodeExpr(a.Value)
			if err != nil {
				return nil, err
			}
			args[i] = ast.Arg{Name: a.Name, Value: v}
		}
		starArg, err := decodeExpr(n.StarArg)
		if err != nil {
			return nil, err
		}
		kwArg, err := decodeExpr(n.KwArg)
		if err != nil {
			return nil, err
		}
		return ast.NewCall(n.Line, fn, args, starArg, kwArg), nil
	case "Attribute":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return ast.NewAttribute(n.Line, v, n.Name), nil
	case "Subscript":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		idx, err := decodeExpr(n.Index)
		if err != nil {
			return nil, err
		}
		return ast.NewSubscript(n.Line, v, idx), nil
	case "ListExpr":
		items, err := decodeExprList(n.Items)
		if err != nil {
			return nil, err
		}
		return ast.NewListExpr(n.Line, items), nil
	case "DictExpr":
		entries := make([]ast.DictEntry, len(n.Entries))
		for i, e := range n.Entries {
			k, err := decodeExpr(e.Key)
			if err != nil {
				return nil, err
			}
			v, err := decodeExpr(e.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = ast.DictEntry{Key: k, Value: v}
		}
		return ast.NewDictExpr(n.Line, entries), nil
	case "SetExpr":
		items, err := decodeExprList(n.Items)
		if err != nil {
			return nil, err
		}
		return ast.NewSetExpr(n.Line, items), nil
	case "TupleExpr":
		items, err := decodeExprList(n.Items)
		if err != nil {
			return nil, err
		}
		return ast.NewTupleExpr(n.Line, items), nil
	case "IfExpr":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := decodeExpr(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeExpr(n.Else)
		if err != nil {
			return nil, err
		}
		return ast.NewIfExpr(n.Line, cond, then, els), nil
	case "Lambda":
		params, err := decodeParams(n.Params)
		if err != nil {
			return nil, err
		}
		body, err := decodeExpr(n.Body0())
		if err != nil {
			return nil, err
		}
		return ast.NewLambda(n.Line, params, body), nil
	case "Comprehension":
		return decodeComprehension(n)
	case "Starred":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return ast.NewStarred(n.Line, v), nil
	default:
		return nil, fmt.Errorf("astjson: unknown expr node type %q", n.Type)
	}
}

// Body0 reinterprets the overloaded `body` field as a single raw
// expression for Lambda, whose body is one expression rather than a
// statement list.
func (n rawNode) Body0() json.RawMessage {
	if len(n.Body) == 1 {
		return n.Body[0]
	}
	return nil
}

func decodeLiteral(n rawNode) (*ast.Literal, error) {
	switch n.Kind {
	case "none":
		return ast.NewNoneLiteral(n.Line), nil
	case "bool":
		return ast.NewBoolLiteral(n.Line, n.Bool), nil
	case "int":
		return ast.NewIntLiteral(n.Line, n.Int), nil
	case "float":
		return ast.NewFloatLiteral(n.Line, n.Float), nil
	case "string":
		return ast.NewStringLiteral(n.Line, n.Str), nil
	case "bytes":
		return ast.NewBytesLiteral(n.Line, n.Bytes), nil
	default:
		return nil, fmt.Errorf("astjson: unknown literal kind %q", n.Kind)
	}
}

func decodeComprehension(n rawNode) (*ast.Comprehension, error) {
	kind, ok := compKinds[n.Kind]
	if !ok {
		return nil, fmt.Errorf("astjson: unknown comprehension kind %q", n.Kind)
	}
	element, err := decodeExpr(n.Element)
	if err != nil {
		return nil, err
	}
	keyElem, err := decodeExpr(n.KeyElem)
	if err != nil {
		return nil, err
	}
	valElem, err := decodeExpr(n.ValElem)
	if err != nil {
		return nil, err
	}
	iterable, err := decodeExpr(n.Iterable)
	if err != nil {
		return nil, err
	}
	cond, err := decodeExpr(n.Cond)
	if err != nil {
		return nil, err
	}
	return ast.NewComprehension(n.Line, kind, element, keyElem, valElem, n.ItemName, iterable, cond), nil
}

func decodeExprList(raws []json.RawMessage) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(raws))
	for i, r := range raws {
		e, err := decodeExpr(r)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func decodeParams(raws []rawParam) ([]ast.Param, error) {
	out := make([]ast.Param, len(raws))
	for i, p := range raws {
		def, err := decodeExpr(p.Default)
		if err != nil {
			return nil, err
		}
		out[i] = ast.Param{Name: p.Name, Default: def, IsVarArgs: p.IsVarArgs, IsKwArgs: p.IsKwArgs}
	}
	return out, nil
}

func decodeStmt(raw json.RawMessage) (ast.Stmt, error) {
	var n rawNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("astjson: decode stmt: %w", err)
	}
	switch n.Type {
	case "ExprStmt":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return ast.NewExprStmt(n.Line, v), nil
	case "Assign":
		targets, err := decodeExprList(n.Targets)
		if err != nil {
			return nil, err
		}
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return ast.NewAssign(n.Line, targets, v), nil
	case "If":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := decodeStmts(n.ThenStmt)
		if err != nil {
			return nil, err
		}
		els, err := decodeStmts(n.ElseStmt)
		if err != nil {
			return nil, err
		}
		return ast.NewIf(n.Line, cond, then, els), nil
	case "For":
		iterable, err := decodeExpr(n.Iterable)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(n.Body)
		if err != nil {
			return nil, err
		}
		return ast.NewFor(n.Line, n.ItemName, iterable, body, n.Parallel), nil
	case "FunctionDef":
		params, err := decodeParams(n.Params)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(n.Body)
		if err != nil {
			return nil, err
		}
		return ast.NewFunctionDef(n.Line, n.Name, params, body), nil
	case "Return":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return ast.NewReturn(n.Line, v), nil
	case "Break":
		return ast.NewBreak(n.Line), nil
	case "Continue":
		return ast.NewContinue(n.Line), nil
	case "Pass":
		return ast.NewPass(n.Line), nil
	case "Load":
		return ast.NewLoad(n.Line, n.Module, n.Symbols), nil
	case "Fail":
		msg, err := decodeExpr(n.Message)
		if err != nil {
			return nil, err
		}
		return ast.NewFail(n.Line, msg), nil
	default:
		return nil, fmt.Errorf("astjson: unknown stmt node type %q", n.Type)
	}
}

func decodeStmts(raws []json.RawMessage) ([]ast.Stmt, error) {
	out := make([]ast.Stmt, len(raws))
	for i, r := range raws {
		s, err := decodeStmt(r)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

var binOpKinds = map[string]ast.BinOpKind{
	"add": ast.OpAdd, "sub": ast.OpSub, "mul": ast.OpMul, "div": ast.OpDiv,
	"floordiv": ast.OpFloorDiv, "mod": ast.OpMod,
	"eq": ast.OpEq, "ne": ast.OpNe, "lt": ast.OpLt, "le": ast.OpLe, "gt": ast.OpGt, "ge": ast.OpGe,
	"concat": ast.OpConcat,
}

var boolOpKinds = map[string]ast.BoolOpKind{"and": ast.BoolAnd, "or": ast.BoolOr}

var unaryOpKinds = map[string]ast.UnaryOpKind{"not": ast.UnaryNot, "neg": ast.UnaryNeg, "pos": ast.UnaryPos}

var compKinds = map[string]ast.CompKind{
	"list": ast.CompList, "set": ast.CompSet, "dict": ast.CompDict, "gen": ast.CompGen,
}
