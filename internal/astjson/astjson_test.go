package astjson

import (
	"testing"

	"github.com/alexchoi0/blueprint/internal/ast"
)

func TestDecodeRejectsNonProgramRoot(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Name","line":1,"ident":"x"}`))
	if err == nil {
		t.Fatalf("Decode: expected an error for a non-Program root, got nil")
	}
}

func TestDecodeSimpleAssignment(t *testing.T) {
	src := `{
		"type": "Program", "line": 1,
		"body": [
			{"type": "Assign", "line": 1,
			 "targets": [{"type": "Name", "line": 1, "ident": "x"}],
			 "value": {"type": "BinOp", "line": 1, "op": "add",
			           "left": {"type": "Literal", "line": 1, "kind": "int", "int": 1},
			           "right": {"type": "Literal", "line": 1, "kind": "int", "int": 2}}}
		]
	}`
	prog, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(prog.Body) != 1 {
		t.Fatalf("prog.Body has %d stmts, want 1", len(prog.Body))
	}
	assign, ok := prog.Body[0].(*ast.Assign)
	if !ok {
		t.Fatalf("Body[0] = %T, want *ast.Assign", prog.Body[0])
	}
	binOp, ok := assign.Value.(*ast.BinOp)
	if !ok {
		t.Fatalf("Assign.Value = %T, want *ast.BinOp", assign.Value)
	}
	if binOp.Op != ast.OpAdd {
		t.Errorf("BinOp.Op = %v, want OpAdd", binOp.Op)
	}
}

func TestDecodeCallWithArgs(t *testing.T) {
	src := `{
		"type": "Program", "line": 1,
		"body": [
			{"type": "ExprStmt", "line": 1,
			 "value": {"type": "Call", "line": 1,
			           "func": {"type": "Name", "line": 1, "ident": "read_file"},
			           "args": [{"name": "", "value": {"type": "Literal", "line": 1, "kind": "string", "str": "f.txt"}}]}}
		]
	}`
	prog, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	exprStmt := prog.Body[0].(*ast.ExprStmt)
	call, ok := exprStmt.Value.(*ast.Call)
	if !ok {
		t.Fatalf("ExprStmt.Value = %T, want *ast.Call", exprStmt.Value)
	}
	if len(call.Args) != 1 {
		t.Fatalf("Call.Args has %d entries, want 1", len(call.Args))
	}
	lit, ok := call.Args[0].Value.(*ast.Literal)
	if !ok || lit.Str != "f.txt" {
		t.Errorf("Call.Args[0].Value = %+v, want string literal f.txt", call.Args[0].Value)
	}
}

func TestDecodeIfStatement(t *testing.T) {
	src := `{
		"type": "Program", "line": 1,
		"body": [
			{"type": "If", "line": 1,
			 "cond": {"type": "Literal", "line": 1, "kind": "bool", "bool": true},
			 "then_body": [{"type": "Pass", "line": 2}],
			 "else_body": [{"type": "Pass", "line": 3}]}
		]
	}`
	prog, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ifStmt, ok := prog.Body[0].(*ast.If)
	if !ok {
		t.Fatalf("Body[0] = %T, want *ast.If", prog.Body[0])
	}
	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Errorf("If.Then/Else lengths = %d/%d, want 1/1", len(ifStmt.Then), len(ifStmt.Else))
	}
}

func TestDecodeForStatement(t *testing.T) {
	src := `{
		"type": "Program", "line": 1,
		"body": [
			{"type": "For", "line": 1, "item_name": "x", "parallel": true,
			 "iterable": {"type": "ListExpr", "line": 1, "items": []},
			 "body": [{"type": "Pass", "line": 2}]}
		]
	}`
	prog, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	forStmt, ok := prog.Body[0].(*ast.For)
	if !ok {
		t.Fatalf("Body[0] = %T, want *ast.For", prog.Body[0])
	}
	if forStmt.ItemName != "x" || !forStmt.Parallel {
		t.Errorf("For = %+v, want ItemName=x Parallel=true", forStmt)
	}
}

func TestDecodeComprehension(t *testing.T) {
	src := `{
		"type": "Program", "line": 1,
		"body": [
			{"type": "ExprStmt", "line": 1,
			 "value": {"type": "Comprehension", "line": 1, "kind": "list",
			           "element": {"type": "Name", "line": 1, "ident": "x"},
			           "item_name": "x",
			           "iterable": {"type": "ListExpr", "line": 1, "items": []}}}
		]
	}`
	prog, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	exprStmt := prog.Body[0].(*ast.ExprStmt)
	comp, ok := exprStmt.Value.(*ast.Comprehension)
	if !ok {
		t.Fatalf("ExprStmt.Value = %T, want *ast.Comprehension", exprStmt.Value)
	}
	if comp.Kind != ast.CompList || comp.ItemName != "x" {
		t.Errorf("Comprehension = %+v, want Kind=CompList ItemName=x", comp)
	}
}

func TestDecodeUnknownNodeTypeErrors(t *testing.T) {
	src := `{
		"type": "Program", "line": 1,
		"body": [{"type": "Mystery", "line": 1}]
	}`
	_, err := Decode([]byte(src))
	if err == nil {
		t.Fatalf("Decode: expected an error for an unknown statement type, got nil")
	}
}
