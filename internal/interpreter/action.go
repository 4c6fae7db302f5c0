package interpreter

import (
	"github.com/alexchoi0/blueprint/internal/approval"
	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/plan"
)

// actionFromResolved builds the approval.Action for an op whose operands
// have already been resolved to concrete values, mirroring the shape
// internal/validator's compile-time actionForOp builds from literals -
// here every operand is available regardless of whether it came from a
// literal or a dynamic reference, since resolution already happened.
func actionFromResolved(tag plan.OpKindTag, inputs []blueprintvalue.RecordedValue) (approval.Action, bool) {
	str := func(i int) (string, bool) {
		if i >= len(inputs) || inputs[i].Kind != blueprintvalue.KindString {
			return "", false
		}
		return inputs[i].Str, true
	}

	switch tag {
	case plan.ReadFile, plan.ListDir:
		if p, ok := str(0); ok {
			return approval.Action{Kind: kindFor(tag), Path: p}, true
		}
	case plan.WriteFile:
		if p, ok := str(0); ok {
			return approval.Action{Kind: approval.WriteFile, Path: p}, true
		}
	case plan.AppendFile:
		if p, ok := str(0); ok {
			return approval.Action{Kind: approval.AppendFile, Path: p}, true
		}
	case plan.DeleteFile:
		if p, ok := str(0); ok {
			return approval.Action{Kind: approval.DeleteFile, Path: p}, true
		}
	case plan.Mkdir:
		if p, ok := str(0); ok {
			return approval.Action{Kind: approval.CreateDir, Path: p}, true
		}
	case plan.Rmdir:
		if p, ok := str(0); ok {
			return approval.Action{Kind: approval.DeleteDir, Path: p}, true
		}
	case plan.CopyFile:
		src, ok1 := str(0)
		dst, ok2 := str(1)
		if ok1 && ok2 {
			return approval.Action{Kind: approval.CopyFile, Src: src, Dst: dst}, true
		}
	case plan.MoveFile:
		src, ok1 := str(0)
		dst, ok2 := str(1)
		if ok1 && ok2 {
			return approval.Action{Kind: approval.MoveFile, Src: src, Dst: dst}, true
		}
	case plan.HttpRequest:
		method, _ := str(1)
		if u, ok := str(0); ok {
			return approval.Action{Kind: approval.HttpRequest, Method: method, URL: u}, true
		}
	case plan.TcpConnect, plan.TcpListen, plan.UdpBind, plan.UdpSendTo:
		host, ok1 := str(0)
		port, ok2 := intOperand(inputs, 1)
		if ok1 && ok2 {
			return approval.Action{Kind: kindFor(tag), Host: host, Port: uint16(port)}, true
		}
	case plan.UnixConnect, plan.UnixListen:
		if p, ok := str(0); ok {
			return approval.Action{Kind: kindFor(tag), Path: p}, true
		}
	case plan.Exec:
		if c, ok := str(0); ok {
			return approval.Action{Kind: approval.Exec_, Command: c}, true
		}
	case plan.EnvGet:
		if n, ok := str(0); ok {
			return approval.Action{Kind: approval.EnvGet, Name: n}, true
		}
	}
	return approval.Action{}, false
}

func intOperand(inputs []blueprintvalue.RecordedValue, i int) (int64, bool) {
	if i >= len(inputs) || inputs[i].Kind != blueprintvalue.KindInt {
		return 0, false
	}
	return inputs[i].Int, true
}

func kindFor(tag plan.OpKindTag) approval.Kind {
	switch tag {
	case plan.ReadFile:
		return approval.ReadFile
	case plan.ListDir:
		return approval.ListDir
	case plan.TcpConnect:
		return approval.TcpConnect
	case plan.TcpListen:
		return approval.TcpListen
	case plan.UdpBind:
		return approval.UdpBind
	case plan.UdpSendTo:
		return approval.UdpSendTo
	case plan.UnixConnect:
		return approval.UnixConnect
	case plan.UnixListen:
		return approval.UnixListen
	default:
		return approval.EnvGet
	}
}
