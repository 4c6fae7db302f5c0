// Package nativeops supplies the concrete op executors the CLI wires
// into an interpreter.Registry at startup: one executor per
// side-effecting op kind, built on the standard-library os/net/exec
// primitives rather than a bespoke sandboxed runtime.
package nativeops

import (
	"bytes"
	gocontext "context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
	"github.com/alexchoi0/blueprint/internal/context"
	"github.com/alexchoi0/blueprint/internal/interpreter"
	"github.com/alexchoi0/blueprint/internal/plan"
)

// Register installs every native op executor into r.
func Register(r *interpreter.Registry) {
	r.Register(plan.Print, execPrint)
	r.Register(plan.Now, execNow)
	r.Register(plan.Sleep, execSleep)

	r.Register(plan.ReadFile, execReadFile)
	r.Register(plan.WriteFile, execWriteFile)
	r.Register(plan.AppendFile, execAppendFile)
	r.Register(plan.DeleteFile, execDeleteFile)
	r.Register(plan.ListDir, execListDir)
	r.Register(plan.Mkdir, execMkdir)
	r.Register(plan.Rmdir, execRmdir)
	r.Register(plan.CopyFile, execCopyFile)
	r.Register(plan.MoveFile, execMoveFile)
	r.Register(plan.FileExists, execFileExists)
	r.Register(plan.IsDir, execIsDir)
	r.Register(plan.IsFile, execIsFile)
	r.Register(plan.FileSize, execFileSize)

	r.Register(plan.HttpRequest, execHttpRequest)
	r.Register(plan.TcpConnect, execTcpConnect)
	r.Register(plan.TcpListen, execTcpListen)
	r.Register(plan.UdpBind, execUdpBind)
	r.Register(plan.UdpSendTo, execUdpSendTo)
	r.Register(plan.UnixConnect, execUnixConnect)
	r.Register(plan.UnixListen, execUnixListen)

	r.Register(plan.Exec, execExec)
	r.Register(plan.EnvGet, execEnvGet)
}

func str(inputs []blueprintvalue.RecordedValue, i int) string {
	if i >= len(inputs) {
		return ""
	}
	return inputs[i].Str
}

func execPrint(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	fmt.Println(inputs[0].String())
	return blueprintvalue.None(), nil
}

func execNow(_ gocontext.Context, _ []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	return blueprintvalue.IntVal(time.Now().Unix()), nil
}

func execSleep(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	time.Sleep(time.Duration(inputs[0].Int) * time.Second)
	return blueprintvalue.None(), nil
}

func execReadFile(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	data, err := os.ReadFile(str(inputs, 0))
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.StringVal(string(data)), nil
}

func execWriteFile(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	if err := os.WriteFile(str(inputs, 0), []byte(str(inputs, 1)), 0o644); err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.None(), nil
}

func execAppendFile(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	f, err := os.OpenFile(str(inputs, 0), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	defer f.Close()
	if _, err := f.WriteString(str(inputs, 1)); err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.None(), nil
}

func execDeleteFile(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	if err := os.Remove(str(inputs, 0)); err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.None(), nil
}

func execListDir(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	entries, err := os.ReadDir(str(inputs, 0))
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	names := make([]blueprintvalue.RecordedValue, len(entries))
	for i, e := range entries {
		names[i] = blueprintvalue.StringVal(e.Name())
	}
	return blueprintvalue.ListVal(names), nil
}

func execMkdir(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	if err := os.MkdirAll(str(inputs, 0), 0o755); err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.None(), nil
}

func execRmdir(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	if err := os.RemoveAll(str(inputs, 0)); err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.None(), nil
}

func execCopyFile(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	src, err := os.Open(str(inputs, 0))
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	defer src.Close()
	dst, err := os.Create(str(inputs, 1))
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.None(), nil
}

func execMoveFile(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	if err := os.Rename(str(inputs, 0), str(inputs, 1)); err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.None(), nil
}

func execFileExists(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	_, err := os.Stat(str(inputs, 0))
	return blueprintvalue.BoolVal(err == nil), nil
}

func execIsDir(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	info, err := os.Stat(str(inputs, 0))
	if err != nil {
		return blueprintvalue.BoolVal(false), nil
	}
	return blueprintvalue.BoolVal(info.IsDir()), nil
}

func execIsFile(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	info, err := os.Stat(str(inputs, 0))
	if err != nil {
		return blueprintvalue.BoolVal(false), nil
	}
	return blueprintvalue.BoolVal(!info.IsDir()), nil
}

func execFileSize(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	info, err := os.Stat(str(inputs, 0))
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.IntVal(info.Size()), nil
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func execHttpRequest(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	url := str(inputs, 0)
	method := str(inputs, 1)
	if method == "" {
		method = "GET"
	}
	var body io.Reader
	if len(inputs) > 2 && inputs[2].Kind == blueprintvalue.KindString {
		body = bytes.NewBufferString(inputs[2].Str)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.DictVal(map[string]blueprintvalue.RecordedValue{
		"status": blueprintvalue.IntVal(int64(resp.StatusCode)),
		"body":   blueprintvalue.StringVal(string(data)),
	}), nil
}

func execTcpConnect(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	addr := net.JoinHostPort(str(inputs, 0), fmt.Sprint(intOf(inputs, 1)))
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	defer conn.Close()
	return blueprintvalue.BoolVal(true), nil
}

func execTcpListen(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	addr := net.JoinHostPort(str(inputs, 0), fmt.Sprint(intOf(inputs, 1)))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	defer ln.Close()
	return blueprintvalue.StringVal(ln.Addr().String()), nil
}

func execUdpBind(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	addr := net.JoinHostPort(str(inputs, 0), fmt.Sprint(intOf(inputs, 1)))
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	defer conn.Close()
	return blueprintvalue.StringVal(conn.LocalAddr().String()), nil
}

func execUdpSendTo(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	conn, err := net.Dial("udp", str(inputs, 0))
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	defer conn.Close()
	n, err := conn.Write([]byte(str(inputs, 1)))
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	return blueprintvalue.IntVal(int64(n)), nil
}

func execUnixConnect(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	conn, err := net.DialTimeout("unix", str(inputs, 0), 10*time.Second)
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	defer conn.Close()
	return blueprintvalue.BoolVal(true), nil
}

func execUnixListen(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, _ *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	ln, err := net.Listen("unix", str(inputs, 0))
	if err != nil {
		return blueprintvalue.RecordedValue{}, err
	}
	defer ln.Close()
	return blueprintvalue.StringVal(ln.Addr().String()), nil
}

func execExec(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, ectx *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	command := str(inputs, 0)
	var args []string
	if len(inputs) > 1 && inputs[1].Kind == blueprintvalue.KindList {
		for _, a := range inputs[1].List {
			args = append(args, a.Str)
		}
	}
	cmd := exec.Command(command, args...)
	if len(inputs) > 2 && inputs[2].Kind == blueprintvalue.KindString && inputs[2].Str != "" {
		cmd.Dir = inputs[2].Str
	} else if ectx != nil {
		cmd.Dir = ectx.WorkingDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return blueprintvalue.RecordedValue{}, runErr
	}
	return blueprintvalue.DictVal(map[string]blueprintvalue.RecordedValue{
		"exit_code": blueprintvalue.IntVal(int64(exitCode)),
		"stdout":    blueprintvalue.StringVal(stdout.String()),
		"stderr":    blueprintvalue.StringVal(stderr.String()),
	}), nil
}

func execEnvGet(_ gocontext.Context, inputs []blueprintvalue.RecordedValue, ectx *context.ExecutionContext) (blueprintvalue.RecordedValue, error) {
	name := str(inputs, 0)
	if ectx != nil {
		if v, ok := ectx.Env[name]; ok {
			return blueprintvalue.StringVal(v), nil
		}
	}
	if v, ok := os.LookupEnv(name); ok {
		return blueprintvalue.StringVal(v), nil
	}
	return blueprintvalue.None(), nil
}

func intOf(inputs []blueprintvalue.RecordedValue, i int) int64 {
	if i >= len(inputs) {
		return 0
	}
	return inputs[i].Int
}
