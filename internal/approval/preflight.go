package approval

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// AnalyzeScript scans a script's source text, line by line, for calls to
// the internal __bp_* intrinsics the schema generator lowers effectful
// builtins to, returning a best-effort preview of the Actions a script
// might perform. It is a line scanner, not an AST walk - a deliberate
// tradeoff for a fast `blueprint validate --preflight` pass that
// doesn't require a full compile, at the cost of reporting at most one
// intrinsic per line and only those whose operands are literals.
func AnalyzeScript(path string) ([]Action, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var actions []Action
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if action, ok := parseBpCall(line); ok {
			actions = append(actions, action)
		}
	}
	return actions, scanner.Err()
}

func parseBpCall(line string) (Action, bool) {
	if line == "" || strings.HasPrefix(line, "#") {
		return Action{}, false
	}

	type prefixHandler struct {
		prefix string
		build  func(rest string) (Action, bool)
	}

	handlers := []prefixHandler{
		{"__bp_read_file(", func(rest string) (Action, bool) {
			p, ok := extractStringArg(rest)
			return Action{Kind: ReadFile, Path: p}, ok
		}},
		{"__bp_write_file(", func(rest string) (Action, bool) {
			p, ok := extractStringArg(rest)
			return Action{Kind: WriteFile, Path: p}, ok
		}},
		{"__bp_append_file(", func(rest string) (Action, bool) {
			p, ok := extractStringArg(rest)
			return Action{Kind: AppendFile, Path: p}, ok
		}},
		{"__bp_delete_file(", func(rest string) (Action, bool) {
			p, ok := extractStringArg(rest)
			return Action{Kind: DeleteFile, Path: p}, ok
		}},
		{"__bp_mkdir(", func(rest string) (Action, bool) {
			p, ok := extractStringArg(rest)
			return Action{Kind: CreateDir, Path: p}, ok
		}},
		{"__bp_mkdir_all(", func(rest string) (Action, bool) {
			p, ok := extractStringArg(rest)
			return Action{Kind: CreateDir, Path: p}, ok
		}},
		{"__bp_rmdir(", func(rest string) (Action, bool) {
			p, ok := extractStringArg(rest)
			return Action{Kind: DeleteDir, Path: p}, ok
		}},
		{"__bp_rmdir_all(", func(rest string) (Action, bool) {
			p, ok := extractStringArg(rest)
			return Action{Kind: DeleteDir, Path: p}, ok
		}},
		{"__bp_list_dir(", func(rest string) (Action, bool) {
			p, ok := extractStringArg(rest)
			return Action{Kind: ListDir, Path: p}, ok
		}},
		{"__bp_http_get(", func(rest string) (Action, bool) {
			u, ok := extractStringArg(rest)
			return Action{Kind: HttpRequest, Method: "GET", URL: u}, ok
		}},
		{"__bp_http_post(", func(rest string) (Action, bool) {
			u, ok := extractStringArg(rest)
			return Action{Kind: HttpRequest, Method: "POST", URL: u}, ok
		}},
		{"__bp_http_put(", func(rest string) (Action, bool) {
			u, ok := extractStringArg(rest)
			return Action{Kind: HttpRequest, Method: "PUT", URL: u}, ok
		}},
		{"__bp_http_delete(", func(rest string) (Action, bool) {
			u, ok := extractStringArg(rest)
			return Action{Kind: HttpRequest, Method: "DELETE", URL: u}, ok
		}},
		{"__bp_tcp_connect(", func(rest string) (Action, bool) {
			h, p, ok := extractHostPort(rest)
			return Action{Kind: TcpConnect, Host: h, Port: p}, ok
		}},
		{"__bp_tcp_listen(", func(rest string) (Action, bool) {
			h, p, ok := extractHostPort(rest)
			return Action{Kind: TcpListen, Host: h, Port: p}, ok
		}},
		{"__bp_udp_bind(", func(rest string) (Action, bool) {
			h, p, ok := extractHostPort(rest)
			return Action{Kind: UdpBind, Host: h, Port: p}, ok
		}},
		{"__bp_exec(", func(rest string) (Action, bool) {
			c, ok := extractStringArg(rest)
			return Action{Kind: Exec_, Command: c}, ok
		}},
	}

	for _, h := range handlers {
		if i := strings.Index(line, h.prefix); i >= 0 {
			if action, ok := h.build(line[i+len(h.prefix):]); ok {
				return action, true
			}
		}
	}
	return Action{}, false
}

func cutPrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

func extractStringArg(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return "", false
	}
	quote := s[0]
	if quote != '"' && quote != '\'' {
		return "", false
	}
	end := strings.IndexByte(s[1:], quote)
	if end < 0 {
		return "", false
	}
	return s[1 : 1+end], true
}

func extractHostPort(s string) (string, uint16, bool) {
	s = strings.TrimSpace(s)
	host, ok := extractStringArg(s)
	if !ok {
		return "", 0, false
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", 0, false
	}
	portPart := strings.TrimSpace(s[comma+1:])
	end := 0
	for end < len(portPart) && portPart[end] >= '0' && portPart[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", 0, false
	}
	port, err := strconv.ParseUint(portPart[:end], 10, 16)
	if err != nil {
		return "", 0, false
	}
	return host, uint16(port), true
}
