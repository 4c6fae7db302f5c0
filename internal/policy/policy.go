// Package policy implements a TOML-configured approval policy:
// per-category allow/deny pattern lists evaluated deny-first, then
// allow-second, falling through to approval.PolicyNoMatch when neither
// list matches.
package policy

import (
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	"github.com/alexchoi0/blueprint/internal/approval"
)

// FilesystemPolicy governs ReadFile/WriteFile/AppendFile/DeleteFile/
// CreateDir/DeleteDir/CopyFile/MoveFile/ListDir/WatchFiles actions.
type FilesystemPolicy struct {
	AllowRead  []string `toml:"allow_read"`
	DenyRead   []string `toml:"deny_read"`
	AllowWrite []string `toml:"allow_write"`
	DenyWrite  []string `toml:"deny_write"`
}

// NetworkPolicy governs Http/Tcp/Udp/Unix/WebhookServe actions. Tcp, Udp,
// and Unix each get their own allow/deny pair rather than sharing one, so
// a policy can open a Unix socket path pattern without also opening every
// TCP/UDP address matching the same glob. Allow/Deny entries for
// addresses are "host:port" glob patterns (Unix entries are plain path
// globs); Allow/Deny entries for HTTP are URL glob patterns.
type NetworkPolicy struct {
	AllowHTTP []string `toml:"allow_http"`
	DenyHTTP  []string `toml:"deny_http"`
	AllowTcp  []string `toml:"allow_tcp"`
	DenyTcp   []string `toml:"deny_tcp"`
	AllowUdp  []string `toml:"allow_udp"`
	DenyUdp   []string `toml:"deny_udp"`
	AllowUnix []string `toml:"allow_unix"`
	DenyUnix  []string `toml:"deny_unix"`
}

// ExecPolicy governs Exec actions, matched against the command's basename
// (not its full path, so "allow_commands = [\"git\"]" matches "/usr/bin/git").
type ExecPolicy struct {
	AllowCommands []string `toml:"allow_commands"`
	DenyCommands  []string `toml:"deny_commands"`
}

// EnvPolicy governs EnvGet actions, matched against the variable name.
type EnvPolicy struct {
	AllowVars []string `toml:"allow_vars"`
	DenyVars  []string `toml:"deny_vars"`
}

// Policy is the parsed form of a policy.toml file.
type Policy struct {
	Filesystem FilesystemPolicy `toml:"filesystem"`
	Network    NetworkPolicy    `toml:"network"`
	Exec       ExecPolicy       `toml:"exec"`
	Env        EnvPolicy        `toml:"env"`

	globCache map[string]glob.Glob
}

// Load parses a policy.toml file at path.
func Load(path string) (*Policy, error) {
	var p Policy
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return nil, err
	}
	p.globCache = make(map[string]glob.Glob)
	return &p, nil
}

func (p *Policy) compile(pattern string) glob.Glob {
	if p.globCache == nil {
		p.globCache = make(map[string]glob.Glob)
	}
	if g, ok := p.globCache[pattern]; ok {
		return g
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		// An unparsable pattern never matches rather than aborting the run.
		g = nil
	}
	p.globCache[pattern] = g
	return g
}

func (p *Policy) matches(pattern, subject string) bool {
	g := p.compile(pattern)
	return g != nil && g.Match(subject)
}

// checkPatterns applies the deny-first, allow-second, NoMatch-otherwise
// evaluation order shared by every filesystem/exec/env policy section.
func (p *Policy) checkPatterns(deny, allow []string, subject string) approval.PolicyDecision {
	for _, pat := range deny {
		if p.matches(pat, subject) {
			return approval.PolicyDeny
		}
	}
	for _, pat := range allow {
		if p.matches(pat, subject) {
			return approval.PolicyAllow
		}
	}
	return approval.PolicyNoMatch
}

func (p *Policy) checkAddressPatterns(deny, allow []string, host string, port uint16) approval.PolicyDecision {
	subject := addrString(host, port)
	for _, pat := range deny {
		if p.matchesAddressPattern(pat, host, port, subject) {
			return approval.PolicyDeny
		}
	}
	for _, pat := range allow {
		if p.matchesAddressPattern(pat, host, port, subject) {
			return approval.PolicyAllow
		}
	}
	return approval.PolicyNoMatch
}

// matchesAddressPattern matches a "host:port" pattern where either field
// may be a glob (most commonly "*" for "any port" or "any host").
func (p *Policy) matchesAddressPattern(pattern, host string, port uint16, fullSubject string) bool {
	idx := strings.LastIndexByte(pattern, ':')
	if idx < 0 {
		return p.matches(pattern, fullSubject)
	}
	hostPat, portPat := pattern[:idx], pattern[idx+1:]
	if !p.matches(hostPat, host) {
		return false
	}
	if portPat == "*" || portPat == "" {
		return true
	}
	wantPort, err := strconv.ParseUint(portPat, 10, 16)
	if err != nil {
		return p.matches(portPat, strconv.Itoa(int(port)))
	}
	return uint16(wantPort) == port
}

func (p *Policy) checkCommand(deny, allow []string, command string) approval.PolicyDecision {
	base := command
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '\\'); idx >= 0 {
		base = base[idx+1:]
	}
	for _, pat := range deny {
		if p.matches(pat, command) || p.matches(pat, base) {
			return approval.PolicyDeny
		}
	}
	for _, pat := range allow {
		if p.matches(pat, command) || p.matches(pat, base) {
			return approval.PolicyAllow
		}
	}
	return approval.PolicyNoMatch
}

func addrString(host string, port uint16) string {
	return host + ":" + strconv.Itoa(int(port))
}

// Check implements approval.PolicyChecker.
func (p *Policy) Check(action approval.Action) approval.PolicyDecision {
	switch action.Kind {
	case approval.ReadFile, approval.ListDir:
		return p.checkPatterns(p.Filesystem.DenyRead, p.Filesystem.AllowRead, action.Path)

	case approval.WatchFiles:
		// Watching has no natural "allow" default: a NoMatch allow list
		// entry would silently let a script watch arbitrary paths, so only
		// deny (explicit) or NoMatch (fall through to the interactive
		// gate) are possible outcomes here, never a bare allow-list match.
		for _, pat := range action.Patterns {
			if d := p.checkPatterns(p.Filesystem.DenyRead, nil, pat); d == approval.PolicyDeny {
				return approval.PolicyDeny
			}
		}
		return approval.PolicyNoMatch

	case approval.WriteFile, approval.AppendFile, approval.DeleteFile,
		approval.CreateDir, approval.DeleteDir:
		return p.checkPatterns(p.Filesystem.DenyWrite, p.Filesystem.AllowWrite, action.Path)

	case approval.CopyFile, approval.MoveFile:
		// Both sides must independently clear the relevant policy: the
		// source needs read clearance, the destination needs write
		// clearance. A deny on either side denies the whole action; both
		// sides must reach PolicyAllow for the action to be allowed.
		srcDecision := p.checkPatterns(p.Filesystem.DenyRead, p.Filesystem.AllowRead, action.Src)
		if srcDecision == approval.PolicyDeny {
			return approval.PolicyDeny
		}
		dstDecision := p.checkPatterns(p.Filesystem.DenyWrite, p.Filesystem.AllowWrite, action.Dst)
		if dstDecision == approval.PolicyDeny {
			return approval.PolicyDeny
		}
		if srcDecision == approval.PolicyAllow && dstDecision == approval.PolicyAllow {
			return approval.PolicyAllow
		}
		return approval.PolicyNoMatch

	case approval.HttpRequest:
		return p.checkPatterns(p.Network.DenyHTTP, p.Network.AllowHTTP, action.URL)

	case approval.TcpConnect, approval.TcpListen:
		return p.checkAddressPatterns(p.Network.DenyTcp, p.Network.AllowTcp, action.Host, action.Port)

	case approval.UdpBind, approval.UdpSendTo:
		return p.checkAddressPatterns(p.Network.DenyUdp, p.Network.AllowUdp, action.Host, action.Port)

	case approval.WebhookServe:
		// Serving a webhook is a TCP listen under the hood: it shares the
		// Tcp address policy rather than getting its own section.
		return p.checkAddressPatterns(p.Network.DenyTcp, p.Network.AllowTcp, action.Host, action.Port)

	case approval.UnixConnect, approval.UnixListen:
		return p.checkPatterns(p.Network.DenyUnix, p.Network.AllowUnix, action.Path)

	case approval.Exec_:
		return p.checkCommand(p.Exec.DenyCommands, p.Exec.AllowCommands, action.Command)

	case approval.EnvGet:
		return p.checkPatterns(p.Env.DenyVars, p.Env.AllowVars, action.Name)

	default:
		return approval.PolicyNoMatch
	}
}
