package policy

import (
	"testing"

	"github.com/alexchoi0/blueprint/internal/approval"
)

func TestCheckFilesystemReadDenyWinsOverAllow(t *testing.T) {
	p := &Policy{Filesystem: FilesystemPolicy{
		AllowRead: []string{"/home/**"},
		DenyRead:  []string{"/home/secret/**"},
	}}

	got := p.Check(approval.Action{Kind: approval.ReadFile, Path: "/home/secret/key.pem"})
	if got != approval.PolicyDeny {
		t.Errorf("Check() = %v, want PolicyDeny", got)
	}

	got = p.Check(approval.Action{Kind: approval.ReadFile, Path: "/home/user/doc.txt"})
	if got != approval.PolicyAllow {
		t.Errorf("Check() = %v, want PolicyAllow", got)
	}

	got = p.Check(approval.Action{Kind: approval.ReadFile, Path: "/etc/passwd"})
	if got != approval.PolicyNoMatch {
		t.Errorf("Check() = %v, want PolicyNoMatch", got)
	}
}

func TestCheckCopyFileRequiresBothSidesAllowed(t *testing.T) {
	p := &Policy{Filesystem: FilesystemPolicy{
		AllowRead:  []string{"/src/**"},
		AllowWrite: []string{"/dst/**"},
	}}

	got := p.Check(approval.Action{Kind: approval.CopyFile, Src: "/src/a.txt", Dst: "/dst/a.txt"})
	if got != approval.PolicyAllow {
		t.Errorf("Check() = %v, want PolicyAllow when both sides are allow-listed", got)
	}

	got = p.Check(approval.Action{Kind: approval.CopyFile, Src: "/other/a.txt", Dst: "/dst/a.txt"})
	if got != approval.PolicyNoMatch {
		t.Errorf("Check() = %v, want PolicyNoMatch when only one side is allow-listed", got)
	}
}

func TestCheckCopyFileDenyEitherSideDenies(t *testing.T) {
	p := &Policy{Filesystem: FilesystemPolicy{
		AllowRead:  []string{"/src/**"},
		AllowWrite: []string{"/dst/**"},
		DenyWrite:  []string{"/dst/forbidden/**"},
	}}

	got := p.Check(approval.Action{Kind: approval.CopyFile, Src: "/src/a.txt", Dst: "/dst/forbidden/a.txt"})
	if got != approval.PolicyDeny {
		t.Errorf("Check() = %v, want PolicyDeny", got)
	}
}

func TestCheckExecMatchesBasename(t *testing.T) {
	p := &Policy{Exec: ExecPolicy{AllowCommands: []string{"git"}}}

	got := p.Check(approval.Action{Kind: approval.Exec_, Command: "/usr/bin/git"})
	if got != approval.PolicyAllow {
		t.Errorf("Check() = %v, want PolicyAllow for /usr/bin/git matching allow_commands=[git]", got)
	}
}

func TestCheckTcpAddressGlob(t *testing.T) {
	p := &Policy{Network: NetworkPolicy{AllowTcp: []string{"api.internal:*"}}}

	got := p.Check(approval.Action{Kind: approval.TcpConnect, Host: "api.internal", Port: 443})
	if got != approval.PolicyAllow {
		t.Errorf("Check() = %v, want PolicyAllow for api.internal:443 matching api.internal:*", got)
	}

	got = p.Check(approval.Action{Kind: approval.TcpConnect, Host: "evil.example", Port: 443})
	if got != approval.PolicyNoMatch {
		t.Errorf("Check() = %v, want PolicyNoMatch for a non-matching host", got)
	}
}

func TestCheckTcpAndUdpAddressesAreIndependent(t *testing.T) {
	p := &Policy{Network: NetworkPolicy{AllowTcp: []string{"api.internal:443"}}}

	got := p.Check(approval.Action{Kind: approval.UdpBind, Host: "api.internal", Port: 443})
	if got != approval.PolicyNoMatch {
		t.Errorf("Check() = %v, want PolicyNoMatch: a Tcp allow entry must not open the matching Udp address", got)
	}
}

func TestCheckUnixSocketUsesNetworkUnixSection(t *testing.T) {
	p := &Policy{
		Filesystem: FilesystemPolicy{AllowRead: []string{"/var/run/**"}},
		Network:    NetworkPolicy{AllowUnix: []string{"/tmp/app.sock"}},
	}

	got := p.Check(approval.Action{Kind: approval.UnixConnect, Path: "/tmp/app.sock"})
	if got != approval.PolicyAllow {
		t.Errorf("Check() = %v, want PolicyAllow for a path matching Network.AllowUnix", got)
	}

	got = p.Check(approval.Action{Kind: approval.UnixListen, Path: "/var/run/other.sock"})
	if got != approval.PolicyNoMatch {
		t.Errorf("Check() = %v, want PolicyNoMatch: Filesystem.AllowRead must not grant Unix socket access", got)
	}
}

func TestCheckEnvGetByName(t *testing.T) {
	p := &Policy{Env: EnvPolicy{DenyVars: []string{"AWS_SECRET*"}}}

	got := p.Check(approval.Action{Kind: approval.EnvGet, Name: "AWS_SECRET_ACCESS_KEY"})
	if got != approval.PolicyDeny {
		t.Errorf("Check() = %v, want PolicyDeny", got)
	}
}

func TestCheckWatchFilesNeverAllowsOnlyDeniesOrNoMatch(t *testing.T) {
	p := &Policy{Filesystem: FilesystemPolicy{AllowRead: []string{"**"}, DenyRead: []string{"/etc/**"}}}

	got := p.Check(approval.Action{Kind: approval.WatchFiles, Patterns: []string{"/etc/shadow"}})
	if got != approval.PolicyDeny {
		t.Errorf("Check() = %v, want PolicyDeny for a denied watch pattern", got)
	}

	got = p.Check(approval.Action{Kind: approval.WatchFiles, Patterns: []string{"/home/user/*.go"}})
	if got != approval.PolicyNoMatch {
		t.Errorf("Check() = %v, want PolicyNoMatch (watch never resolves to a bare allow)", got)
	}
}
