package approval

import (
	"os"
	"testing"
)

type fakePolicy struct{ decision PolicyDecision }

func (f fakePolicy) Check(Action) PolicyDecision { return f.decision }

type fakePrompter struct{ decision Decision }

func (f fakePrompter) Prompt(Action) Decision { return f.decision }

func TestGatePolicyDecidesFirst(t *testing.T) {
	g := NewGate(fakePolicy{decision: PolicyAllow}, fakePrompter{decision: Deny})
	if got := g.Check(Action{Kind: ReadFile, Path: "/x"}); got != Allow {
		t.Errorf("Check() = %v, want Allow (policy wins over prompter)", got)
	}

	g = NewGate(fakePolicy{decision: PolicyDeny}, fakePrompter{decision: AllowAlways})
	if got := g.Check(Action{Kind: ReadFile, Path: "/x"}); got != Deny {
		t.Errorf("Check() = %v, want Deny (policy wins over prompter)", got)
	}
}

func TestGateNoMatchFallsThroughToPrompter(t *testing.T) {
	g := NewGate(fakePolicy{decision: PolicyNoMatch}, fakePrompter{decision: Allow})
	if got := g.Check(Action{Kind: ReadFile, Path: "/x"}); got != Allow {
		t.Errorf("Check() = %v, want Allow from the prompter", got)
	}
}

func TestGateAutoApproveSkipsPrompter(t *testing.T) {
	g := NewGate(nil, fakePrompter{decision: Deny})
	g.AutoApprove = true
	if got := g.Check(Action{Kind: ReadFile, Path: "/x"}); got != Allow {
		t.Errorf("Check() = %v, want Allow under AutoApprove", got)
	}
}

func TestGateNilPrompterDeniesByDefault(t *testing.T) {
	g := NewGate(nil, nil)
	if got := g.Check(Action{Kind: ReadFile, Path: "/x"}); got != Deny {
		t.Errorf("Check() = %v, want Deny with no policy or prompter", got)
	}
}

func TestGateRemembersAllowAlwaysForSameAction(t *testing.T) {
	prompts := 0
	prompter := promptCounter{decision: AllowAlways, calls: &prompts}
	g := NewGate(nil, prompter)

	action := Action{Kind: ReadFile, Path: "/x"}
	if got := g.Check(action); got != AllowAlways {
		t.Fatalf("first Check() = %v, want AllowAlways", got)
	}
	if got := g.Check(action); got != AllowAlways {
		t.Fatalf("second Check() = %v, want AllowAlways (remembered)", got)
	}
	if prompts != 1 {
		t.Errorf("prompter invoked %d times, want exactly 1 (second call should use the remembered decision)", prompts)
	}
}

type promptCounter struct {
	decision Decision
	calls    *int
}

func (p promptCounter) Prompt(Action) Decision {
	*p.calls++
	return p.decision
}

func TestAnalyzeScriptExtractsActions(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/script.txt"
	content := "x = __bp_read_file(\"input.txt\")\n__bp_exec(\"git status\")\n__bp_tcp_connect(\"example.com\", 443)\n# a comment\nnot a call\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	actions, err := AnalyzeScript(path)
	if err != nil {
		t.Fatalf("AnalyzeScript: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("AnalyzeScript() = %v (%d actions), want 3", actions, len(actions))
	}
	if actions[0].Kind != ReadFile || actions[0].Path != "input.txt" {
		t.Errorf("actions[0] = %+v, want ReadFile input.txt", actions[0])
	}
	if actions[1].Kind != Exec_ || actions[1].Command != "git status" {
		t.Errorf("actions[1] = %+v, want Exec_ 'git status'", actions[1])
	}
	if actions[2].Kind != TcpConnect || actions[2].Host != "example.com" || actions[2].Port != 443 {
		t.Errorf("actions[2] = %+v, want TcpConnect example.com:443", actions[2])
	}
}
