package approval

import (
	"sync"
)

// Prompter asks a human whether an action may proceed. The CLI's
// interactive implementation lives outside this package, in
// cmd/blueprint; tests and non-interactive runs use a stub that always
// denies or always allows.
type Prompter interface {
	Prompt(action Action) Decision
}

// PolicyChecker is the subset of policy.Policy the gate needs, kept as an
// interface so this package doesn't import policy directly; policy.Policy
// implements this by returning one of the PolicyDecision values below.
type PolicyChecker interface {
	Check(action Action) PolicyDecision
}

// PolicyDecision is the three-way outcome of a policy check: deny wins,
// then allow, otherwise NoMatch falls through to the interactive gate.
type PolicyDecision int

const (
	PolicyAllow PolicyDecision = iota
	PolicyDeny
	PolicyNoMatch
)

// Gate is the approval gate consulted before executing a side-effecting
// op: policy decides first, and only a PolicyNoMatch falls through to the
// interactive prompt (or to AutoApprove in non-interactive CI runs).
type Gate struct {
	Policy       PolicyChecker
	Prompter     Prompter
	AutoApprove  bool
	NonInteractive bool

	mu        sync.Mutex
	remembered map[string]Decision
}

// NewGate constructs a Gate. Policy and Prompter may be nil; a nil Policy
// always falls through to NoMatch, a nil Prompter denies every action that
// reaches it, whether or not NonInteractive is set.
func NewGate(policy PolicyChecker, prompter Prompter) *Gate {
	return &Gate{Policy: policy, Prompter: prompter, remembered: make(map[string]Decision)}
}

// Check runs the approval protocol for a single action: policy
// deny/allow wins outright; NoMatch falls through to any remembered
// AllowAlways/DenyAlways decision, then to AutoApprove, then to the
// interactive prompter, denying by default when none is configured.
func (g *Gate) Check(action Action) Decision {
	if g.Policy != nil {
		switch g.Policy.Check(action) {
		case PolicyAllow:
			return Allow
		case PolicyDeny:
			return Deny
		}
	}

	key := action.String()
	g.mu.Lock()
	if d, ok := g.remembered[key]; ok {
		g.mu.Unlock()
		return d
	}
	g.mu.Unlock()

	if g.AutoApprove {
		return Allow
	}

	if g.Prompter == nil {
		return Deny
	}

	decision := g.Prompter.Prompt(action)
	if decision == AllowAlways || decision == DenyAlways {
		g.mu.Lock()
		g.remembered[key] = decision
		g.mu.Unlock()
	}
	return decision
}
