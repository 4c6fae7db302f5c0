package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/alexchoi0/blueprint/internal/approval"
)

// interactivePrompter asks the user on stdin/stdout whether a pending
// side-effecting action may proceed. Only cli/cmd code writes straight
// to the terminal; every other package stays free of direct I/O.
type interactivePrompter struct {
	in  *bufio.Reader
	out *os.File
}

func newInteractivePrompter() *interactivePrompter {
	return &interactivePrompter{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

func (p *interactivePrompter) Prompt(action approval.Action) approval.Decision {
	fmt.Fprintf(p.out, "approve action: %s\n[y]es / [n]o / [A]lways / [D]eny always: ", action.String())
	line, _ := p.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return approval.Allow
	case "a", "always":
		return approval.AllowAlways
	case "d", "denyalways":
		return approval.DenyAlways
	default:
		return approval.Deny
	}
}
