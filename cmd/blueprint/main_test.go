package main

import (
	"errors"
	"testing"
)

func TestFailWrapsCodeAndMessage(t *testing.T) {
	err := fail(ExitCompileError, "bad op %d", 7)
	ec, ok := err.(*exitCode)
	if !ok {
		t.Fatalf("fail() returned %T, want *exitCode", err)
	}
	if ec.code != ExitCompileError {
		t.Errorf("code = %d, want %d", ec.code, ExitCompileError)
	}
	if ec.Error() != "bad op 7" {
		t.Errorf("Error() = %q, want %q", ec.Error(), "bad op 7")
	}
}

func TestExitCodeForExitCodeError(t *testing.T) {
	err := fail(ExitIOError, "could not open file")
	if got := exitCodeFor(err); got != ExitIOError {
		t.Errorf("exitCodeFor() = %d, want %d", got, ExitIOError)
	}
}

func TestExitCodeForPlainErrorDefaultsToUsageError(t *testing.T) {
	if got := exitCodeFor(errors.New("boom")); got != ExitUsageError {
		t.Errorf("exitCodeFor() = %d, want %d", got, ExitUsageError)
	}
}

func TestExitCodeUnwrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("root cause")
	err := &exitCode{code: ExitExecutionError, err: underlying}
	if !errors.Is(err, underlying) {
		t.Errorf("errors.Is(exitCode, underlying) = false, want true")
	}
}

func TestNewRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"compile", "validate", "run", "export"} {
		if !names[want] {
			t.Errorf("newRootCommand() is missing the %q subcommand; got %v", want, names)
		}
	}
}
