// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableErrorMessage(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewErrorContext().
		WithOperation("load skill document").
		WithResource("/skills/SKILL.md").
		Wrap(cause).
		BuildError()

	want := "failed to load skill document: /skills/SKILL.md: permission denied"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestActionableErrorWithoutResource(t *testing.T) {
	err := NewErrorContext().
		WithOperation("decode configuration").
		BuildError()

	if err.Error() != "failed to decode configuration" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestFormatSuggestions(t *testing.T) {
	ae := NewErrorContext().
		WithOperation("flatten file layout").
		WithSuggestion("Rename the listed source files").
		WithSuggestion("Or keep the preserved layout").
		Build()

	out := ae.Format(false)
	if !strings.Contains(out, "• Rename the listed source files") {
		t.Errorf("formatted output is missing the first suggestion:\n%s", out)
	}
	if !strings.Contains(out, "• Or keep the preserved layout") {
		t.Errorf("formatted output is missing the second suggestion:\n%s", out)
	}
	if strings.Contains(out, "Error chain") {
		t.Error("non-verbose output should not include the error chain")
	}
}

func TestFormatVerboseChain(t *testing.T) {
	inner := errors.New("no such file")
	ae := NewErrorContext().
		WithOperation("load skill document").
		Wrap(fmt.Errorf("failed to read header: %w", inner)).
		Build()

	out := ae.Format(true)
	if !strings.Contains(out, "Error chain:") {
		t.Fatalf("verbose output should include the error chain:\n%s", out)
	}
	if !strings.Contains(out, "1. failed to read header: no such file") {
		t.Errorf("chain should start at the direct cause:\n%s", out)
	}
	if !strings.Contains(out, "2. no such file") {
		t.Errorf("chain should unwrap to the root cause:\n%s", out)
	}
}

func TestBuildRequiresOperation(t *testing.T) {
	if ae := NewErrorContext().WithResource("somewhere").Build(); ae != nil {
		t.Errorf("Build without an operation should return nil, got %v", ae)
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError without an operation should return a nil error, got %v", err)
	}
}
