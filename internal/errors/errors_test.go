package errors

import (
	"fmt"
	"testing"
)

func TestTaskErrorMessage(t *testing.T) {
	err := New(CategoryPrecondition, SeverityFatal, "release not found")
	want := "precondition (fatal): release not found"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestTaskErrorWrapsCause(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	err := Externalf(cause, "git describe failed")
	if err.Unwrap() != cause {
		t.Error("expected cause to unwrap")
	}
	if GetCategory(err) != CategoryExternal {
		t.Errorf("expected external category, got %s", GetCategory(err))
	}
}

func TestIsCategory(t *testing.T) {
	err := Ambiguousf("more than 1 wheel matched")
	if !IsCategory(err, CategoryAmbiguous) {
		t.Error("expected ambiguous category")
	}
	if IsCategory(err, CategoryNetwork) {
		t.Error("did not expect network category")
	}
	if IsCategory(fmt.Errorf("plain"), CategoryAmbiguous) {
		t.Error("plain errors have no category")
	}
}

func TestIsCategoryWrapped(t *testing.T) {
	inner := Preconditionf("missing file")
	wrapped := fmt.Errorf("load config: %w", inner)
	if !IsCategory(wrapped, CategoryPrecondition) {
		t.Error("expected category to survive wrapping")
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(Preconditionf("bad input")); got != 1 {
		t.Errorf("expected exit code 1, got %d", got)
	}
	if got := ExitCode(Preconditionf("bad input").WithExitCode(2)); got != 2 {
		t.Errorf("expected exit code 2, got %d", got)
	}
	if got := ExitCode(fmt.Errorf("plain")); got != 1 {
		t.Errorf("plain errors map to 1, got %d", got)
	}
}

func TestWithContext(t *testing.T) {
	err := New(CategoryNetwork, SeverityFatal, "API error").
		WithContext("url", "https://example.invalid").
		WithContext("status", 502)
	if err.Context["url"] != "https://example.invalid" {
		t.Error("expected url context field")
	}
	if err.Context["status"] != 502 {
		t.Error("expected status context field")
	}
}
