package execrun

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunMissingProgram(t *testing.T) {
	r := New(nil)
	_, _, err := r.Run(context.Background(), "docprep-definitely-missing-binary", "--version")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Name != "docprep-definitely-missing-binary" {
		t.Fatalf("expected CommandError, got %T", err)
	}
}

func TestCommandErrorIncludesStderr(t *testing.T) {
	err := &CommandError{Name: "gs", Err: errors.New("exit status 1"), Stderr: "Unrecoverable error"}
	if !strings.Contains(err.Error(), "Unrecoverable error") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc...(truncated)" {
		t.Fatalf("unexpected truncate result %q", got)
	}
	if got := truncate("abc", 3); got != "abc" {
		t.Fatalf("unexpected truncate result %q", got)
	}
}
