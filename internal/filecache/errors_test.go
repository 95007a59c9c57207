package filecache

import (
	"errors"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := newError("blobs/foo", 10, "something failed", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}

	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := newError("blobs/foo", 10, "something failed", nil)
	if err.Unwrap() != nil {
		t.Fatal("expected nil Unwrap when no cause is set")
	}
}
