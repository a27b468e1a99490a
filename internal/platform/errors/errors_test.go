package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeNotFound, "form 0x1 not found")
	if !stderrors.Is(err, &Error{Code: CodeNotFound}) {
		t.Fatal("expected errors.Is to match by code")
	}
	if stderrors.Is(err, &Error{Code: CodeNetworkError}) {
		t.Fatal("expected different code not to match")
	}
}

func TestWrapExposesCause(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := Wrap(CodeNetworkError, "get object", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Error() != "get object" {
		t.Fatalf("message = %q, want %q", err.Error(), "get object")
	}
}

func TestErrorFallsBackToCauseMessage(t *testing.T) {
	err := Wrap(CodeUnknown, "", stderrors.New("boom"))
	if err.Error() != "boom" {
		t.Fatalf("message = %q, want %q", err.Error(), "boom")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: stderrors.New("x"), want: CodeUnknown},
		{name: "direct", err: New(CodeDecodeError, "x"), want: CodeDecodeError},
		{name: "wrapped", err: fmt.Errorf("outer: %w", New(CodeValidationFailed, "x")), want: CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Fatalf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasCodeAndMetadata(t *testing.T) {
	err := fmt.Errorf("vote: %w", WithMetadata(CodeTransactionFailed, "aborted", map[string]string{"abort_code": "6"}))
	if !HasCode(err, CodeTransactionFailed) {
		t.Fatal("expected transaction failed code")
	}
	if got := MetadataOf(err)["abort_code"]; got != "6" {
		t.Fatalf("abort_code = %q, want %q", got, "6")
	}
	if MetadataOf(stderrors.New("x")) != nil {
		t.Fatal("expected nil metadata for plain error")
	}
}

func TestRetryable(t *testing.T) {
	if !CodeNetworkError.Retryable() {
		t.Fatal("expected network errors to be retryable")
	}
	if CodeValidationFailed.Retryable() {
		t.Fatal("expected validation failures not to be retryable")
	}
}
