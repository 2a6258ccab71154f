package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: New(CodeValidation, "missing"), want: CodeValidation},
		{name: "wrapped not found", err: fmt.Errorf("load: %w", New(CodeNotFound, "gone")), want: CodeNotFound},
		{name: "plain error", err: errors.New("connection refused"), want: CodePersistence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Fatalf("GetCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New(`relation "qc_checks" does not exist`)
	err := Wrap(CodePersistence, "database operation failed", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to match cause")
	}
	if err.Error() != `database operation failed: relation "qc_checks" does not exist` {
		t.Fatalf("unexpected error text: %s", err.Error())
	}
	if CauseOf(err) != cause.Error() {
		t.Fatalf("expected cause %q, got %q", cause.Error(), CauseOf(err))
	}
}

func TestCauseOfWithoutUnderlyingError(t *testing.T) {
	err := New(CodeNotFound, "QC Check not found")
	if CauseOf(err) != "QC Check not found" {
		t.Fatalf("unexpected cause: %s", CauseOf(err))
	}
	if CauseOf(errors.New("boom")) != "boom" {
		t.Fatalf("expected plain error text")
	}
}
