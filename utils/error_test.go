package utils

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrKind
	}{
		{
			name: "validation constructor",
			err:  NewValidationError("target value must be greater than zero"),
			want: ErrKindValidation,
		},
		{
			name: "not found constructor",
			err:  NewNotFoundError("goalTemplate not found"),
			want: ErrKindNotFound,
		},
		{
			name: "access denied constructor",
			err:  NewAccessDeniedError("cannot import records for another clinic"),
			want: ErrKindAccessDenied,
		},
		{
			name: "wrapped internal keeps its kind",
			err:  WrapInternalError("publish outbox event", errors.New("connection reset")),
			want: ErrKindInternal,
		},
		{
			name: "tagged error survives wrapping",
			err:  fmt.Errorf("creating goal: %w", NewNotFoundError("metricDefinition not found")),
			want: ErrKindNotFound,
		},
		{
			name: "sentinel record not found",
			err:  ErrorRecordNotFound,
			want: ErrKindNotFound,
		},
		{
			name: "gorm record not found",
			err:  gorm.ErrRecordNotFound,
			want: ErrKindNotFound,
		},
		{
			name: "wrapped gorm record not found",
			err:  fmt.Errorf("loading sync message: %w", gorm.ErrRecordNotFound),
			want: ErrKindNotFound,
		},
		{
			name: "untagged error is internal",
			err:  errors.New("dial tcp: connection refused"),
			want: ErrKindInternal,
		},
		{
			name: "nil is internal",
			err:  nil,
			want: ErrKindInternal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestTaggedError_MessageIncludesCause(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := WrapInternalError("stamping data source", cause)

	if err.Error() != "stamping data source: deadline exceeded" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause should be reachable through errors.Is")
	}
}
