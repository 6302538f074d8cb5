package utils

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrorRecordNotFound = errors.New("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// ErrKind classifies failures crossing the model/handler boundary so handlers
// map them to HTTP statuses by kind instead of matching message substrings.
type ErrKind int

const (
	ErrKindInternal ErrKind = iota
	ErrKindValidation
	ErrKindNotFound
	ErrKindAccessDenied
)

type TaggedError struct {
	Kind ErrKind
	Msg  string
	Err  error
}

func (e *TaggedError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *TaggedError) Unwrap() error {
	return e.Err
}

func NewValidationError(format string, args ...any) error {
	return &TaggedError{Kind: ErrKindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) error {
	return &TaggedError{Kind: ErrKindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func NewAccessDeniedError(format string, args ...any) error {
	return &TaggedError{Kind: ErrKindAccessDenied, Msg: fmt.Sprintf(format, args...)}
}

func WrapInternalError(msg string, err error) error {
	return &TaggedError{Kind: ErrKindInternal, Msg: msg, Err: err}
}

// KindOf walks the error chain and returns the attached kind.
// ErrorRecordNotFound and gorm's not-found map to ErrKindNotFound;
// anything untagged is ErrKindInternal so unknown failures keep surfacing.
func KindOf(err error) ErrKind {
	if err == nil {
		return ErrKindInternal
	}
	var tagged *TaggedError
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrKindNotFound
	}
	return ErrKindInternal
}
