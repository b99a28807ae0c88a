package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrMalformedInput indicates the trigger body could not be decoded.
	ErrMalformedInput = errors.New("malformed input")

	// ErrMissingPrompt indicates the prompt is absent or blank.
	ErrMissingPrompt = errors.New("missing prompt")

	// ErrGeneration indicates the model call or its response failed.
	ErrGeneration = errors.New("generation error")

	// ErrPublish indicates the storage write or presign failed.
	ErrPublish = errors.New("publish error")
)

// Error is a classified pipeline error.
// Message is the short caller-facing summary; Err keeps the full cause.
type Error struct {
	// Kind is the sentinel error for classification.
	Kind error
	// Op is the operation that failed (e.g. "normalize", "invoke", "put").
	Op string
	// Message is a short human-readable summary.
	Message string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewError creates a classified pipeline error.
func NewError(kind error, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// MalformedInput returns an ErrMalformedInput error.
func MalformedInput(message string, err error) *Error {
	return NewError(ErrMalformedInput, "normalize", message, err)
}

// MissingPrompt returns an ErrMissingPrompt error.
func MissingPrompt() *Error {
	return NewError(ErrMissingPrompt, "validate", "Prompt is required", nil)
}

// GenerationError returns an ErrGeneration error.
func GenerationError(op, message string, err error) *Error {
	return NewError(ErrGeneration, op, message, err)
}

// PublishError returns an ErrPublish error.
func PublishError(op, message string, err error) *Error {
	return NewError(ErrPublish, op, message, err)
}

// KindOf maps an error onto its failure kind.
// Errors outside the taxonomy map to FailureInternal.
func KindOf(err error) FailureKind {
	switch {
	case errors.Is(err, ErrMalformedInput):
		return FailureMalformedInput
	case errors.Is(err, ErrMissingPrompt):
		return FailureMissingPrompt
	case errors.Is(err, ErrGeneration):
		return FailureGeneration
	case errors.Is(err, ErrPublish):
		return FailurePublish
	default:
		return FailureInternal
	}
}

// MessageOf returns the caller-facing summary for err.
func MessageOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
