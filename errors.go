package deltaskip

import "fmt"

// ErrorKind categorizes the ways Apply can fail. Construction-time
// degradation to "no filter" is never represented by a SkipError — only
// failures discovered while evaluating a batch are.
type ErrorKind string

const (
	// KindSchemaMismatch means a collaborator (ExpressionEvaluator,
	// JsonHandler) was bound to, or returned, a schema the filter did not
	// expect.
	KindSchemaMismatch ErrorKind = "schema_mismatch"
	// KindLengthInvariant means an evaluation stage returned a column or
	// batch whose row count didn't match the batch it was derived from.
	KindLengthInvariant ErrorKind = "length_invariant"
	// KindVisitorFailure means the final boolean column could not be
	// materialized into a selection vector.
	KindVisitorFailure ErrorKind = "visitor_failure"
)

// SkipError is the error type returned by DataSkippingFilter.Apply.
type SkipError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *SkipError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("deltaskip: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("deltaskip: %s: %s", e.Kind, e.Message)
}

func (e *SkipError) Unwrap() error { return e.Cause }

func newSchemaMismatchError(message string, cause error) *SkipError {
	return &SkipError{Kind: KindSchemaMismatch, Message: message, Cause: cause}
}

func newLengthInvariantError(stage string, want, got int) *SkipError {
	return &SkipError{
		Kind:    KindLengthInvariant,
		Message: fmt.Sprintf("%s returned %d rows, expected %d", stage, got, want),
	}
}

func newVisitorFailureError(message string, cause error) *SkipError {
	return &SkipError{Kind: KindVisitorFailure, Message: message, Cause: cause}
}
