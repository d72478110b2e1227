package transform

import "fmt"

// FormatError reports a structurally invalid operation specification: an
// unrecognized operation key, a malformed tag, or bad insertion arguments.
// It is always raised before any data mutation.
type FormatError struct {
	Message string
	Context any
}

func (e *FormatError) Error() string {
	return e.Message
}

func formatErrorf(context any, format string, args ...any) *FormatError {
	return &FormatError{
		Message: fmt.Sprintf(format, args...),
		Context: context,
	}
}

// OperationError reports a well-formed operation given a payload of the
// wrong runtime shape, or a reference to an unregistered procedure. It is
// raised during Process and aborts that call; steps that already completed
// are not rolled back.
type OperationError struct {
	Op      string
	Message string
	Context any
}

func (e *OperationError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

func opErrorf(op string, context any, format string, args ...any) *OperationError {
	return &OperationError{
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Context: context,
	}
}
