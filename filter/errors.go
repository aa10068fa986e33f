package filter

import "fmt"

// SyntaxError indicates malformed filter text. Offset and Snippet locate
// the problem for protocol-layer diagnostics.
type SyntaxError struct {
	Offset  int
	Snippet string
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("syntax error at offset %d near %q: %s", e.Offset, e.Snippet, e.Message)
	}
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Message)
}

// UnsupportedConstructError indicates well-formed input using an operator
// or function outside the supported set.
type UnsupportedConstructError struct {
	Construct string
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("unsupported construct: %s", e.Construct)
}

// MissingArgumentError indicates a construct lacking a required argument,
// e.g. DWithin without a distance.
type MissingArgumentError struct {
	Construct string
	Argument  string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s: missing required argument %s", e.Construct, e.Argument)
}

// UnknownFieldError indicates a property reference absent from the catalog.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field: %s", e.Field)
}

// QueryTooComplexError indicates the complexity ceiling was exceeded.
type QueryTooComplexError struct {
	Cost    int
	Ceiling int
}

func (e *QueryTooComplexError) Error() string {
	return fmt.Sprintf("query too complex: cost %d exceeds ceiling %d", e.Cost, e.Ceiling)
}

// UnsupportedOnDialectError indicates a predicate or function the active
// backend cannot express correctly.
type UnsupportedOnDialectError struct {
	Dialect   string
	Construct string
	Reason    string
}

func (e *UnsupportedOnDialectError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s not supported on dialect %s: %s", e.Construct, e.Dialect, e.Reason)
	}
	return fmt.Sprintf("%s not supported on dialect %s", e.Construct, e.Dialect)
}

// InvalidCursorError indicates a malformed or stale pagination token.
type InvalidCursorError struct {
	Reason string
}

func (e *InvalidCursorError) Error() string {
	return "invalid cursor: " + e.Reason
}
