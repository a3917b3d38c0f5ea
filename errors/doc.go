// Package errors provides structured error types for the jsld link editor.
//
// Errors are categorized by Phase (where in the link the error occurred)
// and Kind (error category). Every link failure is fatal; nothing is
// retried. The driver formats a single categorised failure for the user.
//
// Construct errors with the convenience constructors:
//
//	err := errors.DuplicateSymbol("memcpy", "foo_symbols.js")
//	err := errors.UnboundVariables([]string{"window"})
//
// All errors implement the standard error interface and support
// errors.Is/As via Unwrap.
package errors
