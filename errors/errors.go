package errors

import (
	"strings"
)

// Phase indicates where in the link the error occurred
type Phase string

const (
	PhaseParse    Phase = "parse"    // JS fragment parsing
	PhaseRead     Phase = "read"     // wasm binary reading
	PhaseResolve  Phase = "resolve"  // symbol/requirement resolution
	PhaseGenerate Phase = "generate" // module generation
	PhaseVerify   Phase = "verify"   // post-generation scope check
	PhaseIO       Phase = "io"       // file input/output
)

// Kind categorizes the error
type Kind string

const (
	KindUnboundVariable  Kind = "unbound_variable"
	KindUnresolvedSymbol Kind = "unresolved_symbol"
	KindDuplicateSymbol  Kind = "duplicate_symbol"
	KindWasmShape        Kind = "wasm_shape"
	KindUnsupported      Kind = "unsupported"
	KindInvalidInput     Kind = "invalid_input"
	KindIO               Kind = "io"
)

// Error is the structured error type used throughout the linker
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Name   string // symbol, requirement, or variable name, when applicable
	File   string // input file the error was detected in, when applicable
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.File != "" {
		b.WriteString(" in ")
		b.WriteString(e.File)
	}

	if e.Name != "" {
		b.WriteString(": ")
		b.WriteString(e.Name)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a structured error with the given phase and kind.
func New(phase Phase, kind Kind) *Error {
	return &Error{Phase: phase, Kind: kind}
}

// UnboundVariables reports free identifiers that are not in the externs
// allowlist. The offending names are listed one per line.
func UnboundVariables(names []string) *Error {
	var b strings.Builder
	b.WriteString("module contains unbound variables:")
	for _, n := range names {
		b.WriteString("\n  ")
		b.WriteString(n)
	}
	return &Error{
		Phase:  PhaseVerify,
		Kind:   KindUnboundVariable,
		Detail: b.String(),
	}
}

// UnresolvedSymbols reports symbols that are imported but never defined.
func UnresolvedSymbols(names []string) *Error {
	var b strings.Builder
	b.WriteString("undefined symbols:")
	for _, n := range names {
		b.WriteString("\n  ")
		b.WriteString(n)
	}
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnresolvedSymbol,
		Detail: b.String(),
	}
}

// DuplicateSymbol reports a second definition of an already-defined symbol.
func DuplicateSymbol(name, where string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindDuplicateSymbol,
		Name:   name,
		Detail: "already defined by " + where,
	}
}

// WasmShape reports a wasm binary whose structure cannot be linked.
func WasmShape(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseRead,
		Kind:   KindWasmShape,
		Detail: detail,
		Cause:  cause,
	}
}

// Unsupported reports an input construct the linker has no emission for.
func Unsupported(file, construct string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindUnsupported,
		File:   file,
		Detail: construct,
	}
}

// Invalid reports malformed link inputs (flags, memory limits, specifiers).
func Invalid(detail string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Parse reports a JS parse failure in an input file.
func Parse(file string, cause error) *Error {
	return &Error{
		Phase: PhaseParse,
		Kind:  KindInvalidInput,
		File:  file,
		Cause: cause,
	}
}

// IO wraps a file read/write failure.
func IO(file string, cause error) *Error {
	return &Error{
		Phase: PhaseIO,
		Kind:  KindIO,
		File:  file,
		Cause: cause,
	}
}

// Is reports whether err is a *Error with the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if le, ok := err.(*Error); ok {
			e = le
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
