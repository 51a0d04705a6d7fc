// Package abducterr defines the typed failure kinds of the abduction
// core, per the error handling design: configuration errors fail fast,
// oracle errors downgrade to "unknown", SMT unknowns are treated as a
// conservative prune failure, and internal invariant violations abort
// the run.
package abducterr

import "github.com/pkg/errors"

// Kind classifies a failure so callers can branch on errors.As/Is
// instead of matching strings.
type Kind int

const (
	// Configuration covers malformed literals/directives files and bad
	// CLI flag combinations. Callers must fail fast before the loop.
	Configuration Kind = iota
	// OracleTransient covers oracle timeouts and non-zero exits. The
	// caller downgrades the verdict to unknown and keeps going.
	OracleTransient
	// OracleInconsistent covers a reachable verdict with no model.
	OracleInconsistent
	// SMTUnknown covers an unexpected unknown from the SAT/SMT backend.
	SMTUnknown
	// InternalInvariant covers width mismatches that cannot be
	// normalized, unregistered variables, and similar programmer
	// errors. These abort the run.
	InternalInvariant
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case OracleTransient:
		return "oracle-transient"
	case OracleInconsistent:
		return "oracle-inconsistent"
	case SMTUnknown:
		return "smt-unknown"
	case InternalInvariant:
		return "internal-invariant"
	default:
		return "unknown"
	}
}

// Error is a typed failure carrying a Kind alongside the usual chain.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Kind.String() + ": " + e.msg + ": " + e.err.Error()
	}
	return e.Kind.String() + ": " + e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Cause lets pkg/errors' Cause walk through an *Error to its wrapped chain.
func (e *Error) Cause() error { return e.err }

// New builds a typed error with no wrapped cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg}
}

// Wrap attaches a Kind to an existing error, preserving its chain via
// pkg/errors so Cause() keeps working on the result.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: msg, err: errors.WithMessage(err, msg)}
}

// Is reports whether err is (or wraps) an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Kind == kind
}
