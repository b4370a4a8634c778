// Package errorkinds collects the sentinel error kinds raised across the
// transpiler, following the errors.NewKind(...) convention used for
// dolthub-style SQL engines: callers classify a returned error with
// kind.Is(err) rather than string matching, and each kind renders with its
// own template via kind.New(args...).
package errorkinds

import errors "gopkg.in/src-d/go-errors.v1"

var (
	// MalformedSQL: structurally unparseable, or missing a required keyword
	// (ORDER without BY, JOIN without ON, ...).
	MalformedSQL = errors.NewKind("malformed SQL: %s")

	// UnsupportedSQL: syntactically fine but outside the accepted dialect
	// (multiple statements, unknown statement kind, join predicate folded
	// into WHERE, arithmetic on a WHERE right-hand side, negated IN,
	// multi-level nested subqueries, unsupported DDL shape, ...).
	UnsupportedSQL = errors.NewKind("unsupported SQL: %s")

	// ParameterBindingError: a placeholder didn't match the %(N)s shape, or
	// its index fell outside the bound parameter list.
	ParameterBindingError = errors.NewKind("parameter binding error: %s")

	// DriverError: the MongoDB driver call itself failed. Carries the
	// driver's error message and the offending SQL for the caller.
	DriverError = errors.NewKind("driver error executing %q: %s")
)
