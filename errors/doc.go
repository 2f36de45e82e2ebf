// Package errors provides structured error types for the owt library.
//
// Errors are categorized by Phase (where in the compile pipeline the error
// occurred) and Kind (error category). The Error type includes rich context:
// the offending token, the section index, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindRange).
//		Token("101").
//		Detail("amplitude 101 out of range 1..100").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Range("101", "amplitude", 101, 1, 100)
//	err := errors.IncompleteSection(3, "missing V entry")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
