package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseTokenize Phase = "tokenize" // splitting the waveform string
	PhaseValidate Phase = "validate" // range and structure checks
	PhaseEncode   Phase = "encode"   // bit packing
	PhaseDevice   Phase = "device"   // force-feedback device I/O
)

// Kind categorizes the error
type Kind string

const (
	KindParse              Kind = "parse"               // unrecognized token, missing positional field
	KindRange              Kind = "range"               // numeric value outside its documented bound
	KindNesting            Kind = "nesting"             // unmatched or nested loop markers
	KindIncompleteSection  Kind = "incomplete_section"  // section missing a required entry
	KindCapacity           Kind = "capacity"            // output buffer or section table exhausted
	KindDuplicateSpecifier Kind = "duplicate_specifier" // specifier allowed once appeared twice
	KindDeviceIO           Kind = "device_io"           // ioctl or event write failure
)

// Error is the structured error type used throughout the library
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Token   string
	Detail  string
	Section int // section index the error refers to, -1 when not applicable
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Token != "" {
		b.WriteString(" in token ")
		b.WriteString(strconv.Quote(e.Token))
	}

	if e.Section >= 0 {
		b.WriteString(" at section ")
		b.WriteString(strconv.Itoa(e.Section))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:   phase,
			Kind:    kind,
			Section: -1,
		},
	}
}

// Token sets the offending token text
func (b *Builder) Token(tok string) *Builder {
	b.err.Token = tok
	return b
}

// Section sets the section index the error refers to
func (b *Builder) Section(idx int) *Builder {
	b.err.Section = idx
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Parse creates an unrecognized-token error
func Parse(token, detail string) *Error {
	return &Error{
		Phase:   PhaseTokenize,
		Kind:    KindParse,
		Token:   token,
		Detail:  detail,
		Section: -1,
	}
}

// Range creates an out-of-range error for a numeric field
func Range(token, field string, value, lo, hi any) *Error {
	return &Error{
		Phase:   PhaseValidate,
		Kind:    KindRange,
		Token:   token,
		Detail:  fmt.Sprintf("%s %v out of range %v..%v", field, value, lo, hi),
		Value:   value,
		Section: -1,
	}
}

// Nesting creates a loop-marker nesting error
func Nesting(token, detail string) *Error {
	return &Error{
		Phase:   PhaseValidate,
		Kind:    KindNesting,
		Token:   token,
		Detail:  detail,
		Section: -1,
	}
}

// IncompleteSection creates an error for a section missing a required entry
func IncompleteSection(section int, detail string) *Error {
	return &Error{
		Phase:   PhaseValidate,
		Kind:    KindIncompleteSection,
		Detail:  detail,
		Section: section,
	}
}

// Capacity creates an exhaustion error for a bounded buffer or table
func Capacity(what string, need, limit int) *Error {
	return &Error{
		Phase:   PhaseEncode,
		Kind:    KindCapacity,
		Detail:  fmt.Sprintf("%s exhausted: need %d, capacity %d", what, need, limit),
		Section: -1,
	}
}

// Duplicate creates an error for a specifier that may appear only once
func Duplicate(token, what string) *Error {
	return &Error{
		Phase:   PhaseValidate,
		Kind:    KindDuplicateSpecifier,
		Token:   token,
		Detail:  fmt.Sprintf("duplicate %s", what),
		Section: -1,
	}
}

// Device creates a device I/O error
func Device(op string, cause error) *Error {
	return &Error{
		Phase:   PhaseDevice,
		Kind:    KindDeviceIO,
		Detail:  op,
		Cause:   cause,
		Section: -1,
	}
}
