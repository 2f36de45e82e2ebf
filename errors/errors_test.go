package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseValidate,
				Kind:    KindRange,
				Token:   "101",
				Detail:  "amplitude 101 out of range 1..100",
				Section: -1,
			},
			contains: []string{"[validate]", "range", `"101"`, "amplitude"},
		},
		{
			name: "section error",
			err: &Error{
				Phase:   PhaseValidate,
				Kind:    KindIncompleteSection,
				Detail:  "missing V entry",
				Section: 3,
			},
			contains: []string{"[validate]", "incomplete_section", "section 3", "missing V entry"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:   PhaseDevice,
				Kind:    KindDeviceIO,
				Detail:  "upload effect",
				Cause:   errors.New("underlying error"),
				Section: -1,
			},
			contains: []string{"[device]", "device_io", "upload effect", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase:   PhaseDevice,
		Kind:    KindDeviceIO,
		Cause:   cause,
		Section: -1,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := Range("101", "amplitude", 101, 1, 100)

	// Same phase and kind
	if !err.Is(&Error{Phase: PhaseValidate, Kind: KindRange}) {
		t.Error("Is should match same phase and kind")
	}

	// Different phase
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindRange}) {
		t.Error("Is should not match different phase")
	}

	// Different kind
	if err.Is(&Error{Phase: PhaseValidate, Kind: KindNesting}) {
		t.Error("Is should not match different kind")
	}

	// Test with errors.Is
	target := &Error{Phase: PhaseValidate, Kind: KindRange}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseValidate, KindRange).
		Token("L0:2.0").
		Section(0).
		Value(2.0).
		Cause(cause).
		Detail("level %v above maximum %v", 2.0, 0.9995118).
		Build()

	if err.Phase != PhaseValidate {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseValidate)
	}
	if err.Kind != KindRange {
		t.Errorf("Kind = %v, want %v", err.Kind, KindRange)
	}
	if err.Token != "L0:2.0" {
		t.Errorf("Token = %q, want %q", err.Token, "L0:2.0")
	}
	if err.Section != 0 {
		t.Errorf("Section = %d, want 0", err.Section)
	}
	if err.Value != 2.0 {
		t.Errorf("Value = %v, want 2.0", err.Value)
	}
	if err.Cause != cause {
		t.Error("Cause not set")
	}
	if !strings.Contains(err.Detail, "0.9995118") {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestBuilder_DefaultSection(t *testing.T) {
	err := New(PhaseTokenize, KindParse).Build()
	if err.Section != -1 {
		t.Errorf("Section = %d, want -1", err.Section)
	}
	if strings.Contains(err.Error(), "section") {
		t.Errorf("message %q should not mention a section", err.Error())
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"parse", Parse("XYZ", "unrecognized specifier"), KindParse},
		{"range", Range("0", "delay", 0, 1, 10000), KindRange},
		{"nesting", Nesting("!!", "nested inner loop"), KindNesting},
		{"incomplete", IncompleteSection(1, "missing F entry"), KindIncompleteSection},
		{"capacity", Capacity("output buffer", 1155, 1152), KindCapacity},
		{"duplicate", Duplicate("~", "outer loop specifier"), KindDuplicateSpecifier},
		{"device", Device("trigger effect", errors.New("enxio")), KindDeviceIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}
}
