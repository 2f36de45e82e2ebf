package owt

import (
	"github.com/haptix-works/owt/wavetable"
)

// PackedMax is the largest packed size of a single waveform in bytes.
const PackedMax = wavetable.PackedMax

// StringMax bounds the length of an input waveform string.
const StringMax = wavetable.StringMax

// Compile converts an OWT waveform string into packed binary form. Strings
// whose first non-space character is 'S' compile as PWLE (Type 12)
// envelopes, everything else as Composite (Type 10) sequences.
func Compile(s string) ([]byte, error) {
	return wavetable.Compile(s)
}

// CompileInto compiles into a caller-supplied buffer and returns the number
// of bytes written. dst should be at least PackedMax bytes for arbitrary
// input.
func CompileInto(dst []byte, s string) (int, error) {
	return wavetable.CompileInto(dst, s)
}
