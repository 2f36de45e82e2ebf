package wavetable

import (
	"strings"
	"unicode"

	"github.com/haptix-works/owt/errors"
)

// Limits shared by both waveform families. The packed maximum is the driver
// contract for a single FF_CUSTOM upload; the compilers never write past it.
const (
	// PackedMax is the largest packed size of a single waveform in bytes.
	PackedMax = 1152

	// StringMax bounds the length of the input waveform string.
	StringMax = 512

	// MaxSections bounds the section tables of both waveform types. The
	// packed section-count field is a single byte.
	MaxSections = 255

	// repeatLoopMarker marks a section as an inner-loop delimiter. It is
	// reserved: user-facing finite repeats stop at maxFiniteRepeat.
	repeatLoopMarker = 0xFF

	maxFiniteRepeat = 32

	// indefTimeRaw is the quarter-millisecond sentinel for indefinite
	// playback of a section or duration.
	indefTimeRaw = 0xFFFF

	maxDurationMS = 16383
	maxDelayMS    = 10000

	// Length-word tag bits and the value field they leave.
	lenIndefinite = 0x00400000
	lenCalculated = 0x00800000
	lenValueMask  = 0x003FFFFF
)

// Bank identifies the wavetable a Composite section references.
type Bank uint8

const (
	BankRAM Bank = iota // loaded at boot
	BankROM             // factory resident
	BankOWT             // another open-wavetable waveform
)

func (b Bank) String() string {
	switch b {
	case BankRAM:
		return "RAM"
	case BankROM:
		return "ROM"
	case BankOWT:
		return "OWT"
	}
	return "unknown"
}

// Compile converts an OWT waveform string into the packed binary form the
// force-feedback driver accepts as custom waveform data. Strings whose first
// non-space character is 'S' are PWLE (Type 12); everything else is
// Composite (Type 10).
func Compile(s string) ([]byte, error) {
	buf := make([]byte, PackedMax)
	n, err := CompileInto(buf, s)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// CompileInto compiles into a caller-supplied buffer and returns the number
// of bytes written. On error the buffer may hold partial writes and must be
// treated as invalid. dst should be at least PackedMax bytes for arbitrary
// input.
func CompileInto(dst []byte, s string) (int, error) {
	if len(s) > StringMax {
		return 0, errors.Capacity("waveform string", len(s), StringMax)
	}

	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	if trimmed == "" {
		return 0, errors.Parse(s, "empty waveform string")
	}

	if trimmed[0] == 'S' {
		return CompilePWLE(dst, trimmed)
	}
	return CompileComposite(dst, trimmed)
}
