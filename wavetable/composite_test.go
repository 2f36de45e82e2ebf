package wavetable

import (
	"bytes"
	"strings"
	"testing"

	owterr "github.com/haptix-works/owt/errors"
)

func compileComposite(t *testing.T, s string) []byte {
	t.Helper()
	buf := make([]byte, PackedMax)
	n, err := CompileComposite(buf, s)
	if err != nil {
		t.Fatalf("CompileComposite(%q) error: %v", s, err)
	}
	return buf[:n]
}

func TestCompositeSequenceWithLoops(t *testing.T) {
	// Two lead-in waveforms, an inner loop of three rising ROM taps played
	// twice, the whole pattern repeated twice more.
	got := compileComposite(t,
		"1.100, 500, ROM2.100, 400, !!, ROM3.50, 50, ROM3.75, 50, ROM3.100, 50, 1!!, 2!")

	want := []byte{
		0x00, 0x07, 0x02, // padding, section count, outer repeat
		0x64, 0x01, 0x00, 0x00, 0x01, 0xF4, // RAM 1 at 100%, 500 ms
		0x64, 0x02, 0x00, 0x40, 0x01, 0x90, // ROM 2 at 100%, 400 ms
		0x00, 0x00, 0xFF, 0x00, 0x00, 0x00, // inner loop start marker
		0x32, 0x03, 0x00, 0x40, 0x00, 0x32, // ROM 3 at 50%, 50 ms
		0x4B, 0x03, 0x00, 0x40, 0x00, 0x32, // ROM 3 at 75%, 50 ms
		0x64, 0x03, 0x00, 0x40, 0x00, 0x32, // ROM 3 at 100%, 50 ms
		0x00, 0x00, 0x01, 0x00, 0x00, 0x00, // inner loop stop, one extra pass
	}
	if !bytes.Equal(got, want) {
		t.Errorf("packed = % x\nwant     % x", got, want)
	}
}

func TestCompositeDuration(t *testing.T) {
	got := compileComposite(t, "1.100.100")
	want := []byte{
		0x00, 0x01, 0x00,
		0x64, 0x01, 0x00, 0x08, 0x00, 0x00, // duration flag set, no delay
		0x00, 0x01, 0x90, // padding, 100 ms in quarter-ms units
	}
	if !bytes.Equal(got, want) {
		t.Errorf("packed = % x, want % x", got, want)
	}
}

func TestCompositeIndefiniteDuration(t *testing.T) {
	got := compileComposite(t, "OWT2.50.65535")
	want := []byte{
		0x00, 0x01, 0x00,
		0x32, 0x02, 0x00, 0x28, 0x00, 0x00, // OWT bank + duration flags
		0x00, 0xFF, 0xFF,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("packed = % x, want % x", got, want)
	}
}

func TestCompositeZeroDurationOmitted(t *testing.T) {
	// An explicit zero duration behaves like no duration at all.
	got := compileComposite(t, "1.100.0")
	want := []byte{
		0x00, 0x01, 0x00,
		0x64, 0x01, 0x00, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("packed = % x, want % x", got, want)
	}
}

func TestCompositeEPMetadata(t *testing.T) {
	got := compileComposite(t, "1.100,500,[5;2;1000],1!")
	want := []byte{
		0x00, 0x01, 0x01,
		0x02, 0x05, 0x02, 0x00, 0x03, 0xE8, // EP block: id, length, payload, threshold
		0x64, 0x01, 0x00, 0x00, 0x01, 0xF4,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("packed = % x, want % x", got, want)
	}
}

func TestCompositeInfiniteOuterLoop(t *testing.T) {
	got := compileComposite(t, "~,1.50,100")
	if got[2] != 0xFF {
		t.Errorf("outer repeat = %#x, want ff", got[2])
	}
}

func TestCompositeBankPrefixes(t *testing.T) {
	tests := []struct {
		in    string
		flags byte
	}{
		{"1.100", 0x00},
		{"RAM1.100", 0x00},
		{"ROM1.100", 0x40},
		{"OWT1.100", 0x20},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := compileComposite(t, tt.in)
			if got[6] != tt.flags {
				t.Errorf("flags = %#x, want %#x", got[6], tt.flags)
			}
		})
	}
}

func TestCompositeDelayOnlySection(t *testing.T) {
	// A bare delay forms a section with no waveform reference.
	got := compileComposite(t, "250")
	want := []byte{
		0x00, 0x01, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0xFA,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("packed = % x, want % x", got, want)
	}
}

func TestCompositeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind owterr.Kind
	}{
		{"amplitude zero", "1.0", owterr.KindRange},
		{"amplitude over", "1.101", owterr.KindRange},
		{"index zero", "0.100", owterr.KindRange},
		{"index over", "128.100", owterr.KindRange},
		{"duration over", "1.100.16384", owterr.KindRange},
		{"delay zero", "1.100,0", owterr.KindRange},
		{"delay over", "1.100,10001", owterr.KindRange},
		{"outer repeat over", "1.100,33!", owterr.KindRange},
		{"inner repeat zero", "!!,1.100,0!!", owterr.KindRange},
		{"malformed waveform", "1.2.3.4", owterr.KindParse},
		{"malformed EP", "[1;2]", owterr.KindParse},
		{"EP payload over", "[1;8;100]", owterr.KindRange},
		{"no sections", "", owterr.KindParse},
		{"duplicate outer loop", "~,1.100,2!", owterr.KindDuplicateSpecifier},
		{"nested inner loop", "!!,1.100,!!", owterr.KindNesting},
		{"stop without start", "1.100,2!!", owterr.KindNesting},
		{"unterminated inner loop", "!!,1.100,50", owterr.KindNesting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileComposite(make([]byte, PackedMax), tt.in)
			wantKind(t, err, tt.kind)
		})
	}
}

func TestCompositeSectionTableFull(t *testing.T) {
	in := strings.TrimSuffix(strings.Repeat("1.100,10,", MaxSections+1), ",")
	_, err := CompileComposite(make([]byte, PackedMax), in)
	wantKind(t, err, owterr.KindCapacity)
}

func TestCompositeBufferTooSmall(t *testing.T) {
	_, err := CompileComposite(make([]byte, 8), "1.100,500,2.100,400")
	wantKind(t, err, owterr.KindCapacity)
}
