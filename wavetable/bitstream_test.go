package wavetable

import (
	"bytes"
	"errors"
	"testing"

	owterr "github.com/haptix-works/owt/errors"
)

func TestBitstreamWrite(t *testing.T) {
	tests := []struct {
		name   string
		writes []struct {
			nbits int
			v     uint32
		}
		want []byte
	}{
		{
			"aligned bytes",
			[]struct {
				nbits int
				v     uint32
			}{{8, 0xAB}, {8, 0xCD}, {8, 0xEF}},
			[]byte{0xAB, 0xCD, 0xEF},
		},
		{
			"field across word boundary",
			[]struct {
				nbits int
				v     uint32
			}{{16, 0x1234}, {16, 0x5678}},
			[]byte{0x12, 0x34, 0x56, 0x78},
		},
		{
			"unaligned nibbles",
			[]struct {
				nbits int
				v     uint32
			}{{4, 0xF}, {8, 0x00}, {4, 0xF}},
			[]byte{0xF0, 0x0F},
		},
		{
			"full 32-bit value",
			[]struct {
				nbits int
				v     uint32
			}{{32, 0xDEADBEEF}},
			[]byte{0xDE, 0xAD, 0xBE, 0xEF},
		},
		{
			"high bits of value ignored",
			[]struct {
				nbits int
				v     uint32
			}{{4, 0xFFFFFFF5}, {4, 0x5}},
			[]byte{0x55},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs := NewBitstream(make([]byte, 16))
			for _, w := range tt.writes {
				if err := bs.Write(w.nbits, w.v); err != nil {
					t.Fatalf("Write(%d, %#x) error: %v", w.nbits, w.v, err)
				}
			}
			if err := bs.Flush(); err != nil {
				t.Fatalf("Flush error: %v", err)
			}
			if !bytes.Equal(bs.Bytes(), tt.want) {
				t.Errorf("bytes = % x, want % x", bs.Bytes(), tt.want)
			}
		})
	}
}

func TestBitstreamFlushPadsToByte(t *testing.T) {
	bs := NewBitstream(make([]byte, 4))
	if err := bs.Write(4, 0xA); err != nil {
		t.Fatal(err)
	}
	if err := bs.Flush(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bs.Bytes(), []byte{0xA0}) {
		t.Errorf("bytes = % x, want a0", bs.Bytes())
	}

	// Flushing again must not emit more.
	if err := bs.Flush(); err != nil {
		t.Fatal(err)
	}
	if bs.Len() != 1 {
		t.Errorf("Len after second Flush = %d, want 1", bs.Len())
	}
}

func TestBitstreamEmptyFlush(t *testing.T) {
	bs := NewBitstream(make([]byte, 4))
	if err := bs.Flush(); err != nil {
		t.Fatal(err)
	}
	if bs.Len() != 0 {
		t.Errorf("Len = %d, want 0", bs.Len())
	}
}

func TestBitstreamCapacity(t *testing.T) {
	bs := NewBitstream(make([]byte, 2))
	err := bs.Write(24, 0x123456)
	wantKind(t, err, owterr.KindCapacity)
}

func TestBitstreamBadWidth(t *testing.T) {
	bs := NewBitstream(make([]byte, 4))
	for _, nbits := range []int{0, -1, 33} {
		if err := bs.Write(nbits, 0); err == nil {
			t.Errorf("Write(%d) should fail", nbits)
		}
	}
}

// wantKind asserts err is a structured error of the given kind.
func wantKind(t *testing.T, err error, kind owterr.Kind) *owterr.Error {
	t.Helper()
	var werr *owterr.Error
	if !errors.As(err, &werr) {
		t.Fatalf("error = %v, want kind %s", err, kind)
	}
	if werr.Kind != kind {
		t.Fatalf("error kind = %s, want %s (%v)", werr.Kind, kind, err)
	}
	return werr
}
