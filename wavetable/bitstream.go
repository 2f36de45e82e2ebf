package wavetable

import (
	"github.com/haptix-works/owt/errors"
)

// wordBits is the emission granularity of the DSP memory format. Values are
// buffered until a full 24-bit word is available, then emitted MSB-first.
const wordBits = 24

// Bitstream packs values of arbitrary bit width into a fixed-capacity byte
// buffer, most significant bit first, with no alignment between fields.
//
// A Bitstream is single-use: construct one per compile call.
type Bitstream struct {
	buf       []byte
	limit     int
	cache     uint32
	cacheBits int
}

// NewBitstream returns a writer emitting into dst. The writer never grows
// dst beyond its length; exceeding it is a capacity error.
func NewBitstream(dst []byte) *Bitstream {
	return &Bitstream{
		buf:   dst[:0],
		limit: len(dst),
	}
}

// Write packs the low nbits of v into the stream, MSB-first. nbits must be
// in 1..32.
func (b *Bitstream) Write(nbits int, v uint32) error {
	if nbits < 1 || nbits > 32 {
		return errors.New(errors.PhaseEncode, errors.KindRange).
			Detail("bit width %d out of range 1..32", nbits).
			Build()
	}

	for nbits > 0 {
		n := wordBits - b.cacheBits
		if nbits < n {
			n = nbits
		}

		b.cache = b.cache<<n | (v>>(nbits-n))&(1<<n-1)
		b.cacheBits += n
		nbits -= n

		if b.cacheBits == wordBits {
			if err := b.emit(3); err != nil {
				return err
			}
		}
	}

	return nil
}

// Flush pads any pending bits with zeros up to the next byte boundary and
// emits the partial word. Calling Flush with nothing pending is a no-op.
func (b *Bitstream) Flush() error {
	if b.cacheBits == 0 {
		return nil
	}

	if rem := b.cacheBits % 8; rem != 0 {
		if err := b.Write(8-rem, 0); err != nil {
			return err
		}
	}

	// Padding may have completed a full word, emptying the cache.
	if b.cacheBits == 0 {
		return nil
	}

	return b.emit(b.cacheBits / 8)
}

// emit appends the top n bytes of the cache and resets it.
func (b *Bitstream) emit(n int) error {
	if len(b.buf)+n > b.limit {
		return errors.Capacity("output buffer", len(b.buf)+n, b.limit)
	}

	for i := n - 1; i >= 0; i-- {
		b.buf = append(b.buf, byte(b.cache>>(8*i)))
	}

	b.cache = 0
	b.cacheBits = 0
	return nil
}

// Len returns the number of bytes emitted so far. Pending bits count only
// after Flush.
func (b *Bitstream) Len() int {
	return len(b.buf)
}

// Bytes returns the emitted output. The slice aliases the buffer passed to
// NewBitstream.
func (b *Bitstream) Bytes() []byte {
	return b.buf
}
