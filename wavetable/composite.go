package wavetable

import (
	"strings"
	"unicode"

	"github.com/haptix-works/owt/errors"
	"github.com/haptix-works/owt/wavetable/internal/fixed"
)

// Composite (Type 10) waveforms sequence references to waveforms already
// resident in the RAM/ROM/OWT wavetables, separated by delays, with optional
// inner and outer loop constructs and an optional excursion-protection
// metadata block.

// Section flag bits.
const (
	compFlagROM      = 0x40
	compFlagOWT      = 0x20
	compFlagDuration = 0x08
)

// epMetadataID identifies an excursion-protection block in the packed
// stream.
const epMetadataID = 2

type compSpecifier int

const (
	compSpecOuterLoopInfinite compSpecifier = iota
	compSpecInnerLoopStart
	compSpecInnerLoopStop
	compSpecOuterLoopRepeat
	compSpecEPMetadata
	compSpecWaveform
	compSpecDelay
)

// compClassifiers is an ordered table; the first matching predicate wins.
// The order is load-bearing: "!!" must be recognized before the bare "!"
// test, and the exact matches before their contains counterparts.
var compClassifiers = []struct {
	match func(string) bool
	spec  compSpecifier
}{
	{func(s string) bool { return s == "~" }, compSpecOuterLoopInfinite},
	{func(s string) bool { return s == "!!" }, compSpecInnerLoopStart},
	{func(s string) bool { return strings.Contains(s, "!!") }, compSpecInnerLoopStop},
	{func(s string) bool { return strings.Contains(s, "!") }, compSpecOuterLoopRepeat},
	{func(s string) bool { return strings.Contains(s, "[") }, compSpecEPMetadata},
	{func(s string) bool { return strings.Contains(s, ".") }, compSpecWaveform},
}

func compClassify(tok string) compSpecifier {
	for _, c := range compClassifiers {
		if c.match(tok) {
			return c.spec
		}
	}
	return compSpecDelay
}

type compWaveform struct {
	bank        Bank
	index       uint8
	amplitude   uint8
	duration    uint16
	hasDuration bool
}

type compSection struct {
	wvfrm    compWaveform
	delay    uint16
	repeat   uint8
	hasWvfrm bool
	hasDelay bool
}

func (s *compSection) flags() uint8 {
	var f uint8
	switch s.wvfrm.bank {
	case BankROM:
		f |= compFlagROM
	case BankOWT:
		f |= compFlagOWT
	}
	if s.wvfrm.hasDuration {
		f |= compFlagDuration
	}
	return f
}

type compEPMetadata struct {
	length    uint8
	payload   uint8
	threshold uint32
}

type composite struct {
	sections  []compSection
	cur       compSection
	ep        *compEPMetadata
	repeat    uint8
	hasRepeat bool
	innerLoop bool
}

// push appends a section verbatim, enforcing the table bound.
func (c *composite) push(sec compSection) error {
	if len(c.sections) >= MaxSections {
		return errors.Capacity("section table", len(c.sections)+1, MaxSections)
	}
	c.sections = append(c.sections, sec)
	return nil
}

// closeSection moves the current section to the table if it holds a
// waveform reference or a delay.
func (c *composite) closeSection() error {
	if !c.cur.hasWvfrm && !c.cur.hasDelay {
		return nil
	}
	if err := c.push(c.cur); err != nil {
		return err
	}
	c.cur = compSection{}
	return nil
}

func (c *composite) decode(tok string) error {
	switch compClassify(tok) {
	case compSpecOuterLoopInfinite:
		if c.hasRepeat {
			return errors.Duplicate(tok, "outer loop specifier")
		}
		c.repeat = repeatLoopMarker
		c.hasRepeat = true

	case compSpecInnerLoopStart:
		if c.innerLoop {
			return errors.Nesting(tok, "nested inner loop specifier not allowed")
		}
		if err := c.closeSection(); err != nil {
			return err
		}
		// The loop is delimited in the section table itself: a marker
		// section opens it, the stop section carries the repeat count.
		if err := c.push(compSection{repeat: repeatLoopMarker}); err != nil {
			return err
		}
		c.innerLoop = true

	case compSpecInnerLoopStop:
		if !c.innerLoop {
			return errors.Nesting(tok, "inner loop stop with no start")
		}
		prefix, _, _ := strings.Cut(tok, "!!")
		count, err := fixed.ParseInt(prefix, 1, maxFiniteRepeat)
		if err != nil {
			return compNumErr(err, tok, "inner loop repeat", count, 1, maxFiniteRepeat)
		}
		if err := c.closeSection(); err != nil {
			return err
		}
		if err := c.push(compSection{repeat: uint8(count)}); err != nil {
			return err
		}
		c.innerLoop = false

	case compSpecOuterLoopRepeat:
		if c.hasRepeat {
			return errors.Duplicate(tok, "outer loop specifier")
		}
		prefix, _, _ := strings.Cut(tok, "!")
		count, err := fixed.ParseInt(prefix, 1, maxFiniteRepeat)
		if err != nil {
			return compNumErr(err, tok, "outer loop repeat", count, 1, maxFiniteRepeat)
		}
		c.repeat = uint8(count)
		c.hasRepeat = true

	case compSpecEPMetadata:
		if c.ep != nil {
			return errors.Duplicate(tok, "EP metadata block")
		}
		ep, err := parseCompEPMetadata(tok)
		if err != nil {
			return err
		}
		c.ep = ep

	case compSpecWaveform:
		if c.cur.hasWvfrm {
			if err := c.closeSection(); err != nil {
				return err
			}
		}
		wvfrm, err := parseCompWaveform(tok)
		if err != nil {
			return err
		}
		c.cur.wvfrm = *wvfrm
		c.cur.hasWvfrm = true

	case compSpecDelay:
		if c.cur.hasDelay {
			if err := c.closeSection(); err != nil {
				return err
			}
		}
		delay, err := fixed.ParseInt(tok, 1, maxDelayMS)
		if err != nil {
			return compNumErr(err, tok, "delay", delay, 1, maxDelayMS)
		}
		c.cur.delay = uint16(delay)
		c.cur.hasDelay = true
	}

	return nil
}

// parseCompWaveform parses a waveform reference token of the form
// [BANK]index.amplitude[.duration]. A missing or unrecognized bank prefix
// selects RAM.
func parseCompWaveform(tok string) (*compWaveform, error) {
	bank := BankRAM
	body := tok
	if len(tok) >= 3 {
		switch tok[:3] {
		case "RAM":
			body = tok[3:]
		case "ROM":
			bank, body = BankROM, tok[3:]
		case "OWT":
			bank, body = BankOWT, tok[3:]
		}
	}

	parts := strings.Split(body, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, errors.Parse(tok, "waveform reference must be index.amplitude or index.amplitude.duration")
	}

	index, err := fixed.ParseInt(parts[0], 1, 127)
	if err != nil {
		return nil, compNumErr(err, tok, "waveform index", index, 1, 127)
	}

	amplitude, err := fixed.ParseInt(parts[1], 1, 100)
	if err != nil {
		return nil, compNumErr(err, tok, "waveform amplitude", amplitude, 1, 100)
	}

	w := &compWaveform{
		bank:      bank,
		index:     uint8(index),
		amplitude: uint8(amplitude),
	}

	if len(parts) == 3 {
		raw, err := fixed.ParseInt(parts[2], 0, indefTimeRaw)
		if err != nil {
			return nil, compNumErr(err, tok, "waveform duration", raw, 0, maxDurationMS)
		}
		if raw == indefTimeRaw {
			w.duration = indefTimeRaw
		} else {
			if raw > maxDurationMS {
				return nil, errors.Range(tok, "waveform duration", raw, 0, maxDurationMS)
			}
			w.duration = uint16(raw * 4) // quarter-millisecond units
		}
		w.hasDuration = w.duration != 0
	}

	return w, nil
}

// parseCompEPMetadata parses an excursion-protection token. The closing
// bracket has already been consumed as a delimiter, leaving
// "[length;payload;threshold".
func parseCompEPMetadata(tok string) (*compEPMetadata, error) {
	body := strings.TrimPrefix(tok, "[")
	parts := strings.Split(body, ";")
	if len(parts) != 3 {
		return nil, errors.Parse(tok, "EP metadata must be [length;payload;threshold]")
	}

	length, err := fixed.ParseInt(parts[0], 0, 255)
	if err != nil {
		return nil, compNumErr(err, tok, "EP length", length, 0, 255)
	}

	payload, err := fixed.ParseInt(parts[1], 0, 7)
	if err != nil {
		return nil, compNumErr(err, tok, "EP payload", payload, 0, 7)
	}

	threshold, err := fixed.ParseInt(parts[2], 0, 0xFFFFFF)
	if err != nil {
		return nil, compNumErr(err, tok, "EP threshold", threshold, 0, 0xFFFFFF)
	}

	return &compEPMetadata{
		length:    uint8(length),
		payload:   uint8(payload),
		threshold: uint32(threshold),
	}, nil
}

func (c *composite) encode(dst []byte) (int, error) {
	bs := NewBitstream(dst)

	var err error
	w := func(nbits int, v uint32) {
		if err == nil {
			err = bs.Write(nbits, v)
		}
	}

	w(8, 0) // padding
	w(8, uint32(len(c.sections)))
	w(8, uint32(c.repeat))

	if c.ep != nil {
		w(8, epMetadataID)
		w(8, uint32(c.ep.length))
		w(8, uint32(c.ep.payload))
		w(24, c.ep.threshold)
	}

	for i := range c.sections {
		sec := &c.sections[i]
		w(8, uint32(sec.wvfrm.amplitude))
		w(8, uint32(sec.wvfrm.index))
		w(8, uint32(sec.repeat))
		w(8, uint32(sec.flags()))
		w(16, uint32(sec.delay))

		if sec.wvfrm.hasDuration {
			w(8, 0) // padding
			w(16, uint32(sec.wvfrm.duration))
		}
	}

	if err != nil {
		return 0, err
	}
	if err := bs.Flush(); err != nil {
		return 0, err
	}

	return bs.Len(), nil
}

// CompileComposite compiles a Type-10 Composite waveform string into dst and
// returns the number of bytes written.
func CompileComposite(dst []byte, s string) (int, error) {
	var comp composite

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ']' || unicode.IsSpace(r)
	})

	for _, tok := range tokens {
		if err := comp.decode(tok); err != nil {
			return 0, err
		}
	}

	if comp.innerLoop {
		return 0, errors.Nesting("!!", "inner loop never terminated")
	}
	if err := comp.closeSection(); err != nil {
		return 0, err
	}
	if len(comp.sections) == 0 {
		return 0, errors.Parse(s, "waveform has no sections")
	}

	return comp.encode(dst)
}

// compNumErr maps a fixed-point parse failure onto the structured error for
// a Composite numeric field.
func compNumErr(err error, tok, field string, v, lo, hi int) error {
	if err == fixed.ErrRange {
		return errors.Range(tok, field, v, lo, hi)
	}
	return errors.Parse(tok, "invalid "+field)
}
