package wavetable

import (
	"strings"

	"github.com/haptix-works/owt/errors"
	"github.com/haptix-works/owt/wavetable/internal/fixed"
)

// PWLE (Type 12) waveforms describe an envelope as piecewise-linear sections,
// each a target level and frequency to reach over a time span. The string is
// a comma-separated list of key:value entries: a strictly positional header
// (S, WF, RP, WT), optional metadata blocks, then two or more sections.

// Feature bits carried in the WF header entry.
const (
	FeatureClick     = 0x04 // click-class waveform
	FeatureBuzz      = 0x08 // buzz-class waveform
	FeatureDynamicF0 = 0x10 // retune to the tracked resonant frequency
	FeatureMetadata  = 0x20 // metadata blocks follow the section list
	FeatureDVL       = 0x40 // dynamic voltage limiting
	FeatureLF0T      = 0x80 // low-rate resonant-frequency tracking
)

const (
	pwleFormatID    = 12
	pwleHeaderWords = 3
	pwleTerminator  = 0xFFFFFF

	svcMetadataID = 1

	maxWaitRaw     = 4095 // 1023.75 ms in quarter-ms units
	maxSVCBrakeRaw = 4000 // 1000 ms
	maxFreqRaw     = 4095
	minRelFreqRaw  = -2048 // -512 Hz offset in quarter-Hz units
	maxRelFreqRaw  = 2047
	minLevelRaw    = -2048
	maxLevelRaw    = 2047
	maxVbTargetRaw = 0x7FFFFF
)

// Section flag bits.
const (
	pwleFlagReserved = 0x01 // always set
	pwleFlagAmpReg   = 0x02
	pwleFlagBrake    = 0x04
	pwleFlagChirp    = 0x08
	pwleFlagRelFreq  = 0x10
)

type pwleSpecifier int

const (
	pwleSpecSave pwleSpecifier = iota
	pwleSpecFeature
	pwleSpecRepeat
	pwleSpecWait
	pwleSpecSVCMode
	pwleSpecSVCBrake
	pwleSpecEPMode
	pwleSpecEPPayload
	pwleSpecEPThreshold
	pwleSpecTime
	pwleSpecLevel
	pwleSpecFreq
	pwleSpecChirp
	pwleSpecBrake
	pwleSpecAmpReg
	pwleSpecRelFreq
	pwleSpecVbTarget
	pwleSpecInvalid
)

// pwleClassifiers is an ordered table; the first matching prefix wins. The
// two-letter keys must precede the one-letter keys they shadow ("WT" before
// "T", "RP" before "R", "AR" before... there is no bare "A", but the rule
// keeps the table honest).
var pwleClassifiers = []struct {
	prefix string
	spec   pwleSpecifier
}{
	{"WF", pwleSpecFeature},
	{"RP", pwleSpecRepeat},
	{"WT", pwleSpecWait},
	{"AR", pwleSpecAmpReg},
	{"EM", pwleSpecEPMode},
	{"ET", pwleSpecEPPayload},
	{"EC", pwleSpecEPThreshold},
	{"S", pwleSpecSave},
	{"T", pwleSpecTime},
	{"L", pwleSpecLevel},
	{"F", pwleSpecFreq},
	{"C", pwleSpecChirp},
	{"B", pwleSpecBrake},
	{"R", pwleSpecRelFreq},
	{"V", pwleSpecVbTarget},
	{"M", pwleSpecSVCMode},
	{"K", pwleSpecSVCBrake},
}

func pwleClassify(key string) pwleSpecifier {
	for _, c := range pwleClassifiers {
		if strings.HasPrefix(key, c.prefix) {
			return c.spec
		}
	}
	return pwleSpecInvalid
}

// pwleSpecName is the user-facing key for a specifier, used in error detail.
var pwleSpecName = map[pwleSpecifier]string{
	pwleSpecSave:        "S",
	pwleSpecFeature:     "WF",
	pwleSpecRepeat:      "RP",
	pwleSpecWait:        "WT",
	pwleSpecSVCMode:     "M",
	pwleSpecSVCBrake:    "K",
	pwleSpecEPMode:      "EM",
	pwleSpecEPPayload:   "ET",
	pwleSpecEPThreshold: "EC",
}

// pwleHeaderOrder fixes the four mandatory leading entries.
var pwleHeaderOrder = [4]pwleSpecifier{
	pwleSpecSave, pwleSpecFeature, pwleSpecRepeat, pwleSpecWait,
}

// pwleHave tracks which entries the current section has seen.
type pwleHave uint16

const (
	havePWLETime pwleHave = 1 << iota
	havePWLELevel
	havePWLEFreq
	havePWLEChirp
	havePWLEBrake
	havePWLEAmpReg
	havePWLERelFreq
)

const pwleRequired = havePWLETime | havePWLELevel | havePWLEFreq |
	havePWLEChirp | havePWLEBrake | havePWLEAmpReg

var pwleEntryNames = []struct {
	bit pwleHave
	key string
}{
	{havePWLETime, "T"},
	{havePWLELevel, "L"},
	{havePWLEFreq, "F"},
	{havePWLEChirp, "C"},
	{havePWLEBrake, "B"},
	{havePWLEAmpReg, "AR"},
}

// pwleSectionState accumulates one section until its terminating V entry.
// Frequency is kept as text because its interpretation depends on whether an
// R entry arrives later in the same section.
type pwleSectionState struct {
	have     pwleHave
	time     uint16
	level    int16
	freqTok  string
	freqVal  string
	relative bool
	chirp    bool
	brake    bool
	ampReg   bool
}

func (st *pwleSectionState) missing() string {
	var miss []string
	for _, e := range pwleEntryNames {
		if st.have&e.bit == 0 {
			miss = append(miss, e.key)
		}
	}
	miss = append(miss, "V")
	return strings.Join(miss, ", ")
}

// pwleSection is a fully validated section ready for encoding.
type pwleSection struct {
	time     uint16
	level    int16
	freq     int16
	flags    uint8
	vbTarget uint32
}

type pwleSVCMetadata struct {
	mode     int8
	brakeRaw uint32 // quarter-ms
}

type pwleEPMetadata struct {
	custom    bool
	payload   uint8
	threshold uint32
}

type pwle struct {
	save     bool
	feature  uint8
	repeat   uint8
	wait     uint16
	sections []pwleSection
	cur      pwleSectionState
	svc      *pwleSVCMetadata
	ep       *pwleEPMetadata
	indef      bool
	timeSum    uint32
	pos        int
	pending    pwleSpecifier // metadata entry the next token must supply
	hasPending bool
}

func (p *pwle) expectNext(spec pwleSpecifier) {
	p.pending = spec
	p.hasPending = true
}

func (p *pwle) metadataAllowed(tok string) error {
	if p.feature&FeatureMetadata == 0 {
		return errors.Parse(tok, "metadata entry without the metadata feature bit in WF")
	}
	if len(p.sections) > 0 || p.cur.have != 0 {
		return errors.Parse(tok, "metadata entries must precede the section list")
	}
	return nil
}

func (p *pwle) decode(tok string) error {
	key, val, found := strings.Cut(tok, ":")
	if !found {
		return errors.Parse(tok, "entry must be key:value")
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)

	spec := pwleClassify(key)

	if p.hasPending && spec != p.pending {
		return errors.Parse(tok, "expected "+pwleSpecName[p.pending]+" entry here")
	}
	if p.pos < len(pwleHeaderOrder) && spec != pwleHeaderOrder[p.pos] {
		return errors.Parse(tok, "expected "+pwleSpecName[pwleHeaderOrder[p.pos]]+" entry at this position")
	}
	if p.pos >= len(pwleHeaderOrder) {
		switch spec {
		case pwleSpecSave, pwleSpecFeature, pwleSpecRepeat, pwleSpecWait:
			return errors.Parse(tok, "header entry after header complete")
		}
	}

	switch spec {
	case pwleSpecSave:
		save, err := fixed.ParseBool(val)
		if err != nil {
			return errors.Range(tok, "save flag", val, 0, 1)
		}
		p.save = save

	case pwleSpecFeature:
		v, err := fixed.ParseInt(val, 0, 255)
		if err != nil {
			return pwleNumErr(err, tok, "feature bits", v, 0, 255)
		}
		p.feature = uint8(v)

	case pwleSpecRepeat:
		v, err := fixed.ParseInt(val, 0, 255)
		if err != nil {
			return pwleNumErr(err, tok, "repeat count", v, 0, 255)
		}
		p.repeat = uint8(v)

	case pwleSpecWait:
		v, err := fixed.Parse(val, 4, 0, maxWaitRaw)
		if err != nil {
			return pwleNumErr(err, tok, "wait time", v, 0, maxWaitRaw)
		}
		p.wait = uint16(v)

	case pwleSpecSVCMode:
		if err := p.metadataAllowed(tok); err != nil {
			return err
		}
		if p.svc != nil {
			return errors.Duplicate(tok, "SVC metadata block")
		}
		v, err := fixed.ParseInt(val, -1, 3)
		if err != nil {
			return pwleNumErr(err, tok, "SVC mode", v, -1, 3)
		}
		p.svc = &pwleSVCMetadata{mode: int8(v)}
		p.expectNext(pwleSpecSVCBrake)
		p.pos++
		return nil

	case pwleSpecSVCBrake:
		if !p.hasPending {
			return errors.Parse(tok, "K entry must follow M")
		}
		v, err := fixed.Parse(val, 4, 0, maxSVCBrakeRaw)
		if err != nil {
			return pwleNumErr(err, tok, "SVC braking time", v, 0, maxSVCBrakeRaw)
		}
		p.svc.brakeRaw = uint32(v)

	case pwleSpecEPMode:
		if err := p.metadataAllowed(tok); err != nil {
			return err
		}
		if p.ep != nil {
			return errors.Duplicate(tok, "EP metadata block")
		}
		custom, err := fixed.ParseBool(val)
		if err != nil {
			return errors.Range(tok, "EP mode", val, 0, 1)
		}
		p.ep = &pwleEPMetadata{custom: custom}
		p.expectNext(pwleSpecEPPayload)
		p.pos++
		return nil

	case pwleSpecEPPayload:
		if !p.hasPending {
			return errors.Parse(tok, "ET entry must follow EM")
		}
		v, err := fixed.ParseInt(val, 0, 7)
		if err != nil {
			return pwleNumErr(err, tok, "EP payload", v, 0, 7)
		}
		p.ep.payload = uint8(v)
		if p.ep.custom {
			p.hasPending = false
			p.expectNext(pwleSpecEPThreshold)
			p.pos++
			return nil
		}

	case pwleSpecEPThreshold:
		if !p.hasPending {
			return errors.Parse(tok, "EC entry must follow ET")
		}
		v, err := fixed.ParseInt(val, 0, 0xFFFFFF)
		if err != nil {
			return pwleNumErr(err, tok, "EP threshold", v, 0, 0xFFFFFF)
		}
		p.ep.threshold = uint32(v)

	case pwleSpecTime:
		if p.cur.have&havePWLETime != 0 {
			return errors.IncompleteSection(len(p.sections),
				"next T before section complete, missing "+p.cur.missing())
		}
		v, err := fixed.Parse(val, 4, 0, indefTimeRaw)
		if err != nil {
			return pwleNumErr(err, tok, "section time", v, 0, indefTimeRaw)
		}
		if v == indefTimeRaw {
			p.indef = true
		} else {
			p.timeSum += uint32(v)
		}
		p.cur.time = uint16(v)
		p.cur.have |= havePWLETime

	case pwleSpecLevel:
		if p.cur.have&havePWLELevel != 0 {
			return errors.Duplicate(tok, "L entry in section")
		}
		v, err := fixed.Parse(val, 2048, minLevelRaw, maxLevelRaw)
		if err != nil {
			return pwleNumErr(err, tok, "section level", v, minLevelRaw, maxLevelRaw)
		}
		p.cur.level = int16(v)
		p.cur.have |= havePWLELevel

	case pwleSpecFreq:
		if p.cur.have&havePWLEFreq != 0 {
			return errors.Duplicate(tok, "F entry in section")
		}
		// Interpretation depends on a possible R entry later in the
		// section; resolved when V closes it.
		p.cur.freqTok = tok
		p.cur.freqVal = val
		p.cur.have |= havePWLEFreq

	case pwleSpecChirp:
		if p.cur.have&havePWLEChirp != 0 {
			return errors.Duplicate(tok, "C entry in section")
		}
		v, err := fixed.ParseBool(val)
		if err != nil {
			return errors.Range(tok, "chirp flag", val, 0, 1)
		}
		p.cur.chirp = v
		p.cur.have |= havePWLEChirp

	case pwleSpecBrake:
		if p.cur.have&havePWLEBrake != 0 {
			return errors.Duplicate(tok, "B entry in section")
		}
		v, err := fixed.ParseBool(val)
		if err != nil {
			return errors.Range(tok, "braking flag", val, 0, 1)
		}
		p.cur.brake = v
		p.cur.have |= havePWLEBrake

	case pwleSpecAmpReg:
		if p.cur.have&havePWLEAmpReg != 0 {
			return errors.Duplicate(tok, "AR entry in section")
		}
		v, err := fixed.ParseBool(val)
		if err != nil {
			return errors.Range(tok, "amplitude regulation flag", val, 0, 1)
		}
		p.cur.ampReg = v
		p.cur.have |= havePWLEAmpReg

	case pwleSpecRelFreq:
		if p.cur.have&havePWLERelFreq != 0 {
			return errors.Duplicate(tok, "R entry in section")
		}
		v, err := fixed.ParseBool(val)
		if err != nil {
			return errors.Range(tok, "relative frequency flag", val, 0, 1)
		}
		p.cur.relative = v
		p.cur.have |= havePWLERelFreq

	case pwleSpecVbTarget:
		return p.closeSection(tok, val)

	default:
		return errors.Parse(tok, "unrecognized entry")
	}

	p.hasPending = false
	p.pos++
	return nil
}

// closeSection validates the accumulated section against its terminating V
// entry and appends it to the table.
func (p *pwle) closeSection(tok, val string) error {
	if p.cur.have&pwleRequired != pwleRequired {
		return errors.IncompleteSection(len(p.sections),
			"V before section complete, missing "+p.cur.missing())
	}

	sec := pwleSection{
		time:  p.cur.time,
		level: p.cur.level,
		flags: pwleFlagReserved,
	}
	if p.cur.chirp {
		sec.flags |= pwleFlagChirp
	}
	if p.cur.brake {
		sec.flags |= pwleFlagBrake
	}
	if p.cur.ampReg {
		sec.flags |= pwleFlagAmpReg
	}
	if p.cur.relative {
		sec.flags |= pwleFlagRelFreq
	}

	freq, err := p.resolveFreq()
	if err != nil {
		return err
	}
	sec.freq = freq

	vb, err := fixed.Parse(val, maxVbTargetRaw, 0, maxVbTargetRaw)
	if err != nil {
		return pwleNumErr(err, tok, "back-EMF target", vb, 0, maxVbTargetRaw)
	}
	if vb != 0 && !p.cur.ampReg {
		return errors.New(errors.PhaseValidate, errors.KindRange).
			Token(tok).
			Section(len(p.sections)).
			Value(vb).
			Detail("back-EMF target requires AR:1").
			Build()
	}
	if p.cur.ampReg {
		sec.vbTarget = uint32(vb)
	}

	if len(p.sections) >= MaxSections {
		return errors.Capacity("section table", len(p.sections)+1, MaxSections)
	}
	p.sections = append(p.sections, sec)
	p.cur = pwleSectionState{}
	p.hasPending = false
	p.pos++
	return nil
}

// resolveFreq interprets the stored F value. With R:1 it is a signed offset
// from the tracked resonant frequency; otherwise an absolute frequency, where
// zero (follow resonant frequency) is legal only when an R entry was present.
func (p *pwle) resolveFreq() (int16, error) {
	if p.cur.relative {
		v, err := fixed.Parse(p.cur.freqVal, 4, minRelFreqRaw, maxRelFreqRaw)
		if err != nil {
			return 0, pwleNumErr(err, p.cur.freqTok, "relative frequency", v, minRelFreqRaw, maxRelFreqRaw)
		}
		return int16(v), nil
	}

	v, err := fixed.Parse(p.cur.freqVal, 4, 0, maxFreqRaw)
	if err != nil {
		return 0, pwleNumErr(err, p.cur.freqTok, "frequency", v, 0, maxFreqRaw)
	}
	if v == 0 && p.cur.have&havePWLERelFreq == 0 {
		return 0, errors.New(errors.PhaseValidate, errors.KindRange).
			Token(p.cur.freqTok).
			Section(len(p.sections)).
			Detail("frequency 0 is legal only in the extended form with an R entry").
			Build()
	}
	return int16(v), nil
}

// wlength derives the 24-bit length word: total quarter-ms across all
// repeats, doubled, with the indefinite and length-calculated tag bits.
func (p *pwle) wlength() uint32 {
	wl := (p.timeSum + uint32(p.wait)) * (uint32(p.repeat) + 1)
	wl -= uint32(p.wait)
	wl *= 2
	wl &= lenValueMask
	if p.indef {
		wl |= lenIndefinite
	}
	return wl | lenCalculated
}

// dataWords counts the 24-bit words following the header word.
func (p *pwle) dataWords() uint32 {
	bits := 52 // wlength + repeat + wait + section count
	for i := range p.sections {
		bits += 48
		if p.sections[i].flags&pwleFlagAmpReg != 0 {
			bits += 24
		}
	}
	if p.feature&FeatureMetadata != 0 {
		if p.svc != nil {
			bits += 48
		}
		if p.ep != nil {
			bits += 24
			if p.ep.custom {
				bits += 24
			}
		}
		bits += 24 // terminator
	}
	return uint32((bits + wordBits - 1) / wordBits)
}

func (p *pwle) encode(dst []byte) (int, error) {
	bs := NewBitstream(dst)

	var err error
	w := func(nbits int, v uint32) {
		if err == nil {
			err = bs.Write(nbits, v)
		}
	}

	w(8, uint32(p.feature))
	w(4, pwleFormatID)
	w(4, pwleHeaderWords)
	w(8, p.dataWords())

	w(24, p.wlength())
	w(8, uint32(p.repeat))
	w(12, uint32(p.wait))
	w(8, uint32(len(p.sections)))

	for i := range p.sections {
		sec := &p.sections[i]
		w(16, uint32(sec.time))
		w(12, uint32(uint16(sec.level))&0xFFF)
		w(12, uint32(uint16(sec.freq))&0xFFF)
		w(8, uint32(sec.flags))
		if sec.flags&pwleFlagAmpReg != 0 {
			w(24, sec.vbTarget)
		}
	}

	if p.feature&FeatureMetadata != 0 {
		if p.svc != nil {
			w(8, svcMetadataID)
			w(8, 1)
			w(8, uint32(uint8(p.svc.mode)))
			w(24, p.svc.brakeRaw)
		}
		if p.ep != nil {
			w(8, epMetadataID)
			if p.ep.custom {
				w(8, 1)
				w(8, uint32(p.ep.payload))
				w(24, p.ep.threshold)
			} else {
				w(8, 0)
				w(8, uint32(p.ep.payload))
			}
		}
		w(24, pwleTerminator)
	}

	if err != nil {
		return 0, err
	}
	if err := bs.Flush(); err != nil {
		return 0, err
	}

	return bs.Len(), nil
}

// CompilePWLE compiles a Type-12 PWLE waveform string into dst and returns
// the number of bytes written.
func CompilePWLE(dst []byte, s string) (int, error) {
	var p pwle

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if err := p.decode(tok); err != nil {
			return 0, err
		}
	}

	if p.hasPending {
		return 0, errors.Parse("", "waveform ends expecting "+pwleSpecName[p.pending]+" entry")
	}
	if p.pos < len(pwleHeaderOrder) {
		return 0, errors.Parse(s, "waveform header incomplete")
	}
	if p.cur.have != 0 {
		return 0, errors.IncompleteSection(len(p.sections),
			"waveform ends with section incomplete, missing "+p.cur.missing())
	}
	if len(p.sections) < 2 {
		return 0, errors.Parse(s, "PWLE waveform requires at least two sections")
	}

	return p.encode(dst)
}

// pwleNumErr maps a fixed-point parse failure onto the structured error for
// a PWLE numeric field.
func pwleNumErr(err error, tok, field string, v, lo, hi int) error {
	if err == fixed.ErrRange {
		return errors.Range(tok, field, v, lo, hi)
	}
	return errors.Parse(tok, "invalid "+field)
}
