package ffdevice

import (
	"unsafe"
)

// Event types and force-feedback effect codes from the Linux input
// interface.
const (
	evFF = 0x15

	ffPeriodic = 0x51
	ffSine     = 0x58
	ffCustom   = 0x5d
	ffGain     = 0x60
	ffMax      = 0x7f
	ffCnt      = ffMax + 1
)

// NewEffect requests a fresh effect slot from the driver on upload.
const NewEffect = -1

// ffEnvelope mirrors struct ff_envelope.
type ffEnvelope struct {
	AttackLength uint16
	AttackLevel  uint16
	FadeLength   uint16
	FadeLevel    uint16
}

// ffPeriodicEffect mirrors struct ff_periodic_effect. The explicit pad
// keeps CustomLen at its C offset.
type ffPeriodicEffect struct {
	Waveform   uint16
	Period     uint16
	Magnitude  int16
	Offset     int16
	Phase      uint16
	Envelope   ffEnvelope
	_          uint16
	CustomLen  uint32
	CustomData *int16
}

type ffTrigger struct {
	Button   uint16
	Interval uint16
}

type ffReplay struct {
	Length uint16
	Delay  uint16
}

// ffEffect mirrors struct ff_effect with the periodic arm of its union,
// the only one the custom upload path uses.
type ffEffect struct {
	Type      uint16
	ID        int16
	Direction uint16
	Trigger   ffTrigger
	Replay    ffReplay
	Periodic  ffPeriodicEffect
}

// inputEvent mirrors struct input_event on 64-bit kernels.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// ioc assembles an ioctl request number. dir is 1 for write, 2 for read.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | typ<<8 | nr
}

var (
	eviocSFF    = ioc(1, 'E', 0x80, unsafe.Sizeof(ffEffect{}))
	eviocRMFF   = ioc(1, 'E', 0x81, 4)
	eviocGBitFF = ioc(2, 'E', 0x20+evFF, ffCnt/8)
)

// GPIConfig packs a trigger-button assignment for an effect: a GPI line
// index in bits 12..14 and the active edge in bit 15.
func GPIConfig(rising bool, index uint8) uint16 {
	cfg := uint16(index&0x7) << 12
	if rising {
		cfg |= 1 << 15
	}
	return cfg
}

// packWords converts packed waveform bytes to the little-endian 16-bit
// words of the custom-data payload.
func packWords(data []byte) []int16 {
	words := make([]int16, (len(data)+1)/2)
	for i, b := range data {
		if i%2 == 0 {
			words[i/2] = int16(b)
		} else {
			words[i/2] |= int16(uint16(b) << 8)
		}
	}
	return words
}

// hasCapability tests one bit in an EVIOCGBIT capability mask.
func hasCapability(bits []byte, code uint) bool {
	return bits[code/8]&(1<<(code%8)) != 0
}
