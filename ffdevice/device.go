package ffdevice

import (
	"os"
	"runtime"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/haptix-works/owt/errors"
)

// Device is an open force-feedback input device node.
type Device struct {
	f    *os.File
	path string
}

// Open opens an evdev device node and verifies it advertises the periodic
// and custom force-feedback effects the upload path relies on.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Device("open "+path, err)
	}

	d := &Device{f: f, path: path}

	var bits [ffCnt / 8]byte
	if err := d.ioctl(eviocGBitFF, unsafe.Pointer(&bits[0])); err != nil {
		f.Close()
		return nil, errors.Device("query force-feedback capabilities", err)
	}
	if !hasCapability(bits[:], ffPeriodic) || !hasCapability(bits[:], ffCustom) {
		f.Close()
		return nil, errors.Device(path+" does not support custom periodic effects", nil)
	}

	Logger().Debug("device opened", zap.String("path", path))
	return d, nil
}

// Close releases the device node. Uploaded effects are erased by the kernel
// when the descriptor closes.
func (d *Device) Close() error {
	if err := d.f.Close(); err != nil {
		return errors.Device("close "+d.path, err)
	}
	return nil
}

// UploadCustom uploads packed waveform bytes as a custom periodic effect
// and returns the effect id. Pass NewEffect to allocate a slot, or an id
// from a previous upload to edit that effect in place. A non-zero gpi
// (see GPIConfig) binds the effect to a hardware trigger line.
func (d *Device) UploadCustom(data []byte, gpi uint16, id int16) (int16, error) {
	newID, err := d.uploadWords(packWords(data), gpi, id)
	if err != nil {
		return 0, err
	}

	Logger().Debug("custom effect uploaded",
		zap.Int16("id", newID),
		zap.Int("bytes", len(data)),
		zap.Uint16("gpi", gpi))
	return newID, nil
}

// UploadBank uploads a bare bank/index reference, the two-word form the
// driver accepts for playing a resident waveform untouched.
func (d *Device) UploadBank(bank, index uint16, gpi uint16, id int16) (int16, error) {
	newID, err := d.uploadWords([]int16{int16(bank), int16(index)}, gpi, id)
	if err != nil {
		return 0, err
	}

	Logger().Debug("bank effect uploaded",
		zap.Int16("id", newID),
		zap.Uint16("bank", bank),
		zap.Uint16("index", index))
	return newID, nil
}

func (d *Device) uploadWords(words []int16, gpi uint16, id int16) (int16, error) {
	eff := ffEffect{
		Type: ffPeriodic,
		ID:   id,
	}
	eff.Trigger.Button = gpi
	eff.Periodic.Waveform = ffCustom
	eff.Periodic.CustomLen = uint32(len(words))
	if len(words) > 0 {
		eff.Periodic.CustomData = &words[0]
	}

	if err := d.ioctl(eviocSFF, unsafe.Pointer(&eff)); err != nil {
		return 0, errors.Device("upload custom effect", err)
	}
	runtime.KeepAlive(words)

	return eff.ID, nil
}

// UploadSine uploads a plain sine buzz. period is in milliseconds,
// magnitude scales 0..255 to full drive.
func (d *Device) UploadSine(period uint16, magnitude uint8, gpi uint16, id int16) (int16, error) {
	eff := ffEffect{
		Type: ffPeriodic,
		ID:   id,
	}
	eff.Trigger.Button = gpi
	eff.Periodic.Waveform = ffSine
	eff.Periodic.Period = period
	eff.Periodic.Magnitude = int16(uint32(magnitude) * 0x7FFF / 255)

	if err := d.ioctl(eviocSFF, unsafe.Pointer(&eff)); err != nil {
		return 0, errors.Device("upload sine effect", err)
	}

	Logger().Debug("sine effect uploaded",
		zap.Int16("id", eff.ID),
		zap.Uint16("period", period),
		zap.Uint8("magnitude", magnitude))
	return eff.ID, nil
}

// Trigger starts or stops playback of an uploaded effect.
func (d *Device) Trigger(id int16, play bool) error {
	var value int32
	if play {
		value = 1
	}
	if err := d.writeEvent(evFF, uint16(id), value); err != nil {
		return errors.Device("trigger effect", err)
	}

	Logger().Debug("effect triggered", zap.Int16("id", id), zap.Bool("play", play))
	return nil
}

// Erase removes an uploaded effect, freeing its slot.
func (d *Device) Erase(id int16) error {
	// EVIOCRMFF takes the effect id by value, not by pointer.
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), eviocRMFF, uintptr(id))
	if errno != 0 {
		return errors.Device("erase effect", errno)
	}

	Logger().Debug("effect erased", zap.Int16("id", id))
	return nil
}

// SetGain scales playback strength of all effects; pct is 0..100.
func (d *Device) SetGain(pct int) error {
	if pct < 0 || pct > 100 {
		return errors.Range("", "gain", pct, 0, 100)
	}
	gain := int32(0xFFFF * pct / 100)
	if err := d.writeEvent(evFF, ffGain, gain); err != nil {
		return errors.Device("set gain", err)
	}

	Logger().Debug("gain set", zap.Int("pct", pct))
	return nil
}

// Path returns the device node path the Device was opened with.
func (d *Device) Path() string {
	return d.path
}

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *Device) writeEvent(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	buf := (*[unsafe.Sizeof(inputEvent{})]byte)(unsafe.Pointer(&ev))[:]
	if _, err := d.f.Write(buf); err != nil {
		return err
	}
	return nil
}
