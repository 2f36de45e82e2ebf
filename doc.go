// Package owt compiles open wavetable (OWT) haptic waveform strings into the
// packed binary form a force-feedback driver accepts as custom effect data,
// and plays the result through the Linux input subsystem.
//
// The module is organized as focused packages:
//
//   - wavetable: the waveform compilers and the 24-bit packing layer
//   - ffdevice: evdev force-feedback upload, trigger and gain control
//   - errors: structured errors shared across the module
//   - cmd/owt: command line and interactive front end
//
// This package is a thin facade over wavetable for callers that only need
// string-to-bytes compilation.
package owt
