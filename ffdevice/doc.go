// Package ffdevice uploads packed waveforms to a Linux force-feedback input
// device and controls playback through the evdev interface.
//
// Packed waveform bytes travel as FF_PERIODIC effects with an FF_CUSTOM
// waveform; plain sine buzzes use FF_SINE. Playback, stop and gain are
// EV_FF input events written to the device node.
package ffdevice
