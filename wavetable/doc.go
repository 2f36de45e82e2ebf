// Package wavetable compiles open wavetable (OWT) waveform strings into the
// packed binary form consumed by the haptic driver's custom force-feedback
// upload path.
//
// Two waveform families are supported. Composite (Type 10) waveforms sequence
// references to waveforms already resident in the device's RAM, ROM or OWT
// wavetables, with delays and loop constructs. PWLE (Type 12) waveforms
// describe a piecewise-linear envelope of level and frequency sections.
// Compile dispatches on the first character of the string: PWLE strings open
// with the S save flag, everything else is Composite.
//
// The packed form is a stream of 24-bit words written most significant bit
// first with no alignment between fields; Bitstream implements that layout.
// All times are quantized to quarter milliseconds, levels to 1/2048 full
// scale, frequencies to quarter hertz.
package wavetable
