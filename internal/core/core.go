// Package core describes the boundary between the audio engine and an
// emulation core, and provides a synthetic core for demos and tests.
package core

// SampleFormat identifies the PCM encoding of a sample block.
type SampleFormat int

const (
	FormatInt16 SampleFormat = iota
)

// DataKind tags blocks pushed into the core through DataPush.
type DataKind int

const (
	DataAudio DataKind = iota
)

// AudioInfo describes an audio stream. SPF counts interleaved samples per
// emulated frame and may change at runtime (region or speed changes).
type AudioInfo struct {
	Format   SampleFormat
	Rate     int
	Channels int
	SPF      int
}

// MicInfo is the stream layout used for captured input: 48kHz mono,
// one 800-sample block per NTSC frame.
var MicInfo = AudioInfo{Format: FormatInt16, Rate: 48000, Channels: 1, SPF: 800}

// AudioFunc receives one block of freshly emulated samples. The slice is only
// valid for the duration of the call.
type AudioFunc func(samples []int16)

// Core is the subset of an emulation core the audio engine talks to.
type Core interface {
	// AudioInfo reports the current output stream characteristics.
	AudioInfo() AudioInfo
	// FrameRate reports emulated frames per second.
	FrameRate() float64
	// SetAudioCallback registers the function invoked once per emulated frame.
	SetAudioCallback(fn AudioFunc)
	// WantsAudioInput reports whether the loaded game consumes captured audio.
	WantsAudioInput() bool
	// DataPush forwards an input block (e.g. microphone audio) into the core.
	DataPush(kind DataKind, port int, info AudioInfo, samples []int16)
}
