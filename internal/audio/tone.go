package audio

import "math"

const (
	ToneFrequency = 440.0
	ToneAmplitude = 8000
)

// Oscillator produces a continuous sine wave in successive blocks, keeping
// phase across calls so block boundaries are seamless.
type Oscillator struct {
	Frequency  float64
	SampleRate int
	Amplitude  float64
	Channels   int

	phase float64
}

// NewOscillator creates a sine oscillator at the given frequency and rate.
func NewOscillator(frequency float64, sampleRate, channels int) *Oscillator {
	if channels < 1 {
		channels = 1
	}
	return &Oscillator{
		Frequency:  frequency,
		SampleRate: sampleRate,
		Amplitude:  ToneAmplitude,
		Channels:   channels,
	}
}

// FillInto writes interleaved samples into dst, duplicating each value on
// every channel. A trailing partial frame is left untouched.
func (o *Oscillator) FillInto(dst []int16) {
	step := 2 * math.Pi * o.Frequency / float64(o.SampleRate)
	frames := len(dst) / o.Channels
	for i := 0; i < frames; i++ {
		s := int16(o.Amplitude * math.Sin(o.phase))
		for ch := 0; ch < o.Channels; ch++ {
			dst[i*o.Channels+ch] = s
		}
		o.phase += step
		if o.phase >= 2*math.Pi {
			o.phase -= 2 * math.Pi
		}
	}
}
