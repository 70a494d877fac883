// Package drift decides how hard the resampler should stretch each incoming
// block so the playback buffer hovers just above a low-latency setpoint.
//
// Only a shortage is corrected. A buffer at or above the setpoint passes
// audio through at ratio 1.0 and producer back-pressure bounds the other side,
// so playback never runs slower than real time.
package drift

// DefaultSetpoint is the number of emulated frames of audio kept queued.
const DefaultSetpoint = 3

// Controller is a proportional controller on buffer occupancy.
type Controller struct {
	Setpoint int
}

// Target is the conversion request for one ingest block.
type Target struct {
	FramesQueued int
	Deficit      int
	OutputFrames int
	Ratio        float64
}

// New returns a controller with the given setpoint, falling back to
// DefaultSetpoint for non-positive values.
func New(setpoint int) Controller {
	if setpoint <= 0 {
		setpoint = DefaultSetpoint
	}
	return Controller{Setpoint: setpoint}
}

// Compute derives the output frame count and ratio for a block of inputFrames.
// buffered and spf are both counted in samples so their quotient is whole
// emulated frames. rate is the nominal output rate in Hz and frameRate the
// core's frames per second.
func (c Controller) Compute(buffered, spf, inputFrames, rate int, frameRate float64) Target {
	t := Target{OutputFrames: inputFrames, Ratio: 1.0}
	if spf <= 0 || rate <= 0 {
		return t
	}

	t.FramesQueued = buffered / spf
	if t.FramesQueued >= c.Setpoint {
		return t
	}

	t.Deficit = c.Setpoint - t.FramesQueued
	t.OutputFrames = inputFrames + t.Deficit
	t.Ratio = (float64(rate) + frameRate*float64(t.Deficit)) / float64(rate)
	return t
}
