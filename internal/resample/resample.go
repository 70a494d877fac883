// Package resample is a block-oriented sample-rate converter whose ratio can
// change on every call. Interpolation is done by beep's Resampler; this
// package keeps the context frames and fractional read position between
// blocks so consecutive calls join without a seam. Quality levels use the
// libsamplerate numbering so existing settings files keep their meaning.
package resample

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/gopxl/beep/v2"
)

// Quality selects the interpolation order.
type Quality int

const (
	SincBest Quality = iota
	SincMedium
	SincFastest
	ZeroOrderHold
	Linear
)

// Ratio bounds accepted by Process.
const (
	MinRatio = 1.0 / 256
	MaxRatio = 256.0
)

var (
	ErrInvalidQuality  = errors.New("resample: invalid quality")
	ErrInvalidChannels = errors.New("resample: invalid channel count")
	ErrBadRatio        = errors.New("resample: ratio out of range")
)

var qualityNames = map[Quality]string{
	SincBest:      "sinc-best",
	SincMedium:    "sinc-medium",
	SincFastest:   "sinc-fastest",
	ZeroOrderHold: "zero-order-hold",
	Linear:        "linear",
}

func (q Quality) String() string {
	if s, ok := qualityNames[q]; ok {
		return s
	}
	return fmt.Sprintf("quality(%d)", int(q))
}

// ParseQuality accepts a level name ("sinc-best") or its number ("0").
func ParseQuality(s string) (Quality, error) {
	for q, name := range qualityNames {
		if name == s {
			return q, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || !Quality(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuality, s)
	}
	return Quality(n), nil
}

// Valid reports whether q names a known level.
func (q Quality) Valid() bool {
	_, ok := qualityNames[q]
	return ok
}

// order is the beep resampling quality: the interpolating polynomial runs
// through 2*order input frames. beep has no hold kernel, so ZeroOrderHold
// shares the two-point order with Linear.
func (q Quality) order() int {
	switch q {
	case SincBest:
		return 8
	case SincMedium:
		return 6
	case SincFastest:
		return 4
	default:
		return 1
	}
}

// Data describes one conversion call. In and Out hold interleaved frames.
type Data struct {
	In           []float32
	Out          []float32
	InputFrames  int
	OutputFrames int     // maximum frames to generate
	Ratio        float64 // output rate / input rate

	InputFramesUsed int // set by Process
	OutputFramesGen int // set by Process
}

// lane carries up to two interleaved channels through one beep Resampler.
type lane struct {
	first, second int // channel indexes; second == first for an odd tail
	frames        [][2]float64
}

// Converter is a stateful resampler. A Converter is not safe for concurrent
// use.
type Converter struct {
	order    int
	channels int
	lanes    []*lane

	held int     // context frames at the head of every lane
	pos  float64 // next output position, in frames from the head of the lanes

	scratch [][2]float64
	skip    [][2]float64
}

// New creates a converter at quality q for the given interleaved channel
// count.
func New(q Quality, channels int) (*Converter, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuality, int(q))
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	c := &Converter{
		order:    q.order(),
		channels: channels,
		skip:     make([][2]float64, 1),
	}
	for ch := 0; ch < channels; ch += 2 {
		l := &lane{first: ch, second: ch + 1}
		if l.second >= channels {
			l.second = ch
		}
		c.lanes = append(c.lanes, l)
	}
	return c, nil
}

// Process converts d.InputFrames frames from d.In into at most d.OutputFrames
// frames in d.Out at d.Ratio. Output positions advance by 1/d.Ratio input
// frames and stop at the end of the block; the fractional remainder carries
// into the next call. When the output limit cuts a block short, the unread
// input is dropped and the next call starts at the following block.
func (c *Converter) Process(d *Data) error {
	if math.IsNaN(d.Ratio) || d.Ratio < MinRatio || d.Ratio > MaxRatio {
		return fmt.Errorf("%w: %v", ErrBadRatio, d.Ratio)
	}
	ch := c.channels

	in := d.InputFrames
	if limit := len(d.In) / ch; in > limit {
		in = limit
	}
	if in < 0 {
		in = 0
	}
	outMax := d.OutputFrames
	if limit := len(d.Out) / ch; outMax > limit {
		outMax = limit
	}
	if outMax < 0 {
		outMax = 0
	}

	for _, l := range c.lanes {
		l.frames = l.frames[:c.held]
		for f := 0; f < in; f++ {
			base := f * ch
			l.frames = append(l.frames, [2]float64{
				float64(d.In[base+l.first]),
				float64(d.In[base+l.second]),
			})
		}
	}
	end := c.held + in

	step := 1 / d.Ratio
	avail := c.reachable(end, step)
	n := avail
	if n > outMax {
		n = outMax
	}

	if n > 0 {
		if cap(c.scratch) < n {
			c.scratch = make([][2]float64, n)
		}
		buf := c.scratch[:n]
		for _, l := range c.lanes {
			c.stream(l, step).Stream(buf)
			for k, f := range buf {
				d.Out[k*ch+l.first] = float32(f[0])
				if l.second != l.first {
					d.Out[k*ch+l.second] = float32(f[1])
				}
			}
		}
	}

	next := c.pos + float64(n)*step
	used := in
	if n < avail {
		used = clamp(int(math.Ceil(next))-c.held, 0, in)
		next = float64(end)
	}

	keep := clamp(int(next)-c.order, 0, end)
	for _, l := range c.lanes {
		copy(l.frames, l.frames[keep:end])
		l.frames = l.frames[:end-keep]
	}
	c.held = end - keep
	c.pos = next - float64(keep)

	d.InputFramesUsed = used
	d.OutputFramesGen = n
	return nil
}

// reachable counts the output positions pos, pos+step, ... that fall before
// end.
func (c *Converter) reachable(end int, step float64) int {
	limit := float64(end)
	if c.pos >= limit {
		return 0
	}
	n := int(math.Ceil((limit - c.pos) / step))
	for n > 0 && c.pos+float64(n-1)*step >= limit {
		n--
	}
	for c.pos+float64(n)*step < limit {
		n++
	}
	return n
}

// stream returns a beep Resampler over l whose next output sits at c.pos.
// beep always starts at position zero, so a nonzero start is reached by
// emitting one throwaway frame at ratio c.pos and then switching to step;
// SetRatio rescales the position so the next frame lands on c.pos.
func (c *Converter) stream(l *lane, step float64) *beep.Resampler {
	src := holdLast(l.frames)
	if c.pos <= 0 {
		return beep.ResampleRatio(c.order, step, src)
	}
	r := beep.ResampleRatio(c.order, c.pos, src)
	r.Stream(c.skip)
	r.SetRatio(step)
	return r
}

// holdLast streams frames and then repeats the last one forever, so the
// interpolation window at the end of a block sees a flat continuation rather
// than a drained stream.
func holdLast(frames [][2]float64) beep.Streamer {
	var last [2]float64
	if len(frames) > 0 {
		last = frames[len(frames)-1]
	}
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		n := copy(samples, frames)
		frames = frames[n:]
		for i := n; i < len(samples); i++ {
			samples[i] = last
		}
		return len(samples), true
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
