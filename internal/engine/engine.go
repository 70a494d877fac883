// Package engine bridges an emulation core, which produces one block of
// samples per emulated frame, to a fixed-rate output device. Samples pass
// through a drift-compensating converter into a bounded ring that the device
// drains on its own clock.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mrcyclo/nestopia/internal/audio"
	"github.com/mrcyclo/nestopia/internal/core"
	"github.com/mrcyclo/nestopia/internal/device"
	"github.com/mrcyclo/nestopia/internal/drift"
	"github.com/mrcyclo/nestopia/internal/metrics"
	"github.com/mrcyclo/nestopia/internal/resample"
	"github.com/mrcyclo/nestopia/internal/ringbuffer"
)

var (
	ErrClosed   = errors.New("engine: closed")
	ErrBadSpeed = errors.New("engine: speed must be at least 1")
)

// Options tunes an Engine. Zero values select defaults.
type Options struct {
	Capacity int              // ring size in samples
	Quality  resample.Quality // converter kernel
	Setpoint int              // frames of audio to keep queued
	Period   int              // device period in frames
	Muted    bool
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	Buffered        int     `json:"buffered"`
	Capacity        int     `json:"capacity"`
	FramesQueued    int     `json:"framesQueued"`
	Ratio           float64 `json:"ratio"`
	Muted           bool    `json:"muted"`
	Paused          bool    `json:"paused"`
	Quality         string  `json:"quality"`
	Speed           int     `json:"speed"`
	UnderrunSamples int64   `json:"underrunSamples"`
	ClippedSamples  int64   `json:"clippedSamples"`
	Device          string  `json:"device"`
}

// Engine owns the ring, the converter and the output device.
//
// mu is the device lock: it serializes the whole ingest sequence against
// every pop made on behalf of the device. space is signalled whenever
// samples are drained and when the engine closes.
type Engine struct {
	logger *zap.Logger
	core   core.Core
	dev    device.Device
	ctrl   drift.Controller

	want      device.Spec
	got       device.Spec
	baseRatio float64

	mu           sync.Mutex
	space        *sync.Cond
	ring         *ringbuffer.Buffer
	conv         *resample.Converter
	quality      resample.Quality
	speed        int
	in           []float32
	out          []float32
	scratch      []int16
	framesQueued int
	lastRatio    float64
	underruns    int64
	clipped      int64
	paused       bool
	closed       bool

	muted atomic.Bool
	entry atomic.Value // core.AudioFunc
}

// New builds an engine for c and opens dev with the core's stream layout.
// If dev cannot be opened, or grants a different channel count, the engine
// falls back to a null device so the producer keeps being paced. The device
// is left paused.
func New(c core.Core, dev device.Device, opts Options, logger *zap.Logger) (*Engine, error) {
	info := c.AudioInfo()
	if info.Rate <= 0 || info.Channels < 1 {
		return nil, fmt.Errorf("invalid audio info: rate=%d channels=%d", info.Rate, info.Channels)
	}
	if opts.Capacity <= 0 {
		opts.Capacity = ringbuffer.DefaultCapacity
	}
	if opts.Period <= 0 {
		opts.Period = device.DefaultPeriod
	}

	conv, err := resample.New(opts.Quality, info.Channels)
	if err != nil {
		return nil, fmt.Errorf("create converter: %w", err)
	}

	e := &Engine{
		logger:    logger,
		core:      c,
		ctrl:      drift.New(opts.Setpoint),
		ring:      ringbuffer.New(opts.Capacity),
		conv:      conv,
		quality:   opts.Quality,
		speed:     1,
		in:        make([]float32, opts.Capacity),
		out:       make([]float32, opts.Capacity),
		scratch:   make([]int16, opts.Period*info.Channels),
		lastRatio: 1.0,
		paused:    true,
		want: device.Spec{
			Rate:     info.Rate,
			Channels: info.Channels,
			Samples:  opts.Period,
		},
	}
	e.space = sync.NewCond(&e.mu)

	if err := e.openDevice(dev); err != nil {
		return nil, err
	}

	e.Mute(opts.Muted)

	logger.Info("audio engine started",
		zap.Int("capacity", opts.Capacity),
		zap.Stringer("quality", opts.Quality),
		zap.Int("spf", info.SPF),
		zap.Float64("frameRate", c.FrameRate()),
		zap.Stringer("device", e.got),
	)
	return e, nil
}

func (e *Engine) openDevice(dev device.Device) error {
	got, err := dev.Open(e.want, e)
	if err == nil && got.Channels != e.want.Channels {
		dev.Close()
		err = fmt.Errorf("%w: device granted %d channels, want %d", device.ErrUnavailable, got.Channels, e.want.Channels)
	}
	if err != nil {
		e.logger.Warn("audio device unavailable, using null output", zap.Error(err))
		metrics.DeviceOpenFailuresTotal.Inc()

		dev = device.NewNull(e.logger)
		got, err = dev.Open(e.want, e)
		if err != nil {
			return fmt.Errorf("open null device: %w", err)
		}
	}
	if got.Rate <= 0 {
		got.Rate = e.want.Rate
	}

	e.dev = dev
	e.got = got
	e.baseRatio = float64(got.Rate) / float64(e.want.Rate)
	if got.Rate != e.want.Rate {
		e.logger.Warn("device rate differs from core rate",
			zap.Int("want", e.want.Rate),
			zap.Int("got", got.Rate),
			zap.Float64("baseRatio", e.baseRatio),
		)
	}
	return nil
}

// Push hands one block of emulated audio to the active ingest entry point.
func (e *Engine) Push(block []int16) {
	if fn, ok := e.entry.Load().(core.AudioFunc); ok {
		fn(block)
	}
}

// Mute swaps the ingest entry point. A muted engine discards produced audio;
// samples already buffered still drain.
func (e *Engine) Mute(m bool) {
	e.muted.Store(m)
	fn := core.AudioFunc(e.queue)
	if m {
		fn = e.nullQueue
		metrics.Muted.Set(1)
	} else {
		metrics.Muted.Set(0)
	}
	e.entry.Store(fn)

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if !closed {
		e.core.SetAudioCallback(fn)
	}
}

// Muted reports whether produced audio is being discarded.
func (e *Engine) Muted() bool { return e.muted.Load() }

func (e *Engine) nullQueue(block []int16) {
	metrics.IngestBlocksTotal.WithLabelValues("muted").Inc()
}

// queue converts one block into the ring. It blocks while the ring cannot
// take another frame, unless the ring is empty.
func (e *Engine) queue(block []int16) {
	info := e.core.AudioInfo()
	frameRate := e.core.FrameRate()
	ch := info.Channels
	if ch < 1 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	spf := info.SPF / e.speed
	devSPF := int(float64(spf) * e.baseRatio)

	if e.ring.Len() > 0 && e.ring.Len()+devSPF >= e.ring.Cap() {
		metrics.BackpressureWaitsTotal.Inc()
		start := time.Now()
		for !e.closed && e.ring.Len() > 0 && e.ring.Len()+devSPF >= e.ring.Cap() {
			e.space.Wait()
		}
		metrics.BackpressureWait.Observe(time.Since(start).Seconds())
		if e.closed {
			return
		}
	}

	n := len(block) / e.speed
	n -= n % ch
	frames := n / ch
	if frames == 0 {
		return
	}

	t := e.ctrl.Compute(e.ring.Len(), devSPF, frames, info.Rate, frameRate)
	ratio := t.Ratio * e.baseRatio
	outFrames := t.OutputFrames
	if e.baseRatio != 1 {
		outFrames = int(math.Ceil(float64(frames) * ratio))
	}

	if cap(e.in) < n {
		e.in = make([]float32, n)
	}
	if cap(e.out) < outFrames*ch {
		e.out = make([]float32, outFrames*ch)
	}
	d := resample.Data{
		In:           audio.ShortToFloat(block[:n], e.in),
		Out:          e.out[:outFrames*ch],
		InputFrames:  frames,
		OutputFrames: outFrames,
		Ratio:        ratio,
	}
	if err := e.conv.Process(&d); err != nil {
		e.logger.Error("resample failed", zap.Error(err), zap.Float64("ratio", ratio))
		return
	}

	limit := e.ring.Cap() - 1
	var clipped int64
	for _, f := range e.out[:d.OutputFramesGen*ch] {
		if e.ring.Len() >= limit {
			break
		}
		s, c := audio.FloatToShort(f)
		if c {
			clipped++
		}
		e.ring.Push(s)
	}

	e.framesQueued = t.FramesQueued
	e.lastRatio = ratio
	e.clipped += clipped

	metrics.IngestBlocksTotal.WithLabelValues("queued").Inc()
	metrics.BufferedSamples.Set(float64(e.ring.Len()))
	metrics.FramesQueued.Set(float64(t.FramesQueued))
	metrics.ResampleRatio.Set(ratio)
	if clipped > 0 {
		metrics.ClippedSamplesTotal.Add(float64(clipped))
	}
}

// Fill pops len(dst) samples for the device. Missing samples are silence.
func (e *Engine) Fill(dst []int16) {
	short := 0
	e.mu.Lock()
	if e.ring != nil {
		short = len(dst) - e.ring.Len()
		for i := range dst {
			dst[i] = e.ring.Pop()
		}
		if short > 0 {
			e.underruns += int64(short)
		}
	} else {
		for i := range dst {
			dst[i] = 0
		}
	}
	e.mu.Unlock()

	if short > 0 {
		metrics.UnderrunSamplesTotal.Add(float64(short))
	}
	e.space.Broadcast()
}

// Dequeue pops a single sample, or returns 0 when the ring is empty.
func (e *Engine) Dequeue() int16 {
	e.mu.Lock()
	var s int16
	if e.ring != nil {
		if e.ring.Len() == 0 {
			e.underruns++
			metrics.UnderrunSamplesTotal.Inc()
		}
		s = e.ring.Pop()
	}
	e.mu.Unlock()
	e.space.Broadcast()
	return s
}

// Read implements io.Reader for the device as signed 16-bit little-endian
// PCM. It never blocks and never fails; an odd trailing byte is left unread.
func (e *Engine) Read(p []byte) (int, error) {
	n := len(p) / 2
	for done := 0; done < n; {
		chunk := n - done
		if chunk > len(e.scratch) {
			chunk = len(e.scratch)
		}
		buf := e.scratch[:chunk]
		e.Fill(buf)
		audio.Int16ToBytesInto(buf, p[done*2:])
		done += chunk
	}
	return n * 2, nil
}

// Rehash rebuilds the converter with quality q. Buffered samples are kept.
// On failure the previous converter stays in place.
func (e *Engine) Rehash(q resample.Quality) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}

	conv, err := resample.New(q, e.want.Channels)
	if err != nil {
		metrics.RehashTotal.WithLabelValues("error").Inc()
		e.logger.Error("rehash failed", zap.Int("quality", int(q)), zap.Error(err))
		return fmt.Errorf("rehash: %w", err)
	}

	e.mu.Lock()
	e.conv = conv
	e.quality = q
	e.mu.Unlock()

	metrics.RehashTotal.WithLabelValues("ok").Inc()
	e.logger.Info("converter rebuilt", zap.Stringer("quality", q))
	return nil
}

// SetSpeed sets the fast-forward divisor applied to each ingest block.
func (e *Engine) SetSpeed(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrBadSpeed, n)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.speed = n
	return nil
}

// Pause stops or resumes the device pulling samples.
func (e *Engine) Pause(p bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.paused = p
	e.mu.Unlock()

	e.dev.Pause(p)
}

// Stats returns a snapshot of the engine state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		FramesQueued:    e.framesQueued,
		Ratio:           e.lastRatio,
		Muted:           e.muted.Load(),
		Paused:          e.paused,
		Quality:         e.quality.String(),
		Speed:           e.speed,
		UnderrunSamples: e.underruns,
		ClippedSamples:  e.clipped,
		Device:          e.got.String(),
	}
	if e.ring != nil {
		s.Buffered = e.ring.Len()
		s.Capacity = e.ring.Cap()
	}
	return s
}

// Close detaches from the core, pauses and closes the device, then releases
// the ring and converter. A producer blocked on back-pressure returns.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()
	e.space.Broadcast()

	e.core.SetAudioCallback(nil)
	e.dev.Pause(true)
	err := e.dev.Close()

	e.mu.Lock()
	e.ring = nil
	e.conv = nil
	e.mu.Unlock()
	e.space.Broadcast()

	metrics.BufferedSamples.Set(0)
	e.logger.Info("audio engine closed")
	if err != nil {
		return fmt.Errorf("close device: %w", err)
	}
	return nil
}
