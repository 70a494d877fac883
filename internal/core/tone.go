package core

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mrcyclo/nestopia/internal/audio"
)

// NTSCFrameRate is the NES NTSC video frame rate.
const NTSCFrameRate = 60.0988

// ToneCore is a stand-in emulation core that emits a sine tone, one block per
// emulated frame, through the registered audio callback.
type ToneCore struct {
	logger    *zap.Logger
	frameRate float64

	mu        sync.Mutex
	info      AudioInfo
	osc       *audio.Oscillator
	block     []int16
	callback  AudioFunc
	speed     int
	paused    bool
	wantInput bool

	frames       atomic.Int64
	inputBlocks  atomic.Int64
	inputSamples atomic.Int64
}

// NewToneCore creates a tone core producing rate/frameRate frames per block.
func NewToneCore(rate, channels int, frameRate, toneHz float64, logger *zap.Logger) *ToneCore {
	if frameRate <= 0 {
		frameRate = NTSCFrameRate
	}
	if channels < 1 {
		channels = 1
	}
	if toneHz <= 0 {
		toneHz = audio.ToneFrequency
	}
	spf := int(math.Round(float64(rate)/frameRate)) * channels
	return &ToneCore{
		logger:    logger,
		frameRate: frameRate,
		info: AudioInfo{
			Format:   FormatInt16,
			Rate:     rate,
			Channels: channels,
			SPF:      spf,
		},
		osc:   audio.NewOscillator(toneHz, rate, channels),
		block: make([]int16, spf),
		speed: 1,
	}
}

func (c *ToneCore) AudioInfo() AudioInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *ToneCore) FrameRate() float64 { return c.frameRate }

func (c *ToneCore) SetAudioCallback(fn AudioFunc) {
	c.mu.Lock()
	c.callback = fn
	c.mu.Unlock()
}

func (c *ToneCore) WantsAudioInput() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wantInput
}

// SetWantsAudioInput toggles the audio-input hint.
func (c *ToneCore) SetWantsAudioInput(v bool) {
	c.mu.Lock()
	c.wantInput = v
	c.mu.Unlock()
}

func (c *ToneCore) DataPush(kind DataKind, port int, info AudioInfo, samples []int16) {
	if kind != DataAudio {
		return
	}
	c.inputBlocks.Add(1)
	c.inputSamples.Add(int64(len(samples)))
}

// InputStats returns how many captured blocks and samples the core received.
func (c *ToneCore) InputStats() (blocks, samples int64) {
	return c.inputBlocks.Load(), c.inputSamples.Load()
}

// SetSpeed sets how many frames are emulated per host frame (fast-forward).
func (c *ToneCore) SetSpeed(speed int) {
	if speed < 1 {
		speed = 1
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
}

// SetPaused stops or resumes the emulation loop.
func (c *ToneCore) SetPaused(p bool) {
	c.mu.Lock()
	c.paused = p
	c.mu.Unlock()
}

// Frames returns the number of frames emulated so far.
func (c *ToneCore) Frames() int64 { return c.frames.Load() }

// RunFrame emulates one frame and delivers its audio block.
func (c *ToneCore) RunFrame() {
	c.mu.Lock()
	fn := c.callback
	c.osc.FillInto(c.block)
	block := c.block
	c.mu.Unlock()

	c.frames.Add(1)
	if fn != nil {
		fn(block)
	}
}

// Run drives the emulation loop at the core's frame rate until ctx is done.
// The audio callback may block for back-pressure, which slows the loop.
func (c *ToneCore) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / c.frameRate))
	defer ticker.Stop()

	c.logger.Info("emulation loop started",
		zap.Float64("frameRate", c.frameRate),
		zap.Int("spf", c.AudioInfo().SPF),
	)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("emulation loop stopped", zap.Int64("frames", c.frames.Load()))
			return
		case <-ticker.C:
			c.mu.Lock()
			speed, paused := c.speed, c.paused
			c.mu.Unlock()
			if paused {
				continue
			}
			for i := 0; i < speed; i++ {
				c.RunFrame()
			}
		}
	}
}
