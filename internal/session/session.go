package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrcyclo/nestopia/internal/capture"
	"github.com/mrcyclo/nestopia/internal/core"
	"github.com/mrcyclo/nestopia/internal/device"
	"github.com/mrcyclo/nestopia/internal/engine"
	"github.com/mrcyclo/nestopia/internal/resample"
	"github.com/mrcyclo/nestopia/internal/settings"
)

// speedSetter and pauser are optional core capabilities. A core that
// implements them follows fast-forward and pause along with the engine.
type speedSetter interface {
	SetSpeed(n int)
}

type pauser interface {
	SetPaused(p bool)
}

// Session ties one core to its audio engine, optional capture input and
// settings router.
type Session struct {
	ID        string
	StartedAt time.Time
	Engine    *engine.Engine
	Router    *settings.Router

	logger  *zap.Logger
	core    core.Core
	capture capture.Source

	mu            sync.Mutex
	paused        bool
	stopped       bool
	captureCancel context.CancelFunc
	captureDone   chan struct{}
}

// Info is a snapshot of session state.
type Info struct {
	ID        string          `json:"id"`
	StartedAt time.Time       `json:"startedAt"`
	Paused    bool            `json:"paused"`
	Audio     engine.Stats    `json:"audio"`
	Capture   *capture.Status `json:"capture,omitempty"`
	Settings  []string        `json:"settings"`
}

// New starts an engine for c on dev and registers the audio settings.
// src may be nil when no capture input is configured. The session starts
// paused.
func New(c core.Core, dev device.Device, opts engine.Options, src capture.Source, logger *zap.Logger) (*Session, error) {
	id := uuid.NewString()
	logger = logger.With(zap.String("session", id))

	eng, err := engine.New(c, dev, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	s := &Session{
		ID:        id,
		StartedAt: time.Now(),
		Engine:    eng,
		Router:    settings.NewRouter(),
		logger:    logger,
		core:      c,
		capture:   src,
		paused:    true,
	}
	s.registerSettings()
	if pc, ok := c.(pauser); ok {
		pc.SetPaused(true)
	}

	logger.Info("session created", zap.Bool("capture", src != nil))
	return s, nil
}

func (s *Session) registerSettings() {
	s.Router.Register(settings.KeyMute, func(v json.RawMessage) error {
		m, err := settings.Bool(v)
		if err != nil {
			return err
		}
		s.Engine.Mute(m)
		s.logger.Info("mute changed", zap.Bool("muted", m))
		return nil
	})

	s.Router.Register(settings.KeyQuality, func(v json.RawMessage) error {
		q, err := parseQuality(v)
		if err != nil {
			return err
		}
		if err := s.Engine.Rehash(q); err != nil {
			return fmt.Errorf("%w: %w", settings.ErrBadValue, err)
		}
		return nil
	})

	s.Router.Register(settings.KeySpeed, func(v json.RawMessage) error {
		n, err := settings.Int(v)
		if err != nil {
			return err
		}
		if err := s.Engine.SetSpeed(n); err != nil {
			return fmt.Errorf("%w: %w", settings.ErrBadValue, err)
		}
		if ss, ok := s.core.(speedSetter); ok {
			ss.SetSpeed(n)
		}
		s.logger.Info("speed changed", zap.Int("speed", n))
		return nil
	})

	s.Router.Register(settings.KeyPause, func(v json.RawMessage) error {
		p, err := settings.Bool(v)
		if err != nil {
			return err
		}
		s.Pause(p)
		return nil
	})
}

// parseQuality accepts either the numeric level or the kernel name.
func parseQuality(v json.RawMessage) (resample.Quality, error) {
	if n, err := settings.Int(v); err == nil {
		return resample.Quality(n), nil
	}
	var name string
	if err := json.Unmarshal(v, &name); err != nil {
		return 0, fmt.Errorf("%w: expected quality number or name", settings.ErrBadValue)
	}
	q, err := resample.ParseQuality(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", settings.ErrBadValue, err)
	}
	return q, nil
}

// Pause stops or resumes playback. Resuming starts the capture input when
// the core wants audio input; pausing stops it.
func (s *Session) Pause(p bool) {
	s.mu.Lock()
	if s.stopped || s.paused == p {
		s.mu.Unlock()
		return
	}
	s.paused = p
	s.mu.Unlock()

	if pc, ok := s.core.(pauser); ok {
		pc.SetPaused(p)
	}
	s.Engine.Pause(p)

	if p {
		s.stopCapture()
	} else if s.capture != nil && s.core.WantsAudioInput() {
		s.startCapture()
	}
	s.logger.Info("pause changed", zap.Bool("paused", p))
}

func (s *Session) startCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.captureDone != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.captureCancel = cancel
	s.captureDone = done

	go func() {
		defer close(done)
		if err := s.capture.Start(ctx); err != nil {
			s.logger.Warn("capture ended with error", zap.Error(err))
		}
	}()
}

func (s *Session) stopCapture() {
	s.mu.Lock()
	cancel, done := s.captureCancel, s.captureDone
	s.captureCancel, s.captureDone = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	s.capture.Stop()
	cancel()
	<-done
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Info {
	s.mu.Lock()
	paused := s.paused
	s.mu.Unlock()

	info := Info{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		Paused:    paused,
		Audio:     s.Engine.Stats(),
		Settings:  s.Router.Keys(),
	}
	if s.capture != nil {
		st := s.capture.Status()
		info.Capture = &st
	}
	return info
}

// Running reports whether Stop has not been called yet.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// Stop tears the session down: capture first, then the engine. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.stopCapture()
	if s.capture != nil {
		if err := s.capture.Close(); err != nil {
			s.logger.Warn("capture close error", zap.Error(err))
		}
	}
	if err := s.Engine.Close(); err != nil {
		s.logger.Warn("engine close error", zap.Error(err))
	}
	s.logger.Info("session stopped", zap.Duration("uptime", time.Since(s.StartedAt)))
}
