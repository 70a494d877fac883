// Package capture forwards host audio input to the core. Blocks go straight
// to the core's data port; nothing is buffered or resampled on the way.
package capture

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mrcyclo/nestopia/internal/audio"
	"github.com/mrcyclo/nestopia/internal/core"
	"github.com/mrcyclo/nestopia/internal/metrics"
)

// State constants for capture source lifecycle.
const (
	StateStarting = "starting"
	StateRunning  = "running"
	StateStopped  = "stopped"
	StateError    = "error"
)

// Source is any capture input (ffmpeg device, pipe, file).
type Source interface {
	// Start begins capturing. Blocks until ctx is cancelled,
	// the input ends, or an error occurs.
	Start(ctx context.Context) error
	// Stop ends the current Start call. The source can be started again.
	// Idempotent.
	Stop()
	// Close releases the underlying input. Start fails after Close.
	Close() error
	// Status returns a snapshot of current capture state.
	Status() Status
}

// Status describes the current state of a capture source.
type Status struct {
	State     string `json:"state"`
	Input     string `json:"input"`
	Blocks    int64  `json:"blocks"`
	Samples   int64  `json:"samples"`
	LastError string `json:"lastError,omitempty"`
}

// Sink receives captured blocks. core.Core satisfies it.
type Sink interface {
	DataPush(kind core.DataKind, port int, info core.AudioInfo, samples []int16)
}

// forwarder reads s16le blocks and hands each to the sink.
type forwarder struct {
	sink Sink
	info core.AudioInfo

	blocks  atomic.Int64
	samples atomic.Int64
}

func (f *forwarder) blockBytes() int {
	n := f.info.SPF
	if n <= 0 || n > audio.MaxBlockSize {
		n = audio.MaxBlockSize
	}
	return n * 2
}

// run forwards blocks until r is exhausted or ctx is done. A short final
// block is forwarded as is. io.EOF is a normal end.
func (f *forwarder) run(ctx context.Context, r io.Reader) error {
	bufs := audio.AcquireBlockBuffers()
	defer audio.ReleaseBlockBuffers(bufs)
	raw := bufs.BytesBuf[:f.blockBytes()]

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := io.ReadFull(r, raw)
		if n >= 2 {
			f.forward(audio.BytesToInt16Into(raw[:n], bufs.SamplesBuf))
		}
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			return nil
		default:
			return err
		}
	}
}

func (f *forwarder) forward(samples []int16) {
	f.sink.DataPush(core.DataAudio, 0, f.info, samples)
	f.blocks.Add(1)
	f.samples.Add(int64(len(samples)))
	metrics.CaptureBlocksTotal.Inc()
}

// block is one read from a ReaderSource input. err is io.EOF at the normal
// end of the stream.
type block struct {
	samples []int16
	err     error
}

// ReaderSource captures from an arbitrary s16le stream, such as a pipe
// from an external recorder. A single reader goroutine lives from the first
// Start until Close; blocks read while no Start call is running are dropped.
type ReaderSource struct {
	name   string
	r      io.Reader
	logger *zap.Logger
	fwd    forwarder

	readOnce  sync.Once
	blocks    chan block
	closed    chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	state     string
	lastError string
	ended     error
	cancel    context.CancelFunc
}

// NewReaderSource creates a source that forwards blocks of info.SPF samples
// read from r.
func NewReaderSource(name string, r io.Reader, sink Sink, info core.AudioInfo, logger *zap.Logger) *ReaderSource {
	return &ReaderSource{
		name:   name,
		r:      r,
		logger: logger.With(zap.String("captureInput", name)),
		fwd:    forwarder{sink: sink, info: info},
		blocks: make(chan block),
		closed: make(chan struct{}),
		state:  StateStopped,
	}
}

func (s *ReaderSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateRunning || s.state == StateStarting {
		s.mu.Unlock()
		return fmt.Errorf("capture already running")
	}
	select {
	case <-s.closed:
		s.mu.Unlock()
		return fmt.Errorf("capture input closed")
	default:
	}
	if s.ended != nil {
		err := s.ended
		s.mu.Unlock()
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("capture failed: %w", err)
	}
	if ctx.Err() != nil {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateRunning
	s.lastError = ""
	s.mu.Unlock()
	defer cancel()

	s.readOnce.Do(func() { go s.read() })
	s.logger.Info("capture started")

	err := s.receive(runCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil && err != io.EOF {
		s.ended = err
		s.state = StateError
		s.lastError = err.Error()
		s.logger.Warn("capture error", zap.Error(err))
		return fmt.Errorf("capture failed: %w", err)
	}
	if err == io.EOF {
		s.ended = err
	}
	s.state = StateStopped
	s.logger.Info("capture stopped", zap.Int64("blocks", s.fwd.blocks.Load()))
	return nil
}

// receive forwards blocks from the reader goroutine until ctx is done, the
// source is closed, or the input ends.
func (s *ReaderSource) receive(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.closed:
			return nil
		case b := <-s.blocks:
			if len(b.samples) > 0 {
				s.fwd.forward(b.samples)
			}
			if b.err != nil {
				return b.err
			}
		}
	}
}

// read owns s.r. It exits after the input ends or fails, or on Close.
func (s *ReaderSource) read() {
	raw := make([]byte, s.fwd.blockBytes())
	for {
		n, err := io.ReadFull(s.r, raw)
		var b block
		if n >= 2 {
			b.samples = audio.BytesToInt16Into(raw[:n], make([]int16, n/2))
		}
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			b.err = io.EOF
		default:
			b.err = err
		}

		s.mu.Lock()
		live := s.state == StateRunning
		s.mu.Unlock()
		if !live && b.err == nil {
			continue
		}
		if !live {
			b.samples = nil
		}

		select {
		case s.blocks <- b:
		case <-s.closed:
			return
		}
		if b.err != nil {
			return
		}
	}
}

// Stop ends the running Start call without touching the input, so the
// source can be started again.
func (s *ReaderSource) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close stops the source and closes the input when it is an io.Closer,
// which unblocks a pending read. Idempotent.
func (s *ReaderSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.Stop()
		if c, ok := s.r.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

func (s *ReaderSource) Status() Status {
	s.mu.Lock()
	state := s.state
	lastErr := s.lastError
	s.mu.Unlock()

	return Status{
		State:     state,
		Input:     s.name,
		Blocks:    s.fwd.blocks.Load(),
		Samples:   s.fwd.samples.Load(),
		LastError: lastErr,
	}
}
