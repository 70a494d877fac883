package capture

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/mrcyclo/nestopia/internal/core"
)

// FFmpegSource captures a host input device through ffmpeg, normalizing it
// to the core's microphone layout (s16le mono at core.MicInfo.Rate).
type FFmpegSource struct {
	bin    string
	format string // ffmpeg input format, e.g. "pulse", "alsa", "avfoundation"
	device string
	logger *zap.Logger
	fwd    forwarder

	mu        sync.Mutex
	state     string
	lastError string
	cancel    context.CancelFunc
}

// NewFFmpegSource creates an ffmpeg-based capture source for device.
func NewFFmpegSource(format, device string, sink Sink, logger *zap.Logger) *FFmpegSource {
	return &FFmpegSource{
		bin:    "ffmpeg",
		format: format,
		device: device,
		logger: logger.With(zap.String("captureDevice", device)),
		fwd:    forwarder{sink: sink, info: core.MicInfo},
		state:  StateStopped,
	}
}

func (f *FFmpegSource) args() []string {
	args := []string{
		"-nostdin",
		"-hide_banner", "-loglevel", "error",
	}
	if f.format != "" {
		args = append(args, "-f", f.format)
	}
	return append(args,
		"-i", f.device,
		"-vn",
		"-ac", strconv.Itoa(f.fwd.info.Channels),
		"-ar", strconv.Itoa(f.fwd.info.Rate),
		"-f", "s16le",
		"pipe:1",
	)
}

// Start begins capturing. Blocks until the input ends, ctx is cancelled, or Stop is called.
func (f *FFmpegSource) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateRunning || f.state == StateStarting {
		f.mu.Unlock()
		return fmt.Errorf("capture already running")
	}
	f.state = StateStarting
	f.lastError = ""

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()

	defer cancel()

	cmd := exec.CommandContext(runCtx, f.bin, f.args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		f.setError(fmt.Sprintf("stdout pipe: %v", err))
		return err
	}

	if err := cmd.Start(); err != nil {
		f.setError(fmt.Sprintf("ffmpeg start: %v", err))
		return err
	}

	f.mu.Lock()
	f.state = StateRunning
	f.mu.Unlock()

	f.logger.Info("capture started", zap.Strings("args", f.args()))

	readErr := f.fwd.run(runCtx, stdout)
	waitErr := cmd.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()

	if runCtx.Err() != nil {
		f.state = StateStopped
		f.logger.Info("capture stopped", zap.Int64("blocks", f.fwd.blocks.Load()))
		return nil
	}

	if readErr != nil || waitErr != nil {
		errMsg := ""
		if readErr != nil {
			errMsg = readErr.Error()
		} else {
			errMsg = waitErr.Error()
		}
		f.state = StateError
		f.lastError = errMsg
		f.logger.Warn("capture error", zap.String("error", errMsg))
		return fmt.Errorf("capture failed: %s", errMsg)
	}

	f.state = StateStopped
	f.logger.Info("capture completed (input ended)",
		zap.Int64("blocks", f.fwd.blocks.Load()))
	return nil
}

// Stop terminates the capture. Idempotent.
func (f *FFmpegSource) Stop() {
	f.mu.Lock()
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close stops the capture. ffmpeg owns the device, so there is nothing else
// to release.
func (f *FFmpegSource) Close() error {
	f.Stop()
	return nil
}

// Status returns a snapshot of current capture state.
func (f *FFmpegSource) Status() Status {
	f.mu.Lock()
	state := f.state
	lastErr := f.lastError
	f.mu.Unlock()

	return Status{
		State:     state,
		Input:     f.device,
		Blocks:    f.fwd.blocks.Load(),
		Samples:   f.fwd.samples.Load(),
		LastError: lastErr,
	}
}

func (f *FFmpegSource) setError(msg string) {
	f.mu.Lock()
	f.state = StateError
	f.lastError = msg
	f.mu.Unlock()
}
