//go:build !headless

package device

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"
)

// oto allows a single context per process; later opens share it and get
// the first context's format back as their obtained spec.
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoSpec Spec
)

func ensureOtoContext(want Spec) (*oto.Context, Spec, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		return otoCtx, otoSpec, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   want.Rate,
		ChannelCount: want.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(want.Samples) * time.Second / time.Duration(want.Rate),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, Spec{}, err
	}
	<-ready

	otoCtx = ctx
	otoSpec = want
	return otoCtx, otoSpec, nil
}

// Oto plays through the platform mixer via ebitengine/oto.
type Oto struct {
	logger *zap.Logger

	mu     sync.Mutex
	player *oto.Player
}

// NewOto creates an unopened oto output.
func NewOto(logger *zap.Logger) *Oto {
	return &Oto{logger: logger}
}

func (o *Oto) Open(want Spec, src io.Reader) (Spec, error) {
	if want.Channels < 1 || want.Channels > 2 {
		return Spec{}, fmt.Errorf("%w: %d channels not supported", ErrUnavailable, want.Channels)
	}
	if want.Samples <= 0 {
		want.Samples = DefaultPeriod
	}

	ctx, got, err := ensureOtoContext(want)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		return Spec{}, fmt.Errorf("device already open")
	}

	p := ctx.NewPlayer(src)
	// Two device periods of internal buffering keeps latency close to the
	// engine's own ring.
	p.SetBufferSize(got.Samples * got.Channels * 2 * 2)
	o.player = p

	o.logger.Info("oto audio output opened",
		zap.Stringer("want", want),
		zap.Stringer("got", got),
	)
	return got, nil
}

func (o *Oto) Pause(paused bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return
	}
	if paused {
		o.player.Pause()
	} else {
		o.player.Play()
	}
}

func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}
