package device

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Null is a silent output that drains its source in real time. It keeps the
// producer paced like a sound card would when no hardware is available.
type Null struct {
	logger *zap.Logger

	mu     sync.Mutex
	spec   Spec
	src    io.Reader
	paused bool
	buf    []byte
	reads  int64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewNull creates a headless output.
func NewNull(logger *zap.Logger) *Null {
	return &Null{logger: logger, paused: true}
}

func (n *Null) Open(want Spec, src io.Reader) (Spec, error) {
	if want.Rate <= 0 || want.Channels < 1 {
		return Spec{}, fmt.Errorf("%w: invalid spec %s", ErrUnavailable, want)
	}
	if want.Samples <= 0 {
		want.Samples = DefaultPeriod
	}
	n.mu.Lock()
	n.spec = want
	n.src = src
	n.buf = make([]byte, want.Samples*want.Channels*2)
	n.done = make(chan struct{})
	n.mu.Unlock()

	period := time.Duration(want.Samples) * time.Second / time.Duration(want.Rate)
	n.wg.Add(1)
	go n.drainLoop(period)

	n.logger.Info("null audio output opened", zap.Stringer("spec", want))
	return want, nil
}

func (n *Null) drainLoop(period time.Duration) {
	defer n.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-n.done:
			return
		case <-ticker.C:
			n.mu.Lock()
			if !n.paused {
				n.src.Read(n.buf)
				n.reads++
			}
			n.mu.Unlock()
		}
	}
}

func (n *Null) Pause(paused bool) {
	n.mu.Lock()
	n.paused = paused
	n.mu.Unlock()
}

// Reads returns how many device periods have been pulled.
func (n *Null) Reads() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reads
}

func (n *Null) Close() error {
	n.mu.Lock()
	done := n.done
	n.done = nil
	n.mu.Unlock()

	if done != nil {
		close(done)
		n.wg.Wait()
	}
	return nil
}
