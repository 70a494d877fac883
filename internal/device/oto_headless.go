//go:build headless

package device

import (
	"io"

	"go.uber.org/zap"
)

// Oto is unavailable in headless builds; Open always fails so callers fall
// back to Null.
type Oto struct {
	logger *zap.Logger
}

func NewOto(logger *zap.Logger) *Oto {
	return &Oto{logger: logger}
}

func (o *Oto) Open(want Spec, src io.Reader) (Spec, error) {
	return Spec{}, ErrUnavailable
}

func (o *Oto) Pause(paused bool) {}

func (o *Oto) Close() error { return nil }
