// Package device abstracts the host audio output. A device pulls signed
// 16-bit little-endian PCM from an io.Reader on its own schedule.
package device

import (
	"errors"
	"fmt"
	"io"
)

// DefaultPeriod is the device callback size in frames.
const DefaultPeriod = 512

// ErrUnavailable is returned when no output device can be opened.
var ErrUnavailable = errors.New("device: audio output unavailable")

// Spec is a requested or obtained stream layout.
type Spec struct {
	Rate     int
	Channels int
	Samples  int // frames per device period
}

func (s Spec) String() string {
	return fmt.Sprintf("%dHz/%dch/%d", s.Rate, s.Channels, s.Samples)
}

// Device is an audio output stream. Open registers src as the pull source and
// leaves the stream paused. The returned Spec is what the platform granted,
// which may differ from want.
type Device interface {
	Open(want Spec, src io.Reader) (Spec, error)
	Pause(paused bool)
	Close() error
}
