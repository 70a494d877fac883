// Package settings routes runtime setting changes (mute, converter quality,
// fast-forward speed, pause) to the components that own them.
package settings

import (
	"encoding/json"
	"fmt"
)

// Setting keys.
const (
	KeyMute    = "mute"
	KeyQuality = "quality"
	KeySpeed   = "speed"
	KeyPause   = "pause"
)

// Change is a single keyed setting update.
type Change struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Bool decodes a boolean setting value.
func Bool(value json.RawMessage) (bool, error) {
	var v bool
	if err := json.Unmarshal(value, &v); err != nil {
		return false, fmt.Errorf("%w: expected boolean: %v", ErrBadValue, err)
	}
	return v, nil
}

// Int decodes an integer setting value.
func Int(value json.RawMessage) (int, error) {
	var v int
	if err := json.Unmarshal(value, &v); err != nil {
		return 0, fmt.Errorf("%w: expected integer: %v", ErrBadValue, err)
	}
	return v, nil
}
