package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownKey = errors.New("settings: unknown key")
	ErrBadValue   = errors.New("settings: bad value")
)

// Handler applies a new value for one setting.
type Handler func(value json.RawMessage) error

// Router dispatches setting changes to registered handlers.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRouter creates a new settings router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register adds a handler for a setting key.
func (r *Router) Register(key string, h Handler) {
	r.mu.Lock()
	r.handlers[key] = h
	r.mu.Unlock()
}

// Keys returns the registered keys in sorted order.
func (r *Router) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply routes value to the handler for key.
func (r *Router) Apply(key string, value json.RawMessage) error {
	r.mu.RLock()
	h, ok := r.handlers[key]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return h(value)
}

// Dispatch parses a raw change message and routes it to the matching handler.
func (r *Router) Dispatch(raw []byte) error {
	var c Change
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("%w: unmarshal change: %v", ErrBadValue, err)
	}
	return r.Apply(c.Key, c.Value)
}
