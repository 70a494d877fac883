// Package api serves the control API: health, metrics, session state and
// runtime audio settings.
package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mrcyclo/nestopia/internal/session"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	sess   *session.Session
	logger *zap.Logger
}

// NewHandlers creates handlers bound to a running session.
func NewHandlers(sess *session.Session, logger *zap.Logger) *Handlers {
	return &Handlers{sess: sess, logger: logger}
}

// GetSession handles GET /v1/session.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.Snapshot())
}
