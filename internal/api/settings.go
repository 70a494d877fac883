package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mrcyclo/nestopia/internal/settings"
)

// maxSettingBody bounds a settings request body.
const maxSettingBody = 4 << 10

// PutSetting handles PUT /v1/audio/settings/{key}.
func (h *Handlers) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req SettingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSettingBody)).Decode(&req); err != nil || len(req.Value) == 0 {
		writeError(w, http.StatusBadRequest, "invalid request: value required")
		return
	}

	h.apply(w, r, func() error { return h.sess.Router.Apply(key, req.Value) })
}

// PostSetting handles POST /v1/audio/settings with a {"key","value"} body.
func (h *Handlers) PostSetting(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSettingBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	h.apply(w, r, func() error { return h.sess.Router.Dispatch(body) })
}

func (h *Handlers) apply(w http.ResponseWriter, r *http.Request, fn func() error) {
	err := fn()
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, settings.ErrUnknownKey):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, settings.ErrBadValue):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("apply setting failed",
			zap.Error(err),
			zap.String("requestId", GetRequestID(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, "apply setting failed")
	}
}
