package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
	Uptime  string `json:"uptime"`
}

// Health handles GET /healthz. A stopped session reports 503.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Session: h.sess.ID,
		Uptime:  time.Since(h.sess.StartedAt).Round(time.Second).String(),
	}
	if !h.sess.Running() {
		resp.Status = "stopped"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
