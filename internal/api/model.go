package api

import (
	"encoding/json"
	"net/http"
)

// SettingRequest is the request body for PUT /v1/audio/settings/{key}.
type SettingRequest struct {
	Value json.RawMessage `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
