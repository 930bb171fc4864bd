package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fmueller/whisperd/internal/whisper"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

// writeError maps the whisper error kinds onto fixed responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, whisper.ErrModelNotReady):
		writeDetail(w, http.StatusServiceUnavailable, whisper.ErrModelNotReady.Error())
	case errors.Is(err, whisper.ErrTranscription):
		writeDetail(w, http.StatusInternalServerError, whisper.ErrTranscription.Error())
	default:
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}
