package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

type errorResponse struct {
	Status      string `json:"status"`
	Error       string `json:"error"`
	Description string `json:"description"`
}

type okResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, f failure) {
	writeJSON(w, f.status, errorResponse{Status: statusError, Error: f.code, Description: f.description})
}

var errBodyTooLarge = errors.New("request body too large")

// decodeJSON reads a single JSON object. An absent or empty body decodes as
// the zero value so that missing fields are reported by the caller.
// Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &tooLarge):
			return errBodyTooLarge
		}
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
