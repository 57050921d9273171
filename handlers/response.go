package handlers

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Minimum response size to consider compression (1KB)
const compressionThreshold = 1024

// RespondWithJSON writes payload as JSON, gzip-compressed when the client
// accepts it and the body is large enough.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal JSON response", "error", err, "payload_type", fmt.Sprintf("%T", payload))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.Header().Add("Vary", "Accept-Encoding")

	shouldCompress := len(data) >= compressionThreshold &&
		strings.Contains(strings.ToLower(r.Header.Get("Accept-Encoding")), "gzip")

	if !shouldCompress {
		w.WriteHeader(code)
		if _, err := w.Write(data); err != nil {
			logger.Debug("Failed to write response", "error", err)
		}
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(code)

	gz := gzip.NewWriter(w)
	if _, err := gz.Write(data); err != nil {
		logger.Debug("Failed to write compressed response", "error", err)
	}
	if err := gz.Close(); err != nil {
		logger.Debug("Failed to flush compressed response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	RespondWithJSON(w, r, logger, code, errorResponse)
}
