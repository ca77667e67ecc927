// Package api implements the REST and streaming surface of spec.md §6:
// admission, voice discovery, health, metrics, and the WebSocket
// streaming endpoint.
package api

import (
	"errors"
	"net/http"

	"github.com/lee-jian-hui/tts-system/internal/ttsservice"
)

// apiError is the JSON body returned for every non-2xx REST response.
type apiError struct {
	Error string `json:"error"`
}

// statusFor maps the ttsservice error taxonomy (spec.md §7) to an HTTP
// status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ttsservice.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ttsservice.ErrUnknownProvider), errors.Is(err, ttsservice.ErrUnknownVoice):
		return http.StatusNotFound
	case errors.Is(err, ttsservice.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ttsservice.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
