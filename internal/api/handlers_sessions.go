package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/lee-jian-hui/tts-system/internal/audio"
	"github.com/lee-jian-hui/tts-system/internal/ttsservice"
)

// createSessionRequest is the body of POST /v1/tts/sessions (spec.md §6).
type createSessionRequest struct {
	Provider     string `json:"provider"`
	Voice        string `json:"voice"`
	Text         string `json:"text"`
	TargetFormat string `json:"target_format"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Language     string `json:"language,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	WSURL     string `json:"ws_url"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	sess, err := s.svc.CreateSession(r.Context(), ttsservice.CreateSessionRequest{
		ProviderID:     req.Provider,
		VoiceID:        req.Voice,
		Language:       req.Language,
		Text:           req.Text,
		TargetFormat:   audio.Format(req.TargetFormat),
		TargetSampleHz: req.SampleRateHz,
	}, originKey(r))
	if err != nil {
		var rl *ttsservice.RateLimitedError
		if errors.As(err, &rl) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfterSeconds())+1))
		}
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createSessionResponse{
		SessionID: sess.ID,
		WSURL:     "/v1/tts/stream/" + sess.ID,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Error: msg})
}

// originKey identifies the client for rate limiting. This gateway has
// no authentication layer (spec.md §1 Non-goals), so the remote
// address is the only origin signal available. The port is dropped so
// every connection from one host shares a key.
func originKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
