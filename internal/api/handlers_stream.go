package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lee-jian-hui/tts-system/internal/log"
	"github.com/lee-jian-hui/tts-system/internal/transport"
	"github.com/lee-jian-hui/tts-system/internal/ttsservice"
)

// handleStream upgrades GET /v1/tts/stream/{session_id} to a WebSocket
// and hands the connected transport to the StreamingQueue (spec.md
// §4.4, §6).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if _, err := s.store.Get(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	conn, err := transport.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithComponent("api").Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	t := transport.NewWSTransport(conn)

	if err := s.svc.Enqueue(sessionID, t); err != nil {
		_ = t.Send(transport.ErrorFrame(503, ttsservice.ErrQueueFull.Error()))
		_ = t.Close(transport.CloseTryAgain, "queue full")
		return
	}
}
