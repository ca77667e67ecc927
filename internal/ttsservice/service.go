// Package ttsservice orchestrates session creation, admission, and the
// per-session streaming pipeline — the hardest component of spec.md
// §4.5.
package ttsservice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lee-jian-hui/tts-system/internal/audio"
	"github.com/lee-jian-hui/tts-system/internal/breaker"
	"github.com/lee-jian-hui/tts-system/internal/log"
	"github.com/lee-jian-hui/tts-system/internal/metrics"
	"github.com/lee-jian-hui/tts-system/internal/provider"
	"github.com/lee-jian-hui/tts-system/internal/queue"
	"github.com/lee-jian-hui/tts-system/internal/ratelimit"
	"github.com/lee-jian-hui/tts-system/internal/session"
	"github.com/lee-jian-hui/tts-system/internal/session/lifecycle"
	"github.com/lee-jian-hui/tts-system/internal/transcode"
	"github.com/lee-jian-hui/tts-system/internal/transport"
)

// CreateSessionRequest is the validated input to CreateSession
// (spec.md §4.5.1).
type CreateSessionRequest struct {
	ProviderID     string
	VoiceID        string
	Language       string
	Text           string
	TargetFormat   audio.Format
	TargetSampleHz int
}

// Params bundles the tunables spec.md §6 exposes as environment keys.
type Params struct {
	ProviderChunkTimeout time.Duration // Tp
	ProviderMaxRetries   int           // Rmax
	VoiceCrossValidate   bool          // SPEC_FULL.md §D.4, Open Question #2
}

// Service wires every component of spec.md §2 into the create/stream
// operations.
type Service struct {
	registry   *provider.Registry
	store      *session.Store
	limiter    *ratelimit.Limiter
	q          *queue.Queue
	transcoder transcode.Transcoder
	params     Params

	breakersMu sync.RWMutex
	breakers   map[string]*breaker.Breaker
	newBreaker func(providerID string) *breaker.Breaker
}

// New builds a Service. newBreaker constructs one breaker per provider
// id the first time it is referenced, so breaker parameters (N, T, H)
// are supplied once at startup and applied uniformly.
func New(registry *provider.Registry, store *session.Store, limiter *ratelimit.Limiter, q *queue.Queue, transcoder transcode.Transcoder, params Params, newBreaker func(providerID string) *breaker.Breaker) *Service {
	return &Service{
		registry:   registry,
		store:      store,
		limiter:    limiter,
		q:          q,
		transcoder: transcoder,
		params:     params,
		breakers:   make(map[string]*breaker.Breaker),
		newBreaker: newBreaker,
	}
}

func (s *Service) breakerFor(providerID string) *breaker.Breaker {
	s.breakersMu.RLock()
	b, ok := s.breakers[providerID]
	s.breakersMu.RUnlock()
	if ok {
		return b
	}

	s.breakersMu.Lock()
	defer s.breakersMu.Unlock()
	if b, ok := s.breakers[providerID]; ok {
		return b
	}
	b = s.newBreaker(providerID)
	s.breakers[providerID] = b
	return b
}

// CreateSession validates req and, on success, persists a new Pending
// session (spec.md §4.5.1). originKey identifies the client for rate
// limiting (e.g. remote address or API key).
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest, originKey string) (session.Session, error) {
	decision := s.limiter.Admit(originKey)
	if !decision.Allowed {
		return session.Session{}, &RateLimitedError{retryAfterS: decision.RetryAfterS}
	}

	if strings.TrimSpace(req.Text) == "" {
		return session.Session{}, ErrValidation
	}
	if req.TargetSampleHz <= 0 || req.TargetSampleHz > 192000 {
		return session.Session{}, ErrValidation
	}
	if !req.TargetFormat.Supported() {
		return session.Session{}, ErrValidation
	}

	if _, ok := s.registry.Resolve(req.ProviderID); !ok {
		return session.Session{}, ErrUnknownProvider
	}

	ownerID, ok := s.registry.HasVoice(req.VoiceID)
	if !ok {
		return session.Session{}, ErrUnknownVoice
	}
	if s.params.VoiceCrossValidate && ownerID != req.ProviderID {
		return session.Session{}, ErrUnknownVoice
	}

	sess := &session.Session{
		ID:               uuid.NewString(),
		ProviderID:       req.ProviderID,
		VoiceID:          req.VoiceID,
		Language:         req.Language,
		Text:             req.Text,
		TargetFormat:     req.TargetFormat,
		TargetSampleRate: req.TargetSampleHz,
		Status:           session.StatusPending,
		CreatedAt:        time.Now(),
	}
	s.store.Insert(sess)

	log.WithComponent("ttsservice").Info().
		Str("session_id", sess.ID).
		Str("provider_id", sess.ProviderID).
		Str("voice_id", sess.VoiceID).
		Msg("session created")

	return sess.Clone(), nil
}

// AttachQueue binds the StreamingQueue this service enqueues into.
// Separated from New because the queue's handler must itself be
// svc.Handler(), introducing a construction-order cycle; the caller
// wires them as queue.New(..., svc.Handler()) followed by
// svc.AttachQueue(q).
func (s *Service) AttachQueue(q *queue.Queue) { s.q = q }

// Enqueue hands a connected transport to the StreamingQueue (spec.md
// §4.4). The caller (the API layer) is responsible for reporting
// ErrQueueFull to the client as Error{503} and closing the transport.
func (s *Service) Enqueue(sessionID string, t transport.Transport) error {
	if err := s.q.Enqueue(queue.WorkItem{SessionID: sessionID, Handle: t}); err != nil {
		return ErrQueueFull
	}
	return nil
}

// handleWorkItem is registered as the queue.Handler; it adapts a
// WorkItem into a call to runPipeline. A panic in the pipeline marks
// the session Failed with reason "panic" and is then re-raised for the
// queue's worker-loop recovery to log.
func (s *Service) handleWorkItem(ctx context.Context, item queue.WorkItem) {
	t, ok := item.Handle.(transport.Transport)
	if !ok {
		log.WithComponent("ttsservice").Error().
			Str("session_id", item.SessionID).
			Msg("work item handle is not a transport")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.markTerminal(item.SessionID, lifecycle.Event{Kind: lifecycle.EvFailed, Reason: "panic"})
			panic(r)
		}
	}()
	s.runPipeline(ctx, item.SessionID, t)
}

// Handler exposes handleWorkItem for queue.New.
func (s *Service) Handler() queue.Handler { return s.handleWorkItem }

func (s *Service) markTerminal(sessionID string, ev lifecycle.Event) {
	if _, err := s.store.UpdateStatus(sessionID, ev, time.Now()); err != nil {
		log.WithComponent("ttsservice").Warn().
			Str("session_id", sessionID).
			Err(err).
			Msg("terminal status transition rejected")
	}
	switch ev.Kind {
	case lifecycle.EvCompleted:
		metrics.SessionsCompletedTotal.Inc()
	case lifecycle.EvFailed:
		metrics.RecordSessionFailed(ev.Reason)
	case lifecycle.EvCancelled:
		metrics.SessionsCancelledTotal.Inc()
	}
}
