package ttsservice

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/lee-jian-hui/tts-system/internal/audio"
	"github.com/lee-jian-hui/tts-system/internal/breaker"
	"github.com/lee-jian-hui/tts-system/internal/log"
	"github.com/lee-jian-hui/tts-system/internal/metrics"
	"github.com/lee-jian-hui/tts-system/internal/provider"
	"github.com/lee-jian-hui/tts-system/internal/session"
	"github.com/lee-jian-hui/tts-system/internal/session/lifecycle"
	"github.com/lee-jian-hui/tts-system/internal/transport"
)

// runPipeline drives one session from Pending through a terminal state
// (spec.md §4.5.2). It is the worker-loop body registered with the
// queue; exactly one instance runs per session, strictly sequential
// inside it (§4.5.3).
func (s *Service) runPipeline(ctx context.Context, sessionID string, t transport.Transport) {
	defer func() { _ = t.Close(transport.CloseNormal, "") }()

	sess, err := s.store.Get(sessionID)
	if err != nil {
		log.WithComponent("pipeline").Warn().Str("session_id", sessionID).Msg("session vanished before stream start")
		return
	}

	// Liveness check before committing a breaker lease or synthesis
	// call (spec.md §5: a queued session whose client disconnected
	// before its worker picked it up must be observed as cancelled).
	if !t.Alive() {
		s.markTerminal(sessionID, lifecycle.Event{Kind: lifecycle.EvCancelled})
		return
	}

	if _, err := s.store.UpdateStatus(sessionID, lifecycle.Event{Kind: lifecycle.EvEnqueued}, time.Now()); err != nil {
		log.WithComponent("pipeline").Error().Str("session_id", sessionID).Err(err).Msg("could not enter streaming")
		return
	}
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	// Checked after entering Streaming: Failed is only reachable from
	// Streaming in the session transition table.
	if ctx.Err() != nil {
		_ = t.Send(transport.ErrorFrame(503, "shutting_down"))
		s.markTerminal(sessionID, lifecycle.Event{Kind: lifecycle.EvFailed, Reason: "shutdown"})
		return
	}

	p, ok := s.registry.Resolve(sess.ProviderID)
	if !ok {
		_ = t.Send(transport.ErrorFrame(503, "provider_unavailable"))
		s.markTerminal(sessionID, lifecycle.Event{Kind: lifecycle.EvFailed, Reason: "unknown_provider"})
		return
	}

	b := s.breakerFor(sess.ProviderID)
	lease, err := b.Permit()
	if err != nil {
		_ = t.Send(transport.ErrorFrame(503, "provider_unavailable"))
		s.markTerminal(sessionID, lifecycle.Event{Kind: lifecycle.EvFailed, Reason: "circuit_open"})
		return
	}

	s.streamWithLease(ctx, &sess, p, lease, t)
}

// streamWithLease opens the provider stream and runs the chunk loop,
// guaranteeing lease.Record is called exactly once.
func (s *Service) streamWithLease(ctx context.Context, sess *session.Session, p provider.Provider, lease *breaker.Lease, t transport.Transport) {
	req := provider.SynthesizeRequest{Text: sess.Text, VoiceID: sess.VoiceID, Language: sess.Language}

	stream, err := s.openWithRetry(ctx, p, req)
	if err != nil {
		lease.Record(breaker.Failure)
		_ = t.Send(transport.ErrorFrame(502, "provider_unavailable"))
		s.markTerminal(sess.ID, lifecycle.Event{Kind: lifecycle.EvFailed, Reason: "provider_error"})
		return
	}
	defer stream.Close()

	outcome := s.chunkLoop(ctx, sess, stream, t)
	lease.Record(outcome.breakerOutcome)

	switch outcome.kind {
	case outcomeCompleted:
		s.markTerminal(sess.ID, lifecycle.Event{Kind: lifecycle.EvCompleted})
	case outcomeCancelled:
		s.markTerminal(sess.ID, lifecycle.Event{Kind: lifecycle.EvCancelled})
	case outcomeFailed:
		s.markTerminal(sess.ID, lifecycle.Event{Kind: lifecycle.EvFailed, Reason: outcome.reason})
	}
}

// openWithRetry implements the pre-stream half of the retry policy: up
// to Rmax attempts with exponential backoff to open the provider
// stream at all (spec.md §4.5.2, "Retry policy").
func (s *Service) openWithRetry(ctx context.Context, p provider.Provider, req provider.SynthesizeRequest) (provider.ChunkStream, error) {
	var lastErr error
	backoff := 10 * time.Millisecond
	maxAttempts := s.params.ProviderMaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		openCtx, cancel := context.WithTimeout(ctx, s.params.ProviderChunkTimeout)
		stream, err := p.Synthesize(openCtx, req)
		cancel()
		if err == nil {
			return stream, nil
		}
		lastErr = err
		if attempt < maxAttempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil, lastErr
}

type outcomeKind int

const (
	outcomeCompleted outcomeKind = iota
	outcomeCancelled
	outcomeFailed
)

type pipelineOutcome struct {
	kind           outcomeKind
	reason         string
	breakerOutcome breaker.Outcome
}

// chunkLoop pulls, transcodes, and sends chunks one at a time, strictly
// sequential (spec.md §4.5.3). Before the first byte is sent, a
// provider failure or per-chunk timeout is retried up to Rmax total
// attempts with exponential backoff; once any Audio frame has reached
// the transport, any further provider error is fatal and not retried
// (spec.md §4.5.2).
func (s *Service) chunkLoop(ctx context.Context, sess *session.Session, stream provider.ChunkStream, t transport.Transport) pipelineOutcome {
	var seq uint32
	bytesSent := false
	preStreamAttempts := 0
	maxPreStreamAttempts := s.params.ProviderMaxRetries
	if maxPreStreamAttempts < 1 {
		maxPreStreamAttempts = 1
	}
	backoff := 10 * time.Millisecond

	dst := audio.Spec{Format: sess.TargetFormat, SampleRate: sess.TargetSampleRate}

	for {
		if ctx.Err() != nil || !t.Alive() {
			return pipelineOutcome{kind: outcomeCancelled, breakerOutcome: breaker.Success}
		}

		chunk, err := s.pullChunk(ctx, stream)
		if errors.Is(err, io.EOF) {
			if sendErr := t.Send(transport.EOSFrame()); sendErr != nil {
				return pipelineOutcome{kind: outcomeCancelled, breakerOutcome: breaker.Success}
			}
			return pipelineOutcome{kind: outcomeCompleted, breakerOutcome: breaker.Success}
		}
		if err != nil {
			if bytesSent {
				_ = t.Send(transport.ErrorFrame(502, "provider_mid_stream"))
				return pipelineOutcome{kind: outcomeFailed, reason: "provider_mid_stream", breakerOutcome: breaker.Failure}
			}
			preStreamAttempts++
			if preStreamAttempts < maxPreStreamAttempts {
				time.Sleep(backoff)
				backoff *= 2
				continue
			}
			_ = t.Send(transport.ErrorFrame(502, "provider_unavailable"))
			return pipelineOutcome{kind: outcomeFailed, reason: "provider_error", breakerOutcome: breaker.Failure}
		}

		if ctx.Err() != nil || !t.Alive() {
			return pipelineOutcome{kind: outcomeCancelled, breakerOutcome: breaker.Success}
		}

		payload, terr := s.transcoder.Transcode(ctx, chunk, dst)
		if terr != nil {
			_ = t.Send(transport.ErrorFrame(500, "transcode_failed"))
			// TranscodeError is a transcoder-side fault, not a provider
			// fault; it must never count against the provider breaker.
			return pipelineOutcome{kind: outcomeFailed, reason: "transcode_failed", breakerOutcome: breaker.Success}
		}

		seq++
		if sendErr := t.Send(transport.AudioFrame(seq, payload)); sendErr != nil {
			return pipelineOutcome{kind: outcomeCancelled, breakerOutcome: breaker.Success}
		}
		bytesSent = true
	}
}

// pullChunk enforces the per-chunk timeout Tp (spec.md §5).
func (s *Service) pullChunk(ctx context.Context, stream provider.ChunkStream) (audio.Chunk, error) {
	pullCtx, cancel := context.WithTimeout(ctx, s.params.ProviderChunkTimeout)
	defer cancel()
	chunk, err := stream.Next(pullCtx)
	if err != nil && !errors.Is(err, io.EOF) && errors.Is(pullCtx.Err(), context.DeadlineExceeded) {
		return audio.Chunk{}, ErrProviderTimeout
	}
	return chunk, err
}
