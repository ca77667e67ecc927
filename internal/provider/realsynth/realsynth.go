// Package realsynth implements provider.Provider against an injected
// synthesis backend. The concrete synthesis algorithm is explicitly out
// of scope (spec.md §1); this package only supplies the provider
// contract (voice catalog, lazy chunk stream, per-pull errors) so the
// pipeline, circuit breaker, and retry logic can be exercised against a
// "real" adapter shape without depending on a model runtime.
package realsynth

import (
	"context"
	"fmt"

	"github.com/lee-jian-hui/tts-system/internal/audio"
	"github.com/lee-jian-hui/tts-system/internal/provider"
)

// SynthesizeFunc is the narrow collaborator a concrete backend
// implements: given the request, return the next raw PCM16 chunk, or
// io.EOF-compatible provider.EOS when the utterance is exhausted.
// Implementations are expected to be stateful closures (one per call
// to Synthesize) capturing whatever cursor the backend needs.
type SynthesizeFunc func(ctx context.Context, req provider.SynthesizeRequest) (ChunkFunc, error)

// ChunkFunc pulls the next chunk from an open backend stream.
type ChunkFunc func(ctx context.Context) (audio.Chunk, error)

// Provider adapts a SynthesizeFunc to provider.Provider.
type Provider struct {
	id          string
	voices      []audio.Voice
	synthesize  SynthesizeFunc
	closeStream func() error
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithVoices overrides the default (empty) voice catalog.
func WithVoices(voices []audio.Voice) Option {
	return func(p *Provider) { p.voices = voices }
}

// New builds a RealSynthesis-shaped provider identified by id, backed
// by fn. If fn is nil, Synthesize always returns
// provider.ErrProviderUnavailable, which is useful for exercising the
// circuit breaker and admission paths before a real backend is wired.
func New(id string, fn SynthesizeFunc, opts ...Option) *Provider {
	p := &Provider{id: id, synthesize: fn}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) ID() string            { return p.id }
func (p *Provider) Voices() []audio.Voice { return p.voices }

func (p *Provider) Synthesize(ctx context.Context, req provider.SynthesizeRequest) (provider.ChunkStream, error) {
	if p.synthesize == nil {
		return nil, fmt.Errorf("%w: %s has no backend configured", provider.ErrProviderUnavailable, p.id)
	}
	pull, err := p.synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	return &stream{pull: pull}, nil
}

type stream struct {
	pull ChunkFunc
}

func (s *stream) Next(ctx context.Context) (audio.Chunk, error) {
	return s.pull(ctx)
}

func (s *stream) Close() error { return nil }
