// Package provider defines the polymorphic synthesis contract described
// in spec.md §2/§9 ("Lazy chunk sequences"): a provider lists voices and
// produces a lazy, finite sequence of audio.Chunk for one utterance.
package provider

import (
	"context"
	"errors"
	"io"

	"github.com/lee-jian-hui/tts-system/internal/audio"
)

// ErrProviderUnavailable is returned by Synthesize when the provider
// cannot start a stream at all (e.g. backend not configured).
var ErrProviderUnavailable = errors.New("provider: unavailable")

// EOS is returned by ChunkStream.Next to signal natural exhaustion of
// the chunk sequence; it is io.EOF under the hood so callers can use
// errors.Is(err, io.EOF) interchangeably.
var EOS = io.EOF

// SynthesizeRequest carries the per-utterance parameters a provider
// needs to start a chunk stream.
type SynthesizeRequest struct {
	Text     string
	VoiceID  string
	Language string
}

// ChunkStream is a pull-based, lazy, finite sequence of audio.Chunk.
// Next must be called at most once at a time (the pipeline never calls
// it concurrently with itself for the same stream). A caller enforces
// the per-pull timeout Tp of spec.md §4.5.2 by giving Next a context
// with a deadline; cancellation is observed by passing a cancelled or
// deadline-exceeded context.
type ChunkStream interface {
	// Next returns the next chunk, or an error. EOS (io.EOF) signals
	// natural exhaustion; any other error is a provider failure.
	Next(ctx context.Context) (audio.Chunk, error)
	// Close releases provider-side resources. Safe to call multiple
	// times and safe to call after Next has returned EOS or an error.
	Close() error
}

// Provider is polymorphic over {MockTone, RealSynthesis} per spec.md §2.
type Provider interface {
	// ID returns the provider identifier used in Session.provider_id.
	ID() string
	// Voices returns the immutable voice catalog this provider owns.
	Voices() []audio.Voice
	// Synthesize opens a lazy chunk stream for one utterance. The
	// returned stream's chunks are in the provider's base encoding
	// (audio.FormatPCM16 for every provider in this gateway).
	Synthesize(ctx context.Context, req SynthesizeRequest) (ChunkStream, error)
}
