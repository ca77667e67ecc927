// Package transcode implements the AudioTranscoder contract of spec.md
// §4.6: convert one raw chunk from a provider's base encoding to a
// target format/sample-rate. Every provider in this gateway produces
// pcm16, so every encoder in this package reads pcm16 as its source.
package transcode

import (
	"context"
	"errors"
	"fmt"

	"github.com/lee-jian-hui/tts-system/internal/audio"
)

// ErrUnavailable is returned when a target format has no configured
// encoder (e.g. mp3 without an external encoder wired in).
var ErrUnavailable = errors.New("transcode: target format unavailable")

// ErrFailed wraps any encoder-internal failure; per spec.md §4.6 this
// is fatal to the current session and is never retried.
type ErrFailed struct {
	Format audio.Format
	Err    error
}

func (e *ErrFailed) Error() string {
	return fmt.Sprintf("transcode: %s: %v", e.Format, e.Err)
}
func (e *ErrFailed) Unwrap() error { return e.Err }

// Transcoder converts one pcm16 chunk to audio.Spec's target
// format/sample-rate. The pipeline calls Transcode inline on the
// worker goroutine that owns the session, so a slow transcode holds up
// only that session (spec.md §5).
type Transcoder interface {
	Transcode(ctx context.Context, chunk audio.Chunk, dst audio.Spec) ([]byte, error)
}

// Matrix dispatches to the encoder registered for dst.Format. It is
// the default Transcoder wired into the pipeline.
type Matrix struct {
	encoders map[audio.Format]func(ctx context.Context, chunk audio.Chunk, dst audio.Spec) ([]byte, error)
}

// NewMatrix builds the default pcm16/wav/mulaw/opus/mp3 matrix of
// spec.md §4.6. mp3Encoder may be nil, in which case mp3 targets
// return ErrUnavailable.
func NewMatrix(mp3Encoder ExternalEncoder) *Matrix {
	m := &Matrix{encoders: make(map[audio.Format]func(context.Context, audio.Chunk, audio.Spec) ([]byte, error))}
	m.encoders[audio.FormatPCM16] = transcodePCM16
	m.encoders[audio.FormatWAV] = transcodeWAVFrame
	m.encoders[audio.FormatMuLaw] = transcodeMuLaw
	m.encoders[audio.FormatOpus] = transcodeOpus
	m.encoders[audio.FormatMP3] = mp3TranscodeFunc(mp3Encoder)
	return m
}

func (m *Matrix) Transcode(ctx context.Context, chunk audio.Chunk, dst audio.Spec) ([]byte, error) {
	fn, ok := m.encoders[dst.Format]
	if !ok {
		return nil, ErrUnavailable
	}
	out, err := fn(ctx, chunk, dst)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, &ErrFailed{Format: dst.Format, Err: err}
	}
	return out, nil
}
