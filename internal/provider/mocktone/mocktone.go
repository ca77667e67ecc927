// Package mocktone implements provider.Provider as a deterministic sine
// tone generator. It has no external dependencies and exists so the
// streaming pipeline, admission control, and transport framing can be
// exercised end-to-end without a real synthesis backend (spec.md §8,
// scenario S1).
package mocktone

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/lee-jian-hui/tts-system/internal/audio"
	"github.com/lee-jian-hui/tts-system/internal/provider"
)

const (
	// ProviderID is the identifier clients pass as Session.provider_id.
	ProviderID = "mock_tone"

	frameDuration = 20 // milliseconds per emitted chunk
	toneHz        = 440.0
	// msPerWord is how many milliseconds of tone each "word" of the
	// input text produces (11 frames of 20ms), so longer text produces
	// more chunks deterministically.
	msPerWord = 220
)

// Provider is the mock_tone synthesis backend.
type Provider struct {
	voices []audio.Voice
}

// New constructs the mock_tone provider with its fixed voice catalog.
func New() *Provider {
	return &Provider{
		voices: []audio.Voice{
			{ID: "en-US-mock-1", DisplayName: "Mock Tone (US English)", Language: "en-US", NativeSampleRateHz: 16000, BaseFormat: audio.FormatPCM16, ProviderID: ProviderID},
			{ID: "en-GB-mock-1", DisplayName: "Mock Tone (British English)", Language: "en-GB", NativeSampleRateHz: 16000, BaseFormat: audio.FormatPCM16, ProviderID: ProviderID},
		},
	}
}

func (p *Provider) ID() string             { return ProviderID }
func (p *Provider) Voices() []audio.Voice  { return p.voices }

func (p *Provider) voiceByID(id string) (audio.Voice, bool) {
	for _, v := range p.voices {
		if v.ID == id {
			return v, true
		}
	}
	return audio.Voice{}, false
}

// Synthesize returns a finite stream of sine-tone PCM16 chunks. The
// number of chunks is derived from the input text length so longer
// utterances produce more frames, matching the "lazy finite sequence"
// contract of spec.md §9.
func (p *Provider) Synthesize(_ context.Context, req provider.SynthesizeRequest) (provider.ChunkStream, error) {
	voice, ok := p.voiceByID(req.VoiceID)
	if !ok {
		return nil, fmt.Errorf("%w: voice %q not owned by %s", provider.ErrProviderUnavailable, req.VoiceID, ProviderID)
	}

	words := wordCount(req.Text)
	totalMs := words * msPerWord
	if totalMs < frameDuration {
		totalMs = frameDuration
	}
	numChunks := totalMs / frameDuration
	if numChunks < 1 {
		numChunks = 1
	}

	return &chunkStream{
		sampleRate: voice.NativeSampleRateHz,
		remaining:  numChunks,
		phase:      0,
	}, nil
}

func wordCount(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// chunkStream is a deterministic sine-wave generator implementing
// provider.ChunkStream.
type chunkStream struct {
	sampleRate int
	remaining  int
	phase      float64
	closed     bool
}

func (s *chunkStream) Next(ctx context.Context) (audio.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return audio.Chunk{}, err
	}
	if s.remaining <= 0 {
		return audio.Chunk{}, provider.EOS
	}

	samplesPerFrame := s.sampleRate * frameDuration / 1000
	buf := make([]byte, samplesPerFrame*2)
	step := 2 * math.Pi * toneHz / float64(s.sampleRate)
	for i := 0; i < samplesPerFrame; i++ {
		v := int16(math.Sin(s.phase) * 0.2 * math.MaxInt16)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
		s.phase += step
	}
	s.remaining--

	return audio.Chunk{
		Data:       buf,
		Format:     audio.FormatPCM16,
		SampleRate: s.sampleRate,
	}, nil
}

func (s *chunkStream) Close() error {
	s.closed = true
	return nil
}
