// Package audio defines the value types shared by providers, the
// transcoder, and the streaming pipeline: encodings, voices, and chunks.
package audio

import "fmt"

// Format is a wire/base audio encoding.
type Format string

const (
	FormatPCM16 Format = "pcm16"
	FormatWAV   Format = "wav"
	FormatMP3   Format = "mp3"
	FormatMuLaw Format = "mulaw"
	FormatOpus  Format = "opus"
)

// Supported reports whether f is one of the formats this gateway can
// target (spec.md §4.6 format matrix).
func (f Format) Supported() bool {
	switch f {
	case FormatPCM16, FormatWAV, FormatMP3, FormatMuLaw, FormatOpus:
		return true
	default:
		return false
	}
}

// Voice is an immutable catalog entry, loaded once at process startup
// and never mutated thereafter (spec.md §3).
type Voice struct {
	ID                 string
	DisplayName        string
	Language           string
	NativeSampleRateHz int
	BaseFormat         Format
	ProviderID         string
}

// Chunk is an immutable raw audio buffer produced by a provider and
// consumed at most once by the pipeline (spec.md §3, AudioChunk).
type Chunk struct {
	Data       []byte
	Format     Format
	SampleRate int
	SeqHint    int // optional; providers may leave this zero
}

// Spec is the (format, sample-rate) pair the transcoder reads/writes.
type Spec struct {
	Format     Format
	SampleRate int
}

func (s Spec) String() string {
	return fmt.Sprintf("%s@%dHz", s.Format, s.SampleRate)
}
