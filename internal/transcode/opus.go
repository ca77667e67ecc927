package transcode

import (
	"context"
	"fmt"
	"sync"

	"layeh.com/gopus"

	"github.com/lee-jian-hui/tts-system/internal/audio"
)

// Opus encoding is stateful per-stream (the encoder carries predictive
// state across frames), but the Transcoder contract is one chunk in,
// one buffer out. opusState keeps one gopus.Encoder per (sampleRate,
// channels) pair actually seen, which is sufficient because this
// gateway only ever encodes mono.
var opusState = struct {
	mu  sync.Mutex
	enc map[int]*gopus.Encoder
}{enc: make(map[int]*gopus.Encoder)}

const opusChannels = 1

func opusEncoderFor(sampleRate int) (*gopus.Encoder, error) {
	opusState.mu.Lock()
	defer opusState.mu.Unlock()
	if enc, ok := opusState.enc[sampleRate]; ok {
		return enc, nil
	}
	enc, err := gopus.NewEncoder(sampleRate, opusChannels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("transcode: new opus encoder: %w", err)
	}
	opusState.enc[sampleRate] = enc
	return enc, nil
}

// transcodeOpus converts one pcm16 chunk to an Opus packet at the
// chunk's native sample rate (opus streaming targets do not resample;
// the provider's native rate is one gopus supports directly: 8k-48k).
func transcodeOpus(_ context.Context, chunk audio.Chunk, _ audio.Spec) ([]byte, error) {
	enc, err := opusEncoderFor(chunk.SampleRate)
	if err != nil {
		return nil, err
	}
	pcm := bytesToInt16s(chunk.Data)
	packet, err := enc.Encode(pcm, len(pcm), len(chunk.Data))
	if err != nil {
		return nil, fmt.Errorf("transcode: opus encode: %w", err)
	}
	return packet, nil
}

func bytesToInt16s(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}
