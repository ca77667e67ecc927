package transcode

import (
	"context"
	"encoding/binary"

	"github.com/lee-jian-hui/tts-system/internal/audio"
)

// transcodePCM16 passes pcm16 through unchanged, resampling if the
// target sample rate differs from the chunk's. No library in the
// example corpus offers plain linear PCM resampling with this narrow a
// surface (one buffer in, one buffer out, no streaming state); doing
// it inline with stdlib math keeps the dependency surface honest (see
// DESIGN.md).
func transcodePCM16(_ context.Context, chunk audio.Chunk, dst audio.Spec) ([]byte, error) {
	if dst.SampleRate == chunk.SampleRate || dst.SampleRate == 0 {
		return chunk.Data, nil
	}
	return resampleLinear(chunk.Data, chunk.SampleRate, dst.SampleRate), nil
}

// resampleLinear resamples little-endian int16 PCM using linear
// interpolation between nearest source samples.
func resampleLinear(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate {
		return pcm
	}
	srcSamples := len(pcm) / 2
	if srcSamples == 0 {
		return pcm
	}
	dstSamples := srcSamples * dstRate / srcRate
	if dstSamples < 1 {
		dstSamples = 1
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcSamples-1) / float64(maxInt(dstSamples-1, 1))

	sampleAt := func(i int) int16 {
		if i < 0 {
			i = 0
		}
		if i >= srcSamples {
			i = srcSamples - 1
		}
		return int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	for i := 0; i < dstSamples; i++ {
		pos := float64(i) * ratio
		lo := int(pos)
		frac := pos - float64(lo)
		a := float64(sampleAt(lo))
		b := float64(sampleAt(lo + 1))
		v := int16(a + (b-a)*frac)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
