package transcode

import (
	"context"
	"encoding/binary"

	"github.com/lee-jian-hui/tts-system/internal/audio"
)

// transcodeMuLaw converts pcm16 to G.711 mu-law. No library in the
// example corpus implements mu-law companding (it is ~30 lines of
// fixed-point arithmetic defined by the ITU-T G.711 standard); see
// DESIGN.md for why this is the one encoder implemented directly
// against stdlib rather than a third-party codec.
func transcodeMuLaw(ctx context.Context, chunk audio.Chunk, dst audio.Spec) ([]byte, error) {
	pcm, err := transcodePCM16(ctx, chunk, dst)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(pcm)/2)
	for i := range out {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = linearToMuLaw(sample)
	}
	return out, nil
}

const (
	muLawBias = 0x84
	muLawClip = 32635
)

// linearToMuLaw encodes one 16-bit linear PCM sample as 8-bit mu-law.
func linearToMuLaw(sample int16) byte {
	sign := byte(0x00)
	s := int32(sample)
	if s < 0 {
		sign = 0x80
		s = -s
	}
	if s > muLawClip {
		s = muLawClip
	}
	s += muLawBias

	exponent := byte(7)
	for mask := int32(0x4000); s&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte(s>>(exponent+3)) & 0x0F
	return ^(sign | exponent<<4 | mantissa)
}
