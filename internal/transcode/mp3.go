package transcode

import (
	"context"

	"github.com/lee-jian-hui/tts-system/internal/audio"
)

// ExternalEncoder is the narrow collaborator an mp3 backend implements.
// The concrete mp3 encoder is explicitly out of scope (spec.md §1,
// "the exact byte-level transcoder ... a narrow contract"); this
// gateway ships without one wired in by default, so mp3 targets return
// ErrUnavailable until an operator supplies one.
type ExternalEncoder interface {
	EncodeMP3(ctx context.Context, pcm []byte, sampleRate int) ([]byte, error)
}

func mp3TranscodeFunc(enc ExternalEncoder) func(context.Context, audio.Chunk, audio.Spec) ([]byte, error) {
	return func(ctx context.Context, chunk audio.Chunk, dst audio.Spec) ([]byte, error) {
		if enc == nil {
			return nil, ErrUnavailable
		}
		pcm, err := transcodePCM16(ctx, chunk, dst)
		if err != nil {
			return nil, err
		}
		return enc.EncodeMP3(ctx, pcm, dst.SampleRate)
	}
}
