package transcode

import (
	"bytes"
	"context"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/cwbudde/wav"

	"github.com/lee-jian-hui/tts-system/internal/audio"
)

// transcodeWAVFrame implements the streamed wav target of spec.md
// §4.6: a sequence of raw PCM frames with no container header. The
// self-contained file is produced by BuildWAVFile, an out-of-core
// collaborator used by a "fetch completed session as file" endpoint,
// never by the per-chunk streaming path.
func transcodeWAVFrame(ctx context.Context, chunk audio.Chunk, dst audio.Spec) ([]byte, error) {
	return transcodePCM16(ctx, chunk, dst)
}

// seekBuffer adapts a bytes.Buffer to io.WriteSeeker for wav.NewEncoder.
type seekBuffer struct {
	buf *bytes.Buffer
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if s.pos == s.buf.Len() {
		n, err := s.buf.Write(p)
		s.pos += n
		return n, err
	}
	data := s.buf.Bytes()
	n := copy(data[s.pos:], p)
	if n < len(p) {
		data = append(data, p[n:]...)
		s.buf.Reset()
		s.buf.Write(data)
		n = len(p)
	}
	s.pos += n
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int
	switch whence {
	case 0:
		newPos = int(offset)
	case 1:
		newPos = s.pos + int(offset)
	case 2:
		newPos = s.buf.Len() + int(offset)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("transcode: wav seek before start")
	}
	s.pos = newPos
	return int64(newPos), nil
}

// BuildWAVFile assembles a self-contained mono 16-bit WAV file from the
// concatenated pcm16 frames of one completed session. This is the
// out-of-core collaborator named in spec.md §4.6; it is never called
// from the streaming pipeline.
func BuildWAVFile(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	sw := &seekBuffer{buf: &buf}

	const bitDepth = 16
	const channels = 1
	enc := wav.NewEncoder(sw, sampleRate, bitDepth, channels, 1)

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		lo, hi := pcm[i*2], pcm[i*2+1]
		samples[i] = int(int16(uint16(lo) | uint16(hi)<<8))
	}

	intBuf := &goaudio.IntBuffer{
		Data:           samples,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(intBuf); err != nil {
		return nil, fmt.Errorf("transcode: wav write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("transcode: wav close: %w", err)
	}
	return buf.Bytes(), nil
}
