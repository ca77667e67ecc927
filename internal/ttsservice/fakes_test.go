package ttsservice_test

import (
	"context"
	"errors"
	"sync"

	"github.com/lee-jian-hui/tts-system/internal/audio"
	"github.com/lee-jian-hui/tts-system/internal/provider"
	"github.com/lee-jian-hui/tts-system/internal/transcode"
	"github.com/lee-jian-hui/tts-system/internal/transport"
)

// fakeChunkStream serves remaining fixed chunks then io.EOF, or, when
// failAfter is not -1, fails with failErr on every pull after the first
// failAfter pulls.
type fakeChunkStream struct {
	mu         sync.Mutex
	remaining  int
	failAfter  int // -1 means never
	failErr    error
	closed     bool
	pulls      int
}

func (f *fakeChunkStream) Next(ctx context.Context) (audio.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	if f.failAfter >= 0 && f.pulls > f.failAfter {
		return audio.Chunk{}, f.failErr
	}
	if f.remaining <= 0 {
		return audio.Chunk{}, provider.EOS
	}
	f.remaining--
	return audio.Chunk{Data: []byte{0x01, 0x02}, Format: audio.FormatPCM16, SampleRate: 16000}, nil
}

func (f *fakeChunkStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakeProvider yields a configurable ChunkStream, or fails to open
// entirely when openErr is set.
type fakeProvider struct {
	id          string
	voices      []audio.Voice
	openErr     error
	newStream   func() provider.ChunkStream
	openCalls   int
	mu          sync.Mutex
}

var _ provider.Provider = (*fakeProvider)(nil)
var _ provider.ChunkStream = (*fakeChunkStream)(nil)

func (p *fakeProvider) ID() string           { return p.id }
func (p *fakeProvider) Voices() []audio.Voice { return p.voices }
func (p *fakeProvider) Synthesize(ctx context.Context, req provider.SynthesizeRequest) (provider.ChunkStream, error) {
	p.mu.Lock()
	p.openCalls++
	p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.newStream(), nil
}

// fakeTranscoder passes pcm16 chunks through unchanged unless failing
// is set.
type fakeTranscoder struct {
	failing bool
}

func (f *fakeTranscoder) Transcode(ctx context.Context, chunk audio.Chunk, dst audio.Spec) ([]byte, error) {
	if f.failing {
		return nil, errors.New("boom")
	}
	return chunk.Data, nil
}

var _ transcode.Transcoder = (*fakeTranscoder)(nil)

// fakeTransport records sent frames and can simulate a dead client or
// a send failure.
type fakeTransport struct {
	mu      sync.Mutex
	frames  []transport.Frame
	alive   bool
	failSend bool
	closeCode int
}

func newFakeTransport() *fakeTransport { return &fakeTransport{alive: true} }

func (t *fakeTransport) Send(f transport.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failSend {
		return errors.New("send failed")
	}
	t.frames = append(t.frames, f)
	return nil
}

func (t *fakeTransport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeCode = code
	t.alive = false
	return nil
}

func (t *fakeTransport) Alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive
}

func (t *fakeTransport) setDead() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alive = false
}

func (t *fakeTransport) framesSnapshot() []transport.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]transport.Frame, len(t.frames))
	copy(out, t.frames)
	return out
}

var _ transport.Transport = (*fakeTransport)(nil)
