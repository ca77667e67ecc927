package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lee-jian-hui/tts-system/internal/audio"
	"github.com/lee-jian-hui/tts-system/internal/provider"
)

type stubProvider struct {
	id     string
	voices []audio.Voice
}

func (s *stubProvider) ID() string            { return s.id }
func (s *stubProvider) Voices() []audio.Voice { return s.voices }
func (s *stubProvider) Synthesize(ctx context.Context, req provider.SynthesizeRequest) (provider.ChunkStream, error) {
	return nil, provider.ErrProviderUnavailable
}

func TestRegistry_ResolveUnknownReturnsFalse(t *testing.T) {
	r := provider.NewRegistry()
	_, ok := r.Resolve("missing")
	assert.False(t, ok)
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := provider.NewRegistry()
	p := &stubProvider{id: "p1", voices: []audio.Voice{{ID: "v1", ProviderID: "p1"}}}
	r.Register(p)

	got, ok := r.Resolve("p1")
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestRegistry_VoicesAggregatesAndSortsAcrossProviders(t *testing.T) {
	r := provider.NewRegistry()
	r.Register(&stubProvider{id: "p1", voices: []audio.Voice{{ID: "zz", ProviderID: "p1"}}})
	r.Register(&stubProvider{id: "p2", voices: []audio.Voice{{ID: "aa", ProviderID: "p2"}}})

	voices := r.Voices()
	require.Len(t, voices, 2)
	assert.Equal(t, "aa", voices[0].ID)
	assert.Equal(t, "zz", voices[1].ID)
}

func TestRegistry_HasVoiceReturnsOwningProvider(t *testing.T) {
	r := provider.NewRegistry()
	r.Register(&stubProvider{id: "p1", voices: []audio.Voice{{ID: "v1", ProviderID: "p1"}}})
	r.Register(&stubProvider{id: "p2", voices: []audio.Voice{{ID: "v2", ProviderID: "p2"}}})

	owner, ok := r.HasVoice("v2")
	require.True(t, ok)
	assert.Equal(t, "p2", owner)

	_, ok = r.HasVoice("missing")
	assert.False(t, ok)
}

func TestRegistry_VoicesCacheInvalidatedByNewRegister(t *testing.T) {
	r := provider.NewRegistry()
	r.Register(&stubProvider{id: "p1", voices: []audio.Voice{{ID: "v1", ProviderID: "p1"}}})
	require.Len(t, r.Voices(), 1)

	r.Register(&stubProvider{id: "p2", voices: []audio.Voice{{ID: "v2", ProviderID: "p2"}}})
	assert.Len(t, r.Voices(), 2)
}
