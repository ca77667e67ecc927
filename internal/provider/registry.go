package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lee-jian-hui/tts-system/internal/audio"
	"github.com/lee-jian-hui/tts-system/internal/log"
	"golang.org/x/sync/singleflight"
)

// Registry resolves a provider identifier to a Provider instance and
// aggregates voice catalogs across all registered providers (spec.md
// §2, ProviderRegistry row).
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider

	group      singleflight.Group
	catalog    []audio.Voice
	catalogSet bool
}

// NewRegistry returns an empty registry; providers are added with Register.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry. Not safe to call concurrently
// with Resolve/Voices; intended for startup wiring only.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
	r.catalogSet = false
	log.WithComponent("provider_registry").Info().
		Str("provider_id", p.ID()).
		Int("voice_count", len(p.Voices())).
		Msg("provider registered")
}

// Resolve returns the provider for id, or false if unknown.
func (r *Registry) Resolve(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// HasVoice reports whether voiceID exists anywhere in the aggregated
// catalog, and if so which provider owns it.
func (r *Registry) HasVoice(voiceID string) (ownerProviderID string, ok bool) {
	for _, v := range r.Voices() {
		if v.ID == voiceID {
			return v.ProviderID, true
		}
	}
	return "", false
}

// Voices returns the aggregated, sorted voice catalog across every
// registered provider. The first caller after a Register builds the
// catalog; concurrent callers during that build share the result via
// singleflight so the catalog is assembled at most once per change.
func (r *Registry) Voices() []audio.Voice {
	r.mu.RLock()
	if r.catalogSet {
		defer r.mu.RUnlock()
		return r.catalog
	}
	r.mu.RUnlock()

	v, _, _ := r.group.Do("catalog", func() (interface{}, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.catalogSet {
			return r.catalog, nil
		}
		var all []audio.Voice
		for _, p := range r.providers {
			all = append(all, p.Voices()...)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
		r.catalog = all
		r.catalogSet = true
		return all, nil
	})
	return v.([]audio.Voice)
}

// ErrUnknownProvider is returned by callers that need a typed sentinel
// rather than a bool; the registry itself returns (Provider, bool).
var ErrUnknownProvider = fmt.Errorf("provider: unknown provider id")
