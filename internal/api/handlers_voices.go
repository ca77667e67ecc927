package api

import (
	"encoding/json"
	"net/http"

	"github.com/lee-jian-hui/tts-system/internal/audio"
)

type voiceDTO struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Language         string   `json:"language"`
	Provider         string   `json:"provider"`
	SampleRateHz     int      `json:"sample_rate_hz"`
	SupportedFormats []string `json:"supported_formats"`
}

// supportedFormats is the same target matrix for every voice: the
// transcoder reaches every format from pcm16 regardless of a voice's
// native base format (spec.md §4.6).
var supportedFormats = []string{
	string(audio.FormatPCM16), string(audio.FormatWAV), string(audio.FormatMP3),
	string(audio.FormatMuLaw), string(audio.FormatOpus),
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	voices := s.registry.Voices()
	out := make([]voiceDTO, 0, len(voices))
	for _, v := range voices {
		out = append(out, voiceDTO{
			ID:               v.ID,
			Name:             v.DisplayName,
			Language:         v.Language,
			Provider:         v.ProviderID,
			SampleRateHz:     v.NativeSampleRateHz,
			SupportedFormats: supportedFormats,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"voices": out})
}
