package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lee-jian-hui/tts-system/internal/api"
	"github.com/lee-jian-hui/tts-system/internal/breaker"
	"github.com/lee-jian-hui/tts-system/internal/provider"
	"github.com/lee-jian-hui/tts-system/internal/provider/mocktone"
	"github.com/lee-jian-hui/tts-system/internal/queue"
	"github.com/lee-jian-hui/tts-system/internal/ratelimit"
	"github.com/lee-jian-hui/tts-system/internal/session"
	"github.com/lee-jian-hui/tts-system/internal/transcode"
	"github.com/lee-jian-hui/tts-system/internal/ttsservice"
)

func newTestServer(t *testing.T, quota int) (*api.Server, *session.Store) {
	t.Helper()
	reg := provider.NewRegistry()
	reg.Register(mocktone.New())
	store := session.NewStore(0, 0)

	svc := ttsservice.New(reg, store, ratelimit.New(time.Minute, quota), nil, transcode.NewMatrix(nil), ttsservice.Params{
		ProviderChunkTimeout: time.Second,
		ProviderMaxRetries:   1,
	}, func(id string) *breaker.Breaker { return breaker.New(id, 3, time.Minute, 1) })

	q := queue.New(4, 1, svc.Handler())
	svc.AttachQueue(q)
	q.Start()
	t.Cleanup(q.Stop)

	return api.NewServer(":0", svc, reg, store), store
}

func TestHandleListVoices(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/v1/voices", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Voices []map[string]any `json:"voices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Voices, 2)
}

func TestHandleCreateSession_Success(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	payload := map[string]any{
		"provider":       mocktone.ProviderID,
		"voice":          "en-US-mock-1",
		"text":           "hello",
		"target_format":  "pcm16",
		"sample_rate_hz": 16000,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/v1/tts/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		SessionID string `json:"session_id"`
		WSURL     string `json:"ws_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.WSURL, resp.SessionID)
}

func TestHandleCreateSession_ValidationError(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	payload := map[string]any{
		"provider":       mocktone.ProviderID,
		"voice":          "en-US-mock-1",
		"text":           "",
		"target_format":  "pcm16",
		"sample_rate_hz": 16000,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/v1/tts/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateSession_UnknownVoiceIs404(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	payload := map[string]any{
		"provider":       mocktone.ProviderID,
		"voice":          "nonexistent",
		"text":           "hi",
		"target_format":  "pcm16",
		"sample_rate_hz": 16000,
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/v1/tts/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCreateSession_RateLimitedSetsRetryAfter(t *testing.T) {
	srv, _ := newTestServer(t, 1)
	payload := map[string]any{
		"provider":       mocktone.ProviderID,
		"voice":          "en-US-mock-1",
		"text":           "hi",
		"target_format":  "pcm16",
		"sample_rate_hz": 16000,
	}
	body, _ := json.Marshal(payload)

	req1 := httptest.NewRequest(http.MethodPost, "/v1/tts/sessions", bytes.NewReader(body))
	rec1 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusCreated, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/v1/tts/sessions", bytes.NewReader(body))
	rec2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.NotEmpty(t, rec2.Header().Get("Retry-After"))
}

func TestHandleStream_UnknownSessionIs404(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/v1/tts/stream/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealthz(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
