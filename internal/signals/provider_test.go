// internal/signals/provider_test.go
package signals

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowpos/forecast-engine/internal/config"
)

func signalsServer(t *testing.T, hits *int32, payload Signals) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/signals", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("date"))
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetSignalsFetchesAndCaches(t *testing.T) {
	var hits int32
	srv := signalsServer(t, &hits, Signals{
		Weather: "rain",
		Holiday: true,
		Bias:    Bias{Direction: "up", Reasoning: "payday weekend"},
	})

	p := NewProvider(config.SignalsConfig{BaseURL: srv.URL, TimeoutSeconds: 2, TTLSeconds: 60})
	date := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	got, degraded := p.GetSignals(context.Background(), date)
	assert.False(t, degraded)
	assert.Equal(t, "rain", got.Weather)
	assert.True(t, got.Holiday)
	assert.Equal(t, "up", got.Bias.Direction)
	assert.Equal(t, "2025-08-15", got.Date)

	// Second call for the same date is served from cache.
	_, degraded = p.GetSignals(context.Background(), date)
	assert.False(t, degraded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	// A different date misses the cache.
	_, _ = p.GetSignals(context.Background(), date.AddDate(0, 0, 1))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestGetSignalsNeutralWhenUnconfigured(t *testing.T) {
	p := NewProvider(config.SignalsConfig{})
	date := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	got, degraded := p.GetSignals(context.Background(), date)
	assert.True(t, degraded)
	assert.Equal(t, Neutral(date), got)
	assert.Equal(t, "unknown", got.Weather)
	assert.Equal(t, "neutral", got.Bias.Direction)
}

func TestGetSignalsNeutralOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	p := NewProvider(config.SignalsConfig{BaseURL: srv.URL, TimeoutSeconds: 2})
	date := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	got, degraded := p.GetSignals(context.Background(), date)
	assert.True(t, degraded)
	assert.Equal(t, Neutral(date), got)
}

func TestGetSignalsNeutralOnUnreachableHost(t *testing.T) {
	p := NewProvider(config.SignalsConfig{BaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1})
	date := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)

	_, degraded := p.GetSignals(context.Background(), date)
	assert.True(t, degraded)
}

func TestGetSignalsFillsDefaults(t *testing.T) {
	var hits int32
	srv := signalsServer(t, &hits, Signals{Weather: "clear"})

	p := NewProvider(config.SignalsConfig{BaseURL: srv.URL, TimeoutSeconds: 2})
	got, degraded := p.GetSignals(context.Background(), time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC))

	assert.False(t, degraded)
	assert.Equal(t, "2025-08-15", got.Date)
	assert.Equal(t, "neutral", got.Bias.Direction)
}
