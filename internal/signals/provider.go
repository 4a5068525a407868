// internal/signals/provider.go
package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/pkg/logger"
)

// Signals is the advisory payload from the external context service.
// The engine surfaces it to callers but never requires it for
// correctness.
type Signals struct {
	Date     string         `json:"date"`
	Weather  string         `json:"weather"`
	Holiday  bool           `json:"holiday"`
	Payday   bool           `json:"payday"`
	Calendar map[string]any `json:"calendar,omitempty"`
	Bias     Bias           `json:"bias"`
}

// Bias is the provider's overall demand nudge.
type Bias struct {
	Direction string `json:"direction"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Neutral is the payload served when the provider is unreachable or not
// configured.
func Neutral(date time.Time) Signals {
	return Signals{
		Date:    date.Format("2006-01-02"),
		Weather: "unknown",
		Bias:    Bias{Direction: "neutral"},
	}
}

// Provider fetches daily context signals over HTTP with a bounded
// timeout and a short-lived in-process cache. Every failure path returns
// the neutral payload with degraded=true; it never blocks a forecast.
type Provider struct {
	baseURL string
	ttl     time.Duration
	client  *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	signals Signals
	expires time.Time
}

func NewProvider(cfg config.SignalsConfig) *Provider {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Provider{
		baseURL: cfg.BaseURL,
		ttl:     ttl,
		client:  &http.Client{Timeout: timeout},
		cache:   make(map[string]cacheEntry),
	}
}

// GetSignals returns the signals for a date and whether the response is a
// degraded neutral default.
func (p *Provider) GetSignals(ctx context.Context, date time.Time) (Signals, bool) {
	key := date.Format("2006-01-02")

	p.mu.Lock()
	if entry, ok := p.cache[key]; ok && time.Now().Before(entry.expires) {
		p.mu.Unlock()
		return entry.signals, false
	}
	p.mu.Unlock()

	if p.baseURL == "" {
		return Neutral(date), true
	}

	s, err := p.fetch(ctx, key)
	if err != nil {
		log := logger.Component("signals")
		log.Warn().Err(err).Str("date", key).Msg("signal fetch failed, using neutral defaults")
		return Neutral(date), true
	}

	p.mu.Lock()
	p.cache[key] = cacheEntry{signals: s, expires: time.Now().Add(p.ttl)}
	p.mu.Unlock()
	return s, false
}

func (p *Provider) fetch(ctx context.Context, date string) (Signals, error) {
	url := fmt.Sprintf("%s/signals?date=%s", p.baseURL, date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Signals{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Signals{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Signals{}, fmt.Errorf("signal provider returned %d", resp.StatusCode)
	}

	var s Signals
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return Signals{}, err
	}
	if s.Date == "" {
		s.Date = date
	}
	if s.Bias.Direction == "" {
		s.Bias.Direction = "neutral"
	}
	return s, nil
}
