package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowpos/forecast-engine/internal/cache"
	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/domain"
	"github.com/flowpos/forecast-engine/internal/forecast"
	"github.com/flowpos/forecast-engine/internal/repository"
	"github.com/flowpos/forecast-engine/internal/signals"
)

// historyDays bounds how far back observations are loaded for inference.
// Long enough for the 28-day lags and the 60-day sequence window.
const historyDays = 120

// ForecastService wires demand history, the ensemble and the advisory
// signal provider behind the forecast queries.
type ForecastService struct {
	cfg       config.ForecastConfig
	demand    repository.DemandRepository
	ensemble  *forecast.Ensemble
	coldStart *forecast.ColdStartEstimator
	signals   *signals.Provider
	cache     cache.ForecastCache
}

func NewForecastService(
	cfg *config.Config,
	demand repository.DemandRepository,
	registry *forecast.Registry,
	provider *signals.Provider,
	cacheImpl cache.ForecastCache,
) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	if provider == nil {
		provider = signals.NewProvider(cfg.Signals)
	}
	return &ForecastService{
		cfg:       cfg.Forecast,
		demand:    demand,
		ensemble:  forecast.NewEnsemble(cfg.Forecast, registry),
		coldStart: forecast.NewColdStartEstimator(cfg.ColdStart),
		signals:   provider,
		cache:     cacheImpl,
	}
}

// Forecast answers the product-level forecast query, attaching the
// advisory signals for the first forecast day. Cached responses are
// served as-is within the TTL.
func (s *ForecastService) Forecast(ctx context.Context, filter domain.ForecastFilter) ([]domain.ForecastPoint, domain.BatchMetadata, error) {
	if cached, ok, err := s.cache.Get(ctx, filter); err == nil && ok {
		return cached.Points, cached.Metadata, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("forecast: cache get failed")
	}

	obs, err := s.demand.GetObservations(ctx, time.Now().AddDate(0, 0, -historyDays), filter.LocationID)
	if err != nil {
		return nil, domain.BatchMetadata{}, err
	}

	points, meta := s.ensemble.Forecast(obs, filter, time.Now())

	_, degraded := s.signals.GetSignals(ctx, time.Now().AddDate(0, 0, 1))
	meta.DegradedContext = degraded

	if err := s.cache.Set(ctx, filter, &cache.CachedForecast{Points: points, Metadata: meta}); err != nil {
		log.Warn().Err(err).Msg("forecast: cache set failed")
	}
	return points, meta, nil
}

// ColdStart answers the no-history estimation query.
func (s *ForecastService) ColdStart(ctx context.Context, productName, category string) (*domain.ColdStartEstimate, error) {
	obs, err := s.demand.GetObservations(ctx, time.Now().AddDate(0, 0, -historyDays), 0)
	if err != nil {
		return nil, err
	}
	return s.coldStart.Estimate(productName, category, obs)
}

// Signals proxies the advisory context payload for a date.
func (s *ForecastService) Signals(ctx context.Context, date time.Time) (signals.Signals, bool) {
	return s.signals.GetSignals(ctx, date)
}
