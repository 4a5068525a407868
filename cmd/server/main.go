// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowpos/forecast-engine/internal/api"
	"github.com/flowpos/forecast-engine/internal/cache"
	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/forecast"
	"github.com/flowpos/forecast-engine/internal/repository/postgres"
	"github.com/flowpos/forecast-engine/internal/service"
	"github.com/flowpos/forecast-engine/internal/signals"
	"github.com/flowpos/forecast-engine/internal/storage"
	"github.com/flowpos/forecast-engine/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	demandRepo := postgres.NewDemandRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	planningRepo := postgres.NewPlanningRepository(db)

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Forecast cache unavailable, continuing without caching")
		forecastCache = cache.NewNoopForecastCache()
	}

	var artifactStore forecast.ArtifactStore
	if cfg.Artifacts.Enabled {
		minioClient, err := storage.NewMinioClient(cfg.Artifacts)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Artifact storage unavailable, models will live in memory only")
		} else {
			artifactStore = minioClient
		}
	}

	registry := forecast.NewRegistry()
	provider := signals.NewProvider(cfg.Signals)

	forecastService := service.NewForecastService(cfg, demandRepo, registry, provider, forecastCache)
	planningService := service.NewPlanningService(cfg, forecastService, catalogRepo, planningRepo)
	trainingService := service.NewTrainingService(cfg, registry, artifactStore, demandRepo, planningRepo, forecastCache)

	if key := os.Getenv("ARTIFACTS_RESTORE_KEY"); key != "" && artifactStore != nil {
		restoreCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := trainingService.Restore(restoreCtx, key); err != nil {
			logger.Log.Warn().Err(err).Str("key", key).Msg("Model restore failed, serving baseline until trained")
		} else {
			logger.Log.Info().Str("key", key).Msg("Model snapshot restored")
		}
		cancel()
	}

	router := api.NewRouter(&api.Services{
		ForecastService: forecastService,
		PlanningService: planningService,
		TrainingService: trainingService,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
