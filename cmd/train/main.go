package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/flowpos/forecast-engine/internal/cache"
	"github.com/flowpos/forecast-engine/internal/config"
	"github.com/flowpos/forecast-engine/internal/forecast"
	"github.com/flowpos/forecast-engine/internal/repository/postgres"
	"github.com/flowpos/forecast-engine/internal/service"
	"github.com/flowpos/forecast-engine/internal/storage"
	"github.com/flowpos/forecast-engine/pkg/logger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "train",
		Usage: "Run one model training job against the demand history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "identity",
				Usage: "Model identity to train",
				Value: service.DefaultModelIdentity,
			},
		},
		Action: runTraining,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runTraining(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var artifactStore forecast.ArtifactStore
	if cfg.Artifacts.Enabled {
		minioClient, err := storage.NewMinioClient(cfg.Artifacts)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Artifact storage unavailable, training in memory only")
		} else {
			artifactStore = minioClient
		}
	}

	trainingService := service.NewTrainingService(
		cfg,
		forecast.NewRegistry(),
		artifactStore,
		postgres.NewDemandRepository(db),
		postgres.NewPlanningRepository(db),
		cache.NewNoopForecastCache(),
	)

	run, err := trainingService.Train(c.Context, c.String("identity"))
	if err != nil {
		return err
	}

	logger.Log.Info().
		Int64("run_id", run.ID).
		Str("identity", run.ModelIdentity).
		Float64("holdout_wmape", run.HoldoutWMAPE).
		Str("artifact", run.ArtifactKey).
		Msg("Training run completed")
	return nil
}
