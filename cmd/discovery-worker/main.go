package main

import (
	"context"
	"time"

	"github.com/trialmatch-ai/platform/pkg/common/config"
	"github.com/trialmatch-ai/platform/pkg/common/database"
	"github.com/trialmatch-ai/platform/pkg/common/kafka"
	"github.com/trialmatch-ai/platform/pkg/common/logger"
	"github.com/trialmatch-ai/platform/pkg/dataset"
	"github.com/trialmatch-ai/platform/pkg/pattern"
	"github.com/trialmatch-ai/platform/pkg/terminology"
)

// The discovery worker runs one full pattern discovery pass over the patient
// population, publishes the result for the matcher service, and exits. It is
// meant to run on a schedule.
func main() {
	logger.Init()
	cfg := config.Load()

	catalog, err := terminology.Load(cfg.TerminologyPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Falling back to built-in terminology catalog")
	}

	loader := dataset.NewLoader(cfg.DiscoverySeed, catalog)
	patients := loader.GeneratePatients(cfg.SyntheticPatients)
	logger.Log.WithField("patients", len(patients)).Info("Patient population loaded")

	engine := pattern.NewEngine(
		pattern.WithSeed(cfg.DiscoverySeed),
		pattern.WithReducedDims(cfg.ReducedDims),
		pattern.WithClustering(cfg.ClusterEps, cfg.ClusterMinPoints),
		pattern.WithMinPatternSize(cfg.MinPatternSize),
		pattern.WithDispersionScale(cfg.DispersionScale),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := engine.Discover(ctx, patients)
	if err != nil {
		logger.Log.WithError(err).Fatal("Pattern discovery failed")
	}

	if cfg.RedisEnabled {
		store := pattern.NewStore(database.GetRedis())
		store.Set(ctx, result)
		defer database.CloseRedis()
	}

	if cfg.PostgresEnabled {
		db, err := database.GetPostgres()
		if err != nil || db == nil {
			logger.Log.WithError(err).Error("Skipping run persistence, PostgreSQL unavailable")
		} else {
			repo := pattern.NewRepository(db)
			if err := repo.Migrate(); err != nil {
				logger.Log.WithError(err).Error("Failed to migrate run history schema")
			} else if err := repo.SaveRun(result); err != nil {
				logger.Log.WithError(err).Error("Failed to persist discovery run")
			}
			defer database.ClosePostgres()
		}
	}

	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.TopicPatterns)
		defer producer.Close()

		err := producer.PublishEvent(ctx, kafka.EventPatternsDiscovered, "discovery-worker", map[string]interface{}{
			"run_id":         result.RunID,
			"patterns":       len(result.Patterns),
			"total_patients": result.TotalPatients,
			"clustered":      result.Clustered,
			"noise":          result.Noise,
		})
		if err != nil {
			logger.Log.WithError(err).Error("Failed to announce discovery run")
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"patterns": len(result.Patterns),
	}).Info("Discovery worker finished")
}
