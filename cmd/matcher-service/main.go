package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/trialmatch-ai/platform/pkg/common/config"
	"github.com/trialmatch-ai/platform/pkg/common/database"
	"github.com/trialmatch-ai/platform/pkg/common/kafka"
	"github.com/trialmatch-ai/platform/pkg/common/logger"
	"github.com/trialmatch-ai/platform/pkg/common/models"
	"github.com/trialmatch-ai/platform/pkg/dataset"
	"github.com/trialmatch-ai/platform/pkg/discovery"
	"github.com/trialmatch-ai/platform/pkg/forecast"
	"github.com/trialmatch-ai/platform/pkg/matching"
	"github.com/trialmatch-ai/platform/pkg/pattern"
	"github.com/trialmatch-ai/platform/pkg/pipeline"
	"github.com/trialmatch-ai/platform/pkg/sites"
	"github.com/trialmatch-ai/platform/pkg/terminology"
	"github.com/trialmatch-ai/platform/pkg/validation"
)

type MatcherService struct {
	cfg      *config.Config
	patients []models.PatientRecord
	store    *pattern.Store
	mapper   *terminology.Mapper
	pipeline *pipeline.Pipeline
	events   *kafka.Producer
}

// memorySource serves the in-memory synthetic population to the pipeline.
type memorySource struct {
	patients []models.PatientRecord
}

func (m *memorySource) Patients(ctx context.Context) ([]models.PatientRecord, error) {
	return m.patients, nil
}

func main() {
	logger.Init()
	cfg := config.Load()

	catalog, err := terminology.Load(cfg.TerminologyPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Falling back to built-in terminology catalog")
	}

	siteDB, err := sites.LoadSites(cfg.SiteDatabasePath)
	if err != nil {
		logger.Log.WithError(err).Warn("Falling back to built-in site database")
	}

	loader := dataset.NewLoader(cfg.DiscoverySeed, catalog)
	patients := loader.GeneratePatients(cfg.SyntheticPatients)
	logger.Log.WithField("patients", len(patients)).Info("Patient population loaded")

	store := pattern.NewStore(redisIfEnabled(cfg))
	warmStore(cfg, store, patients)

	service := &MatcherService{
		cfg:      cfg,
		patients: patients,
		store:    store,
		mapper:   terminology.NewMapper(catalog),
		pipeline: pipeline.New(pipeline.Deps{
			Data:       &memorySource{patients: patients},
			Patterns:   store,
			Ranker:     pattern.NewMatcher(pattern.WithTopPatterns(cfg.TopPatterns), pattern.WithJitter(cfg.RankJitter, cfg.DiscoverySeed)),
			Finder:     discovery.NewFinder(cfg.MaxCandidates),
			Scorer:     matching.NewScorer(),
			Validator:  validation.NewValidator(),
			Planner:    sites.NewPlanner(siteDB, cfg.MaxSites),
			Forecaster: forecast.NewForecaster(cfg.PatientsPerSiteWeek),
		}, cfg.StageTimeout),
	}

	if cfg.KafkaEnabled {
		service.events = kafka.NewProducer(kafka.TopicPipeline)
		defer service.events.Close()
		go service.consumePatternEvents()
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/api/v1/match/run", service.handleRunPipeline).Methods("POST")
	router.HandleFunc("/api/v1/patterns", service.handleGetPatterns).Methods("GET")
	router.HandleFunc("/api/v1/patterns/visualization", service.handleGetVisualization).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Matcher Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Matcher Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	database.CloseRedis()

	logger.Log.Info("Matcher Service stopped")
}

func redisIfEnabled(cfg *config.Config) *redis.Client {
	if !cfg.RedisEnabled {
		return nil
	}
	return database.GetRedis()
}

// warmStore tries Redis first, then the persisted run history, then falls
// back to a fresh discovery run so the service is usable standalone.
func warmStore(cfg *config.Config, store *pattern.Store, patients []models.PatientRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Warm(ctx); err != nil {
		logger.Log.WithError(err).Warn("Failed to warm pattern store from Redis")
	}
	if store.Get() != nil {
		return
	}

	if cfg.PostgresEnabled {
		if db, err := database.GetPostgres(); err == nil && db != nil {
			repo := pattern.NewRepository(db)
			if result, err := repo.LatestRun(); err == nil && result != nil {
				store.Set(ctx, result)
				logger.Log.WithField("run_id", result.RunID).Info("Loaded patterns from run history")
				return
			}
		}
	}

	engine := pattern.NewEngine(
		pattern.WithSeed(cfg.DiscoverySeed),
		pattern.WithReducedDims(cfg.ReducedDims),
		pattern.WithClustering(cfg.ClusterEps, cfg.ClusterMinPoints),
		pattern.WithMinPatternSize(cfg.MinPatternSize),
		pattern.WithDispersionScale(cfg.DispersionScale),
	)
	result, err := engine.Discover(context.Background(), patients)
	if err != nil {
		logger.Log.WithError(err).Error("Startup pattern discovery failed")
		return
	}
	store.Set(ctx, result)
}

// consumePatternEvents reloads the pattern store whenever the discovery
// worker announces a new run.
func (s *MatcherService) consumePatternEvents() {
	consumer := kafka.NewConsumer(kafka.TopicPatterns, s.cfg.KafkaGroupID)
	defer consumer.Close()

	err := consumer.Consume(context.Background(), func(ctx context.Context, event models.Event) error {
		if event.Type != kafka.EventPatternsDiscovered {
			return nil
		}
		logger.Log.WithField("event_id", event.ID).Info("New discovery run announced, reloading patterns")
		return s.store.Warm(ctx)
	})
	if err != nil {
		logger.Log.WithError(err).Error("Pattern event consumer stopped")
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *MatcherService) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	var trial models.TrialCriteria
	if err := json.NewDecoder(r.Body).Decode(&trial); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if trial.TrialID == "" {
		http.Error(w, "trial_id is required", http.StatusBadRequest)
		return
	}

	// Code free-text criteria when the caller did not supply coded sets.
	if trial.InclusionCodes == nil && trial.ExclusionCodes == nil {
		trial.InclusionCodes, trial.ExclusionCodes = s.mapper.MapCriteria(trial.InclusionCriteria, trial.ExclusionCriteria)
	}

	result := s.pipeline.Run(r.Context(), trial)

	if s.events != nil && result.Status == pipeline.StatusSuccess {
		if err := s.events.PublishEvent(r.Context(), kafka.EventPipelineCompleted, "matcher-service", map[string]interface{}{
			"trial_id":      trial.TrialID,
			"total_matches": result.TotalMatches,
		}); err != nil {
			logger.Log.WithError(err).Warn("Failed to publish pipeline completion event")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Status == pipeline.StatusError {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(result)
}

func (s *MatcherService) handleGetPatterns(w http.ResponseWriter, r *http.Request) {
	result := s.store.Get()
	if result == nil {
		http.Error(w, "No discovery run available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":         result.RunID,
		"patterns":       result.Patterns,
		"insights":       pattern.Insights(result.Patterns),
		"total_patients": result.TotalPatients,
		"clustered":      result.Clustered,
		"noise":          result.Noise,
		"completed_at":   result.CompletedAt,
	})
}

func (s *MatcherService) handleGetVisualization(w http.ResponseWriter, r *http.Request) {
	result := s.store.Get()
	if result == nil {
		http.Error(w, "No discovery run available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": result.RunID,
		"points": result.Visualization,
	})
}
