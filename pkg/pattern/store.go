package pattern

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trialmatch-ai/platform/pkg/common/logger"
	"github.com/trialmatch-ai/platform/pkg/common/models"
)

const (
	redisKeyLatest = "patterns:latest"
	redisTTL       = 24 * time.Hour
)

// Store holds the latest discovery result behind a read lock and optionally
// mirrors it to Redis so a restarted service can warm up without re-running
// discovery. A nil Redis client disables the mirror.
type Store struct {
	mu     sync.RWMutex
	latest *models.DiscoveryResult
	redis  *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

// Set swaps in a new discovery result atomically. Readers mid-pipeline keep
// the snapshot they already hold.
func (s *Store) Set(ctx context.Context, result *models.DiscoveryResult) {
	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	if s.redis == nil || result == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to serialize discovery result")
		return
	}
	if err := s.redis.Set(ctx, redisKeyLatest, payload, redisTTL).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to mirror patterns to Redis")
	}
}

// Get returns the current discovery result, or nil when none has been set.
func (s *Store) Get() *models.DiscoveryResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Warm loads the mirrored result from Redis if present. Missing keys are not
// an error.
func (s *Store) Warm(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	payload, err := s.redis.Get(ctx, redisKeyLatest).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	var result models.DiscoveryResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return err
	}

	s.mu.Lock()
	s.latest = &result
	s.mu.Unlock()

	logger.WithField("run_id", result.RunID).Info("Warmed pattern store from Redis")
	return nil
}
