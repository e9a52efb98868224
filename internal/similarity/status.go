package similarity

import (
	"context"
	"fmt"
	"time"

	"github.com/doppel-dev/doppel/internal/infra/redis"
	"github.com/doppel-dev/doppel/internal/models"
	"github.com/rs/zerolog/log"
)

const statusTTL = 12 * time.Hour

func statusKey(corpusID string) string {
	return "analysis_status:" + corpusID
}

// UpdateStatus records the current pipeline step for a corpus in Redis.
func UpdateStatus(ctx context.Context, redisClient *redis.Client, corpusID string, step models.Step) error {
	validSteps := map[models.Step]bool{
		models.StepIdle:        true,
		models.StepInitiated:   true,
		models.StepBuilding:    true,
		models.StepDetecting:   true,
		models.StepAggregating: true,
		models.StepCompleted:   true,
		models.StepFailed:      true,
	}
	if !validSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := statusKey(corpusID)

	err := redisClient.Client.Set(ctx, rkey, string(step), statusTTL).Err()
	if err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("corpusId", corpusID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().
		Str("step", string(step)).
		Str("corpusId", corpusID).
		Msg("Status updated in Redis")

	return nil
}

// GetStatus reads the current pipeline step for a corpus. A missing key
// reads as idle.
func GetStatus(ctx context.Context, redisClient *redis.Client, corpusID string) (models.Step, error) {
	value, err := redisClient.Client.Get(ctx, statusKey(corpusID)).Result()
	if err != nil {
		if redisClient.IsNil(err) {
			return models.StepIdle, nil
		}
		return "", fmt.Errorf("failed to read status from Redis: %w", err)
	}
	return models.Step(value), nil
}
