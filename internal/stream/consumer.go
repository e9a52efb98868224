package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doppel-dev/doppel/internal/ingest"
	"github.com/doppel-dev/doppel/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	readBatchSize = 10
	claimMinIdle  = 1 * time.Minute
)

// Consumer reads function extraction events from the Redis stream and feeds
// them to the ingest service. Submissions that fail to decode or validate
// are dead lettered immediately: they cannot heal on retry, and leaving
// them pending would stall the corpus they belong to.
type Consumer struct {
	client            *redis.Client
	streamKey         string
	consumerGroup     string
	consumerName      string
	ingestSvc         *ingest.Service
	retryHandler      *RetryHandler
	retentionDuration time.Duration
	claimInterval     time.Duration
	trimInterval      time.Duration
	lastClaim         time.Time
}

func NewConsumer(
	client *redis.Client,
	streamKey string,
	consumerGroup string,
	consumerName string,
	ingestSvc *ingest.Service,
	retryHandler *RetryHandler,
	retentionDuration time.Duration,
) *Consumer {
	return &Consumer{
		client:            client,
		streamKey:         streamKey,
		consumerGroup:     consumerGroup,
		consumerName:      consumerName,
		ingestSvc:         ingestSvc,
		retryHandler:      retryHandler,
		retentionDuration: retentionDuration,
		claimInterval:     30 * time.Second,
		trimInterval:      1 * time.Hour,
		lastClaim:         time.Now(),
	}
}

// Start runs the consume loop until ctx is cancelled. Entries abandoned by
// a crashed consumer are reclaimed on startup and then periodically.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.createConsumerGroup(ctx); err != nil {
		return err
	}

	if err := c.claimAbandoned(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to reclaim abandoned submissions on startup")
	}
	c.lastClaim = time.Now()

	go c.trimPeriodically(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consume(ctx); err != nil {
				log.Error().Err(err).Msg("Error reading function submissions")
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) createConsumerGroup(ctx context.Context) error {
	// MKSTREAM creates the stream when the parser service has not
	// published yet
	err := c.client.XGroupCreateMkStream(ctx, c.streamKey, c.consumerGroup, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			log.Debug().
				Str("group", c.consumerGroup).
				Msg("Consumer group already exists")
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Info().
		Str("group", c.consumerGroup).
		Str("stream", c.streamKey).
		Msg("Created consumer group for function submissions")
	return nil
}

// claimAbandoned takes over entries another consumer read but never
// acknowledged, which happens when an instance dies mid-ingest.
func (c *Consumer) claimAbandoned(ctx context.Context) error {
	start := "0-0"
	for {
		claimed, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.streamKey,
			Group:    c.consumerGroup,
			Consumer: c.consumerName,
			MinIdle:  claimMinIdle,
			Start:    start,
			Count:    100,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				return nil
			}
			return fmt.Errorf("failed to autoclaim pending submissions: %w", err)
		}

		if len(claimed) > 0 {
			log.Info().
				Int("claimed", len(claimed)).
				Str("consumer", c.consumerName).
				Msg("Reclaimed abandoned function submissions")
		}

		for i := range claimed {
			c.handleMessage(ctx, &claimed[i])
		}

		if next == "0-0" || len(claimed) == 0 {
			return nil
		}
		start = next
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	if time.Since(c.lastClaim) > c.claimInterval {
		if err := c.claimAbandoned(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to reclaim abandoned submissions")
		}
		c.lastClaim = time.Now()
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.consumerGroup,
		Consumer: c.consumerName,
		Streams:  []string{c.streamKey, ">"},
		Count:    readBatchSize,
		Block:    time.Second,
	}).Result()

	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		if stream.Stream != c.streamKey {
			continue
		}
		for i := range stream.Messages {
			c.handleMessage(ctx, &stream.Messages[i])
		}
	}

	return nil
}

// handleMessage ingests one submission. Malformed entries go straight to
// the dead letter stream and are acknowledged; only store failures are
// worth the backoff.
func (c *Consumer) handleMessage(ctx context.Context, msg *redis.XMessage) {
	fields := make(map[string]string)
	fieldsMap := make(map[string]interface{}, len(msg.Values))
	for key, val := range msg.Values {
		if value, ok := val.(string); ok {
			fields[key] = value
		}
		fieldsMap[key] = val
	}

	submission, err := ParseSubmission(&StreamMessage{ID: msg.ID, Fields: fields})
	if err != nil {
		c.rejectMessage(ctx, msg.ID, fieldsMap, err)
		return
	}

	err = c.ingestSvc.ProcessSubmission(ctx, submission)
	if errors.Is(err, ingest.ErrInvalidRecord) {
		c.rejectMessage(ctx, msg.ID, fieldsMap, err)
		return
	}
	if err != nil {
		err = c.retryHandler.RetryWithBackoff(ctx, func() error {
			return c.ingestSvc.ProcessSubmission(ctx, submission)
		}, msg.ID, fieldsMap)
	}

	if err != nil {
		// exhausted retries, already dead lettered by the retry handler
		log.Error().
			Err(err).
			Str("message_id", msg.ID).
			Str("corpus_id", submission.CorpusID).
			Str("function_id", submission.FunctionID).
			Msg("Failed to ingest function submission")
		c.acknowledge(ctx, msg.ID)
		return
	}

	c.acknowledge(ctx, msg.ID)
}

func (c *Consumer) rejectMessage(ctx context.Context, messageID string, fields map[string]interface{}, cause error) {
	log.Warn().
		Err(cause).
		Str("message_id", messageID).
		Msg("Rejecting malformed function submission")

	metrics.RecordsRejected.Inc()
	if err := c.retryHandler.sendToDeadLetter(ctx, messageID, fields, cause); err != nil {
		log.Error().Err(err).
			Str("message_id", messageID).
			Msg("Failed to dead letter malformed submission")
	}
	c.acknowledge(ctx, messageID)
}

// trimOldEntries drops submissions past the retention window. Everything
// older has either been ingested or dead lettered.
func (c *Consumer) trimOldEntries(ctx context.Context) error {
	cutoff := time.Now().Add(-c.retentionDuration)
	minID := fmt.Sprintf("%d-0", cutoff.UnixMilli())

	trimmed, err := c.client.XTrimMinID(ctx, c.streamKey, minID).Result()
	if err != nil {
		return fmt.Errorf("failed to trim stream: %w", err)
	}

	if trimmed > 0 {
		log.Debug().
			Int64("trimmed", trimmed).
			Dur("retention", c.retentionDuration).
			Msg("Trimmed expired function submissions")
	}

	return nil
}

func (c *Consumer) trimPeriodically(ctx context.Context) {
	ticker := time.NewTicker(c.trimInterval)
	defer ticker.Stop()

	if err := c.trimOldEntries(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to trim stream on startup")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.trimOldEntries(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to trim expired submissions")
			}
		}
	}
}

func (c *Consumer) acknowledge(ctx context.Context, messageID string) {
	if err := c.client.XAck(ctx, c.streamKey, c.consumerGroup, messageID).Err(); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to acknowledge submission")
	}
}
