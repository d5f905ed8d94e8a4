package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/irfndi/electricity-price-prediction/internal/models"
)

// DefaultChannel is where prediction events go when none is configured.
const DefaultChannel = "predictions:created"

// Publisher is the subset of the Redis client the publisher needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) (int64, error)
}

// RedisPublisher fans stored predictions out to Redis subscribers.
type RedisPublisher struct {
	client  Publisher
	channel string
	now     func() time.Time
}

// NewRedisPublisher creates a publisher on channel, or DefaultChannel when empty.
func NewRedisPublisher(client Publisher, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		now:     time.Now,
	}
}

// PublishPrediction wraps the prediction in a PredictionCreatedEvent and publishes it as JSON.
func (p *RedisPublisher) PublishPrediction(ctx context.Context, prediction models.PredictionResponse) error {
	event := models.PredictionCreatedEvent{
		Type:        models.PredictionCreatedEventType,
		Prediction:  prediction,
		PublishedAt: p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction event: %w", err)
	}

	if _, err := p.client.Publish(ctx, p.channel, payload); err != nil {
		return fmt.Errorf("failed to publish prediction %d to %s: %w", prediction.ID, p.channel, err)
	}
	return nil
}
