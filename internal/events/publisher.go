package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends events to a Redis stream.
type Publisher struct {
	client *redis.Client
	maxLen int64
}

func NewPublisher(client *redis.Client, maxLen int64) *Publisher {
	return &Publisher{client: client, maxLen: maxLen}
}

func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"event": eventJSON,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Audit publishes to the audit stream and only logs failures. Audit delivery
// never changes the outcome of the request that produced it.
type Audit struct {
	publisher *Publisher
	logger    *slog.Logger
}

func NewAudit(publisher *Publisher, logger *slog.Logger) *Audit {
	return &Audit{publisher: publisher, logger: logger}
}

// Record is safe on a nil *Audit, which is what callers get when Redis is
// not configured.
func (a *Audit) Record(ctx context.Context, eventType string, data any) {
	if a == nil || a.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := a.publisher.Publish(ctx, AuditStream, eventType, data); err != nil {
		a.logger.Warn("audit event not published", "type", eventType, "error", err)
	}
}
