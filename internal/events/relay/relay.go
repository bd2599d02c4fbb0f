package relay

import (
	"context"
	"fmt"
	"time"

	eventsrepo "repairdesk/internal/events/repository"
	"repairdesk/pkg/config"
	"repairdesk/pkg/kafka"
	"repairdesk/pkg/model"
	otelx "repairdesk/pkg/otel"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const source = "repairdesk-bookings"

type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Relay drains the booking outbox into Kafka. Delivery is at-least-once:
// a crash between publish and MarkPublished re-sends the message, and
// consumers dedupe on the event-id header.
type Relay struct {
	outbox        eventsrepo.OutboxRepository
	publisher     Publisher
	cfg           *config.Config
	schemaVersion string
	tracer        trace.Tracer
	now           func() time.Time
}

func NewRelay(outbox eventsrepo.OutboxRepository, publisher Publisher, schemaVersion string, cfg *config.Config) *Relay {
	return &Relay{
		outbox:        outbox,
		publisher:     publisher,
		cfg:           cfg,
		schemaVersion: schemaVersion,
		tracer:        otelx.Tracer("relay"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	r.cfg.Log.Info("Outbox relay started",
		"poll_interval", r.cfg.OutboxPollInterval,
		"batch_size", r.cfg.OutboxBatchSize,
	)

	ticker := time.NewTicker(r.cfg.OutboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.cfg.Log.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			// Keep draining while whole batches go out cleanly.
			for {
				n, err := r.RunOnce(ctx)
				if err != nil {
					r.cfg.Log.Error("Outbox relay batch failed", "error", err)
					break
				}
				if n < r.cfg.OutboxBatchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// RunOnce publishes one batch of pending messages and returns how many were
// delivered. Once a message for a booking fails, later messages for the same
// booking wait for the next batch so consumers see transitions in order.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	messages, err := r.outbox.FetchPending(ctx, r.cfg.OutboxBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending outbox messages: %w", err)
	}

	delivered := 0
	blocked := make(map[string]bool)
	for _, msg := range messages {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if blocked[msg.Key] {
			continue
		}
		if err := r.deliver(ctx, msg); err != nil {
			blocked[msg.Key] = true
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (r *Relay) deliver(ctx context.Context, msg *model.OutboxMessage) error {
	msgCtx := otelx.ContextWithTraceContext(ctx, msg.Traceparent, msg.Tracestate)
	msgCtx, span := r.tracer.Start(msgCtx, "relay.Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.String("booking.id", msg.Key),
			attribute.String("event.id", msg.ID),
		),
	)
	defer span.End()

	record, err := kafka.NewMessage(msg.Topic).
		WithKey(msg.Key).
		WithValue(msg.Event).
		WithEventID(msg.ID).
		WithEventType(msg.EventType).
		WithSchemaVersion(r.schemaVersion).
		WithSource(source).
		WithTimestamp(msg.Event.Timestamp).
		Build()
	if err == nil {
		err = r.publisher.Publish(msgCtx, record)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")

		maxAttempts := r.cfg.OutboxMaxAttempts
		if kafka.IsPermanent(err) {
			maxAttempts = 1
		}
		if markErr := r.outbox.MarkFailed(ctx, msg.ID, err.Error(), maxAttempts); markErr != nil {
			r.cfg.Log.Error("Failed to record outbox failure", "event_id", msg.ID, "error", markErr)
		}
		r.cfg.Log.WithTrace(msgCtx).Warn("Failed to publish booking event",
			"event_id", msg.ID,
			"booking_id", msg.Key,
			"attempt", msg.Attempts+1,
			"permanent", kafka.IsPermanent(err),
			"error", err,
		)
		return err
	}

	if err := r.outbox.MarkPublished(ctx, msg.ID, r.now()); err != nil {
		// The message will be sent again on the next poll.
		r.cfg.Log.Error("Failed to mark outbox message published", "event_id", msg.ID, "error", err)
		return err
	}

	r.cfg.Log.WithTrace(msgCtx).Debug("Published booking event",
		"event_id", msg.ID,
		"booking_id", msg.Key,
		"to_state", msg.Event.ToState,
	)
	return nil
}
