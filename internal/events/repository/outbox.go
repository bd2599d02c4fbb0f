package repository

import (
	"context"
	"fmt"
	"time"

	"repairdesk/pkg/config"
	mongotx "repairdesk/pkg/db/mongo"
	"repairdesk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	OutboxCollection = "Booking_outbox"
)

type OutboxRepository interface {
	// Enqueue stores a pending message. Called inside the transaction that
	// produced the event.
	Enqueue(ctx context.Context, msg *model.OutboxMessage) error
	// FetchPending returns up to limit pending messages, oldest first.
	FetchPending(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	// MarkFailed records a failed attempt. Once maxAttempts is reached the
	// message leaves the pending queue for good.
	MarkFailed(ctx context.Context, id string, reason string, maxAttempts int) error
}

type mongoOutboxRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOutboxRepository(cfg *config.Config) OutboxRepository {
	return NewMongoOutboxRepositoryFromDB(cfg, cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
}

func NewMongoOutboxRepositoryFromDB(cfg *config.Config, db *mongo.Database) OutboxRepository {
	return &mongoOutboxRepository{
		cfg:        cfg,
		collection: db.Collection(OutboxCollection),
	}
}

func (r *mongoOutboxRepository) Enqueue(ctx context.Context, msg *model.OutboxMessage) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if msg.Status == "" {
		msg.Status = model.OutboxPending
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	if _, err := r.collection.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to enqueue outbox message: %w", err)
	}
	return nil
}

func (r *mongoOutboxRepository) FetchPending(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"status": model.OutboxPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*model.OutboxMessage
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode outbox: %w", err)
	}
	return messages, nil
}

func (r *mongoOutboxRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{"status": model.OutboxPublished, "published_at": at},
		"$inc": bson.M{"attempts": 1},
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to mark outbox message published: %w", err)
	}
	return nil
}

func (r *mongoOutboxRepository) MarkFailed(ctx context.Context, id string, reason string, maxAttempts int) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, markFailedPipeline(reason, maxAttempts)); err != nil {
		return fmt.Errorf("failed to mark outbox message failed: %w", err)
	}
	return nil
}

// markFailedPipeline flips the status in the same update that reaches
// maxAttempts. Broker errors are free text, so the reason is stored via
// $literal to keep strings starting with "$" from being read as field paths.
func markFailedPipeline(reason string, maxAttempts int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"attempts":   bson.M{"$add": bson.A{"$attempts", 1}},
			"last_error": bson.M{"$literal": reason},
		}}},
		{{Key: "$set", Value: bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$attempts", maxAttempts}},
				model.OutboxFailed,
				"$status",
			}},
		}}},
	}
}
