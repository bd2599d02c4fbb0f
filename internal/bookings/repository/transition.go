package repository

import (
	"context"
	"fmt"

	bookingserrors "repairdesk/internal/bookings/errors"
	"repairdesk/pkg/config"
	mongotx "repairdesk/pkg/db/mongo"
	"repairdesk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TransitionsCollection = "Booking_transitions"
)

// TransitionRepository is append-only. Records are never updated or removed.
type TransitionRepository interface {
	Append(ctx context.Context, transition *model.BookingTransition) error
	FindByBooking(ctx context.Context, bookingID string) ([]*model.BookingTransition, error)
	CountByBooking(ctx context.Context, bookingID string) (int64, error)
}

type mongoTransitionRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTransitionRepository(cfg *config.Config) TransitionRepository {
	return NewMongoTransitionRepositoryFromDB(cfg, cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
}

func NewMongoTransitionRepositoryFromDB(cfg *config.Config, db *mongo.Database) TransitionRepository {
	return &mongoTransitionRepository{
		cfg:        cfg,
		collection: db.Collection(TransitionsCollection),
	}
}

func (r *mongoTransitionRepository) Append(ctx context.Context, transition *model.BookingTransition) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, transition); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrDuplicateTransition
		}
		return fmt.Errorf("failed to append transition: %w", err)
	}
	return nil
}

func (r *mongoTransitionRepository) FindByBooking(ctx context.Context, bookingID string) ([]*model.BookingTransition, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find transitions: %w", err)
	}
	defer cursor.Close(ctx)

	transitions := []*model.BookingTransition{}
	if err = cursor.All(ctx, &transitions); err != nil {
		return nil, fmt.Errorf("failed to decode transitions: %w", err)
	}
	return transitions, nil
}

func (r *mongoTransitionRepository) CountByBooking(ctx context.Context, bookingID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return 0, fmt.Errorf("failed to count transitions: %w", err)
	}
	return count, nil
}
