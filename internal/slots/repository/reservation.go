package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "repairdesk/internal/slots/errors"
	"repairdesk/pkg/config"
	mongotx "repairdesk/pkg/db/mongo"
	"repairdesk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ReservationsCollection = "Slot_reservations"
)

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	// MarkReleased flips the reservation to released. It reports false when
	// the reservation had already been released.
	MarkReleased(ctx context.Context, id string, at time.Time) (bool, error)
}

type mongoReservationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	return NewMongoReservationRepositoryFromDB(cfg, cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
}

func NewMongoReservationRepositoryFromDB(cfg *config.Config, db *mongo.Database) ReservationRepository {
	return &mongoReservationRepository{
		cfg:        cfg,
		collection: db.Collection(ReservationsCollection),
	}
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, reservation); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return slotserrors.ErrDuplicateReservation
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var reservation model.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return &reservation, nil
}

func (r *mongoReservationRepository) MarkReleased(ctx context.Context, id string, at time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "released": false}
	update := bson.M{"$set": bson.M{"released": true, "released_at": at}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to release reservation: %w", err)
	}
	return result.ModifiedCount == 1, nil
}
