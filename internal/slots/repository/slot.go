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
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SlotsCollection = "Availability_slots"
)

type SlotRepository interface {
	InsertMany(ctx context.Context, slots []*model.AvailabilitySlot) (int, error)
	FindByID(ctx context.Context, id string) (*model.AvailabilitySlot, error)
	FindByDate(ctx context.Context, date string, types []model.SlotType) ([]*model.AvailabilitySlot, error)
	// IncrementIfBelow adds one booking to the slot only while it is unblocked
	// and below capacity. It returns ErrSlotFull when the guard rejects it.
	IncrementIfBelow(ctx context.Context, id string, capacity int) (*model.AvailabilitySlot, error)
	// Decrement removes one booking, never going below zero.
	Decrement(ctx context.Context, id string) error
	SetBlocked(ctx context.Context, id string, blocked bool) (*model.AvailabilitySlot, error)
}

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	return NewMongoSlotRepositoryFromDB(cfg, cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
}

func NewMongoSlotRepositoryFromDB(cfg *config.Config, db *mongo.Database) SlotRepository {
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(SlotsCollection),
	}
}

func (r *mongoSlotRepository) InsertMany(ctx context.Context, slots []*model.AvailabilitySlot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(slots))
	for _, s := range slots {
		s.CreatedAt = now
		s.UpdatedAt = now
		docs = append(docs, s)
	}

	// Unordered so that slots generated earlier for the same day are skipped
	// through the unique (date, start_time, slot_type) index.
	result, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) && onlyDuplicateKeys(bulkErr) {
			return len(docs) - len(bulkErr.WriteErrors), nil
		}
		return 0, fmt.Errorf("failed to insert slots: %w", err)
	}

	return len(result.InsertedIDs), nil
}

func onlyDuplicateKeys(bulkErr mongo.BulkWriteException) bool {
	if bulkErr.WriteConcernError != nil {
		return false
	}
	for _, we := range bulkErr.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.AvailabilitySlot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var slot model.AvailabilitySlot
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoSlotRepository) FindByDate(ctx context.Context, date string, types []model.SlotType) ([]*model.AvailabilitySlot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"date": date}
	if len(types) > 0 {
		filter["slot_type"] = bson.M{"$in": types}
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "start_time", Value: 1},
		{Key: "slot_type", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.AvailabilitySlot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

func (r *mongoSlotRepository) IncrementIfBelow(ctx context.Context, id string, capacity int) (*model.AvailabilitySlot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":              id,
		"blocked":          false,
		"current_bookings": bson.M{"$lt": capacity},
	}
	update := bson.M{
		"$inc": bson.M{"current_bookings": 1},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var slot model.AvailabilitySlot
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrSlotFull
		}
		return nil, fmt.Errorf("failed to increment slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoSlotRepository) Decrement(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id":              id,
		"current_bookings": bson.M{"$gt": 0},
	}
	update := bson.M{
		"$inc": bson.M{"current_bookings": -1},
		"$set": bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to decrement slot: %w", err)
	}
	return nil
}

func (r *mongoSlotRepository) SetBlocked(ctx context.Context, id string, blocked bool) (*model.AvailabilitySlot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"blocked":    blocked,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var slot model.AvailabilitySlot
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update slot: %w", err)
	}
	return &slot, nil
}
