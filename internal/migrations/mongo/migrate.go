package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingsrepo "repairdesk/internal/bookings/repository"
	"repairdesk/internal/catalog"
	outboxrepo "repairdesk/internal/events/repository"
	"repairdesk/internal/migrations/mongo/validators"
	slotsrepo "repairdesk/internal/slots/repository"
	"repairdesk/pkg/logger"
)

var (
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_booking_number"),
		},
		{Keys: bson.D{
			{Key: "customer_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{{Key: "slot_id", Value: 1}}},
	}

	// One audit record per step; concurrent writers for the same booking
	// collide here instead of producing duplicate sequence numbers.
	TransitionsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "booking_id", Value: 1},
				{Key: "sequence", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_booking_sequence"),
		},
	}

	OutboxIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "created_at", Value: 1},
		}},
	}

	SlotsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "date", Value: 1},
				{Key: "start_time", Value: 1},
				{Key: "slot_type", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_slot_window"),
		},
	}

	ReservationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "slot_id", Value: 1}}},
	}

	DevicesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "brand", Value: 1},
			{Key: "category", Value: 1},
		}},
	}
)

type collectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func collections() []collectionDef {
	return []collectionDef{
		{Name: bookingsrepo.CollectionName, Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		{Name: bookingsrepo.TransitionsCollection, Indexes: TransitionsIndexes, Validator: validators.BookingTransitionValidator},
		{Name: outboxrepo.OutboxCollection, Indexes: OutboxIndexes, Validator: validators.OutboxValidator},
		{Name: slotsrepo.SlotsCollection, Indexes: SlotsIndexes, Validator: validators.SlotValidator},
		{Name: slotsrepo.ReservationsCollection, Indexes: ReservationsIndexes, Validator: validators.ReservationValidator},
		{Name: slotsrepo.SpecialDatesCollection, Validator: validators.SpecialDateValidator},
		{Name: catalog.DevicesCollection, Indexes: DevicesIndexes, Validator: validators.DeviceValidator},
		{Name: catalog.IssuesCollection, Validator: validators.RepairIssueValidator},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running mongo migrations", "database", db.Name())

	for _, def := range collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully", "database", db.Name())
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
