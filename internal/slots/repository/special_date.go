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
	SpecialDatesCollection = "Special_dates"
)

type SpecialDateRepository interface {
	Upsert(ctx context.Context, sd *model.SpecialDate) error
	FindByDate(ctx context.Context, date string) (*model.SpecialDate, error)
}

type mongoSpecialDateRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSpecialDateRepository(cfg *config.Config) SpecialDateRepository {
	return NewMongoSpecialDateRepositoryFromDB(cfg, cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
}

func NewMongoSpecialDateRepositoryFromDB(cfg *config.Config, db *mongo.Database) SpecialDateRepository {
	return &mongoSpecialDateRepository{
		cfg:        cfg,
		collection: db.Collection(SpecialDatesCollection),
	}
}

func (r *mongoSpecialDateRepository) Upsert(ctx context.Context, sd *model.SpecialDate) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	sd.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": sd.Date}, sd, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert special date: %w", err)
	}
	return nil
}

func (r *mongoSpecialDateRepository) FindByDate(ctx context.Context, date string) (*model.SpecialDate, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var sd model.SpecialDate
	err := r.collection.FindOne(ctx, bson.M{"_id": date}).Decode(&sd)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrSpecialDateNotFound
		}
		return nil, fmt.Errorf("failed to find special date: %w", err)
	}
	return &sd, nil
}
