package catalog

import (
	"context"
	"errors"
	"fmt"

	"repairdesk/pkg/config"
	mongotx "repairdesk/pkg/db/mongo"
	"repairdesk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DevicesCollection = "Devices"
	IssuesCollection  = "Repair_issues"
)

// Repository is the Mongo-backed catalog. Besides the Provider reads it can
// upsert entries, which the migrate command uses for seeding.
type Repository interface {
	Provider
	UpsertDevice(ctx context.Context, device *model.Device) error
	UpsertIssue(ctx context.Context, issue *model.RepairIssue) error
}

type mongoRepository struct {
	cfg     *config.Config
	devices *mongo.Collection
	issues  *mongo.Collection
}

func NewMongoRepository(cfg *config.Config) Repository {
	return NewMongoRepositoryFromDB(cfg, cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
}

func NewMongoRepositoryFromDB(cfg *config.Config, db *mongo.Database) Repository {
	return &mongoRepository{
		cfg:     cfg,
		devices: db.Collection(DevicesCollection),
		issues:  db.Collection(IssuesCollection),
	}
}

func (r *mongoRepository) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var device model.Device
	err := r.devices.FindOne(ctx, bson.M{"_id": id}).Decode(&device)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("%w: failed to find device: %v", ErrUnavailable, err)
	}
	return &device, nil
}

func (r *mongoRepository) GetIssue(ctx context.Context, id string) (*model.RepairIssue, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var issue model.RepairIssue
	err := r.issues.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrIssueNotFound
		}
		return nil, fmt.Errorf("%w: failed to find repair issue: %v", ErrUnavailable, err)
	}
	return &issue, nil
}

func (r *mongoRepository) GetIssues(ctx context.Context, ids []string) ([]model.RepairIssue, error) {
	if len(ids) == 0 {
		return []model.RepairIssue{}, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.issues.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find repair issues: %v", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	var issues []model.RepairIssue
	if err = cursor.All(ctx, &issues); err != nil {
		return nil, fmt.Errorf("%w: failed to decode repair issues: %v", ErrUnavailable, err)
	}

	found := make(map[string]model.RepairIssue, len(issues))
	for _, issue := range issues {
		found[issue.ID] = issue
	}
	return orderByIDs(ids, found), nil
}

func (r *mongoRepository) UpsertDevice(ctx context.Context, device *model.Device) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.devices.ReplaceOne(ctx, bson.M{"_id": device.ID}, device, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}
	return nil
}

func (r *mongoRepository) UpsertIssue(ctx context.Context, issue *model.RepairIssue) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.issues.ReplaceOne(ctx, bson.M{"_id": issue.ID}, issue, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert repair issue: %w", err)
	}
	return nil
}
