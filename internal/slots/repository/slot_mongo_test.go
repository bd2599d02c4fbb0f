package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	slotserrors "repairdesk/internal/slots/errors"
	"repairdesk/internal/slots/repository"
	"repairdesk/pkg/config"
	"repairdesk/pkg/logger"
	"repairdesk/pkg/model"
)

// newTestDB connects to TEST_MONGO_URI and returns a throwaway database that
// is dropped when the test ends.
func newTestDB(t *testing.T) (*config.Config, *mongo.Database) {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("repairdesk_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	cfg := &config.Config{
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Log:          logger.Discard(),
	}
	return cfg, db
}

func newSlot(date, start string, maxBookings int) *model.AvailabilitySlot {
	return &model.AvailabilitySlot{
		ID:            uuid.NewString(),
		Date:          date,
		StartTime:     start,
		EndTime:       "10:00",
		MaxBookings:   maxBookings,
		SlotType:      model.SlotRegular,
		PriceModifier: 1,
	}
}

func TestIncrementIfBelow_NeverOverbooks(t *testing.T) {
	cfg, db := newTestDB(t)
	repo := repository.NewMongoSlotRepositoryFromDB(cfg, db)
	ctx := context.Background()

	slot := newSlot("2030-03-04", "09:00", 3)
	_, err := repo.InsertMany(ctx, []*model.AvailabilitySlot{slot})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		full     int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementIfBelow(ctx, slot.ID, slot.MaxBookings)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, slotserrors.ErrSlotFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, accepted)
	assert.Equal(t, 17, full)

	stored, err := repo.FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentBookings)
}

func TestDecrement_StopsAtZero(t *testing.T) {
	cfg, db := newTestDB(t)
	repo := repository.NewMongoSlotRepositoryFromDB(cfg, db)
	ctx := context.Background()

	slot := newSlot("2030-03-04", "11:00", 2)
	_, err := repo.InsertMany(ctx, []*model.AvailabilitySlot{slot})
	require.NoError(t, err)

	_, err = repo.IncrementIfBelow(ctx, slot.ID, slot.MaxBookings)
	require.NoError(t, err)
	require.NoError(t, repo.Decrement(ctx, slot.ID))
	require.NoError(t, repo.Decrement(ctx, slot.ID))

	stored, err := repo.FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentBookings)
}

func TestIncrementIfBelow_BlockedSlot(t *testing.T) {
	cfg, db := newTestDB(t)
	repo := repository.NewMongoSlotRepositoryFromDB(cfg, db)
	ctx := context.Background()

	slot := newSlot("2030-03-04", "13:00", 5)
	_, err := repo.InsertMany(ctx, []*model.AvailabilitySlot{slot})
	require.NoError(t, err)
	_, err = repo.SetBlocked(ctx, slot.ID, true)
	require.NoError(t, err)

	_, err = repo.IncrementIfBelow(ctx, slot.ID, slot.MaxBookings)
	assert.ErrorIs(t, err, slotserrors.ErrSlotFull)
}

func TestInsertMany_SkipsExistingWindows(t *testing.T) {
	cfg, db := newTestDB(t)
	repo := repository.NewMongoSlotRepositoryFromDB(cfg, db)
	ctx := context.Background()

	_, err := db.Collection(repository.SlotsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "date", Value: 1},
			{Key: "start_time", Value: 1},
			{Key: "slot_type", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	require.NoError(t, err)

	first := []*model.AvailabilitySlot{newSlot("2030-03-05", "09:00", 2), newSlot("2030-03-05", "10:00", 2)}
	n, err := repo.InsertMany(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	again := []*model.AvailabilitySlot{newSlot("2030-03-05", "09:00", 2), newSlot("2030-03-05", "11:00", 2)}
	n, err = repo.InsertMany(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := repo.FindByDate(ctx, "2030-03-05", nil)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}
