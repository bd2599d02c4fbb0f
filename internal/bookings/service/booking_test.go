package service

import (
	"context"
	"sync"
	"testing"
	"time"

	bookingserrors "repairdesk/internal/bookings/errors"
	"repairdesk/internal/bookings/validator"
	"repairdesk/internal/pricing"
	"repairdesk/pkg/config"
	apperrors "repairdesk/pkg/errors"
	"repairdesk/pkg/logger"
	"repairdesk/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type harness struct {
	svc     *bookingService
	store   *store
	slots   *fakeSlots
	catalog *fakeCatalog
	clock   *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := newStore()
	slots := &fakeSlots{}
	cat := &fakeCatalog{
		devices: map[string]model.Device{
			"macbook-2025": {ID: "macbook-2025", Brand: "apple", Category: "premium_laptop", ReleaseYear: 2025},
			"dell-2020":    {ID: "dell-2020", Brand: "dell", Category: "laptop", ReleaseYear: 2020},
		},
		issues: map[string]model.RepairIssue{
			"screen-crack": {ID: "screen-crack", Name: "Cracked screen", BaseCost: 80, BaseDurationMinutes: 90, Difficulty: 2},
			"battery":      {ID: "battery", Name: "Battery replacement", BaseCost: 80, BaseDurationMinutes: 60, Difficulty: 2},
		},
	}
	now := fixedNow
	clock := func() time.Time { return now }
	cfg := &config.Config{Log: logger.Discard()}

	svc := NewBookingService(
		fakeBookingRepo{st},
		fakeTransitionRepo{st},
		fakeOutboxRepo{st},
		&fakeTx{store: st},
		cat,
		pricing.NewCalculator(config.DefaultPricing(), pricing.WithClock(clock)),
		slots,
		validator.NewBookingValidator(logger.Discard()),
		cfg,
		WithClock(clock),
	).(*bookingService)

	return &harness{svc: svc, store: st, slots: slots, catalog: cat, clock: &now}
}

func createRequest() *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		CustomerID:    "cust-1",
		DeviceID:      "macbook-2025",
		IssueIDs:      []string{"screen-crack"},
		ServiceTier:   model.TierStandard,
		CustomerClass: model.ClassIndividual,
	}
}

func (h *harness) create(t *testing.T, mutate func(*model.CreateBookingRequest)) *model.Booking {
	t.Helper()
	req := createRequest()
	if mutate != nil {
		mutate(req)
	}
	b, err := h.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return b
}

func (h *harness) transition(id string, to model.BookingStatus) (*model.Booking, error) {
	return h.svc.Transition(context.Background(), id, &model.TransitionRequest{ToState: to, ActorID: "staff-1"})
}

func TestQuote_PremiumNewDevice(t *testing.T) {
	h := newHarness(t)

	q, err := h.svc.Quote(context.Background(), &model.QuoteRequest{
		DeviceID:      "macbook-2025",
		IssueIDs:      []string{"screen-crack"},
		ServiceTier:   model.TierStandard,
		CustomerClass: model.ClassIndividual,
	})
	require.NoError(t, err)
	assert.Equal(t, 143.52, q.FinalCost)
	assert.Equal(t, 43.06, q.DepositRequired)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour), q.ValidUntil)
}

func TestQuote_UnknownIssuesAreDropped(t *testing.T) {
	h := newHarness(t)

	q, err := h.svc.Quote(context.Background(), &model.QuoteRequest{
		DeviceID:      "macbook-2025",
		IssueIDs:      []string{"screen-crack", "ghost-issue"},
		ServiceTier:   model.TierStandard,
		CustomerClass: model.ClassIndividual,
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, q.BaseCost)

	_, err = h.svc.Quote(context.Background(), &model.QuoteRequest{
		DeviceID:      "macbook-2025",
		IssueIDs:      []string{"ghost-issue"},
		ServiceTier:   model.TierStandard,
		CustomerClass: model.ClassIndividual,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestQuote_Errors(t *testing.T) {
	h := newHarness(t)
	base := model.QuoteRequest{IssueIDs: []string{"battery"}, ServiceTier: model.TierStandard}

	req := base
	req.DeviceID = "unknown-device"
	_, err := h.svc.Quote(context.Background(), &req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	req = base
	req.DeviceID = "dell-2020"
	req.ServiceTier = "overnight"
	_, err = h.svc.Quote(context.Background(), &req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	h.catalog.unavailable = true
	req = base
	req.DeviceID = "dell-2020"
	_, err = h.svc.Quote(context.Background(), &req)
	require.True(t, apperrors.HasCode(err, apperrors.CodeDependency))
	assert.Equal(t, 502, apperrors.AsAppError(err).StatusCode())
}

func TestQuote_AppliesSlotModifiers(t *testing.T) {
	h := newHarness(t)
	h.slots.modifiers = &model.DateModifiers{SlotModifier: 1, SpecialDateModifier: 1.5}

	q, err := h.svc.Quote(context.Background(), &model.QuoteRequest{
		DeviceID:    "dell-2020",
		IssueIDs:    []string{"battery"},
		ServiceTier: model.TierStandard,
		SlotID:      "slot-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 120.0, q.FinalCost)
}

func TestCreate_Draft(t *testing.T) {
	h := newHarness(t)

	b := h.create(t, func(r *model.CreateBookingRequest) { r.UrgencyLevel = "priority" })

	assert.Equal(t, model.StatusDraft, b.Status)
	assert.Equal(t, model.UrgencyHigh, b.UrgencyLevel)
	assert.Equal(t, 143.52, b.Quote.FinalCost)
	assert.Regexp(t, `^RB-250615-[0-9A-F]{8}$`, b.BookingNumber)
	assert.Equal(t, int64(1), b.Version)

	transitions, events := h.store.writes()
	assert.Zero(t, transitions)
	assert.Zero(t, events)
}

func TestCreate_SubmitAndReserve(t *testing.T) {
	h := newHarness(t)

	b := h.create(t, func(r *model.CreateBookingRequest) {
		r.SlotID = "slot-7"
		r.Submit = true
	})

	assert.Equal(t, model.StatusPending, b.Status)
	assert.Equal(t, "token-slot-7", b.SlotRef)
	assert.Equal(t, []string{"slot-7"}, h.slots.reserved)

	history, err := h.svc.History(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusDraft, history[0].FromState)
	assert.Equal(t, model.StatusPending, history[0].ToState)
	assert.Equal(t, "cust-1", history[0].ActorID)
}

func TestCreate_ReservesWithRequestedTier(t *testing.T) {
	h := newHarness(t)

	h.create(t, func(r *model.CreateBookingRequest) {
		r.SlotID = "slot-7"
		r.ServiceTier = model.TierExpress
	})

	assert.Equal(t, []model.ServiceTier{model.TierExpress}, h.slots.tiers)
}

func TestCreate_IncompatibleSlotIsRejectedBeforeReserving(t *testing.T) {
	h := newHarness(t)
	h.slots.modifiersErr = apperrors.Conflict("Slot slot-9 is a same_day slot and cannot be booked with the standard tier")

	req := createRequest()
	req.SlotID = "slot-9"
	_, err := h.svc.Create(context.Background(), req)

	require.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Empty(t, h.slots.reserved)
	assert.Empty(t, h.store.bookings)
}

func TestCreate_SlotFullWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.slots.reserveErr = apperrors.SlotFull("slot-7")

	_, err := h.svc.Create(context.Background(), func() *model.CreateBookingRequest {
		r := createRequest()
		r.SlotID = "slot-7"
		return r
	}())
	require.True(t, apperrors.HasCode(err, apperrors.CodeSlotFull))
	assert.Empty(t, h.store.bookings)
}

func TestCreate_ReleasesSlotWhenStoreFails(t *testing.T) {
	h := newHarness(t)
	h.store.failCreate = errBoom

	req := createRequest()
	req.SlotID = "slot-7"
	_, err := h.svc.Create(context.Background(), req)

	require.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
	assert.Equal(t, []string{"token-slot-7"}, h.slots.releasedTokens())
	assert.Empty(t, h.store.bookings)
}

func TestCreate_ReleasesSlotWhenSubmitFails(t *testing.T) {
	h := newHarness(t)
	h.store.failEnqueue = errBoom

	req := createRequest()
	req.SlotID = "slot-7"
	req.Submit = true
	_, err := h.svc.Create(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, []string{"token-slot-7"}, h.slots.releasedTokens())
	assert.Empty(t, h.store.bookings, "the draft must roll back with the failed submit")
	transitions, events := h.store.writes()
	assert.Zero(t, transitions)
	assert.Zero(t, events)
}

func TestCreate_ValidationError(t *testing.T) {
	h := newHarness(t)

	req := createRequest()
	req.IssueIDs = []string{" ", ""}
	_, err := h.svc.Create(context.Background(), req)
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Empty(t, h.slots.reserved)
}

func TestTransition_DraftToConfirmedIsRejectedAndWritesNothing(t *testing.T) {
	h := newHarness(t)
	b := h.create(t, nil)

	_, err := h.transition(b.ID, model.StatusConfirmed)
	require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	assert.Equal(t, 409, apperrors.AsAppError(err).StatusCode())

	stored, err := h.svc.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, stored.Status)
	assert.Equal(t, int64(1), stored.Version)

	transitions, events := h.store.writes()
	assert.Zero(t, transitions)
	assert.Zero(t, events)
}

func TestTransition_FullLifecycleIsAudited(t *testing.T) {
	h := newHarness(t)
	b := h.create(t, func(r *model.CreateBookingRequest) {
		r.TermsAccepted = true
		r.SlotID = "slot-1"
	})

	path := []model.BookingStatus{
		model.StatusPending,
		model.StatusConfirmed,
		model.StatusInProgress,
		model.StatusReadyForPickup,
		model.StatusCompleted,
	}
	var err error
	for _, to := range path {
		b, err = h.transition(b.ID, to)
		require.NoError(t, err, "transition to %s", to)
	}

	assert.Equal(t, model.StatusCompleted, b.Status)
	assert.Equal(t, 100, b.CompletionPercentage)
	require.NotNil(t, b.CompletedAt)
	assert.Equal(t, int64(len(path)+1), b.Version)

	history, err := h.svc.History(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, history, len(path))
	from := model.StatusDraft
	for i, tr := range history {
		assert.Equal(t, int64(i+1), tr.Sequence)
		assert.Equal(t, from, tr.FromState)
		assert.Equal(t, path[i], tr.ToState)
		assert.Equal(t, "staff-1", tr.ActorID)
		from = tr.ToState
	}

	h.store.mu.Lock()
	events := h.store.outbox
	h.store.mu.Unlock()
	require.Len(t, events, len(path))
	for i, msg := range events {
		assert.Equal(t, model.BookingStatusTopic, msg.Topic)
		assert.Equal(t, b.ID, msg.Key)
		assert.Equal(t, msg.ID, msg.Event.EventID)
		assert.Equal(t, path[i], msg.Event.ToState)
		assert.Equal(t, path[i], msg.Event.Booking.Status)
		assert.Equal(t, model.OutboxPending, msg.Status)
	}

	_, err = h.transition(b.ID, model.StatusCancelled)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "completed is terminal")
	assert.Empty(t, h.slots.releasedTokens())
}

func TestTransition_Guards(t *testing.T) {
	t.Run("terms not accepted", func(t *testing.T) {
		h := newHarness(t)
		b := h.create(t, func(r *model.CreateBookingRequest) { r.Submit = true })

		_, err := h.transition(b.ID, model.StatusConfirmed)
		require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
		assert.Equal(t, "terms must be accepted before confirmation", apperrors.AsAppError(err).Details["reason"])

		_, err = h.svc.AcceptTerms(context.Background(), b.ID)
		require.NoError(t, err)
		confirmed, err := h.transition(b.ID, model.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, confirmed.Status)
	})

	t.Run("expired quote", func(t *testing.T) {
		h := newHarness(t)
		b := h.create(t, func(r *model.CreateBookingRequest) {
			r.Submit = true
			r.TermsAccepted = true
		})

		*h.clock = fixedNow.Add(8 * 24 * time.Hour)
		_, err := h.transition(b.ID, model.StatusConfirmed)
		require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

		requoted, err := h.svc.Requote(context.Background(), b.ID)
		require.NoError(t, err)
		assert.True(t, requoted.Quote.ValidUntil.After(*h.clock))

		_, err = h.transition(b.ID, model.StatusConfirmed)
		assert.NoError(t, err)
	})
}

func TestTransition_CancelReleasesSlot(t *testing.T) {
	h := newHarness(t)
	b := h.create(t, func(r *model.CreateBookingRequest) {
		r.SlotID = "slot-3"
		r.Submit = true
	})

	cancelled, err := h.transition(b.ID, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, []string{"token-slot-3"}, h.slots.releasedTokens())

	_, err = h.transition(b.ID, model.StatusCancelled)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	assert.Len(t, h.slots.releasedTokens(), 1)
}

func TestTransition_CancelRollsBackWhenReleaseFails(t *testing.T) {
	h := newHarness(t)
	b := h.create(t, func(r *model.CreateBookingRequest) { r.SlotID = "slot-3" })
	h.slots.releaseErr = apperrors.Internal("Failed to release slot", errBoom)

	_, err := h.transition(b.ID, model.StatusCancelled)
	require.Error(t, err)

	stored, err := h.svc.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, stored.Status)
	transitions, events := h.store.writes()
	assert.Zero(t, transitions)
	assert.Zero(t, events)
}

func TestTransition_CancelSucceedsWithUnreadableReservation(t *testing.T) {
	tests := []struct {
		name       string
		releaseErr error
	}{
		{"token sealed with an old key", apperrors.InvalidInput("Invalid reservation token")},
		{"reservation no longer stored", apperrors.NotFoundWithID("Reservation", "r-1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			b := h.create(t, func(r *model.CreateBookingRequest) { r.SlotID = "slot-3" })
			h.slots.releaseErr = tt.releaseErr

			cancelled, err := h.transition(b.ID, model.StatusCancelled)
			require.NoError(t, err)
			assert.Equal(t, model.StatusCancelled, cancelled.Status)
			assert.NotNil(t, cancelled.CancelledAt)

			transitions, events := h.store.writes()
			assert.Equal(t, 1, transitions)
			assert.Equal(t, 1, events)
		})
	}
}

func TestTransition_DisallowedPairsLeaveNoTrace(t *testing.T) {
	for _, from := range model.AllBookingStatuses {
		for _, to := range model.AllBookingStatuses {
			if CanTransition(from, to) {
				continue
			}
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				h := newHarness(t)
				b := h.create(t, nil)

				h.store.mu.Lock()
				seeded := h.store.bookings[b.ID]
				seeded.Status = from
				h.store.bookings[b.ID] = seeded
				h.store.mu.Unlock()

				_, err := h.transition(b.ID, to)
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "got %v", err)

				stored, err := h.svc.GetByID(context.Background(), b.ID)
				require.NoError(t, err)
				assert.Equal(t, from, stored.Status)
				assert.Equal(t, seeded.Version, stored.Version)

				transitions, events := h.store.writes()
				assert.Zero(t, transitions)
				assert.Zero(t, events)
				assert.Empty(t, h.slots.releasedTokens())
			})
		}
	}
}

func TestTransition_ReadyForPickupCannotBeCancelled(t *testing.T) {
	h := newHarness(t)
	b := h.create(t, func(r *model.CreateBookingRequest) { r.TermsAccepted = true })
	for _, to := range []model.BookingStatus{model.StatusPending, model.StatusConfirmed, model.StatusInProgress, model.StatusReadyForPickup} {
		_, err := h.transition(b.ID, to)
		require.NoError(t, err)
	}

	_, err := h.transition(b.ID, model.StatusCancelled)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestTransition_StaleVersionIsConflict(t *testing.T) {
	h := newHarness(t)
	b := h.create(t, nil)
	h.store.failUpdate = bookingserrors.ErrVersionConflict

	_, err := h.transition(b.ID, model.StatusPending)
	require.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, 409, apperrors.AsAppError(err).StatusCode())
}

func TestTransition_NotFoundAndInvalidRequest(t *testing.T) {
	h := newHarness(t)

	_, err := h.transition("missing", model.StatusPending)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.svc.Transition(context.Background(), "missing", &model.TransitionRequest{ToState: "archived", ActorID: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestTransition_ConcurrentCallsApplyOnce(t *testing.T) {
	h := newHarness(t)
	b := h.create(t, nil)

	const callers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.transition(b.ID, model.StatusPending)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, rejected)
	transitions, events := h.store.writes()
	assert.Equal(t, 1, transitions)
	assert.Equal(t, 1, events)
}

func TestUpdateProgress(t *testing.T) {
	h := newHarness(t)
	b := h.create(t, func(r *model.CreateBookingRequest) { r.TermsAccepted = true })

	pct := 40
	_, err := h.svc.UpdateProgress(context.Background(), b.ID, &model.ProgressRequest{CompletionPercentage: &pct})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "draft bookings have no progress")

	for _, to := range []model.BookingStatus{model.StatusPending, model.StatusConfirmed, model.StatusInProgress} {
		_, err := h.transition(b.ID, to)
		require.NoError(t, err)
	}

	updated, err := h.svc.UpdateProgress(context.Background(), b.ID, &model.ProgressRequest{CompletionPercentage: &pct})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.CompletionPercentage)

	bad := 140
	_, err = h.svc.UpdateProgress(context.Background(), b.ID, &model.ProgressRequest{CompletionPercentage: &bad})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestRequote_OnlyBeforeConfirmation(t *testing.T) {
	h := newHarness(t)
	b := h.create(t, func(r *model.CreateBookingRequest) { r.TermsAccepted = true })

	h.catalog.issues["screen-crack"] = model.RepairIssue{ID: "screen-crack", Name: "Cracked screen", BaseCost: 100, BaseDurationMinutes: 90, Difficulty: 2}
	requoted, err := h.svc.Requote(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 179.4, requoted.Quote.FinalCost)

	for _, to := range []model.BookingStatus{model.StatusPending, model.StatusConfirmed} {
		_, err := h.transition(b.ID, to)
		require.NoError(t, err)
	}
	_, err = h.svc.Requote(context.Background(), b.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestLookups(t *testing.T) {
	h := newHarness(t)
	first := h.create(t, nil)
	h.create(t, nil)
	h.create(t, func(r *model.CreateBookingRequest) { r.CustomerID = "cust-2" })

	byNumber, err := h.svc.GetByNumber(context.Background(), " "+first.BookingNumber+" ")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byNumber.ID)

	list, total, err := h.svc.ListByCustomer(context.Background(), "cust-1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 1)

	list, total, err = h.svc.ListByCustomer(context.Background(), "nobody", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, list)

	_, _, err = h.svc.ListByCustomer(context.Background(), "", 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = h.svc.History(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
