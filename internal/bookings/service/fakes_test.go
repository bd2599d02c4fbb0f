package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	bookingserrors "repairdesk/internal/bookings/errors"
	"repairdesk/internal/catalog"
	mongotx "repairdesk/pkg/db/mongo"
	"repairdesk/pkg/model"
)

// store is an in-memory stand-in for the three booking collections. The
// fake transaction manager snapshots it and restores the snapshot when the
// transaction function fails, so tests observe all-or-nothing writes.
type store struct {
	mu          sync.Mutex
	bookings    map[string]model.Booking
	transitions []model.BookingTransition
	outbox      []model.OutboxMessage

	failUpdate  error
	failAppend  error
	failEnqueue error
	failCreate  error
}

func newStore() *store {
	return &store{bookings: map[string]model.Booking{}}
}

type storeSnapshot struct {
	bookings    map[string]model.Booking
	transitions []model.BookingTransition
	outbox      []model.OutboxMessage
}

func (s *store) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	bookings := make(map[string]model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		bookings[k] = v
	}
	return storeSnapshot{
		bookings:    bookings,
		transitions: append([]model.BookingTransition(nil), s.transitions...),
		outbox:      append([]model.OutboxMessage(nil), s.outbox...),
	}
}

func (s *store) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = snap.bookings
	s.transitions = snap.transitions
	s.outbox = snap.outbox
}

func (s *store) writes() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transitions), len(s.outbox)
}

type txKey struct{}

type fakeTx struct {
	mu    sync.Mutex
	store *store
}

func (f *fakeTx) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

type fakeBookingRepo struct{ *store }

func (r fakeBookingRepo) Create(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	for _, existing := range r.bookings {
		if existing.BookingNumber == b.BookingNumber {
			return bookingserrors.ErrDuplicateNumber
		}
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	b.CreatedAt, b.UpdatedAt, b.Version = now, now, 1
	r.bookings[b.ID] = *b
	return nil
}

func (r fakeBookingRepo) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return &b, nil
}

func (r fakeBookingRepo) FindByNumber(_ context.Context, number string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.BookingNumber == number {
			cp := b
			return &cp, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (r fakeBookingRepo) FindByCustomer(_ context.Context, customerID string, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.bookings {
		if b.CustomerID == customerID {
			cp := b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingNumber < out[j].BookingNumber })
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeBookingRepo) CountByCustomer(_ context.Context, customerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.bookings {
		if b.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (r fakeBookingRepo) Update(_ context.Context, b *model.Booking, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	current, ok := r.bookings[b.ID]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	if current.Version != expectedVersion {
		return bookingserrors.ErrVersionConflict
	}
	b.Version = expectedVersion + 1
	b.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.bookings[b.ID] = *b
	return nil
}

type fakeTransitionRepo struct{ *store }

func (r fakeTransitionRepo) Append(_ context.Context, t *model.BookingTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend != nil {
		return r.failAppend
	}
	for _, existing := range r.transitions {
		if existing.BookingID == t.BookingID && existing.Sequence == t.Sequence {
			return bookingserrors.ErrDuplicateTransition
		}
	}
	r.transitions = append(r.transitions, *t)
	return nil
}

func (r fakeTransitionRepo) FindByBooking(_ context.Context, bookingID string) ([]*model.BookingTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.BookingTransition{}
	for _, t := range r.transitions {
		if t.BookingID == bookingID {
			cp := t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r fakeTransitionRepo) CountByBooking(_ context.Context, bookingID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.transitions {
		if t.BookingID == bookingID {
			n++
		}
	}
	return n, nil
}

type fakeOutboxRepo struct{ *store }

func (r fakeOutboxRepo) Enqueue(_ context.Context, msg *model.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failEnqueue != nil {
		return r.failEnqueue
	}
	r.outbox = append(r.outbox, *msg)
	return nil
}

func (r fakeOutboxRepo) FetchPending(_ context.Context, limit int) ([]*model.OutboxMessage, error) {
	return nil, nil
}

func (r fakeOutboxRepo) MarkPublished(_ context.Context, id string, at time.Time) error {
	return nil
}

func (r fakeOutboxRepo) MarkFailed(_ context.Context, id string, reason string, maxAttempts int) error {
	return nil
}

type fakeCatalog struct {
	devices     map[string]model.Device
	issues      map[string]model.RepairIssue
	unavailable bool
}

func (c *fakeCatalog) GetDevice(_ context.Context, id string) (*model.Device, error) {
	if c.unavailable {
		return nil, catalog.ErrUnavailable
	}
	d, ok := c.devices[id]
	if !ok {
		return nil, catalog.ErrDeviceNotFound
	}
	return &d, nil
}

func (c *fakeCatalog) GetIssue(_ context.Context, id string) (*model.RepairIssue, error) {
	if c.unavailable {
		return nil, catalog.ErrUnavailable
	}
	i, ok := c.issues[id]
	if !ok {
		return nil, catalog.ErrIssueNotFound
	}
	return &i, nil
}

func (c *fakeCatalog) GetIssues(_ context.Context, ids []string) ([]model.RepairIssue, error) {
	if c.unavailable {
		return nil, catalog.ErrUnavailable
	}
	out := []model.RepairIssue{}
	for _, id := range ids {
		if i, ok := c.issues[id]; ok {
			out = append(out, i)
		}
	}
	return out, nil
}

type fakeSlots struct {
	mu           sync.Mutex
	reserveErr   error
	releaseErr   error
	modifiersErr error
	modifiers    *model.DateModifiers
	reserved     []string
	tiers        []model.ServiceTier
	released     []string
}

func (f *fakeSlots) Reserve(_ context.Context, slotID string, tier model.ServiceTier) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return "", f.reserveErr
	}
	f.reserved = append(f.reserved, slotID)
	f.tiers = append(f.tiers, tier)
	return "token-" + slotID, nil
}

func (f *fakeSlots) Release(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return f.releaseErr
	}
	f.released = append(f.released, token)
	return nil
}

func (f *fakeSlots) DateModifiers(_ context.Context, slotID string, tier model.ServiceTier) (*model.DateModifiers, error) {
	if f.modifiersErr != nil {
		return nil, f.modifiersErr
	}
	if f.modifiers != nil {
		return f.modifiers, nil
	}
	return &model.DateModifiers{SlotModifier: 1, SpecialDateModifier: 1}, nil
}

func (f *fakeSlots) releasedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.released...)
}

var errBoom = errors.New("boom")
