package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	bookingserrors "repairdesk/internal/bookings/errors"
	"repairdesk/internal/bookings/repository"
	"repairdesk/internal/bookings/validator"
	"repairdesk/internal/catalog"
	eventsrepo "repairdesk/internal/events/repository"
	"repairdesk/internal/pricing"
	"repairdesk/pkg/config"
	mongotx "repairdesk/pkg/db/mongo"
	apperrors "repairdesk/pkg/errors"
	"repairdesk/pkg/model"
	otelx "repairdesk/pkg/otel"
	"repairdesk/pkg/sanitizer"
	"repairdesk/pkg/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxNumberAttempts = 3

type BookingService interface {
	Quote(ctx context.Context, req *model.QuoteRequest) (*model.PricingBreakdown, error)
	Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
	Transition(ctx context.Context, id string, req *model.TransitionRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetByNumber(ctx context.Context, number string) (*model.Booking, error)
	ListByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error)
	History(ctx context.Context, id string) ([]*model.BookingTransition, error)
	AcceptTerms(ctx context.Context, id string) (*model.Booking, error)
	UpdateProgress(ctx context.Context, id string, req *model.ProgressRequest) (*model.Booking, error)
	Requote(ctx context.Context, id string) (*model.Booking, error)
}

// SlotAllocator is the part of the slot service bookings depend on.
type SlotAllocator interface {
	Reserve(ctx context.Context, slotID string, tier model.ServiceTier) (string, error)
	Release(ctx context.Context, token string) error
	DateModifiers(ctx context.Context, slotID string, tier model.ServiceTier) (*model.DateModifiers, error)
}

type Option func(*bookingService)

func WithClock(now func() time.Time) Option {
	return func(s *bookingService) {
		s.now = now
	}
}

type bookingService struct {
	repo        repository.BookingRepository
	transitions repository.TransitionRepository
	outbox      eventsrepo.OutboxRepository
	txManager   mongotx.TransactionManager
	catalog     catalog.Provider
	calculator  *pricing.Calculator
	slots       SlotAllocator
	validator   *validator.BookingValidator
	cfg         *config.Config
	locks       *keyedMutex
	tracer      trace.Tracer
	now         func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	transitions repository.TransitionRepository,
	outbox eventsrepo.OutboxRepository,
	txManager mongotx.TransactionManager,
	catalogProvider catalog.Provider,
	calculator *pricing.Calculator,
	slots SlotAllocator,
	validator *validator.BookingValidator,
	cfg *config.Config,
	opts ...Option,
) BookingService {
	s := &bookingService{
		repo:        repo,
		transitions: transitions,
		outbox:      outbox,
		txManager:   txManager,
		catalog:     catalogProvider,
		calculator:  calculator,
		slots:       slots,
		validator:   validator,
		cfg:         cfg,
		locks:       newKeyedMutex(),
		tracer:      otelx.Tracer("bookings"),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingService) Quote(ctx context.Context, req *model.QuoteRequest) (*model.PricingBreakdown, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.Quote")
	defer span.End()

	s.sanitizeQuote(req)
	if err := s.validator.ValidateQuote(req); err != nil {
		s.cfg.Log.Warn("Quote validation failed", "error", err)
		return nil, s.validationError("Invalid quote request", err)
	}

	_, _, quote, err := s.price(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.cfg.Log.Info("Quote computed",
		"device_id", req.DeviceID,
		"service_tier", req.ServiceTier,
		"final_cost", quote.FinalCost,
	)
	return quote, nil
}

// price resolves the catalog entries behind req and runs the calculator.
// Unknown issue ids are dropped; a device that does not exist is an error.
func (s *bookingService) price(ctx context.Context, req *model.QuoteRequest) (*model.Device, []model.RepairIssue, *model.PricingBreakdown, error) {
	device, err := s.catalog.GetDevice(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, catalog.ErrDeviceNotFound) {
			return nil, nil, nil, apperrors.NotFoundWithID("Device", req.DeviceID)
		}
		s.cfg.Log.Error("Catalog device lookup failed", "device_id", req.DeviceID, "error", err)
		return nil, nil, nil, apperrors.Dependency("catalog", err)
	}

	issues, err := s.catalog.GetIssues(ctx, req.IssueIDs)
	if err != nil {
		s.cfg.Log.Error("Catalog issue lookup failed", "issue_ids", req.IssueIDs, "error", err)
		return nil, nil, nil, apperrors.Dependency("catalog", err)
	}
	if len(issues) < len(req.IssueIDs) {
		s.cfg.Log.Debug("Ignoring unknown repair issues",
			"requested", req.IssueIDs,
			"resolved", issueIDs(issues),
		)
	}

	var opts []pricing.QuoteOption
	if req.SlotID != "" {
		modifiers, err := s.slots.DateModifiers(ctx, req.SlotID, req.ServiceTier)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, pricing.WithDateModifiers(*modifiers))
	}

	quote, err := s.calculator.Compute(device.Attributes(), issues, req.ServiceTier, req.CustomerClass, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	return device, issues, quote, nil
}

// Create prices the request, takes the slot when one is given and stores the
// booking in draft, or pending when Submit is set. If storing fails after the
// slot was taken the slot is handed back.
func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.Create")
	defer span.End()

	s.applyDefaults(req)
	s.sanitizeCreate(req)
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "customer_id", req.CustomerID, "error", err)
		return nil, s.validationError("Invalid booking request", err)
	}
	urgency, _ := model.NormalizeUrgency(req.UrgencyLevel)

	quoteReq := req.Quote()
	device, issues, quote, err := s.price(ctx, &quoteReq)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	booking := &model.Booking{
		ID:               uuid.NewString(),
		BookingNumber:    s.newBookingNumber(),
		CustomerID:       req.CustomerID,
		DeviceID:         device.ID,
		Device:           device.Attributes(),
		SelectedIssueIDs: issueIDs(issues),
		ServiceTier:      req.ServiceTier,
		CustomerClass:    req.CustomerClass,
		UrgencyLevel:     urgency,
		Status:           model.StatusDraft,
		Quote:            *quote,
		SlotID:           req.SlotID,
		TermsAccepted:    req.TermsAccepted,
	}
	if err := s.validator.Validate(booking); err != nil {
		return nil, s.validationError("Invalid booking", err)
	}

	if req.SlotID != "" {
		token, err := s.slots.Reserve(ctx, req.SlotID, req.ServiceTier)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		booking.SlotRef = token
	}

	created, err := s.insert(ctx, booking, req.Submit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		s.cfg.Log.Error("Failed to create booking", "booking_id", booking.ID, "error", err)
		s.compensate(ctx, booking)
		return nil, s.asAppError(err, "Failed to create booking")
	}

	span.SetAttributes(attribute.String("booking.id", created.ID))
	s.cfg.Log.Info("Booking created successfully",
		"booking_id", created.ID,
		"booking_number", created.BookingNumber,
		"customer_id", created.CustomerID,
		"status", created.Status,
		"slot_id", created.SlotID,
	)
	return created, nil
}

func (s *bookingService) insert(ctx context.Context, booking *model.Booking, submit bool) (*model.Booking, error) {
	var created *model.Booking
	var err error

	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		err = s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			b := *booking
			if err := s.repo.Create(txCtx, &b); err != nil {
				if errors.Is(err, bookingserrors.ErrDuplicateNumber) {
					return err
				}
				return apperrors.Internal("Failed to create booking", err)
			}
			if submit {
				if err := s.applyTransition(txCtx, &b, model.StatusPending, b.CustomerID, "submitted by customer"); err != nil {
					return err
				}
			}
			created = &b
			return nil
		})
		if !errors.Is(err, bookingserrors.ErrDuplicateNumber) {
			break
		}
		s.cfg.Log.Warn("Booking number collision, regenerating", "booking_number", booking.BookingNumber, "attempt", attempt)
		booking.BookingNumber = s.newBookingNumber()
	}

	if err != nil {
		return nil, err
	}
	return created, nil
}

// compensate releases the slot taken for a booking that was never stored.
// Release is idempotent, so running this twice is harmless.
func (s *bookingService) compensate(ctx context.Context, booking *model.Booking) {
	if booking.SlotRef == "" {
		return
	}
	if err := s.slots.Release(context.WithoutCancel(ctx), booking.SlotRef); err != nil {
		s.cfg.Log.Error("Failed to release slot after failed booking",
			"booking_id", booking.ID,
			"slot_id", booking.SlotID,
			"error", err,
		)
		return
	}
	s.cfg.Log.Info("Released slot after failed booking", "booking_id", booking.ID, "slot_id", booking.SlotID)
}

// Transition moves a booking to req.ToState. The status change, its audit
// record and the outgoing event commit together or not at all.
func (s *bookingService) Transition(ctx context.Context, id string, req *model.TransitionRequest) (*model.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.Transition", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.String("booking.to_state", string(req.ToState)),
	))
	defer span.End()

	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	req.ActorID = strings.TrimSpace(req.ActorID)
	req.Reason = sanitizer.NormalizeText(req.Reason, 500)
	if err := s.validator.ValidateTransition(req); err != nil {
		return nil, s.validationError("Invalid transition request", err)
	}

	var from model.BookingStatus
	updated, err := s.mutate(ctx, id, func(txCtx context.Context, b *model.Booking) error {
		from = b.Status
		return s.applyTransition(txCtx, b, req.ToState, req.ActorID, req.Reason)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		s.cfg.Log.Warn("Booking transition rejected",
			"booking_id", id,
			"to_state", req.ToState,
			"actor_id", req.ActorID,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Booking transitioned",
		"booking_id", id,
		"from_state", from,
		"to_state", updated.Status,
		"actor_id", req.ActorID,
	)
	return updated, nil
}

// mutate loads the booking, applies fn and persists the result with a
// version check. Calls for the same booking are serialized in process.
func (s *bookingService) mutate(ctx context.Context, id string, fn func(txCtx context.Context, b *model.Booking) error) (*model.Booking, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var result *model.Booking
	err := s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		b, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return apperrors.Internal("Failed to retrieve booking", err)
		}
		if err := fn(txCtx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, s.asAppError(err, "Failed to update booking")
	}
	return result, nil
}

func (s *bookingService) applyTransition(ctx context.Context, b *model.Booking, to model.BookingStatus, actorID, reason string) error {
	from := b.Status
	if !CanTransition(from, to) {
		return apperrors.InvalidTransition(string(from), string(to))
	}

	now := s.now().Truncate(time.Millisecond)
	if err := s.checkGuards(b, to, now); err != nil {
		return err
	}

	expected := b.Version
	b.Status = to
	switch to {
	case model.StatusCompleted:
		b.CompletedAt = &now
		b.CompletionPercentage = 100
	case model.StatusCancelled:
		b.CancelledAt = &now
	}

	if err := s.save(ctx, b, expected); err != nil {
		return err
	}

	seq, err := s.transitions.CountByBooking(ctx, b.ID)
	if err != nil {
		return apperrors.Internal("Failed to read booking history", err)
	}
	transition := &model.BookingTransition{
		ID:         uuid.NewString(),
		BookingID:  b.ID,
		Sequence:   seq + 1,
		FromState:  from,
		ToState:    to,
		Reason:     reason,
		ActorID:    actorID,
		OccurredAt: now,
	}
	if err := s.transitions.Append(ctx, transition); err != nil {
		if errors.Is(err, bookingserrors.ErrDuplicateTransition) {
			return apperrors.Conflict("Booking was modified concurrently")
		}
		return apperrors.Internal("Failed to record transition", err)
	}

	if err := s.enqueueEvent(ctx, b, from, to, now); err != nil {
		return err
	}

	if to == model.StatusCancelled && b.SlotRef != "" {
		if err := s.releaseOnCancel(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// releaseOnCancel hands the slot back. Cancel is always allowed: a token the
// allocator can no longer read or resolve is logged and skipped. Store
// failures still roll the cancel back.
func (s *bookingService) releaseOnCancel(ctx context.Context, b *model.Booking) error {
	err := s.slots.Release(ctx, b.SlotRef)
	if err == nil {
		return nil
	}
	if apperrors.HasCode(err, apperrors.CodeInvalidInput) || apperrors.HasCode(err, apperrors.CodeNotFound) {
		s.cfg.Log.Error("Slot reservation could not be released, cancelling anyway",
			"booking_id", b.ID,
			"slot_id", b.SlotID,
			"error", err,
		)
		return nil
	}
	return err
}

func (s *bookingService) checkGuards(b *model.Booking, to model.BookingStatus, now time.Time) error {
	if b.Status == model.StatusPending && to == model.StatusConfirmed {
		if !b.TermsAccepted {
			return guardFailed(b.Status, to, "terms must be accepted before confirmation")
		}
		if b.Quote.IsExpired(now) {
			return guardFailed(b.Status, to, "quote has expired, request a new quote")
		}
	}
	return nil
}

func guardFailed(from, to model.BookingStatus, reason string) error {
	return apperrors.InvalidTransition(string(from), string(to)).WithDetails(map[string]any{
		"from":   string(from),
		"to":     string(to),
		"reason": reason,
	})
}

func (s *bookingService) save(ctx context.Context, b *model.Booking, expectedVersion int64) error {
	if err := s.repo.Update(ctx, b, expectedVersion); err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrVersionConflict):
			return apperrors.Conflict("Booking was modified concurrently")
		case errors.Is(err, bookingserrors.ErrNotFound):
			return apperrors.NotFoundWithID("Booking", b.ID)
		default:
			return apperrors.Internal("Failed to update booking", err)
		}
	}
	return nil
}

func (s *bookingService) enqueueEvent(ctx context.Context, b *model.Booking, from, to model.BookingStatus, at time.Time) error {
	event := model.BookingEvent{
		EventID:   uuid.NewString(),
		BookingID: b.ID,
		FromState: from,
		ToState:   to,
		Timestamp: at,
		Booking:   *b,
	}
	traceparent, tracestate := otelx.TraceContextStrings(ctx)

	msg := &model.OutboxMessage{
		ID:          event.EventID,
		Topic:       model.BookingStatusTopic,
		Key:         b.ID,
		EventType:   model.EventBookingStatusChanged,
		Event:       event,
		Status:      model.OutboxPending,
		Traceparent: traceparent,
		Tracestate:  tracestate,
		CreatedAt:   at,
	}
	if err := s.outbox.Enqueue(ctx, msg); err != nil {
		return apperrors.Internal("Failed to enqueue booking event", err)
	}
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetByNumber(ctx context.Context, number string) (*model.Booking, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, apperrors.InvalidInput("Booking number cannot be empty")
	}

	booking, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", number)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) ListByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, 0, apperrors.InvalidInput("customer_id is required")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByCustomer(ctx, customerID)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "customer_id", customerID, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindByCustomer(ctx, customerID, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings",
				"customer_id", customerID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	return bookings, count, nil
}

func (s *bookingService) History(ctx context.Context, id string) ([]*model.BookingTransition, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	history, err := s.transitions.FindByBooking(ctx, id)
	if err != nil {
		s.cfg.Log.Error("Failed to load booking history", "booking_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking history", err)
	}
	return history, nil
}

func (s *bookingService) AcceptTerms(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.mutate(ctx, id, func(txCtx context.Context, b *model.Booking) error {
		if b.Status != model.StatusDraft && b.Status != model.StatusPending {
			return apperrors.Conflict(fmt.Sprintf("Terms cannot be accepted for a booking in %s", b.Status))
		}
		if b.TermsAccepted {
			return nil
		}
		expected := b.Version
		b.TermsAccepted = true
		return s.save(txCtx, b, expected)
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking terms accepted", "booking_id", id)
	return booking, nil
}

func (s *bookingService) UpdateProgress(ctx context.Context, id string, req *model.ProgressRequest) (*model.Booking, error) {
	if err := s.validator.ValidateProgress(req); err != nil {
		return nil, s.validationError("Invalid progress update", err)
	}

	booking, err := s.mutate(ctx, id, func(txCtx context.Context, b *model.Booking) error {
		if b.Status != model.StatusInProgress {
			return apperrors.Conflict(fmt.Sprintf("Progress can only be updated while %s, booking is %s", model.StatusInProgress, b.Status))
		}
		expected := b.Version
		b.CompletionPercentage = *req.CompletionPercentage
		return s.save(txCtx, b, expected)
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking progress updated", "booking_id", id, "completion_percentage", booking.CompletionPercentage)
	return booking, nil
}

// Requote prices the booking again from the current catalog. Only bookings
// that have not been confirmed yet can be requoted.
func (s *bookingService) Requote(ctx context.Context, id string) (*model.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.Requote", trace.WithAttributes(attribute.String("booking.id", id)))
	defer span.End()

	booking, err := s.mutate(ctx, id, func(txCtx context.Context, b *model.Booking) error {
		if b.Status != model.StatusDraft && b.Status != model.StatusPending {
			return apperrors.Conflict(fmt.Sprintf("Bookings in %s cannot be requoted", b.Status))
		}

		_, issues, quote, err := s.price(txCtx, &model.QuoteRequest{
			DeviceID:      b.DeviceID,
			IssueIDs:      b.SelectedIssueIDs,
			ServiceTier:   b.ServiceTier,
			CustomerClass: b.CustomerClass,
			SlotID:        b.SlotID,
		})
		if err != nil {
			return err
		}

		expected := b.Version
		b.Quote = *quote
		b.SelectedIssueIDs = issueIDs(issues)
		return s.save(txCtx, b, expected)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.cfg.Log.Info("Booking requoted", "booking_id", id, "final_cost", booking.Quote.FinalCost)
	return booking, nil
}

// --- Helpers ---

func (s *bookingService) applyDefaults(req *model.CreateBookingRequest) {
	if req.CustomerClass == "" {
		req.CustomerClass = model.ClassIndividual
	}
	if req.ServiceTier == "" {
		req.ServiceTier = model.TierStandard
	}
}

func (s *bookingService) sanitizeQuote(req *model.QuoteRequest) {
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	req.IssueIDs = sanitizer.SanitizeIDs(req.IssueIDs)
	req.SlotID = strings.TrimSpace(req.SlotID)
	if req.CustomerClass == "" {
		req.CustomerClass = model.ClassIndividual
	}
}

func (s *bookingService) sanitizeCreate(req *model.CreateBookingRequest) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	req.IssueIDs = sanitizer.SanitizeIDs(req.IssueIDs)
	req.SlotID = strings.TrimSpace(req.SlotID)
	req.UrgencyLevel = strings.ToLower(strings.TrimSpace(req.UrgencyLevel))
}

func (s *bookingService) newBookingNumber() string {
	entropy := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("RB-%s-%s", s.now().Format("060102"), entropy)
}

func (s *bookingService) validationError(message string, err error) error {
	var validationErrs validation.ValidationErrors
	if errors.As(err, &validationErrs) {
		return validationErrs.ToAppError(message)
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func (s *bookingService) asAppError(err error, message string) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal(message, err)
}

func issueIDs(issues []model.RepairIssue) []string {
	ids := make([]string, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.ID)
	}
	return ids
}
