package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotserrors "repairdesk/internal/slots/errors"
	"repairdesk/internal/slots/repository"
	"repairdesk/internal/slots/validator"
	"repairdesk/pkg/config"
	mongotx "repairdesk/pkg/db/mongo"
	apperrors "repairdesk/pkg/errors"
	"repairdesk/pkg/model"
	otelx "repairdesk/pkg/otel"
	"repairdesk/pkg/sealer"
	"repairdesk/pkg/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type SlotService interface {
	FindAvailable(ctx context.Context, date string, tier model.ServiceTier) ([]*model.AvailabilitySlot, error)
	Reserve(ctx context.Context, slotID string, tier model.ServiceTier) (string, error)
	Release(ctx context.Context, token string) error
	DateModifiers(ctx context.Context, slotID string, tier model.ServiceTier) (*model.DateModifiers, error)
	GetSlot(ctx context.Context, slotID string) (*model.AvailabilitySlot, error)
	GenerateDay(ctx context.Context, date string) ([]*model.AvailabilitySlot, error)
	SetBlocked(ctx context.Context, slotID string, blocked bool) (*model.AvailabilitySlot, error)
	UpsertSpecialDate(ctx context.Context, sd *model.SpecialDate) (*model.SpecialDate, error)
	GetSpecialDate(ctx context.Context, date string) (*model.SpecialDate, error)
}

// compatibleTypes lists the slot types each service tier may book into.
var compatibleTypes = map[model.ServiceTier][]model.SlotType{
	model.TierStandard: {model.SlotRegular},
	model.TierExpress:  {model.SlotRegular, model.SlotExpress},
	model.TierSameDay:  {model.SlotExpress, model.SlotSameDay},
}

func servesTier(slot *model.AvailabilitySlot, tier model.ServiceTier) error {
	for _, t := range compatibleTypes[tier] {
		if slot.SlotType == t {
			return nil
		}
	}
	return apperrors.Conflict(fmt.Sprintf("Slot %s is a %s slot and cannot be booked with the %s tier", slot.ID, slot.SlotType, tier))
}

type slotService struct {
	slots        repository.SlotRepository
	reservations repository.ReservationRepository
	specialDates repository.SpecialDateRepository
	txManager    mongotx.TransactionManager
	sealer       *sealer.Sealer
	validator    *validator.SlotValidator
	cfg          *config.Config
	tracer       trace.Tracer
	now          func() time.Time
}

func NewSlotService(
	slots repository.SlotRepository,
	reservations repository.ReservationRepository,
	specialDates repository.SpecialDateRepository,
	txManager mongotx.TransactionManager,
	tokenSealer *sealer.Sealer,
	validator *validator.SlotValidator,
	cfg *config.Config,
) SlotService {
	return &slotService{
		slots:        slots,
		reservations: reservations,
		specialDates: specialDates,
		txManager:    txManager,
		sealer:       tokenSealer,
		validator:    validator,
		cfg:          cfg,
		tracer:       otelx.Tracer("slots"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *slotService) FindAvailable(ctx context.Context, date string, tier model.ServiceTier) ([]*model.AvailabilitySlot, error) {
	if err := s.validateDateAndTier(date, tier); err != nil {
		return nil, err
	}

	special, err := s.specialDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if special != nil && special.IsClosed {
		return []*model.AvailabilitySlot{}, nil
	}

	slots, err := s.slots.FindByDate(ctx, date, compatibleTypes[tier])
	if err != nil {
		s.cfg.Log.Error("Failed to list slots", "date", date, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability", err)
	}

	available := make([]*model.AvailabilitySlot, 0, len(slots))
	for _, slot := range slots {
		if slot.Blocked {
			continue
		}
		if slot.CurrentBookings >= special.EffectiveCapacity(slot.MaxBookings) {
			continue
		}
		available = append(available, slot)
	}

	return available, nil
}

// Reserve takes one unit of capacity from a slot compatible with tier and
// returns an opaque token that Release accepts exactly once.
func (s *slotService) Reserve(ctx context.Context, slotID string, tier model.ServiceTier) (string, error) {
	ctx, span := s.tracer.Start(ctx, "slots.Reserve", trace.WithAttributes(attribute.String("slot.id", slotID)))
	defer span.End()

	if slotID == "" {
		return "", apperrors.InvalidInput("Slot ID cannot be empty")
	}

	reservation := &model.Reservation{
		ID:        uuid.NewString(),
		SlotID:    slotID,
		CreatedAt: s.now().Truncate(time.Millisecond),
	}

	err := s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		slot, err := s.slots.FindByID(txCtx, slotID)
		if err != nil {
			if errors.Is(err, slotserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Slot", slotID)
			}
			return apperrors.Internal("Failed to retrieve slot", err)
		}
		if err := servesTier(slot, tier); err != nil {
			return err
		}
		if slot.Blocked {
			return apperrors.Conflict(fmt.Sprintf("Slot %s is blocked", slotID))
		}

		special, err := s.specialDate(txCtx, slot.Date)
		if err != nil {
			return err
		}
		if special != nil && special.IsClosed {
			return apperrors.Conflict(fmt.Sprintf("Bookings are closed on %s", slot.Date))
		}

		capacity := special.EffectiveCapacity(slot.MaxBookings)
		if _, err := s.slots.IncrementIfBelow(txCtx, slotID, capacity); err != nil {
			if errors.Is(err, slotserrors.ErrSlotFull) {
				return apperrors.SlotFull(slotID)
			}
			return apperrors.Internal("Failed to reserve slot", err)
		}

		if err := s.reservations.Create(txCtx, reservation); err != nil {
			return apperrors.Internal("Failed to record reservation", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve failed")
		if apperrors.HasCode(err, apperrors.CodeSlotFull) {
			s.cfg.Log.Info("Slot full", "slot_id", slotID)
		} else {
			s.cfg.Log.Warn("Failed to reserve slot", "slot_id", slotID, "error", err)
		}
		return "", s.asAppError(err, "Failed to reserve slot")
	}

	token, err := s.sealer.Seal(slotID, reservation.ID)
	if err != nil {
		// The counter was already taken; hand it back before failing.
		if releaseErr := s.releaseReservation(ctx, slotID, reservation.ID); releaseErr != nil {
			s.cfg.Log.Error("Failed to roll back reservation", "slot_id", slotID, "reservation_id", reservation.ID, "error", releaseErr)
		}
		return "", apperrors.Internal("Failed to issue reservation token", err)
	}

	s.cfg.Log.Info("Slot reserved", "slot_id", slotID, "reservation_id", reservation.ID)
	return token, nil
}

func (s *slotService) Release(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "slots.Release")
	defer span.End()

	slotID, reservationID, err := s.sealer.Open(token)
	if err != nil {
		return apperrors.InvalidInput("Invalid reservation token")
	}
	span.SetAttributes(attribute.String("slot.id", slotID))

	if err := s.releaseReservation(ctx, slotID, reservationID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "release failed")
		s.cfg.Log.Error("Failed to release slot", "slot_id", slotID, "reservation_id", reservationID, "error", err)
		return s.asAppError(err, "Failed to release slot")
	}
	return nil
}

func (s *slotService) releaseReservation(ctx context.Context, slotID, reservationID string) error {
	return s.txManager.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		reservation, err := s.reservations.FindByID(txCtx, reservationID)
		if err != nil {
			if errors.Is(err, slotserrors.ErrReservationNotFound) {
				return apperrors.NotFoundWithID("Reservation", reservationID)
			}
			return apperrors.Internal("Failed to retrieve reservation", err)
		}
		if reservation.SlotID != slotID {
			return apperrors.InvalidInput("Reservation does not belong to slot")
		}

		released, err := s.reservations.MarkReleased(txCtx, reservationID, s.now().Truncate(time.Millisecond))
		if err != nil {
			return apperrors.Internal("Failed to release reservation", err)
		}
		if !released {
			s.cfg.Log.Debug("Reservation already released", "slot_id", slotID, "reservation_id", reservationID)
			return nil
		}

		if err := s.slots.Decrement(txCtx, slotID); err != nil {
			return apperrors.Internal("Failed to release slot", err)
		}
		s.cfg.Log.Info("Slot released", "slot_id", slotID, "reservation_id", reservationID)
		return nil
	})
}

func (s *slotService) DateModifiers(ctx context.Context, slotID string, tier model.ServiceTier) (*model.DateModifiers, error) {
	slot, err := s.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if err := servesTier(slot, tier); err != nil {
		return nil, err
	}

	special, err := s.specialDate(ctx, slot.Date)
	if err != nil {
		return nil, err
	}

	modifiers := &model.DateModifiers{
		SlotModifier:        slot.PriceModifier,
		SpecialDateModifier: 1,
	}
	if modifiers.SlotModifier <= 0 {
		modifiers.SlotModifier = 1
	}
	if special != nil && special.PriceModifier > 0 {
		modifiers.SpecialDateModifier = special.PriceModifier
	}
	return modifiers, nil
}

func (s *slotService) GetSlot(ctx context.Context, slotID string) (*model.AvailabilitySlot, error) {
	if slotID == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Slot", slotID)
		}
		return nil, apperrors.Internal("Failed to retrieve slot", err)
	}
	return slot, nil
}

// GenerateDay lays the configured day template over date. Windows that were
// generated before are left untouched, so calling it twice is harmless.
func (s *slotService) GenerateDay(ctx context.Context, date string) ([]*model.AvailabilitySlot, error) {
	if err := s.validator.ValidateDate(date); err != nil {
		return nil, s.validationError(err)
	}

	special, err := s.specialDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if special != nil && special.IsClosed {
		s.cfg.Log.Info("Skipping slot generation for closed date", "date", date)
		return []*model.AvailabilitySlot{}, nil
	}

	slots, err := buildDay(date, s.cfg)
	if err != nil {
		return nil, apperrors.Internal("Invalid day template", err)
	}
	for _, slot := range slots {
		if err := s.validator.ValidateSlot(slot); err != nil {
			s.cfg.Log.Error("Day template produced an invalid slot",
				"date", date,
				"start_time", slot.StartTime,
				"slot_type", slot.SlotType,
				"error", err,
			)
			return nil, apperrors.Internal("Invalid day template", err)
		}
	}

	inserted, err := s.slots.InsertMany(ctx, slots)
	if err != nil {
		s.cfg.Log.Error("Failed to generate slots", "date", date, "error", err)
		return nil, apperrors.Internal("Failed to generate slots", err)
	}
	s.cfg.Log.Info("Slots generated", "date", date, "inserted", inserted, "template_size", len(slots))

	all, err := s.slots.FindByDate(ctx, date, nil)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}
	return all, nil
}

func buildDay(date string, cfg *config.Config) ([]*model.AvailabilitySlot, error) {
	start, err := time.Parse("15:04", cfg.DefaultStartOfDay)
	if err != nil {
		return nil, fmt.Errorf("start of day: %w", err)
	}
	end, err := time.Parse("15:04", cfg.DefaultEndOfDay)
	if err != nil {
		return nil, fmt.Errorf("end of day: %w", err)
	}
	if cfg.DefaultSlotDurationMin <= 0 {
		return nil, fmt.Errorf("slot duration must be positive")
	}
	step := time.Duration(cfg.DefaultSlotDurationMin) * time.Minute

	var slots []*model.AvailabilitySlot
	for from := start; !from.Add(step).After(end); from = from.Add(step) {
		to := from.Add(step)
		for _, slotType := range cfg.DefaultSlotTypes {
			slots = append(slots, &model.AvailabilitySlot{
				ID:            uuid.NewString(),
				Date:          date,
				StartTime:     from.Format("15:04"),
				EndTime:       to.Format("15:04"),
				MaxBookings:   cfg.DefaultMaxBookingsPerSlot,
				SlotType:      model.SlotType(slotType),
				PriceModifier: 1,
			})
		}
	}
	return slots, nil
}

func (s *slotService) SetBlocked(ctx context.Context, slotID string, blocked bool) (*model.AvailabilitySlot, error) {
	if slotID == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.slots.SetBlocked(ctx, slotID, blocked)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Slot", slotID)
		}
		s.cfg.Log.Error("Failed to update slot", "slot_id", slotID, "error", err)
		return nil, apperrors.Internal("Failed to update slot", err)
	}

	s.cfg.Log.Info("Slot block state changed", "slot_id", slotID, "blocked", blocked)
	return slot, nil
}

func (s *slotService) UpsertSpecialDate(ctx context.Context, sd *model.SpecialDate) (*model.SpecialDate, error) {
	if sd.PriceModifier == 0 {
		sd.PriceModifier = 1
	}
	if sd.CapacityPercentage == nil {
		sd.CapacityPercentage = model.Percent(model.FullCapacity)
	}
	if err := s.validator.ValidateSpecialDate(sd); err != nil {
		return nil, s.validationError(err)
	}

	if err := s.specialDates.Upsert(ctx, sd); err != nil {
		s.cfg.Log.Error("Failed to save special date", "date", sd.Date, "error", err)
		return nil, apperrors.Internal("Failed to save special date", err)
	}

	s.cfg.Log.Info("Special date saved",
		"date", sd.Date,
		"is_closed", sd.IsClosed,
		"capacity_percentage", *sd.CapacityPercentage,
		"price_modifier", sd.PriceModifier,
	)
	return sd, nil
}

func (s *slotService) GetSpecialDate(ctx context.Context, date string) (*model.SpecialDate, error) {
	if err := s.validator.ValidateDate(date); err != nil {
		return nil, s.validationError(err)
	}
	sd, err := s.specialDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if sd == nil {
		return nil, apperrors.NotFoundWithID("Special date", date)
	}
	return sd, nil
}

// specialDate returns nil when no override exists for date.
func (s *slotService) specialDate(ctx context.Context, date string) (*model.SpecialDate, error) {
	sd, err := s.specialDates.FindByDate(ctx, date)
	if err != nil {
		if errors.Is(err, slotserrors.ErrSpecialDateNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal("Failed to retrieve special date", err)
	}
	return sd, nil
}

func (s *slotService) validateDateAndTier(date string, tier model.ServiceTier) error {
	if err := s.validator.ValidateDate(date); err != nil {
		return s.validationError(err)
	}
	if err := s.validator.ValidateTier(tier); err != nil {
		return s.validationError(err)
	}
	return nil
}

func (s *slotService) validationError(err error) error {
	var validationErrs validation.ValidationErrors
	if errors.As(err, &validationErrs) {
		return validationErrs.ToAppError("Invalid availability request")
	}
	return apperrors.InvalidInput(err.Error())
}

func (s *slotService) asAppError(err error, message string) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal(message, err)
}
