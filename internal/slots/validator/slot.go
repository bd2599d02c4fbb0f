package validator

import (
	"time"

	"repairdesk/pkg/logger"
	"repairdesk/pkg/model"
	"repairdesk/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

type SlotValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSlotValidator(log *logger.Logger) *SlotValidator {
	return &SlotValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *SlotValidator) ValidateSpecialDate(sd *model.SpecialDate) error {
	return validation.Struct(v.validate, sd)
}

func (v *SlotValidator) ValidateSlot(slot *model.AvailabilitySlot) error {
	if err := validation.Struct(v.validate, slot); err != nil {
		return err
	}
	if slot.EndTime <= slot.StartTime {
		return validation.ValidationErrors{{
			Field:   "end_time",
			Message: "end_time must be after start_time",
		}}
	}
	return nil
}

func (v *SlotValidator) ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return validation.ValidationErrors{{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		}}
	}
	return nil
}

func (v *SlotValidator) ValidateTier(tier model.ServiceTier) error {
	if !tier.Valid() {
		return validation.ValidationErrors{{
			Field:   "service_tier",
			Message: "service_tier must be one of: standard express same_day",
		}}
	}
	return nil
}
