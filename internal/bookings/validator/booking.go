package validator

import (
	"errors"
	"fmt"

	"repairdesk/pkg/logger"
	"repairdesk/pkg/model"
	"repairdesk/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validation.New()

	if err := v.RegisterValidation("urgency", validateUrgency); err != nil {
		log.Fatal("Failed to register 'urgency' validator",
			"error", err,
		)
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateUrgency(fl validator.FieldLevel) bool {
	_, ok := model.NormalizeUrgency(fl.Field().String())
	return ok
}

func (v *BookingValidator) ValidateQuote(req *model.QuoteRequest) error {
	return v.check(req)
}

func (v *BookingValidator) ValidateCreate(req *model.CreateBookingRequest) error {
	return v.check(req)
}

func (v *BookingValidator) ValidateTransition(req *model.TransitionRequest) error {
	return v.check(req)
}

func (v *BookingValidator) ValidateProgress(req *model.ProgressRequest) error {
	return v.check(req)
}

// Validate checks a booking right before it is first stored.
func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.check(booking); err != nil {
		return err
	}

	if booking.Status != model.StatusDraft {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("new bookings start in %s, got %s", model.StatusDraft, booking.Status),
			},
		}
	}

	return nil
}

func (v *BookingValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) validation.ValidationErrors {
	translated := validation.Translate(errs)

	for i, err := range errs {
		switch err.Tag() {
		case "urgency":
			translated[i].Message = fmt.Sprintf("%s must be one of: low normal high urgent", err.Field())
		case "dive":
			translated[i].Message = fmt.Sprintf("%s contains an invalid entry", err.Field())
		}
	}

	return translated
}
