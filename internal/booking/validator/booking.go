package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"shelterwalk/pkg/logger"
	"shelterwalk/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// BookingValidator checks input shape only: formats, lengths, enum values.
// Business rules (windows, conflicts, eligibility) belong to the service and
// run inside the transaction.
type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("walk_date", validateWalkDate); err != nil {
		log.Fatal("Failed to register 'walk_date' validator", "error", err)
	}
	if err := v.RegisterValidation("walk_clock", validateWalkClock); err != nil {
		log.Fatal("Failed to register 'walk_clock' validator", "error", err)
	}

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateWalkDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(model.DateLayout, fl.Field().String())
	return err == nil
}

func validateWalkClock(fl validator.FieldLevel) bool {
	_, err := time.Parse(model.ClockLayout, fl.Field().String())
	return err == nil
}

func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidateSlot checks a bare (date, time) pair, used by move where no full
// booking payload exists yet.
func (v *BookingValidator) ValidateSlot(date, scheduledTime string) error {
	var errs ValidationErrors
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		errs = append(errs, ValidationError{
			Field:   "Date",
			Message: fmt.Sprintf("Date must be in %s format", model.DateLayout),
		})
	}
	if _, err := time.Parse(model.ClockLayout, scheduledTime); err != nil {
		errs = append(errs, ValidationError{
			Field:   "ScheduledTime",
			Message: fmt.Sprintf("ScheduledTime must be in %s format", model.ClockLayout),
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "walk_date":
			message = fmt.Sprintf("%s must be in %s format", err.Field(), model.DateLayout)
		case "walk_clock":
			message = fmt.Sprintf("%s must be in %s format", err.Field(), model.ClockLayout)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
