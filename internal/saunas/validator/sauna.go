package validator

import (
	"errors"
	"fmt"

	"loyly/internal/bookings/slots"
	"loyly/pkg/model"

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
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

type SaunaValidator struct {
	validate *validator.Validate
}

func NewSaunaValidator() *SaunaValidator {
	v := validator.New()

	_ = v.RegisterValidation("wallclock", func(fl validator.FieldLevel) bool {
		_, _, err := slots.ParseWallClock(fl.Field().String())
		return err == nil
	})

	return &SaunaValidator{
		validate: v,
	}
}

func (v *SaunaValidator) Validate(sauna *model.Sauna) error {
	if err := v.validate.Struct(sauna); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return v.validateOperatingHours(&sauna.OperatingHours)
}

func (v *SaunaValidator) ValidateUpdate(update *model.SaunaUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if update.OperatingHours != nil {
		return v.validateOperatingHours(update.OperatingHours)
	}
	return nil
}

// validateOperatingHours enforces what struct tags cannot: each window must
// end after it starts.
func (v *SaunaValidator) validateOperatingHours(hours *model.OperatingHours) error {
	var validationErrors ValidationErrors

	if err := validateWindow(hours.Weekday); err != nil {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "OperatingHours.Weekday",
			Message: err.Error(),
		})
	}
	if err := validateWindow(hours.Weekend); err != nil {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "OperatingHours.Weekend",
			Message: err.Error(),
		})
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

func validateWindow(window model.TimeRange) error {
	startHour, startMinute, err := slots.ParseWallClock(window.Start)
	if err != nil {
		return err
	}
	endHour, endMinute, err := slots.ParseWallClock(window.End)
	if err != nil {
		return err
	}

	if endHour*60+endMinute <= startHour*60+startMinute {
		return fmt.Errorf("window end %q must be after start %q", window.End, window.Start)
	}
	return nil
}

func (v *SaunaValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors
	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = "is required"
		case "min":
			message = fmt.Sprintf("must be at least %s", err.Param())
		case "max":
			message = fmt.Sprintf("must be at most %s", err.Param())
		case "wallclock":
			message = "must be a wall-clock value in HH:MM format"
		case "mongodb":
			message = "must be a valid object id"
		default:
			message = fmt.Sprintf("failed %s validation", err.Tag())
		}
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}
	return validationErrors
}
