package validator

import (
	"errors"
	"fmt"

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

// CreateInviteInput is the validated shape of an invite creation request.
type CreateInviteInput struct {
	SaunaID string `json:"sauna_id" validate:"required,mongodb"`
	Email   string `json:"email" validate:"required,email"`
}

type InviteValidator struct {
	validate *validator.Validate
}

func NewInviteValidator() *InviteValidator {
	return &InviteValidator{
		validate: validator.New(),
	}
}

func (v *InviteValidator) ValidateCreate(input *CreateInviteInput) error {
	if err := v.validate.Struct(input); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *InviteValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors
	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = "is required"
		case "email":
			message = "must be a valid email address"
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
