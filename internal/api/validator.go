package api

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"snapcircle/internal/types"
)

// Validator wraps go-playground/validator so handlers return structured
// AppErrors instead of raw validation errors.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with struct-tag validation enabled.
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateStruct validates the struct's `validate` tags. On failure it
// returns a *types.AppError with code "validation_missing_required_field"
// for required-tag failures and "validation_invalid_payload" otherwise, with
// the offending fields in Details.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(types.ErrCodeValidationPayload, "invalid request payload", err)
	}

	fields := make(map[string]any, len(verrs))
	code := types.ErrCodeValidationPayload
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
		if fe.Tag() == "required" {
			code = types.ErrCodeValidationMissingField
		}
	}

	return types.NewAppErrorWithDetails(code, "request validation failed", err, fields)
}
