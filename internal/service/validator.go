package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
)

var ErrValidation = errors.New("validation failed")

// RequestValidator wraps go-playground validator with domain rules.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator that also understands the
// "difficulty" and "sync_action" tags.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		return entities.Difficulty(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("sync_action", func(fl validator.FieldLevel) bool {
		return entities.SyncAction(fl.Field().String()).Valid()
	})

	return &RequestValidator{validate: v}
}

// Validate checks i against its struct tags.
func (v *RequestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed on %q", ErrValidation, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
