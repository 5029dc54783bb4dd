package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/freekieb7/calendar/internal/security"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	// Custom validators
	v.RegisterValidation("username", validateUsername)
	v.RegisterValidation("security_level", validateSecurityLevel)

	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}

func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

func validateSecurityLevel(fl validator.FieldLevel) bool {
	return security.Level(fl.Field().Int()).Valid()
}

// Describe flattens validation errors into "field: rule" messages.
func Describe(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s: %s", strings.ToLower(fieldErr.Field()), fieldErr.Tag()))
	}
	return strings.Join(messages, ", ")
}

// IsValidationError reports whether err came from struct or field validation.
func IsValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
