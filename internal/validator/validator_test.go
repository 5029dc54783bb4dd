package validator_test

import (
	"testing"

	"github.com/freekieb7/calendar/internal/security"
	"github.com/freekieb7/calendar/internal/validator"

	"github.com/stretchr/testify/assert"
)

type employeeRequest struct {
	Username      string         `validate:"required,username"`
	SecurityLevel security.Level `validate:"security_level"`
}

func TestValidator_Username(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name     string
		username string
		isValid  bool
	}{
		{name: "valid_username", username: "alice.w", isValid: true},
		{name: "with_dash", username: "bob-smith_2", isValid: true},
		{name: "too_short", username: "al", isValid: false},
		{name: "spaces", username: "alice w", isValid: false},
		{name: "empty", username: "", isValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(employeeRequest{Username: tt.username, SecurityLevel: security.Level3})
			if tt.isValid {
				assert.NoError(t, err, "Username should be valid: %s", tt.username)
			} else {
				assert.Error(t, err, "Username should be invalid: %s", tt.username)
			}
		})
	}
}

func TestValidator_SecurityLevel(t *testing.T) {
	v := validator.New()

	for _, level := range security.Levels() {
		assert.NoError(t, v.Validate(employeeRequest{Username: "carol", SecurityLevel: level}))
	}

	err := v.Validate(employeeRequest{Username: "carol", SecurityLevel: security.Level(0)})
	assert.Error(t, err)
	assert.True(t, validator.IsValidationError(err))
	assert.Equal(t, "securitylevel: security_level", validator.Describe(err))

	assert.Error(t, v.Validate(employeeRequest{Username: "carol", SecurityLevel: security.Level(5)}))
}
