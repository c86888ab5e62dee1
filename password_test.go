package auth_test

import (
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	auth "github.com/goliatone/go-marketplace-auth"
	"github.com/stretchr/testify/assert"
)

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{
			name:     "valid password",
			password: "Sup3rSecret!",
		},
		{
			name:     "too short",
			password: "Ab1!",
			wantErr:  "must be at least 8 characters",
		},
		{
			name:     "missing uppercase",
			password: "alllower1!",
			wantErr:  "must contain an uppercase letter",
		},
		{
			name:     "missing lowercase",
			password: "ALLUPPER1!",
			wantErr:  "must contain a lowercase letter",
		},
		{
			name:     "missing digit",
			password: "NoDigits!!",
			wantErr:  "must contain a digit",
		},
		{
			name:     "missing symbol",
			password: "NoSymbols123",
			wantErr:  "must contain a symbol",
		},
		{
			name:     "exactly eight characters",
			password: "Abcdef1!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.password, auth.PasswordStrength)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
