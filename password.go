package auth

import (
	"errors"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
)

const minPasswordLength = 8

// PasswordStrength is an ozzo rule enforcing the credential policy: at
// least 8 characters with one uppercase letter, one lowercase letter, one
// digit, and one symbol.
var PasswordStrength = validation.By(checkPasswordStrength)

func checkPasswordStrength(value any) error {
	password, _ := value.(string)

	if len(password) < minPasswordLength {
		return errors.New("must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	switch {
	case !hasUpper:
		return errors.New("must contain an uppercase letter")
	case !hasLower:
		return errors.New("must contain a lowercase letter")
	case !hasDigit:
		return errors.New("must contain a digit")
	case !hasSymbol:
		return errors.New("must contain a symbol")
	}

	return nil
}
