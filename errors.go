package auth

import (
	"context"
	stderrors "errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

const (
	TextCodeValidation         = "auth_validation_failed"
	TextCodeDuplicateIdentity  = "auth_duplicate_identity"
	TextCodeInvalidCredentials = "auth_invalid_credentials"
	TextCodeTokenExpired       = "auth_token_expired"
	TextCodeTokenMalformed     = "auth_token_malformed"
	TextCodeForbidden          = "auth_forbidden"
	TextCodeUserNotFound       = "auth_user_not_found"
	TextCodeStoreUnavailable   = "auth_store_unavailable"
	TextCodeCorruptCredential  = "auth_corrupt_credential"
	TextCodeOwnerExists        = "auth_owner_exists"
)

// ErrInvalidCredentials is returned for a bad password and for an unknown
// account alike, so callers cannot enumerate registered emails.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateIdentity is returned when the email or username is taken.
var ErrDuplicateIdentity = errors.New("email or username already registered", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(errors.CodeConflict)

// ErrUserNotFound is returned when a resolved identity has no backing record.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrStoreUnavailable signals the credential store could not be reached.
// It triggers the fallback cache, or surfaces directly for operations that
// forbid degraded mode.
var ErrStoreUnavailable = errors.New("credential store unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeStoreUnavailable)

// ErrTokenExpired is returned for tokens past their expiry.
var ErrTokenExpired = errors.New("authentication token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse or verify.
var ErrTokenMalformed = errors.New("invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when a valid token lacks the required role.
var ErrForbidden = errors.New("insufficient role", errors.CategoryAuth).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrCorruptCredential is returned when a stored hash cannot be read. Fatal
// for that record; logged and surfaced as an internal error.
var ErrCorruptCredential = errors.New("stored credential unreadable", errors.CategoryInternal).
	WithTextCode(TextCodeCorruptCredential)

// ErrOwnerExists is returned when a bootstrap or promotion would produce a
// second owner.
var ErrOwnerExists = errors.New("an owner account already exists", errors.CategoryConflict).
	WithTextCode(TextCodeOwnerExists).
	WithCode(errors.CodeConflict)

// ErrNoEmptyString is the error for empty password input
var ErrNoEmptyString = stderrors.New("password cannot be an empty string")

// ErrMismatchedHashAndPassword is the hash mismatch sentinel
var ErrMismatchedHashAndPassword = stderrors.New("password does not match hash")

// NewValidationError converts an ozzo validation result into a rich error
// whose metadata lists every violated field, not just the first.
func NewValidationError(err error) error {
	richErr := errors.New("validation failed", errors.CategoryValidation).
		WithTextCode(TextCodeValidation).
		WithCode(errors.CodeBadRequest)

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		fields := make(map[string]any, len(verrs))
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
		return richErr.WithMetadata(map[string]any{"fields": fields})
	}

	return richErr.WithMetadata(map[string]any{"detail": err.Error()})
}

// IsUnavailable reports whether err means the credential store could not be
// reached. Timeouts count, per the fallback contract.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == TextCodeStoreUnavailable
	}

	return false
}

// IsConflict reports whether err is a duplicate identity or owner conflict.
func IsConflict(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryConflict
	}
	return false
}

// IsNotFound reports whether err means no record backed the lookup.
func IsNotFound(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryNotFound
	}
	return false
}

// ErrorStatus maps an error to the HTTP status the boundary should emit.
func ErrorStatus(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return 500
	}

	if richErr.Code > 0 {
		return int(richErr.Code)
	}

	switch richErr.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return 400
	case errors.CategoryAuth:
		return 401
	case errors.CategoryNotFound:
		return 404
	case errors.CategoryConflict:
		return 409
	case errors.CategoryOperation:
		return 503
	default:
		return 500
	}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrTokenMalformed) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
