package service

import (
	"errors"
	"fmt"

	"github.com/samber/oops"

	"github.com/steavenspr/auth-api-prototype/internal/validation"
)

// Error kinds returned by the services.  Callers test for them with
// errors.Is; the concrete errors also carry an oops code and context for
// logging.
var (
	ErrValidationFailed   = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAccountNotFound    = errors.New("account not found")
	ErrStore              = errors.New("store error")
)

// Error codes attached with oops.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	CodeStoreError         = "STORE_ERROR"
)

// ValidationError carries the per-field failures of a rejected input.
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string { return e.Fields.Error() }

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// FieldErrors extracts the field failures from err, if any.
func FieldErrors(err error) (validation.Errors, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}

func validationFailed(fields validation.Errors) error {
	return oops.Code(CodeValidationFailed).Wrap(&ValidationError{Fields: fields})
}

func duplicateEmail() error {
	return oops.Code(CodeDuplicateEmail).Wrap(ErrDuplicateEmail)
}

// invalidCredentials carries no context: the unknown-email and
// wrong-password paths must produce the same error.
func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func invalidToken() error {
	return oops.Code(CodeInvalidToken).Wrap(ErrInvalidToken)
}

func accountNotFound(id uint64) error {
	return oops.Code(CodeAccountNotFound).With("account_id", id).Wrap(ErrAccountNotFound)
}

func storeError(op string, err error) error {
	return oops.Code(CodeStoreError).With("operation", op).Wrap(fmt.Errorf("%w: %w", ErrStore, err))
}
