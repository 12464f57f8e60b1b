package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPaymentMismatch     = errors.New("payment does not match this booking")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrAttemptConsumed     = errors.New("payment attempt already used")
	ErrAttemptExpired      = errors.New("payment attempt expired")
)
