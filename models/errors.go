package models

import "errors"

// Error taxonomy for the exchange flow. Controllers map these onto HTTP
// statuses and envelope codes; everything else wraps them with %w.
var (
	ErrValidation       = errors.New("invalid request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrAlreadyScanned   = errors.New("already scanned")
	ErrStoreUnavailable = errors.New("exchange store unavailable")
)
