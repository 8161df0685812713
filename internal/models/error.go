package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account errors
	ErrDuplicateEmail = errors.New("email address already exists")
	ErrEmailInUse     = errors.New("email address already in use")
	ErrInvalidStatus  = errors.New("invalid account status")
	ErrAccountLocked  = errors.New("account locked")

	// Token and authorization errors
	ErrInvalidToken     = errors.New("invalid token")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNoSigningSecret  = errors.New("token signing secret not configured")
	ErrSigning          = errors.New("failed to sign token")

	// ErrGeoLookup is returned when an address cannot be resolved to a location.
	ErrGeoLookup = errors.New("ip geolocation lookup failed")

	ErrNotificationDropped = errors.New("notification queue full")
)
