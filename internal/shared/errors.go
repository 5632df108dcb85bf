package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrUnauthorized   = fmt.Errorf("unauthorized")
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrSessionExpired = fmt.Errorf("session expired")
	ErrInvalidState   = fmt.Errorf("invalid session state")

	// API and transport errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrNetwork            = fmt.Errorf("network error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrValidation         = fmt.Errorf("validation failed")

	// Scheduling and day view errors
	ErrRevisionNotFound  = fmt.Errorf("revision not found")
	ErrIllegalTransition = fmt.Errorf("illegal revision status transition")
	ErrInvalidIndex      = fmt.Errorf("revision index out of range")
	ErrInvalidDate       = fmt.Errorf("invalid date")
	ErrStaleResult       = fmt.Errorf("result superseded by a newer selection")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
