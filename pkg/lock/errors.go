package lock

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrBusy          = errors.New("lock: busy")
	ErrTimeout       = errors.New("lock: timed out")
	ErrValidation    = errors.New("lock: invalid input")
	ErrNoCredentials = errors.New("lock: not authorized, no cached credentials")
	ErrNotFound      = errors.New("lock: access code not found")
)

// Validation errors. All of them match ErrValidation.
var (
	ErrInvalidSchedule    = fmt.Errorf("%w: schedule", ErrValidation)
	ErrInvalidDays        = fmt.Errorf("%w: days", ErrValidation)
	ErrInvalidAccessCode  = fmt.Errorf("%w: access code", ErrValidation)
	ErrInvalidCredentials = fmt.Errorf("%w: credentials", ErrValidation)
	ErrInvalidPIN         = fmt.Errorf("%w: PIN", ErrValidation)
)

// Configuration errors.
var (
	ErrPeripheralRequired = errors.New("lock: peripheral is required")
)
