package p224

import (
	"errors"
	"fmt"
)

// ErrInvalidPoint is the error kind shared by every curve failure.
var ErrInvalidPoint = errors.New("p224: invalid curve point")

// Errors
var (
	ErrMissingCoordinate  = fmt.Errorf("%w: missing coordinate", ErrInvalidPoint)
	ErrNegativeCoordinate = fmt.Errorf("%w: negative coordinate", ErrInvalidPoint)
	ErrCoordinateRange    = fmt.Errorf("%w: coordinate not below field prime", ErrInvalidPoint)
	ErrNotOnCurve         = fmt.Errorf("%w: point is not on the curve", ErrInvalidPoint)
	ErrPointAtInfinity    = fmt.Errorf("%w: point at infinity", ErrInvalidPoint)
	ErrInvalidEncoding    = fmt.Errorf("%w: encoding must be 56 bytes", ErrInvalidPoint)
	ErrNegativeScalar     = errors.New("p224: negative scalar")
)
