package interval

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned when a bound is NaN or infinite.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidRange is returned when start is after end.
	ErrInvalidRange = errors.New("invalid range")
)
