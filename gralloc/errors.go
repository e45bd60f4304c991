package gralloc

import "errors"

var (
	// ErrInvalidArgument indicates bad dimensions, an unsupported pixel
	// format, or a negative size.
	ErrInvalidArgument = errors.New("gralloc: invalid argument")

	// ErrInvalidHandle indicates a handle that fails shape or signature
	// validation. Nothing in such a handle may be trusted.
	ErrInvalidHandle = errors.New("gralloc: invalid handle")

	// ErrOutOfSlots indicates that every pre-reserved scanout slot is taken.
	ErrOutOfSlots = errors.New("gralloc: out of scanout slots")

	// ErrDeviceUnavailable indicates that a pool device could not be opened,
	// mapped, or queried.
	ErrDeviceUnavailable = errors.New("gralloc: pool device unavailable")
)
