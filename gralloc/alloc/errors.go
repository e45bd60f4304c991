package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free extent is large enough for the request.
	ErrNoSpace = errors.New("alloc: no free extent large enough")

	// ErrBadOffset indicates a Deallocate offset that is not the start of a
	// currently allocated extent.
	ErrBadOffset = errors.New("alloc: offset is not an allocated extent")

	// ErrBadSize indicates a non-positive request or pool size.
	ErrBadSize = errors.New("alloc: size must be positive")
)
