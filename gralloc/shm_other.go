//go:build !linux

package gralloc

import "fmt"

// unsupportedAnon stands in on platforms without a shared-memory primitive
// this package knows how to drive. Callers supply their own AnonBackend.
type unsupportedAnon struct{}

func (unsupportedAnon) Create(string, int64) (int, []byte, error) {
	return -1, nil, fmt.Errorf("gralloc: anonymous shared memory not supported on this platform")
}

func (unsupportedAnon) Close(int) error { return nil }

// NewAnonBackend returns the platform's anonymous shared-memory backend.
func NewAnonBackend() AnonBackend { return unsupportedAnon{} }

// DefaultPools returns no pools: there are no pmem devices to wire on this
// platform, so every pool kind reads as unavailable hardware.
func DefaultPools() map[PoolKind]PoolConfig { return nil }
