//go:build linux

package gralloc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MemfdBackend creates named anonymous shared-memory regions with
// memfd_create. The descriptor can cross process boundaries and the kernel
// guarantees fresh pages read as zero.
type MemfdBackend struct{}

func (MemfdBackend) Create(name string, size int64) (int, []byte, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return -1, nil, fmt.Errorf("memfd_create %s: %w", name, err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		_ = unix.Close(fd)
		return -1, nil, fmt.Errorf("ftruncate %s: %w", name, err)
	}
	data, err := unix.Mmap(fd, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return -1, nil, fmt.Errorf("mmap %s: %w", name, err)
	}
	return fd, data, nil
}

func (MemfdBackend) Close(fd int) error { return unix.Close(fd) }

// NewAnonBackend returns the platform's anonymous shared-memory backend.
func NewAnonBackend() AnonBackend { return MemfdBackend{} }
