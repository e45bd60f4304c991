//go:build linux

package gralloc

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// pmem ioctl interface (linux/android_pmem.h). The request codes are
// _IOW('p', nr, unsigned int) encodings; GET_PHYS and MAP pass a region
// struct by pointer, CONNECT passes the master descriptor by value.
const pmemIoctlMagic = 'p'

var (
	pmemGetPhys = iow(pmemIoctlMagic, 1, 4)
	pmemMap     = iow(pmemIoctlMagic, 2, 4)
	pmemConnect = iow(pmemIoctlMagic, 6, 4)
)

// iow encodes a write-direction ioctl request number.
func iow(typ, nr, size uintptr) uintptr {
	const iocWrite = 1
	return iocWrite<<30 | size<<16 | typ<<8 | nr
}

// pmemRegion mirrors struct pmem_region.
type pmemRegion struct {
	offset uint64
	len    uint64
}

func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

// DevicePool is a PoolBackend over a pmem-style character device.
type DevicePool struct {
	Path string
}

func (b DevicePool) Open(size int64) (int, []byte, error) {
	fd, err := unix.Open(b.Path, unix.O_RDWR, 0)
	if err != nil {
		return -1, nil, fmt.Errorf("open %s: %w", b.Path, err)
	}
	data, err := unix.Mmap(fd, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return -1, nil, fmt.Errorf("mmap %s: %w", b.Path, err)
	}
	return fd, data, nil
}

func (b DevicePool) Phys(fd int) (uint64, error) {
	var r pmemRegion
	if err := ioctlPtr(fd, pmemGetPhys, unsafe.Pointer(&r)); err != nil {
		return 0, fmt.Errorf("PMEM_GET_PHYS on %s: %w", b.Path, err)
	}
	return r.offset, nil
}

func (b DevicePool) OpenSub(masterFD int, offset, size int64) (int, error) {
	fd, err := unix.Open(b.Path, unix.O_RDWR, 0)
	if err != nil {
		return -1, fmt.Errorf("open %s: %w", b.Path, err)
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL,
		uintptr(fd), pmemConnect, uintptr(masterFD)); errno != 0 {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("PMEM_CONNECT on %s: %w", b.Path, errno)
	}
	sub := pmemRegion{offset: uint64(offset), len: uint64(size)}
	if err := ioctlPtr(fd, pmemMap, unsafe.Pointer(&sub)); err != nil {
		_ = unix.Close(fd)
		return -1, fmt.Errorf("PMEM_MAP on %s: %w", b.Path, err)
	}
	return fd, nil
}

func (DevicePool) Close(fd int) error { return unix.Close(fd) }

// DefaultPools wires the three pools to the shipped pmem devices.
func DefaultPools() map[PoolKind]PoolConfig {
	return map[PoolKind]PoolConfig{
		PoolPrimary: {
			Backend: DevicePool{Path: "/dev/pmem"},
			Size:    DefaultPrimaryPoolSize,
		},
		PoolSecondaryA: {
			Backend:   DevicePool{Path: "/dev/pmem_gpu0"},
			Size:      DefaultSecondaryPoolSize,
			TrackPhys: true,
		},
		PoolSecondaryB: {
			Backend:   DevicePool{Path: "/dev/pmem_gpu1"},
			Size:      DefaultSecondaryPoolSize,
			TrackPhys: true,
		},
	}
}
