package gralloc

import (
	"os"

	"github.com/joshuapare/bufkit/internal/format"
)

// BackingKind identifies which backing store holds a buffer's memory.
type BackingKind uint32

const (
	// BackingAnonymous is a named anonymous shared-memory region.
	BackingAnonymous BackingKind = iota
	// BackingPoolPrimary through BackingPoolSecondaryB are extents inside the
	// corresponding physically contiguous pool.
	BackingPoolPrimary
	BackingPoolSecondaryA
	BackingPoolSecondaryB
	// BackingScanout is a pre-reserved slot inside the mapped display
	// surface. Freeing one releases its slot, never a pool extent.
	BackingScanout
)

func (k BackingKind) String() string {
	switch k {
	case BackingAnonymous:
		return "anonymous"
	case BackingPoolPrimary:
		return "pool-primary"
	case BackingPoolSecondaryA:
		return "pool-secondary-a"
	case BackingPoolSecondaryB:
		return "pool-secondary-b"
	case BackingScanout:
		return "scanout"
	}
	return "unknown"
}

// Handle flags.
const (
	// FlagScanout marks a buffer backed by a framebuffer slot.
	FlagScanout uint32 = 1 << 0
	// FlagContiguous marks a buffer backed by physically contiguous memory.
	FlagContiguous uint32 = 1 << 1
)

// Lock-state bits carried in the handle. Pool-backed buffers are born with
// LockStateMapped since their sub-range is mapped at allocation time.
const (
	LockStateWrite    uint32 = 1 << 31
	LockStateMapped   uint32 = 1 << 30
	LockStateReadMask uint32 = 0x3FFFFFFF
)

// store is the tagged backing-store variant. Each variant carries only the
// fields meaningful for its kind.
type store interface {
	kind() BackingKind
	offset() int64
	phys() uint64
}

// anonStore backs a buffer with an anonymous shared-memory region. It has no
// pool offset and no physical address.
type anonStore struct{}

func (anonStore) kind() BackingKind { return BackingAnonymous }
func (anonStore) offset() int64     { return 0 }
func (anonStore) phys() uint64      { return 0 }

// poolStore backs a buffer with an extent of a physical pool.
type poolStore struct {
	pool     PoolKind
	off      int64
	physAddr uint64 // zero unless the pool tracks its physical base
}

func (s poolStore) kind() BackingKind { return s.pool.backing() }
func (s poolStore) offset() int64     { return s.off }
func (s poolStore) phys() uint64      { return s.physAddr }

// scanoutStore backs a buffer with one framebuffer slot. The slot index is
// recovered from the surface offset, so a handle decoded in another process
// frees the right slot.
type scanoutStore struct {
	off      int64 // byte offset of the slot within the display surface
	physAddr uint64
}

func (scanoutStore) kind() BackingKind { return BackingScanout }
func (s scanoutStore) offset() int64   { return s.off }
func (s scanoutStore) phys() uint64    { return s.physAddr }

// Handle is the opaque record describing one allocated buffer. Handles are
// only produced by a Device; a handle never exists without its backing store
// already reserved. Destroying a handle clears its signature, so operations
// on a stale handle fail validation instead of touching freed resources.
type Handle struct {
	// Shape descriptor. Checked, together with the magic signature, before
	// any other field is trusted.
	version int
	numFDs  int
	numInts int

	fd         int // backing descriptor, -1 when the handle carries none
	magic      uint32
	flags      uint32
	size       int64
	lockState  uint32
	writeOwner int32
	pid        int32

	store store
	data  []byte // process-local view of the backing memory, nil if unmapped
}

func newHandle(fd int, size int64, flags uint32, st store, data []byte) *Handle {
	return &Handle{
		version: format.HandleVersion,
		numFDs:  format.HandleNumFDs,
		numInts: format.HandleNumInts,
		fd:      fd,
		magic:   format.HandleMagic,
		flags:   flags,
		size:    size,
		pid:     int32(os.Getpid()),
		store:   st,
		data:    data,
	}
}

// Validate reports whether the handle was produced by this package and has
// not been destroyed. It checks the fixed shape descriptor first, then the
// magic signature, and trusts no field until both match.
func (h *Handle) Validate() error {
	if h == nil ||
		h.version != format.HandleVersion ||
		h.numFDs != format.HandleNumFDs ||
		h.numInts != format.HandleNumInts {
		return ErrInvalidHandle
	}
	if h.magic != format.HandleMagic || h.store == nil {
		return ErrInvalidHandle
	}
	return nil
}

// invalidate destroys the handle record. A destroyed handle fails Validate.
func (h *Handle) invalidate() {
	h.magic = 0
	h.fd = -1
	h.data = nil
}

// FD returns the backing file descriptor, or -1 when the handle carries none.
func (h *Handle) FD() int { return h.fd }

// Size returns the page-rounded byte size of the buffer.
func (h *Handle) Size() int64 { return h.size }

// Flags returns the handle flag bits.
func (h *Handle) Flags() uint32 { return h.flags }

// Kind returns the backing-store kind.
func (h *Handle) Kind() BackingKind { return h.store.kind() }

// Offset returns the buffer's byte offset within its pool or surface, zero
// for anonymous buffers.
func (h *Handle) Offset() int64 { return h.store.offset() }

// Phys returns the buffer's physical address, or zero when the backing pool
// does not track one.
func (h *Handle) Phys() uint64 { return h.store.phys() }

// LockState returns the lock-state bitfield.
func (h *Handle) LockState() uint32 { return h.lockState }

// PID returns the process that allocated the buffer.
func (h *Handle) PID() int { return int(h.pid) }

// Contiguous reports whether the buffer is backed by physically contiguous
// memory.
func (h *Handle) Contiguous() bool { return h.flags&FlagContiguous != 0 }

// Bytes returns the process-local view of the buffer memory, or nil when the
// buffer is not mapped in this process (for example a decoded handle).
func (h *Handle) Bytes() []byte { return h.data }
