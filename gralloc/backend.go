package gralloc

// PoolBackend opens and maps one physical memory pool device. The production
// implementation talks to a pmem-style kernel device (backend_linux.go);
// tests substitute in-memory fakes.
type PoolBackend interface {
	// Open opens the pool's master descriptor and maps the full pool
	// read/write/shared. Called at most once per pool per process.
	Open(size int64) (fd int, data []byte, err error)

	// Phys resolves the pool's physical base address from the master
	// descriptor. Only called for pools configured to track it.
	Phys(fd int) (uint64, error)

	// OpenSub opens a fresh descriptor on the pool device, associates it
	// with the master, and maps the given sub-range through it. The returned
	// descriptor is what the buffer handle carries.
	OpenSub(masterFD int, offset, size int64) (fd int, err error)

	// Close releases a descriptor previously returned by Open or OpenSub.
	Close(fd int) error
}

// AnonBackend creates named anonymous shared-memory regions, the fallback
// backing store and the home of buffers with no hardware intent.
type AnonBackend interface {
	// Create makes a region of the given size, maps it, and returns its
	// descriptor and mapping. Fresh pages are kernel-zeroed.
	Create(name string, size int64) (fd int, data []byte, err error)

	// Close releases a descriptor previously returned by Create.
	Close(fd int) error
}

// Surface describes the mapped display scanout area.
type Surface struct {
	Data        []byte // full surface mapping
	Phys        uint64 // physical base of the surface
	BufferSize  int64  // bytes per scanout buffer (line length x visible lines)
	BufferCount int    // number of pre-reserved scanout slots
	LineLength  int64  // bytes per row

	// DupFD duplicates the surface descriptor for a new scanout handle. A
	// nil DupFD yields handles with no descriptor (fd -1).
	DupFD func() (int, error)

	// CloseFD releases a descriptor produced by DupFD. Nil means close is
	// skipped.
	CloseFD func(int) error
}

// Display maps the physical display surface. MapSurface is called at most
// once per device, lazily, on the first scanout request.
type Display interface {
	MapSurface() (*Surface, error)
}

// Registrar is the external bookkeeping hook invoked when buffers are
// created and destroyed. Failures are logged and never block allocation or
// the free path.
type Registrar interface {
	RegisterBuffer(*Handle) error
	UnregisterBuffer(*Handle) error
}
