package gralloc

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/joshuapare/bufkit/gralloc/alloc"
)

// Default pool geometry, matching the shipped display configuration.
const (
	DefaultPrimaryPoolSize   = 10 * 1024 * 1024
	DefaultSecondaryPoolSize = 3 * 1024 * 1024
)

// Config wires a Device to its collaborators. The zero value of optional
// fields selects a sane default; Pools and the anonymous backend are what
// make the device useful.
type Config struct {
	// Pools maps each pool kind to its backing device. Kinds absent from the
	// map are treated as unavailable hardware.
	Pools map[PoolKind]PoolConfig

	// DefaultPool is the pool targeted by render and 2D intents.
	// Defaults to PoolSecondaryB.
	DefaultPool PoolKind

	// Anon creates anonymous shared-memory regions. Required on platforms
	// without a default (see NewAnonBackend).
	Anon AnonBackend

	// Display maps the scanout surface. Nil means scanout requests fail.
	Display Display

	// Registrar receives buffer creation/destruction notifications. Optional.
	Registrar Registrar

	// Logger receives structured allocation logs. Nil discards them.
	Logger *slog.Logger

	// PageSize overrides the platform page size (tests only).
	PageSize int64
}

// Device is the buffer allocation device. One instance owns the process-wide
// allocator state: the per-pool region allocators, the cached pool
// descriptors, and the scanout slot bitmask.
type Device struct {
	mu sync.Mutex // guards pool open state, surface, and slotMask

	pools       map[PoolKind]*pool
	defaultPool PoolKind
	anon        AnonBackend
	display     Display
	registrar   Registrar
	log         *slog.Logger
	pageSize    int64

	surface  *Surface
	slotMask uint32
}

// Open constructs a Device from cfg. Pools are registered but not opened;
// each is opened lazily on the first allocation that needs it.
func Open(cfg Config) (*Device, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = int64(os.Getpagesize())
	}

	d := &Device{
		pools:       make(map[PoolKind]*pool, len(cfg.Pools)),
		defaultPool: cfg.DefaultPool,
		anon:        cfg.Anon,
		display:     cfg.Display,
		registrar:   cfg.Registrar,
		log:         log,
		pageSize:    pageSize,
	}
	if cfg.DefaultPool == 0 {
		// Render targets go to the second GPU pool as in the shipped
		// configuration.
		d.defaultPool = PoolSecondaryB
	}

	for kind, pc := range cfg.Pools {
		p, err := newPool(kind, pc, pageSize)
		if err != nil {
			return nil, err
		}
		d.pools[kind] = p
	}
	return d, nil
}

func (d *Device) roundUpToPage(n int64) int64 {
	return (n + d.pageSize - 1) &^ (d.pageSize - 1)
}

// Allocate reserves a buffer of the given dimensions and format and returns
// its handle and row stride in bytes. Scanout intent routes to the
// framebuffer slots; everything else goes through the allocation policy.
func (d *Device) Allocate(w, h int, pf PixelFormat, usage Usage) (*Handle, int, error) {
	size, stride, err := bufferLayout(w, h, pf)
	if err != nil {
		return nil, 0, err
	}

	var hnd *Handle
	if usage&UsageScanout != 0 {
		hnd, err = d.allocFramebuffer(size, usage)
	} else {
		hnd, err = d.allocBuffer(size, usage)
	}
	if err != nil {
		d.log.Error("allocation failed",
			"w", w, "h", h, "format", pf.String(), "usage", uint32(usage), "err", err)
		return nil, 0, err
	}
	d.log.Debug("buffer allocated",
		"kind", hnd.Kind().String(), "size", hnd.Size(), "offset", hnd.Offset(), "stride", stride)
	return hnd, stride, nil
}

// Free validates the handle, releases exactly the resources it records, and
// destroys it. Freeing an invalid or already-freed handle returns
// ErrInvalidHandle and releases nothing.
func (d *Device) Free(h *Handle) error {
	if err := h.Validate(); err != nil {
		return err
	}

	switch s := h.store.(type) {
	case scanoutStore:
		d.releaseScanoutSlot(s.off)

	case poolStore:
		p, ok := d.pools[s.pool]
		if !ok {
			return ErrInvalidHandle
		}
		if err := p.region.Deallocate(s.off); err != nil {
			// The recorded extent is not live in this pool: the handle does
			// not belong to this device or was corrupted in flight.
			return fmt.Errorf("%w: %v", ErrInvalidHandle, err)
		}
		// Scrub the released range: pool memory is recycled across
		// processes and may hold prior frame contents.
		clear(h.data)

	case anonStore:
		// Fresh anonymous pages are kernel-zeroed, no scrub needed.
	}

	d.unregisterBuffer(h)

	if h.fd >= 0 {
		if err := d.closeFD(h); err != nil {
			d.log.Error("descriptor close failed", "fd", h.fd, "err", err)
		}
	}
	h.invalidate()
	return nil
}

// closeFD routes descriptor close to the backend that produced it.
func (d *Device) closeFD(h *Handle) error {
	switch s := h.store.(type) {
	case poolStore:
		if p, ok := d.pools[s.pool]; ok {
			return p.cfg.Backend.Close(h.fd)
		}
	case anonStore:
		if d.anon != nil {
			return d.anon.Close(h.fd)
		}
	case scanoutStore:
		d.mu.Lock()
		closeFD := (func(int) error)(nil)
		if d.surface != nil {
			closeFD = d.surface.CloseFD
		}
		d.mu.Unlock()
		if closeFD != nil {
			return closeFD(h.fd)
		}
	}
	return nil
}

// Validate reports whether h is a live handle produced by this package. It
// is safe to call on arbitrary input, including nil.
func (d *Device) Validate(h *Handle) error {
	return h.Validate()
}

// PoolStat describes one pool's current state.
type PoolStat struct {
	Kind        PoolKind
	Size        int64
	Open        bool
	FreeBytes   int64
	LargestFree int64
	Stats       alloc.Stats
}

// PoolStats returns a snapshot of every configured pool.
func (d *Device) PoolStats() []PoolStat {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := make([]PoolStat, 0, len(d.pools))
	for kind := PoolPrimary; kind <= PoolSecondaryB; kind++ {
		p, ok := d.pools[kind]
		if !ok {
			continue
		}
		stats = append(stats, PoolStat{
			Kind:        kind,
			Size:        p.cfg.Size,
			Open:        p.fd >= 0,
			FreeBytes:   p.region.FreeBytes(),
			LargestFree: p.region.LargestFree(),
			Stats:       p.region.Stats(),
		})
	}
	return stats
}

// Close releases the pool master descriptors. Pool mappings stay in place
// for the life of the process, matching the always-resident nature of
// display memory; buffers already handed out remain usable.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for _, p := range d.pools {
		if p.fd < 0 {
			continue
		}
		if err := p.cfg.Backend.Close(p.fd); err != nil && firstErr == nil {
			firstErr = err
		}
		p.fd = -1
	}
	return firstErr
}
