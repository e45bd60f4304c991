package gralloc

import (
	"errors"
	"fmt"
)

// anonRegionName names the anonymous shared-memory regions backing plain
// buffers, so they are identifiable in /proc maps.
const anonRegionName = "gralloc-buffer"

// allocBuffer is the allocation-policy dispatch: it derives a target backing
// store from the usage intents, services the request there, and falls back to
// anonymous shared memory when the pool device is unavailable and the intents
// permit it.
func (d *Device) allocBuffer(size int64, usage Usage) (*Handle, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrInvalidArgument, size)
	}
	size = d.roundUpToPage(size)

	target, contiguous := d.targetFor(usage)
	if !contiguous {
		// The unconditional path: anonymous shared memory has no further
		// fallback, failure here fails the request.
		return d.allocAnonymous(size)
	}

	h, err := d.allocFromPool(target, size)
	if err != nil && errors.Is(err, ErrDeviceUnavailable) && usage&UsageHW2D == 0 {
		// The caller did not strictly require contiguous memory, so retry
		// the whole request as a plain shared region.
		d.log.Warn("pool unavailable, falling back to anonymous shared memory",
			"pool", target.String(), "size", size, "err", err)
		return d.allocAnonymous(size)
	}
	return h, err
}

// targetFor maps usage intents to a backing store. Render and 2D intents
// target the device's default pool; texture-only intent targets the primary
// pool so hardware paths can still reach the buffer; everything else gets
// anonymous shared memory.
func (d *Device) targetFor(usage Usage) (PoolKind, bool) {
	switch {
	case usage&(UsageHWRender|UsageHW2D) != 0:
		return d.defaultPool, true
	case usage&UsageHWTexture != 0:
		return PoolPrimary, true
	}
	return 0, false
}

func (d *Device) allocAnonymous(size int64) (*Handle, error) {
	if d.anon == nil {
		return nil, fmt.Errorf("%w: no anonymous backend configured", ErrDeviceUnavailable)
	}
	fd, data, err := d.anon.Create(anonRegionName, size)
	if err != nil {
		d.log.Error("anonymous region creation failed", "size", size, "err", err)
		return nil, fmt.Errorf("gralloc: create anonymous region: %w", err)
	}
	h := newHandle(fd, size, 0, anonStore{}, data)
	d.registerBuffer(h)
	return h, nil
}

func (d *Device) allocFromPool(kind PoolKind, size int64) (*Handle, error) {
	p, err := d.ensurePool(kind)
	if err != nil {
		return nil, err
	}

	offset, err := p.region.Allocate(size)
	if err != nil {
		return nil, fmt.Errorf("gralloc: pool %s: %w", kind, err)
	}

	// From here on the extent is reserved: every failure must release it
	// before surfacing.
	fd, err := p.cfg.Backend.OpenSub(p.fd, offset, size)
	if err != nil {
		if derr := p.region.Deallocate(offset); derr != nil {
			d.log.Error("extent release after failed sub-map", "pool", kind.String(), "err", derr)
		}
		return nil, fmt.Errorf("gralloc: map %s sub-range: %w", kind, err)
	}

	var phys uint64
	if p.physBase != 0 {
		phys = p.physBase + uint64(offset)
	}
	h := newHandle(fd, size, FlagContiguous,
		poolStore{pool: kind, off: offset, physAddr: phys},
		p.data[offset:offset+size])
	h.lockState = LockStateMapped
	d.registerBuffer(h)
	return h, nil
}

func (d *Device) registerBuffer(h *Handle) {
	if d.registrar == nil {
		return
	}
	if err := d.registrar.RegisterBuffer(h); err != nil {
		d.log.Error("buffer registration failed", "kind", h.Kind().String(), "err", err)
	}
}

func (d *Device) unregisterBuffer(h *Handle) {
	if d.registrar == nil {
		return
	}
	if err := d.registrar.UnregisterBuffer(h); err != nil {
		// Unregistration failures never block the free path.
		d.log.Error("buffer unregistration failed", "kind", h.Kind().String(), "err", err)
	}
}
