package gralloc

import "fmt"

// maxScanoutSlots bounds the slot bitmask width.
const maxScanoutSlots = 32

// allocFramebuffer services a scanout request from the pre-reserved slots of
// the display surface. The surface is mapped exactly once, lazily; slot
// claims happen under the device mutex so two callers cannot take the same
// slot.
func (d *Device) allocFramebuffer(size int64, usage Usage) (*Handle, error) {
	d.mu.Lock()

	if d.surface == nil {
		if d.display == nil {
			d.mu.Unlock()
			return nil, fmt.Errorf("%w: no display configured", ErrDeviceUnavailable)
		}
		s, err := d.display.MapSurface()
		if err != nil {
			d.mu.Unlock()
			return nil, fmt.Errorf("%w: map display surface: %w", ErrDeviceUnavailable, err)
		}
		if s.BufferCount < 1 || s.BufferCount > maxScanoutSlots || s.BufferSize <= 0 {
			d.mu.Unlock()
			return nil, fmt.Errorf("%w: display reports %d buffers of %d bytes",
				ErrDeviceUnavailable, s.BufferCount, s.BufferSize)
		}
		d.surface = s
		d.log.Info("display surface mapped",
			"buffers", s.BufferCount, "bufferSize", s.BufferSize, "lineLength", s.LineLength)
	}
	s := d.surface

	if s.BufferCount == 1 {
		// No page-flipping: serve an ordinary contiguous buffer that the
		// poster copies to the screen. No slot bookkeeping in this mode.
		d.mu.Unlock()
		return d.allocBuffer(s.BufferSize, (usage&^UsageScanout)|UsageHW2D)
	}

	full := uint32(1)<<uint(s.BufferCount) - 1
	if d.slotMask >= full {
		d.mu.Unlock()
		return nil, ErrOutOfSlots
	}

	// Lowest clear bit wins.
	slot := 0
	for d.slotMask&(1<<uint(slot)) != 0 {
		slot++
	}
	d.slotMask |= 1 << uint(slot)

	fd := -1
	if s.DupFD != nil {
		dup, err := s.DupFD()
		if err != nil {
			d.slotMask &^= 1 << uint(slot)
			d.mu.Unlock()
			return nil, fmt.Errorf("gralloc: dup surface descriptor: %w", err)
		}
		fd = dup
	}
	d.mu.Unlock()

	offset := int64(slot) * s.BufferSize
	h := newHandle(fd, size, FlagScanout|FlagContiguous,
		scanoutStore{off: offset, physAddr: s.Phys + uint64(offset)},
		s.Data[offset:offset+s.BufferSize])
	d.registerBuffer(h)
	return h, nil
}

// releaseScanoutSlot clears the slot owning the given surface offset.
func (d *Device) releaseScanoutSlot(offset int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.surface == nil || d.surface.BufferSize <= 0 {
		return
	}
	slot := offset / d.surface.BufferSize
	if slot >= 0 && slot < int64(d.surface.BufferCount) {
		d.slotMask &^= 1 << uint(slot)
	}
}
