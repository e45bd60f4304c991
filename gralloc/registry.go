package gralloc

import (
	"fmt"

	"github.com/joshuapare/bufkit/gralloc/alloc"
)

// PoolKind identifies one of the physically contiguous memory pools.
type PoolKind uint32

const (
	// PoolPrimary is the general-purpose contiguous pool (10 MiB by
	// default). Texture-sampled buffers land here. The zero PoolKind is
	// reserved so an unset Config.DefaultPool is distinguishable.
	PoolPrimary PoolKind = iota + 1
	// PoolSecondaryA and PoolSecondaryB are the GPU pools (3 MiB each by
	// default). Render and 2D targets land in the device's configured
	// default pool, SecondaryB unless overridden.
	PoolSecondaryA
	PoolSecondaryB
)

func (k PoolKind) String() string {
	switch k {
	case PoolPrimary:
		return "primary"
	case PoolSecondaryA:
		return "secondary-a"
	case PoolSecondaryB:
		return "secondary-b"
	}
	return "unknown"
}

func (k PoolKind) backing() BackingKind {
	switch k {
	case PoolPrimary:
		return BackingPoolPrimary
	case PoolSecondaryA:
		return BackingPoolSecondaryA
	case PoolSecondaryB:
		return BackingPoolSecondaryB
	}
	return BackingAnonymous
}

func poolForBacking(b BackingKind) (PoolKind, bool) {
	switch b {
	case BackingPoolPrimary:
		return PoolPrimary, true
	case BackingPoolSecondaryA:
		return PoolSecondaryA, true
	case BackingPoolSecondaryB:
		return PoolSecondaryB, true
	}
	return 0, false
}

// PoolConfig describes one pool's backing device and geometry.
type PoolConfig struct {
	// Backend talks to the pool device. Required.
	Backend PoolBackend
	// Size is the pool's total size in bytes; must be a page multiple.
	Size int64
	// TrackPhys directs the registry to resolve the pool's physical base on
	// open. Buffers from phys-tracked pools carry a physical address.
	TrackPhys bool
}

// pool is one registered heap: its configuration, its region allocator, and
// the open state cached after the first successful open.
type pool struct {
	kind   PoolKind
	cfg    PoolConfig
	region *alloc.Allocator

	// Guarded by the device mutex. fd is -1 until the pool is opened; a
	// failed open leaves it -1 so a later request retries.
	fd       int
	data     []byte
	physBase uint64
}

func newPool(kind PoolKind, cfg PoolConfig, pageSize int64) (*pool, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("gralloc: pool %s has no backend", kind)
	}
	region, err := alloc.New(cfg.Size, &alloc.Options{PageSize: pageSize})
	if err != nil {
		return nil, fmt.Errorf("gralloc: pool %s: %w", kind, err)
	}
	return &pool{kind: kind, cfg: cfg, region: region, fd: -1}, nil
}

// ensurePool returns the pool for kind, opening and mapping it on first use.
// The device mutex serializes first-openers, so the second concurrent opener
// observes fully initialized state rather than a half-mapped pool. A failed
// open is not cached: the pool stays unopened and the next request retries.
func (d *Device) ensurePool(kind PoolKind) (*pool, error) {
	p, ok := d.pools[kind]
	if !ok {
		return nil, fmt.Errorf("%w: pool %s is not configured", ErrDeviceUnavailable, kind)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if p.fd >= 0 {
		return p, nil
	}

	fd, data, err := p.cfg.Backend.Open(p.cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDeviceUnavailable, kind, err)
	}

	if p.cfg.TrackPhys {
		phys, physErr := p.cfg.Backend.Phys(fd)
		if physErr != nil {
			// The pool is still usable without a physical base; handles from
			// it just carry phys 0.
			d.log.Error("pool physical base query failed",
				"pool", kind.String(), "err", physErr)
			phys = 0
		}
		p.physBase = phys
	}

	p.fd = fd
	p.data = data
	d.log.Info("pool opened", "pool", kind.String(), "size", p.cfg.Size, "phys", p.physBase)
	return p, nil
}
