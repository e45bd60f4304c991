// Package gralloc allocates graphics buffers backed by shared or physically
// contiguous memory and hands out opaque, validatable handles that can cross
// process boundaries.
//
// # Overview
//
// A Device coordinates several physically distinct backing stores with
// different sharing and mapping semantics:
//
//   - named anonymous shared-memory regions, the unconditional path for
//     buffers with no hardware intent and the fallback when a pool device is
//     unavailable
//   - physically contiguous pools (one primary, two secondary/GPU), each
//     carved up by its own best-fit region allocator
//     (github.com/joshuapare/bufkit/gralloc/alloc)
//   - pre-reserved scanout slots inside the mapped display surface, tracked
//     by a bitmask
//
// The allocation policy picks a store from the caller's declared usage
// intents; pools are opened lazily on first use and the open is idempotent
// under the device mutex. When a pool device is unavailable and the caller
// did not strictly require contiguous memory, the request is retried once
// against anonymous shared memory.
//
// # Handles
//
// Every allocation returns a Handle carrying the backing descriptor, the
// backing-store kind, and a magic/shape signature. Validate checks the
// signature before any field is trusted, so arbitrary garbage and stale
// (already freed) handles are rejected rather than dereferenced. Encode and
// Decode flatten a handle to a fixed record for transport between processes.
//
// # Freeing
//
// Free mirrors allocation: it dispatches on the recorded backing kind,
// releases the slot or pool extent, scrubs pool-backed memory, notifies the
// registrar, closes the descriptor, and destroys the handle record.
//
// # Usage Example
//
//	dev, err := gralloc.Open(gralloc.Config{
//	    Pools: gralloc.DefaultPools(),
//	    Anon:  gralloc.NewAnonBackend(),
//	})
//	if err != nil {
//	    return err
//	}
//
//	h, stride, err := dev.Allocate(64, 64, gralloc.FormatRGBA8888, gralloc.UsageHWTexture)
//	if err != nil {
//	    return err
//	}
//	defer dev.Free(h)
//
//	// Write pixels through h.Bytes(), rows are stride pixels wide...
//
// # Thread Safety
//
// All Device methods are safe for concurrent use. Pool open state and the
// scanout bitmask are guarded by one device-wide mutex; each pool's region
// allocator serializes independently, so allocations in different pools
// proceed concurrently.
package gralloc
