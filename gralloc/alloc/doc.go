// Package alloc provides best-fit extent allocation inside one fixed-size
// memory pool.
//
// # Overview
//
// An Allocator manages the free and used extents of a single pool (a
// physically contiguous memory region mapped elsewhere). It knows nothing
// about buffers, handles, or devices; it only hands out page-aligned offsets
// and takes them back.
//
// # Allocation strategy
//
// Allocate picks the smallest free extent that satisfies the (page-rounded)
// request, splitting it when larger than needed. Among equally small
// candidates the lowest offset wins, which keeps behavior reproducible across
// runs. Deallocate coalesces the returned extent with free neighbors on both
// sides, so the free list never contains two adjacent extents.
//
// # Invariant
//
// At every point the free extents and the used extents partition the pool
// exactly: no overlap, no gap. Extents returns a snapshot of both sets so
// callers and tests can check this directly.
//
// # Thread safety
//
// All methods are safe for concurrent use; the allocator serializes its own
// free-list mutations internally. Allocators for different pools are
// independent and do not contend with each other.
package alloc
