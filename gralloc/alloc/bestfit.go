package alloc

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Extent is a contiguous byte range inside the pool.
type Extent struct {
	Offset int64
	Length int64
}

// End returns the first offset past the extent.
func (e Extent) End() int64 { return e.Offset + e.Length }

// Stats holds internal counters for instrumentation and tests.
type Stats struct {
	AllocCalls     int   // Allocate calls that succeeded
	FreeCalls      int   // Deallocate calls that succeeded
	Splits         int   // free extents split during allocation
	Coalesces      int   // merges performed during deallocation
	BytesAllocated int64 // total bytes handed out (page-rounded)
	BytesFreed     int64 // total bytes returned
}

// Options tunes allocator construction. The zero value (or nil) means the
// platform page size.
type Options struct {
	// PageSize overrides the allocation granularity. Must be a power of two.
	// Zero selects os.Getpagesize().
	PageSize int64
}

// Allocator manages free and used extents of one fixed-size pool using a
// best-fit strategy with coalescing on free.
type Allocator struct {
	mu       sync.Mutex
	pageSize int64
	size     int64
	free     []Extent        // sorted by offset, disjoint, never adjacent
	used     map[int64]int64 // offset -> length
	stats    Stats
}

// New constructs an allocator over a pool of the given total size. The size
// must be a positive multiple of the page size.
func New(size int64, opts *Options) (*Allocator, error) {
	pageSize := int64(os.Getpagesize())
	if opts != nil && opts.PageSize != 0 {
		pageSize = opts.PageSize
	}
	if pageSize <= 0 || pageSize&(pageSize-1) != 0 {
		return nil, fmt.Errorf("alloc: page size %d is not a power of two", pageSize)
	}
	if size <= 0 {
		return nil, ErrBadSize
	}
	if size%pageSize != 0 {
		return nil, fmt.Errorf("alloc: pool size %d is not a multiple of page size %d", size, pageSize)
	}
	return &Allocator{
		pageSize: pageSize,
		size:     size,
		free:     []Extent{{Offset: 0, Length: size}},
		used:     make(map[int64]int64),
	}, nil
}

// Size returns the pool's total addressable size.
func (a *Allocator) Size() int64 { return a.size }

// PageSize returns the allocation granularity.
func (a *Allocator) PageSize() int64 { return a.pageSize }

// RoundUp rounds n up to the allocation granularity.
func (a *Allocator) RoundUp(n int64) int64 {
	return (n + a.pageSize - 1) &^ (a.pageSize - 1)
}

// Allocate reserves a page-rounded extent of at least size bytes and returns
// its starting offset. It fails with ErrNoSpace when no free extent is large
// enough.
func (a *Allocator) Allocate(size int64) (int64, error) {
	if size <= 0 {
		return 0, ErrBadSize
	}
	need := a.RoundUp(size)

	a.mu.Lock()
	defer a.mu.Unlock()

	// Best fit: smallest qualifying extent. The free list is offset-ordered
	// and the comparison is strict, so ties resolve to the lowest offset.
	best := -1
	for i, e := range a.free {
		if e.Length < need {
			continue
		}
		if best == -1 || e.Length < a.free[best].Length {
			best = i
		}
		if e.Length == need && best == i {
			break // exact match, nothing smaller can qualify
		}
	}
	if best == -1 {
		return 0, ErrNoSpace
	}

	e := a.free[best]
	off := e.Offset
	if e.Length == need {
		a.free = append(a.free[:best], a.free[best+1:]...)
	} else {
		a.free[best] = Extent{Offset: e.Offset + need, Length: e.Length - need}
		a.stats.Splits++
	}
	a.used[off] = need
	a.stats.AllocCalls++
	a.stats.BytesAllocated += need
	return off, nil
}

// Deallocate returns the extent starting at off to the free list, merging it
// with adjacent free extents. Offsets that are not the start of an allocated
// extent are rejected with ErrBadOffset and leave the free list untouched.
func (a *Allocator) Deallocate(off int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	length, ok := a.used[off]
	if !ok {
		return ErrBadOffset
	}
	delete(a.used, off)

	// Insertion point: first free extent at or past the released range.
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].Offset >= off })

	e := Extent{Offset: off, Length: length}
	if i > 0 && a.free[i-1].End() == e.Offset {
		e.Offset = a.free[i-1].Offset
		e.Length += a.free[i-1].Length
		i--
		a.free = append(a.free[:i], a.free[i+1:]...)
		a.stats.Coalesces++
	}
	if i < len(a.free) && e.End() == a.free[i].Offset {
		e.Length += a.free[i].Length
		a.free = append(a.free[:i], a.free[i+1:]...)
		a.stats.Coalesces++
	}

	a.free = append(a.free, Extent{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = e

	a.stats.FreeCalls++
	a.stats.BytesFreed += length
	return nil
}

// FreeBytes returns the total size of all free extents.
func (a *Allocator) FreeBytes() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n int64
	for _, e := range a.free {
		n += e.Length
	}
	return n
}

// LargestFree returns the size of the largest free extent, or zero when the
// pool is fully allocated.
func (a *Allocator) LargestFree() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n int64
	for _, e := range a.free {
		if e.Length > n {
			n = e.Length
		}
	}
	return n
}

// Extents returns offset-ordered snapshots of the free and used extent sets.
// Together they always partition the pool exactly.
func (a *Allocator) Extents() (free, used []Extent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	free = make([]Extent, len(a.free))
	copy(free, a.free)

	used = make([]Extent, 0, len(a.used))
	for off, length := range a.used {
		used = append(used, Extent{Offset: off, Length: length})
	}
	sort.Slice(used, func(i, j int) bool { return used[i].Offset < used[j].Offset })
	return free, used
}

// Stats returns a copy of the allocator's counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
