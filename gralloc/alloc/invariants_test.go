package alloc

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// checkPartition asserts the core invariant: the free and used extent sets,
// merged in offset order, cover the pool exactly with no overlap and no gap.
func checkPartition(t *testing.T, a *Allocator) {
	t.Helper()

	free, used := a.Extents()
	all := make([]Extent, 0, len(free)+len(used))
	all = append(all, free...)
	all = append(all, used...)
	sort.Slice(all, func(i, j int) bool { return all[i].Offset < all[j].Offset })

	var cursor int64
	for _, e := range all {
		require.Equal(t, cursor, e.Offset, "extents must be contiguous (gap or overlap at %#x)", cursor)
		require.Positive(t, e.Length)
		cursor = e.End()
	}
	require.Equal(t, a.Size(), cursor, "extents must cover the whole pool")

	// Free neighbors must have been coalesced.
	for i := 1; i < len(free); i++ {
		require.Less(t, free[i-1].End(), free[i].Offset,
			"adjacent free extents %v and %v were not coalesced", free[i-1], free[i])
	}
}

// Test_Property_RandomAllocFree drives a random alloc/free sequence with a
// fixed seed and validates the partition invariant after every operation.
func Test_Property_RandomAllocFree(t *testing.T) {
	a := newTestAllocator(t, 64)
	rng := rand.New(rand.NewSource(42)) // fixed seed for reproducibility

	live := make([]int64, 0, 64)
	for i := 0; i < 500; i++ {
		if rng.Intn(2) == 0 || len(live) == 0 {
			size := int64(1 + rng.Intn(6*testPage))
			off, err := a.Allocate(size)
			if err != nil {
				require.ErrorIs(t, err, ErrNoSpace, "step %d", i)
			} else {
				require.Zero(t, off%testPage, "step %d: unaligned offset", i)
				live = append(live, off)
			}
		} else {
			j := rng.Intn(len(live))
			require.NoError(t, a.Deallocate(live[j]), "step %d", i)
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
		}
		checkPartition(t, a)
	}

	// Drain and confirm the pool collapses back to a single free extent.
	for _, off := range live {
		require.NoError(t, a.Deallocate(off))
	}
	free, used := a.Extents()
	require.Empty(t, used)
	require.Len(t, free, 1)
	require.Equal(t, a.Size(), free[0].Length)
}

// Test_Property_ReturnedExtentCoversRequest confirms the recorded extent is
// always at least the page-rounded request.
func Test_Property_ReturnedExtentCoversRequest(t *testing.T) {
	a := newTestAllocator(t, 32)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		size := int64(1 + rng.Intn(3*testPage))
		off, err := a.Allocate(size)
		if err != nil {
			break
		}
		_, used := a.Extents()
		found := false
		for _, e := range used {
			if e.Offset == off {
				found = true
				require.GreaterOrEqual(t, e.Length, a.RoundUp(size))
			}
		}
		require.True(t, found)
	}
}
