package gralloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/bufkit/internal/format"
)

func TestValidate_AcceptsLiveHandle(t *testing.T) {
	h := newHandle(7, testPage, FlagContiguous,
		poolStore{pool: PoolPrimary, off: testPage}, make([]byte, testPage))

	require.NoError(t, h.Validate())
	assert.Equal(t, BackingPoolPrimary, h.Kind())
	assert.Equal(t, int64(testPage), h.Offset())
	assert.Equal(t, int64(testPage), h.Size())
	assert.True(t, h.Contiguous())
	assert.Equal(t, 7, h.FD())
}

func TestValidate_RejectsGarbage(t *testing.T) {
	var nilHandle *Handle
	require.ErrorIs(t, nilHandle.Validate(), ErrInvalidHandle)

	// Zero value: wrong shape, no magic.
	require.ErrorIs(t, (&Handle{}).Validate(), ErrInvalidHandle)

	// Right magic but wrong shape descriptor.
	h := newHandle(-1, testPage, 0, anonStore{}, nil)
	h.numInts++
	require.ErrorIs(t, h.Validate(), ErrInvalidHandle)

	// Right shape but cleared magic.
	h = newHandle(-1, testPage, 0, anonStore{}, nil)
	h.magic = 0
	require.ErrorIs(t, h.Validate(), ErrInvalidHandle)
}

func TestValidate_FailsAfterDestruction(t *testing.T) {
	h := newHandle(-1, testPage, 0, anonStore{}, make([]byte, testPage))
	require.NoError(t, h.Validate())

	h.invalidate()
	require.ErrorIs(t, h.Validate(), ErrInvalidHandle)
	assert.Equal(t, -1, h.FD())
	assert.Nil(t, h.Bytes())
}

func TestWire_RoundTrip(t *testing.T) {
	h := newHandle(9, 2*testPage, FlagContiguous,
		poolStore{pool: PoolSecondaryB, off: 5 * testPage, physAddr: 0xB0005000}, nil)
	h.lockState = LockStateMapped

	b, err := h.Encode()
	require.NoError(t, err)
	require.Len(t, b, format.HandleRecordSize)

	got, err := Decode(b)
	require.NoError(t, err)
	require.NoError(t, got.Validate())

	assert.Equal(t, BackingPoolSecondaryB, got.Kind())
	assert.Equal(t, int64(5*testPage), got.Offset())
	assert.Equal(t, uint64(0xB0005000), got.Phys())
	assert.Equal(t, int64(2*testPage), got.Size())
	assert.Equal(t, LockStateMapped, got.LockState())
	assert.Equal(t, h.PID(), got.PID())
	assert.Equal(t, 9, got.FD())
	assert.Nil(t, got.Bytes(), "decoded handles carry no local mapping")
}

func TestWire_RejectsMalformedRecords(t *testing.T) {
	h := newHandle(-1, testPage, 0, anonStore{}, nil)
	b, err := h.Encode()
	require.NoError(t, err)

	// Truncated record.
	_, err = Decode(b[:len(b)-1])
	require.ErrorIs(t, err, ErrInvalidHandle)

	// Corrupted magic.
	bad := append([]byte(nil), b...)
	format.PutU32(bad, format.OffMagic, 0xDEAD)
	_, err = Decode(bad)
	require.ErrorIs(t, err, ErrInvalidHandle)

	// Unknown backing kind.
	bad = append([]byte(nil), b...)
	format.PutU32(bad, format.OffKind, 99)
	_, err = Decode(bad)
	require.ErrorIs(t, err, ErrInvalidHandle)

	// Arbitrary junk.
	junk := make([]byte, format.HandleRecordSize)
	for i := range junk {
		junk[i] = byte(i * 7)
	}
	_, err = Decode(junk)
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestWire_EncodingDestroyedHandleFails(t *testing.T) {
	h := newHandle(-1, testPage, 0, anonStore{}, nil)
	h.invalidate()

	_, err := h.Encode()
	require.ErrorIs(t, err, ErrInvalidHandle)
}
