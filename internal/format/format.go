// Package format defines the flattened buffer-handle record layout and the
// little-endian helpers used to read and write it. The record is what crosses
// a process boundary; the shape triple at its head (version, descriptor count,
// integer count) is what handle validation checks before trusting anything
// else in the record.
package format

import "encoding/binary"

const (
	// HandleMagic is the signature every live handle carries. It is cleared
	// when the handle is destroyed so stale records fail validation.
	HandleMagic = 0x3141592

	// HandleNumFDs and HandleNumInts describe the record shape: one file
	// descriptor and ten 32-bit integer fields. A record whose counts differ
	// was not produced by this package.
	HandleNumFDs  = 1
	HandleNumInts = 10

	// HandleVersion doubles as the record size in bytes, the same trick the
	// native handle layout uses (version == sizeof).
	HandleVersion = HandleRecordSize

	// HandleRecordSize is the total encoded size: the three shape words, the
	// descriptor, and the integer fields.
	HandleRecordSize = 12 + 4*(HandleNumFDs+HandleNumInts)
)

// Field offsets within the encoded record.
const (
	OffVersion    = 0
	OffNumFDs     = 4
	OffNumInts    = 8
	OffFD         = 12
	OffMagic      = 16
	OffFlags      = 20
	OffSize       = 24
	OffOffset     = 28
	OffLockState  = 32
	OffWriteOwner = 36
	OffPID        = 40
	OffKind       = 44
	OffPhysLo     = 48
	OffPhysHi     = 52
)

// PutU32 writes a uint32 into b at off, little-endian.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutI32 writes an int32 into b at off, little-endian.
func PutI32(b []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(b[off:off+4], uint32(v))
}

// ReadU32 reads a little-endian uint32 from b at off.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadI32 reads a little-endian int32 from b at off.
func ReadI32(b []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(b[off : off+4]))
}

// PutU64 writes a uint64 into b at off as two little-endian words.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU64 reads a little-endian uint64 from b at off.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}
