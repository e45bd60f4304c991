package gralloc

import (
	"fmt"

	"github.com/joshuapare/bufkit/internal/format"
)

// Encode flattens a valid handle into the fixed wire record so it can cross a
// process boundary. The descriptor itself travels out of band (SCM_RIGHTS or
// equivalent); the record carries its slot as an integer so the receiver can
// splice the delivered descriptor back in.
func (h *Handle) Encode() ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	b := make([]byte, format.HandleRecordSize)
	format.PutU32(b, format.OffVersion, uint32(h.version))
	format.PutU32(b, format.OffNumFDs, uint32(h.numFDs))
	format.PutU32(b, format.OffNumInts, uint32(h.numInts))
	format.PutI32(b, format.OffFD, int32(h.fd))
	format.PutU32(b, format.OffMagic, h.magic)
	format.PutU32(b, format.OffFlags, h.flags)
	format.PutU32(b, format.OffSize, uint32(h.size))
	format.PutU32(b, format.OffOffset, uint32(h.store.offset()))
	format.PutU32(b, format.OffLockState, h.lockState)
	format.PutI32(b, format.OffWriteOwner, h.writeOwner)
	format.PutI32(b, format.OffPID, h.pid)
	format.PutU32(b, format.OffKind, uint32(h.store.kind()))
	format.PutU64(b, format.OffPhysLo, h.store.phys())
	return b, nil
}

// Decode reconstructs a handle from a wire record produced by Encode. The
// record is untrusted input: its shape triple and signature are checked
// before anything else is read, and malformed records yield ErrInvalidHandle.
// The decoded handle carries no process-local mapping; Bytes returns nil
// until the holder maps it.
func Decode(b []byte) (*Handle, error) {
	if len(b) != format.HandleRecordSize {
		return nil, fmt.Errorf("%w: record length %d", ErrInvalidHandle, len(b))
	}
	if format.ReadU32(b, format.OffVersion) != format.HandleVersion ||
		format.ReadU32(b, format.OffNumFDs) != format.HandleNumFDs ||
		format.ReadU32(b, format.OffNumInts) != format.HandleNumInts {
		return nil, ErrInvalidHandle
	}
	if format.ReadU32(b, format.OffMagic) != format.HandleMagic {
		return nil, ErrInvalidHandle
	}

	kind := BackingKind(format.ReadU32(b, format.OffKind))
	off := int64(format.ReadU32(b, format.OffOffset))
	phys := format.ReadU64(b, format.OffPhysLo)

	var st store
	switch kind {
	case BackingAnonymous:
		st = anonStore{}
	case BackingPoolPrimary, BackingPoolSecondaryA, BackingPoolSecondaryB:
		pool, ok := poolForBacking(kind)
		if !ok {
			return nil, ErrInvalidHandle
		}
		st = poolStore{pool: pool, off: off, physAddr: phys}
	case BackingScanout:
		st = scanoutStore{off: off, physAddr: phys}
	default:
		return nil, ErrInvalidHandle
	}

	return &Handle{
		version:    int(format.ReadU32(b, format.OffVersion)),
		numFDs:     int(format.ReadU32(b, format.OffNumFDs)),
		numInts:    int(format.ReadU32(b, format.OffNumInts)),
		fd:         int(format.ReadI32(b, format.OffFD)),
		magic:      format.ReadU32(b, format.OffMagic),
		flags:      format.ReadU32(b, format.OffFlags),
		size:       int64(format.ReadU32(b, format.OffSize)),
		lockState:  format.ReadU32(b, format.OffLockState),
		writeOwner: format.ReadI32(b, format.OffWriteOwner),
		pid:        format.ReadI32(b, format.OffPID),
		store:      st,
	}, nil
}
