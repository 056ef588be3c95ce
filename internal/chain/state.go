// state.go - On-chain pool account parsing and root-ring semantics.
//
// The pool account is a fixed 1072-byte blob:
//
//	[0:8]       discriminator, u64 little-endian
//	[8:40]      current root
//	[40:1064]   ring of the 32 most recent roots
//	[1064:1068] next ring write index, u32 little-endian
//	[1068:1072] leaf count, u32 little-endian
//
// Every deposit writes the new root both into current root and into the ring
// slot at the write index, then advances the index mod 32. A root therefore
// survives 31 subsequent inserts; the 32nd overwrites its slot, and proofs
// against it must be rebuilt on a fresh root.
package chain

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/errs"
)

const (
	// PoolStateLen is the exact account blob size; anything else is rejected.
	PoolStateLen = 1072
	// RootRingSize is the number of historical roots the chain retains.
	RootRingSize = 32
	// AgeEvicted is the age reported for roots that are no longer (or were
	// never) in the ring.
	AgeEvicted = RootRingSize
	// DefaultExpiryThreshold marks roots within this many inserts of
	// eviction as near expiry.
	DefaultExpiryThreshold = 5
)

// PoolState is the parsed pool account.
type PoolState struct {
	Discriminator  uint64
	CurrentRoot    [32]byte
	Roots          [RootRingSize][32]byte
	NextWriteIndex uint32
	LeafCount      uint32
}

// RootStatus is the verdict on a proposed proof root. Age counts inserts
// since the root was written: 0 is the current root, RootRingSize-1 is one
// insert away from eviction, AgeEvicted means unusable.
type RootStatus struct {
	Valid     bool
	IsCurrent bool
	RingIndex int // -1 when the root is not in the ring
	Age       int
}

// ParsePoolState decodes a pool account blob. The length must be exactly
// PoolStateLen and the ring index must address a ring slot.
func ParsePoolState(data []byte) (*PoolState, error) {
	if len(data) != PoolStateLen {
		return nil, errors.Wrapf(errs.ErrMalformedInput, "chain: pool state is %d bytes, want %d", len(data), PoolStateLen)
	}
	s := &PoolState{
		Discriminator:  binary.LittleEndian.Uint64(data[0:8]),
		NextWriteIndex: binary.LittleEndian.Uint32(data[1064:1068]),
		LeafCount:      binary.LittleEndian.Uint32(data[1068:1072]),
	}
	copy(s.CurrentRoot[:], data[8:40])
	for i := 0; i < RootRingSize; i++ {
		copy(s.Roots[i][:], data[40+32*i:72+32*i])
	}
	if s.NextWriteIndex >= RootRingSize {
		return nil, errors.Wrapf(errs.ErrMalformedInput, "chain: ring index %d out of range", s.NextWriteIndex)
	}
	return s, nil
}

// Encode serializes the state back to its 1072-byte account form.
func (s *PoolState) Encode() []byte {
	out := make([]byte, PoolStateLen)
	binary.LittleEndian.PutUint64(out[0:8], s.Discriminator)
	copy(out[8:40], s.CurrentRoot[:])
	for i := 0; i < RootRingSize; i++ {
		copy(out[40+32*i:72+32*i], s.Roots[i][:])
	}
	binary.LittleEndian.PutUint32(out[1064:1068], s.NextWriteIndex)
	binary.LittleEndian.PutUint32(out[1068:1072], s.LeafCount)
	return out
}

// Initialized reports whether the account has been set up on chain.
func (s *PoolState) Initialized() bool {
	return s.Discriminator != 0
}

// slotWritten reports whether ring slot i has ever held a root. Slots fill
// in order 0..31 on the first 32 inserts, so the leaf count decides.
func (s *PoolState) slotWritten(i int) bool {
	return s.LeafCount >= RootRingSize || uint32(i) < s.LeafCount
}

// Age returns how many inserts ago ring slot i was written: 0 for the most
// recent slot through RootRingSize-1, or AgeEvicted for slots never written.
func (s *PoolState) Age(ringIndex int) int {
	if ringIndex < 0 || ringIndex >= RootRingSize || !s.slotWritten(ringIndex) {
		return AgeEvicted
	}
	age := (int(s.NextWriteIndex) - 1 - ringIndex) % RootRingSize
	if age < 0 {
		age += RootRingSize
	}
	return age
}

// RootStatus locates root. The current root short-circuits with age 0; any
// other value is searched in the ring from newest to oldest, skipping slots
// that were never written (their zero contents must not validate a zero
// root on a fresh pool).
func (s *PoolState) RootStatus(root [32]byte) RootStatus {
	if bytes.Equal(root[:], s.CurrentRoot[:]) {
		ringIndex := -1
		if s.LeafCount > 0 {
			ringIndex = (int(s.NextWriteIndex) + RootRingSize - 1) % RootRingSize
		}
		return RootStatus{Valid: true, IsCurrent: true, RingIndex: ringIndex, Age: 0}
	}
	for age := 0; age < RootRingSize; age++ {
		i := (int(s.NextWriteIndex) - 1 - age + RootRingSize) % RootRingSize
		if !s.slotWritten(i) {
			break
		}
		if bytes.Equal(root[:], s.Roots[i][:]) {
			return RootStatus{Valid: true, RingIndex: i, Age: age}
		}
	}
	return RootStatus{Valid: false, RingIndex: -1, Age: AgeEvicted}
}

// NearExpiry reports whether ring slot ringIndex is within threshold inserts
// of eviction (age >= RootRingSize - threshold). Evicted slots count as
// expired.
func (s *PoolState) NearExpiry(ringIndex, threshold int) bool {
	return s.Age(ringIndex) >= RootRingSize-threshold
}

// CheckRoot validates a proof root against the ledger. Absent or evicted
// roots return ErrExpiredRoot; the returned status carries age and
// near-expiry information for roots that are still usable.
func CheckRoot(s *PoolState, root [32]byte, threshold int) (RootStatus, error) {
	if threshold < 1 || threshold >= RootRingSize {
		return RootStatus{}, errors.Wrapf(errs.ErrMalformedInput, "chain: expiry threshold %d out of range", threshold)
	}
	status := s.RootStatus(root)
	if !status.Valid {
		return status, errors.Wrap(errs.ErrExpiredRoot, "chain: root not present in the ledger ring")
	}
	return status, nil
}
