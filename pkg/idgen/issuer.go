package idgen

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Bit layout of an event id, most significant bits first:
// 41 bits of milliseconds since Epoch, 10 bits of worker id, 12 bits of
// sequence. The top bit stays clear so ids fit in a signed INT8 column.
const (
	workerBits   = 10
	sequenceBits = 12

	// MaxWorkerID is the largest worker id the layout can carry
	MaxWorkerID = (1 << workerBits) - 1

	maxSequence = (1 << sequenceBits) - 1

	timestampShift = workerBits + sequenceBits
	workerShift    = sequenceBits
)

// Epoch is the custom zero point for the embedded timestamp:
// 2023-01-01T00:00:00Z in epoch milliseconds.
const Epoch int64 = 1672531200000

// ErrSequenceExhausted is returned when more than 4096 ids are requested
// within one clamped millisecond. Callers retry after a short sleep.
var ErrSequenceExhausted = errors.New("id sequence exhausted for current millisecond")

// Issuer issues strictly monotonic 64-bit event ids for one process.
// Uniqueness across processes relies on each deployment using a distinct
// worker id; ordering across processes is by embedded timestamp only.
type Issuer struct {
	mu       sync.Mutex
	workerID uint64

	// hybrid clock: wall reading taken once, advanced monotonically
	startWallMS int64
	start       time.Time

	lastMS   int64
	sequence uint64
}

// NewIssuer returns an issuer stamping ids with the given worker id (0-1023)
func NewIssuer(workerID int) (*Issuer, error) {
	if workerID < 0 || workerID > MaxWorkerID {
		return nil, fmt.Errorf("worker id %d out of range 0-%d", workerID, MaxWorkerID)
	}
	now := time.Now()
	if now.UnixMilli() < Epoch {
		return nil, fmt.Errorf("system clock %s predates id epoch", now.UTC().Format(time.RFC3339))
	}
	return &Issuer{
		workerID:    uint64(workerID),
		startWallMS: now.UnixMilli(),
		start:       now,
	}, nil
}

// Issue returns the next id. Ids are strictly increasing across concurrent
// callers in this process; the embedded timestamp never moves backward even
// when the wall clock does.
func (i *Issuer) Issue() (uint64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	ms := i.startWallMS + time.Since(i.start).Milliseconds()
	if ms < i.lastMS {
		ms = i.lastMS
	}

	if ms == i.lastMS {
		if i.sequence >= maxSequence {
			return 0, ErrSequenceExhausted
		}
		i.sequence++
	} else {
		i.lastMS = ms
		i.sequence = 0
	}

	return uint64(ms-Epoch)<<timestampShift | i.workerID<<workerShift | i.sequence, nil
}

// TimestampOf extracts the embedded wall-clock time from an id as epoch
// milliseconds
func TimestampOf(id uint64) int64 {
	return Epoch + int64(id>>timestampShift)
}

// LowerBoundForTime returns the smallest id whose embedded timestamp is not
// before t. Every id issued at or after t compares greater or equal, which
// makes the result usable as a range-scan cutoff.
func LowerBoundForTime(t time.Time) uint64 {
	ms := t.UnixMilli() - Epoch
	if ms < 0 {
		return 0
	}
	return uint64(ms) << timestampShift
}
