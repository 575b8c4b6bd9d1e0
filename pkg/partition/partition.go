package partition

import (
	"github.com/stgy/notifier/pkg/types"
)

// Hash maps an affinity key to a partition in [0, partitions).
// The key is read as its hexadecimal digits (0-9, a-f, A-F); any other
// rune is skipped. The result equals interpreting the kept digit string
// as a base-16 number and reducing it mod partitions, folded one digit
// at a time so arbitrarily long keys never overflow.
func Hash(key string, partitions int) int {
	if partitions <= 0 {
		return 0
	}
	v := 0
	for i := 0; i < len(key); i++ {
		d, ok := hexValue(key[i])
		if !ok {
			continue
		}
		v = (v*16 + d) % partitions
	}
	return v
}

func hexValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// ForPayload returns the partition an event belongs to, hashing the
// payload's recipient affinity key
func ForPayload(p types.Payload, partitions int) int {
	return Hash(p.AffinityKey(), partitions)
}

// OwnerOf returns the index of the worker that owns partition p under a
// fixed modulo assignment
func OwnerOf(p, workers int) int {
	if workers <= 0 {
		return 0
	}
	return p % workers
}

// Owned enumerates the partitions assigned to worker w, in ascending order
func Owned(w, workers, partitions int) []int {
	if workers <= 0 || w < 0 || w >= workers {
		return nil
	}
	var owned []int
	for p := w; p < partitions; p += workers {
		owned = append(owned, p)
	}
	return owned
}
