package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over values of type T
type ring[T any] struct {
	hashRing *treemap.Map

	// Cached, since treemap.Map.Min() is O(log n)
	minEntryValue T
}

// newRing returns a consistent hash ring with replicationFactor points per
// entry. Entry keys only position the points; shard returns entry values.
func newRing[T any](entries map[string]T, replicationFactor uint) *ring[T] {
	hashRing := treemap.NewWith(utils.Int64Comparator)
	for k, v := range entries {
		keyHash, _ := murmur3.Sum128([]byte(k))

		var seed [8 + 4]byte
		binary.LittleEndian.PutUint64(seed[:8], keyHash)
		for i := uint32(0); i < uint32(replicationFactor); i++ {
			binary.LittleEndian.PutUint32(seed[8:], i)

			hash, _ := murmur3.Sum128(seed[:])
			hashRing.Put(int64(hash), v)
		}
	}

	r := &ring[T]{hashRing: hashRing}
	if _, minEntryValue := hashRing.Min(); minEntryValue != nil {
		r.minEntryValue = minEntryValue.(T)
	}
	return r
}

// shard consistently hashes key onto an entry value
func (r *ring[T]) shard(key []byte) T {
	raw, _ := murmur3.Sum128(key)
	if _, shard := r.hashRing.Ceiling(int64(raw)); shard != nil {
		return shard.(T)
	}
	return r.minEntryValue
}
