package ignite

import "github.com/cespare/xxhash/v2"

// HashKeyBytes derives a deterministic hashCode from serialized key
// bytes, per spec §4.4 ("for cache-key objects, hash is deterministic
// from key content"). xxhash is already a direct dependency of the
// teacher's journal package for checksums; reused here for the same
// reason (fast, non-cryptographic, good distribution), promoted from
// an indirect msgpack dependency to a direct one.
func (c *Context) HashKeyBytes(keyBytes []byte) int32 {
	return int32(uint32(xxhash.Sum64(keyBytes)))
}
