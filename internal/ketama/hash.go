// Package ketama implements Ketama consistent hashing (node locator ring
// construction and lookup) plus the set of fast hash algorithms the client
// can select for non-Ketama routing.
package ketama

import (
	"crypto/md5"
	"encoding/binary"
	"hash/crc32"
	"hash/fnv"

	"github.com/zeebo/xxh3"
)

// HashAlgorithm is a key -> uint32 hash function used outside the Ketama
// ring (for the array locator, and as a general-purpose fast hash).
type HashAlgorithm func(key string) uint32

// Native is the fast default hash, backed by github.com/zeebo/xxh3.
func Native(key string) uint32 {
	return uint32(xxh3.HashString(key))
}

// FNV1_32 is the standard (non-avalanching) 32-bit FNV-1 hash.
func FNV1_32(key string) uint32 {
	h := fnv.New32()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}

// FNV1A_32 is the 32-bit FNV-1a hash.
func FNV1A_32(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}

// CRC is IEEE CRC-32, matching memcached's classic CRC-based client hash.
func CRC(key string) uint32 {
	return crc32.ChecksumIEEE([]byte(key))
}

// MD5Digest returns the raw 16-byte MD5 digest of key, exported so ring
// construction and tests can both reach the exact bytes Ketama hashes.
func MD5Digest(key string) [md5.Size]byte {
	return md5.Sum([]byte(key))
}

// KetamaPoints decomposes a 16-byte MD5 digest into its four 32-bit
// ring points, reading little-endian words at offsets 0, 4, 8, and 12. This
// byte order is protocol-critical: it must match reference memcached
// clients (spymemcached, libmemcached) exactly, or routing silently
// diverges from every other client talking to the same server pool.
func KetamaPoints(digest [md5.Size]byte) [4]uint32 {
	return [4]uint32{
		binary.LittleEndian.Uint32(digest[0:4]),
		binary.LittleEndian.Uint32(digest[4:8]),
		binary.LittleEndian.Uint32(digest[8:12]),
		binary.LittleEndian.Uint32(digest[12:16]),
	}
}

// KetamaHash hashes a key directly to its first Ketama point, the value
// used to locate a key's position on the ring (as opposed to a node's
// repeated ring points, which use KetamaPoints on "nodeKey-i").
func KetamaHash(key string) uint32 {
	return KetamaPoints(MD5Digest(key))[0]
}
