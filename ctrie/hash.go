package ctrie

import (
	"hash/maphash"

	"github.com/hideo55/go-popcount"
)

// minWidth and maxWidth bound the configurable trie fan-out exponent.
// Fan-out is 2^width; NewWithFuncs treats 0 as defaultWidth and
// silently clamps other values outside [minWidth, maxWidth].
const (
	minWidth = 1
	maxWidth = 6

	defaultWidth = 6

	// hashBits is the number of bits in the mixed hashcode that
	// addressing can consume before a trie descent has exhausted the
	// hash and must fall back to a collision bucket.
	hashBits = 32
)

// mix disperses a caller-provided hash so that hashcodes differing
// only by constant multiples at a bit position produce a bounded
// number of collisions when used as trie addressing bits.
func mix(h uint32) uint32 {
	h ^= h>>20 ^ h>>12
	return h ^ h>>7 ^ h>>4
}

// flag returns the single-bit mask identifying the branch slot that
// hashcode h occupies at level lev for a trie of the given width.
func flag(h uint32, lev, width uint) uint64 {
	bitsRemaining := width
	if remaining := hashBits - lev; remaining < bitsRemaining {
		bitsRemaining = remaining
	}
	subHash := (h >> lev) & (1<<bitsRemaining - 1)
	return uint64(1) << subHash
}

// flagPos returns both the flag for hashcode h at level lev and the
// compact array index that flag occupies within a cNode carrying the
// given bitmap.
func flagPos(h uint32, lev, width uint, bitmap uint64) (uint64, int) {
	fl := flag(h, lev, width)
	pos := int(popcount.Count(bitmap & (fl - 1)))
	return fl, pos
}

var hashSeed = maphash.MakeSeed()

// StringHash is a convenience hash function for string keys, usable
// with NewWithFuncs. It is not the hash used internally by the
// trie — mix is always applied on top of it.
func StringHash(key string) uint32 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	h.WriteString(key)
	return uint32(h.Sum64())
}

// BytesHash is a convenience hash function for []byte keys, usable
// with NewWithFuncs.
func BytesHash(key []byte) uint32 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	h.Write(key)
	return uint32(h.Sum64())
}
