package ctrie

import "testing"

func TestFlagPosDistributesAcrossWidth(t *testing.T) {
	bitmap := uint64(0)
	seen := map[uint64]bool{}
	for h := uint32(0); h < 64; h++ {
		fl := flag(h, 0, 6)
		if seen[fl] {
			continue
		}
		seen[fl] = true
		bitmap |= fl
	}
	if bitmap != ^uint64(0) {
		t.Errorf("width 6 at level 0 should reach every one of 64 slots, got bitmap %064b", bitmap)
	}
}

func TestFlagPosPopcountMatchesInsertionOrder(t *testing.T) {
	// Insert flags for subhashes 5, 1, 3 in that order into a bitmap and
	// confirm the position each occupies is its rank among set bits,
	// which is the invariant cNode.inserted relies on.
	var bitmap uint64
	order := []uint32{5, 1, 3}
	for _, h := range order {
		fl, pos := flagPos(h, 0, 6, bitmap)
		bitmap |= fl
		wantPos := 0
		for b := uint32(0); b < h; b++ {
			if bitmap&flag(b, 0, 6) != 0 {
				wantPos++
			}
		}
		if pos != wantPos {
			t.Errorf("flagPos(%d) = %d, want %d", h, pos, wantPos)
		}
	}
}

func TestFlagPosNarrowWidthClampsSubHashBits(t *testing.T) {
	// At width 1, only bit 0 of the shifted hash can select a slot, so
	// there are exactly two distinct flags regardless of level.
	seen := map[uint64]bool{}
	for h := uint32(0); h < 16; h++ {
		seen[flag(h, 0, 1)] = true
	}
	if len(seen) != 2 {
		t.Errorf("width 1 should produce 2 distinct flags, got %d", len(seen))
	}
}

func TestMixIsDeterministic(t *testing.T) {
	for _, h := range []uint32{0, 1, 42, 0xdeadbeef, 0xffffffff} {
		if mix(h) != mix(h) {
			t.Errorf("mix(%d) not deterministic", h)
		}
	}
}

func TestMixSpreadsAdjacentHashes(t *testing.T) {
	// Adjacent integer hashes should not collide in their low bits after
	// mixing, or every sequential-key workload would pile into one slot.
	seen := map[uint32]bool{}
	for h := uint32(0); h < 256; h++ {
		low := mix(h) & 0x3f
		seen[low] = true
	}
	if len(seen) < 32 {
		t.Errorf("mix distributed 256 sequential hashes into only %d of 64 low-bit buckets", len(seen))
	}
}

func TestStringHashAndBytesHashAgreeOnEquivalentInput(t *testing.T) {
	s := "the quick brown fox"
	if StringHash(s) != BytesHash([]byte(s)) {
		t.Errorf("StringHash and BytesHash disagree on equivalent input")
	}
}

func TestStringHashDistinguishesDistinctStrings(t *testing.T) {
	if StringHash("abc") == StringHash("abd") {
		t.Errorf("StringHash produced the same hash for distinct strings (possible but vanishingly unlikely for this seed)")
	}
}
