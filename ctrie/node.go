package ctrie

// entry is a single key/value pair stored in the trie. It is
// immutable; every mutation produces a new entry rather than editing
// one in place.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// branch is either an *iNode[K, V] or an sNode[K, V]. It plays the
// role of a tagged union; dispatch happens by type switch, never by
// virtual call, matching the taxonomy in the design notes.
type branch any

// sNode is the storage-leaf contract. A leaf holds one or more
// key/value pairs that all share the same mixed hashcode; concrete
// implementations are singletonSNode (one pair) and multiSNode
// (a collision bucket of two or more).
type sNode[K comparable, V any] interface {
	// hash returns the shared mixed hashcode of every entry the leaf
	// holds.
	hash() uint32

	// get returns the value associated with k, if any.
	get(k K, eq func(K, K) bool) (V, bool)

	// put returns a leaf with k mapped to v, replacing k's previous
	// mapping if there was one.
	put(k K, v V, eq func(K, K) bool) sNode[K, V]

	// removed returns a leaf with k gone, or nil if removing k would
	// leave the leaf empty (the caller must interpret nil as "this
	// slot vanishes").
	removed(k K, eq func(K, K) bool) sNode[K, V]

	// tombed returns the tNode form of this leaf, carrying the same
	// payload, marking the subtree it occupies for cleanup.
	tombed() tNode[K, V]

	// next returns the entry following cur, or the first entry if cur
	// is nil. It returns (zero, false) if cur was the last entry, and
	// (zero, false) if cur is non-nil but not found in this leaf.
	next(cur *entry[K, V], eq func(K, K) bool) (entry[K, V], bool)
}

// tNode is a tombed leaf: it marks that the subtree it occupies has
// been logically removed and obligates any thread that observes it to
// help contract the trie before proceeding.
type tNode[K comparable, V any] interface {
	// untombed returns a fresh sNode carrying the same payload as this
	// tomb, resurrecting the subtree.
	untombed() sNode[K, V]
}

// singletonSNode is a leaf holding exactly one key/value pair.
type singletonSNode[K comparable, V any] struct {
	h uint32
	e entry[K, V]
}

func (s *singletonSNode[K, V]) hash() uint32 { return s.h }

func (s *singletonSNode[K, V]) get(k K, eq func(K, K) bool) (V, bool) {
	if eq(s.e.key, k) {
		return s.e.value, true
	}
	var zero V
	return zero, false
}

func (s *singletonSNode[K, V]) put(k K, v V, eq func(K, K) bool) sNode[K, V] {
	if eq(s.e.key, k) {
		return &singletonSNode[K, V]{h: s.h, e: entry[K, V]{key: k, value: v}}
	}
	return &multiSNode[K, V]{h: s.h, entries: []entry[K, V]{s.e, {key: k, value: v}}}
}

func (s *singletonSNode[K, V]) removed(k K, eq func(K, K) bool) sNode[K, V] {
	if eq(s.e.key, k) {
		return nil
	}
	return s
}

func (s *singletonSNode[K, V]) tombed() tNode[K, V] {
	return &singletonTNode[K, V]{h: s.h, e: s.e}
}

func (s *singletonSNode[K, V]) next(cur *entry[K, V], eq func(K, K) bool) (entry[K, V], bool) {
	if cur == nil {
		return s.e, true
	}
	var zero entry[K, V]
	return zero, false
}

// singletonTNode is the tombed form of a singletonSNode.
type singletonTNode[K comparable, V any] struct {
	h uint32
	e entry[K, V]
}

func (t *singletonTNode[K, V]) untombed() sNode[K, V] {
	return &singletonSNode[K, V]{h: t.h, e: t.e}
}

// multiSNode is a leaf holding several key/value pairs that share a
// hashcode, i.e. a collision bucket. Entries are kept in insertion
// order; that order is observable only via the iterator and is
// undefined across concurrent operations.
type multiSNode[K comparable, V any] struct {
	h       uint32
	entries []entry[K, V]
}

func (s *multiSNode[K, V]) hash() uint32 { return s.h }

func (s *multiSNode[K, V]) indexOf(k K, eq func(K, K) bool) int {
	for i := range s.entries {
		if eq(s.entries[i].key, k) {
			return i
		}
	}
	return -1
}

func (s *multiSNode[K, V]) get(k K, eq func(K, K) bool) (V, bool) {
	if i := s.indexOf(k, eq); i >= 0 {
		return s.entries[i].value, true
	}
	var zero V
	return zero, false
}

func (s *multiSNode[K, V]) put(k K, v V, eq func(K, K) bool) sNode[K, V] {
	i := s.indexOf(k, eq)
	if i < 0 {
		entries := make([]entry[K, V], len(s.entries)+1)
		copy(entries, s.entries)
		entries[len(s.entries)] = entry[K, V]{key: k, value: v}
		return &multiSNode[K, V]{h: s.h, entries: entries}
	}
	entries := make([]entry[K, V], len(s.entries))
	copy(entries, s.entries)
	entries[i] = entry[K, V]{key: k, value: v}
	return &multiSNode[K, V]{h: s.h, entries: entries}
}

func (s *multiSNode[K, V]) removed(k K, eq func(K, K) bool) sNode[K, V] {
	i := s.indexOf(k, eq)
	if i < 0 {
		return s
	}
	if len(s.entries) == 2 {
		return &singletonSNode[K, V]{h: s.h, e: s.entries[(i+1)%2]}
	}
	entries := make([]entry[K, V], len(s.entries)-1)
	copy(entries, s.entries[:i])
	copy(entries[i:], s.entries[i+1:])
	return &multiSNode[K, V]{h: s.h, entries: entries}
}

func (s *multiSNode[K, V]) tombed() tNode[K, V] {
	entries := make([]entry[K, V], len(s.entries))
	copy(entries, s.entries)
	return &multiTNode[K, V]{h: s.h, entries: entries}
}

func (s *multiSNode[K, V]) next(cur *entry[K, V], eq func(K, K) bool) (entry[K, V], bool) {
	if cur == nil {
		return s.entries[0], true
	}
	for i := range s.entries {
		if eq(s.entries[i].key, cur.key) {
			if i+1 < len(s.entries) {
				return s.entries[i+1], true
			}
			var zero entry[K, V]
			return zero, false
		}
	}
	var zero entry[K, V]
	return zero, false
}

// multiTNode is the tombed form of a multiSNode.
type multiTNode[K comparable, V any] struct {
	h       uint32
	entries []entry[K, V]
}

func (t *multiTNode[K, V]) untombed() sNode[K, V] {
	entries := make([]entry[K, V], len(t.entries))
	copy(entries, t.entries)
	return &multiSNode[K, V]{h: t.h, entries: entries}
}

// mainNode is the payload of an iNode: either a cNode or a tNode.
// Exactly one of the two fields is set.
type mainNode[K comparable, V any] struct {
	cn *cNode[K, V]
	tn tNode[K, V]
}

// cNode is a branching node: a bitmap of occupied slots plus a
// compact array of branches whose length equals popcount(bitmap).
// cNodes are immutable; every mutating operation below returns a new
// cNode.
type cNode[K comparable, V any] struct {
	bitmap uint64
	arr    []branch
}

// newCollisionCNode builds the cNode that results from two sNodes
// whose flags collide at level lev, recursing to further levels (via
// intermediate iNodes) until their flags separate or the hash is
// exhausted, in which case a multiSNode holds both.
func newCollisionCNode[K comparable, V any](x, y sNode[K, V], lev, width uint) *cNode[K, V] {
	xh, yh := x.hash(), y.hash()
	if lev >= hashBits {
		merged := &multiSNode[K, V]{h: xh}
		merged.entries = appendAllEntries(merged.entries, x)
		merged.entries = appendAllEntries(merged.entries, y)
		xf := flag(xh, 0, width)
		return &cNode[K, V]{bitmap: xf, arr: []branch{merged}}
	}
	xf, yf := flag(xh, lev, width), flag(yh, lev, width)
	if xf != yf {
		if xf < yf {
			return &cNode[K, V]{bitmap: xf | yf, arr: []branch{x, y}}
		}
		return &cNode[K, V]{bitmap: xf | yf, arr: []branch{y, x}}
	}
	sub := newCollisionCNode[K, V](x, y, lev+width, width)
	in := &iNode[K, V]{}
	in.store(&mainNode[K, V]{cn: sub})
	return &cNode[K, V]{bitmap: xf, arr: []branch{in}}
}

// appendAllEntries flattens sn's entries onto dst; it is only ever
// called with singleton or multi sNodes that share a hash, at the
// point where the hash space has been exhausted and a shared
// collision bucket must hold everything below this level.
func appendAllEntries[K comparable, V any](dst []entry[K, V], sn sNode[K, V]) []entry[K, V] {
	switch sn := sn.(type) {
	case *singletonSNode[K, V]:
		return append(dst, sn.e)
	case *multiSNode[K, V]:
		return append(dst, sn.entries...)
	default:
		panic("ctrie: unreachable sNode variant")
	}
}

// inserted returns a copy of c with br inserted at pos and fl set in
// the bitmap. The flag must not already be set.
func (c *cNode[K, V]) inserted(fl uint64, pos int, br branch) *cNode[K, V] {
	arr := make([]branch, len(c.arr)+1)
	copy(arr, c.arr[:pos])
	arr[pos] = br
	copy(arr[pos+1:], c.arr[pos:])
	return &cNode[K, V]{bitmap: c.bitmap | fl, arr: arr}
}

// updated returns a copy of c with the branch at pos replaced by br.
func (c *cNode[K, V]) updated(pos int, br branch) *cNode[K, V] {
	arr := make([]branch, len(c.arr))
	copy(arr, c.arr)
	arr[pos] = br
	return &cNode[K, V]{bitmap: c.bitmap, arr: arr}
}

// removed returns a copy of c with the branch at pos removed and fl
// cleared from the bitmap.
func (c *cNode[K, V]) removed(fl uint64, pos int) *cNode[K, V] {
	arr := make([]branch, len(c.arr)-1)
	copy(arr, c.arr[:pos])
	copy(arr[pos:], c.arr[pos+1:])
	return &cNode[K, V]{bitmap: c.bitmap ^ fl, arr: arr}
}

// copied returns a shallow clone of c, used as a local, unpublished
// scratch copy during compression.
func (c *cNode[K, V]) copied() *cNode[K, V] {
	arr := make([]branch, len(c.arr))
	copy(arr, c.arr)
	return &cNode[K, V]{bitmap: c.bitmap, arr: arr}
}
