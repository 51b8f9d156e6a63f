package ctrie

// resultS is the outcome of one attempt at ilookupFirst/ilookupNext:
// the same {FOUND, NOTFOUND, RESTART} discipline as result[V], but
// carrying a leaf rather than a value.
type resultS[K comparable, V comparable] struct {
	kind resultKind
	leaf sNode[K, V]
}

// Iterator yields the entries of a Map in subhash-ascending order —
// a deterministic but hash-driven order, not insertion order. It
// tolerates concurrent mutation with no snapshot guarantee: an entry
// present throughout the traversal is returned, an entry inserted or
// removed during the traversal may or may not be, and no entry is
// returned twice unless it is removed and reinserted while the
// iterator is live.
type Iterator[K comparable, V comparable] struct {
	m *Map[K, V]

	nextLeaf sNode[K, V]  // leaf lookupNext will resume from
	nextSeen *entry[K, V] // last entry consumed from nextLeaf

	pending    entry[K, V]
	hasPending bool

	cur      entry[K, V]
	hasCur   bool
}

// Iterator returns an iterator over the entries of m.
func (m *Map[K, V]) Iterator() *Iterator[K, V] {
	it := &Iterator[K, V]{m: m}
	it.advance()
	return it
}

// Next advances the iterator and reports whether an entry is
// available. Call Key and Value to read it.
func (it *Iterator[K, V]) Next() bool {
	if !it.hasPending {
		it.hasCur = false
		return false
	}
	it.cur = it.pending
	it.hasCur = true
	it.advance()
	return true
}

// Key returns the key of the entry most recently produced by Next.
func (it *Iterator[K, V]) Key() K {
	if !it.hasCur {
		var zero K
		return zero
	}
	return it.cur.key
}

// Value returns the value of the entry most recently produced by
// Next.
func (it *Iterator[K, V]) Value() V {
	if !it.hasCur {
		var zero V
		return zero
	}
	return it.cur.value
}

// SetValue overwrites the mapping for the entry most recently
// produced by Next, through a full Set on the underlying map. It does
// not retroactively change what this traversal has already returned
// or will return — the iterator is weakly consistent, not a live
// view.
func (it *Iterator[K, V]) SetValue(v V) {
	if !it.hasCur {
		return
	}
	it.m.Set(it.cur.key, v)
	it.cur.value = v
}

func (it *Iterator[K, V]) advance() {
	if it.nextLeaf == nil {
		it.nextLeaf = it.m.lookupNext(nil)
	}
	if it.nextLeaf != nil {
		if e, ok := it.nextLeaf.next(it.nextSeen, it.m.eq); ok {
			it.pending = e
			it.nextSeen = &e
			it.hasPending = true
			return
		}
		it.nextLeaf = it.m.lookupNext(it.nextLeaf)
		if it.nextLeaf != nil {
			if e, ok := it.nextLeaf.next(nil, it.m.eq); ok {
				it.pending = e
				it.nextSeen = &e
				it.hasPending = true
				return
			}
		}
	}
	it.hasPending = false
}

// lookupNext returns the leaf following current in subhash order, or
// the first leaf in the trie if current is nil, or nil if there is no
// such leaf.
func (m *Map[K, V]) lookupNext(current sNode[K, V]) sNode[K, V] {
	if current == nil {
		for {
			res := m.ilookupFirst(m.root, 0, nil)
			switch res.kind {
			case resFound:
				return res.leaf
			case resNotFound:
				return nil
			case resRestart:
				continue
			default:
				panic("ctrie: unreachable lookupFirst result")
			}
		}
	}
	hc := current.hash()
	for {
		res := m.ilookupNext(m.root, hc, 0, nil)
		switch res.kind {
		case resFound:
			return res.leaf
		case resNotFound:
			return nil
		case resRestart:
			continue
		default:
			panic("ctrie: unreachable lookupNext result")
		}
	}
}

// ilookupFirst descends taking slot 0 at every cNode until a leaf is
// reached.
func (m *Map[K, V]) ilookupFirst(i *iNode[K, V], lev uint, parent *iNode[K, V]) resultS[K, V] {
	main := i.get()
	switch {
	case main.cn != nil:
		cn := main.cn
		if cn.bitmap == 0 {
			return resultS[K, V]{kind: resNotFound}
		}
		return m.ipickupFirst(cn.arr[0], lev, i)
	case main.tn != nil:
		clean(parent, lev-m.width)
		return resultS[K, V]{kind: resRestart}
	default:
		panic("ctrie: iNode main node is neither cNode nor tNode")
	}
}

// ilookupNext descends as if searching for hc, but as soon as the
// search would terminate — a missing slot, a leaf whose hash is <= hc,
// or an exhausted subtree — it backs up one level and takes the next
// sibling slot, then picks the first leaf reachable from there.
func (m *Map[K, V]) ilookupNext(i *iNode[K, V], hc uint32, lev uint, parent *iNode[K, V]) resultS[K, V] {
	main := i.get()
	switch {
	case main.cn != nil:
		cn := main.cn
		fl, pos := flagPos(hc, lev, m.width, cn.bitmap)
		if cn.bitmap&fl == 0 {
			return m.ipickupFirstSibling(cn, pos, 0, lev, i)
		}
		switch br := cn.arr[pos].(type) {
		case *iNode[K, V]:
			next := m.ilookupNext(br, hc, lev+m.width, i)
			switch next.kind {
			case resFound, resRestart:
				return next
			case resNotFound:
				return m.ipickupFirstSibling(cn, pos, 1, lev, i)
			default:
				panic("ctrie: unreachable ilookupNext result")
			}
		case sNode[K, V]:
			if hc >= br.hash() {
				return m.ipickupFirstSibling(cn, pos, 1, lev, i)
			}
			return resultS[K, V]{kind: resFound, leaf: br}
		default:
			panic("ctrie: invalid branch in cNode")
		}
	case main.tn != nil:
		clean(parent, lev-m.width)
		return resultS[K, V]{kind: resRestart}
	default:
		panic("ctrie: iNode main node is neither cNode nor tNode")
	}
}

func (m *Map[K, V]) ipickupFirstSibling(cn *cNode[K, V], pos, offset int, lev uint, parent *iNode[K, V]) resultS[K, V] {
	if pos+offset < len(cn.arr) {
		return m.ipickupFirst(cn.arr[pos+offset], lev, parent)
	}
	return resultS[K, V]{kind: resNotFound}
}

func (m *Map[K, V]) ipickupFirst(br branch, lev uint, parent *iNode[K, V]) resultS[K, V] {
	switch br := br.(type) {
	case *iNode[K, V]:
		return m.ilookupFirst(br, lev+m.width, parent)
	case sNode[K, V]:
		return resultS[K, V]{kind: resFound, leaf: br}
	default:
		panic("ctrie: invalid branch in cNode")
	}
}
