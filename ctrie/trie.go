package ctrie

import "reflect"

// Hasher is implemented by key types that know how to hash
// themselves. New requires it; NewWithFuncs accepts any comparable
// key type together with explicit hash and equality functions.
type Hasher interface {
	comparable
	Hash() uint32
}

// Map is a concurrent, lock-free associative map from keys to values.
// All operations are safe to call from multiple goroutines without
// external synchronization; none of them ever blocks on another.
// Values are required to be comparable so that the conditional
// operations (Replace with an expected value, Delete with an expected
// value) can test equality the way the original design's
// constraint-based insert/remove does.
//
// A Map must be created with New or NewWithFuncs; the zero value is
// not usable.
type Map[K comparable, V comparable] struct {
	root  *iNode[K, V]
	width uint
	hash  func(K) uint32
	eq    func(K, K) bool
}

// New returns a new empty Map keyed by a type that implements Hasher,
// using == for equality and the default width (6, i.e. 64-way
// fan-out).
func New[K Hasher, V comparable]() *Map[K, V] {
	return NewWithFuncs[K, V](func(a, b K) bool { return a == b }, K.Hash, defaultWidth)
}

// NewWithFuncs returns a new empty Map using the given equality and
// hash functions instead of relying on comparison and a Hash method
// on the key type. width is the trie fan-out exponent (fan-out =
// 2^width); values outside [1,6] are silently clamped, and 0 selects
// the default of 6.
func NewWithFuncs[K comparable, V comparable](eqFunc func(K, K) bool, hashFunc func(K) uint32, width int) *Map[K, V] {
	if width == 0 {
		width = defaultWidth
	}
	if width < minWidth {
		width = minWidth
	} else if width > maxWidth {
		width = maxWidth
	}
	return &Map[K, V]{
		root:  newRootINode[K, V](),
		width: uint(width),
		hash:  hashFunc,
		eq:    eqFunc,
	}
}

// resultKind classifies the outcome of one attempt at a trie
// operation.
type resultKind int

const (
	resFound resultKind = iota
	resNotFound
	resRestart
	resRejected
)

// result is the outcome of one attempt at iinsert/ilookup/iremove.
// RESTART means the top-level loop must re-enter from the root.
// REJECTED carries the observed value for constraint reporting.
// existed reports whether the key had a mapping before this
// operation; iinsert needs it to report "previous value or absent"
// even on a brand-new key, which a bare FOUND cannot distinguish from
// a replace.
type result[V any] struct {
	kind    resultKind
	value   V
	existed bool
}

// constraintKind enumerates the conditional-mutation modes shared by
// insert and remove.
type constraintKind int

const (
	constraintNone constraintKind = iota
	constraintPutIfAbsent
	constraintReplaceIfMapped
	constraintReplaceIfMappedTo
	constraintRemoveIfMappedTo
)

// constraint carries the conditional-mutation mode and, for the
// "IfMappedTo" modes, the expected value the current mapping must
// equal for the operation to proceed.
type constraint[V comparable] struct {
	kind constraintKind
	to   V
}

func noConstraint[V comparable]() constraint[V] {
	return constraint[V]{kind: constraintNone}
}

// isNull reports whether x is a nil interface, or a nil pointer, map,
// channel, slice, or function value boxed in K/V. any(x) == nil is not
// enough here: boxing a nil *T into an interface produces an interface
// holding a concrete type and a nil value, which is itself != nil, so
// the check has to go through reflection to see past the box.
func isNull[T any](x T) bool {
	v := reflect.ValueOf(x)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}

// notNullKey panics if key is null in the sense of isNull; keys must
// be non-null for the lifetime of an entry.
func notNullKey[K comparable](key K) {
	if isNull(key) {
		panic("ctrie: the key must be non-null")
	}
}

// notNullValue panics if value is null in the same sense as
// notNullKey.
func notNullValue[V comparable](value V) {
	if isNull(value) {
		panic("ctrie: the value must be non-null")
	}
}

// Get returns the value associated with key and reports whether the
// key is present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	notNullKey(key)
	hc := mix(m.hash(key))
	for {
		res := m.ilookup(m.root, hc, key, 0, nil)
		switch res.kind {
		case resFound:
			return res.value, true
		case resNotFound:
			var zero V
			return zero, false
		case resRestart:
			continue
		default:
			panic("ctrie: unreachable lookup result")
		}
	}
}

// Set sets the value for key, replacing any existing mapping, and
// returns the previous value and true if there was one, or the zero
// value and false if key was not previously mapped.
func (m *Map[K, V]) Set(key K, value V) (previous V, existed bool) {
	notNullKey(key)
	notNullValue(value)
	return m.insert(key, value, noConstraint[V]())
}

// PutIfAbsent sets the value for key only if it is not already
// mapped. It returns the existing value and true if the key was
// already present (in which case the map is unchanged), or the zero
// value and false if the new mapping was installed.
func (m *Map[K, V]) PutIfAbsent(key K, value V) (existing V, alreadyPresent bool) {
	notNullKey(key)
	notNullValue(value)
	return m.insert(key, value, constraint[V]{kind: constraintPutIfAbsent})
}

// Replace sets the value for key only if it is already mapped. It
// returns the previous value and true if a replacement occurred.
func (m *Map[K, V]) Replace(key K, value V) (previous V, replaced bool) {
	notNullKey(key)
	notNullValue(value)
	return m.insert(key, value, constraint[V]{kind: constraintReplaceIfMapped})
}

// ReplaceExpected sets the value for key to newValue only if its
// current value equals expected. It reports whether the replacement
// happened.
func (m *Map[K, V]) ReplaceExpected(key K, expected, newValue V) bool {
	notNullKey(key)
	notNullValue(expected)
	notNullValue(newValue)
	_, ok := m.insert(key, newValue, constraint[V]{kind: constraintReplaceIfMappedTo, to: expected})
	return ok
}

// Delete removes the mapping for key and returns the removed value,
// if any.
func (m *Map[K, V]) Delete(key K) (previous V, removed bool) {
	notNullKey(key)
	return m.remove(key, noConstraint[V]())
}

// DeleteExpected removes the mapping for key only if its current
// value equals expected, reporting whether the removal happened.
func (m *Map[K, V]) DeleteExpected(key K, expected V) bool {
	notNullKey(key)
	notNullValue(expected)
	_, ok := m.remove(key, constraint[V]{kind: constraintRemoveIfMappedTo, to: expected})
	return ok
}

// IsEmpty reports whether the map currently holds no entries.
func (m *Map[K, V]) IsEmpty() bool {
	main := m.root.get()
	if main.cn != nil {
		return main.cn.bitmap == 0
	}
	return false
}

// Clear removes every entry from the map.
func (m *Map[K, V]) Clear() {
	for {
		old := m.root.get()
		if m.root.cas(old, &mainNode[K, V]{cn: &cNode[K, V]{}}) {
			return
		}
	}
}

// Len returns the number of keys in the map. This is an O(n)
// operation with no concurrency guarantee: under concurrent mutation
// it is a best-effort count, not a linearizable snapshot.
func (m *Map[K, V]) Len() int {
	n := 0
	for it := m.Iterator(); it.Next(); {
		n++
	}
	return n
}

// insert runs the constrained-insert loop until a definitive outcome
// is reached (retrying on RESTART), and maps the result onto the
// public (value, ok) convention used throughout the API.
func (m *Map[K, V]) insert(key K, value V, c constraint[V]) (V, bool) {
	hc := mix(m.hash(key))
	for {
		res := m.iinsert(m.root, hc, key, value, 0, nil, c)
		switch res.kind {
		case resFound:
			return res.value, res.existed
		case resRestart:
			continue
		case resRejected:
			switch c.kind {
			case constraintPutIfAbsent:
				return res.value, true
			case constraintReplaceIfMapped, constraintReplaceIfMappedTo:
				var zero V
				return zero, false
			default:
				panic("ctrie: unexpected constraint on rejected insert")
			}
		default:
			panic("ctrie: unreachable insert result")
		}
	}
}

func (m *Map[K, V]) remove(key K, c constraint[V]) (V, bool) {
	hc := mix(m.hash(key))
	for {
		res := m.iremove(m.root, hc, key, 0, nil, c)
		switch res.kind {
		case resFound:
			return res.value, true
		case resNotFound, resRejected:
			var zero V
			return zero, false
		case resRestart:
			continue
		default:
			panic("ctrie: unreachable remove result")
		}
	}
}

// ilookup descends the trie looking for hc/k starting at iNode i at
// level lev, whose parent (nil at the root) is parent.
func (m *Map[K, V]) ilookup(i *iNode[K, V], hc uint32, k K, lev uint, parent *iNode[K, V]) result[V] {
	main := i.get()
	switch {
	case main.cn != nil:
		cn := main.cn
		fl, pos := flagPos(hc, lev, m.width, cn.bitmap)
		if cn.bitmap&fl == 0 {
			return result[V]{kind: resNotFound}
		}
		switch br := cn.arr[pos].(type) {
		case *iNode[K, V]:
			return m.ilookup(br, hc, k, lev+m.width, i)
		case sNode[K, V]:
			if br.hash() != hc {
				return result[V]{kind: resNotFound}
			}
			if v, ok := br.get(k, m.eq); ok {
				return result[V]{kind: resFound, value: v}
			}
			return result[V]{kind: resNotFound}
		default:
			panic("ctrie: invalid branch in cNode")
		}
	case main.tn != nil:
		clean(parent, lev-m.width)
		return result[V]{kind: resRestart}
	default:
		panic("ctrie: iNode main node is neither cNode nor tNode")
	}
}

// iinsert attempts to insert (k, v) into the trie subject to
// constraint c, retrying via RESTART when a CAS loses a race or a
// tomb is encountered mid-descent.
func (m *Map[K, V]) iinsert(i *iNode[K, V], hc uint32, k K, v V, lev uint, parent *iNode[K, V], c constraint[V]) result[V] {
	main := i.get()
	switch {
	case main.cn != nil:
		cn := main.cn
		fl, pos := flagPos(hc, lev, m.width, cn.bitmap)
		if cn.bitmap&fl == 0 {
			if c.kind == constraintReplaceIfMapped || c.kind == constraintReplaceIfMappedTo {
				var zero V
				return result[V]{kind: resRejected, value: zero}
			}
			ncn := cn.inserted(fl, pos, sNode[K, V](&singletonSNode[K, V]{h: hc, e: entry[K, V]{key: k, value: v}}))
			if i.cas(main, &mainNode[K, V]{cn: ncn}) {
				var zero V
				return result[V]{kind: resFound, value: zero}
			}
			return result[V]{kind: resRestart}
		}
		switch br := cn.arr[pos].(type) {
		case *iNode[K, V]:
			return m.iinsert(br, hc, k, v, lev+m.width, i, c)
		case sNode[K, V]:
			if br.hash() == hc {
				previous, existed := br.get(k, m.eq)
				if c.kind == constraintPutIfAbsent && existed {
					return result[V]{kind: resRejected, value: previous}
				}
				if c.kind == constraintReplaceIfMapped && !existed {
					return result[V]{kind: resRejected, value: previous}
				}
				if c.kind == constraintReplaceIfMappedTo && (!existed || previous != c.to) {
					return result[V]{kind: resRejected, value: previous}
				}
				nsn := br.put(k, v, m.eq)
				ncn := cn.updated(pos, sNode[K, V](nsn))
				if i.cas(main, &mainNode[K, V]{cn: ncn}) {
					return result[V]{kind: resFound, value: previous, existed: existed}
				}
				return result[V]{kind: resRestart}
			}
			if c.kind == constraintReplaceIfMapped || c.kind == constraintReplaceIfMappedTo {
				var zero V
				return result[V]{kind: resRejected, value: zero}
			}
			nsn := &singletonSNode[K, V]{h: hc, e: entry[K, V]{key: k, value: v}}
			scn := newCollisionCNode[K, V](br, sNode[K, V](nsn), lev+m.width, m.width)
			nin := &iNode[K, V]{}
			nin.store(&mainNode[K, V]{cn: scn})
			ncn := cn.updated(pos, nin)
			if i.cas(main, &mainNode[K, V]{cn: ncn}) {
				var zero V
				return result[V]{kind: resFound, value: zero}
			}
			return result[V]{kind: resRestart}
		default:
			panic("ctrie: invalid branch in cNode")
		}
	case main.tn != nil:
		clean(parent, lev-m.width)
		return result[V]{kind: resRestart}
	default:
		panic("ctrie: iNode main node is neither cNode nor tNode")
	}
}

// iremove attempts to remove k from the trie subject to constraint c.
// When a removal leaves a non-root cNode holding a single leaf, i's
// main node becomes a tomb, which cleanParent then splices out of the
// parent.
func (m *Map[K, V]) iremove(i *iNode[K, V], hc uint32, k K, lev uint, parent *iNode[K, V], c constraint[V]) result[V] {
	main := i.get()
	switch {
	case main.cn != nil:
		cn := main.cn
		fl, pos := flagPos(hc, lev, m.width, cn.bitmap)
		if cn.bitmap&fl == 0 {
			return result[V]{kind: resNotFound}
		}
		var res result[V]
		switch br := cn.arr[pos].(type) {
		case *iNode[K, V]:
			res = m.iremove(br, hc, k, lev+m.width, i, c)
		case sNode[K, V]:
			if br.hash() != hc {
				return result[V]{kind: resNotFound}
			}
			previous, existed := br.get(k, m.eq)
			if !existed {
				return result[V]{kind: resNotFound}
			}
			if c.kind == constraintRemoveIfMappedTo && previous != c.to {
				return result[V]{kind: resRejected, value: previous}
			}
			nsn := br.removed(k, m.eq)
			var replacement *mainNode[K, V]
			if nsn != nil {
				replacement = &mainNode[K, V]{cn: cn.updated(pos, sNode[K, V](nsn))}
			} else {
				replacement = toContracted(cn.removed(fl, pos), lev)
			}
			if i.cas(main, replacement) {
				res = result[V]{kind: resFound, value: previous}
			} else {
				return result[V]{kind: resRestart}
			}
		default:
			panic("ctrie: invalid branch in cNode")
		}
		if res.kind == resNotFound || res.kind == resRestart {
			return res
		}
		if parent != nil && i.get().tn != nil {
			cleanParent(parent, i, hc, lev-m.width, m.width)
		}
		return res
	case main.tn != nil:
		clean(parent, lev-m.width)
		return result[V]{kind: resRestart}
	default:
		panic("ctrie: iNode main node is neither cNode nor tNode")
	}
}
