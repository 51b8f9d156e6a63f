package ctrie

// toContracted ensures that every iNode except the root points to a
// cNode with at least one branch. If cn has exactly one branch and
// that branch is a leaf, and lev > 0 (i.e. this is not the root),
// the leaf is entombed so that its parent can later splice it out
// directly. The root is never contracted.
func toContracted[K comparable, V any](cn *cNode[K, V], lev uint) *mainNode[K, V] {
	if lev > 0 && len(cn.arr) == 1 {
		if sn, ok := cn.arr[0].(sNode[K, V]); ok {
			return &mainNode[K, V]{tn: sn.tombed()}
		}
	}
	return &mainNode[K, V]{cn: cn}
}

// toCompressed resurrects every child of cn that is an iNode pointing
// to a tNode, replacing it in a freshly-copied, unpublished cNode with
// the tNode's untombed leaf, and then applies toContracted to the
// result.
func toCompressed[K comparable, V any](cn *cNode[K, V], lev uint) *mainNode[K, V] {
	ncn := cn.copied()
	for idx, br := range ncn.arr {
		if in, ok := br.(*iNode[K, V]); ok {
			if tn := in.get().tn; tn != nil {
				ncn.arr[idx] = tn.untombed()
			}
		}
	}
	return toContracted(ncn, lev)
}

// clean helps compress the subtree rooted at i, replacing a cNode
// main node with its compressed form. A failed CAS is tolerated:
// some other thread has already done the work.
func clean[K comparable, V any](i *iNode[K, V], lev uint) {
	if i == nil {
		return
	}
	m := i.get()
	if m.cn != nil {
		i.cas(m, toCompressed(m.cn, lev))
	}
}

// cleanParent splices a tombed iNode i out of parent's branch array,
// replacing it with the tomb's resurrected leaf (subject to further
// contraction), provided parent still points at i by the time the CAS
// happens. It retries on CAS failure and gives up silently if the
// slot no longer refers to i or parent has since moved on.
func cleanParent[K comparable, V any](parent, i *iNode[K, V], hc uint32, lev, width uint) {
	for {
		m := i.get()
		pm := parent.get()
		if pm.cn == nil {
			return
		}
		fl, pos := flagPos(hc, lev, width, pm.cn.bitmap)
		if pm.cn.bitmap&fl == 0 {
			return
		}
		sub := pm.cn.arr[pos]
		if sub != branch(i) {
			return
		}
		if m.tn == nil {
			return
		}
		ncn := pm.cn.updated(pos, m.tn.untombed())
		if parent.cas(pm, toContracted(ncn, lev)) {
			return
		}
	}
}
