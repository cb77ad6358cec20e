package reactive

import "weak"

// memoNode is the type-erased identity of a memo: what the cache is keyed
// by and what cells and other memos record as a dependent.
//
// A node is allocated separately from its Memo[T] and referenced strongly
// only by it, so weak pointers to the node die exactly when the memo handle
// becomes unreachable.
type memoNode struct {
	id    uint64
	label string
	rt    *Runtime

	dependents dependents

	// epoch is the propagation that last invalidated the node. A node
	// reached again by another path of the same propagation is skipped.
	epoch uint64
}

func (n *memoNode) ref() NodeRef {
	return NodeRef{ID: n.id, Label: n.label, Type: NodeMemo}
}

// invalidate removes the node's cached result and invalidates every live
// dependent, transitively. Each node is visited at most once per
// propagation; callers start one with Runtime.beginPropagation.
func (n *memoNode) invalidate(self weak.Pointer[memoNode]) {
	rt := n.rt
	if n.epoch == rt.epoch {
		return
	}
	n.epoch = rt.epoch

	rt.cache.remove(self)
	rt.stats.Invalidations++
	rt.emit(Event{Kind: EventInvalidate, Node: n.ref()})

	n.dependents.invalidate(rt)
}

// dependents is an insertion-ordered set of weak memo identities.
type dependents struct {
	entries []weak.Pointer[memoNode]
}

// add registers m unless it is already present.
func (d *dependents) add(m weak.Pointer[memoNode]) bool {
	for _, existing := range d.entries {
		if existing == m {
			return false
		}
	}
	d.entries = append(d.entries, m)
	return true
}

// invalidate walks the set, invalidating live entries and pruning dead ones.
// A dead entry's cache slot is removed on the same pass.
func (d *dependents) invalidate(rt *Runtime) {
	kept := d.entries[:0]
	for _, w := range d.entries {
		n := w.Value()
		if n == nil {
			rt.cache.remove(w)
			rt.stats.Pruned++
			continue
		}
		kept = append(kept, w)
		n.invalidate(w)
	}
	clear(d.entries[len(kept):])
	d.entries = kept
}

// len returns the number of entries, live or not yet pruned.
func (d *dependents) len() int {
	return len(d.entries)
}

// subscribers is an insertion-ordered set of weak reaction references.
type subscribers struct {
	entries []weak.Pointer[Reaction]
}

// add registers r unless it is already present.
func (s *subscribers) add(r weak.Pointer[Reaction]) bool {
	for _, existing := range s.entries {
		if existing == r {
			return false
		}
	}
	s.entries = append(s.entries, r)
	return true
}

// flush replays every live reaction untracked, pruning collected and
// disposed ones. The set is snapshotted first; a replay that writes back
// into the same cell starts a nested flush over the pruned set.
func (s *subscribers) flush(rt *Runtime) {
	live := make([]*Reaction, 0, len(s.entries))
	kept := s.entries[:0]
	for _, w := range s.entries {
		r := w.Value()
		if r == nil || r.disposed {
			rt.stats.Pruned++
			continue
		}
		kept = append(kept, w)
		live = append(live, r)
	}
	clear(s.entries[len(kept):])
	s.entries = kept

	for _, r := range live {
		// An earlier replay may have disposed it.
		if r.disposed {
			continue
		}
		r.replayUntracked()
	}
}

// len returns the number of entries, live or not yet pruned.
func (s *subscribers) len() int {
	return len(s.entries)
}
