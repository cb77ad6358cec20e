package reactive

import "weak"

// Memo is a cached pure computation over other cells and memos.
//
// Results are stored in the runtime's result cache under the memo's
// identity. Memos are lazy: the closure runs on the first Get after
// construction or after an upstream change reached the memo, never before.
//
// A memo is both a producer and a consumer: it records whichever memo is
// reading it as a dependent, and while its closure runs it is the memo that
// the cells and memos it reads record.
type Memo[T any] struct {
	node *memoNode

	// self is the weak identity of node, made once at construction. It is the
	// cache key and the value pushed on the memo stack.
	self weak.Pointer[memoNode]

	compute func() T
}

// NewMemo creates a memo. compute is not called until the first Get.
func NewMemo[T any](rt *Runtime, compute func() T) *Memo[T] {
	n := &memoNode{
		id: nextID(),
		rt: rt,
	}
	return &Memo[T]{
		node:    n,
		self:    weak.Make(n),
		compute: compute,
	}
}

// Get returns the memo's value, computing it if there is no valid cached
// result, and registers the calling memo as a dependent.
func (m *Memo[T]) Get() T {
	m.collect()
	return m.resolve()
}

// Peek returns the memo's value without registering the caller. It still
// computes and caches the value if needed.
func (m *Memo[T]) Peek() T {
	return m.resolve()
}

// Invalidate drops the cached result and invalidates all dependents.
func (m *Memo[T]) Invalidate() {
	m.node.rt.beginPropagation()
	m.node.invalidate(m.self)
}

// Cached reports whether a result for this memo is currently cached. It
// does not affect LRU order.
func (m *Memo[T]) Cached() bool {
	return m.node.rt.cache.contains(m.self)
}

// Named sets a label used in logs, events and metrics.
func (m *Memo[T]) Named(label string) *Memo[T] {
	m.node.label = label
	return m
}

// ID returns the unique identifier for this memo.
func (m *Memo[T]) ID() uint64 {
	return m.node.id
}

// Label returns the label set by Named.
func (m *Memo[T]) Label() string {
	return m.node.label
}

// collect records the innermost evaluating memo as a dependent of m.
//
// There is no reaction list on a memo: during a collecting pass the cache is
// bypassed, so the closure runs and the cells beneath subscribe the reaction
// directly.
func (m *Memo[T]) collect() {
	if caller, ok := m.node.rt.stacks.topMemo(); ok && caller != m.self {
		m.node.dependents.add(caller)
	}
}

func (m *Memo[T]) resolve() T {
	rt := m.node.rt
	rt.stacks.pushMemo(m.self)
	defer rt.stacks.popMemo(m.self)

	ref := m.node.ref()
	if v, ok := lookup[T](rt.cache, m.self, ref); ok {
		return v
	}

	rt.stats.MemoComputes++
	rt.emit(Event{Kind: EventMemoCompute, Node: ref})
	return insert(rt.cache, m.self, m.compute())
}
