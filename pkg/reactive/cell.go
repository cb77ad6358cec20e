package reactive

// Cell is a mutable reactive value.
//
// Reading a cell while a memo is evaluating records that memo as a
// dependent; reading it during a reaction's collecting pass subscribes the
// reaction. Both records are weak. Writing a different value invalidates
// the dependents' cached results and replays the subscribed reactions.
type Cell[T any] struct {
	id    uint64
	label string
	rt    *Runtime

	value T

	// equal decides whether a write changes the value. nil means
	// defaultEquals.
	equal func(T, T) bool

	dependents dependents
	reactions  subscribers
}

// NewCell creates a cell holding initial.
func NewCell[T any](rt *Runtime, initial T) *Cell[T] {
	return &Cell[T]{
		id:    nextID(),
		rt:    rt,
		value: initial,
	}
}

// Get returns the current value and registers the current reader.
func (c *Cell[T]) Get() T {
	c.collect()
	c.rt.stats.CellReads++
	c.rt.emit(Event{Kind: EventCellRead, Node: c.ref()})
	return c.value
}

// Peek returns the current value without registering anything.
func (c *Cell[T]) Peek() T {
	return c.value
}

// Set stores value and propagates the change. It returns false, with no
// other effect, when value equals the current value.
func (c *Cell[T]) Set(value T) bool {
	rt := c.rt
	if c.equals(c.value, value) {
		rt.stats.WritesUnchanged++
		rt.emit(Event{Kind: EventCellWrite, Node: c.ref()})
		return false
	}

	rt.stats.WritesChanged++
	rt.emit(Event{Kind: EventCellWrite, Node: c.ref(), Changed: true})
	defer rt.emit(Event{Kind: EventCellWriteDone, Node: c.ref(), Changed: true})

	rt.logger.Debug("cell write",
		"cell", c.ref().String(),
		"dependents", c.dependents.len(),
		"reactions", c.reactions.len(),
	)

	rt.beginPropagation()
	c.dependents.invalidate(rt)
	c.value = value
	c.reactions.flush(rt)
	return true
}

// Update sets the cell to fn(current). It reports whether the value changed.
func (c *Cell[T]) Update(fn func(T) T) bool {
	return c.Set(fn(c.value))
}

// Mutate edits the value in place and then propagates unconditionally.
// Use it for values that are modified rather than replaced, such as maps
// and slices, where an equality check against the old value is meaningless.
func (c *Cell[T]) Mutate(fn func(*T)) {
	fn(&c.value)
	c.Invalidate()
}

// Invalidate propagates a change without going through Set: dependents'
// cached results are dropped and subscribed reactions replay. It is for
// callers that changed the value through a side channel.
func (c *Cell[T]) Invalidate() {
	rt := c.rt
	rt.stats.ForcedInvalidate++
	rt.emit(Event{Kind: EventCellWrite, Node: c.ref(), Changed: true})
	defer rt.emit(Event{Kind: EventCellWriteDone, Node: c.ref(), Changed: true})

	rt.logger.Debug("cell force-invalidated", "cell", c.ref().String())

	rt.beginPropagation()
	c.dependents.invalidate(rt)
	c.reactions.flush(rt)
}

// WithEquals configures the equality function used by Set.
func (c *Cell[T]) WithEquals(fn func(T, T) bool) *Cell[T] {
	c.equal = fn
	return c
}

// Named sets a label used in logs, events and metrics.
func (c *Cell[T]) Named(label string) *Cell[T] {
	c.label = label
	return c
}

// ID returns the unique identifier for this cell.
func (c *Cell[T]) ID() uint64 {
	return c.id
}

// Label returns the label set by Named.
func (c *Cell[T]) Label() string {
	return c.label
}

// collect registers the innermost memo as a dependent and, during a
// collecting pass, the innermost reaction as a subscriber.
func (c *Cell[T]) collect() {
	if m, ok := c.rt.stacks.topMemo(); ok {
		c.dependents.add(m)
	}
	if f, ok := c.rt.stacks.topReaction(); ok && f.collecting {
		c.reactions.add(f.reaction)
	}
}

func (c *Cell[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}

func (c *Cell[T]) ref() NodeRef {
	return NodeRef{ID: c.id, Label: c.label, Type: NodeCell}
}
