package reactive

import "strconv"

// EventKind identifies what happened inside the engine.
type EventKind uint8

const (
	EventCellRead EventKind = iota + 1
	EventCellWrite
	EventCellWriteDone
	EventCacheHit
	EventCacheMiss
	EventCacheBypass
	EventCacheEvict
	EventMemoCompute
	EventInvalidate
	EventReactionRun
	EventReactionDone
	EventReactionDispose
)

// EventKinds lists every kind, in declaration order.
var EventKinds = []EventKind{
	EventCellRead,
	EventCellWrite,
	EventCellWriteDone,
	EventCacheHit,
	EventCacheMiss,
	EventCacheBypass,
	EventCacheEvict,
	EventMemoCompute,
	EventInvalidate,
	EventReactionRun,
	EventReactionDone,
	EventReactionDispose,
}

// String returns a stable snake_case name, used as a metric label.
func (k EventKind) String() string {
	switch k {
	case EventCellRead:
		return "cell_read"
	case EventCellWrite:
		return "cell_write"
	case EventCellWriteDone:
		return "cell_write_done"
	case EventCacheHit:
		return "cache_hit"
	case EventCacheMiss:
		return "cache_miss"
	case EventCacheBypass:
		return "cache_bypass"
	case EventCacheEvict:
		return "cache_evict"
	case EventMemoCompute:
		return "memo_compute"
	case EventInvalidate:
		return "invalidate"
	case EventReactionRun:
		return "reaction_run"
	case EventReactionDone:
		return "reaction_done"
	case EventReactionDispose:
		return "reaction_dispose"
	default:
		return "unknown"
	}
}

// NodeType is the kind of graph node an event refers to.
type NodeType uint8

const (
	NodeCell NodeType = iota + 1
	NodeMemo
	NodeReaction
)

// String returns a human-readable name for the node type.
func (t NodeType) String() string {
	switch t {
	case NodeCell:
		return "cell"
	case NodeMemo:
		return "memo"
	case NodeReaction:
		return "reaction"
	default:
		return "unknown"
	}
}

// NodeRef identifies a graph node without holding a reference to it.
type NodeRef struct {
	ID    uint64
	Label string
	Type  NodeType
}

// String returns the label if set, otherwise "<type>#<id>".
func (r NodeRef) String() string {
	if r.Label != "" {
		return r.Label
	}
	if r.ID == 0 {
		return r.Type.String() + "#?"
	}
	return r.Type.String() + "#" + strconv.FormatUint(r.ID, 10)
}

// Event is emitted synchronously on the runtime's goroutine.
type Event struct {
	Kind EventKind
	Node NodeRef

	// Changed is set on EventCellWrite when the value differed.
	Changed bool

	// Collecting is set on reaction and bypass events during a
	// dependency-collecting pass.
	Collecting bool
}

// Observer receives engine events. Implementations that hand events to
// other goroutines must do their own synchronization.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }
