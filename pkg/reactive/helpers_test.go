package reactive

import (
	"errors"
	"testing"
)

// eventCounter counts events per node ID and kind.
type eventCounter struct {
	counts map[uint64]map[EventKind]int
	events []Event
}

func newEventCounter() *eventCounter {
	return &eventCounter{counts: make(map[uint64]map[EventKind]int)}
}

func (c *eventCounter) Observe(e Event) {
	byKind, ok := c.counts[e.Node.ID]
	if !ok {
		byKind = make(map[EventKind]int)
		c.counts[e.Node.ID] = byKind
	}
	byKind[e.Kind]++
	c.events = append(c.events, e)
}

func (c *eventCounter) count(id uint64, kind EventKind) int {
	return c.counts[id][kind]
}

func (c *eventCounter) reset() {
	c.counts = make(map[uint64]map[EventKind]int)
	c.events = nil
}

// expectInvariant fails the test unless fn panics with an InvariantError.
func expectInvariant(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected invariant panic, got none")
		}
		err, ok := rec.(error)
		if !ok || !errors.Is(err, ErrInvariant) {
			t.Fatalf("expected ErrInvariant panic, got %v", rec)
		}
		var ie *InvariantError
		if !errors.As(err, &ie) || ie.Op == "" {
			t.Fatalf("expected *InvariantError with Op, got %#v", rec)
		}
	}()
	fn()
}

func assertBalanced(t *testing.T, rt *Runtime) {
	t.Helper()
	if m, r := rt.Depth(); m != 0 || r != 0 {
		t.Fatalf("expected empty stacks, got memos=%d reactions=%d", m, r)
	}
}
