package reactive

import (
	"runtime"
	"testing"
)

// graph is A, B -> C = A+B -> D = C*2, plus E = B-3 reading only B.
type graph struct {
	a, b    *Cell[int]
	c, d, e *Memo[int]

	cRuns, dRuns, eRuns int

	reads *eventCounter
}

func newGraph(t *testing.T) (*Runtime, *graph) {
	t.Helper()
	g := &graph{reads: newEventCounter()}
	rt := NewRuntime(WithObserver(g.reads))

	g.a = NewCell(rt, 10).Named("A")
	g.b = NewCell(rt, 5).Named("B")
	g.c = NewMemo(rt, func() int {
		g.cRuns++
		return g.a.Get() + g.b.Get()
	}).Named("C")
	g.d = NewMemo(rt, func() int {
		g.dRuns++
		return g.c.Get() * 2
	}).Named("D")
	g.e = NewMemo(rt, func() int {
		g.eRuns++
		return g.b.Get() - 3
	}).Named("E")
	return rt, g
}

func (g *graph) readsOf(c *Cell[int]) int {
	return g.reads.count(c.ID(), EventCellRead)
}

func TestScenarioDerivedChain(t *testing.T) {
	rt, g := newGraph(t)

	if got := g.d.Get(); got != 30 {
		t.Fatalf("expected D=30, got %d", got)
	}
	if g.readsOf(g.a) != 1 || g.readsOf(g.b) != 1 {
		t.Errorf("expected A and B read once, got %d and %d", g.readsOf(g.a), g.readsOf(g.b))
	}
	if g.cRuns != 1 {
		t.Errorf("expected C computed once, got %d", g.cRuns)
	}

	// Fully cached: no cell is read again.
	if got := g.d.Get(); got != 30 {
		t.Errorf("expected D=30, got %d", got)
	}
	if g.readsOf(g.a) != 1 || g.readsOf(g.b) != 1 {
		t.Errorf("expected no further reads, got %d and %d", g.readsOf(g.a), g.readsOf(g.b))
	}

	_ = g.e.Get()

	g.a.Set(20)
	if got := g.d.Get(); got != 50 {
		t.Errorf("expected D=50, got %d", got)
	}
	if g.readsOf(g.a) != 2 {
		t.Errorf("expected A read twice, got %d", g.readsOf(g.a))
	}
	if g.cRuns != 2 || g.dRuns != 2 {
		t.Errorf("expected C and D recomputed once, got %d and %d", g.cRuns, g.dRuns)
	}
	if g.eRuns != 1 || !g.e.Cached() {
		t.Errorf("E does not read A and must stay cached, got %d runs", g.eRuns)
	}

	// Same value again is a no-op.
	g.a.Set(20)
	_ = g.d.Get()
	if g.cRuns != 2 {
		t.Errorf("no-op write must not recompute C, got %d", g.cRuns)
	}

	assertBalanced(t, rt)
}

func TestScenarioForceInvalidate(t *testing.T) {
	_, g := newGraph(t)

	_ = g.d.Get()
	_ = g.e.Get()

	g.a.Invalidate()
	_ = g.d.Get()
	_ = g.e.Get()

	if g.dRuns != 2 || g.cRuns != 2 {
		t.Errorf("force-invalidate should recompute C and D, got %d and %d", g.cRuns, g.dRuns)
	}
	if g.eRuns != 1 {
		t.Errorf("E is unrelated to A, got %d runs", g.eRuns)
	}
}

func TestScenarioReactionsOverDerivedChain(t *testing.T) {
	rt, g := newGraph(t)
	g.a.Set(0)

	eRuns, fRuns := 0, 0
	watchC := NewReaction(rt, func() {
		eRuns++
		_ = g.c.Get()
	})
	watchD := NewReaction(rt, func() {
		fRuns++
		_ = g.d.Get()
	})
	defer runtime.KeepAlive(watchC)
	defer runtime.KeepAlive(watchD)

	g.reads.reset()
	g.cRuns, g.dRuns = 0, 0
	eRuns, fRuns = 0, 0

	g.a.Set(10)

	if eRuns != 1 || fRuns != 1 {
		t.Errorf("expected each reaction to replay once, got %d and %d", eRuns, fRuns)
	}
	if g.cRuns != 1 || g.dRuns != 1 {
		t.Errorf("expected C and D recomputed once, got %d and %d", g.cRuns, g.dRuns)
	}
	if g.readsOf(g.a) != 1 || g.readsOf(g.b) != 1 {
		t.Errorf("expected A and B read once, got %d and %d", g.readsOf(g.a), g.readsOf(g.b))
	}
	if g.d.Peek() != 30 {
		t.Errorf("expected D=30, got %d", g.d.Peek())
	}
}

// viewModel owns a counter, a memo combining it with a shared cell, and a
// reaction that watches the memo.
type viewModel struct {
	counter *Cell[int]
	double  *Memo[int]
	watch   *Reaction
	runs    *int
}

func newViewModel(rt *Runtime, shared *Cell[int], start int) *viewModel {
	runs := new(int)
	counter := NewCell(rt, start)
	double := NewMemo(rt, func() int {
		return counter.Get()*2 + shared.Get()
	})
	watch := NewReaction(rt, func() {
		*runs++
		_ = double.Get()
	})
	return &viewModel{counter: counter, double: double, watch: watch, runs: runs}
}

func TestScenarioViewModels(t *testing.T) {
	rt := NewRuntime()
	shared := NewCell(rt, 0)
	sharedLabel := NewMemo(rt, func() int { return shared.Get() })

	globalRuns := 0
	global := NewReaction(rt, func() {
		globalRuns++
		_ = sharedLabel.Get()
	})
	defer runtime.KeepAlive(global)

	vm1 := newViewModel(rt, shared, 1)
	vm2 := newViewModel(rt, shared, 2)
	vm1Runs := vm1.runs

	vm1.counter.Set(10)
	if *vm1.runs != 2 || *vm2.runs != 1 {
		t.Errorf("expected only vm1 to replay, got %d and %d", *vm1.runs, *vm2.runs)
	}

	vm2.counter.Set(7)
	if *vm1.runs != 2 || *vm2.runs != 2 {
		t.Errorf("expected only vm2 to replay, got %d and %d", *vm1.runs, *vm2.runs)
	}

	shared.Set(100)
	if globalRuns != 2 || *vm1.runs != 3 || *vm2.runs != 3 {
		t.Errorf("expected all reactions to replay, got global=%d vm1=%d vm2=%d", globalRuns, *vm1.runs, *vm2.runs)
	}
	if vm1.double.Get() != 120 || vm2.double.Get() != 114 {
		t.Errorf("unexpected values %d and %d", vm1.double.Get(), vm2.double.Get())
	}

	vm1 = nil
	runtime.GC()
	runtime.GC()

	shared.Set(101)
	if globalRuns != 3 || *vm2.runs != 4 {
		t.Errorf("expected survivors to replay, got global=%d vm2=%d", globalRuns, *vm2.runs)
	}
	if *vm1Runs != 3 {
		t.Errorf("dropped view model must not replay, got %d", *vm1Runs)
	}
	if shared.reactions.len() != 2 {
		t.Errorf("expected dropped reaction pruned from shared, got %d", shared.reactions.len())
	}
	if shared.dependents.len() != 2 {
		t.Errorf("expected dropped memo pruned from shared, got %d", shared.dependents.len())
	}
	runtime.KeepAlive(vm2)
}
