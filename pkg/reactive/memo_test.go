package reactive

import (
	"testing"
)

func TestMemoComputesOnce(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 2)

	computes := 0
	m := NewMemo(rt, func() int {
		computes++
		return a.Get() * 3
	})

	if computes != 0 {
		t.Errorf("memo should be lazy, computed %d times before Get", computes)
	}

	if m.Get() != 6 {
		t.Errorf("expected 6, got %d", m.Get())
	}
	_ = m.Get()
	_ = m.Peek()

	if computes != 1 {
		t.Errorf("expected 1 computation, got %d", computes)
	}
	if s := rt.Stats(); s.CacheHits < 2 {
		t.Errorf("expected at least 2 cache hits, got %d", s.CacheHits)
	}
}

func TestMemoTransitiveInvalidationIsLazy(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 1)

	c1, c2 := 0, 0
	double := NewMemo(rt, func() int {
		c1++
		return a.Get() * 2
	})
	plusOne := NewMemo(rt, func() int {
		c2++
		return double.Get() + 1
	})

	if plusOne.Get() != 3 {
		t.Fatalf("expected 3, got %d", plusOne.Get())
	}

	a.Set(5)

	if c1 != 1 || c2 != 1 {
		t.Errorf("invalidation must not recompute, got c1=%d c2=%d", c1, c2)
	}
	if double.Cached() || plusOne.Cached() {
		t.Error("both memos should be invalidated")
	}

	if plusOne.Get() != 11 {
		t.Errorf("expected 11, got %d", plusOne.Get())
	}
	if c1 != 2 || c2 != 2 {
		t.Errorf("expected one recomputation each, got c1=%d c2=%d", c1, c2)
	}
}

func TestMemoUnrelatedBranchStaysCached(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 1)
	b := NewCell(rt, 1)

	aRuns, bRuns := 0, 0
	fromA := NewMemo(rt, func() int {
		aRuns++
		return a.Get()
	})
	fromB := NewMemo(rt, func() int {
		bRuns++
		return b.Get()
	})
	_ = fromA.Get()
	_ = fromB.Get()

	a.Set(2)
	_ = fromA.Get()
	_ = fromB.Get()

	if aRuns != 2 {
		t.Errorf("expected fromA to recompute, got %d runs", aRuns)
	}
	if bRuns != 1 {
		t.Errorf("expected fromB to stay cached, got %d runs", bRuns)
	}
}

func TestMemoPeekDoesNotRegisterCaller(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 1)

	inner := NewMemo(rt, func() int { return a.Get() })
	outerRuns := 0
	outer := NewMemo(rt, func() int {
		outerRuns++
		return inner.Peek() + 1
	})

	_ = outer.Get()
	if inner.node.dependents.len() != 0 {
		t.Errorf("Peek should not register outer, got %d dependents", inner.node.dependents.len())
	}

	a.Set(2)
	_ = outer.Get()
	if outerRuns != 1 {
		t.Errorf("outer should not be invalidated through Peek, got %d runs", outerRuns)
	}
}

func TestMemoInvalidate(t *testing.T) {
	rt := NewRuntime()
	external := 1

	computes := 0
	m := NewMemo(rt, func() int {
		computes++
		return external
	})
	downstream := NewMemo(rt, func() int { return m.Get() * 10 })

	if downstream.Get() != 10 {
		t.Fatalf("expected 10, got %d", downstream.Get())
	}

	external = 2
	m.Invalidate()

	if downstream.Cached() {
		t.Error("downstream should be invalidated with m")
	}
	if downstream.Get() != 20 {
		t.Errorf("expected 20, got %d", downstream.Get())
	}
	if computes != 2 {
		t.Errorf("expected 2 computations, got %d", computes)
	}
}

func TestMemoDiamondInvalidatesOnce(t *testing.T) {
	counter := newEventCounter()
	rt := NewRuntime(WithObserver(counter))
	a := NewCell(rt, 1)

	left := NewMemo(rt, func() int { return a.Get() + 1 })
	right := NewMemo(rt, func() int { return a.Get() * 2 })

	joinRuns := 0
	join := NewMemo(rt, func() int {
		joinRuns++
		return left.Get() + right.Get()
	})

	if join.Get() != 4 {
		t.Fatalf("expected 4, got %d", join.Get())
	}

	a.Set(3)
	if join.Get() != 10 {
		t.Errorf("expected 10, got %d", join.Get())
	}
	if joinRuns != 2 {
		t.Errorf("expected join to recompute once, got %d runs", joinRuns)
	}
	if n := counter.count(join.ID(), EventMemoCompute); n != 2 {
		t.Errorf("expected 2 compute events for join, got %d", n)
	}
	if n := counter.count(join.ID(), EventInvalidate); n != 1 {
		t.Errorf("expected join invalidated once through both paths, got %d", n)
	}

	// A later write is a new propagation and reaches join again.
	a.Set(4)
	if n := counter.count(join.ID(), EventInvalidate); n != 2 {
		t.Errorf("expected a second invalidation after the next write, got %d", n)
	}
}

func TestMemoStackedDiamondsInvalidateEachNodeOnce(t *testing.T) {
	const levels = 16

	counter := newEventCounter()
	rt := NewRuntime(WithObserver(counter))
	a := NewCell(rt, 1)

	prev := a.Get
	joins := make([]*Memo[int], levels)
	for i := range joins {
		up := prev
		left := NewMemo(rt, func() int { return up() + 1 })
		right := NewMemo(rt, func() int { return up() - 1 })
		joins[i] = NewMemo(rt, func() int { return left.Get() + right.Get() })
		prev = joins[i].Get
	}
	last := joins[levels-1]

	if got := last.Get(); got != 1<<levels {
		t.Fatalf("expected %d, got %d", 1<<levels, got)
	}

	before := rt.Stats().Invalidations
	a.Set(2)
	if n := rt.Stats().Invalidations - before; n != 3*levels {
		t.Errorf("expected %d invalidations, got %d", 3*levels, n)
	}
	if n := counter.count(last.ID(), EventInvalidate); n != 1 {
		t.Errorf("expected last join invalidated once, got %d", n)
	}
	if got := last.Get(); got != 2<<levels {
		t.Errorf("expected %d, got %d", 2<<levels, got)
	}
}

func TestMemoInvalidateStartsNewPropagation(t *testing.T) {
	counter := newEventCounter()
	rt := NewRuntime(WithObserver(counter))
	a := NewCell(rt, 1)
	m := NewMemo(rt, func() int { return a.Get() })
	downstream := NewMemo(rt, func() int { return m.Get() + 1 })
	_ = downstream.Get()

	a.Set(2)
	_ = downstream.Get()
	m.Invalidate()

	if n := counter.count(downstream.ID(), EventInvalidate); n != 2 {
		t.Errorf("expected 2 invalidations of downstream, got %d", n)
	}
	if downstream.Cached() {
		t.Error("downstream should not be cached after m.Invalidate")
	}
}

func TestMemoSelfReadDoesNotRegisterItself(t *testing.T) {
	rt := NewRuntime()
	m := NewMemo(rt, func() int { return 1 })
	m.collect()

	rt.stacks.pushMemo(m.self)
	m.collect()
	rt.stacks.popMemo(m.self)

	if m.node.dependents.len() != 0 {
		t.Errorf("memo must not depend on itself, got %d", m.node.dependents.len())
	}
}

func TestMemoPanicLeavesStacksBalanced(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 0)

	m := NewMemo(rt, func() int {
		if a.Get() == 0 {
			panic("boom")
		}
		return a.Get()
	})

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic from memo closure")
			}
		}()
		_ = m.Get()
	}()

	assertBalanced(t, rt)
	if m.Cached() {
		t.Error("a panicking computation must not be cached")
	}

	a.Set(4)
	if m.Get() != 4 {
		t.Errorf("expected 4, got %d", m.Get())
	}
}

func TestMemoNamed(t *testing.T) {
	rt := NewRuntime()
	m := NewMemo(rt, func() string { return "x" }).Named("greeting")

	if m.Label() != "greeting" {
		t.Errorf("expected label greeting, got %q", m.Label())
	}
	if m.ID() == 0 {
		t.Error("expected non-zero ID")
	}
}
