package reactive

import (
	"runtime"
	"testing"
)

func TestReactionRunsImmediately(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 1)

	var seen []int
	r := NewReaction(rt, func() {
		seen = append(seen, a.Get())
	})
	defer runtime.KeepAlive(r)

	if len(seen) != 1 || seen[0] != 1 {
		t.Fatalf("expected one run seeing 1, got %v", seen)
	}

	a.Set(2)
	a.Set(3)
	if len(seen) != 3 || seen[2] != 3 {
		t.Errorf("expected runs [1 2 3], got %v", seen)
	}
	assertBalanced(t, rt)
}

func TestReactionThroughMemo(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 1)
	double := NewMemo(rt, func() int { return a.Get() * 2 })

	var seen []int
	r := NewReaction(rt, func() {
		seen = append(seen, double.Get())
	})
	defer runtime.KeepAlive(r)

	a.Set(4)
	if len(seen) != 2 || seen[1] != 8 {
		t.Errorf("expected replay seeing 8, got %v", seen)
	}
}

func TestReactionCollectingPassBypassesCache(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 1)

	computes := 0
	m := NewMemo(rt, func() int {
		computes++
		return a.Get()
	})

	// Warm the cache outside any reaction.
	_ = m.Get()
	if computes != 1 {
		t.Fatalf("expected 1 computation, got %d", computes)
	}

	runs := 0
	r := NewReaction(rt, func() {
		runs++
		_ = m.Get()
	})
	defer runtime.KeepAlive(r)

	if computes != 2 {
		t.Errorf("collecting pass should recompute the memo, got %d computations", computes)
	}
	if rt.Stats().CacheBypasses != 1 {
		t.Errorf("expected 1 bypass, got %d", rt.Stats().CacheBypasses)
	}
	if a.reactions.len() != 1 {
		t.Fatalf("expected reaction subscribed on the cell under the cached memo, got %d", a.reactions.len())
	}

	a.Set(2)
	if runs != 2 {
		t.Errorf("expected replay after write, got %d runs", runs)
	}
}

func TestReactionDepsClosureSubscriptionCompleteness(t *testing.T) {
	rt := NewRuntime()
	x := NewCell(rt, 1)
	y := NewCell(rt, 2)
	useX := true

	pick := NewMemo(rt, func() int {
		if useX {
			return x.Get()
		}
		return y.Get()
	})

	runs := 0
	r := NewReactionWithDeps(rt,
		func() {
			runs++
			_ = pick.Get()
		},
		func() {
			_ = x.Get()
			_ = y.Get()
		},
	)
	defer runtime.KeepAlive(r)

	if runs != 1 {
		t.Fatalf("expected body to run once, got %d", runs)
	}

	// The body never read y, but the deps closure did.
	y.Set(3)
	if runs != 2 {
		t.Errorf("expected replay after y write, got %d runs", runs)
	}

	x.Set(5)
	if runs != 3 {
		t.Errorf("expected replay after x write, got %d runs", runs)
	}
}

func TestReactionWithoutDepsMissesUnreadBranch(t *testing.T) {
	rt := NewRuntime()
	x := NewCell(rt, 1)
	y := NewCell(rt, 2)
	useX := true

	pick := NewMemo(rt, func() int {
		if useX {
			return x.Get()
		}
		return y.Get()
	})

	runs := 0
	r := NewReaction(rt, func() {
		runs++
		_ = pick.Get()
	})
	defer runtime.KeepAlive(r)

	y.Set(3)
	if runs != 1 {
		t.Errorf("y was never read during collection, got %d runs", runs)
	}

	x.Set(5)
	if runs != 2 {
		t.Errorf("expected replay after x write, got %d runs", runs)
	}
}

func TestReactionDependencySetIsFixed(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 1)
	b := NewCell(rt, 100)

	runs := 0
	r := NewReaction(rt, func() {
		runs++
		if a.Get() > 10 {
			_ = b.Get()
		}
	})
	defer runtime.KeepAlive(r)

	a.Set(20)
	if runs != 2 {
		t.Fatalf("expected replay, got %d runs", runs)
	}

	// The replay read b, but replays do not collect.
	b.Set(200)
	if runs != 2 {
		t.Errorf("b should not be subscribed, got %d runs", runs)
	}
	if b.reactions.len() != 0 {
		t.Errorf("expected no subscribers on b, got %d", b.reactions.len())
	}
}

func TestReactionIsolation(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 1)
	b := NewCell(rt, 1)

	aRuns, bRuns := 0, 0
	ra := NewReaction(rt, func() {
		aRuns++
		_ = a.Get()
	})
	rb := NewReaction(rt, func() {
		bRuns++
		_ = b.Get()
	})
	defer runtime.KeepAlive(ra)
	defer runtime.KeepAlive(rb)

	a.Set(2)
	if aRuns != 2 || bRuns != 1 {
		t.Errorf("expected only ra to replay, got aRuns=%d bRuns=%d", aRuns, bRuns)
	}

	b.Set(2)
	if aRuns != 2 || bRuns != 2 {
		t.Errorf("expected only rb to replay, got aRuns=%d bRuns=%d", aRuns, bRuns)
	}
}

func TestReactionDoesNotInheritTriggeredReads(t *testing.T) {
	rt := NewRuntime()
	source := NewCell(rt, 1)
	target := NewCell(rt, 0)
	other := NewCell(rt, "x")

	innerRuns := 0
	inner := NewReaction(rt, func() {
		innerRuns++
		_ = target.Get()
		_ = other.Get()
	})
	defer runtime.KeepAlive(inner)

	outerRuns := 0
	outer := NewReaction(rt, func() {
		outerRuns++
		// Replays inner, whose reads happen under its own non-collecting
		// frame and must not subscribe outer.
		target.Set(source.Get() * 10)
	})
	defer runtime.KeepAlive(outer)

	if innerRuns != 2 {
		t.Fatalf("expected inner to replay during outer's collecting pass, got %d runs", innerRuns)
	}
	if target.reactions.len() != 1 || other.reactions.len() != 1 {
		t.Errorf("expected only inner on target and other, got %d and %d",
			target.reactions.len(), other.reactions.len())
	}

	other.Set("y")
	if outerRuns != 1 {
		t.Errorf("outer must not be subscribed to other, got %d runs", outerRuns)
	}
	if innerRuns != 3 {
		t.Errorf("expected inner replay after other write, got %d runs", innerRuns)
	}

	source.Set(2)
	if outerRuns != 2 {
		t.Errorf("expected outer replay, got %d runs", outerRuns)
	}
	if innerRuns != 4 {
		t.Errorf("expected inner replay through target, got %d runs", innerRuns)
	}
	assertBalanced(t, rt)
}

func TestReactionNestedReplayUsesCache(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 1)
	trigger := NewCell(rt, 0)

	computes := 0
	m := NewMemo(rt, func() int {
		computes++
		return a.Get()
	})

	inner := NewReaction(rt, func() {
		_ = trigger.Get()
		_ = m.Get()
	})
	defer runtime.KeepAlive(inner)

	computesBefore := computes
	bypassesBefore := rt.Stats().CacheBypasses

	// outer's collecting pass triggers inner's replay; only the innermost
	// frame decides whether the cache is bypassed.
	outer := NewReaction(rt, func() {
		trigger.Set(trigger.Peek() + 1)
	})
	defer runtime.KeepAlive(outer)

	if computes != computesBefore {
		t.Errorf("nested replay should hit the cache, got %d extra computations", computes-computesBefore)
	}
	if got := rt.Stats().CacheBypasses; got != bypassesBefore {
		t.Errorf("expected no new bypasses, got %d", got-bypassesBefore)
	}
	if a.reactions.len() != 1 {
		t.Errorf("outer must not subscribe to a, got %d subscribers", a.reactions.len())
	}
}

func TestReactionSelfWrite(t *testing.T) {
	rt := NewRuntime()
	n := NewCell(rt, 0)

	runs := 0
	r := NewReaction(rt, func() {
		runs++
		if v := n.Get(); v < 3 {
			n.Set(v + 1)
		}
	})
	defer runtime.KeepAlive(r)

	if n.Peek() != 3 {
		t.Errorf("expected self-writes to converge at 3, got %d", n.Peek())
	}
	if runs != 4 {
		t.Errorf("expected 4 runs, got %d", runs)
	}
	assertBalanced(t, rt)
}

func TestReactionDispose(t *testing.T) {
	counter := newEventCounter()
	rt := NewRuntime(WithObserver(counter))
	a := NewCell(rt, 1)

	runs := 0
	r := NewReaction(rt, func() {
		runs++
		_ = a.Get()
	}, ReactionName("watcher"))

	r.Dispose()
	r.Dispose()

	if !r.Disposed() {
		t.Error("expected Disposed to be true")
	}
	if n := counter.count(r.ID(), EventReactionDispose); n != 1 {
		t.Errorf("expected 1 dispose event, got %d", n)
	}

	a.Set(2)
	if runs != 1 {
		t.Errorf("disposed reaction must not replay, got %d runs", runs)
	}
	if a.reactions.len() != 0 {
		t.Errorf("disposed reaction should be pruned, got %d", a.reactions.len())
	}
	if r.Label() != "watcher" {
		t.Errorf("expected label watcher, got %q", r.Label())
	}
}

func TestReactionDisposedDuringFlush(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 1)

	var second *Reaction
	secondRuns := 0

	first := NewReaction(rt, func() {
		if a.Get() > 1 {
			second.Dispose()
		}
	})
	second = NewReaction(rt, func() {
		secondRuns++
		_ = a.Get()
	})
	defer runtime.KeepAlive(first)

	a.Set(2)
	if secondRuns != 1 {
		t.Errorf("second was disposed before its turn, got %d runs", secondRuns)
	}
}

func TestReactionPanicLeavesStacksBalanced(t *testing.T) {
	rt := NewRuntime()
	a := NewCell(rt, 0)

	r := NewReaction(rt, func() {
		if a.Get() == 1 {
			panic("boom")
		}
	})
	defer runtime.KeepAlive(r)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate from replay")
			}
		}()
		a.Set(1)
	}()

	assertBalanced(t, rt)
}

func TestReactionEvents(t *testing.T) {
	counter := newEventCounter()
	rt := NewRuntime(WithObserver(counter))
	a := NewCell(rt, 1)

	r := NewReaction(rt, func() { _ = a.Get() })
	defer runtime.KeepAlive(r)

	if n := counter.count(r.ID(), EventReactionRun); n != 1 {
		t.Errorf("expected 1 run event, got %d", n)
	}
	if !counter.events[0].Collecting {
		t.Error("first run should be a collecting pass")
	}

	counter.reset()
	a.Set(2)

	var runs []Event
	for _, e := range counter.events {
		if e.Kind == EventReactionRun {
			runs = append(runs, e)
		}
	}
	if len(runs) != 1 || runs[0].Collecting {
		t.Errorf("expected one non-collecting replay, got %+v", runs)
	}

	s := rt.Stats()
	if s.CollectingRuns != 1 || s.Replays != 1 {
		t.Errorf("expected 1 collecting run and 1 replay, got %d and %d", s.CollectingRuns, s.Replays)
	}
}
