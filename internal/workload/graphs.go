package workload

import (
	"github.com/vango-dev/reactivecache/pkg/reactive"
)

func init() {
	register(Workload{
		Name:        "scenario",
		Description: "A=10, B=5, C=A+B, D=C*2: read counts, laziness and a watching reaction",
		Run:         runScenario,
	})
	register(Workload{
		Name:        "chain",
		Description: "one cell feeding a chain of memos, read from the tail after every write",
		Run:         runChain,
	})
	register(Workload{
		Name:        "diamond",
		Description: "two memos over one cell joined by a third, watched by a reaction",
		Run:         runDiamond,
	})
	register(Workload{
		Name:        "fanout",
		Description: "one cell feeding many memos, each watched by its own reaction",
		Run:         runFanOut,
	})
	register(Workload{
		Name:        "pressure",
		Description: "one more memo than the cache holds, showing least-recently-used eviction",
		Run:         runPressure,
	})
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func runScenario(env *Env) error {
	rt := env.Runtime
	reads := func() uint64 { return rt.Stats().CellReads }

	a := reactive.NewCell(rt, 10).Named("A")
	b := reactive.NewCell(rt, 5).Named("B")
	cRuns := 0
	c := reactive.NewMemo(rt, func() int {
		cRuns++
		return a.Get() + b.Get()
	}).Named("C")
	d := reactive.NewMemo(rt, func() int { return c.Get() * 2 }).Named("D")

	before := reads()
	got := d.Get()
	env.Logger.Info("first read", "D", got, "cell_reads", reads()-before)
	if err := firstFailure(
		check("scenario", "D", got, 30),
		check("scenario", "cell reads on first D", reads()-before, uint64(2)),
	); err != nil {
		return err
	}

	before = reads()
	got = d.Get()
	env.Logger.Info("cached read", "D", got, "cell_reads", reads()-before)
	if err := check("scenario", "cell reads on cached D", reads()-before, uint64(0)); err != nil {
		return err
	}

	a.Set(20)
	before = reads()
	got = d.Get()
	env.Logger.Info("read after A=20", "D", got, "C_runs", cRuns)
	if err := firstFailure(
		check("scenario", "D", got, 50),
		check("scenario", "cell reads after write", reads()-before, uint64(2)),
		check("scenario", "C computations", cRuns, 2),
	); err != nil {
		return err
	}

	if changed := a.Set(20); changed {
		return check("scenario", "unchanged write reported change", changed, false)
	}

	runs := 0
	watch := reactive.NewReaction(rt, func() {
		runs++
		env.Logger.Info("reaction saw D", "D", d.Get())
	}, reactive.ReactionName("watch-D"))

	b.Set(6)
	if err := firstFailure(
		check("scenario", "reaction runs", runs, 2),
		check("scenario", "D", d.Peek(), 52),
	); err != nil {
		return err
	}

	watch.Dispose()
	b.Set(7)
	return check("scenario", "reaction runs after dispose", runs, 2)
}

func runChain(env *Env) error {
	rt := env.Runtime
	n := atLeastOne(env.Params.ChainLength)

	src := reactive.NewCell(rt, 0).Named("head")
	prev := src.Get
	memos := make([]*reactive.Memo[int], n)
	for i := range memos {
		up := prev
		memos[i] = reactive.NewMemo(rt, func() int { return up() + 1 })
		prev = memos[i].Get
	}
	tail := memos[n-1].Named("tail")

	if err := check("chain", "tail", tail.Get(), n); err != nil {
		return err
	}
	for w := 1; w <= env.Params.Writes; w++ {
		src.Set(w)
		if err := check("chain", "tail", tail.Get(), w+n); err != nil {
			return err
		}
	}

	st := rt.Stats()
	env.Logger.Debug("chain done", "length", n, "computes", st.MemoComputes, "evictions", st.CacheEvictions)
	if n <= rt.CacheCapacity() {
		want := uint64(n * (env.Params.Writes + 1))
		return check("chain", "memo computations", st.MemoComputes, want)
	}
	return nil
}

func runDiamond(env *Env) error {
	rt := env.Runtime

	a := reactive.NewCell(rt, 0).Named("a")
	left := reactive.NewMemo(rt, func() int { return a.Get() + 1 }).Named("left")
	right := reactive.NewMemo(rt, func() int { return a.Get() * 2 }).Named("right")
	joinRuns := 0
	join := reactive.NewMemo(rt, func() int {
		joinRuns++
		return left.Get() + right.Get()
	}).Named("join")

	runs := 0
	watch := reactive.NewReaction(rt, func() {
		runs++
		_ = join.Get()
	}, reactive.ReactionName("watch-join"))
	defer watch.Dispose()

	for w := 1; w <= env.Params.Writes; w++ {
		a.Set(w)
		if err := check("diamond", "join", join.Peek(), 3*w+1); err != nil {
			return err
		}
	}

	env.Logger.Debug("diamond done", "reaction_runs", runs, "join_runs", joinRuns)
	return firstFailure(
		check("diamond", "reaction runs", runs, env.Params.Writes+1),
		check("diamond", "join computations", joinRuns, env.Params.Writes+1),
	)
}

func runFanOut(env *Env) error {
	rt := env.Runtime
	n := atLeastOne(env.Params.FanOut)

	src := reactive.NewCell(rt, 1).Named("source")
	scope := reactive.NewScope(rt, nil)
	defer scope.Dispose()

	memos := make([]*reactive.Memo[int], n)
	runs := 0
	for i := range memos {
		factor := i + 1
		m := reactive.NewMemo(rt, func() int { return src.Get() * factor })
		memos[i] = m
		scope.Reaction(func() {
			runs++
			_ = m.Get()
		})
	}

	weights := n * (n + 1) / 2
	for w := 2; w <= env.Params.Writes+1; w++ {
		src.Set(w)
		sum := 0
		for _, m := range memos {
			sum += m.Peek()
		}
		if err := check("fanout", "sum of memos", sum, w*weights); err != nil {
			return err
		}
	}
	if err := check("fanout", "reaction runs", runs, n*(env.Params.Writes+1)); err != nil {
		return err
	}

	scope.Dispose()
	src.Set(-1)
	return check("fanout", "reaction runs after dispose", runs, n*(env.Params.Writes+1))
}

func runPressure(env *Env) error {
	rt := env.Runtime
	capacity := rt.CacheCapacity()

	computes := make([]int, capacity+1)
	memos := make([]*reactive.Memo[int], capacity+1)
	for i := range memos {
		memos[i] = reactive.NewMemo(rt, func() int {
			computes[i]++
			return i
		})
	}
	for _, m := range memos {
		_ = m.Get()
	}

	cached := 0
	for _, m := range memos[1:] {
		if m.Cached() {
			cached++
		}
	}
	env.Logger.Debug("cache filled", "capacity", capacity, "entries", rt.CacheLen())
	if err := firstFailure(
		check("pressure", "first memo cached", memos[0].Cached(), false),
		check("pressure", "other memos cached", cached, capacity),
		check("pressure", "evictions", rt.Stats().CacheEvictions, uint64(1)),
	); err != nil {
		return err
	}

	// Reading the evicted memo recomputes it and pushes out the next oldest.
	_ = memos[0].Get()
	return firstFailure(
		check("pressure", "first memo computations", computes[0], 2),
		check("pressure", "second memo cached", memos[1].Cached(), false),
	)
}
