package workload

import (
	"github.com/vango-dev/reactivecache/pkg/reactive"
)

// Driver keeps a small live graph on a Runtime and advances it one write at
// a time. serve uses it to give the inspector something to watch.
//
// A Driver belongs to the goroutine that owns its Runtime.
type Driver struct {
	rt    *reactive.Runtime
	scope *reactive.Scope

	tick  *reactive.Cell[int]
	total *reactive.Memo[int]

	steps int
	runs  int
}

// InvalidateEvery is how many steps pass between forced invalidations.
const InvalidateEvery = 10

// NewDriver builds a tick cell feeding fanOut memos, their total, and a
// reaction watching the total.
func NewDriver(rt *reactive.Runtime, fanOut int) *Driver {
	fanOut = atLeastOne(fanOut)
	d := &Driver{
		rt:    rt,
		scope: reactive.NewScope(rt, nil),
		tick:  reactive.NewCell(rt, 0).Named("tick"),
	}

	parts := make([]*reactive.Memo[int], fanOut)
	for i := range parts {
		factor := i + 1
		parts[i] = reactive.NewMemo(rt, func() int { return d.tick.Get() * factor })
	}
	d.total = reactive.NewMemo(rt, func() int {
		sum := 0
		for _, p := range parts {
			sum += p.Get()
		}
		return sum
	}).Named("total")

	d.scope.Reaction(func() {
		d.runs++
		_ = d.total.Get()
	}, reactive.ReactionName("watch-total"))
	return d
}

// Step advances the tick (or force-invalidates it every InvalidateEvery
// steps) and returns the new total.
func (d *Driver) Step() int {
	d.steps++
	if d.steps%InvalidateEvery == 0 {
		d.tick.Invalidate()
	} else {
		d.tick.Update(func(v int) int { return v + 1 })
	}
	return d.total.Peek()
}

// Steps returns the number of Step calls.
func (d *Driver) Steps() int {
	return d.steps
}

// Runs returns how many times the watching reaction has run.
func (d *Driver) Runs() int {
	return d.runs
}

// Close disposes the driver's reaction.
func (d *Driver) Close() {
	d.scope.Dispose()
}
