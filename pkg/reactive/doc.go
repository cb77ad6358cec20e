// Package reactive provides a fine-grained, single-threaded reactive
// dependency-tracking engine.
//
// Three primitives discover their data dependencies while they evaluate and
// re-evaluate only the affected part of the graph when a dependency changes.
//
// # Core Types
//
// Cell[T] is a mutable reactive value:
//
//	rt := reactive.NewRuntime()
//	count := reactive.NewCell(rt, 0)
//	value := count.Get()  // Read (registers the current memo / collecting reaction)
//	count.Set(5)          // Write (invalidates dependents, replays reactions)
//
// Memo[T] is a cached pure computation. Results live in the runtime's
// bounded LRU result cache, keyed by the memo's identity:
//
//	doubled := reactive.NewMemo(rt, func() int { return count.Get() * 2 })
//	value := doubled.Get()  // Recomputes only after an upstream write
//
// Reaction runs a side effect immediately and again whenever a cell it read
// during its collecting pass changes:
//
//	r := reactive.NewReaction(rt, func() {
//	    fmt.Println("Count is:", count.Get())
//	})
//	defer r.Dispose()
//
// # Ownership
//
// Cells and memos keep only weak back-references to the memos and reactions
// that read them. A reaction or memo whose handle becomes unreachable is
// collected by the garbage collector and pruned from the graph on the next
// traversal that meets it. Keep the handle (or create the reaction through a
// Scope) for as long as it should stay subscribed.
//
// # Threading
//
// A Runtime and everything created from it must be used from one goroutine.
// Writes propagate synchronously: invalidation and reaction replay finish
// before Set returns. A reaction that writes to a cell it transitively reads
// recurses without bound; the engine does not detect this.
package reactive
