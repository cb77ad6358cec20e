package reactive

import "weak"

// Reaction is a side effect that runs immediately on creation and replays
// whenever a cell it read during its collecting pass changes.
//
// A reaction runs at construction unless it is created on a disposed Scope.
// It is always a leaf of the dependency graph. Its dependency set is
// fixed by the collecting pass: replays run untracked, so a replay never
// subscribes the reaction to new cells and never lends the reaction to
// reads made by other reactions it triggers.
type Reaction struct {
	id    uint64
	label string
	rt    *Runtime

	body func()
	self weak.Pointer[Reaction]

	disposed bool
}

// ReactionOption configures a Reaction.
type ReactionOption func(*Reaction)

// ReactionName sets the label used in logs, events and metrics. It must be
// given at construction because the reaction runs before the constructor
// returns.
func ReactionName(label string) ReactionOption {
	return func(r *Reaction) {
		r.label = label
	}
}

// NewReaction creates a reaction and runs body once as its collecting pass.
// Every cell body reads, directly or through memos, subscribes the reaction.
//
// The returned handle owns the reaction. Once it is unreachable the reaction
// is garbage collected and cells drop it; keep it, or call Dispose to stop
// it deterministically.
//
// Scope.Reaction and Scope.ReactionWithDeps on a disposed scope are the one
// exception to the eager run: they return an already disposed reaction
// without running anything.
func NewReaction(rt *Runtime, body func(), opts ...ReactionOption) *Reaction {
	r := newReaction(rt, body, opts)
	r.collect(nil)
	return r
}

// NewReactionWithDeps creates a reaction whose dependencies are declared by
// deps. deps runs as the collecting pass; body then runs once untracked, so
// cells body happens to read on its first branch are not subscribed unless
// deps read them too.
func NewReactionWithDeps(rt *Runtime, body, deps func(), opts ...ReactionOption) *Reaction {
	r := newReaction(rt, body, opts)
	r.collect(deps)
	r.replayUntracked()
	return r
}

func newReaction(rt *Runtime, body func(), opts []ReactionOption) *Reaction {
	r := &Reaction{
		id:   nextID(),
		rt:   rt,
		body: body,
	}
	r.self = weak.Make(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispose stops the reaction. Cells drop it on their next write. Disposing
// twice is a no-op.
func (r *Reaction) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	r.rt.logger.Debug("reaction disposed", "reaction", r.ref().String())
	r.rt.emit(Event{Kind: EventReactionDispose, Node: r.ref()})
}

// Disposed reports whether Dispose has been called.
func (r *Reaction) Disposed() bool {
	return r.disposed
}

// ID returns the unique identifier for this reaction.
func (r *Reaction) ID() uint64 {
	return r.id
}

// Label returns the label set by ReactionName.
func (r *Reaction) Label() string {
	return r.label
}

// collect runs the collecting pass: deps when given, otherwise the body.
func (r *Reaction) collect(deps func()) {
	rt := r.rt
	rt.stacks.pushReaction(r.self, true)
	defer rt.stacks.popReaction(r.self, true)

	rt.stats.CollectingRuns++
	rt.emit(Event{Kind: EventReactionRun, Node: r.ref(), Collecting: true})
	defer rt.emit(Event{Kind: EventReactionDone, Node: r.ref(), Collecting: true})

	if deps != nil {
		deps()
		return
	}
	r.run()
}

// replayUntracked runs the body with a non-collecting frame on top of the
// reaction stack.
func (r *Reaction) replayUntracked() {
	if r.disposed {
		return
	}
	rt := r.rt
	rt.stacks.pushReaction(r.self, false)
	defer rt.stacks.popReaction(r.self, false)

	rt.stats.Replays++
	rt.emit(Event{Kind: EventReactionRun, Node: r.ref()})
	defer rt.emit(Event{Kind: EventReactionDone, Node: r.ref()})

	r.run()
}

// run executes the body. The reaction must be the innermost frame of the
// reaction stack; anything else means it was invoked outside the engine's
// own scheduling.
func (r *Reaction) run() {
	top, ok := r.rt.stacks.topReaction()
	if !ok {
		invariant("Reaction.run", "%s run with an empty reaction stack", r.ref())
	}
	if top.reaction != r.self {
		invariant("Reaction.run", "%s run while another reaction is on top of the stack", r.ref())
	}
	r.body()
}

func (r *Reaction) ref() NodeRef {
	return NodeRef{ID: r.id, Label: r.label, Type: NodeReaction}
}
