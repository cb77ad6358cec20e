package reactive

// Scope owns a group of reactions and keeps them alive until it is
// disposed. Disposing a scope disposes its child scopes, its reactions and
// runs its cleanup functions, so a whole subtree of reactive work can be torn
// down without waiting for the garbage collector.
//
// Scopes form a hierarchy: a scope created with a parent is disposed along
// with it.
type Scope struct {
	id uint64
	rt *Runtime

	parent   *Scope
	children []*Scope

	reactions []*Reaction
	cleanups  []func()

	disposed bool
}

// NewScope creates a scope. If parent is non-nil the scope is registered as
// its child.
func NewScope(rt *Runtime, parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		rt:     rt,
		parent: parent,
	}
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Disposed reports whether the scope has been disposed.
func (s *Scope) Disposed() bool {
	return s.disposed
}

// Reaction creates a reaction owned by the scope. On a disposed scope the
// reaction is created already disposed and its body does not run, not even
// the initial collecting pass NewReaction performs.
func (s *Scope) Reaction(body func(), opts ...ReactionOption) *Reaction {
	if s.disposed {
		r := newReaction(s.rt, body, opts)
		r.disposed = true
		return r
	}
	r := NewReaction(s.rt, body, opts...)
	s.reactions = append(s.reactions, r)
	return r
}

// ReactionWithDeps creates a reaction with a dependency closure, owned by
// the scope. On a disposed scope neither deps nor body runs.
func (s *Scope) ReactionWithDeps(body, deps func(), opts ...ReactionOption) *Reaction {
	if s.disposed {
		r := newReaction(s.rt, body, opts)
		r.disposed = true
		return r
	}
	r := NewReactionWithDeps(s.rt, body, deps, opts...)
	s.reactions = append(s.reactions, r)
	return r
}

// Adopt transfers ownership of an existing reaction to the scope.
func (s *Scope) Adopt(r *Reaction) {
	if s.disposed {
		r.Dispose()
		return
	}
	s.reactions = append(s.reactions, r)
}

// OnCleanup registers fn to run when the scope is disposed. On a disposed
// scope fn runs immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// Len returns the number of reactions the scope owns.
func (s *Scope) Len() int {
	return len(s.reactions)
}

// Dispose disposes children (most recent first), then reactions, then runs
// cleanups in reverse registration order. Disposing twice is a no-op.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	for i := len(s.children) - 1; i >= 0; i-- {
		s.children[i].Dispose()
	}
	s.children = nil

	for _, r := range s.reactions {
		r.Dispose()
	}
	s.reactions = nil

	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil

	if s.parent != nil {
		s.parent.removeChild(s)
	}
}

func (s *Scope) removeChild(child *Scope) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}
