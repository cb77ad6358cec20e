package reactive

import "weak"

// reactionFrame is one entry of the reaction stack.
type reactionFrame struct {
	reaction weak.Pointer[Reaction]

	// collecting marks a pass that registers the reaction on every cell it
	// reads. Replays triggered by writes run with collecting == false.
	collecting bool
}

// stacks holds the two "currently evaluating" chains of a runtime.
//
// Both are strictly nested: every push is matched by a pop of the same entry
// before the enclosing call returns. Entries are weak so an evaluation never
// extends the lifetime of the memo or reaction it belongs to.
type stacks struct {
	memos     []weak.Pointer[memoNode]
	reactions []reactionFrame
}

func (s *stacks) pushMemo(m weak.Pointer[memoNode]) {
	s.memos = append(s.memos, m)
}

// popMemo removes the innermost memo. It must be the one pushed last.
func (s *stacks) popMemo(m weak.Pointer[memoNode]) weak.Pointer[memoNode] {
	n := len(s.memos)
	if n == 0 {
		invariant("popMemo", "memo stack is empty")
	}
	top := s.memos[n-1]
	if top != m {
		invariant("popMemo", "popped memo does not match the most recent push")
	}
	s.memos[n-1] = weak.Pointer[memoNode]{}
	s.memos = s.memos[:n-1]
	return top
}

// topMemo returns the memo currently evaluating, if any.
func (s *stacks) topMemo() (weak.Pointer[memoNode], bool) {
	if len(s.memos) == 0 {
		return weak.Pointer[memoNode]{}, false
	}
	return s.memos[len(s.memos)-1], true
}

func (s *stacks) pushReaction(r weak.Pointer[Reaction], collecting bool) {
	s.reactions = append(s.reactions, reactionFrame{reaction: r, collecting: collecting})
}

// popReaction removes the innermost reaction frame. Identity and collecting
// flag must both match the most recent push.
func (s *stacks) popReaction(r weak.Pointer[Reaction], collecting bool) {
	n := len(s.reactions)
	if n == 0 {
		invariant("popReaction", "reaction stack is empty")
	}
	top := s.reactions[n-1]
	if top.reaction != r {
		invariant("popReaction", "popped reaction does not match the most recent push")
	}
	if top.collecting != collecting {
		invariant("popReaction", "collecting flag mismatch: pushed %t, popped %t", top.collecting, collecting)
	}
	s.reactions[n-1] = reactionFrame{}
	s.reactions = s.reactions[:n-1]
}

// topReaction returns the innermost reaction frame, if any.
func (s *stacks) topReaction() (reactionFrame, bool) {
	if len(s.reactions) == 0 {
		return reactionFrame{}, false
	}
	return s.reactions[len(s.reactions)-1], true
}

// collecting reports whether the innermost reaction frame is a collecting
// pass. Only the innermost frame counts: a replay nested inside an outer
// collecting pass is not collecting.
func (s *stacks) collecting() bool {
	top, ok := s.topReaction()
	return ok && top.collecting
}

// depth returns the sizes of both stacks.
func (s *stacks) depth() (memos, reactions int) {
	return len(s.memos), len(s.reactions)
}
