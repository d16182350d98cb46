package machina

import . "github.com/enetx/g"

// State owns its entry/exit action lists and the outgoing-transition map.
// Arming order is map insertion order, then bucket order; exit unarms the
// same set in the same order, which is the sole mechanism keeping "currently
// subscribed triggers" in sync with "outgoing transitions of the current
// state".
type State struct {
	machine *Machine

	id   StateID
	name String

	entry       Slice[Action]
	exitActions Slice[Action]

	order    Slice[triggerKey]
	outgoing Map[triggerKey, Slice[*Transition]]

	terminating bool
}

func newState(m *Machine, id StateID, name String) *State {
	return &State{
		machine:  m,
		id:       id,
		name:     name,
		outgoing: NewMap[triggerKey, Slice[*Transition]](),
	}
}

// ID returns the state identifier.
func (s *State) ID() StateID { return s.id }

// Name returns the display name, used for diagnostics only.
func (s *State) Name() String { return s.name }

// Terminating reports whether the state absorbs all further triggers.
func (s *State) Terminating() bool { return s.terminating }

// register appends t to its (kind, value) bucket and returns it. Insertion
// order within a bucket is the tie-break and report order.
func (s *State) register(t *Transition) *Transition {
	key := t.key()

	if !s.outgoing.Contains(key) {
		s.order.Push(key)
	}

	s.outgoing.Entry(key).
		AndModify(func(bucket *Slice[*Transition]) { bucket.Push(t) }).
		OrInsert(SliceOf(t))

	return t
}

// enter makes s the machine's current state, runs entry actions in
// registration order, then arms every outgoing transition.
func (s *State) enter() {
	m := s.machine
	m.current = s

	for _, action := range s.entry {
		action(m)
	}

	for _, key := range s.order {
		for _, t := range s.outgoing.Get(key).Some() {
			t.arm()
		}
	}
}

// exit unarms every outgoing transition in arming order, runs exit actions in
// registration order, then clears the machine's current state.
func (s *State) exit() {
	m := s.machine

	for _, key := range s.order {
		for _, t := range s.outgoing.Get(key).Some() {
			t.unarm()
		}
	}

	for _, action := range s.exitActions {
		action(m)
	}

	m.current = nil
}

// guardedExecute resolves a fired (kind, value) pair against the live
// outgoing set. It must run on the bound context. Terminating states absorb
// every trigger. After guard filtering, exactly one transition may remain:
// zero is a logged no-op, more than one is a fatal design error.
func (s *State) guardedExecute(key triggerKey) {
	m := s.machine
	m.checkAffinity("guarded execution")

	if s.terminating {
		return
	}

	bucket := s.outgoing.Get(key)
	if bucket.IsNone() {
		panic(&ErrUnregisteredTrigger{State: s.id, Trigger: key.describe()})
	}

	if bucket.Some().Empty() {
		return
	}

	var eligible Slice[*Transition]
	for _, t := range bucket.Some() {
		if t.allowed() {
			eligible.Push(t)
		}
	}

	switch {
	case eligible.Empty():
		m.Log(Format("{} in state {}: all guards disallow, staying", key.describe(), s.id))
	case eligible.Len() == 1:
		eligible[0].execute()
	default:
		var destinations Slice[StateID]
		for _, t := range eligible {
			destinations.Push(t.to.id)
		}

		panic(&ErrAmbiguousTransition{State: s.id, Trigger: key.describe(), Destinations: destinations})
	}
}

// cleanup releases the outgoing map, action lists and owning-machine
// reference. The state is unusable afterwards; only Stop calls this.
func (s *State) cleanup() {
	s.entry = nil
	s.exitActions = nil
	s.order = nil
	s.outgoing = nil
	s.machine = nil
}
