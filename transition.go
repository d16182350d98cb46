package machina

import (
	"time"

	. "github.com/enetx/g"
)

// Transition is one potential state change. The kind discriminator selects
// which external trigger arms it: a named event, an elapsed-delay timer, or a
// broadcast signal. Transitions are created during definition and are
// structurally immutable afterwards; only their armed status toggles.
type Transition struct {
	machine *Machine

	kind      TriggerKind
	event     EventID
	signal    SignalID
	delay     time.Duration
	tolerance time.Duration

	from *State
	to   *State

	ifGuard     Guard
	unlessGuard Guard
	action      Action
	internal    bool

	// Armed-state handles, valid between arm and unarm.
	timer TimerHandle
	sub   Subscription
}

// key returns the (kind, value) bucket identity of the transition.
func (t *Transition) key() triggerKey {
	switch t.kind {
	case TriggerEvent:
		return triggerKey{kind: TriggerEvent, event: t.event}
	case TriggerTimer:
		return triggerKey{kind: TriggerTimer, delay: t.delay}
	default:
		return triggerKey{kind: TriggerSignal, signal: t.signal}
	}
}

// Source returns the source state identifier.
func (t *Transition) Source() StateID { return t.from.id }

// Destination returns the destination state identifier.
func (t *Transition) Destination() StateID { return t.to.id }

// Kind returns the trigger kind.
func (t *Transition) Kind() TriggerKind { return t.kind }

// allowed evaluates the if-guard before the unless-guard: an if-guard
// returning false disallows, then an unless-guard returning true disallows.
// No guards means always allowed.
func (t *Transition) allowed() bool {
	if t.ifGuard != nil && !t.ifGuard(t.machine) {
		return false
	}

	if t.unlessGuard != nil && t.unlessGuard(t.machine) {
		return false
	}

	return true
}

// arm subscribes the transition to its trigger source. Called only from the
// source state's enter, on the bound context.
func (t *Transition) arm() {
	m := t.machine

	switch t.kind {
	case TriggerEvent:
		// One slot per event name across the whole machine; arming
		// overwrites any prior occupant.
		m.events.Set(t.event, t)
	case TriggerTimer:
		t.timer = m.timers.Schedule(t.delay, t.tolerance, m.executor(), t.fire)
	case TriggerSignal:
		var sub Subscription
		exec := m.executor()

		sub = m.bus.Subscribe(t.signal, func() {
			exec.Dispatch(func() {
				// A delivery already in flight when the state exited lands
				// here after unarm; the handle no longer matches, drop it.
				if t.sub != sub {
					return
				}

				t.fire()
			})
		})

		t.sub = sub
	}
}

// unarm reverses arm. Idempotent against triggers that already fired.
func (t *Transition) unarm() {
	switch t.kind {
	case TriggerEvent:
		t.machine.events.Set(t.event, nil)
	case TriggerTimer:
		if t.timer != nil {
			t.timer.Cancel()
			t.timer = nil
		}
	case TriggerSignal:
		if t.sub != nil {
			t.sub.Unsubscribe()
			t.sub = nil
		}
	}
}

// fire re-enters through the source state's guarded resolution instead of
// executing directly: sibling transitions registered since arming must take
// part in guard filtering and ambiguity detection.
func (t *Transition) fire() {
	t.from.guardedExecute(t.key())
}

// execute performs the resolved state change: exit the source (unarming its
// transitions), run the action, enter the destination (arming its
// transitions). Internal transitions skip the exit/enter pair. The whole
// sequence runs synchronously with no re-entrant trigger processing.
func (t *Transition) execute() {
	m := t.machine

	if !t.internal {
		t.from.exit()
	}

	if t.action != nil {
		t.action(m)
	}

	if !t.internal {
		t.to.enter()
	}

	m.Log(t.describe())
}

// describe renders a kind-specific diagnostic line for the transition.
func (t *Transition) describe() String {
	prefix := String("")
	if t.internal {
		prefix = "internal "
	}

	switch t.kind {
	case TriggerEvent:
		return Format("{}transition {} -> {} on event {}", prefix, t.from.id, t.to.id, t.event)
	case TriggerTimer:
		return Format("{}transition {} -> {} after {}", prefix, t.from.id, t.to.id, t.delay)
	default:
		return Format("{}transition {} -> {} on signal {}", prefix, t.from.id, t.to.id, t.signal)
	}
}
