package machina

import (
	"time"

	. "github.com/enetx/g"
)

// StateConfig is the configuration scope opened by Machine.Define. Entry and
// exit actions apply immediately; transitions accumulate and materialize when
// the configurator returns.
type StateConfig struct {
	machine *Machine
	state   *State
	pending Slice[*TransitionConfig]
}

// OnEntry appends an entry action. Entry actions run in registration order on
// every enter.
func (c *StateConfig) OnEntry(action Action) *StateConfig {
	c.state.entry.Push(action)
	return c
}

// OnExit appends an exit action. Exit actions run in registration order on
// every exit.
func (c *StateConfig) OnExit(action Action) *StateConfig {
	c.state.exitActions.Push(action)
	return c
}

// Terminating marks the state absorbing: once entered it ignores every
// further trigger.
func (c *StateConfig) Terminating() *StateConfig {
	c.state.terminating = true
	return c
}

// On begins an event-triggered transition for the named event.
func (c *StateConfig) On(event EventID) *TransitionConfig {
	tc := &TransitionConfig{owner: c, kind: TriggerEvent, event: event}
	c.pending.Push(tc)

	return tc
}

// After begins a timer-triggered transition firing once, delay after the
// state is entered, with DefaultTolerance leeway.
func (c *StateConfig) After(delay time.Duration) *TransitionConfig {
	tc := &TransitionConfig{owner: c, kind: TriggerTimer, delay: delay, tolerance: DefaultTolerance}
	c.pending.Push(tc)

	return tc
}

// OnSignal begins a signal-triggered transition for the named broadcast
// signal.
func (c *StateConfig) OnSignal(name SignalID) *TransitionConfig {
	tc := &TransitionConfig{owner: c, kind: TriggerSignal, signal: name}
	c.pending.Push(tc)

	return tc
}

// build materializes the accumulated transitions, validating each.
func (c *StateConfig) build() {
	for _, tc := range c.pending {
		c.register(tc)
	}

	c.pending = nil
}

func (c *StateConfig) register(tc *TransitionConfig) {
	m := c.machine
	from := c.state

	switch tc.kind {
	case TriggerEvent:
		if tc.event == "" {
			panic(&ErrInvalidConfig{Reason: "event transition missing event name"})
		}
	case TriggerTimer:
		if tc.delay <= 0 {
			panic(&ErrInvalidConfig{Reason: "timer transition requires a positive delay"})
		}
	case TriggerSignal:
		if tc.signal == "" {
			panic(&ErrInvalidConfig{Reason: "signal transition missing signal name"})
		}
	}

	var to *State

	switch {
	case tc.terminate:
		m.termSeq++
		to = m.State(StateID(Format("{}-terminated-{}", from.id, m.termSeq)))
		to.terminating = true
	case tc.internal:
		if tc.hasDest && tc.dest != from.id {
			panic(&ErrInvalidConfig{Reason: "internal transition must keep source and destination equal"})
		}

		to = from
	case tc.hasDest:
		to = m.State(tc.dest)
	default:
		panic(&ErrInvalidConfig{Reason: "transition missing destination"})
	}

	from.register(&Transition{
		machine:     m,
		kind:        tc.kind,
		event:       tc.event,
		signal:      tc.signal,
		delay:       tc.delay,
		tolerance:   tc.tolerance,
		from:        from,
		to:          to,
		ifGuard:     tc.ifGuard,
		unlessGuard: tc.unlessGuard,
		action:      tc.action,
		internal:    tc.internal,
	})
}

// TransitionConfig is the fluent per-transition builder returned by On, After
// and OnSignal.
type TransitionConfig struct {
	owner *StateConfig

	kind      TriggerKind
	event     EventID
	signal    SignalID
	delay     time.Duration
	tolerance time.Duration

	dest    StateID
	hasDest bool

	ifGuard     Guard
	unlessGuard Guard
	action      Action

	internal  bool
	terminate bool
}

// To sets the destination state, created lazily if it does not exist yet.
func (tc *TransitionConfig) To(id StateID) *TransitionConfig {
	tc.dest = id
	tc.hasDest = true

	return tc
}

// If sets the if-guard: the transition is disallowed when it returns false.
func (tc *TransitionConfig) If(guard Guard) *TransitionConfig {
	tc.ifGuard = guard
	return tc
}

// Unless sets the unless-guard: the transition is disallowed when it returns
// true. Evaluated after the if-guard.
func (tc *TransitionConfig) Unless(guard Guard) *TransitionConfig {
	tc.unlessGuard = guard
	return tc
}

// Do sets the action invoked between exiting the source and entering the
// destination.
func (tc *TransitionConfig) Do(action Action) *TransitionConfig {
	tc.action = action
	return tc
}

// Internal marks the transition internal: the state neither exits nor
// re-enters, entry/exit actions are skipped, and the destination is the
// source itself.
func (tc *TransitionConfig) Internal() *TransitionConfig {
	tc.internal = true
	return tc
}

// Tolerance overrides the timer scheduling leeway. Only meaningful for After
// transitions.
func (tc *TransitionConfig) Tolerance(d time.Duration) *TransitionConfig {
	if tc.kind != TriggerTimer {
		panic(&ErrInvalidConfig{Reason: "tolerance applies only to timer transitions"})
	}

	tc.tolerance = d

	return tc
}

// Terminate routes the transition to a fresh terminating state, created per
// call.
func (tc *TransitionConfig) Terminate() *TransitionConfig {
	tc.terminate = true
	return tc
}
