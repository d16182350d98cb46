// Package machina implements a finite-state-machine engine whose transitions
// are armed by three independent trigger kinds: caller-raised named events,
// elapsed-delay timers, and broadcast signals. All state mutation is confined
// to a single bound execution context, enforced by runtime affinity checks
// instead of locks. Trigger collaborators (Executor, TimerService, SignalBus)
// are injected and substitutable with in-memory fakes.
package machina

import (
	. "github.com/enetx/g"
	"go.uber.org/zap"
)

// Machine is the engine: it owns the current-state pointer, the flat
// event-dispatch table and the bound-context handle. A machine begins in the
// implicit awaiting-start state whose sole outgoing transition fires on the
// reserved start event.
type Machine struct {
	name    String
	verbose bool
	logger  *zap.Logger

	timers TimerService
	bus    SignalBus

	// bound is nil until Start, then immutable.
	bound Executor

	states Map[StateID, *State]
	// events is the flat event table: one slot per event name across the
	// whole machine. Arming overwrites the slot, unarming writes nil.
	events Map[EventID, *Transition]

	// current may be transiently nil between an exit and the next enter.
	current *State

	started bool
	termSeq int
}

// MachineOption configures a machine at construction.
type MachineOption func(*Machine)

// WithName sets the machine's diagnostic name.
func WithName(name String) MachineOption {
	return func(m *Machine) { m.name = name }
}

// WithVerbose enables diagnostic logging. Without an explicit WithLogger the
// machine upgrades from the no-op logger to a zap development logger.
func WithVerbose() MachineOption {
	return func(m *Machine) { m.verbose = true }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) MachineOption {
	return func(m *Machine) { m.logger = logger }
}

// WithTimers injects the timer service backing timer transitions.
func WithTimers(timers TimerService) MachineOption {
	return func(m *Machine) { m.timers = timers }
}

// WithBus injects the signal bus backing signal transitions.
func WithBus(bus SignalBus) MachineOption {
	return func(m *Machine) { m.bus = bus }
}

// New creates a machine whose declared start state is start. The machine
// enters its implicit awaiting-start state immediately, arming the reserved
// start transition; no execution context is bound until Start.
func New(start StateID, opts ...MachineOption) *Machine {
	if start == "" {
		panic(&ErrInvalidConfig{Reason: "missing start state"})
	}

	m := &Machine{
		name:   String(start),
		timers: SystemTimers,
		bus:    SystemBus,
		states: NewMap[StateID, *State](),
		events: NewMap[EventID, *Transition](),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		if m.verbose {
			m.logger = zap.Must(zap.NewDevelopment())
		} else {
			m.logger = zap.NewNop()
		}
	}

	awaiting := m.State(AwaitingStart)
	declared := m.State(start)

	awaiting.register(&Transition{
		machine: m,
		kind:    TriggerEvent,
		event:   EventStart,
		from:    awaiting,
		to:      declared,
	})

	awaiting.enter()

	return m
}

// State returns the state for id, creating it on first use. The optional
// name is a display name for diagnostics; the identifier itself is used when
// none is given.
func (m *Machine) State(id StateID, name ...String) *State {
	m.checkAffinity("State")

	if id == "" {
		panic(&ErrInvalidConfig{Reason: "empty state identifier"})
	}

	if s := m.states.Get(id); s.IsSome() {
		return s.Some()
	}

	display := String(id)
	if len(name) > 0 {
		display = name[0]
	}

	s := newState(m, id, display)
	m.states.Set(id, s)

	return s
}

// Define opens a configuration scope for the identified state. Transitions
// registered by the configurator materialize, and validate, when it returns.
func (m *Machine) Define(id StateID, configure func(*StateConfig)) *Machine {
	m.checkAffinity("Define")

	cfg := &StateConfig{machine: m, state: m.State(id)}
	configure(cfg)
	cfg.build()

	return m
}

// Start binds the machine to whatever execution context the call runs on,
// exactly once, then raises the reserved start event. The binding is
// permanent; every mutating operation afterwards must run on that context.
func (m *Machine) Start() {
	if m.started {
		panic(&ErrInvalidConfig{Reason: "machine already started"})
	}

	m.bound = CurrentExecutor()
	m.started = true

	m.Log(Format("machine {} started", m.name))
	m.RaiseEvent(EventStart)
}

// RaiseEvent fires the transition currently armed for name, resolved against
// the live outgoing set of its source state. Unknown or currently-unarmed
// event names are ignored.
func (m *Machine) RaiseEvent(name EventID) {
	m.checkAffinity("RaiseEvent")

	slot := m.events.Get(name)
	if slot.IsNone() || slot.Some() == nil {
		m.Log(Format("event {} ignored: no armed transition", name))
		return
	}

	t := slot.Some()
	t.from.guardedExecute(t.key())
}

// Current returns a snapshot of the current state. The zero Snapshot means
// the machine is transiently between states or stopped.
func (m *Machine) Current() Snapshot {
	m.checkAffinity("Current")

	if m.current == nil {
		return Snapshot{}
	}

	return Snapshot{ID: m.current.id, Name: m.current.name, Terminating: m.current.terminating}
}

// Terminated reports whether the current state is terminating.
func (m *Machine) Terminated() bool {
	m.checkAffinity("Terminated")
	return m.current != nil && m.current.terminating
}

// Stop tears the machine down best-effort: the current state is exited and
// per-state resources are released. Minimally supported; a stopped machine
// cannot be restarted.
func (m *Machine) Stop() {
	m.checkAffinity("Stop")

	if m.current != nil {
		m.current.exit()
	}

	for _, s := range m.states.Iter() {
		s.cleanup()
	}

	m.states = NewMap[StateID, *State]()
	m.events = NewMap[EventID, *Transition]()

	m.Log(Format("machine {} stopped", m.name))
}

// Log writes text through the machine's logger. No-op unless verbose.
func (m *Machine) Log(text String) {
	if m.verbose {
		m.logger.Info(string(text), zap.String("machine", string(m.name)))
	}
}

// checkAffinity asserts the caller runs on the bound context. Vacuous until
// Start binds one.
func (m *Machine) checkAffinity(op string) {
	if m.bound == nil {
		return
	}

	if !m.bound.IsCurrent() {
		panic(&ErrAffinity{Machine: m.name, Op: op})
	}
}

// executor returns the bound context for trigger collaborators.
func (m *Machine) executor() Executor {
	if m.bound == nil {
		panic(&ErrAffinity{Machine: m.name, Op: "arming a trigger before Start"})
	}

	return m.bound
}
