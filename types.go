package machina

import (
	"time"

	. "github.com/enetx/g"
)

type (
	// StateID identifies a state within a machine. IDs are opaque,
	// comparable tokens; a machine holds exactly one State per ID.
	StateID String
	// EventID names a caller-raised event.
	EventID String
	// SignalID names a broadcast signal delivered through a SignalBus.
	SignalID String
)

type (
	// Action is an entry, exit or transition callback. Actions receive the
	// owning machine and must return promptly; long-running work belongs
	// outside the engine.
	Action func(m *Machine)
	// Guard is a transition predicate. Guards receive the owning machine,
	// may read external state and must be fast and non-blocking.
	Guard func(m *Machine) bool
)

// TriggerKind discriminates how a transition becomes armed and unarmed.
type TriggerKind int

const (
	// TriggerEvent arms by occupying the machine's flat event slot.
	TriggerEvent TriggerKind = iota
	// TriggerTimer arms by scheduling a one-shot timer on the bound executor.
	TriggerTimer
	// TriggerSignal arms by subscribing to a named broadcast signal.
	TriggerSignal
)

// kindNames is the static kind -> name table.
var kindNames = [...]string{
	TriggerEvent:  "event",
	TriggerTimer:  "timer",
	TriggerSignal: "signal",
}

func (k TriggerKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "unknown"
}

// EventStart is the reserved event that moves a machine out of its implicit
// awaiting-start state. Start raises it after binding the execution context.
const EventStart EventID = "start"

// AwaitingStart is the identifier of the implicit state every machine is in
// between construction and Start.
const AwaitingStart StateID = "awaiting-start"

// DefaultTolerance is the scheduling leeway applied to timer transitions
// that do not set one explicitly.
const DefaultTolerance = time.Millisecond

// triggerKey identifies one (kind, value) bucket in a state's outgoing map.
// Exactly one of event, signal or delay is meaningful, selected by kind.
type triggerKey struct {
	kind   TriggerKind
	event  EventID
	signal SignalID
	delay  time.Duration
}

// describe renders the key for diagnostics and error messages.
func (k triggerKey) describe() String {
	switch k.kind {
	case TriggerEvent:
		return Format("event {}", k.event)
	case TriggerTimer:
		return Format("timer {}", k.delay)
	default:
		return Format("signal {}", k.signal)
	}
}

// Snapshot is a read-only view of a machine's current state.
type Snapshot struct {
	ID          StateID
	Name        String
	Terminating bool
}
