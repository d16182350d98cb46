package machina

import (
	"fmt"
	"strings"

	. "github.com/enetx/g"
)

// ErrInvalidConfig reports a definition-time misuse: a missing start state,
// an empty identifier, a trigger value that does not match the declared kind,
// or an internal transition whose endpoints differ. The engine panics with
// this value at construction time, before the transition is ever armed.
type ErrInvalidConfig struct {
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return "machina: invalid configuration: " + e.Reason
}

// ErrAffinity reports an operation that ran off the machine's bound execution
// context. Mutating operations are never queued implicitly; calling them from
// the wrong context is a hard failure.
type ErrAffinity struct {
	Machine String
	Op      string
}

func (e *ErrAffinity) Error() string {
	if e.Machine != "" {
		return fmt.Sprintf("machina: %s called off the bound context of machine %q", e.Op, e.Machine)
	}

	return fmt.Sprintf("machina: %s called off the bound context", e.Op)
}

// ErrUnregisteredTrigger reports a trigger firing for a (kind, value) pair
// that was never declared in the source state. A trigger can only fire while
// armed, so reaching this is a wiring defect in a custom collaborator.
type ErrUnregisteredTrigger struct {
	State   StateID
	Trigger String
}

func (e *ErrUnregisteredTrigger) Error() string {
	return fmt.Sprintf("machina: %s fired in state %q but was never registered there", e.Trigger, e.State)
}

// ErrAmbiguousTransition reports more than one guard-allowed transition for a
// fired (kind, value) pair. The machine's behavior would be non-deterministic,
// so resolution aborts; the competing destinations need mutually-exclusive
// guards.
type ErrAmbiguousTransition struct {
	State        StateID
	Trigger      String
	Destinations Slice[StateID]
}

func (e *ErrAmbiguousTransition) Error() string {
	names := make([]string, 0, e.Destinations.Len())
	for _, id := range e.Destinations {
		names = append(names, fmt.Sprintf("%q", string(id)))
	}

	return fmt.Sprintf("machina: ambiguous %s in state %q; allowed destinations: %s; add mutually-exclusive guards",
		e.Trigger, e.State, strings.Join(names, ", "))
}
