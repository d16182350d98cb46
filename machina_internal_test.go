package machina

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/enetx/g"
)

func mustPanic(t *testing.T, fn func()) error {
	t.Helper()

	var recovered any

	func() {
		defer func() { recovered = recover() }()
		fn()
	}()

	require.NotNil(t, recovered, "expected a panic")

	err, ok := recovered.(error)
	require.True(t, ok, "panic value is not an error: %v", recovered)

	return err
}

func boolGuard(v bool) Guard {
	return func(*Machine) bool { return v }
}

// Guard resolution: the if-guard is consulted first and disallows on false;
// the unless-guard is consulted second and disallows on true. Absent guards
// never disallow.
func TestTransitionGuards_Grid(t *testing.T) {
	tru, fls := true, false

	tests := []struct {
		name    string
		ifG     *bool
		unlessG *bool
		want    bool
	}{
		{"no guards", nil, nil, true},
		{"unless false", nil, &fls, true},
		{"unless true", nil, &tru, false},
		{"if false", &fls, nil, false},
		{"if false, unless false", &fls, &fls, false},
		{"if false, unless true", &fls, &tru, false},
		{"if true", &tru, nil, true},
		{"if true, unless false", &tru, &fls, true},
		{"if true, unless true", &tru, &tru, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Transition{}
			if tt.ifG != nil {
				tr.ifGuard = boolGuard(*tt.ifG)
			}
			if tt.unlessG != nil {
				tr.unlessGuard = boolGuard(*tt.unlessG)
			}

			require.Equal(t, tt.want, tr.allowed())
		})
	}
}

func TestGuardedExecute_UnregisteredTrigger(t *testing.T) {
	m := New("a")
	s := m.states.Get("a").Some()

	err := mustPanic(t, func() {
		s.guardedExecute(triggerKey{kind: TriggerEvent, event: "nope"})
	})

	var unreg *ErrUnregisteredTrigger
	require.ErrorAs(t, err, &unreg)
	require.Equal(t, StateID("a"), unreg.State)
	require.Equal(t, "event nope", string(unreg.Trigger))
}

func TestGuardedExecute_EmptyBucketIsSilent(t *testing.T) {
	m := New("a")
	s := m.states.Get("a").Some()

	key := triggerKey{kind: TriggerEvent, event: "gone"}
	s.outgoing.Set(key, Slice[*Transition]{})

	require.NotPanics(t, func() { s.guardedExecute(key) })
	require.Equal(t, AwaitingStart, m.current.id)
}

func TestGoroutineID(t *testing.T) {
	id := goroutineID()
	require.NotZero(t, id)
	require.Equal(t, id, goroutineID(), "id must be stable within a goroutine")

	otherCh := make(chan uint64, 1)
	go func() { otherCh <- goroutineID() }()

	other := <-otherCh
	require.NotZero(t, other)
	require.NotEqual(t, id, other)
}

func TestTriggerKind_String(t *testing.T) {
	require.Equal(t, "event", TriggerEvent.String())
	require.Equal(t, "timer", TriggerTimer.String())
	require.Equal(t, "signal", TriggerSignal.String())
	require.Equal(t, "unknown", TriggerKind(42).String())
}

func TestTriggerKey_Describe(t *testing.T) {
	require.Equal(t, String("event go"), triggerKey{kind: TriggerEvent, event: "go"}.describe())
	require.Equal(t, String("timer 1s"), triggerKey{kind: TriggerTimer, delay: time.Second}.describe())
	require.Equal(t, String("signal sos"), triggerKey{kind: TriggerSignal, signal: "sos"}.describe())
}

func TestTransition_Accessors(t *testing.T) {
	m := New("a")
	m.Define("a", func(s *StateConfig) { s.On("go").To("b") })

	s := m.states.Get("a").Some()
	bucket := s.outgoing.Get(triggerKey{kind: TriggerEvent, event: "go"}).Some()
	require.Len(t, []*Transition(bucket), 1)

	tr := bucket[0]
	require.Equal(t, StateID("a"), tr.Source())
	require.Equal(t, StateID("b"), tr.Destination())
	require.Equal(t, TriggerEvent, tr.Kind())
}
