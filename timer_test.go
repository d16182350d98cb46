package machina_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/enetx/machina"
)

// currentID reads the machine's state from its bound queue.
func currentID(q *Queue, m *Machine) StateID {
	var id StateID
	q.Sync(func() { id = m.Current().ID })
	return id
}

// waitForState polls until the machine reaches want or the deadline passes.
func waitForState(t *testing.T, q *Queue, m *Machine, want StateID, deadline time.Duration) {
	t.Helper()

	until := time.Now().Add(deadline)
	for time.Now().Before(until) {
		if currentID(q, m) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, want, currentID(q, m))
}

func TestTimerTransition_FiresAfterDelay(t *testing.T) {
	q := NewQueue("timers")
	defer q.Close()

	var m *Machine
	entered := 0

	q.Sync(func() {
		m = New("wait")
		m.Define("wait", func(s *StateConfig) { s.After(500 * time.Millisecond).To("expired") })
		m.Define("expired", func(s *StateConfig) {
			s.OnEntry(func(*Machine) { entered++ })
		})
		m.Start()
	})

	time.Sleep(450 * time.Millisecond)
	require.Equal(t, StateID("wait"), currentID(q, m), "timer fired early")

	waitForState(t, q, m, "expired", time.Second)

	// Single shot: no further deliveries once fired.
	time.Sleep(300 * time.Millisecond)
	q.Sync(func() { require.Equal(t, 1, entered) })
}

func TestTimerTransition_CancelledOnEarlyExit(t *testing.T) {
	q := NewQueue("timers")
	defer q.Close()

	var m *Machine
	fired := 0

	q.Sync(func() {
		m = New("wait")
		m.Define("wait", func(s *StateConfig) {
			s.After(300 * time.Millisecond).To("expired")
			s.On("leave").To("idle")
		})
		m.Define("expired", func(s *StateConfig) {
			s.OnEntry(func(*Machine) { fired++ })
		})
		m.Start()
	})

	time.Sleep(100 * time.Millisecond)
	q.Sync(func() { m.RaiseEvent("leave") })

	time.Sleep(400 * time.Millisecond)

	require.Equal(t, StateID("idle"), currentID(q, m))
	q.Sync(func() { require.Equal(t, 0, fired, "cancelled timer must not fire") })
}

func TestTimerTransition_RearmsOnEachEnter(t *testing.T) {
	q := NewQueue("timers")
	defer q.Close()

	var m *Machine
	laps := 0

	q.Sync(func() {
		m = New("tick")
		m.Define("tick", func(s *StateConfig) {
			s.After(50 * time.Millisecond).To("tock").Do(func(*Machine) { laps++ })
		})
		m.Define("tock", func(s *StateConfig) { s.After(50 * time.Millisecond).To("tick") })
		m.Start()
	})

	until := time.Now().Add(2 * time.Second)
	for time.Now().Before(until) {
		var done bool
		q.Sync(func() { done = laps >= 3 })
		if done {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	q.Sync(func() { require.GreaterOrEqual(t, laps, 3, "timer should re-arm on every enter") })
}
