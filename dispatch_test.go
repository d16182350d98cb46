package machina_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/enetx/machina"
)

func TestQueue_IsCurrent(t *testing.T) {
	q := NewQueue("q")
	defer q.Close()

	require.False(t, q.IsCurrent())
	require.Equal(t, "q", string(q.Name()))

	q.Sync(func() { require.True(t, q.IsCurrent()) })
}

func TestQueue_DispatchOrdering(t *testing.T) {
	q := NewQueue("order")
	defer q.Close()

	var got []int
	for i := range 100 {
		q.Dispatch(func() { got = append(got, i) })
	}

	q.Sync(func() {})

	require.Len(t, got, 100)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestQueue_DispatchOnOwnGoroutineRunsInline(t *testing.T) {
	q := NewQueue("inline")
	defer q.Close()

	q.Sync(func() {
		ran := false
		q.Dispatch(func() { ran = true })
		require.True(t, ran, "dispatch from the queue's goroutine must run synchronously")
	})
}

func TestQueue_NestedSync(t *testing.T) {
	q := NewQueue("nested")
	defer q.Close()

	ran := false
	q.Sync(func() {
		q.Sync(func() { ran = true })
	})

	require.True(t, ran)
}

func TestCurrentExecutor_OnQueue(t *testing.T) {
	q := NewQueue("owner")
	defer q.Close()

	q.Sync(func() {
		exec, ok := CurrentExecutor().(*Queue)
		require.True(t, ok)
		require.Same(t, q, exec)
	})
}

func TestCurrentExecutor_PlainGoroutine(t *testing.T) {
	exec := CurrentExecutor()
	require.True(t, exec.IsCurrent())

	resCh := make(chan bool, 1)
	go func() { resCh <- exec.IsCurrent() }()
	require.False(t, <-resCh)

	ran := false
	exec.Dispatch(func() { ran = true })
	require.True(t, ran, "dispatch on the owning goroutine runs inline")
}

func TestCurrentExecutor_PlainGoroutineRejectsCrossDispatch(t *testing.T) {
	exec := CurrentExecutor()

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- r.(error)
				return
			}
			errCh <- nil
		}()

		exec.Dispatch(func() {})
	}()

	err := <-errCh
	require.Error(t, err)

	var aff *ErrAffinity
	require.ErrorAs(t, err, &aff)
}

func TestQueue_CloseDropsDispatch(t *testing.T) {
	q := NewQueue("closed")
	q.Close()

	ran := false
	q.Dispatch(func() { ran = true })

	time.Sleep(20 * time.Millisecond)
	require.False(t, ran)
}

func TestMachine_DrivenFromQueue(t *testing.T) {
	q := NewQueue("driver")
	defer q.Close()

	var m *Machine

	q.Sync(func() {
		m = New("idle")
		m.Define("idle", func(s *StateConfig) { s.On("go").To("busy") })
		m.Start()
	})

	q.Sync(func() { m.RaiseEvent("go") })

	var got StateID
	q.Sync(func() { got = m.Current().ID })

	require.Equal(t, StateID("busy"), got)
}
