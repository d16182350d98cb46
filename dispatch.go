package machina

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	. "github.com/enetx/g"
)

// liveQueues maps goroutine id -> *Queue for every running queue, so
// CurrentExecutor can answer "which executor is this goroutine".
var liveQueues sync.Map

// Queue is a serial Executor: one goroutine draining a task channel. Work
// dispatched from other goroutines runs in submission order; work dispatched
// from the queue's own goroutine runs immediately.
type Queue struct {
	name      String
	tasks     chan func()
	gid       atomic.Uint64
	quit      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a queue and starts its goroutine. The returned queue is
// ready for dispatch.
func NewQueue(name String) *Queue {
	q := &Queue{
		name:  name,
		tasks: make(chan func(), 128),
		quit:  make(chan struct{}),
	}

	ready := make(chan struct{})
	go q.run(ready)
	<-ready

	return q
}

func (q *Queue) run(ready chan struct{}) {
	id := goroutineID()
	q.gid.Store(id)
	liveQueues.Store(id, q)
	defer liveQueues.Delete(id)

	close(ready)

	for {
		select {
		case <-q.quit:
			return
		case fn := <-q.tasks:
			fn()
		}
	}
}

// Name returns the queue's diagnostic name.
func (q *Queue) Name() String { return q.name }

// IsCurrent reports whether the calling goroutine is the queue's goroutine.
func (q *Queue) IsCurrent() bool {
	return goroutineID() == q.gid.Load()
}

// Dispatch runs fn on the queue: immediately when called from the queue's own
// goroutine, queued otherwise. Dispatch after Close drops the task.
func (q *Queue) Dispatch(fn func()) {
	if q.IsCurrent() {
		fn()
		return
	}

	select {
	case q.tasks <- fn:
	case <-q.quit:
	}
}

// Sync runs fn on the queue and waits for it to finish.
func (q *Queue) Sync(fn func()) {
	if q.IsCurrent() {
		fn()
		return
	}

	done := make(chan struct{})

	q.Dispatch(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
	case <-q.quit:
	}
}

// Close stops the queue's goroutine. Pending tasks are dropped.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.quit) })
}

// CurrentExecutor returns the executor the calling goroutine belongs to: the
// owning Queue when called from one, otherwise a handle for the bare
// goroutine itself. A bare-goroutine executor supports affinity checks but
// cannot accept cross-context dispatch, so machines using timer or signal
// transitions should be started on a Queue.
func CurrentExecutor() Executor {
	id := goroutineID()
	if q, ok := liveQueues.Load(id); ok {
		return q.(*Queue)
	}

	return &goroutineExecutor{id: id}
}

// goroutineExecutor identifies a plain goroutine that runs no dispatch loop.
type goroutineExecutor struct {
	id uint64
}

func (e *goroutineExecutor) IsCurrent() bool {
	return goroutineID() == e.id
}

func (e *goroutineExecutor) Dispatch(fn func()) {
	if e.IsCurrent() {
		fn()
		return
	}

	panic(&ErrAffinity{Op: "dispatch to a plain goroutine executor"})
}

// goroutineID extracts the caller's goroutine id from the first line of its
// stack trace ("goroutine N [running]:"). The runtime offers no public
// accessor; this is the conventional fallback.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return 0
	}

	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}

	return id
}
