package machina

import "time"

// Executor is a single logical execution context. A machine binds to one
// executor at Start and asserts every mutating operation runs on it.
// Executors are identity-comparable handles; the package provides Queue and a
// plain-goroutine fallback, and platform code may supply its own.
type Executor interface {
	// IsCurrent reports whether the calling goroutine is this executor.
	IsCurrent() bool

	// Dispatch runs fn on this executor: synchronously when the caller is
	// already on it, queued for asynchronous execution otherwise.
	Dispatch(fn func())
}

// TimerHandle cancels a scheduled one-shot callback. Cancel is idempotent:
// cancelling an already-fired or already-cancelled timer is a no-op.
type TimerHandle interface {
	Cancel()
}

// TimerService schedules one-shot callbacks onto an executor. The tolerance
// is a scheduling-leeway hint; implementations may fire up to that much late
// to coalesce wakeups, never early.
type TimerService interface {
	Schedule(delay, tolerance time.Duration, on Executor, fn func()) TimerHandle
}

// Subscription is a live interest in one named signal. Unsubscribe is
// idempotent.
type Subscription interface {
	Unsubscribe()
}

// SignalBus delivers broadcast signals to subscribers. Callbacks may run on
// any context; signal transitions marshal onto the bound executor themselves.
type SignalBus interface {
	Subscribe(name SignalID, fn func()) Subscription
}
