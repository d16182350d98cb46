package machina

import (
	"sync/atomic"
	"time"
)

// SystemTimers is the TimerService used by machines that do not inject one.
var SystemTimers TimerService = runtimeTimers{}

// runtimeTimers schedules one-shot callbacks on the Go runtime timer heap and
// marshals them onto the target executor when they fire.
type runtimeTimers struct{}

// Schedule fires fn on the executor once, delay from now. The tolerance hint
// is accepted for interface parity; runtime timers already fire within a
// millisecond of the requested delay.
func (runtimeTimers) Schedule(delay, tolerance time.Duration, on Executor, fn func()) TimerHandle {
	h := &runtimeTimer{}

	h.timer = time.AfterFunc(delay, func() {
		on.Dispatch(func() {
			// Cancel may have happened between the runtime firing and the
			// executor draining the dispatch; deliver at most once, never
			// after cancellation.
			if h.cancelled.Load() {
				return
			}

			fn()
		})
	})

	return h
}

type runtimeTimer struct {
	timer     *time.Timer
	cancelled atomic.Bool
}

func (h *runtimeTimer) Cancel() {
	h.cancelled.Store(true)
	h.timer.Stop()
}
