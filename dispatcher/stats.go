package dispatcher

import (
	"time"
)

// Stats reports dispatcher counters, see [Dispatcher.Stats].
type Stats struct {
	// Steps is the number of Runnables executed by Step.
	Steps uint64
	// MainRuns counts the Steps that chose the main context.
	MainRuns uint64
	// BackgroundRuns counts the Steps that chose background work,
	// including matured timers.
	BackgroundRuns uint64
	// TimersMatured counts delayed Runnables moved to the background.
	TimersMatured uint64
	// Clones counts the handles minted by Clone.
	Clones uint64

	// PendingMain is the number of queued main-context Runnables, summed
	// over every identity.
	PendingMain int
	// PendingBackground is the size of the shared background pool.
	PendingBackground int
	// PendingDelayed is the number of timers not yet matured.
	PendingDelayed int

	// Now is the simulated clock.
	Now time.Duration
}

// Stats returns a snapshot of the shared counters and queue depths.
func (x *Dispatcher) Stats() Stats {
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	stats := x.state.stats
	stats.PendingMain = x.state.pendingMain()
	stats.PendingBackground = len(x.state.background)
	stats.PendingDelayed = len(x.state.delayed)
	stats.Now = x.state.now
	return stats
}
