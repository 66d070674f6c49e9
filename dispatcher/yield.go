package dispatcher

type (
	// Waker is notified when a suspended computation should be polled again.
	Waker interface {
		Wake()
	}

	// Yield is a suspension point that stays pending for a randomly drawn
	// number of polls, see [Dispatcher.SimulateRandomDelay].
	Yield struct {
		remaining int
	}
)

// SimulateRandomDelay returns a Yield that is pending for between 0 and
// the yield limit (exclusive, see [WithYieldLimit]) polls, the count being
// drawn from the dispatcher's random source. Awaiting it from otherwise
// sequential async logic gives the dispatcher extra opportunities to
// interleave other pending work.
func (x *Dispatcher) SimulateRandomDelay() *Yield {
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	return &Yield{remaining: x.state.random.IntN(x.state.yieldLimit)}
}

// Poll reports whether the Yield is ready. While pending, each call
// consumes one of the remaining polls, and wakes w immediately, so the
// caller is rescheduled.
func (x *Yield) Poll(w Waker) bool {
	if x.remaining > 0 {
		x.remaining--
		w.Wake()
		return false
	}
	return true
}

// Remaining returns the number of polls that will report pending.
func (x *Yield) Remaining() int { return x.remaining }
