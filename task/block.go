package task

import (
	"sync/atomic"

	"github.com/joeycumines/go-testdispatch/dispatcher"
)

// ParkedError is the panic value used by Block, when it would have to wait
// for a wake that nothing pending can deliver, while the dispatcher
// forbids parking.
type ParkedError struct {
	// Backtrace is the stack of the Block call, resolved.
	Backtrace *dispatcher.Backtrace
}

// Error implements the error interface.
func (e *ParkedError) Error() string {
	msg := `task: parked with nothing left to run`
	if e.Backtrace != nil {
		msg += "\nwaiting backtrace:\n" + e.Backtrace.String()
	}
	return msg
}

type blockWaker struct {
	ch    chan struct{}
	woken atomic.Bool
}

func newBlockWaker() *blockWaker {
	return &blockWaker{ch: make(chan struct{}, 1)}
}

func (x *blockWaker) Wake() {
	x.woken.Store(true)
	select {
	case x.ch <- struct{}{}:
	default:
	}
}

func (x *blockWaker) take() bool {
	return x.woken.Swap(false)
}

// Block polls future on the calling goroutine until it completes, stepping
// the dispatcher while it is pending. It may be called from within a
// Runnable, in which case the dispatcher is driven reentrantly.
//
// If the dispatcher has nothing left to run, and the future is still
// pending, Block either waits for a wake from another goroutine (if
// parking is allowed), or panics with a *ParkedError.
func Block[T any](x *Executor, future Future[T]) T {
	d := x.dispatcher
	w := newBlockWaker()
	for {
		if result, ok := future.Poll(w); ok {
			return result
		}
		for !w.take() {
			if d.Step() {
				continue
			}
			d.StartWaiting()
			if !d.ParkingAllowed() {
				panic(&ParkedError{Backtrace: d.WaitingBacktrace()})
			}
			<-w.ch
			d.FinishWaiting()
		}
	}
}
