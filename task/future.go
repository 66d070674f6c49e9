package task

import (
	"sync"
	"time"

	"github.com/joeycumines/go-testdispatch/dispatcher"
)

type (
	thenFuture[A, B any] struct {
		first  Future[A]
		next   func(A) Future[B]
		second Future[B]
	}

	sleepFuture struct {
		waker Waker
		mu    sync.Mutex
		fired bool
	}
)

// Ready returns a Future that completes with value on the first poll.
func Ready[T any](value T) Future[T] {
	return FutureFunc[T](func(Waker) (T, bool) { return value, true })
}

// Func returns a Future that calls fn on its first poll, completing with
// the result.
func Func[T any](fn func() T) Future[T] {
	return FutureFunc[T](func(Waker) (T, bool) { return fn(), true })
}

// Then sequences two Futures: once first completes, next is called with
// its result, and the returned Future is polled to completion, within the
// same task.
func Then[A, B any](first Future[A], next func(A) Future[B]) Future[B] {
	return &thenFuture[A, B]{first: first, next: next}
}

func (x *thenFuture[A, B]) Poll(w Waker) (B, bool) {
	if x.second == nil {
		a, ok := x.first.Poll(w)
		if !ok {
			var zero B
			return zero, false
		}
		x.first = nil
		x.second = x.next(a)
	}
	return x.second.Poll(w)
}

// Sleep returns a Future that completes once the dispatcher's simulated
// clock has advanced by duration, measured from the call to Sleep.
func Sleep(x *Executor, duration time.Duration) Future[struct{}] {
	f := new(sleepFuture)
	x.dispatcher.DispatchAfter(duration, dispatcher.RunnableFunc(f.fire))
	return f
}

func (x *sleepFuture) fire() {
	x.mu.Lock()
	x.fired = true
	w := x.waker
	x.waker = nil
	x.mu.Unlock()
	if w != nil {
		w.Wake()
	}
}

func (x *sleepFuture) Poll(w Waker) (struct{}, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.fired {
		return struct{}{}, true
	}
	x.waker = w
	return struct{}{}, false
}

// Yield returns a Future that stays pending for a random number of polls,
// see dispatcher.Dispatcher.SimulateRandomDelay.
func Yield(x *Executor) Future[struct{}] {
	y := x.dispatcher.SimulateRandomDelay()
	return FutureFunc[struct{}](func(w Waker) (struct{}, bool) {
		return struct{}{}, y.Poll(w)
	})
}
