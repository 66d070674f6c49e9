package task

import (
	"sync"

	"github.com/joeycumines/go-testdispatch/dispatcher"
)

type (
	// Waker is notified when a pending Future should be polled again.
	Waker = dispatcher.Waker

	// Future is a computation that completes after one or more polls.
	// Poll must not block. When it reports pending (false), it must arrange
	// for w to be woken once progress is possible.
	Future[T any] interface {
		Poll(w Waker) (T, bool)
	}

	// FutureFunc adapts a poll function to the Future interface.
	FutureFunc[T any] func(w Waker) (T, bool)

	// Executor spawns Futures as tasks on a dispatcher handle. Main-context
	// tasks are queued on the handle's own identity.
	Executor struct {
		dispatcher *dispatcher.Dispatcher
	}

	// Task is a spawned Future. It is itself a Future, which completes with
	// the spawned Future's result, i.e. polling it joins the task.
	Task[T any] struct {
		future   Future[T]
		schedule func(dispatcher.Runnable)
		result   T
		joiners  []Waker
		mu       sync.Mutex
		done     bool
		queued   bool
	}

	// taskRunnable keeps Run and Wake off the exported method set of Task.
	taskRunnable[T any] struct {
		task *Task[T]
	}
)

// Poll implements Future.
func (f FutureFunc[T]) Poll(w Waker) (T, bool) { return f(w) }

// NewExecutor returns an Executor that schedules onto d.
func NewExecutor(d *dispatcher.Dispatcher) *Executor {
	if d == nil {
		panic(`task: nil dispatcher`)
	}
	return &Executor{dispatcher: d}
}

// Dispatcher returns the underlying dispatcher handle.
func (x *Executor) Dispatcher() *dispatcher.Dispatcher { return x.dispatcher }

// IsMainContext is an alias of the dispatcher method of the same name.
func (x *Executor) IsMainContext() bool { return x.dispatcher.IsMainContext() }

// Clone returns an Executor for a cloned dispatcher handle, i.e. one with a
// separate main-context queue.
func (x *Executor) Clone() *Executor { return NewExecutor(x.dispatcher.Clone()) }

// Spawn schedules future to be polled on the background pool.
func Spawn[T any](x *Executor, future Future[T]) *Task[T] {
	return spawn(future, x.dispatcher.Dispatch)
}

// SpawnOnMain schedules future to be polled on the main context of the
// executor's dispatcher handle.
func SpawnOnMain[T any](x *Executor, future Future[T]) *Task[T] {
	return spawn(future, x.dispatcher.DispatchOnMain)
}

func spawn[T any](future Future[T], schedule func(dispatcher.Runnable)) *Task[T] {
	if future == nil {
		panic(`task: nil future`)
	}
	t := &Task[T]{
		future:   future,
		schedule: schedule,
		queued:   true,
	}
	schedule(taskRunnable[T]{t})
	return t
}

// Poll implements Future, completing with the task's result.
func (x *Task[T]) Poll(w Waker) (T, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.done {
		return x.result, true
	}
	x.joiners = append(x.joiners, w)
	var zero T
	return zero, false
}

// Done reports whether the task has completed.
func (x *Task[T]) Done() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.done
}

func (x taskRunnable[T]) Run() {
	t := x.task

	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.queued = false
	t.mu.Unlock()

	result, ok := t.future.Poll(x)
	if !ok {
		return
	}

	t.mu.Lock()
	t.result = result
	t.done = true
	t.future = nil
	joiners := t.joiners
	t.joiners = nil
	t.mu.Unlock()

	for _, w := range joiners {
		w.Wake()
	}
}

// Wake reschedules the task, unless it is already queued or done.
func (x taskRunnable[T]) Wake() {
	t := x.task
	t.mu.Lock()
	if t.done || t.queued {
		t.mu.Unlock()
		return
	}
	t.queued = true
	t.mu.Unlock()
	t.schedule(x)
}
