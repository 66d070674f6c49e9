package dispatcher

import (
	"fmt"
	"time"
)

type (
	// Identity distinguishes the logical execution contexts sharing one
	// dispatcher. The handle returned by New has identity 0, each Clone
	// mints the next unused value.
	Identity uint64

	// Runnable is a unit of deferred work, executed exactly once, when the
	// dispatcher selects it.
	Runnable interface {
		Run()
	}

	// RunnableFunc adapts a plain function to the Runnable interface.
	RunnableFunc func()

	// Dispatcher is a handle to a deterministic scheduler. Handles are cheap,
	// and every handle derived (via Clone) from the same New call shares one
	// background pool, one timer queue, one clock, and one random source,
	// while owning a distinct main-context queue.
	//
	// A Dispatcher is intended to be driven by a single test goroutine.
	// Enqueueing from other goroutines is safe, but only one Step may be in
	// progress at a time (nested Steps, made from within a Runnable, are
	// fine).
	Dispatcher struct {
		state *state
		id    Identity
	}
)

// Run implements Runnable.
func (f RunnableFunc) Run() { f() }

// New initializes a Dispatcher, with identity 0, seeded with the given
// value. Every scheduling decision is drawn from a single generator, so two
// dispatchers with the same seed, driven by the same sequence of calls,
// select the same Runnables in the same order.
//
// A panic will occur if an option is invalid.
func New(seed uint64, options ...Option) *Dispatcher {
	opts, err := resolveOptions(options)
	if err != nil {
		panic(fmt.Sprintf(`dispatcher: invalid option: %v`, err))
	}
	return &Dispatcher{state: newState(seed, opts)}
}

// Clone returns a new handle sharing this dispatcher's state, with a fresh
// identity, and therefore a separate (initially empty) main-context queue.
func (x *Dispatcher) Clone() *Dispatcher {
	s := x.state
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.stats.Clones++
	logger := s.logger
	s.mu.Unlock()

	logger.Debug().
		Uint64(`parent`, uint64(x.id)).
		Uint64(`identity`, uint64(id)).
		Log(`dispatcher clone`)

	return &Dispatcher{state: s, id: id}
}

// ID returns the identity of this handle.
func (x *Dispatcher) ID() Identity { return x.id }

// Seed returns the seed passed to New.
func (x *Dispatcher) Seed() uint64 { return x.state.seed }

// IsMainContext reports whether the Runnable currently executing was
// selected from a main-context queue. Outside any Runnable it reports true.
func (x *Dispatcher) IsMainContext() bool {
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	return x.state.isMain
}

// Now returns the simulated time elapsed since New.
func (x *Dispatcher) Now() time.Duration {
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	return x.state.now
}

// Dispatch enqueues runnable to the shared background pool, which has no
// ordering guarantees.
func (x *Dispatcher) Dispatch(runnable Runnable) {
	mustRunnable(runnable)
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	x.state.background = append(x.state.background, runnable)
}

// DispatchOnMain enqueues runnable to the main-context queue of this
// handle's identity. Runnables dispatched via the same identity execute in
// the order they were dispatched.
func (x *Dispatcher) DispatchOnMain(runnable Runnable) {
	mustRunnable(runnable)
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	x.state.pushMain(x.id, runnable)
}

// DispatchAfter schedules runnable to become background work once the
// simulated clock reaches Now() + duration. Negative durations are treated
// as zero, and due times saturate at the maximum time.Duration.
func (x *Dispatcher) DispatchAfter(duration time.Duration, runnable Runnable) {
	mustRunnable(runnable)
	if duration < 0 {
		duration = 0
	}
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	x.state.pushDelayed(addClamped(x.state.now, duration), runnable)
}

// Step executes at most one Runnable, returning false if there was nothing
// to run. Matured timers are first moved to the background pool, then main
// work is chosen with probability proportional to the number of pending
// main-context Runnables.
//
// The Runnable executes on the calling goroutine, without any lock held, so
// it may dispatch more work, or drive the dispatcher itself.
func (x *Dispatcher) Step() bool {
	s := x.state
	next, ok := s.next()
	if !ok {
		return false
	}

	s.logger.Trace().
		Bool(`main`, next.isMain).
		Uint64(`identity`, uint64(next.id)).
		Int(`pending_main`, next.pendingMain).
		Int(`pending_background`, next.pendingBackground).
		Dur(`now`, next.now).
		Log(`dispatcher step`)

	defer s.restoreIsMain(next.wasMain)

	next.runnable.Run()

	return true
}

// RunUntilParked calls Step until no work remains.
func (x *Dispatcher) RunUntilParked() {
	for x.Step() {
	}
}

// AdvanceClock moves the simulated clock forward by duration. All work that
// is ready is drained before time moves, and the clock then jumps from one
// timer deadline to the next, draining again at each, until the next
// deadline lies beyond the target. The clock finishes at exactly the
// target, unless a nested advance has already moved it further.
func (x *Dispatcher) AdvanceClock(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}

	s := x.state
	s.mu.Lock()
	from := s.now
	target := addClamped(s.now, duration)
	s.mu.Unlock()

	var deadlines int
	for {
		x.RunUntilParked()

		s.mu.Lock()
		due, ok := s.nextDue()
		if ok && due <= target {
			if due > s.now {
				s.now = due
			}
			s.mu.Unlock()
			deadlines++
			continue
		}
		if target > s.now {
			s.now = target
		}
		s.mu.Unlock()
		break
	}

	s.logger.Debug().
		Dur(`from`, from).
		Dur(`to`, target).
		Int(`deadlines`, deadlines).
		Log(`dispatcher advance clock`)
}

type stepSelection struct {
	runnable          Runnable
	now               time.Duration
	pendingMain       int
	pendingBackground int
	id                Identity
	isMain            bool
	wasMain           bool
}

// next performs the locked part of a step, recording the chosen branch as
// the current context.
func (x *state) next() (sel stepSelection, ok bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.matureDelayed()

	sel.pendingMain = x.pendingMain()
	sel.pendingBackground = len(x.background)
	total := sel.pendingMain + sel.pendingBackground
	if total == 0 {
		return sel, false
	}

	sel.isMain = x.random.Uint64N(uint64(total)) < uint64(sel.pendingMain)
	if sel.isMain {
		sel.id, sel.runnable = x.popMain()
		x.stats.MainRuns++
	} else {
		sel.runnable = x.popBackground()
		x.stats.BackgroundRuns++
	}
	x.stats.Steps++

	sel.wasMain = x.isMain
	x.isMain = sel.isMain
	sel.now = x.now

	return sel, true
}

func (x *state) restoreIsMain(wasMain bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.isMain = wasMain
}

func mustRunnable(runnable Runnable) {
	if runnable == nil {
		panic(`dispatcher: nil runnable`)
	}
}
