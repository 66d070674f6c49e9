// Package dispatcher implements a deterministic, seeded scheduler, intended
// to drive tests of code that dispatches work to a "main" execution context,
// a pool of background workers, and timers.
//
// Nothing runs concurrently. The test drives the [Dispatcher] by calling
// [Dispatcher.Step], [Dispatcher.RunUntilParked] or
// [Dispatcher.AdvanceClock], and each step picks one ready [Runnable] using
// a pseudo-random generator seeded via [New]. Re-running a failing test with
// the same seed replays the same interleaving, while iterating over seeds
// explores different ones.
//
// # Queues
//
// Each handle (see [Dispatcher.Clone]) has an [Identity], and its own FIFO
// of main-context work ([Dispatcher.DispatchOnMain]). All handles share an
// unordered background pool ([Dispatcher.Dispatch]) and a timer queue
// ([Dispatcher.DispatchAfter]), ordered by due time, with ties kept in
// dispatch order. Matured timers become ordinary background work.
//
// A step chooses main-context work with probability proportional to the
// amount pending, then picks uniformly among the non-empty main queues, or
// uniformly among the background pool.
//
// # Time
//
// Time is simulated. It only moves via [Dispatcher.AdvanceClock], which
// never skips past a timer without first draining everything that timer
// (transitively) makes runnable.
//
// # Reentrancy
//
// Runnables execute without any internal lock held, so they may dispatch
// more work, or even drive the dispatcher (e.g. to synchronously wait on
// work they just dispatched). [Dispatcher.IsMainContext] always reflects
// the innermost executing Runnable, and is restored as each returns.
package dispatcher
