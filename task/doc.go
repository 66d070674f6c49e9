// Package task provides a minimal, poll-based task layer over
// [github.com/joeycumines/go-testdispatch/dispatcher], for writing async
// logic that can be driven deterministically from tests.
//
// There is no cancellation, and no real concurrency: a task is a [Future]
// that is re-queued on the dispatcher each time it is woken.
package task
