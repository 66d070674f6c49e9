package dispatcher

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// backtraceDepth bounds the number of frames captured by StartWaiting.
const backtraceDepth = 64

// Backtrace is a call stack snapshot. Capturing only records program
// counters, symbols are resolved on the first call to Frames or String.
type Backtrace struct {
	pcs    []uintptr
	frames []runtime.Frame
	once   sync.Once
}

func captureBacktrace(skip int) *Backtrace {
	pcs := make([]uintptr, backtraceDepth)
	// +2 skips runtime.Callers and captureBacktrace
	n := runtime.Callers(skip+2, pcs)
	return &Backtrace{pcs: pcs[:n]}
}

// Frames resolves (once) and returns the captured frames, innermost first.
func (x *Backtrace) Frames() []runtime.Frame {
	if x == nil {
		return nil
	}
	x.once.Do(x.resolve)
	return x.frames
}

func (x *Backtrace) resolve() {
	if len(x.pcs) == 0 {
		return
	}
	frames := runtime.CallersFrames(x.pcs)
	for {
		frame, more := frames.Next()
		x.frames = append(x.frames, frame)
		if !more {
			break
		}
	}
}

// String formats the resolved frames, one "function\n\tfile:line" pair per
// frame, the same shape as a goroutine dump.
func (x *Backtrace) String() string {
	var b strings.Builder
	for _, frame := range x.Frames() {
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
	}
	return b.String()
}

// ParkingAllowed reports whether a caller may block without any pending
// work that could wake it. It defaults to false, as blocking in that state
// would stall the whole run.
func (x *Dispatcher) ParkingAllowed() bool {
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	return x.state.parkingAllowed
}

// AllowParking permits callers to block while the dispatcher is parked,
// e.g. when a test waits on a real goroutine outside the dispatcher.
func (x *Dispatcher) AllowParking() {
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	x.state.parkingAllowed = true
}

// ForbidParking reverts AllowParking.
func (x *Dispatcher) ForbidParking() {
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	x.state.parkingAllowed = false
}

// StartWaiting records the caller's stack, to be reported (via
// WaitingBacktrace) if the wait never completes. It should be called
// immediately before an indefinite wait.
func (x *Dispatcher) StartWaiting() {
	bt := captureBacktrace(1)

	x.state.mu.Lock()
	x.state.waiting = bt
	allowed := x.state.parkingAllowed
	logger := x.state.logger
	x.state.mu.Unlock()

	if !allowed {
		logger.Warning().
			Uint64(`identity`, uint64(x.id)).
			Log(`dispatcher waiting while parking is forbidden`)
	}
}

// FinishWaiting discards the stack recorded by StartWaiting.
func (x *Dispatcher) FinishWaiting() {
	x.state.mu.Lock()
	defer x.state.mu.Unlock()
	x.state.waiting = nil
}

// WaitingBacktrace takes the stack recorded by StartWaiting, returning nil
// if there is none. The recorded stack is cleared.
func (x *Dispatcher) WaitingBacktrace() *Backtrace {
	x.state.mu.Lock()
	bt := x.state.waiting
	x.state.waiting = nil
	x.state.mu.Unlock()
	if bt != nil {
		bt.Frames()
	}
	return bt
}
