package dispatcher

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/glycerine/blake3"
	"github.com/joeycumines/logiface"
	"golang.org/x/exp/slices"
)

type (
	// state is shared by every handle cloned from the same New call.
	// All fields are guarded by mu, which is never held while a Runnable
	// executes.
	state struct {
		mu sync.Mutex

		random *rand.Rand
		seed   uint64

		// main holds one FIFO per identity, order tracks the identities in
		// first-use order, map iteration must never influence scheduling
		main  map[Identity]*ring[Runnable]
		order []Identity

		background []Runnable
		delayed    []delayedRunnable

		now            time.Duration
		isMain         bool
		nextID         Identity
		parkingAllowed bool
		waiting        *Backtrace

		yieldLimit int
		logger     *logiface.Logger[logiface.Event]

		stats Stats
	}

	delayedRunnable struct {
		runnable Runnable
		due      time.Duration
	}
)

func newState(seed uint64, opts *dispatcherOptions) *state {
	return &state{
		random:         newRandom(seed),
		seed:           seed,
		main:           make(map[Identity]*ring[Runnable]),
		isMain:         true,
		nextID:         1,
		parkingAllowed: opts.parkingAllowed,
		yieldLimit:     opts.yieldLimit,
		logger:         opts.logger,
	}
}

// newRandom expands the seed into a ChaCha8 key, so that nearby seeds
// produce unrelated streams.
func newRandom(seed uint64) *rand.Rand {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	return rand.New(rand.NewChaCha8(blake3.Sum256(b[:])))
}

func (x *state) pushMain(id Identity, runnable Runnable) {
	q := x.main[id]
	if q == nil {
		q = new(ring[Runnable])
		x.main[id] = q
		x.order = append(x.order, id)
	}
	q.PushBack(runnable)
}

// pushDelayed inserts after any entries with an equal due time, so ties
// run in insertion order.
func (x *state) pushDelayed(due time.Duration, runnable Runnable) {
	i, _ := slices.BinarySearchFunc(x.delayed, due, func(e delayedRunnable, t time.Duration) int {
		if e.due <= t {
			return -1
		}
		return 1
	})
	x.delayed = slices.Insert(x.delayed, i, delayedRunnable{due: due, runnable: runnable})
}

// matureDelayed moves every timer due at or before now to the background.
func (x *state) matureDelayed() (n int) {
	for n < len(x.delayed) && x.delayed[n].due <= x.now {
		x.background = append(x.background, x.delayed[n].runnable)
		x.delayed[n] = delayedRunnable{}
		n++
	}
	if n != 0 {
		x.delayed = x.delayed[n:]
		x.stats.TimersMatured += uint64(n)
	}
	return n
}

// addClamped returns now+duration, saturating at the maximum representable
// time. Both arguments must be non-negative.
func addClamped(now, duration time.Duration) time.Duration {
	if duration > math.MaxInt64-now {
		return math.MaxInt64
	}
	return now + duration
}

func (x *state) nextDue() (time.Duration, bool) {
	if len(x.delayed) == 0 {
		return 0, false
	}
	return x.delayed[0].due, true
}

func (x *state) pendingMain() (n int) {
	for _, id := range x.order {
		n += x.main[id].Len()
	}
	return n
}

// popMain removes the front of a uniformly chosen non-empty main queue.
func (x *state) popMain() (Identity, Runnable) {
	var candidates int
	for _, id := range x.order {
		if x.main[id].Len() != 0 {
			candidates++
		}
	}
	if candidates == 0 {
		panic(`dispatcher: internal invariant violated: no non-empty main queue to select`)
	}
	pick := x.random.IntN(candidates)
	for _, id := range x.order {
		q := x.main[id]
		if q.Len() == 0 {
			continue
		}
		if pick == 0 {
			return id, q.PopFront()
		}
		pick--
	}
	panic(`dispatcher: internal invariant violated: main queue selection out of range`)
}

// popBackground swap-removes a uniformly chosen background runnable.
func (x *state) popBackground() Runnable {
	n := len(x.background)
	if n == 0 {
		panic(`dispatcher: internal invariant violated: no background runnable to select`)
	}
	i := x.random.IntN(n)
	runnable := x.background[i]
	x.background[i] = x.background[n-1]
	x.background[n-1] = nil
	x.background = x.background[:n-1]
	return runnable
}
