package dispatcher

// ring is a growable FIFO, backed by a power-of-2 sized circular buffer.
// The read and write offsets only ever increase, the mask selects the slot.
type ring[E any] struct {
	s    []E
	r, w uint
}

const ringMinSize = 8

func (x *ring[E]) mask(val uint) uint {
	return val & (uint(len(x.s)) - 1)
}

func (x *ring[E]) Len() int {
	return int(x.w - x.r)
}

// PushBack appends value, doubling the buffer if it is full.
func (x *ring[E]) PushBack(value E) {
	if x.Len() == len(x.s) {
		x.grow()
	}
	x.s[x.mask(x.w)] = value
	x.w++
}

// PopFront removes and returns the oldest value, panicking if empty.
func (x *ring[E]) PopFront() E {
	if x.r == x.w {
		panic(`dispatcher: ring: pop front: empty`)
	}
	i := x.mask(x.r)
	value := x.s[i]
	var zero E
	x.s[i] = zero // release the reference
	x.r++
	if x.r == x.w {
		x.r = 0
		x.w = 0
	}
	return value
}

func (x *ring[E]) grow() {
	size := uint(len(x.s)) << 1
	if size == 0 {
		size = ringMinSize
	}
	s := make([]E, size)
	l := x.Len()
	for i := 0; i < l; i++ {
		s[i] = x.s[x.mask(x.r+uint(i))]
	}
	x.s = s
	x.r = 0
	x.w = uint(l)
}
