package voice

// Allocator hands out voices to instruments in least-recently-used order.
type Allocator struct {
	order []int // least recently used first
	busy  []bool
	owner []int
}

// NewAllocator manages voices 0..n-1.
func NewAllocator(n int) *Allocator {
	a := &Allocator{
		order: make([]int, n),
		busy:  make([]bool, n),
		owner: make([]int, n),
	}
	for i := range a.order {
		a.order[i] = i
		a.owner[i] = -1
	}
	return a
}

// Get returns a voice for instrument ins. A free voice last used by the same
// instrument is preferred, then the oldest free voice, then the oldest busy
// voice, which is stolen. The boolean reports whether a voice was stolen.
func (a *Allocator) Get(ins int) (int, bool) {
	if len(a.order) == 0 {
		return -1, false
	}
	pick, stolen := -1, false
	for _, v := range a.order {
		if !a.busy[v] && a.owner[v] == ins {
			pick = v
			break
		}
	}
	if pick < 0 {
		for _, v := range a.order {
			if !a.busy[v] {
				pick = v
				break
			}
		}
	}
	if pick < 0 {
		pick, stolen = a.order[0], true
	}
	a.busy[pick] = true
	a.owner[pick] = ins
	a.touch(pick)
	return pick, stolen
}

// Release returns voice v to the free pool.
func (a *Allocator) Release(v int) {
	if v < 0 || v >= len(a.busy) || !a.busy[v] {
		return
	}
	a.busy[v] = false
	a.touch(v)
}

// Busy reports whether voice v is allocated.
func (a *Allocator) Busy(v int) bool {
	return v >= 0 && v < len(a.busy) && a.busy[v]
}

// Owner returns the instrument voice v was last allocated to, or -1.
func (a *Allocator) Owner(v int) int {
	if v < 0 || v >= len(a.owner) {
		return -1
	}
	return a.owner[v]
}

// Reset frees every voice and forgets ownership.
func (a *Allocator) Reset() {
	for i := range a.order {
		a.order[i] = i
		a.busy[i] = false
		a.owner[i] = -1
	}
}

func (a *Allocator) touch(v int) {
	for i, o := range a.order {
		if o == v {
			copy(a.order[i:], a.order[i+1:])
			a.order[len(a.order)-1] = v
			return
		}
	}
}
