package tracker

// recordPool is a free list of reusable records.  Records handed back with
// Put are reset and returned by later calls to Get before any new record is
// allocated.  The tracker is single threaded so no locking is done
type recordPool[T any] struct {
	free []*T
	// alloc creates a new record when the free list is empty
	alloc func() *T
	// reset clears a record before it is placed on the free list
	reset func(*T)
}

// newRecordPool returns an empty pool using the given allocation and reset
// functions.  A nil reset leaves returned records untouched
func newRecordPool[T any](alloc func() *T, reset func(*T)) *recordPool[T] {
	return &recordPool[T]{
		alloc: alloc,
		reset: reset,
	}
}

// Get returns a record from the free list or allocates a new one
func (p *recordPool[T]) Get() *T {

	n := len(p.free)

	if n == 0 {
		return p.alloc()
	}

	rec := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]

	return rec
}

// Put returns a record to the pool
func (p *recordPool[T]) Put(rec *T) {

	if rec == nil {
		return
	}

	if p.reset != nil {
		p.reset(rec)
	}

	p.free = append(p.free, rec)
}

// Free returns the number of records waiting on the free list
func (p *recordPool[T]) Free() int {
	return len(p.free)
}
