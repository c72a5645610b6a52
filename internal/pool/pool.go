package pool

// Pool keeps released objects for re-use. Unlike sync.Pool, it isn't thread-safe and never
// drops objects on its own. Concurrent access may lead to UB
type Pool[T any] struct {
	queue []T
	alloc func() T
}

// New returns a pool retaining at most size objects. Objects are allocated via alloc when
// there's nothing to re-use.
func New[T any](size int, alloc func() T) Pool[T] {
	return Pool[T]{
		queue: make([]T, 0, size),
		alloc: alloc,
	}
}

func (p *Pool[T]) Acquire() T {
	if len(p.queue) == 0 {
		return p.alloc()
	}

	obj := p.queue[len(p.queue)-1]
	var zero T
	p.queue[len(p.queue)-1] = zero
	p.queue = p.queue[:len(p.queue)-1]

	return obj
}

// Release puts the object back. It is dropped if the pool is full already, false is returned
// in this case.
func (p *Pool[T]) Release(obj T) bool {
	if len(p.queue) == cap(p.queue) {
		return false
	}

	p.queue = append(p.queue, obj)
	return true
}

// Len returns how many objects are ready to be re-used.
func (p *Pool[T]) Len() int {
	return len(p.queue)
}
