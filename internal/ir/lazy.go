package ir

type lazyState uint8

const (
	lazyPending lazyState = iota
	lazyComputing
	lazyDone
)

// Lazy is a compute-once cell. The value is produced on the first Get and
// never recomputed; re-entering Get while the value is being computed is a
// programming error and panics.
type Lazy[T any] struct {
	compute func() T
	value   T
	state   lazyState
}

// LazyOf returns a cell computed by f on first access.
func LazyOf[T any](f func() T) Lazy[T] {
	return Lazy[T]{compute: f}
}

// Ready returns an already-computed cell.
func Ready[T any](v T) Lazy[T] {
	return Lazy[T]{value: v, state: lazyDone}
}

// Get returns the value, computing it on first access.
func (l *Lazy[T]) Get() T {
	switch l.state {
	case lazyDone:
		return l.value
	case lazyComputing:
		panic("ir: recursive lazy initialization")
	}
	if l.compute != nil {
		l.state = lazyComputing
		l.value = l.compute()
		l.compute = nil
	}
	l.state = lazyDone
	return l.value
}

// Computed reports whether the value has been produced.
func (l *Lazy[T]) Computed() bool { return l.state == lazyDone }
