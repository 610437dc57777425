// Package lazy provides a deferred-construction slot for cluster handlers.
//
// A Holder never constructs its value implicitly: construction happens only
// when Create is called, typically from an endpoint init callback, and the
// value is released again with Destroy from the matching shutdown callback.
package lazy

import "errors"

// ErrAlreadyConstructed is returned by Create on a holder that already
// holds a value.
var ErrAlreadyConstructed = errors.New("lazy: already constructed")

// Destroyer is implemented by values that need explicit teardown when
// their holder is destroyed.
type Destroyer interface {
	Destroy()
}

// Holder owns zero or one value of type T.
//
// The zero Holder is empty and ready to use. A Holder is not safe for
// concurrent use; callers serialize access.
type Holder[T any] struct {
	value       T
	constructed bool
}

// Create constructs the held value with ctor.
//
// If the holder is already constructed, ctor is not called and
// ErrAlreadyConstructed is returned. If ctor fails, the holder stays empty
// and ctor's error is returned.
func (h *Holder[T]) Create(ctor func() (T, error)) error {
	if h.constructed {
		return ErrAlreadyConstructed
	}

	v, err := ctor()
	if err != nil {
		return err
	}

	h.value = v
	h.constructed = true
	return nil
}

// Destroy releases the held value. If the value implements Destroyer its
// Destroy method is called exactly once. Destroy on an empty holder does
// nothing.
func (h *Holder[T]) Destroy() {
	if !h.constructed {
		return
	}

	v := h.value
	var zero T
	h.value = zero
	h.constructed = false

	if d, ok := any(v).(Destroyer); ok {
		d.Destroy()
	}
}

// IsConstructed reports whether the holder holds a value.
func (h *Holder[T]) IsConstructed() bool {
	return h.constructed
}

// Instance returns the held value. It panics if the holder is empty.
func (h *Holder[T]) Instance() T {
	if !h.constructed {
		panic("lazy: Instance called on unconstructed holder")
	}
	return h.value
}

// Get returns the held value and whether one is present.
func (h *Holder[T]) Get() (T, bool) {
	return h.value, h.constructed
}
