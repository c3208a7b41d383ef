package vkng

import (
	"github.com/cockroachdb/errors"
)

// ErrUnknownHandle is returned when a gpu handle does not name a live object.
var ErrUnknownHandle = errors.New("unknown handle")

// handles hands out the opaque ids the renderer sees. One counter is shared
// by every registry of a device so an id never names two objects.
type handles struct {
	next uint64
}

func (h *handles) issue() uint64 {
	h.next++
	return h.next
}

// registry maps opaque ids to the driver objects behind them.
type registry[T any] struct {
	ids   *handles
	items map[uint64]T
}

func newRegistry[T any](ids *handles) registry[T] {
	return registry[T]{ids: ids, items: map[uint64]T{}}
}

func (r registry[T]) add(item T) uint64 {
	id := r.ids.issue()
	r.items[id] = item
	return id
}

func (r registry[T]) get(id uint64) (T, error) {
	item, ok := r.items[id]
	if !ok {
		return item, errors.Wrapf(ErrUnknownHandle, "handle %d", id)
	}
	return item, nil
}

// take removes id and returns the object it named.
func (r registry[T]) take(id uint64) (T, bool) {
	item, ok := r.items[id]
	delete(r.items, id)
	return item, ok
}
