package event

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Bus is a synchronous, type-keyed event bus. Publish delivers to every
// handler subscribed to the event's Go type, in subscription order, on the
// calling goroutine. A handler that publishes is served depth first.
//
// The handler list is snapshotted when a publish starts, so subscribe and
// unsubscribe calls made during delivery only affect later publishes.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	handlers map[reflect.Type][]subscriber
	nextID   uint64
	log      *zap.Logger
}

type subscriber struct {
	id   uint64
	call func(any)
}

// Subscription identifies one Subscribe call. The zero value is inert.
type Subscription struct {
	typ reflect.Type
	id  uint64
}

func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[reflect.Type][]subscriber),
		log:      log,
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Subscribe registers fn for events of type T. Subscribing the same function
// twice yields two deliveries per publish.
func Subscribe[T any](b *Bus, fn func(T)) Subscription {
	t := typeOf[T]()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := subscriber{
		id:   b.nextID,
		call: func(ev any) { fn(ev.(T)) },
	}
	// Copy on write: an in-flight publish keeps iterating its own slice.
	list := b.handlers[t]
	next := make([]subscriber, len(list), len(list)+1)
	copy(next, list)
	b.handlers[t] = append(next, sub)
	return Subscription{typ: t, id: sub.id}
}

// Unsubscribe removes the handler behind s. Unknown or already removed
// subscriptions are ignored.
func (b *Bus) Unsubscribe(s Subscription) {
	if s.typ == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[s.typ]
	for i, sub := range list {
		if sub.id != s.id {
			continue
		}
		next := make([]subscriber, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, s.typ)
		} else {
			b.handlers[s.typ] = next
		}
		return
	}
}

// Publish delivers ev to all current subscribers of T. A panicking handler
// is logged and skipped; the remaining handlers still run.
func Publish[T any](b *Bus, ev T) {
	t := typeOf[T]()
	b.mu.Lock()
	list := b.handlers[t]
	b.mu.Unlock()
	for i, sub := range list {
		b.deliver(t, i, sub, ev)
	}
}

// HandlerCount returns the number of handlers subscribed to T.
func HandlerCount[T any](b *Bus) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[typeOf[T]()])
}

func (b *Bus) deliver(t reflect.Type, idx int, sub subscriber, ev any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("event", t.String()),
				zap.Int("handler", idx),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	sub.call(ev)
}
