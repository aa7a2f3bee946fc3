// Package deferred provides a collection that can be mutated while it is
// being iterated. Adds and removes are queued and applied by Flush, which the
// owner calls once per tick at a fixed phase. Entries whose backing object
// died out of band are pruned on flush, never in the middle of a ForEach.
package deferred

type entry[T comparable] struct {
	item          T
	live          bool
	pendingAdd    bool
	pendingRemove bool
}

// Set is a deferred-mutation collection. Not safe for concurrent use; the
// game loop goroutine owns it.
type Set[T comparable] struct {
	alive    func(T) bool
	onDrop   func(T)
	onReject func(T)
	onCancel func(T)
	entries  map[T]*entry[T]
	live     []*entry[T] // insertion order
	adds     []*entry[T] // queued adds, call order

	removals   int
	iterating  int
	flushLater bool
	revalidate bool
}

// Option configures a Set.
type Option[T comparable] func(*Set[T])

// WithDropHook registers fn to run for every item that leaves the live set
// during a flush, whether removed explicitly or pruned as dead.
func WithDropHook[T comparable](fn func(T)) Option[T] {
	return func(s *Set[T]) { s.onDrop = fn }
}

// WithRejectHook registers fn to run for every queued add discarded at
// flush because the item was already dead.
func WithRejectHook[T comparable](fn func(T)) Option[T] {
	return func(s *Set[T]) { s.onReject = fn }
}

// WithCancelHook registers fn to run when Remove cancels a queued add. The
// item never reached the live set, so neither the drop nor the reject hook
// sees it.
func WithCancelHook[T comparable](fn func(T)) Option[T] {
	return func(s *Set[T]) { s.onCancel = fn }
}

// New creates a Set. alive reports whether an item's backing object still
// exists; nil means items never die on their own.
func New[T comparable](alive func(T) bool, opts ...Option[T]) *Set[T] {
	if alive == nil {
		alive = func(T) bool { return true }
	}
	s := &Set[T]{
		alive:   alive,
		entries: make(map[T]*entry[T]),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add queues item. It becomes visible to ForEach after the next Flush.
// Adding a live item that is pending removal cancels the removal.
func (s *Set[T]) Add(item T) {
	e, ok := s.entries[item]
	if !ok {
		e = &entry[T]{item: item}
		s.entries[item] = e
	}
	if e.pendingRemove {
		e.pendingRemove = false
		s.removals--
	}
	if e.live || e.pendingAdd {
		return
	}
	e.pendingAdd = true
	s.adds = append(s.adds, e)
}

// Remove queues removal of item. If item was only queued for add, the add
// is cancelled instead.
func (s *Set[T]) Remove(item T) {
	e, ok := s.entries[item]
	if !ok {
		return
	}
	if e.pendingAdd {
		e.pendingAdd = false
		delete(s.entries, item)
		if s.onCancel != nil {
			s.onCancel(item)
		}
		return
	}
	if e.live && !e.pendingRemove {
		e.pendingRemove = true
		s.removals++
	}
}

// Flush applies queued removes, then queued adds, then prunes dead entries.
// When the previous flush pruned anything, an extra prune pass runs before
// the queue is applied, since destruction is often discovered a tick late.
// Called from inside ForEach, the flush is postponed until the outermost
// iteration returns.
func (s *Set[T]) Flush() {
	if s.iterating > 0 {
		s.flushLater = true
		return
	}
	s.flushLater = false

	if s.revalidate {
		s.revalidate = false
		s.prune()
	}

	if s.removals > 0 {
		kept := s.live[:0]
		for _, e := range s.live {
			if e.pendingRemove {
				s.drop(e)
				continue
			}
			kept = append(kept, e)
		}
		clearTail(s.live, len(kept))
		s.live = kept
		s.removals = 0
	}

	for _, e := range s.adds {
		if !e.pendingAdd {
			continue
		}
		e.pendingAdd = false
		if !s.alive(e.item) {
			delete(s.entries, e.item)
			if s.onReject != nil {
				s.onReject(e.item)
			}
			continue
		}
		e.live = true
		s.live = append(s.live, e)
	}
	clearTail(s.adds, 0)
	s.adds = s.adds[:0]

	if s.prune() > 0 {
		s.revalidate = true
	}
}

func (s *Set[T]) prune() int {
	n := 0
	kept := s.live[:0]
	for _, e := range s.live {
		if s.alive(e.item) {
			kept = append(kept, e)
			continue
		}
		if e.pendingRemove {
			s.removals--
		}
		s.drop(e)
		n++
	}
	clearTail(s.live, len(kept))
	s.live = kept
	return n
}

func (s *Set[T]) drop(e *entry[T]) {
	e.live = false
	e.pendingRemove = false
	delete(s.entries, e.item)
	if s.onDrop != nil {
		s.onDrop(e.item)
	}
}

// ForEach visits the live set as of the last flush, in insertion order.
// Entries found dead are skipped and left for the next flush to prune.
// visit may call Add, Remove and Flush; none of them touch the set being
// iterated until the iteration ends.
func (s *Set[T]) ForEach(visit func(T)) {
	s.iterating++
	snapshot := s.live
	n := len(snapshot)
	defer func() {
		s.iterating--
		if s.iterating == 0 && s.flushLater {
			s.Flush()
		}
	}()
	for i := 0; i < n; i++ {
		e := snapshot[i]
		if !s.alive(e.item) {
			s.revalidate = true
			continue
		}
		visit(e.item)
	}
}

// Contains reports whether item is live or queued for add, and not queued
// for removal.
func (s *Set[T]) Contains(item T) bool {
	e, ok := s.entries[item]
	if !ok {
		return false
	}
	return e.pendingAdd || (e.live && !e.pendingRemove)
}

// Live reports whether item is in the live set as of the last flush.
func (s *Set[T]) Live(item T) bool {
	e, ok := s.entries[item]
	return ok && e.live
}

// Len returns the size of the live set.
func (s *Set[T]) Len() int { return len(s.live) }

// Pending reports whether any add or remove is waiting for a flush.
func (s *Set[T]) Pending() bool {
	if s.removals > 0 {
		return true
	}
	for _, e := range s.adds {
		if e.pendingAdd {
			return true
		}
	}
	return false
}

// NeedsRevalidation reports whether the next flush will run the extra
// prune pass.
func (s *Set[T]) NeedsRevalidation() bool { return s.revalidate }

func clearTail[E any](list []*E, from int) {
	for i := from; i < len(list); i++ {
		list[i] = nil
	}
}
