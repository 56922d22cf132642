// Package event provides observer lists used in place of reactive streams.
package event

// Subscription detaches a single observer. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

type subscription[T any] struct {
	subject *Subject[T]
	id      int
}

func (s *subscription[T]) Unsubscribe() {
	if s.subject == nil {
		return
	}
	s.subject.remove(s.id)
	s.subject = nil
}

type observer[T any] struct {
	id int
	fn func(T)
}

// Subject delivers values synchronously to its observers in subscription
// order. A Subject optionally remembers the last value (see NewBehavior).
type Subject[T any] struct {
	observers []observer[T]
	nextID    int
	closed    bool

	behavior bool
	hasValue bool
	value    T
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// NewBehavior returns a subject that replays its current value to new subscribers.
func NewBehavior[T any](initial T) *Subject[T] {
	return &Subject[T]{behavior: true, hasValue: true, value: initial}
}

func (s *Subject[T]) Subscribe(fn func(T)) Subscription {
	if s.closed {
		return &subscription[T]{}
	}
	s.nextID++
	s.observers = append(s.observers, observer[T]{id: s.nextID, fn: fn})
	if s.behavior && s.hasValue {
		fn(s.value)
	}
	return &subscription[T]{subject: s, id: s.nextID}
}

func (s *Subject[T]) Next(v T) {
	if s.closed {
		return
	}
	if s.behavior {
		s.value = v
		s.hasValue = true
	}
	// observers may unsubscribe while being notified
	obs := append([]observer[T](nil), s.observers...)
	for _, o := range obs {
		o.fn(v)
	}
}

// Value returns the last value of a behavior subject.
func (s *Subject[T]) Value() T {
	return s.value
}

func (s *Subject[T]) ObserverCount() int {
	return len(s.observers)
}

// Close drops every observer; later Subscribe and Next calls are no-ops.
func (s *Subject[T]) Close() {
	s.observers = nil
	s.closed = true
}

func (s *Subject[T]) remove(id int) {
	for i, o := range s.observers {
		if o.id == id {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Group collects subscriptions so they can be released together.
type Group struct {
	subs []Subscription
}

func (g *Group) Add(s ...Subscription) {
	g.subs = append(g.subs, s...)
}

func (g *Group) Unsubscribe() {
	for _, s := range g.subs {
		s.Unsubscribe()
	}
	g.subs = nil
}
