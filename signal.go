package machina

import . "github.com/enetx/g"

// SystemBus is the SignalBus used by machines that do not inject one.
var SystemBus = NewBus()

// Bus is an in-process SignalBus. Publish invokes subscriber callbacks on the
// publisher's goroutine; subscribers needing a specific context marshal
// themselves, which is exactly what signal transitions do.
type Bus struct {
	subs *MapSafe[SignalID, Slice[*busSubscription]]
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: NewMapSafe[SignalID, Slice[*busSubscription]]()}
}

// Subscribe registers fn for the named signal and returns its subscription
// handle.
func (b *Bus) Subscribe(name SignalID, fn func()) Subscription {
	sub := &busSubscription{bus: b, name: name, fn: fn}

	b.subs.Entry(name).
		AndModify(func(list *Slice[*busSubscription]) { list.Push(sub) }).
		OrInsert(SliceOf(sub))

	return sub
}

// Publish delivers the named signal to every current subscriber.
func (b *Bus) Publish(name SignalID) {
	if list := b.subs.Get(name); list.IsSome() {
		for sub := range list.Some().Iter() {
			sub.fn()
		}
	}
}

type busSubscription struct {
	bus  *Bus
	name SignalID
	fn   func()
}

// Unsubscribe removes the subscription from its bus. Idempotent.
func (s *busSubscription) Unsubscribe() {
	s.bus.subs.Entry(s.name).
		AndModify(func(list *Slice[*busSubscription]) {
			*list = list.Iter().Exclude(func(x *busSubscription) bool { return x == s }).Collect()
		}).
		OrDefault()
}
