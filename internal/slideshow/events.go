package slideshow

import "sync"

type EventName string

const (
	EventSlideChanged     EventName = "SlideChanged"
	EventSlideShowStarted EventName = "SlideShowStarted"
	EventSlideShowStopped EventName = "SlideShowStopped"
)

// Event is a typed notification; the payload shape is fixed per kind.
type Event interface {
	Name() EventName
}

type SlideChanged struct {
	OldIndex     int
	NewIndex     int
	IsFirstSlide bool
	IsLastSlide  bool
}

func (SlideChanged) Name() EventName { return EventSlideChanged }

type SlideShowStarted struct {
	CurrentIndex int
}

func (SlideShowStarted) Name() EventName { return EventSlideShowStarted }

type SlideShowStopped struct {
	CurrentIndex int
}

func (SlideShowStopped) Name() EventName { return EventSlideShowStopped }

type ListenerID uint64

type subscription struct {
	id ListenerID
	fn func(Event)
}

// Bus is an in-memory EventBus. Listeners run synchronously on the
// publishing goroutine, in registration order.
type Bus struct {
	mu        sync.RWMutex
	next      ListenerID
	listeners map[EventName][]subscription
}

func NewBus() *Bus {
	return &Bus{listeners: map[EventName][]subscription{}}
}

func (b *Bus) Subscribe(name EventName, fn func(Event)) ListenerID {
	if fn == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.listeners[name] = append(b.listeners[name], subscription{id: b.next, fn: fn})
	return b.next
}

func (b *Bus) Unsubscribe(name EventName, id ListenerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.listeners[name]
	for i, s := range subs {
		if s.id == id {
			b.listeners[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	b.mu.RLock()
	subs := append([]subscription(nil), b.listeners[ev.Name()]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(ev)
	}
}
