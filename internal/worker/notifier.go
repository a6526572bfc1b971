package worker

import "sync"

// EventKind names what part of the ledger changed.
type EventKind string

const (
	TransactionsChanged EventKind = "transactionsChanged"
	AccountsChanged     EventKind = "accountsChanged"
	CategoriesChanged   EventKind = "categoriesChanged"
	SnapshotLoaded      EventKind = "snapshotLoaded"
)

// Event tells subscribers the ledger changed and which version it is now at.
type Event struct {
	Kind    EventKind `json:"kind"`
	Version int64     `json:"version"`
}

// subscriberBuffer bounds how far a slow subscriber may fall behind before
// events to it are dropped.
const subscriberBuffer = 16

// Notifier fans change events out to subscribers. Publishing never blocks.
type Notifier struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewNotifier creates a notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a function that unsubscribes and
// closes it.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if n.closed {
		close(ch)
		return ch, func() {}
	}

	id := n.nextID
	n.nextID++
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if sub, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers ev to every subscriber with room for it.
func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close closes every subscriber channel.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		close(ch)
		delete(n.subs, id)
	}
}
