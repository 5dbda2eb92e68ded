package session

import (
	"sort"
	"sync"
)

// Notifier is an explicit replacement for a process-wide "auth changed" event.
// Listeners carry no payload; they re-read the Accessor.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func()
}

// NewNotifier returns a notifier with no listeners.
func NewNotifier() *Notifier {
	return &Notifier{subs: map[int]func(){}}
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is idempotent.
func (n *Notifier) Subscribe(fn func()) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Notify calls every listener synchronously in subscription order.
// Listeners may unsubscribe during the call.
func (n *Notifier) Notify() {
	n.mu.Lock()
	ids := make([]int, 0, len(n.subs))
	fns := make(map[int]func(), len(n.subs))
	for id, fn := range n.subs {
		ids = append(ids, id)
		fns[id] = fn
	}
	n.mu.Unlock()

	sort.Ints(ids)
	for _, id := range ids {
		fns[id]()
	}
}

// Len reports the number of listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
