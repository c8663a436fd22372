package storage

import "sync"

// Notifier fans out row-change signals to live query subscribers. Each
// signal carries the changed row's date so watchers outside the range
// can skip the re-query; zero means "date unknown, always re-query".
//
// Subscriber channels hold one pending signal. A broadcast finding the
// buffer full collapses the pending signal to zero: two queued signals
// with different dates must not let a range filter skip either one, and
// the single re-query that follows starts after both inserts committed,
// so it observes both rows.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]chan int64
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan int64)}
}

// Subscribe registers a signal channel. The returned cancel func must
// be called when the subscriber is done; the channel is not closed.
func (n *Notifier) Subscribe() (<-chan int64, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan int64, 1)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
	return ch, cancel
}

// Broadcast signals every subscriber without blocking.
func (n *Notifier) Broadcast(dateMillis int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- dateMillis:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- 0:
			default:
			}
		}
	}
}
