package search

import "sync"

// maxNotices bounds the queue so an idle visitor cannot grow it forever.
const maxNotices = 8

// Notices queues messages for the visitor until the next page render.
type Notices struct {
	mu   sync.Mutex
	msgs []string
}

// Notify queues msg, dropping the oldest message when the queue is full.
func (n *Notices) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.msgs) == maxNotices {
		n.msgs = n.msgs[1:]
	}
	n.msgs = append(n.msgs, msg)
}

// Drain returns the queued messages and empties the queue.
func (n *Notices) Drain() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.msgs
	n.msgs = nil
	return out
}
