// File: internal/pending/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FIFO of outbound payloads awaiting transmission by the WebSocket layer.

package pending

import (
	"github.com/eapache/queue"

	"github.com/momentics/hioload-xio/api"
)

// Item is one queued payload. The payload is owned by the item.
type Item struct {
	Payload []byte
	// Opcode is the frame opcode the payload is sent with.
	Opcode byte
	// PartiallySent is set while the encoded item is in the hands of the
	// layer below and its completion is outstanding.
	PartiallySent bool

	onSend api.OnSendComplete
	done   bool
}

// Complete invokes the completion callback at most once.
// It reports whether the callback slot was still live.
func (it *Item) Complete(result api.SendResult) bool {
	if it.done {
		return false
	}
	it.done = true
	if it.onSend != nil {
		it.onSend(result)
	}
	return true
}

// Done reports whether the item has already been completed.
func (it *Item) Done() bool {
	return it.done
}

// Queue is a FIFO of pending items. It is not safe for concurrent use.
type Queue struct {
	q *queue.Queue
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{q: queue.New()}
}

// Push copies payload into a new item and appends it.
func (p *Queue) Push(payload []byte, onSend api.OnSendComplete) *Item {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	it := &Item{Payload: buf, onSend: onSend}
	p.q.Add(it)
	return it
}

// Head returns the oldest item or nil.
func (p *Queue) Head() *Item {
	if p.q.Length() == 0 {
		return nil
	}
	return p.q.Peek().(*Item)
}

// PopHead removes the head if it is it. It reports whether it was removed.
func (p *Queue) PopHead(it *Item) bool {
	if p.q.Length() == 0 || p.q.Peek().(*Item) != it {
		return false
	}
	p.q.Remove()
	return true
}

// Remove drops it from anywhere in the queue.
func (p *Queue) Remove(it *Item) bool {
	if p.PopHead(it) {
		return true
	}
	n := p.q.Length()
	found := false
	for i := 0; i < n; i++ {
		cur := p.q.Remove().(*Item)
		if cur == it && !found {
			found = true
			continue
		}
		p.q.Add(cur)
	}
	return found
}

// Len returns the number of queued items.
func (p *Queue) Len() int {
	return p.q.Length()
}

// CancelAll empties the queue in FIFO order, completing each item with
// SendCancelled. Items queued by a callback during the drain are cancelled
// as well. It returns the number of callbacks invoked.
func (p *Queue) CancelAll() int {
	n := 0
	for p.q.Length() > 0 {
		it := p.q.Remove().(*Item)
		it.Payload = nil
		if it.Complete(api.SendCancelled) {
			n++
		}
	}
	return n
}
