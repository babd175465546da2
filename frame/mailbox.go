package frame

import (
	"context"
	"sync"
	"sync/atomic"
)

// MailboxStats is a snapshot of a mailbox's counters.
type MailboxStats struct {
	Published uint64
	Delivered uint64
	Dropped   uint64
}

// Mailbox is a single-slot hand-off between a capture goroutine and one consumer.
//
// Publish never blocks: a frame that has not been consumed yet is replaced by the newer one
// and released, so the consumer always sees the most recent frame and memory stays bounded.
type Mailbox struct {
	mu     sync.Mutex
	slot   *Frame
	closed bool

	ready chan struct{}
	done  chan struct{}

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Publish stores f as the latest frame, releasing any frame that was never delivered.
//
// Returns:
//   - bool: false if the mailbox is closed, in which case f has been released.
func (m *Mailbox) Publish(f *Frame) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		f.Release()
		return false
	}
	stale := m.slot
	m.slot = f
	m.mu.Unlock()

	if stale != nil {
		stale.Release()
		m.dropped.Add(1)
	}
	m.published.Add(1)

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// Next blocks until a frame is published, the context is done, or the mailbox is closed.
// Ownership of the returned frame passes to the caller.
func (m *Mailbox) Next(ctx context.Context) (*Frame, error) {
	for {
		m.mu.Lock()
		if f := m.slot; f != nil {
			m.slot = nil
			m.mu.Unlock()
			m.delivered.Add(1)
			return f, nil
		}
		closed := m.closed
		m.mu.Unlock()

		if closed {
			return nil, ErrSourceClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.ready:
		case <-m.done:
		}
	}
}

// Finish stops accepting frames but keeps the pending one: Next delivers it and then returns
// ErrSourceClosed. It is idempotent.
func (m *Mailbox) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
}

// Close releases any pending frame, counting it as dropped, and wakes blocked consumers. It is
// idempotent and may follow Finish.
func (m *Mailbox) Close() {
	m.mu.Lock()
	stale := m.slot
	m.slot = nil
	wasClosed := m.closed
	m.closed = true
	m.mu.Unlock()

	if stale != nil {
		stale.Release()
		m.dropped.Add(1)
	}
	if !wasClosed {
		close(m.done)
	}
}

// Stats returns the current counters.
func (m *Mailbox) Stats() MailboxStats {
	return MailboxStats{
		Published: m.published.Load(),
		Delivered: m.delivered.Load(),
		Dropped:   m.dropped.Load(),
	}
}
