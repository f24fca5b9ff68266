/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync"

	"github.com/google/uuid"
)

// Subscriber is one viewer's delivery queue. It holds no game state beyond
// the version of the last snapshot it accepted.
type Subscriber struct {
	ID   string
	Name string

	mu     sync.Mutex
	send   chan Snapshot
	last   uint64
	seen   bool
	closed bool
}

// Updates yields every snapshot offered to the subscriber, in version order.
// It is closed when the subscriber is dropped.
func (s *Subscriber) Updates() <-chan Snapshot {
	return s.send
}

// offer queues snap without blocking. Snapshots no newer than the last one
// queued are skipped. full reports that the viewer has fallen behind.
func (s *Subscriber) offer(snap Snapshot) (sent, full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || (s.seen && snap.Version <= s.last) {
		return false, false
	}

	select {
	case s.send <- snap:
		s.last = snap.Version
		s.seen = true
		return true, false
	default:
		return false, true
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// BroadcastHub fans snapshots out to every registered subscriber. Its
// registry lock is independent of the game lock.
type BroadcastHub struct {
	buffer int

	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
}

func newBroadcastHub(buffer int) *BroadcastHub {
	if buffer < 1 {
		buffer = 1
	}

	return &BroadcastHub{
		buffer:      buffer,
		subscribers: make(map[*Subscriber]struct{}),
	}
}

func (h *BroadcastHub) Subscribe(name string) *Subscriber {
	s := &Subscriber{
		ID:   uuid.NewString(),
		Name: name,
		send: make(chan Snapshot, h.buffer),
	}

	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	h.mu.Unlock()

	return s
}

func (h *BroadcastHub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[s]
	delete(h.subscribers, s)
	h.mu.Unlock()

	if ok {
		s.close()
	}
}

// Publish offers snap to everyone registered when it is called and returns
// how many queued it. Subscribers that cannot keep up are dropped.
func (h *BroadcastHub) Publish(snap Snapshot) int {
	h.mu.Lock()
	targets := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	delivered := 0
	for _, s := range targets {
		sent, full := s.offer(snap)
		if sent {
			delivered++
		}
		if full {
			h.Unsubscribe(s)
		}
	}

	return delivered
}

func (h *BroadcastHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

// CloseAll drops every subscriber, ending their update streams.
func (h *BroadcastHub) CloseAll() {
	h.mu.Lock()
	targets := h.subscribers
	h.subscribers = make(map[*Subscriber]struct{})
	h.mu.Unlock()

	for s := range targets {
		s.close()
	}
}
