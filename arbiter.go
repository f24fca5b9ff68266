/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"sync"
	"time"
)

// Ack is returned to the submitter of an accepted move.
type Ack struct {
	Status      string      `json:"status"`
	FEN         string      `json:"fen"`
	Orientation Orientation `json:"orientation"`

	Snapshot Snapshot `json:"-"`
}

// SessionArbiter is the only way to change the shared game. Mutations run
// one at a time under mu; broadcasts run afterwards under fanout, which is
// taken before mu is released so snapshots go out in commit order.
type SessionArbiter struct {
	cfg      *Config
	state    *GameState
	hub      *BroadcastHub
	identity *IdentityResolver

	mu     sync.Mutex
	fanout sync.Mutex
}

func newSessionArbiter(cfg *Config, oracle Oracle) *SessionArbiter {
	return &SessionArbiter{
		cfg:      cfg,
		state:    newGameState(oracle, time.Now),
		hub:      newBroadcastHub(cfg.subscriberBuffer),
		identity: newIdentityResolver(),
	}
}

// publish hands the critical section over to the fan-out stage. The caller
// must hold a.mu; publish releases it.
func (a *SessionArbiter) publish(snap Snapshot) int {
	a.fanout.Lock()
	a.mu.Unlock()
	defer a.fanout.Unlock()

	return a.hub.Publish(snap)
}

func (a *SessionArbiter) SubmitMove(src CookieSource, token string) (Ack, error) {
	name := a.identity.Resolve(src)

	a.mu.Lock()

	snap, err := a.state.Apply(token, name)
	if err != nil {
		a.mu.Unlock()

		logf(a.cfg, "CHESS: Rejected %q from %q: %v", token, name, err)

		return Ack{}, err
	}

	delivered := a.publish(snap)

	logf(a.cfg, "CHESS: %q played %s, sent to %d viewer(s)", name, token, delivered)

	return Ack{
		Status:      "ok",
		FEN:         snap.FEN,
		Orientation: snap.Orientation,
		Snapshot:    snap,
	}, nil
}

func (a *SessionArbiter) LegalDestinations(square string) []string {
	return a.state.LegalDestinations(square)
}

func (a *SessionArbiter) Status() Snapshot {
	return a.state.Snapshot()
}

func (a *SessionArbiter) Reset() Snapshot {
	a.mu.Lock()

	snap := a.state.Reset()

	delivered := a.publish(snap)

	logf(a.cfg, "CHESS: Board reset, sent to %d viewer(s)", delivered)

	return snap
}

func (a *SessionArbiter) RegisterIdentity(name string) (*http.Cookie, error) {
	return a.identity.Issue(name)
}

// Join registers a viewer and queues the current snapshot as its first
// update, so a late joiner never waits for the next move to see the board.
func (a *SessionArbiter) Join(name string) (*Subscriber, Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sub := a.hub.Subscribe(name)
	snap := a.state.Snapshot()
	sub.offer(snap)

	return sub, snap
}

func (a *SessionArbiter) Leave(sub *Subscriber) {
	a.hub.Unsubscribe(sub)
}

// Close ends every viewer's update stream.
func (a *SessionArbiter) Close() {
	a.hub.CloseAll()
}
