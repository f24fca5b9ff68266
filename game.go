/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync"
	"time"
)

// MoveLogEntry records one applied move and who played it.
type MoveLogEntry struct {
	Ordinal      int
	Move         Move
	SAN          string
	AttributedTo string
}

// Snapshot is an immutable view of the game at one instant. Version grows
// by one on every applied move and every reset.
type Snapshot struct {
	Version     uint64      `json:"-"`
	FEN         string      `json:"fen"`
	StatusText  string      `json:"statusText"`
	PGN         string      `json:"pgn"`
	Orientation Orientation `json:"orientation"`
}

// GameState owns the board, the move log and the orientation flag.
// Writers are serialized by SessionArbiter. The board is only touched under
// the write lock; readers are served from the snapshot and legal-move list
// cached by the last write.
type GameState struct {
	oracle Oracle
	now    func() time.Time

	mu          sync.RWMutex
	board       Board
	log         []MoveLogEntry
	orientation OrientationTracker
	version     uint64

	current Snapshot
	legal   []Move
}

func newGameState(oracle Oracle, now func() time.Time) *GameState {
	g := &GameState{
		oracle: oracle,
		now:    now,
		board:  oracle.NewBoard(),
	}
	g.refreshLocked()

	return g
}

// Apply validates token against the current position and commits it.
// Rejected moves leave the state untouched.
func (g *GameState) Apply(token, attributedTo string) (Snapshot, error) {
	if attributedTo == "" {
		attributedTo = anonymous
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	m, err := g.board.Decode(token)
	if err != nil {
		return Snapshot{}, err
	}

	if !containsMove(g.legal, m) {
		return Snapshot{}, ErrIllegal
	}

	san, err := g.board.Apply(m, attribution(attributedTo))
	if err != nil {
		return Snapshot{}, err
	}

	g.log = append(g.log, MoveLogEntry{
		Ordinal:      len(g.log) + 1,
		Move:         m,
		SAN:          san,
		AttributedTo: attributedTo,
	})

	g.orientation.Toggle()
	g.version++
	g.refreshLocked()

	return g.current, nil
}

// Reset restores the initial position, clears the log and the orientation
// in a single step.
func (g *GameState) Reset() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.board = g.oracle.NewBoard()
	g.log = nil
	g.orientation.Reset()
	g.version++
	g.refreshLocked()

	return g.current
}

func (g *GameState) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.current
}

// refreshLocked recomputes everything readers see. The record's Date header
// is the date of the last change. Callers hold the write lock.
func (g *GameState) refreshLocked() {
	g.legal = g.board.Legal()
	g.current = Snapshot{
		Version:     g.version,
		FEN:         g.board.FEN(),
		StatusText:  statusText(g.board),
		PGN:         gameRecord(g.board, g.now()),
		Orientation: g.orientation.Current(),
	}
}

// LegalDestinations lists the squares the piece on from may move to. A
// malformed or empty square yields an empty list.
func (g *GameState) LegalDestinations(from string) []string {
	destinations := []string{}

	if !isSquare(from) {
		return destinations
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	for _, m := range g.legal {
		if m.From != from || seen[m.To] {
			continue
		}
		seen[m.To] = true
		destinations = append(destinations, m.To)
	}

	return destinations
}

func (g *GameState) Moves() []MoveLogEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]MoveLogEntry, len(g.log))
	copy(out, g.log)

	return out
}

func containsMove(moves []Move, m Move) bool {
	for _, v := range moves {
		if v == m {
			return true
		}
	}

	return false
}
