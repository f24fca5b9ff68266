/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"time"
)

// statusText describes the position for humans. It is shared by the status
// query and every broadcast so both always agree.
func statusText(b Board) string {
	if b.Over() {
		switch b.Result() {
		case "1-0":
			return "Checkmate! White wins!"
		case "0-1":
			return "Checkmate! Black wins!"
		case "1/2-1/2":
			return "Game over. Draw!"
		default:
			return "Game over."
		}
	}

	side := "Black"
	if b.WhiteToMove() {
		side = "White"
	}

	if b.InCheck() {
		return side + " to move, and they're in check!"
	}

	return side + " to move."
}

// attribution is the record comment crediting a move to its player.
// Closing braces would end the PGN comment early, so they are dropped.
func attribution(name string) string {
	return strings.TrimSpace(strings.ReplaceAll("Move made by "+name, "}", ""))
}

// gameRecord exports the board's game as PGN under the seven standard
// headers. Move comments are attached by GameState as moves are played.
func gameRecord(b Board, date time.Time) string {
	result := b.Result()
	if result == "" {
		result = "*"
	}

	return b.Record([]TagPair{
		{"Event", "Office Chess"},
		{"Site", "Office"},
		{"Date", date.Format("2006.01.02")},
		{"Round", "1"},
		{"White", "White"},
		{"Black", "Black"},
		{"Result", result},
	})
}
