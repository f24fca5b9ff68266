/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Orientation is the side of the board shown at the bottom for every viewer.
// It flips on every accepted move and has no bearing on whose turn it is.
type Orientation string

const (
	White Orientation = "white"
	Black Orientation = "black"
)

type OrientationTracker struct {
	blackUp bool
}

func (o *OrientationTracker) Toggle() {
	o.blackUp = !o.blackUp
}

func (o *OrientationTracker) Reset() {
	o.blackUp = false
}

func (o *OrientationTracker) Current() Orientation {
	if o.blackUp {
		return Black
	}

	return White
}
