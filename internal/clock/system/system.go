// Package system provides the wall clock that stamps ingested papers.
package system

import "time"

// Clock implements paper.Clock on the system wall clock. Timestamps are
// normalized to UTC so added_at ordering is stable across hosts.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
