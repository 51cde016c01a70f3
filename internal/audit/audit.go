// Package audit keeps an append-only log of submit attempts. Only the
// outcome and the entered length are stored, never the entered code.
package audit

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/sweeney/keypad-lock/internal/lock"
)

// Attempt is one submit of the keypad.
type Attempt struct {
	ID      string
	At      time.Time
	Granted bool
	Length  int
	Reason  string
}

// Reasons recorded with attempts.
const (
	ReasonMatch    = "match"
	ReasonMismatch = "mismatch"
)

// FromEvent builds an Attempt from a submit event.
// It returns false for events that are not submits.
func FromEvent(ev lock.Event) (Attempt, bool) {
	if !ev.Type.IsSubmit() {
		return Attempt{}, false
	}
	a := Attempt{
		ID:      xid.NewWithTime(ev.Timestamp).String(),
		At:      ev.Timestamp,
		Granted: ev.Type == lock.EventGranted,
		Length:  ev.Length,
		Reason:  ReasonMismatch,
	}
	if a.Granted {
		a.Reason = ReasonMatch
	}
	return a, true
}

// Recorder persists attempts.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// Lister returns the most recent attempts, newest first.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]Attempt, error)
}
