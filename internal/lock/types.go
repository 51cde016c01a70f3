// Package lock contains the keypad lock state machine: password
// accumulation, validation and the unlock actuation sequence.
// It performs no I/O of its own. Output lines, sleeping, time and the
// diagnostic logger are all injected.
package lock

import (
	"time"

	"github.com/sweeney/keypad-lock/internal/keypad"
)

// EventType describes what a handled key did.
type EventType string

const (
	EventKey        EventType = "KEY"
	EventKeyDropped EventType = "KEY_DROPPED"
	EventReset      EventType = "RESET"
	EventGranted    EventType = "GRANTED"
	EventDenied     EventType = "DENIED"
)

// IsSubmit reports whether the event is the outcome of a submit attempt.
func (t EventType) IsSubmit() bool {
	return t == EventGranted || t == EventDenied
}

// Event is the result of handling one key.
// The entered code is never carried, only its length.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Key       keypad.Key
	// Length is the candidate length for submit events and the buffer
	// length after the key otherwise.
	Length int
}

// ActuatorState is the phase of the unlock cycle.
type ActuatorState string

const (
	ActuatorIdle      ActuatorState = "IDLE"
	ActuatorUnlocking ActuatorState = "UNLOCKING"
	ActuatorOpen      ActuatorState = "OPEN"
	ActuatorLocking   ActuatorState = "LOCKING"
)

// Counts tracks the number of each event type since startup.
type Counts struct {
	Keys    int
	Dropped int
	Resets  int
	Granted int
	Denied  int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}

// Output is a single digital output line.
type Output interface {
	Set(high bool) error
}

// Sleeper blocks for a duration.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleepFunc adapts a function such as time.Sleep to Sleeper.
type SleepFunc func(time.Duration)

// Sleep calls f(d).
func (f SleepFunc) Sleep(d time.Duration) { f(d) }
