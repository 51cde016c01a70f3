package gpio

import "time"

// Transition is a single recorded output change.
type Transition struct {
	At   time.Duration // virtual time since the board was created
	Role Role
	High bool
}

// FakeBoard is a test double that records output transitions.
// It also implements Sleep by advancing a virtual clock, so timing can be
// asserted exactly without waiting.
type FakeBoard struct {
	// Now is the virtual clock.
	Now time.Duration

	// Transitions contains every Set call in order, including repeats.
	Transitions []Transition

	// Sleeps contains every Sleep duration in order.
	Sleeps []time.Duration

	// SetError, if set, will be returned by every Line.Set.
	SetError error

	// Closed tracks if Close was called
	Closed bool

	levels map[Role]bool
}

// NewFakeBoard creates a FakeBoard with every line low.
func NewFakeBoard() *FakeBoard {
	return &FakeBoard{levels: make(map[Role]bool)}
}

type fakeLine struct {
	board *FakeBoard
	role  Role
}

func (l fakeLine) Set(high bool) error {
	if l.board.SetError != nil {
		return l.board.SetError
	}
	l.board.Transitions = append(l.board.Transitions, Transition{At: l.board.Now, Role: l.role, High: high})
	l.board.levels[l.role] = high
	return nil
}

// Line returns a recording output for role.
func (f *FakeBoard) Line(role Role) Line {
	return fakeLine{board: f, role: role}
}

// Sleep advances the virtual clock by d.
func (f *FakeBoard) Sleep(d time.Duration) {
	f.Sleeps = append(f.Sleeps, d)
	f.Now += d
}

// Level returns the last value set on role.
func (f *FakeBoard) Level(role Role) bool {
	return f.levels[role]
}

// For returns the transitions recorded for role.
func (f *FakeBoard) For(role Role) []Transition {
	var out []Transition
	for _, tr := range f.Transitions {
		if tr.Role == role {
			out = append(out, tr)
		}
	}
	return out
}

// Pulses counts low-to-high edges on role.
func (f *FakeBoard) Pulses(role Role) int {
	n := 0
	level := false
	for _, tr := range f.For(role) {
		if tr.High && !level {
			n++
		}
		level = tr.High
	}
	return n
}

// Close marks the board as closed and drives every recorded line low.
func (f *FakeBoard) Close() error {
	for role, high := range f.levels {
		if high {
			f.levels[role] = false
		}
	}
	f.Closed = true
	return nil
}

// Reset clears recorded transitions and rewinds the clock.
func (f *FakeBoard) Reset() {
	f.Now = 0
	f.Transitions = nil
	f.Sleeps = nil
	f.SetError = nil
	f.Closed = false
	f.levels = make(map[Role]bool)
}
