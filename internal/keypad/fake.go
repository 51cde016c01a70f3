package keypad

// FakeSource is a test double that replays scripted keys.
type FakeSource struct {
	// Script contains one entry per Poll. NoKey entries are idle polls.
	Script []Key

	// index tracks current position in Script
	index int

	// Polls counts calls to Poll, including those after the script ran out.
	Polls int

	// Closed tracks if Close was called
	Closed bool

	// PollError, if set, will be returned by Poll.
	PollError error
}

// NewFakeSource creates a FakeSource that returns keys in order.
func NewFakeSource(keys ...Key) *FakeSource {
	return &FakeSource{Script: keys}
}

// NewFakeSourceString creates a FakeSource from a string of key symbols.
// A space stands for an idle poll.
func NewFakeSourceString(s string) *FakeSource {
	keys := make([]Key, 0, len(s))
	for _, r := range s {
		if r == ' ' {
			keys = append(keys, NoKey)
			continue
		}
		keys = append(keys, Key(r))
	}
	return NewFakeSource(keys...)
}

// Poll returns the next scripted key. Once the script is exhausted every
// poll reports no key.
func (f *FakeSource) Poll() (Key, bool, error) {
	f.Polls++
	if f.PollError != nil {
		return NoKey, false, f.PollError
	}
	if f.index >= len(f.Script) {
		return NoKey, false, nil
	}

	k := f.Script[f.index]
	f.index++
	if k == NoKey {
		return NoKey, false, nil
	}
	return k, true, nil
}

// Remaining returns the number of scripted entries not yet consumed.
func (f *FakeSource) Remaining() int {
	return len(f.Script) - f.index
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Polls = 0
	f.Closed = false
}
