package keypad

// edgeTracker turns per-scan matrix state into single press events.
// A key is reported once when it goes down and not again until every key
// has been released or a different key goes down.
type edgeTracker struct {
	held Key
}

// next takes the keys seen down in one scan (in scan order) and returns the
// newly pressed key, if any.
func (e *edgeTracker) next(down []Key) (Key, bool) {
	if len(down) == 0 {
		e.held = NoKey
		return NoKey, false
	}

	for _, k := range down {
		if k == e.held {
			return NoKey, false
		}
	}

	e.held = down[0]
	return e.held, true
}
