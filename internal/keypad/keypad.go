// Package keypad provides key events from a 4x4 matrix keypad with hardware
// abstraction. The real implementation scans the matrix through the Linux GPIO
// character device. The fake implementation replays scripted key presses.
package keypad

import "fmt"

// Key is a single symbol from the keypad alphabet.
// The zero value means no key.
type Key rune

// Control keys.
const (
	KeyReset  Key = '*'
	KeySubmit Key = '#'
)

// NoKey is returned alongside ok=false and used in scripts for idle polls.
const NoKey Key = 0

// Alphabet lists every symbol the keypad can produce.
const Alphabet = "0123456789ABCD*#"

// Valid reports whether k belongs to the keypad alphabet.
func (k Key) Valid() bool {
	for _, r := range Alphabet {
		if Key(r) == k {
			return true
		}
	}
	return false
}

// IsControl reports whether k is the reset or submit key.
func (k Key) IsControl() bool {
	return k == KeyReset || k == KeySubmit
}

func (k Key) String() string {
	if k == NoKey {
		return "NONE"
	}
	return string(rune(k))
}

// Source produces at most one key event per poll.
type Source interface {
	// Poll returns the newly pressed key, if any. It never blocks waiting
	// for a press; ok is false when no new key is down.
	Poll() (key Key, ok bool, err error)

	// Close releases the underlying resources.
	Close() error
}

// Layout maps matrix positions (row, column) to keys.
type Layout [4][4]Key

// DefaultLayout is the standard 4x4 membrane keypad.
var DefaultLayout = Layout{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// Validate checks that every position holds a distinct alphabet symbol.
func (l Layout) Validate() error {
	seen := make(map[Key]bool, 16)
	for r, row := range l {
		for c, k := range row {
			if !k.Valid() {
				return fmt.Errorf("layout: invalid key %q at row %d col %d", rune(k), r, c)
			}
			if seen[k] {
				return fmt.Errorf("layout: duplicate key %q at row %d col %d", rune(k), r, c)
			}
			seen[k] = true
		}
	}
	return nil
}

// Pins holds the BCM line offsets of the matrix.
type Pins struct {
	Rows []int
	Cols []int
}

// Default matrix wiring (BCM numbering).
var (
	DefaultRowPins = []int{18, 17, 16, 4}
	DefaultColPins = []int{23, 22, 21, 19}
)

// Validate checks that the matrix has four distinct rows and columns.
func (p Pins) Validate() error {
	if len(p.Rows) != 4 {
		return fmt.Errorf("keypad pins: need 4 rows, got %d", len(p.Rows))
	}
	if len(p.Cols) != 4 {
		return fmt.Errorf("keypad pins: need 4 columns, got %d", len(p.Cols))
	}
	seen := make(map[int]bool, 8)
	for _, pin := range append(append([]int{}, p.Rows...), p.Cols...) {
		if pin < 0 {
			return fmt.Errorf("keypad pins: negative pin %d", pin)
		}
		if seen[pin] {
			return fmt.Errorf("keypad pins: pin %d used twice", pin)
		}
		seen[pin] = true
	}
	return nil
}
