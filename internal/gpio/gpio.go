// Package gpio provides digital output lines with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation records transitions against a virtual clock.
package gpio

import "fmt"

// Role names an output line by what it drives.
type Role int

const (
	RoleDirection Role = iota
	RoleStep
	RoleSuccess
	RoleFailure
	RoleActivity
)

func (r Role) String() string {
	switch r {
	case RoleDirection:
		return "DIR"
	case RoleStep:
		return "STEP"
	case RoleSuccess:
		return "SUCCESS"
	case RoleFailure:
		return "FAILURE"
	case RoleActivity:
		return "ACTIVITY"
	default:
		return fmt.Sprintf("ROLE(%d)", int(r))
	}
}

// Line is a single digital output.
type Line interface {
	// Set drives the line high (true) or low (false).
	Set(high bool) error
}

// Board hands out output lines by role.
type Board interface {
	// Line returns the output for role. Roles wired to the same pin share
	// one Line.
	Line(role Role) Line

	// Close drives every output low and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinDirection = 26
	DefaultPinStep      = 25
	DefaultPinSuccess   = 13 // green LED
	DefaultPinFailure   = 14 // red LED, also used for key activity
)

// Pins holds the BCM offsets of every output role.
type Pins struct {
	Direction int
	Step      int
	Success   int
	Failure   int
	Activity  int // may equal Failure to share one LED
}

// DefaultPins returns the stock wiring, with activity on the failure LED.
func DefaultPins() Pins {
	return Pins{
		Direction: DefaultPinDirection,
		Step:      DefaultPinStep,
		Success:   DefaultPinSuccess,
		Failure:   DefaultPinFailure,
		Activity:  DefaultPinFailure,
	}
}

// byRole returns the pin for every role.
func (p Pins) byRole() map[Role]int {
	return map[Role]int{
		RoleDirection: p.Direction,
		RoleStep:      p.Step,
		RoleSuccess:   p.Success,
		RoleFailure:   p.Failure,
		RoleActivity:  p.Activity,
	}
}

// Validate rejects negative pins and pins shared between roles, except the
// failure/activity pair.
func (p Pins) Validate() error {
	owner := make(map[int]Role)
	pins := p.byRole()
	for role := RoleDirection; role <= RoleActivity; role++ {
		pin := pins[role]
		if pin < 0 {
			return fmt.Errorf("output pins: %s pin %d is negative", role, pin)
		}
		if prev, ok := owner[pin]; ok {
			if prev == RoleFailure && role == RoleActivity {
				continue
			}
			return fmt.Errorf("output pins: pin %d used by both %s and %s", pin, prev, role)
		}
		owner[pin] = role
	}
	return nil
}
