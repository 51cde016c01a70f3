//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealBoard drives outputs on actual hardware using Linux GPIO character device.
type RealBoard struct {
	chip  *gpiocdev.Chip
	lines map[int]*realLine // by pin
	roles map[Role]*realLine
}

type realLine struct {
	pin  int
	line *gpiocdev.Line
}

// Set drives the line high or low.
func (l *realLine) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("set pin %d: %w", l.pin, err)
	}
	return nil
}

// NewRealBoard requests every output line, initially low.
func NewRealBoard(chipName string, pins Pins) (*RealBoard, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealBoard{
		chip:  chip,
		lines: make(map[int]*realLine),
		roles: make(map[Role]*realLine),
	}

	for role, pin := range pins.byRole() {
		if l, ok := b.lines[pin]; ok {
			b.roles[role] = l
			continue
		}
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", role, pin, err)
		}
		l := &realLine{pin: pin, line: line}
		b.lines[pin] = l
		b.roles[role] = l
	}

	return b, nil
}

// Line returns the output for role.
func (b *RealBoard) Line(role Role) Line {
	return b.roles[role]
}

// Close releases GPIO resources. Safe to call more than once.
// Outputs are driven low and reconfigured to input with pull-down (matching
// Pi boot defaults) so the motor driver and LEDs are not left energised.
func (b *RealBoard) Close() error {
	var errs []error

	for pin, l := range b.lines {
		if err := l.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive pin %d low: %w", pin, err))
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	b.lines = map[int]*realLine{}
	b.roles = map[Role]*realLine{}

	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		b.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
