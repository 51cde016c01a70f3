//go:build linux

package keypad

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// settleDelay lets the column inputs follow a row change before sampling.
const settleDelay = 10 * time.Microsecond

// Matrix scans a 4x4 keypad wired to the Linux GPIO character device.
// Rows are driven low one at a time; columns are inputs with pull-up, so a
// pressed key reads low on its column while its row is active.
type Matrix struct {
	chip   *gpiocdev.Chip
	rows   []*gpiocdev.Line
	cols   []*gpiocdev.Line
	layout Layout
	edges  edgeTracker
}

// NewMatrix requests the row and column lines on the given chip.
func NewMatrix(chipName string, pins Pins, layout Layout) (*Matrix, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	m := &Matrix{chip: chip, layout: layout}

	for _, pin := range pins.Rows {
		l, err := chip.RequestLine(pin, gpiocdev.AsOutput(1))
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("request row pin %d: %w", pin, err)
		}
		m.rows = append(m.rows, l)
	}

	for _, pin := range pins.Cols {
		l, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("request column pin %d: %w", pin, err)
		}
		m.cols = append(m.cols, l)
	}

	return m, nil
}

// Poll scans the matrix once and returns a key that went down since the
// previous scan.
func (m *Matrix) Poll() (Key, bool, error) {
	down, err := m.scan()
	if err != nil {
		return NoKey, false, err
	}
	k, ok := m.edges.next(down)
	return k, ok, nil
}

func (m *Matrix) scan() ([]Key, error) {
	var down []Key
	for r, row := range m.rows {
		if err := row.SetValue(0); err != nil {
			return nil, fmt.Errorf("drive row %d: %w", r, err)
		}
		time.Sleep(settleDelay)

		for c, col := range m.cols {
			v, err := col.Value()
			if err != nil {
				row.SetValue(1)
				return nil, fmt.Errorf("read column %d: %w", c, err)
			}
			if v == 0 {
				down = append(down, m.layout[r][c])
			}
		}

		if err := row.SetValue(1); err != nil {
			return nil, fmt.Errorf("release row %d: %w", r, err)
		}
	}
	return down, nil
}

// Close releases GPIO resources.
// Rows are returned to input with pull-down before closing so the matrix is
// not left driven.
func (m *Matrix) Close() error {
	var errs []error

	for i, l := range m.rows {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure row %d: %w", i, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close row %d: %w", i, err))
		}
	}
	for i, l := range m.cols {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close column %d: %w", i, err))
		}
	}
	m.rows, m.cols = nil, nil

	if m.chip != nil {
		if err := m.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		m.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
