//go:build !linux

package keypad

import "errors"

// Matrix is not available on non-Linux platforms.
type Matrix struct{}

// NewMatrix returns an error on non-Linux platforms.
func NewMatrix(chipName string, pins Pins, layout Layout) (*Matrix, error) {
	return nil, errors.New("keypad: not supported on this platform (requires Linux)")
}

// Poll is not implemented on non-Linux platforms.
func (m *Matrix) Poll() (Key, bool, error) {
	return NoKey, false, errors.New("keypad: not supported")
}

// Close is not implemented on non-Linux platforms.
func (m *Matrix) Close() error {
	return nil
}
