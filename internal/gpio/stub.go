//go:build !linux

package gpio

import "errors"

// RealPort is not available on non-Linux platforms.
type RealPort struct{}

// NewRealPort returns an error on non-Linux platforms.
func NewRealPort(chip string, offsets []int, shift int) (*RealPort, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *RealPort) Read() (uint32, error) {
	return 0, errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (r *RealPort) Write(value uint32) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealPort) Close() error {
	return nil
}

// ReadRegister returns an error on non-Linux platforms.
func ReadRegister(chip string, offsets []int, shift int) (uint32, error) {
	return 0, errors.New("gpio: not supported on this platform (requires Linux)")
}
