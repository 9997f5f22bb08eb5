// Package gpio provides the LED output register with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Port is a 32-bit output register.
type Port interface {
	// Read returns the current register value.
	Read() (uint32, error)

	// Write replaces the register value.
	Write(value uint32) error

	// Close releases GPIO resources.
	Close() error
}

// Default LED line offsets on gpiochip0 (BCM numbering), one per LED bit
// in order green, orange, red, blue.
var DefaultLEDOffsets = []int{17, 27, 22, 23}

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"
