// Package led maps the four-LED display patterns onto the output register.
// Pattern functions are pure; Driver performs the register write.
package led

import "fmt"

// Pattern bits (bit 0..3 of a display pattern).
const (
	Green  uint32 = 1 << 0
	Orange uint32 = 1 << 1
	Red    uint32 = 1 << 2
	Blue   uint32 = 1 << 3

	// All covers every LED in a pattern.
	All = Green | Orange | Red | Blue
)

// Register layout: the LEDs sit on output bits 12..15 (PD12-PD15).
const (
	Shift        = 12
	RegisterMask = All << Shift
)

// Timing of the display patterns, in ticks.
const (
	SequentialStep    = 200
	BinaryCounterStep = 500
	BlinkPeriod       = 100
	BlinkOnTime       = 50
)

// Sequential lights one LED at a time, advancing every 200 ticks.
// Period is 800 ticks.
func Sequential(counter uint32) uint32 {
	return 1 << ((counter / SequentialStep) % 4)
}

// BinaryCounter shows a 4-bit counter advancing every 500 ticks.
// Period is 8000 ticks.
func BinaryCounter(counter uint32) uint32 {
	return (counter / BinaryCounterStep) % 16
}

// Blink returns pattern during the first half of each 100-tick period, 0 otherwise.
func Blink(tick, pattern uint32) uint32 {
	if tick%BlinkPeriod < BlinkOnTime {
		return pattern
	}
	return 0
}

// ToRegister shifts a display pattern onto the LED register bits.
func ToRegister(pattern uint32) uint32 {
	return (pattern << Shift) & RegisterMask
}

// FromRegister extracts the display pattern from a register value.
func FromRegister(reg uint32) uint32 {
	return (reg & RegisterMask) >> Shift
}

// Register is the output register the LEDs are wired to.
type Register interface {
	Read() (uint32, error)
	Write(value uint32) error
}

// Driver writes display patterns to an output register.
type Driver struct {
	port Register
	last uint32
}

// NewDriver creates a Driver on the given register.
func NewDriver(port Register) *Driver {
	return &Driver{port: port}
}

// Set shows pattern on the LEDs. Register bits outside RegisterMask are
// read back and preserved.
func (d *Driver) Set(pattern uint32) error {
	reg, err := d.port.Read()
	if err != nil {
		return fmt.Errorf("read led register: %w", err)
	}
	reg = (reg &^ RegisterMask) | ToRegister(pattern)
	if err := d.port.Write(reg); err != nil {
		return fmt.Errorf("write led register: %w", err)
	}
	d.last = pattern & All
	return nil
}

// Pattern returns the last pattern successfully written.
func (d *Driver) Pattern() uint32 {
	return d.last
}

// Names returns the names of the lit LEDs in pattern, in bit order.
func Names(pattern uint32) []string {
	var names []string
	for i, name := range []string{"green", "orange", "red", "blue"} {
		if pattern&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return names
}
