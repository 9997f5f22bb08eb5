//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealPort drives output lines on the Linux GPIO character device.
// Register bit shift+i maps to offsets[i]. The remaining register bits have
// no physical line and are kept in a shadow value so read-modify-write
// callers see them preserved.
type RealPort struct {
	mu     sync.Mutex
	chip   *gpiocdev.Chip
	lines  *gpiocdev.Lines
	shift  int
	n      int
	shadow uint32
}

// NewRealPort requests offsets on chip as outputs, initially low.
func NewRealPort(chip string, offsets []int, shift int) (*RealPort, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no gpio offsets configured")
	}
	if shift < 0 || shift+len(offsets) > 32 {
		return nil, fmt.Errorf("register shift %d with %d lines exceeds 32 bits", shift, len(offsets))
	}

	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	initial := make([]int, len(offsets))
	lines, err := c.RequestLines(offsets, gpiocdev.AsOutput(initial...), gpiocdev.WithConsumer("led-sequencer"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request led lines %v: %w", offsets, err)
	}

	return &RealPort{
		chip:  c,
		lines: lines,
		shift: shift,
		n:     len(offsets),
	}, nil
}

// Read returns the shadow register with the line bits refreshed from hardware.
func (r *RealPort) Read() (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := make([]int, r.n)
	if err := r.lines.Values(values); err != nil {
		return 0, fmt.Errorf("read led lines: %w", err)
	}

	reg := r.shadow
	for i, v := range values {
		bit := uint32(1) << (r.shift + i)
		if v != 0 {
			reg |= bit
		} else {
			reg &^= bit
		}
	}
	r.shadow = reg
	return reg, nil
}

// Write drives each line from its register bit and stores the rest.
func (r *RealPort) Write(value uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := make([]int, r.n)
	for i := range values {
		if value&(1<<(r.shift+i)) != 0 {
			values[i] = 1
		}
	}
	if err := r.lines.SetValues(values); err != nil {
		return fmt.Errorf("set led lines: %w", err)
	}
	r.shadow = value
	return nil
}

// Close releases GPIO resources.
// Turns the LEDs off and returns the lines to inputs with pull-down
// (matching Pi boot defaults) before closing.
func (r *RealPort) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error

	if r.lines != nil {
		if err := r.lines.SetValues(make([]int, r.n)); err != nil {
			errs = append(errs, fmt.Errorf("clear led lines: %w", err))
		}
		if err := r.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure led lines: %w", err))
		}
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close led lines: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// ReadRegister samples offsets on chip without changing their direction or
// value, and returns them as register bits starting at shift. It fails if
// another process holds the lines.
func ReadRegister(chip string, offsets []int, shift int) (uint32, error) {
	lines, err := gpiocdev.RequestLines(chip, offsets, gpiocdev.AsIs, gpiocdev.WithConsumer("led-sequencer-read"))
	if err != nil {
		return 0, fmt.Errorf("request led lines %v: %w", offsets, err)
	}
	defer lines.Close()

	values := make([]int, len(offsets))
	if err := lines.Values(values); err != nil {
		return 0, fmt.Errorf("read led lines: %w", err)
	}

	var reg uint32
	for i, v := range values {
		if v != 0 {
			reg |= 1 << (shift + i)
		}
	}
	return reg, nil
}
