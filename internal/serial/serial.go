// Package serial provides the UART transmit path with hardware abstraction.
package serial

import (
	"fmt"
	"runtime"
)

// Port is the transmit side of a UART.
type Port interface {
	// TxEmpty reports whether the transmit buffer can accept a byte.
	TxEmpty() bool

	// WriteByte transmits one byte. Callers must observe TxEmpty first.
	WriteByte(c byte) error

	// Close releases the device.
	Close() error
}

// Transmitter writes whole strings to a Port, one byte at a time.
// Not safe for concurrent use; it belongs to the main loop.
type Transmitter struct {
	port     Port
	messages uint32
	bytes    uint64
}

// NewTransmitter creates a Transmitter on port.
func NewTransmitter(port Port) *Transmitter {
	return &Transmitter{port: port}
}

// WriteString sends s, waiting for the transmit buffer to empty before each
// byte. There is no timeout: a transmitter that never drains blocks forever.
func (t *Transmitter) WriteString(s string) error {
	for i := 0; i < len(s); i++ {
		for !t.port.TxEmpty() {
			runtime.Gosched()
		}
		if err := t.port.WriteByte(s[i]); err != nil {
			return fmt.Errorf("uart write byte %d of %d: %w", i, len(s), err)
		}
		t.bytes++
	}
	t.messages++
	return nil
}

// Messages returns the number of strings fully transmitted.
func (t *Transmitter) Messages() uint32 {
	return t.messages
}

// Bytes returns the number of bytes transmitted.
func (t *Transmitter) Bytes() uint64 {
	return t.bytes
}
