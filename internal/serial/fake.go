package serial

import (
	"bytes"
	"errors"
)

// ErrTxBusy is returned when a byte is written while the transmit buffer is full.
var ErrTxBusy = errors.New("serial: transmit buffer not empty")

// FakePort records transmitted bytes for test assertions.
type FakePort struct {
	// Out contains every byte transmitted.
	Out bytes.Buffer

	// BusyPolls is how many TxEmpty polls report false after each byte.
	BusyPolls int

	// Polls counts TxEmpty calls.
	Polls int

	// WriteError, if set, will be returned by WriteByte.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool

	busy int
}

// NewFakePort creates a FakePort that is always ready.
func NewFakePort() *FakePort {
	return &FakePort{}
}

// TxEmpty reports false for BusyPolls polls after every byte.
func (f *FakePort) TxEmpty() bool {
	f.Polls++
	if f.busy > 0 {
		f.busy--
		return false
	}
	return true
}

// WriteByte records c. It fails with ErrTxBusy if the buffer is not empty.
func (f *FakePort) WriteByte(c byte) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if f.busy > 0 {
		return ErrTxBusy
	}
	f.Out.WriteByte(c)
	f.busy = f.BusyPolls
	return nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

// String returns everything transmitted so far.
func (f *FakePort) String() string {
	return f.Out.String()
}

// Reset clears the recorded output.
func (f *FakePort) Reset() {
	f.Out.Reset()
	f.Polls = 0
	f.busy = 0
	f.WriteError = nil
	f.Closed = false
}
