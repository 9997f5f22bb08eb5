package serial

import (
	"fmt"
	"io"

	bugst "go.bug.st/serial"
)

// RealPort transmits on a UART device. The kernel driver owns the FIFO, so
// the buffer is always reported empty and each byte is a blocking write.
type RealPort struct {
	port bugst.Port
}

// NewRealPort opens device at baud, 8N1.
func NewRealPort(device string, baud int) (*RealPort, error) {
	p, err := bugst.Open(device, &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return &RealPort{port: p}, nil
}

// TxEmpty always reports true.
func (r *RealPort) TxEmpty() bool {
	return true
}

// WriteByte writes c to the device.
func (r *RealPort) WriteByte(c byte) error {
	n, err := r.port.Write([]byte{c})
	if err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("serial write: %w", io.ErrShortWrite)
	}
	return nil
}

// Close drains pending output and closes the device.
func (r *RealPort) Close() error {
	if err := r.port.Drain(); err != nil {
		r.port.Close()
		return fmt.Errorf("drain serial: %w", err)
	}
	return r.port.Close()
}

// WriterPort transmits to an io.Writer. Used for simulation on a host, where
// the console stands in for the UART.
type WriterPort struct {
	w io.Writer
}

// NewWriterPort creates a WriterPort on w.
func NewWriterPort(w io.Writer) *WriterPort {
	return &WriterPort{w: w}
}

// TxEmpty always reports true.
func (p *WriterPort) TxEmpty() bool {
	return true
}

// WriteByte writes c to the underlying writer.
func (p *WriterPort) WriteByte(c byte) error {
	_, err := p.w.Write([]byte{c})
	return err
}

// Close is a no-op; the writer is owned by the caller.
func (p *WriterPort) Close() error {
	return nil
}
