package gpio

// FakePort is a test double holding the register in memory.
type FakePort struct {
	// Value is the current register contents.
	Value uint32

	// Writes records every value passed to Write.
	Writes []uint32

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error

	// WriteError, if set, will be returned by Write() and the value is not stored.
	WriteError error
}

// NewFakePort creates a FakePort with the given initial register value.
func NewFakePort(initial uint32) *FakePort {
	return &FakePort{Value: initial}
}

// Read returns the stored register value.
func (f *FakePort) Read() (uint32, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return f.Value, nil
}

// Write stores value and records it.
func (f *FakePort) Write(value uint32) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Value = value
	f.Writes = append(f.Writes, value)
	return nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

// Reset clears the write history and errors, keeping Value.
func (f *FakePort) Reset() {
	f.Writes = nil
	f.Closed = false
	f.ReadError = nil
	f.WriteError = nil
}
