package gpio

import (
	"errors"
	"testing"
)

func TestFakePortReadWrite(t *testing.T) {
	f := NewFakePort(0x0ABC)

	v, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0x0ABC {
		t.Errorf("initial value: expected 0x0ABC, got %#x", v)
	}

	if err := f.Write(0xF000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Write(0x1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, _ = f.Read()
	if v != 0x1000 {
		t.Errorf("after writes: expected 0x1000, got %#x", v)
	}
	if len(f.Writes) != 2 || f.Writes[0] != 0xF000 || f.Writes[1] != 0x1000 {
		t.Errorf("unexpected write history: %#v", f.Writes)
	}
}

func TestFakePortReadError(t *testing.T) {
	f := NewFakePort(0)
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakePortWriteErrorKeepsValue(t *testing.T) {
	f := NewFakePort(0x0001)
	f.WriteError = errors.New("simulated error")

	if err := f.Write(0xF000); err == nil {
		t.Error("expected error to be returned")
	}
	if f.Value != 0x0001 {
		t.Errorf("value changed on failed write: %#x", f.Value)
	}
	if len(f.Writes) != 0 {
		t.Errorf("expected no recorded writes, got %d", len(f.Writes))
	}
}

func TestFakePortCloseAndReset(t *testing.T) {
	f := NewFakePort(0)
	f.Write(0x2000)

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()
	if f.Closed || len(f.Writes) != 0 {
		t.Error("Reset should clear history and closed flag")
	}
	if f.Value != 0x2000 {
		t.Errorf("Reset should keep value, got %#x", f.Value)
	}
}
