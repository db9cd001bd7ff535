package protocol

import (
	"errors"
	"testing"
)

func feedString(t *testing.T, l *LineBuffer, s string) ([]string, int) {
	t.Helper()
	var lines []string
	overflows := 0
	for i := 0; i < len(s); i++ {
		line, err := l.Feed(s[i])
		if errors.Is(err, ErrLineOverflow) {
			overflows++
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if line != nil {
			lines = append(lines, string(line))
		}
	}
	return lines, overflows
}

func TestLineBufferLines(t *testing.T) {
	l := NewLineBuffer(0)
	if l.Capacity() != LineMax {
		t.Errorf("Expected default capacity %d, got %d", LineMax, l.Capacity())
	}

	lines, overflows := feedString(t, l, "90,9\r\n\n\r\n10,5\n20")
	if overflows != 0 {
		t.Errorf("Expected no overflow, got %d", overflows)
	}
	if len(lines) != 2 || lines[0] != "90,9" || lines[1] != "10,5" {
		t.Errorf("Expected [90,9 10,5], got %q", lines)
	}
	if l.Pending() != 2 {
		t.Errorf("Expected 2 pending bytes, got %d", l.Pending())
	}

	l.Reset()
	if l.Pending() != 0 {
		t.Error("Expected Reset to drop the partial line")
	}
}

func TestLineBufferOverflow(t *testing.T) {
	l := NewLineBuffer(8)

	// 7 bytes fit, the 8th overflows
	lines, overflows := feedString(t, l, "1234567\n12345678\n1,2\n")
	if overflows != 1 {
		t.Fatalf("Expected 1 overflow, got %d", overflows)
	}
	if len(lines) != 2 || lines[0] != "1234567" || lines[1] != "1,2" {
		t.Errorf("Expected the long line dropped, got %q", lines)
	}
}

func TestLineBufferOverflowReportedOnce(t *testing.T) {
	l := NewLineBuffer(4)
	_, overflows := feedString(t, l, "aaaaaaaaaaaaaaaaaaaa\n")
	if overflows != 1 {
		t.Errorf("Expected a single overflow report, got %d", overflows)
	}
}

func TestFifoBuffer(t *testing.T) {
	f := NewFifoBuffer(4)

	if n := f.Write([]byte{1, 2, 3, 4, 5}); n != 3 {
		t.Errorf("Expected 3 bytes written (one slot reserved), got %d", n)
	}
	if f.Free() != 0 {
		t.Errorf("Expected full buffer, %d free", f.Free())
	}

	b, ok := f.ReadByte()
	if !ok || b != 1 {
		t.Errorf("Expected 1, got %d (%v)", b, ok)
	}

	// Wrap around
	f.Write([]byte{6})
	var got []byte
	for {
		b, ok := f.ReadByte()
		if !ok {
			break
		}
		got = append(got, b)
	}
	if string(got) != string([]byte{2, 3, 6}) {
		t.Errorf("Expected [2 3 6], got %v", got)
	}
	if f.Available() != 0 {
		t.Errorf("Expected empty buffer, got %d", f.Available())
	}
}

func TestOutputBuffer(t *testing.T) {
	var o OutputBuffer

	o.Write([]byte("I:ok\r\n"))
	o.Write([]byte("P:0\r\n"))
	if string(o.Bytes()) != "I:ok\r\nP:0\r\n" {
		t.Errorf("Unexpected output %q", o.Bytes())
	}

	big := make([]byte, OutputMax)
	if n, err := o.Write(big); n != 0 || !errors.Is(err, ErrOutputFull) {
		t.Errorf("Expected ErrOutputFull with nothing written, got %d, %v", n, err)
	}
	if string(o.Bytes()) != "I:ok\r\nP:0\r\n" {
		t.Errorf("A line that does not fit changed the buffer: %q", o.Bytes())
	}
	if o.Dropped() != 1 {
		t.Errorf("Expected 1 dropped write, got %d", o.Dropped())
	}

	o.Reset()
	if o.Len() != 0 {
		t.Error("Expected empty buffer after Reset")
	}
	if _, err := o.Write(big); err != nil || o.Len() != OutputMax {
		t.Errorf("Expected an exact fit to be stored, got %d, %v", o.Len(), err)
	}
}
