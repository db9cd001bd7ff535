package serial

import (
	"bytes"
	"io"
	"testing"
)

func TestPipeCarriesBothDirections(t *testing.T) {
	host, device := Pipe()
	defer host.Close()
	defer device.Close()

	go host.Write([]byte("90,9\n"))
	buf := make([]byte, 5)
	if _, err := io.ReadFull(device, buf); err != nil {
		t.Fatalf("device read failed: %v", err)
	}
	if string(buf) != "90,9\n" {
		t.Errorf("Expected frame on device side, got %q", buf)
	}

	go device.Write([]byte("I:ok\r\n"))
	buf = make([]byte, 6)
	if _, err := io.ReadFull(host, buf); err != nil {
		t.Fatalf("host read failed: %v", err)
	}
	if string(buf) != "I:ok\r\n" {
		t.Errorf("Expected reply on host side, got %q", buf)
	}
}

func TestPipeCloseEndsReader(t *testing.T) {
	host, device := Pipe()
	host.Close()

	if _, err := device.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Expected EOF after peer close, got %v", err)
	}
}

func TestStreamPort(t *testing.T) {
	var out bytes.Buffer
	p := NewStreamPort(bytes.NewBufferString("abc"), &out)

	b := make([]byte, 3)
	if n, _ := p.Read(b); n != 3 || string(b) != "abc" {
		t.Errorf("Unexpected read %q", b[:n])
	}
	p.Write([]byte("xyz"))
	if out.String() != "xyz" {
		t.Errorf("Unexpected write %q", out.String())
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close on non-closers failed: %v", err)
	}
	if DefaultConfig("/dev/ttyACM0").Baud != DefaultBaud {
		t.Error("Expected default baud")
	}
}
