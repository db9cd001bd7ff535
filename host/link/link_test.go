package link

import (
	"bufio"
	"context"
	"errors"
	"testing"
	"time"

	"motorhead/host/serial"
	"motorhead/protocol"
)

func startLink(t *testing.T) (*Link, serial.Port, chan error) {
	t.Helper()
	host, device := serial.Pipe()
	l := New(host)

	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background()) }()
	t.Cleanup(func() {
		l.Close()
		device.Close()
	})
	return l, device, errc
}

func nextEvent(t *testing.T, l *Link) Event {
	t.Helper()
	select {
	case ev, ok := <-l.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestWaitReady(t *testing.T) {
	l, device, _ := startLink(t)

	go device.Write([]byte("I:motorhead ready\r\nS:0.00,360.00,0.01,45.00,1.13,112.50\r\n"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	bounds, err := l.WaitReady(ctx)
	if err != nil {
		t.Fatalf("WaitReady failed: %v", err)
	}
	if len(bounds) != 1 || bounds[0].MaxPosition != 360 {
		t.Errorf("Unexpected bounds %+v", bounds)
	}

	ev := nextEvent(t, l)
	if ev.Kind != protocol.LineInfo || ev.Info != protocol.Banner || ev.IsEcho() {
		t.Errorf("Expected banner event, got %+v", ev)
	}
}

func TestSendAndDecode(t *testing.T) {
	l, device, _ := startLink(t)

	f := protocol.Frame{
		Shape:  protocol.ShapeDualAccel,
		Linear: protocol.AxisFields{Target: 90, MaxVelocity: 9, Acceleration: 45, HasAccel: true},
		Rotary: protocol.AxisFields{Target: 350, MaxVelocity: 30, Mode: 2, Acceleration: 60, HasAccel: true},
	}
	go l.Send(f)

	line, err := bufio.NewReader(device).ReadString('\n')
	if err != nil {
		t.Fatalf("device read failed: %v", err)
	}
	if line != "90,9,45,350,30,2,60\n" {
		t.Errorf("Unexpected frame on the wire %q", line)
	}

	go device.Write([]byte("I:1,90.00,9.00,45.00,1,350.00,30.00,60.00\r\nP:1,12.50,9.00,1,355.00,-30.00\r\n"))

	ev := nextEvent(t, l)
	if !ev.IsEcho() || len(ev.Echo) != 2 || ev.Echo[1].Target != 350 {
		t.Errorf("Expected echo event, got %+v", ev)
	}

	ev = nextEvent(t, l)
	if ev.Kind != protocol.LineStatus || ev.Status[1].Speed != -30 {
		t.Errorf("Expected status event, got %+v", ev)
	}
	status, ok := l.LastStatus()
	if !ok || status[0].Position != 12.5 {
		t.Errorf("Unexpected last status %+v (%v)", status, ok)
	}
}

func TestUndecodableLine(t *testing.T) {
	l, device, _ := startLink(t)

	go device.Write([]byte("P:1,abc\r\nhello\r\n"))

	for i := 0; i < 2; i++ {
		if ev := nextEvent(t, l); ev.Kind != protocol.LineUnknown {
			t.Errorf("Expected unknown line, got %+v", ev)
		}
	}
	if _, ok := l.LastStatus(); ok {
		t.Error("Malformed status must not be recorded")
	}
}

func TestRunEndsOnClose(t *testing.T) {
	l, _, errc := startLink(t)

	l.Close()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Expected clean exit after Close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	if err := l.SendLine("1,2"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, ok := <-l.Events(); ok {
		t.Error("Expected events channel closed")
	}
}

func TestRunStopsOnContext(t *testing.T) {
	host, device := serial.Pipe()
	defer device.Close()
	l := New(host)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
