package protocol

import (
	"errors"
	"testing"
)

func TestParseFrameDualAccel(t *testing.T) {
	f, err := ParseFrame([]byte("90,9,45,270,30,1,60"), ShapeDualAccel)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}

	want := Frame{
		Shape:  ShapeDualAccel,
		Linear: AxisFields{Target: 90, MaxVelocity: 9, Acceleration: 45, HasAccel: true},
		Rotary: AxisFields{Target: 270, MaxVelocity: 30, Acceleration: 60, HasAccel: true, Mode: 1},
	}
	if f != want {
		t.Errorf("Expected %+v, got %+v", want, f)
	}
}

func TestParseFrameShapes(t *testing.T) {
	f, err := ParseFrame([]byte("12.5,3"), ShapeSingle)
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if f.Linear.Target != 12.5 || f.Linear.MaxVelocity != 3 || f.Linear.HasAccel {
		t.Errorf("single: unexpected %+v", f.Linear)
	}

	f, err = ParseFrame([]byte("10,5,350,20,2"), ShapeDual)
	if err != nil {
		t.Fatalf("dual: %v", err)
	}
	if f.Rotary.Target != 350 || f.Rotary.MaxVelocity != 20 || f.Rotary.Mode != 2 || f.Rotary.HasAccel {
		t.Errorf("dual: unexpected %+v", f.Rotary)
	}
}

func TestParseFrameWrongFieldCount(t *testing.T) {
	tests := []struct {
		line  string
		shape FrameShape
	}{
		{"1,2,3", ShapeDualAccel},
		{"1,2,3,4,5,6,7,8", ShapeDualAccel},
		{"1,2,3,4", ShapeDual},
		{"1", ShapeSingle},
		{"", ShapeSingle},
		{"1,2,", ShapeSingle},
	}

	for _, test := range tests {
		_, err := ParseFrame([]byte(test.line), test.shape)
		if !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("%q as %s: expected ErrMalformedFrame, got %v", test.line, test.shape, err)
		}
	}

	if _, err := ParseFrame([]byte("1,2"), FrameShape(9)); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("Expected ErrUnknownShape, got %v", err)
	}
}

func TestParseFramePermissiveFields(t *testing.T) {
	f, err := ParseFrame([]byte("abc,,45,270x, 30,1.9,-"), ShapeDualAccel)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if f.Linear.Target != 0 || f.Linear.MaxVelocity != 0 {
		t.Errorf("Expected non-numeric and empty fields as 0, got %+v", f.Linear)
	}
	if f.Rotary.Target != 270 || f.Rotary.MaxVelocity != 30 {
		t.Errorf("Expected numeric prefixes, got %+v", f.Rotary)
	}
	if f.Rotary.Mode != 1 {
		t.Errorf("Expected mode truncated to 1, got %d", f.Rotary.Mode)
	}
	if f.Rotary.Acceleration != 0 {
		t.Errorf("Expected lone sign as 0, got %f", f.Rotary.Acceleration)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12.5xyz", 12.5},
		{"abc", 0},
		{"", 0},
		{"  -3", -3},
		{"+7", 7},
		{".5", 0.5},
		{"5.", 5},
		{"1e3", 1000},
		{"2e", 2},
		{"2e+", 2},
		{"-1.5E-1rest", -0.15},
		{".", 0},
		{"-", 0},
	}

	for _, test := range tests {
		if got := ParseNumber([]byte(test.in)); got != test.want {
			t.Errorf("ParseNumber(%q) = %f, want %f", test.in, got, test.want)
		}
	}
}

func TestParseShape(t *testing.T) {
	for _, s := range []FrameShape{ShapeSingle, ShapeDual, ShapeDualAccel} {
		got, err := ParseShape(s.String())
		if err != nil || got != s {
			t.Errorf("ParseShape(%q) = %v, %v", s.String(), got, err)
		}
	}
	if got, _ := ParseShape(""); got != ShapeDualAccel {
		t.Errorf("Expected empty name to select dual_accel, got %s", got)
	}
	if _, err := ParseShape("triple"); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("Expected ErrUnknownShape, got %v", err)
	}
}

func TestFormatFrameParsesBack(t *testing.T) {
	f := Frame{
		Shape:  ShapeDualAccel,
		Linear: AxisFields{Target: 12.25, MaxVelocity: 9, Acceleration: 45, HasAccel: true},
		Rotary: AxisFields{Target: -90, MaxVelocity: 30.5, Acceleration: 60, HasAccel: true, Mode: 2},
	}

	line := FormatFrame(f)
	if line != "12.25,9,45,-90,30.5,2,60" {
		t.Errorf("Unexpected frame %q", line)
	}
	back, err := ParseFrame([]byte(line), ShapeDualAccel)
	if err != nil || back != f {
		t.Errorf("Expected %+v, got %+v (%v)", f, back, err)
	}

	if got := FormatFrame(Frame{Shape: ShapeSingle, Linear: AxisFields{Target: 1, MaxVelocity: 2}}); got != "1,2" {
		t.Errorf("Unexpected single frame %q", got)
	}
}
