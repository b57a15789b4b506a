package main

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParseAngle(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0.3", 0.3},
		{" -1.25 ", -1.25},
		{"1e-3", 1e-3},
		{"pi", math.Pi},
		{"PI", math.Pi},
		{"+pi", math.Pi},
		{"-pi/2", -math.Pi / 2},
		{"pi / 8", math.Pi / 8},
		{"3*pi/4", 3 * math.Pi / 4},
		{"3 * pi / 4", 3 * math.Pi / 4},
		{"0.5pi", math.Pi / 2},
		{"2pi", 2 * math.Pi},
		{"pi/2.5", math.Pi / 2.5},
	}
	for _, tt := range tests {
		got, err := parseAngle(tt.in)
		if err != nil {
			t.Errorf("parseAngle(%q): %v", tt.in, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("parseAngle(%q) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestParseAngleRejects(t *testing.T) {
	for _, in := range []string{"", "tau", "pi/0", "pi*2", ".pi", "nan", "inf", "-Inf", "2 pi pi"} {
		_, err := parseAngle(in)
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("parseAngle(%q): err = %v, want ErrInvalidParameter", in, err)
		}
	}
}

func TestFormatAngle(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{0.3, "0.3"},
		{math.Pi, "pi"},
		{-math.Pi, "-pi"},
		{math.Pi / 2, "pi/2"},
		{math.Pi / 8, "pi/8"},
		{-3 * math.Pi / 8, "-3*pi/8"},
		{3 * math.Pi / 4, "3*pi/4"},
		{3 * math.Pi / 2, "3*pi/2"},
		{2 * math.Pi, "2*pi"},
		{4 * math.Pi, "12.566370614359172"},
		{math.Pi / 3, "1.0471975511965976"},
	}
	for _, tt := range tests {
		if got := formatAngle(tt.in); got != tt.want {
			t.Errorf("formatAngle(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAngleParsesBack(t *testing.T) {
	for n := -16; n <= 16; n++ {
		v := float64(n) * math.Pi / 8
		got, err := parseAngle(formatAngle(v))
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if math.Abs(got-v) > 1e-12 {
			t.Errorf("n=%d: %q parsed to %g, want %g", n, formatAngle(v), got, v)
		}
	}
}

func TestParseAngleList(t *testing.T) {
	got, err := parseAngleList(" -pi/4 ,, 2*pi , 0.3")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-math.Pi / 4, 2 * math.Pi, 0.3}
	if len(got) != len(want) {
		t.Fatalf("parseAngleList = %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("[%d] = %g, want %g", i, got[i], want[i])
		}
	}

	if got, err := parseAngleList(""); err != nil || got != nil {
		t.Errorf("parseAngleList(\"\") = %v, %v", got, err)
	}
	if _, err := parseAngleList("0.1, tau"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("parseAngleList with a bad entry: err = %v", err)
	}
}

func TestAnsatzQASMUsesPiForms(t *testing.T) {
	g := NewProblemGraph()
	if err := g.AddNode(0, 0.5); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(1, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.AddEdge(0, 1, 1); err != nil {
		t.Fatal(err)
	}

	// gamma = pi/2, beta = pi/8
	c, err := BuildCircuit(g, nil, 1, NewAngles([]float64{math.Pi / 2}, []float64{math.Pi / 8}))
	if err != nil {
		t.Fatal(err)
	}
	qasm := c.ToQASM()
	for _, want := range []string{
		"qreg q[2];",
		"h q[0];",
		"rz(pi/2) q[0];",
		"rz(0) q[1];",
		"rzz(-pi/2) q[0], q[1];",
		"rx(pi/4) q[1];",
	} {
		if !strings.Contains(qasm, want) {
			t.Errorf("missing %q in:\n%s", want, qasm)
		}
	}
}
