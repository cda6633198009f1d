package control

import (
	"math"
	"math/rand"
	"testing"
)

func TestPID_HoldFreezesIntegral(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	p := NewPID(1, 2, 0.1, -10, 10, 50)
	for i := 0; i < 20; i++ {
		p.Update(r.Float64()*4-2, 0, false)
	}
	before := p.Integral()

	for i := 0; i < 200; i++ {
		err := (r.Float64() - 0.5) * 1e6
		p.Update(err, 0, true)
		if p.Integral() != before {
			t.Fatalf("step %d: integral changed under hold: %v -> %v", i, before, p.Integral())
		}
	}
}

func TestPID_ClampDoesNotStopIntegration(t *testing.T) {
	p := NewPID(0, 1, 0, -1, 1, 10)
	for i := 0; i < 100; i++ {
		u := p.Update(1, 0, false)
		if u > 1 {
			t.Fatalf("output %v above max", u)
		}
	}
	if math.Abs(p.Integral()-10) > 1e-9 {
		t.Errorf("integral = %v, want 10", p.Integral())
	}
}

func TestPID_Terms(t *testing.T) {
	tests := []struct {
		name   string
		kp, ki float64
		kd     float64
		errs   []float64
		ff     float64
		want   float64
	}{
		{"proportional", 2, 0, 0, []float64{1.5}, 0, 3},
		{"integral", 0, 1, 0, []float64{1, 1, 1}, 0, 0.3},
		{"derivative first sample", 0, 0, 1, []float64{5}, 0, 0},
		{"derivative", 0, 0, 1, []float64{1, 2}, 0, 10},
		{"feedforward", 1, 0, 0, []float64{1}, 0.5, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPID(tt.kp, tt.ki, tt.kd, -100, 100, 10)
			var u float64
			for _, e := range tt.errs {
				u = p.Update(e, tt.ff, false)
			}
			if math.Abs(u-tt.want) > 1e-9 {
				t.Errorf("output = %v, want %v", u, tt.want)
			}
		})
	}
}

func TestPID_Reset(t *testing.T) {
	p := NewPID(0, 1, 1, -100, 100, 10)
	p.Update(1, 0, false)
	p.Update(3, 0, false)
	p.Reset()

	if p.Integral() != 0 {
		t.Errorf("integral after reset = %v", p.Integral())
	}
	// derivative still runs against the last pre-reset error
	if u := p.Update(0, 0, false); math.Abs(u-(-30)) > 1e-9 {
		t.Errorf("first output after reset = %v, want -30", u)
	}
}
