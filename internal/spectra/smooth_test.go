package spectra

import (
	"math"
	"testing"
)

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(2)
	if len(k) != 17 {
		t.Fatalf("kernel length = %d, want 17 (radius 4*sigma)", len(k))
	}
	sum := 0.0
	for _, v := range k {
		sum += v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("kernel sum = %g, want 1", sum)
	}
	for i := range k {
		if math.Abs(k[i]-k[len(k)-1-i]) > 1e-15 {
			t.Errorf("kernel not symmetric at %d: %g vs %g", i, k[i], k[len(k)-1-i])
		}
	}
}

func TestGaussianFilterPreservesConstant(t *testing.T) {
	data := make([]float64, 50)
	for i := range data {
		data[i] = 7
	}
	out := gaussianFilter(data, 3)
	for i, v := range out {
		if math.Abs(v-7) > 1e-12 {
			t.Errorf("filtered[%d] = %g, want 7", i, v)
		}
	}
}

func TestSmoothLeavesLowMultipoles(t *testing.T) {
	cl := make([]float64, 100)
	for l := range cl {
		cl[l] = float64(l % 7)
	}
	out := Smooth(cl, 3, 40)
	for l := 0; l < 40; l++ {
		if out[l] != cl[l] {
			t.Fatalf("multipole %d changed: %g != %g", l, out[l], cl[l])
		}
	}
}

func TestSmoothReducesScatter(t *testing.T) {
	cl := make([]float64, 200)
	for l := range cl {
		cl[l] = 10
		if l%2 == 0 {
			cl[l] = -10
		}
	}
	out := Smooth(cl, 5, 50)
	// alternating signal averages toward zero once smoothed
	for l := 60; l < 140; l++ {
		if math.Abs(out[l]) > 1 {
			t.Fatalf("multipole %d = %g, expected scatter suppressed", l, out[l])
		}
	}
}

func TestSmoothNoop(t *testing.T) {
	cl := []float64{1, 2, 3}
	out := Smooth(cl, 0, 0)
	for i := range cl {
		if out[i] != cl[i] {
			t.Errorf("multipole %d changed with nsm=0", i)
		}
	}

	if got := Smooth(nil, 3, 10); len(got) != 0 {
		t.Errorf("Smooth(nil) returned %d values", len(got))
	}
}
