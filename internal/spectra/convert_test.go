package spectra

import (
	"math"
	"testing"
)

func TestDlFactor(t *testing.T) {
	want := 3000.0 * 3001.0 / (2 * math.Pi) * 1e12
	if got := DlFactor(3000); math.Abs(got-want)/want > 1e-14 {
		t.Errorf("DlFactor(3000) = %g, want %g", got, want)
	}
	if DlFactor(0) != 0 {
		t.Errorf("DlFactor(0) = %g, want 0", DlFactor(0))
	}
}

func TestClToDl(t *testing.T) {
	cl := []float64{0, 0, 1e-12, 1e-12, 1e-12}
	dl := ClToDl(cl, 3)
	if len(dl) != 4 {
		t.Fatalf("length = %d, want 4", len(dl))
	}
	want := 2.0 * 3.0 / (2 * math.Pi)
	if math.Abs(dl[2]-want) > 1e-9 {
		t.Errorf("Dl[2] = %g, want %g", dl[2], want)
	}
}
