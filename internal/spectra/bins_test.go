package spectra

import (
	"math"
	"reflect"
	"testing"
)

func TestNewBinsDropsLowMultipoles(t *testing.T) {
	b, err := NewBins([]int{0, 2, 10}, []int{1, 9, 19})
	if err != nil {
		t.Fatalf("NewBins: %v", err)
	}
	if b.NumBins() != 2 {
		t.Fatalf("NumBins = %d, want 2 (monopole/dipole bin dropped)", b.NumBins())
	}
	if b.Lmin() != 2 || b.Lmax() != 19 {
		t.Errorf("bounds = [%d, %d], want [2, 19]", b.Lmin(), b.Lmax())
	}
	if got, want := b.Centers(), []float64{5.5, 14.5}; !reflect.DeepEqual(got, want) {
		t.Errorf("Centers = %v, want %v", got, want)
	}
}

func TestNewBinsMismatchedBounds(t *testing.T) {
	if _, err := NewBins([]int{2, 10}, []int{9}); err == nil {
		t.Error("expected error for mismatched bound lists")
	}
}

func TestNewBinsFromDelta(t *testing.T) {
	b, err := NewBinsFromDelta(2, 21, 5)
	if err != nil {
		t.Fatalf("NewBinsFromDelta: %v", err)
	}
	if b.NumBins() != 4 {
		t.Fatalf("NumBins = %d, want 4", b.NumBins())
	}
	if !reflect.DeepEqual(b.Lmins, []int{2, 7, 12, 17}) {
		t.Errorf("Lmins = %v, want [2 7 12 17]", b.Lmins)
	}
	if !reflect.DeepEqual(b.Lmaxs, []int{6, 11, 16, 21}) {
		t.Errorf("Lmaxs = %v, want [6 11 16 21]", b.Lmaxs)
	}
}

func TestCutBinning(t *testing.T) {
	b, err := NewBinsFromDelta(2, 21, 5)
	if err != nil {
		t.Fatalf("NewBinsFromDelta: %v", err)
	}
	if err := b.CutBinning(7, 16); err != nil {
		t.Fatalf("CutBinning: %v", err)
	}
	if b.NumBins() != 2 {
		t.Fatalf("NumBins = %d, want 2", b.NumBins())
	}
	if b.Lmin() != 7 || b.Lmax() != 16 {
		t.Errorf("bounds = [%d, %d], want [7, 16]", b.Lmin(), b.Lmax())
	}

	if err := b.CutBinning(100, 200); err == nil {
		t.Error("expected error when the cut removes every bin")
	}
}

func TestBinSpectrumFlat(t *testing.T) {
	b, err := NewBins([]int{2, 5}, []int{4, 9})
	if err != nil {
		t.Fatalf("NewBins: %v", err)
	}
	spec := make([]float64, 10)
	for i := range spec {
		spec[i] = 3
	}
	got := b.BinSpectrum(spec, false)
	for i, v := range got {
		if math.Abs(v-3) > 1e-12 {
			t.Errorf("bin %d = %g, want 3", i, v)
		}
	}
}

// TestBinSpectrumDlWeights feeds a Cl spectrum whose Dl is flat at 1, so
// the l(l+1)/2pi weighted binning must return 1 in every bin.
func TestBinSpectrumDlWeights(t *testing.T) {
	b, err := NewBins([]int{2}, []int{4})
	if err != nil {
		t.Fatalf("NewBins: %v", err)
	}
	spec := make([]float64, 5)
	for l := 2; l <= 4; l++ {
		spec[l] = 2 * math.Pi / (float64(l) * float64(l+1))
	}
	got := b.BinSpectrum(spec, true)
	if math.Abs(got[0]-1) > 1e-12 {
		t.Errorf("binned Dl = %g, want 1", got[0])
	}
}

func TestBinSpectrumShortInput(t *testing.T) {
	b, err := NewBins([]int{2}, []int{4})
	if err != nil {
		t.Fatalf("NewBins: %v", err)
	}
	// multipoles 2 and 3 present, l=4 missing
	got := b.BinSpectrum([]float64{1, 1, 1, 1}, false)
	if math.Abs(got[0]-2.0/3.0) > 1e-12 {
		t.Errorf("binned value = %g, want 2/3", got[0])
	}
}
