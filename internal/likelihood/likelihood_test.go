package likelihood

import (
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/planck-hfi/hillipop/internal/config"
	"github.com/planck-hfi/hillipop/internal/spectra"
	"github.com/planck-hfi/hillipop/internal/testutil"
)

func fixtureLikelihood(t *testing.T) (*Likelihood, *TheorySpectra) {
	t.Helper()
	cfg := testutil.WriteLikelihoodFixtures(t, t.TempDir())
	lk, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	th, err := LoadTheory(*cfg.TheoryFile)
	if err != nil {
		t.Fatalf("LoadTheory: %v", err)
	}
	return lk, th
}

func TestNewFromFixtures(t *testing.T) {
	lk, _ := fixtureLikelihood(t)

	want := []string{"Aplanck", "c0", "c1", "Aradio", "Adusty"}
	if got := lk.Parameters(); !reflect.DeepEqual(got, want) {
		t.Errorf("Parameters = %v, want %v", got, want)
	}
	if got := lk.Lmax(); got != testutil.FixtureLmax {
		t.Errorf("Lmax = %d, want %d", got, testutil.FixtureLmax)
	}
	if got := lk.ActiveModes(); !reflect.DeepEqual(got, []string{"TT"}) {
		t.Errorf("ActiveModes = %v, want [TT]", got)
	}
	if got := lk.Frequencies(); !reflect.DeepEqual(got, []int{143, 143}) {
		t.Errorf("Frequencies = %v, want [143 143]", got)
	}
}

// TestComputeKnownChi2 pins the whole pipeline: a flat residual of 2 muK^2
// over ten multipoles against an identity inverse covariance gives
// chi2 = 10 * 2^2 = 40.
func TestComputeKnownChi2(t *testing.T) {
	lk, th := fixtureLikelihood(t)

	chi2, err := lk.Compute(testutil.FixtureParams(), th)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if math.Abs(chi2-40) > 1e-6 {
		t.Errorf("chi2 = %g, want 40", chi2)
	}
}

func TestComputeCalibration(t *testing.T) {
	lk, th := fixtureLikelihood(t)

	params := testutil.FixtureParams()
	params["Aplanck"] = 1.01
	chi2, err := lk.Compute(params, th)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	r := testutil.FixtureDataDl - 1.01*1.01*testutil.FixtureTheoryDl
	want := 10 * r * r
	if math.Abs(chi2-want) > 1e-6 {
		t.Errorf("chi2 = %g, want %g", chi2, want)
	}

	// map calibrations enter through (1+c1)(1+c2)
	params = testutil.FixtureParams()
	params["c0"] = 0.01
	chi2, err = lk.Compute(params, th)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	r = testutil.FixtureDataDl - 1.01*testutil.FixtureTheoryDl
	want = 10 * r * r
	if math.Abs(chi2-want) > 1e-6 {
		t.Errorf("chi2 with c0 = %g, want %g", chi2, want)
	}
}

// writeFlatXSpec writes the spectra and errors files for map pair (m1, m2)
// with a flat Dl and sigma in muK^2 across all modes.
func writeFlatXSpec(t *testing.T, dir string, m1, m2 int, dl, sigma float64) {
	t.Helper()
	cs := &spectra.CrossSpectrum{}
	for m := 0; m < spectra.NumModes; m++ {
		d := make([]float64, testutil.FixtureLmax+1)
		s := make([]float64, testutil.FixtureLmax+1)
		for ell := range d {
			d[ell] = dl
			s[ell] = sigma
		}
		cs.Dl[m] = d
		cs.Sigma[m] = s
	}
	for _, prefix := range []string{"spectra", "errors"} {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d_%d.fits", prefix, m1, m2))
		if err := spectra.WriteCrossSpectrum(path, cs); err != nil {
			t.Fatalf("WriteCrossSpectrum: %v", err)
		}
	}
}

func writeDiagInvkll(t *testing.T, path string, diag []float64) {
	t.Helper()
	n := len(diag)
	data := make([]float64, n*n)
	for i, v := range diag {
		data[i*n+i] = v
	}
	if err := spectra.WriteInverseCovariance(path, n, data); err != nil {
		t.Fatalf("WriteInverseCovariance: %v", err)
	}
}

// TestComputeAveragesCrossSpectra pins the inverse-variance average over
// several cross-spectra of one cross-frequency: three 143 GHz maps give
// three cross-spectra whose residuals -8, 2 and 12 muK^2 at weights 1, 1
// and 1/4 average to -4/3 per multipole, so chi2 = 10 * (4/3)^2.
func TestComputeAveragesCrossSpectra(t *testing.T) {
	dir := t.TempDir()

	r := []spectra.Range{
		{Lmin: testutil.FixtureLmin, Lmax: testutil.FixtureLmax},
		{Lmin: testutil.FixtureLmin, Lmax: testutil.FixtureLmax},
		{Lmin: testutil.FixtureLmin, Lmax: testutil.FixtureLmax},
	}
	binPath := filepath.Join(dir, "binning.fits")
	if err := spectra.WriteBinFile(binPath, r, r, r, r, r); err != nil {
		t.Fatalf("WriteBinFile: %v", err)
	}

	writeFlatXSpec(t, dir, 0, 1, 90, 1)
	writeFlatXSpec(t, dir, 0, 2, 100, 1)
	writeFlatXSpec(t, dir, 1, 2, 110, 2)

	n := testutil.FixtureLmax - testutil.FixtureLmin + 1
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = 1
	}
	writeDiagInvkll(t, filepath.Join(dir, "invkll_TT.fits"), diag)

	theoryPath := testutil.WriteTheoryFile(t, dir, testutil.FixtureTheoryDl)

	binFile := binPath
	spectraPrefix := filepath.Join(dir, "spectra")
	errorsPrefix := filepath.Join(dir, "errors")
	covPrefix := filepath.Join(dir, "invkll")
	cfg := &config.Config{
		Frequencies:          []int{143, 143, 143},
		MultipoleRangesFile:  &binFile,
		XSpectraPrefix:       &spectraPrefix,
		XSpectraErrorsPrefix: &errorsPrefix,
		CovMatrixPrefix:      &covPrefix,
	}
	lk, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	th, err := LoadTheory(theoryPath)
	if err != nil {
		t.Fatalf("LoadTheory: %v", err)
	}

	// one cross-frequency, weighted data average (90 + 100 + 110/4) / 2.25
	blocks := lk.DataSpectra()
	if len(blocks) != 1 {
		t.Fatalf("got %d data blocks, want 1", len(blocks))
	}
	wantDl := (90.0 + 100.0 + 0.25*110.0) / 2.25
	for i, v := range blocks[0].Dl {
		if math.Abs(v-wantDl) > 1e-6 {
			t.Fatalf("averaged Dl[%d] = %g, want %g", i, v, wantDl)
		}
	}

	params := map[string]float64{
		"Aplanck": 1, "c0": 0, "c1": 0, "c2": 0, "Aradio": 0, "Adusty": 0,
	}
	chi2, err := lk.Compute(params, th)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := 10 * (4.0 / 3.0) * (4.0 / 3.0)
	if math.Abs(chi2-want) > 1e-6 {
		t.Errorf("chi2 = %g, want %g", chi2, want)
	}
}

// TestComputeTwoModeVector pins the data-vector assembly over two modes:
// the TT entries come first at their own multipole range, then EE, matching
// a _TTEE covariance whose diagonal distinguishes the blocks.
func TestComputeTwoModeVector(t *testing.T) {
	dir := t.TempDir()

	wide := []spectra.Range{{Lmin: 2, Lmax: 11}}
	narrow := []spectra.Range{{Lmin: 2, Lmax: 6}}
	binPath := filepath.Join(dir, "binning.fits")
	if err := spectra.WriteBinFile(binPath, wide, narrow, wide, wide, wide); err != nil {
		t.Fatalf("WriteBinFile: %v", err)
	}

	writeFlatXSpec(t, dir, 0, 1, testutil.FixtureDataDl, 1)

	// ten TT entries at unit weight, then five EE entries at weight 4
	diag := make([]float64, 15)
	for i := range diag {
		if i < 10 {
			diag[i] = 1
		} else {
			diag[i] = 4
		}
	}
	writeDiagInvkll(t, filepath.Join(dir, "invkll_TTEE.fits"), diag)

	theoryPath := testutil.WriteTheoryFile(t, dir, testutil.FixtureTheoryDl)

	ee := true
	binFile := binPath
	spectraPrefix := filepath.Join(dir, "spectra")
	errorsPrefix := filepath.Join(dir, "errors")
	covPrefix := filepath.Join(dir, "invkll")
	cfg := &config.Config{
		Frequencies:          []int{143, 143},
		EE:                   &ee,
		MultipoleRangesFile:  &binFile,
		XSpectraPrefix:       &spectraPrefix,
		XSpectraErrorsPrefix: &errorsPrefix,
		CovMatrixPrefix:      &covPrefix,
	}
	lk, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	th, err := LoadTheory(theoryPath)
	if err != nil {
		t.Fatalf("LoadTheory: %v", err)
	}

	if got := lk.ActiveModes(); !reflect.DeepEqual(got, []string{"TT", "EE"}) {
		t.Fatalf("ActiveModes = %v, want [TT EE]", got)
	}

	blocks, err := lk.Residuals(testutil.FixtureParams(), th)
	if err != nil {
		t.Fatalf("Residuals: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d residual blocks, want 2", len(blocks))
	}
	if blocks[0].Mode != "TT" || blocks[0].Lmax != 11 || len(blocks[0].Dl) != 10 {
		t.Errorf("first block = %s [%d, %d] with %d entries, want TT [2, 11] with 10",
			blocks[0].Mode, blocks[0].Lmin, blocks[0].Lmax, len(blocks[0].Dl))
	}
	if blocks[1].Mode != "EE" || blocks[1].Lmax != 6 || len(blocks[1].Dl) != 5 {
		t.Errorf("second block = %s [%d, %d] with %d entries, want EE [2, 6] with 5",
			blocks[1].Mode, blocks[1].Lmin, blocks[1].Lmax, len(blocks[1].Dl))
	}

	// TT residual 2 muK^2 per multipole; EE residual is the full 100 muK^2
	// since the theory EE block is zero and no EE foreground is configured.
	chi2, err := lk.Compute(testutil.FixtureParams(), th)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := 10*2*2 + 5*testutil.FixtureDataDl*testutil.FixtureDataDl*4
	if math.Abs(chi2-want) > 1e-3 {
		t.Errorf("chi2 = %g, want %g", chi2, want)
	}
}

func TestComputeMissingParam(t *testing.T) {
	lk, th := fixtureLikelihood(t)

	params := testutil.FixtureParams()
	delete(params, "Aradio")
	if _, err := lk.Compute(params, th); err == nil {
		t.Error("expected error for missing foreground amplitude")
	}

	if _, err := lk.Compute(map[string]float64{}, th); err == nil {
		t.Error("expected error for missing Aplanck")
	}
}

func TestComputeShortTheory(t *testing.T) {
	lk, _ := fixtureLikelihood(t)

	short := &TheorySpectra{TT: make([]float64, 5)}
	if _, err := lk.Compute(testutil.FixtureParams(), short); err == nil {
		t.Error("expected error when theory does not reach lmax")
	}
}

func TestResiduals(t *testing.T) {
	lk, th := fixtureLikelihood(t)

	blocks, err := lk.Residuals(testutil.FixtureParams(), th)
	if err != nil {
		t.Fatalf("Residuals: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	b := blocks[0]
	if b.Mode != "TT" || b.Freq1 != 143 || b.Freq2 != 143 {
		t.Errorf("block header = %s %dx%d, want TT 143x143", b.Mode, b.Freq1, b.Freq2)
	}
	if b.Lmin != testutil.FixtureLmin || b.Lmax != testutil.FixtureLmax {
		t.Errorf("block range = [%d, %d], want [%d, %d]", b.Lmin, b.Lmax, testutil.FixtureLmin, testutil.FixtureLmax)
	}
	wantResid := testutil.FixtureDataDl - testutil.FixtureTheoryDl
	for i, v := range b.Dl {
		if math.Abs(v-wantResid) > 1e-6 {
			t.Fatalf("residual[%d] = %g, want %g", i, v, wantResid)
		}
	}
}

func TestDataSpectra(t *testing.T) {
	lk, _ := fixtureLikelihood(t)

	blocks := lk.DataSpectra()
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	for i, v := range blocks[0].Dl {
		if math.Abs(v-testutil.FixtureDataDl) > 1e-6 {
			t.Fatalf("Dl[%d] = %g, want %g", i, v, testutil.FixtureDataDl)
		}
	}
}

func TestNewRejectsUncoveredCrossFrequency(t *testing.T) {
	cfg := testutil.WriteLikelihoodFixtures(t, t.TempDir())
	// one map per frequency leaves the 100x100 and 143x143
	// cross-frequencies without a covering map pair
	cfg.Frequencies = []int{100, 143}
	if _, err := New(cfg); err == nil {
		t.Error("expected error for uncovered cross-frequency")
	}
}

func TestNewRejectsRangeCountMismatch(t *testing.T) {
	dir := t.TempDir()
	cfg := testutil.WriteLikelihoodFixtures(t, dir)

	r := []spectra.Range{{Lmin: 2, Lmax: 11}, {Lmin: 2, Lmax: 11}}
	badBin := filepath.Join(dir, "binning2.fits")
	if err := spectra.WriteBinFile(badBin, r, r, r, r, r); err != nil {
		t.Fatalf("WriteBinFile: %v", err)
	}
	cfg.MultipoleRangesFile = &badBin
	if _, err := New(cfg); err == nil {
		t.Error("expected error when the bin file covers a different number of cross-spectra")
	}
}

func TestLoadTheoryMissingFile(t *testing.T) {
	if _, err := LoadTheory(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing theory file")
	}
}
