// Package testutil provides shared test helpers and the on-disk data
// products for a small two-map likelihood fixture.
package testutil

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/planck-hfi/hillipop/internal/config"
	"github.com/planck-hfi/hillipop/internal/spectra"
)

// Fixture geometry: two 143 GHz maps give one cross-spectrum and one
// cross-frequency, with a flat TT spectrum over l in [FixtureLmin, FixtureLmax].
const (
	FixtureLmin = 2
	FixtureLmax = 11

	// FixtureDataDl is the flat data spectrum in muK^2.
	FixtureDataDl = 100.0
	// FixtureTheoryDl is the flat theory spectrum in muK^2, leaving a
	// residual of FixtureDataDl-FixtureTheoryDl per multipole.
	FixtureTheoryDl = 98.0
)

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

// WriteLikelihoodFixtures writes the bin file, cross-spectrum, errors,
// identity inverse covariance and theory file for a TT-only two-map
// likelihood into dir, and returns a config pointing at them.
//
// With FixtureParams the residual is flat at 2 muK^2 over ten multipoles,
// so the chi2 is exactly 40.
func WriteLikelihoodFixtures(t *testing.T, dir string) *config.Config {
	t.Helper()

	r := []spectra.Range{{Lmin: FixtureLmin, Lmax: FixtureLmax}}
	binPath := filepath.Join(dir, "binning.fits")
	if err := spectra.WriteBinFile(binPath, r, r, r, r, r); err != nil {
		t.Fatalf("failed to write bin file: %v", err)
	}

	cs := &spectra.CrossSpectrum{}
	for m := 0; m < spectra.NumModes; m++ {
		dl := make([]float64, FixtureLmax+1)
		sigma := make([]float64, FixtureLmax+1)
		for ell := range dl {
			dl[ell] = FixtureDataDl
			sigma[ell] = 1
		}
		cs.Dl[m] = dl
		cs.Sigma[m] = sigma
	}
	if err := spectra.WriteCrossSpectrum(filepath.Join(dir, "spectra_0_1.fits"), cs); err != nil {
		t.Fatalf("failed to write cross-spectrum: %v", err)
	}
	if err := spectra.WriteCrossSpectrum(filepath.Join(dir, "errors_0_1.fits"), cs); err != nil {
		t.Fatalf("failed to write cross-spectrum errors: %v", err)
	}

	n := FixtureLmax - FixtureLmin + 1
	eye := make([]float64, n*n)
	for i := 0; i < n; i++ {
		eye[i*n+i] = 1
	}
	if err := spectra.WriteInverseCovariance(filepath.Join(dir, "invkll_TT.fits"), n, eye); err != nil {
		t.Fatalf("failed to write inverse covariance: %v", err)
	}

	theoryPath := WriteTheoryFile(t, dir, FixtureTheoryDl)

	return &config.Config{
		Frequencies:          []int{143, 143},
		TT:                   boolptr(true),
		MultipoleRangesFile:  strptr(binPath),
		XSpectraPrefix:       strptr(filepath.Join(dir, "spectra")),
		XSpectraErrorsPrefix: strptr(filepath.Join(dir, "errors")),
		CovMatrixPrefix:      strptr(filepath.Join(dir, "invkll")),
		TheoryFile:           strptr(theoryPath),
	}
}

// WriteTheoryFile writes a theory JSON file whose TT block is a flat Dl
// spectrum of the given amplitude in muK^2, converted to the Cl in K^2 the
// loader expects. EE and TE are zero.
func WriteTheoryFile(t *testing.T, dir string, dl float64) string {
	t.Helper()

	tt := make([]float64, FixtureLmax+1)
	zero := make([]float64, FixtureLmax+1)
	for ell := 2; ell <= FixtureLmax; ell++ {
		tt[ell] = dl * 2 * math.Pi / (float64(ell) * float64(ell+1)) * 1e-12
	}
	th := map[string][]float64{"tt": tt, "ee": zero, "te": zero}
	data, err := json.Marshal(th)
	if err != nil {
		t.Fatalf("failed to marshal theory: %v", err)
	}
	path := filepath.Join(dir, "theory.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write theory file: %v", err)
	}
	return path
}

// FixtureParams returns the nuisance parameters that leave only the flat
// data-minus-theory residual: unit calibration, zero point sources.
func FixtureParams() map[string]float64 {
	return map[string]float64{
		"Aplanck": 1,
		"c0":      0,
		"c1":      0,
		"Aradio":  0,
		"Adusty":  0,
	}
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
