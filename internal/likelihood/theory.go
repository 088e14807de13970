package likelihood

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/planck-hfi/hillipop/internal/spectra"
)

// TheorySpectra carries CMB power spectra from a Boltzmann code, as Cl in
// K^2 indexed by multipole from l=0. TE covers both the TE and ET blocks
// since the theory spectrum is symmetric.
type TheorySpectra struct {
	TT []float64 `json:"tt,omitempty"`
	EE []float64 `json:"ee,omitempty"`
	TE []float64 `json:"te,omitempty"`
}

// LoadTheory reads TheorySpectra from a JSON file.
func LoadTheory(path string) (*TheorySpectra, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theory file: %w", err)
	}
	th := &TheorySpectra{}
	if err := json.Unmarshal(data, th); err != nil {
		return nil, fmt.Errorf("failed to parse theory JSON: %w", err)
	}
	return th, nil
}

// block returns the Cl spectrum feeding the given likelihood mode.
func (t *TheorySpectra) block(mode int) []float64 {
	switch mode {
	case spectra.ModeTT:
		return t.TT
	case spectra.ModeEE:
		return t.EE
	default: // TE and ET share the theory spectrum
		return t.TE
	}
}

// dl converts the spectrum for one mode to Dl in muK^2 up to lmax,
// erroring when the theory does not reach lmax.
func (t *TheorySpectra) dl(mode, lmax int) ([]float64, error) {
	cl := t.block(mode)
	if len(cl) < lmax+1 {
		return nil, fmt.Errorf("theory %s spectrum covers %d multipoles, need %d",
			spectra.ModeNames[mode], len(cl), lmax+1)
	}
	return spectra.ClToDl(cl, lmax), nil
}
