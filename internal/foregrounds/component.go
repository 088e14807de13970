// Package foregrounds models the non-cosmological emission remaining in
// the cross-spectra: point source populations with analytic shapes, and
// template-driven components (Galactic dust, tSZ, CIB, kSZ, tSZxCIB).
// Each component owns its nuisance parameters and returns its Dl
// contribution per cross-spectrum.
package foregrounds

import "fmt"

// Component is one foreground emission contributing to the cross-spectra.
type Component interface {
	// Name identifies the component in logs and reports.
	Name() string

	// Parameters lists the nuisance parameter names ComputeDl requires.
	Parameters() []string

	// ComputeDl returns the foreground power as Dl in muK^2, indexed
	// [cross-spectrum][multipole] from l=0 up to the component's lmax.
	ComputeDl(params map[string]float64) ([][]float64, error)
}

func param(params map[string]float64, name string) (float64, error) {
	v, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("missing nuisance parameter %q", name)
	}
	return v, nil
}
