package foregrounds

import (
	"github.com/planck-hfi/hillipop/internal/spectra"
)

// psPivot is the multipole the point-source amplitudes are quoted at:
// the nuisance value is D_3000 in muK^2 at the reference frequency.
const psPivot = 3000

// pointSources is a Poisson point-source population. Poisson power is flat
// in Cl, so Dl rises as l(l+1); the frequency dependence follows the
// population's flux spectral index.
type pointSources struct {
	name     string
	parName  string
	index    float64
	lmax     int
	emiss    []float64 // per cross-spectrum emission relative to reference
	template []float64 // shared l(l+1) shape, unit amplitude at psPivot
}

func newPointSources(name, parName string, index float64, lmax int, freqs []int) *pointSources {
	c := &pointSources{
		name:    name,
		parName: parName,
		index:   index,
		lmax:    lmax,
	}
	for _, pair := range spectra.MapPairs(len(freqs)) {
		e1 := sourceEmissivity(float64(freqs[pair[0]]), index)
		e2 := sourceEmissivity(float64(freqs[pair[1]]), index)
		c.emiss = append(c.emiss, e1*e2)
	}
	c.template = make([]float64, lmax+1)
	norm := float64(psPivot) * float64(psPivot+1)
	for l := 0; l <= lmax; l++ {
		c.template[l] = float64(l) * float64(l+1) / norm
	}
	return c
}

// NewRadioSources models the radio galaxy population, falling with
// frequency (alpha = -0.7 in flux). Nuisance: Aradio.
func NewRadioSources(lmax int, freqs []int) Component {
	return newPointSources("radio_ps", "Aradio", -0.7, lmax, freqs)
}

// NewDustySources models the dusty (infrared) galaxy population, rising
// steeply with frequency (alpha = 3.8 in flux). Nuisance: Adusty.
func NewDustySources(lmax int, freqs []int) Component {
	return newPointSources("dusty_ps", "Adusty", 3.8, lmax, freqs)
}

func (c *pointSources) Name() string { return c.name }

func (c *pointSources) Parameters() []string { return []string{c.parName} }

func (c *pointSources) ComputeDl(params map[string]float64) ([][]float64, error) {
	a, err := param(params, c.parName)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(c.emiss))
	for xs, e := range c.emiss {
		dl := make([]float64, c.lmax+1)
		amp := a * e
		for l := range dl {
			dl[l] = amp * c.template[l]
		}
		out[xs] = dl
	}
	return out, nil
}
