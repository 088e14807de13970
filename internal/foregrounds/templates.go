package foregrounds

import (
	"fmt"

	"github.com/planck-hfi/hillipop/internal/spectra"
)

// scaledTemplate is a template-driven component: a fixed Dl shape per
// cross-spectrum scaled by a single amplitude nuisance.
type scaledTemplate struct {
	name    string
	parName string
	dls     [][]float64 // per cross-spectrum template, muK^2
}

func (c *scaledTemplate) Name() string { return c.name }

func (c *scaledTemplate) Parameters() []string { return []string{c.parName} }

func (c *scaledTemplate) ComputeDl(params map[string]float64) ([][]float64, error) {
	a, err := param(params, c.parName)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(c.dls))
	for xs, tmpl := range c.dls {
		dl := make([]float64, len(tmpl))
		for l, v := range tmpl {
			dl[l] = a * v
		}
		out[xs] = dl
	}
	return out, nil
}

// expand maps per-cross-frequency templates onto cross-spectra and applies
// a per-cross-spectrum scale.
func expand(tmpl [][]float64, xspec2xfreq []int, scale []float64) [][]float64 {
	out := make([][]float64, len(xspec2xfreq))
	for xs, xf := range xspec2xfreq {
		src := tmpl[xf]
		dl := make([]float64, len(src))
		for l, v := range src {
			dl[l] = scale[xs] * v
		}
		out[xs] = dl
	}
	return out
}

// pairScales builds a per-cross-spectrum scale out of a per-frequency
// emission law: scale_xs = f(nu1) * f(nu2).
func pairScales(freqs []int, law func(nuGHz float64) float64) []float64 {
	var out []float64
	for _, pair := range spectra.MapPairs(len(freqs)) {
		out = append(out, law(float64(freqs[pair[0]]))*law(float64(freqs[pair[1]])))
	}
	return out
}

func unitScales(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

// NewDustTemplate builds the Galactic dust component for one mode from a
// template file holding one HDU per cross-frequency. The amplitude
// nuisance is per mode (AdustTT, AdustEE, AdustTE); ET shares the TE
// amplitude since the underlying emission is the same.
func NewDustTemplate(path string, lmax int, freqs []int, mode string) (Component, error) {
	switch mode {
	case "TT", "EE", "TE", "ET":
	default:
		return nil, fmt.Errorf("unknown dust mode %q", mode)
	}
	parName := "Adust" + mode
	if mode == "ET" {
		parName = "AdustTE"
	}

	x2x := spectra.XSpecToXFreq(freqs)
	nxfreq := len(spectra.FreqPairs(len(spectra.UniqueFreqs(freqs))))
	tmpl, err := spectra.ReadTemplateBlocks(path, lmax, nxfreq)
	if err != nil {
		return nil, fmt.Errorf("dust template %s: %w", path, err)
	}
	return &scaledTemplate{
		name:    "dust_" + mode,
		parName: parName,
		dls:     expand(tmpl, x2x, unitScales(len(x2x))),
	}, nil
}

// newScaledTemplate reads a single-HDU template at the reference frequency
// and spreads it over the cross-spectra with the given emission law.
func newScaledTemplate(name, parName, path string, lmax int, scales []float64) (Component, error) {
	tmpl, err := spectra.ReadTemplate(path, lmax)
	if err != nil {
		return nil, fmt.Errorf("%s template %s: %w", name, path, err)
	}
	dls := make([][]float64, len(scales))
	for xs, s := range scales {
		dl := make([]float64, len(tmpl))
		for l, v := range tmpl {
			dl[l] = s * v
		}
		dls[xs] = dl
	}
	return &scaledTemplate{name: name, parName: parName, dls: dls}, nil
}

// NewSZTemplate builds the thermal SZ component. The template is the tSZ
// Dl at the reference frequency; the spectral function f(x) = x coth(x/2) - 4
// carries it to the other channels. Nuisance: Asz.
func NewSZTemplate(path string, lmax int, freqs []int) (Component, error) {
	return newScaledTemplate("sz", "Asz", path, lmax, pairScales(freqs, tszRatio))
}

// NewCIBTemplate builds the clustered CIB component. Nuisance: Acib.
func NewCIBTemplate(path string, lmax int, freqs []int) (Component, error) {
	return newScaledTemplate("cib", "Acib", path, lmax, pairScales(freqs, cibRatio))
}

// NewKSZTemplate builds the kinetic SZ component, frequency independent in
// thermodynamic units. Nuisance: Aksz.
func NewKSZTemplate(path string, lmax int, freqs []int) (Component, error) {
	n := len(spectra.MapPairs(len(freqs)))
	return newScaledTemplate("ksz", "Aksz", path, lmax, unitScales(n))
}

// NewSZxCIBTemplate builds the tSZ-CIB cross-correlation. The scale is the
// symmetrised product of the two emission laws; the amplitude nuisance
// Aszxcib may be negative since the correlation is anti-correlated with
// the tSZ signal at some frequencies.
func NewSZxCIBTemplate(path string, lmax int, freqs []int) (Component, error) {
	var scales []float64
	for _, pair := range spectra.MapPairs(len(freqs)) {
		nu1 := float64(freqs[pair[0]])
		nu2 := float64(freqs[pair[1]])
		scales = append(scales, (tszRatio(nu1)*cibRatio(nu2)+tszRatio(nu2)*cibRatio(nu1))/2)
	}
	return newScaledTemplate("szxcib", "Aszxcib", path, lmax, scales)
}
