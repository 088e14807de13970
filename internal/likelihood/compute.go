package likelihood

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/planck-hfi/hillipop/internal/spectra"
)

// calibrations returns the per-cross-spectrum calibration factor
// Aplanck^2 * (1+c_m1) * (1+c_m2).
func (l *Likelihood) calibrations(params map[string]float64) ([]float64, error) {
	aplanck, ok := params["Aplanck"]
	if !ok {
		return nil, fmt.Errorf("missing nuisance parameter %q", "Aplanck")
	}
	cals := make([]float64, l.nxspec)
	for xs, pair := range l.pairs {
		c1, ok := params[fmt.Sprintf("c%d", pair[0])]
		if !ok {
			return nil, fmt.Errorf("missing nuisance parameter %q", fmt.Sprintf("c%d", pair[0]))
		}
		c2, ok := params[fmt.Sprintf("c%d", pair[1])]
		if !ok {
			return nil, fmt.Errorf("missing nuisance parameter %q", fmt.Sprintf("c%d", pair[1]))
		}
		cals[xs] = aplanck * aplanck * (1 + c1) * (1 + c2)
	}
	return cals, nil
}

// modelDl assembles the model spectra for one mode: theory plus the sum of
// the mode's foreground components, per cross-spectrum.
func (l *Likelihood) modelDl(mode int, params map[string]float64, dlth []float64) ([][]float64, error) {
	model := make([][]float64, l.nxspec)
	for xs := range model {
		dl := make([]float64, l.lmax+1)
		copy(dl, dlth)
		model[xs] = dl
	}
	for _, fg := range l.fgs[mode] {
		fgdl, err := fg.ComputeDl(params)
		if err != nil {
			return nil, fmt.Errorf("foreground %s: %w", fg.Name(), err)
		}
		for xs := range model {
			for ell := range model[xs] {
				model[xs][ell] += fgdl[xs][ell]
			}
		}
	}
	return model, nil
}

// xspectraToXFreq averages cross-spectra into cross-frequencies using the
// per-multipole inverse variance weights. Multipoles with zero total
// weight average to zero.
func (l *Likelihood) xspectraToXFreq(cl, weight [][]float64) [][]float64 {
	xcl := make([][]float64, l.nxfreq)
	xw8 := make([][]float64, l.nxfreq)
	for xf := range xcl {
		xcl[xf] = make([]float64, l.lmax+1)
		xw8[xf] = make([]float64, l.lmax+1)
	}
	for xs, xf := range l.x2x {
		for ell := 0; ell <= l.lmax; ell++ {
			xcl[xf][ell] += weight[xs][ell] * cl[xs][ell]
			xw8[xf][ell] += weight[xs][ell]
		}
	}
	for xf := range xcl {
		for ell := range xcl[xf] {
			if xw8[xf][ell] != 0 {
				xcl[xf][ell] /= xw8[xf][ell]
			} else {
				xcl[xf][ell] = 0
			}
		}
	}
	return xcl
}

// selectSpectra cuts the per-cross-frequency spectra to their multipole
// ranges and flattens them. The range of a cross-frequency is that of the
// first cross-spectrum mapping to it, matching the covariance layout.
func (l *Likelihood) selectSpectra(xcl [][]float64, mode int) []float64 {
	var out []float64
	for xf := 0; xf < l.nxfreq; xf++ {
		xs := l.firstXSpec[xf]
		lmin := l.ranges.Lmins[mode][xs]
		lmax := l.ranges.Lmaxs[mode][xs]
		out = append(out, xcl[xf][lmin:lmax+1]...)
	}
	return out
}

// residualXFreq computes the per-cross-frequency residual spectra for one
// mode: data minus calibrated model, inverse-variance averaged.
func (l *Likelihood) residualXFreq(mode int, params map[string]float64, cals, dlth []float64) ([][]float64, error) {
	model, err := l.modelDl(mode, params, dlth)
	if err != nil {
		return nil, err
	}
	rspec := make([][]float64, l.nxspec)
	for xs := range rspec {
		r := make([]float64, l.lmax+1)
		for ell := range r {
			r[ell] = l.dldata[mode][xs][ell] - cals[xs]*model[xs][ell]
		}
		rspec[xs] = r
	}
	return l.xspectraToXFreq(rspec, l.dlweight[mode]), nil
}

// residualVector assembles the flattened residual vector over the active
// modes in TT, EE, TE, ET order.
func (l *Likelihood) residualVector(params map[string]float64, th *TheorySpectra) ([]float64, error) {
	cals, err := l.calibrations(params)
	if err != nil {
		return nil, err
	}
	var x []float64
	for _, mode := range l.activeModes() {
		dlth, err := th.dl(mode, l.lmax)
		if err != nil {
			return nil, err
		}
		rl, err := l.residualXFreq(mode, params, cals, dlth)
		if err != nil {
			return nil, err
		}
		x = append(x, l.selectSpectra(rl, mode)...)
	}
	return x, nil
}

// Compute evaluates the likelihood for the given nuisance parameters and
// theory spectra, returning -2 ln L = X^T C^-1 X.
func (l *Likelihood) Compute(params map[string]float64, th *TheorySpectra) (float64, error) {
	x, err := l.residualVector(params, th)
	if err != nil {
		return 0, err
	}
	if len(x) != l.invkll.SymmetricDim() {
		return 0, fmt.Errorf("residual vector length %d does not match covariance dimension %d",
			len(x), l.invkll.SymmetricDim())
	}
	v := mat.NewVecDense(len(x), x)
	return mat.Inner(v, l.invkll, v), nil
}

// SpectrumBlock is one cross-frequency spectrum cut to its multipole
// range, used by reports and the HTTP API. Dl[0] corresponds to Lmin.
type SpectrumBlock struct {
	Mode  string    `json:"mode"`
	Freq1 int       `json:"freq1"`
	Freq2 int       `json:"freq2"`
	Lmin  int       `json:"lmin"`
	Lmax  int       `json:"lmax"`
	Dl    []float64 `json:"dl"`
}

func (l *Likelihood) blocks(xcl [][]float64, mode int) []SpectrumBlock {
	var out []SpectrumBlock
	for xf := 0; xf < l.nxfreq; xf++ {
		xs := l.firstXSpec[xf]
		lmin := l.ranges.Lmins[mode][xs]
		lmax := l.ranges.Lmaxs[mode][xs]
		dl := make([]float64, lmax-lmin+1)
		copy(dl, xcl[xf][lmin:lmax+1])
		out = append(out, SpectrumBlock{
			Mode:  spectra.ModeNames[mode],
			Freq1: l.uniqFreqs[l.fpairs[xf][0]],
			Freq2: l.uniqFreqs[l.fpairs[xf][1]],
			Lmin:  lmin,
			Lmax:  lmax,
			Dl:    dl,
		})
	}
	return out
}

// Residuals returns the per-cross-frequency residual spectra for the
// active modes, the same quantities Compute flattens into the data vector.
func (l *Likelihood) Residuals(params map[string]float64, th *TheorySpectra) ([]SpectrumBlock, error) {
	cals, err := l.calibrations(params)
	if err != nil {
		return nil, err
	}
	var out []SpectrumBlock
	for _, mode := range l.activeModes() {
		dlth, err := th.dl(mode, l.lmax)
		if err != nil {
			return nil, err
		}
		rl, err := l.residualXFreq(mode, params, cals, dlth)
		if err != nil {
			return nil, err
		}
		out = append(out, l.blocks(rl, mode)...)
	}
	return out, nil
}

// DataSpectra returns the inverse-variance averaged data spectra per
// cross-frequency for the active modes, with no model subtracted.
func (l *Likelihood) DataSpectra() []SpectrumBlock {
	var out []SpectrumBlock
	for _, mode := range l.activeModes() {
		xcl := l.xspectraToXFreq(l.dldata[mode], l.dlweight[mode])
		out = append(out, l.blocks(xcl, mode)...)
	}
	return out
}
