// Package likelihood implements the high-l CMB likelihood: a Gaussian
// approximation over foreground-corrected cross-spectra from
// split-frequency maps, chi2 = X^T C^-1 X with X the per-cross-frequency
// weighted residual vector.
package likelihood

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/planck-hfi/hillipop/internal/config"
	"github.com/planck-hfi/hillipop/internal/foregrounds"
	"github.com/planck-hfi/hillipop/internal/monitoring"
	"github.com/planck-hfi/hillipop/internal/spectra"
)

// Likelihood holds the data products and foreground models needed to
// evaluate the likelihood. Build it once with New; Compute is safe for
// concurrent use since all state is read-only after construction.
type Likelihood struct {
	tt, ee, te, et bool

	freqs     []int // per map, GHz
	uniqFreqs []int
	nmap      int
	nfreq     int
	nxspec    int
	nxfreq    int

	pairs      [][2]int // map pairs per cross-spectrum
	fpairs     [][2]int // frequency index pairs per cross-frequency
	x2x        []int    // cross-spectrum -> cross-frequency
	firstXSpec []int    // cross-frequency -> first cross-spectrum mapping to it

	ranges *spectra.MultipoleRanges
	lmax   int

	dldata   [spectra.NumModes][][]float64 // Dl, muK^2, [mode][xspec][l]
	dlweight [spectra.NumModes][][]float64 // 1/sigma^2, muK^-4

	invkll *mat.SymDense

	fgs [spectra.NumModes][]foregrounds.Component

	parNames []string
}

// New builds a Likelihood from its configuration, reading the multipole
// ranges, cross-spectra, weights, inverse covariance and foreground
// templates from disk.
func New(cfg *config.Config) (*Likelihood, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Likelihood{
		tt:    cfg.GetTT(),
		ee:    cfg.GetEE(),
		te:    cfg.GetTE(),
		et:    cfg.GetET(),
		freqs: cfg.Frequencies,
	}
	l.nmap = len(l.freqs)
	l.uniqFreqs = spectra.UniqueFreqs(l.freqs)
	l.nfreq = len(l.uniqFreqs)
	l.pairs = spectra.MapPairs(l.nmap)
	l.nxspec = len(l.pairs)
	l.fpairs = spectra.FreqPairs(l.nfreq)
	l.nxfreq = len(l.fpairs)
	l.x2x = spectra.XSpecToXFreq(l.freqs)

	l.firstXSpec = make([]int, l.nxfreq)
	for xf := range l.firstXSpec {
		l.firstXSpec[xf] = -1
	}
	for xs, xf := range l.x2x {
		if l.firstXSpec[xf] < 0 {
			l.firstXSpec[xf] = xs
		}
	}
	for xf, xs := range l.firstXSpec {
		if xs < 0 {
			p := l.fpairs[xf]
			return nil, fmt.Errorf("no map pair covers cross-frequency %dx%d GHz",
				l.uniqFreqs[p[0]], l.uniqFreqs[p[1]])
		}
	}

	monitoring.Logf("likelihood: %d maps, %d cross-spectra, %d cross-frequencies",
		l.nmap, l.nxspec, l.nxfreq)

	var err error
	l.ranges, err = spectra.ReadMultipoleRanges(*cfg.MultipoleRangesFile)
	if err != nil {
		return nil, fmt.Errorf("multipole ranges: %w", err)
	}
	if l.ranges.Count() != l.nxspec {
		return nil, fmt.Errorf("range file covers %d cross-spectra, expected %d",
			l.ranges.Count(), l.nxspec)
	}
	l.lmax = l.ranges.Lmax
	monitoring.Logf("likelihood: multipole ranges loaded, lmax=%d", l.lmax)

	if err := l.readData(*cfg.XSpectraPrefix, *cfg.XSpectraErrorsPrefix); err != nil {
		return nil, err
	}

	covPath := *cfg.CovMatrixPrefix + spectra.CovarianceSuffix(l.tt, l.ee, l.te, l.et) + ".fits"
	l.invkll, err = spectra.ReadInverseCovariance(covPath)
	if err != nil {
		return nil, fmt.Errorf("inverse covariance: %w", err)
	}
	if got, want := l.invkll.SymmetricDim(), l.vectorLen(); got != want {
		return nil, fmt.Errorf("inverse covariance dimension %d does not match data vector length %d", got, want)
	}
	monitoring.Logf("likelihood: inverse covariance %dx%d loaded", l.invkll.SymmetricDim(), l.invkll.SymmetricDim())

	if err := l.buildForegrounds(cfg); err != nil {
		return nil, err
	}
	l.buildParameters()

	return l, nil
}

func (l *Likelihood) readData(spectraPrefix, errorsPrefix string) error {
	for _, pair := range l.pairs {
		dataPath := fmt.Sprintf("%s_%d_%d.fits", spectraPrefix, pair[0], pair[1])
		cs, err := spectra.ReadCrossSpectrum(dataPath, l.lmax)
		if err != nil {
			return fmt.Errorf("cross-spectrum %d_%d: %w", pair[0], pair[1], err)
		}

		errPath := fmt.Sprintf("%s_%d_%d.fits", errorsPrefix, pair[0], pair[1])
		es, err := spectra.ReadCrossSpectrum(errPath, l.lmax)
		if err != nil {
			return fmt.Errorf("cross-spectrum errors %d_%d: %w", pair[0], pair[1], err)
		}

		for m := 0; m < spectra.NumModes; m++ {
			l.dldata[m] = append(l.dldata[m], cs.Dl[m])
			l.dlweight[m] = append(l.dlweight[m], es.Weights(m))
		}
	}
	monitoring.Logf("likelihood: %d cross-spectra read", l.nxspec)
	return nil
}

func (l *Likelihood) buildForegrounds(cfg *config.Config) error {
	dust := func(mode int) error {
		if cfg.DustTemplate == nil {
			return nil
		}
		name := spectra.ModeNames[mode]
		file := name
		if mode == spectra.ModeET {
			file = "TE" // the dust emission template is symmetric
		}
		c, err := foregrounds.NewDustTemplate(
			fmt.Sprintf("%s_%s.fits", *cfg.DustTemplate, file), l.lmax, l.freqs, name)
		if err != nil {
			return err
		}
		l.fgs[mode] = append(l.fgs[mode], c)
		return nil
	}

	if l.tt {
		l.fgs[spectra.ModeTT] = append(l.fgs[spectra.ModeTT],
			foregrounds.NewRadioSources(l.lmax, l.freqs),
			foregrounds.NewDustySources(l.lmax, l.freqs))
		if err := dust(spectra.ModeTT); err != nil {
			return err
		}
		for _, tmpl := range []struct {
			path *string
			make func(string, int, []int) (foregrounds.Component, error)
		}{
			{cfg.SZTemplate, foregrounds.NewSZTemplate},
			{cfg.CIBTemplate, foregrounds.NewCIBTemplate},
			{cfg.KSZTemplate, foregrounds.NewKSZTemplate},
			{cfg.SZxCIBTemplate, foregrounds.NewSZxCIBTemplate},
		} {
			if tmpl.path == nil {
				continue
			}
			c, err := tmpl.make(*tmpl.path, l.lmax, l.freqs)
			if err != nil {
				return err
			}
			l.fgs[spectra.ModeTT] = append(l.fgs[spectra.ModeTT], c)
		}
	}
	if l.ee {
		if err := dust(spectra.ModeEE); err != nil {
			return err
		}
	}
	if l.te {
		if err := dust(spectra.ModeTE); err != nil {
			return err
		}
	}
	if l.et {
		if err := dust(spectra.ModeET); err != nil {
			return err
		}
	}

	for _, m := range l.activeModes() {
		for _, fg := range l.fgs[m] {
			monitoring.Logf("likelihood: %s foreground %s enabled", spectra.ModeNames[m], fg.Name())
		}
	}
	return nil
}

func (l *Likelihood) buildParameters() {
	l.parNames = []string{"Aplanck"}
	for m := 0; m < l.nmap; m++ {
		l.parNames = append(l.parNames, fmt.Sprintf("c%d", m))
	}
	seen := make(map[string]bool)
	for _, mode := range l.activeModes() {
		for _, fg := range l.fgs[mode] {
			for _, p := range fg.Parameters() {
				if !seen[p] {
					seen[p] = true
					l.parNames = append(l.parNames, p)
				}
			}
		}
	}
}

// activeModes lists the enabled modes in data-vector order.
func (l *Likelihood) activeModes() []int {
	var modes []int
	for m, on := range [spectra.NumModes]bool{l.tt, l.ee, l.te, l.et} {
		if on {
			modes = append(modes, m)
		}
	}
	return modes
}

// vectorLen is the length of the flattened residual vector, fixed by the
// per-cross-frequency multipole ranges of the active modes.
func (l *Likelihood) vectorLen() int {
	n := 0
	for _, m := range l.activeModes() {
		for xf := 0; xf < l.nxfreq; xf++ {
			xs := l.firstXSpec[xf]
			n += l.ranges.Lmaxs[m][xs] - l.ranges.Lmins[m][xs] + 1
		}
	}
	return n
}

// Parameters lists the nuisance parameter names Compute requires:
// calibration first, then the foreground amplitudes.
func (l *Likelihood) Parameters() []string {
	out := make([]string, len(l.parNames))
	copy(out, l.parNames)
	return out
}

// Frequencies returns the frequency in GHz of each map.
func (l *Likelihood) Frequencies() []int {
	out := make([]int, len(l.freqs))
	copy(out, l.freqs)
	return out
}

// Lmax returns the highest multipole entering the likelihood.
func (l *Likelihood) Lmax() int { return l.lmax }

// Ranges returns the per-cross-spectrum multipole ranges.
func (l *Likelihood) Ranges() *spectra.MultipoleRanges { return l.ranges }

// ActiveModes names the enabled spectral blocks in data-vector order.
func (l *Likelihood) ActiveModes() []string {
	var names []string
	for _, m := range l.activeModes() {
		names = append(names, spectra.ModeNames[m])
	}
	return names
}
