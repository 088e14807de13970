package spectra

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Bins defines a set of contiguous multipole bins used to compress spectra
// for covariance work and plotting. Bins below l=2 are discarded at
// construction since the monopole and dipole never enter the likelihood.
type Bins struct {
	Lmins []int
	Lmaxs []int

	lmin  int
	lmax  int
	nbins int
}

// NewBins builds bins from parallel lower and upper bound lists.
func NewBins(lmins, lmaxs []int) (*Bins, error) {
	if len(lmins) != len(lmaxs) {
		return nil, fmt.Errorf("bin bounds disagree: %d lmins, %d lmaxs", len(lmins), len(lmaxs))
	}
	b := &Bins{}
	for i := range lmins {
		if lmins[i] < 2 || lmaxs[i] < 2 {
			continue
		}
		b.Lmins = append(b.Lmins, lmins[i])
		b.Lmaxs = append(b.Lmaxs, lmaxs[i])
	}
	if err := b.derive(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewBinsFromDelta builds uniform bins of width deltaEll covering
// [lmin, lmax]. A trailing partial bin is dropped.
func NewBinsFromDelta(lmin, lmax, deltaEll int) (*Bins, error) {
	if deltaEll < 1 {
		return nil, fmt.Errorf("bin width must be positive, got %d", deltaEll)
	}
	nbins := (lmax - lmin + 1) / deltaEll
	lmins := make([]int, nbins)
	lmaxs := make([]int, nbins)
	for i := 0; i < nbins; i++ {
		lmins[i] = lmin + i*deltaEll
		lmaxs[i] = lmins[i] + deltaEll - 1
	}
	return NewBins(lmins, lmaxs)
}

func (b *Bins) derive() error {
	if len(b.Lmins) == 0 {
		return fmt.Errorf("no bins left after cuts")
	}
	b.lmin = b.Lmins[0]
	b.lmax = b.Lmaxs[0]
	for i := range b.Lmins {
		if b.Lmins[i] > b.Lmaxs[i] {
			return fmt.Errorf("bin %d has lmin %d > lmax %d", i, b.Lmins[i], b.Lmaxs[i])
		}
		if b.Lmins[i] < b.lmin {
			b.lmin = b.Lmins[i]
		}
		if b.Lmaxs[i] > b.lmax {
			b.lmax = b.Lmaxs[i]
		}
	}
	b.nbins = len(b.Lmins)
	return nil
}

// NumBins returns the number of bins.
func (b *Bins) NumBins() int { return b.nbins }

// Lmin returns the lowest multipole covered.
func (b *Bins) Lmin() int { return b.lmin }

// Lmax returns the highest multipole covered.
func (b *Bins) Lmax() int { return b.lmax }

// Centers returns the bin centres.
func (b *Bins) Centers() []float64 {
	c := make([]float64, b.nbins)
	for i := range b.Lmins {
		c[i] = float64(b.Lmins[i]+b.Lmaxs[i]) / 2
	}
	return c
}

// CutBinning drops every bin not fully contained in [lmin, lmax].
func (b *Bins) CutBinning(lmin, lmax int) error {
	var lo, hi []int
	for i := range b.Lmins {
		if b.Lmins[i] >= lmin && b.Lmaxs[i] <= lmax {
			lo = append(lo, b.Lmins[i])
			hi = append(hi, b.Lmaxs[i])
		}
	}
	b.Lmins, b.Lmaxs = lo, hi
	return b.derive()
}

// operator builds the nbins x (lmax+1) binning matrix. With dl set the
// rows carry l(l+1)/2pi weights so Cl input yields binned Dl.
func (b *Bins) operator(dl bool) *mat.Dense {
	p := mat.NewDense(b.nbins, b.lmax+1, nil)
	for i := range b.Lmins {
		width := float64(b.Lmaxs[i] - b.Lmins[i] + 1)
		for ell := b.Lmins[i]; ell <= b.Lmaxs[i]; ell++ {
			w := 1.0
			if dl {
				w = float64(ell) * float64(ell+1) / (2 * math.Pi)
			}
			p.Set(i, ell, w/width)
		}
	}
	return p
}

// BinSpectrum averages a spectrum into the bins, weighted by l(l+1)/2pi
// when dl is set. Multipoles beyond the spectrum are treated as absent.
func (b *Bins) BinSpectrum(spec []float64, dl bool) []float64 {
	n := len(spec)
	if n > b.lmax+1 {
		n = b.lmax + 1
	}
	p := b.operator(dl).Slice(0, b.nbins, 0, n)
	v := mat.NewVecDense(n, spec[:n])
	out := mat.NewVecDense(b.nbins, nil)
	out.MulVec(p, v)
	return out.RawVector().Data
}
