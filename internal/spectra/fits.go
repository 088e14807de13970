package spectra

import (
	"fmt"
	"math"
	"os"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/mat"
)

// Unit conversions between the Xpol products (K^2, K^-4) and the muK units
// used internally.
const (
	kSqToMuKSq   = 1e12
	covKToMuK    = 1e-24
	templateUnit = 1.0 // foreground templates are already Dl in muK^2
)

// CrossSpectrum holds the four blocks of one map-pair spectrum, Dl and
// sigma in muK^2, indexed by multipole up to a common lmax.
type CrossSpectrum struct {
	Dl    [NumModes][]float64
	Sigma [NumModes][]float64
}

// MultipoleRanges holds the per-cross-spectrum (lmin, lmax) for each mode,
// read from a bin file. Lmax is the global maximum over all blocks.
type MultipoleRanges struct {
	Lmins [NumModes][]int
	Lmaxs [NumModes][]int
	Lmax  int
}

// Count returns the number of cross-spectra covered by the range file.
func (r *MultipoleRanges) Count() int { return len(r.Lmins[ModeTT]) }

func withFITS(path string, fn func(f *fitsio.File) error) error {
	r, err := os.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return fmt.Errorf("open FITS %s: %w", path, err)
	}
	defer f.Close()

	return fn(f)
}

// readColumns reads ncols float64 columns from the binary table at HDU i.
func readColumns(f *fitsio.File, i, ncols int) ([][]float64, error) {
	if i >= len(f.HDUs()) {
		return nil, fmt.Errorf("missing HDU %d", i)
	}
	tbl, ok := f.HDU(i).(*fitsio.Table)
	if !ok {
		return nil, fmt.Errorf("HDU %d is not a binary table", i)
	}

	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("read HDU %d: %w", i, err)
	}
	defer rows.Close()

	out := make([][]float64, ncols)
	vals := make([]float64, ncols)
	ptrs := make([]interface{}, ncols)
	for k := range vals {
		ptrs[k] = &vals[k]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan HDU %d: %w", i, err)
		}
		for k, v := range vals {
			out[k] = append(out[k], v)
		}
	}
	return out, rows.Err()
}

// spectrumHDUs maps each likelihood mode to its HDU in an Xpol spectrum
// file. The file layout is TT, EE, BB, TE; the ET block reuses the TE HDU
// (the estimator is symmetrised) and BB is skipped.
var spectrumHDUs = [NumModes]int{1, 2, 4, 4}

// ReadCrossSpectrum reads one Xpol cross-spectrum file, zero-filling
// multipoles absent from the table and converting K^2 to muK^2. Column
// layout per HDU: ell, Dl, sigma.
func ReadCrossSpectrum(path string, lmax int) (*CrossSpectrum, error) {
	cs := &CrossSpectrum{}
	err := withFITS(path, func(f *fitsio.File) error {
		for m, hdu := range spectrumHDUs {
			cols, err := readColumns(f, hdu, 3)
			if err != nil {
				return fmt.Errorf("%s block: %w", ModeNames[m], err)
			}
			dl := make([]float64, lmax+1)
			sigma := make([]float64, lmax+1)
			for k, ellf := range cols[0] {
				ell := int(ellf)
				if ell < 0 || ell > lmax {
					continue
				}
				dl[ell] = cols[1][k] * kSqToMuKSq
				sigma[ell] = cols[2][k] * kSqToMuKSq
			}
			cs.Dl[m] = dl
			cs.Sigma[m] = sigma
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// Weights converts the per-multipole sigma of one block into inverse
// variance weights in muK^-4. A zero sigma means the multipole was not
// estimated and carries zero weight.
func (cs *CrossSpectrum) Weights(mode int) []float64 {
	w := make([]float64, len(cs.Sigma[mode]))
	for l, s := range cs.Sigma[mode] {
		if s != 0 {
			w[l] = 1 / (s * s)
		}
	}
	return w
}

// rangeHDUs maps each likelihood mode to its HDU in a bin file. Bin files
// carry five blocks (TT, EE, BB, TE, ET); BB is skipped.
var rangeHDUs = [NumModes]int{1, 2, 4, 5}

// ReadMultipoleRanges reads a bin file holding the per-cross-spectrum
// multipole ranges, columns LMIN and LMAX.
func ReadMultipoleRanges(path string) (*MultipoleRanges, error) {
	mr := &MultipoleRanges{}
	err := withFITS(path, func(f *fitsio.File) error {
		for m, hdu := range rangeHDUs {
			cols, err := readColumns(f, hdu, 2)
			if err != nil {
				return fmt.Errorf("%s ranges: %w", ModeNames[m], err)
			}
			for k := range cols[0] {
				lmin := int(cols[0][k])
				lmax := int(cols[1][k])
				if lmin > lmax {
					return fmt.Errorf("%s ranges: lmin %d > lmax %d at row %d", ModeNames[m], lmin, lmax, k)
				}
				mr.Lmins[m] = append(mr.Lmins[m], lmin)
				mr.Lmaxs[m] = append(mr.Lmaxs[m], lmax)
				if lmax > mr.Lmax {
					mr.Lmax = lmax
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for m := 1; m < NumModes; m++ {
		if len(mr.Lmins[m]) != len(mr.Lmins[ModeTT]) {
			return nil, fmt.Errorf("range blocks disagree on cross-spectrum count (%s has %d, TT has %d)",
				ModeNames[m], len(mr.Lmins[m]), len(mr.Lmins[ModeTT]))
		}
	}
	return mr, nil
}

// CovarianceSuffix builds the filename suffix encoding the active modes,
// e.g. "_TTEE" when TT and EE are enabled.
func CovarianceSuffix(tt, ee, te, et bool) string {
	s := "_"
	if tt {
		s += "TT"
	}
	if ee {
		s += "EE"
	}
	if te {
		s += "TE"
	}
	if et {
		s += "ET"
	}
	return s
}

// ReadInverseCovariance reads an inverse covariance stored as a single
// column of n^2 values in row-major order, converting K^-4 to muK^-4.
func ReadInverseCovariance(path string) (*mat.SymDense, error) {
	var m *mat.SymDense
	err := withFITS(path, func(f *fitsio.File) error {
		cols, err := readColumns(f, 1, 1)
		if err != nil {
			return err
		}
		vals := cols[0]
		n := int(math.Round(math.Sqrt(float64(len(vals)))))
		if n*n != len(vals) {
			return fmt.Errorf("covariance %s holds %d values, not a square matrix", path, len(vals))
		}
		data := make([]float64, len(vals))
		for i, v := range vals {
			data[i] = v * covKToMuK
		}
		m = mat.NewSymDense(n, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ReadTemplate reads a foreground template (single binary table of ell, Dl
// in muK^2) zero-filled up to lmax.
func ReadTemplate(path string, lmax int) ([]float64, error) {
	blocks, err := ReadTemplateBlocks(path, lmax, 1)
	if err != nil {
		return nil, err
	}
	return blocks[0], nil
}

// ReadTemplateBlocks reads a template file carrying n spectra in n
// consecutive binary-table HDUs, one per cross-frequency.
func ReadTemplateBlocks(path string, lmax, n int) ([][]float64, error) {
	out := make([][]float64, n)
	err := withFITS(path, func(f *fitsio.File) error {
		for i := 0; i < n; i++ {
			cols, err := readColumns(f, i+1, 2)
			if err != nil {
				return err
			}
			dl := make([]float64, lmax+1)
			for k, ellf := range cols[0] {
				ell := int(ellf)
				if ell < 0 || ell > lmax {
					continue
				}
				dl[ell] = cols[1][k] * templateUnit
			}
			out[i] = dl
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
