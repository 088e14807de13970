package spectra

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
)

// Range is one (lmin, lmax) entry of a bin file.
type Range struct {
	Lmin int
	Lmax int
}

type binRow struct {
	LMIN float64
	LMAX float64
}

type spectrumRow struct {
	ELL   float64
	DL    float64
	SIGMA float64
}

type matrixRow struct {
	VALUE float64
}

func createFITS(path string, fn func(f *fitsio.File) error) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("create FITS %s: %w", path, err)
	}
	defer f.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return fmt.Errorf("primary HDU: %w", err)
	}
	if err := f.Write(phdu); err != nil {
		return fmt.Errorf("write primary HDU: %w", err)
	}

	return fn(f)
}

func writeTable(f *fitsio.File, name string, cols []fitsio.Column, rows []interface{}) error {
	tbl, err := fitsio.NewTable(name, cols, fitsio.BINARY_TBL)
	if err != nil {
		return fmt.Errorf("table %s: %w", name, err)
	}
	defer tbl.Close()

	for _, row := range rows {
		if err := tbl.Write(row); err != nil {
			return fmt.Errorf("table %s: write row: %w", name, err)
		}
	}
	if err := f.Write(tbl); err != nil {
		return fmt.Errorf("table %s: %w", name, err)
	}
	return nil
}

// WriteBinFile writes a multipole-ranges bin file with the five blocks
// TT, EE, BB, TE, ET, one (LMIN, LMAX) row per cross-spectrum.
func WriteBinFile(path string, tt, ee, bb, te, et []Range) error {
	names := []string{"TT", "EE", "BB", "TE", "ET"}
	blocks := [][]Range{tt, ee, bb, te, et}
	cols := []fitsio.Column{
		{Name: "LMIN", Format: "D"},
		{Name: "LMAX", Format: "D"},
	}
	return createFITS(path, func(f *fitsio.File) error {
		for i, block := range blocks {
			rows := make([]interface{}, len(block))
			for k, r := range block {
				rows[k] = &binRow{LMIN: float64(r.Lmin), LMAX: float64(r.Lmax)}
			}
			if err := writeTable(f, names[i], cols, rows); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCrossSpectrum writes one cross-spectrum file in the Xpol layout
// (TT, EE, BB, TE HDUs, values in K^2). The BB block is written as zeros
// and the ET block is implied by TE. Used to produce simulated inputs and
// test fixtures.
func WriteCrossSpectrum(path string, cs *CrossSpectrum) error {
	names := []string{"TT", "EE", "BB", "TE"}
	blocks := [][]int{{ModeTT}, {ModeEE}, {}, {ModeTE}}
	cols := []fitsio.Column{
		{Name: "ELL", Format: "D"},
		{Name: "DL", Format: "D"},
		{Name: "SIGMA", Format: "D"},
	}
	return createFITS(path, func(f *fitsio.File) error {
		for i, name := range names {
			n := len(cs.Dl[ModeTT])
			rows := make([]interface{}, 0, n)
			for ell := 0; ell < n; ell++ {
				row := &spectrumRow{ELL: float64(ell)}
				if len(blocks[i]) > 0 {
					m := blocks[i][0]
					row.DL = cs.Dl[m][ell] / kSqToMuKSq
					row.SIGMA = cs.Sigma[m][ell] / kSqToMuKSq
				}
				rows = append(rows, row)
			}
			if err := writeTable(f, name, cols, rows); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteInverseCovariance writes an inverse covariance as a single column of
// n^2 row-major values, converting muK^-4 back to the K^-4 file units.
func WriteInverseCovariance(path string, n int, data []float64) error {
	if n*n != len(data) {
		return fmt.Errorf("covariance data length %d does not match dimension %d", len(data), n)
	}
	cols := []fitsio.Column{{Name: "VALUE", Format: "D"}}
	return createFITS(path, func(f *fitsio.File) error {
		rows := make([]interface{}, len(data))
		for i, v := range data {
			rows[i] = &matrixRow{VALUE: v / covKToMuK}
		}
		return writeTable(f, "INVCOV", cols, rows)
	})
}

// WriteTemplate writes a foreground template spectrum (ell, Dl in muK^2).
func WriteTemplate(path string, dl []float64) error {
	return WriteTemplateBlocks(path, [][]float64{dl})
}

type templateRow struct {
	ELL float64
	DL  float64
}

// WriteTemplateBlocks writes one HDU per template spectrum, in order.
func WriteTemplateBlocks(path string, blocks [][]float64) error {
	cols := []fitsio.Column{
		{Name: "ELL", Format: "D"},
		{Name: "DL", Format: "D"},
	}
	return createFITS(path, func(f *fitsio.File) error {
		for i, dl := range blocks {
			rows := make([]interface{}, len(dl))
			for ell, v := range dl {
				rows[ell] = &templateRow{ELL: float64(ell), DL: v}
			}
			if err := writeTable(f, fmt.Sprintf("TMPL%d", i+1), cols, rows); err != nil {
				return err
			}
		}
		return nil
	})
}
