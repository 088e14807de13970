// Command make-binfile writes a multipole-ranges FITS file covering a set
// of cross-spectra, one HDU per mode. Each mode's lmin:lmax is either
// repeated once per cross-spectrum, or split into uniform delta-ell bins
// when -delta is set.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/planck-hfi/hillipop/internal/spectra"
)

var (
	out    = flag.String("out", "binning.fits", "Output FITS file")
	nxspec = flag.Int("nxspec", 15, "Number of cross-spectra the file covers")
	ttFlag = flag.String("tt", "30:2500", "TT multipole range as lmin:lmax")
	eeFlag = flag.String("ee", "30:2000", "EE multipole range as lmin:lmax")
	bbFlag = flag.String("bb", "30:2000", "BB multipole range as lmin:lmax")
	teFlag = flag.String("te", "30:2000", "TE multipole range as lmin:lmax")
	etFlag = flag.String("et", "30:2000", "ET multipole range as lmin:lmax")
	delta  = flag.Int("delta", 0, "Bin width; when positive each mode's range is split into delta-ell bins and -nxspec is ignored")
)

func parseRange(s string) (spectra.Range, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return spectra.Range{}, fmt.Errorf("range %q is not of the form lmin:lmax", s)
	}
	lmin, err := strconv.Atoi(parts[0])
	if err != nil {
		return spectra.Range{}, fmt.Errorf("bad lmin in %q: %w", s, err)
	}
	lmax, err := strconv.Atoi(parts[1])
	if err != nil {
		return spectra.Range{}, fmt.Errorf("bad lmax in %q: %w", s, err)
	}
	if lmin < 0 || lmax < lmin {
		return spectra.Range{}, fmt.Errorf("range %q: need 0 <= lmin <= lmax", s)
	}
	return spectra.Range{Lmin: lmin, Lmax: lmax}, nil
}

func repeat(r spectra.Range, n int) []spectra.Range {
	out := make([]spectra.Range, n)
	for i := range out {
		out[i] = r
	}
	return out
}

// deltaRanges splits r into uniform bins of width deltaEll, one output
// range per bin. A trailing partial bin is dropped.
func deltaRanges(r spectra.Range, deltaEll int) ([]spectra.Range, error) {
	b, err := spectra.NewBinsFromDelta(r.Lmin, r.Lmax, deltaEll)
	if err != nil {
		return nil, err
	}
	out := make([]spectra.Range, b.NumBins())
	for i := range out {
		out[i] = spectra.Range{Lmin: b.Lmins[i], Lmax: b.Lmaxs[i]}
	}
	return out, nil
}

func main() {
	flag.Parse()

	if *delta <= 0 && *nxspec <= 0 {
		log.Fatal("-nxspec must be positive")
	}

	ranges := make(map[string][]spectra.Range, 5)
	for _, m := range []struct {
		name string
		flag *string
	}{
		{"TT", ttFlag}, {"EE", eeFlag}, {"BB", bbFlag}, {"TE", teFlag}, {"ET", etFlag},
	} {
		r, err := parseRange(*m.flag)
		if err != nil {
			log.Fatalf("%s: %v", m.name, err)
		}
		if *delta > 0 {
			ranges[m.name], err = deltaRanges(r, *delta)
			if err != nil {
				log.Fatalf("%s: %v", m.name, err)
			}
		} else {
			ranges[m.name] = repeat(r, *nxspec)
		}
	}

	// the reader requires the same row count in every mode it keeps
	for _, name := range []string{"EE", "TE", "ET"} {
		if len(ranges[name]) != len(ranges["TT"]) {
			log.Fatalf("%s yields %d bins but TT yields %d; widen or align the ranges",
				name, len(ranges[name]), len(ranges["TT"]))
		}
	}

	err := spectra.WriteBinFile(*out, ranges["TT"], ranges["EE"], ranges["BB"], ranges["TE"], ranges["ET"])
	if err != nil {
		log.Fatalf("failed to write %s: %v", *out, err)
	}
	log.Printf("wrote %s: %d rows per mode", *out, len(ranges["TT"]))
}
