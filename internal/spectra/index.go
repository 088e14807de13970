package spectra

import "sort"

// Mode indexes for the spectral blocks carried by the likelihood. BB is
// present in the Xpol files but never enters the likelihood vector.
const (
	ModeTT = iota
	ModeEE
	ModeTE
	ModeET
	NumModes
)

// ModeNames gives the canonical block order used everywhere: data vectors,
// covariance suffixes and range files.
var ModeNames = [NumModes]string{"TT", "EE", "TE", "ET"}

// MapPairs returns the unordered map pairs (m1, m2) with m1 < m2, in the
// order the cross-spectrum files are laid out on disk.
func MapPairs(nmap int) [][2]int {
	var pairs [][2]int
	for m1 := 0; m1 < nmap; m1++ {
		for m2 := m1 + 1; m2 < nmap; m2++ {
			pairs = append(pairs, [2]int{m1, m2})
		}
	}
	return pairs
}

// UniqueFreqs returns the sorted distinct frequencies (GHz) of the maps.
func UniqueFreqs(freqs []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, f := range freqs {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Ints(out)
	return out
}

// FreqPairs returns the unordered frequency pairs (f1 <= f2) as indexes into
// UniqueFreqs, defining the cross-frequency order of the data vector.
func FreqPairs(nfreq int) [][2]int {
	var pairs [][2]int
	for f1 := 0; f1 < nfreq; f1++ {
		for f2 := f1; f2 < nfreq; f2++ {
			pairs = append(pairs, [2]int{f1, f2})
		}
	}
	return pairs
}

// XSpecToXFreq maps every cross-spectrum index to its cross-frequency index.
// freqs holds the frequency (GHz) of each map.
func XSpecToXFreq(freqs []int) []int {
	uniq := UniqueFreqs(freqs)
	fidx := make(map[int]int, len(uniq))
	for i, f := range uniq {
		fidx[f] = i
	}

	fpairs := FreqPairs(len(uniq))
	xfreq := make(map[[2]int]int, len(fpairs))
	for i, p := range fpairs {
		xfreq[p] = i
	}

	var out []int
	for _, pair := range MapPairs(len(freqs)) {
		f1 := fidx[freqs[pair[0]]]
		f2 := fidx[freqs[pair[1]]]
		if f1 > f2 {
			f1, f2 = f2, f1
		}
		out = append(out, xfreq[[2]int{f1, f2}])
	}
	return out
}
