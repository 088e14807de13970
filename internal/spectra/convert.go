package spectra

import "math"

// DlFactor returns l(l+1)/2pi * 1e12, the factor taking a Boltzmann-code
// Cl in K^2 to Dl in muK^2 at multipole l.
func DlFactor(l int) float64 {
	return float64(l) * float64(l+1) / (2 * math.Pi) * kSqToMuKSq
}

// ClToDl converts a Cl spectrum in K^2 to Dl in muK^2, up to lmax.
// The input must cover at least lmax+1 multipoles.
func ClToDl(cl []float64, lmax int) []float64 {
	dl := make([]float64, lmax+1)
	for l := 0; l <= lmax; l++ {
		dl[l] = cl[l] * DlFactor(l)
	}
	return dl
}
