package foregrounds

import "math"

const (
	// tCMB is the CMB monopole temperature in kelvin.
	tCMB = 2.7255
	// hPlanck is the Planck constant in J s.
	hPlanck = 6.62607015e-34
	// kBoltz is the Boltzmann constant in J/K.
	kBoltz = 1.380649e-23

	// refFreqGHz is the frequency all emission laws are normalised at.
	refFreqGHz = 143.0
)

// dimensionlessFreq returns x = h nu / k T_cmb for nu in GHz.
func dimensionlessFreq(nuGHz float64) float64 {
	return hPlanck * nuGHz * 1e9 / (kBoltz * tCMB)
}

// tszSpectrum is the thermal SZ spectral function f(x) = x coth(x/2) - 4.
// It is negative below the 217 GHz null and positive above.
func tszSpectrum(nuGHz float64) float64 {
	x := dimensionlessFreq(nuGHz)
	return x*(math.Exp(x)+1)/(math.Exp(x)-1) - 4
}

// antennaToThermo converts antenna temperature units to thermodynamic
// temperature units at the given frequency: g(x) = (e^x - 1)^2 / (x^2 e^x).
func antennaToThermo(nuGHz float64) float64 {
	x := dimensionlessFreq(nuGHz)
	ex := math.Exp(x)
	return (ex - 1) * (ex - 1) / (x * x * ex)
}

// sourceEmissivity is the thermodynamic emission law of a point source
// population with flux spectral index alpha, normalised to the reference
// frequency.
func sourceEmissivity(nuGHz, alpha float64) float64 {
	return math.Pow(nuGHz/refFreqGHz, alpha) * antennaToThermo(nuGHz) / antennaToThermo(refFreqGHz)
}

// tszRatio is the tSZ emission relative to the reference frequency.
func tszRatio(nuGHz float64) float64 {
	return tszSpectrum(nuGHz) / tszSpectrum(refFreqGHz)
}

// cibRatio is the CIB clustered emission relative to the reference
// frequency, a power law in antenna units.
func cibRatio(nuGHz float64) float64 {
	const betaCIB = 2.2
	return sourceEmissivity(nuGHz, betaCIB)
}
