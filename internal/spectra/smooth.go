package spectra

import "math"

// gaussianKernel builds a normalised Gaussian kernel of the given width,
// truncated at four standard deviations.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Round(4 * sigma))
	if radius < 1 {
		radius = 1
	}
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianFilter convolves data with a Gaussian kernel, reflecting the
// signal at both ends.
func gaussianFilter(data []float64, sigma float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}
	k := gaussianKernel(sigma)
	radius := len(k) / 2

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		acc := 0.0
		for j := -radius; j <= radius; j++ {
			idx := i + j
			// reflect about the array edges
			for idx < 0 || idx >= n {
				if idx < 0 {
					idx = -idx - 1
				}
				if idx >= n {
					idx = 2*n - idx - 1
				}
			}
			acc += data[idx] * k[j+radius]
		}
		out[i] = acc
	}
	return out
}

// Smooth applies Gaussian smoothing of width nsm to a spectrum, leaving
// multipoles below lcut untouched. The filter window starts 2*nsm below
// lcut when room allows, so the smoothed region is free of edge effects.
func Smooth(cl []float64, nsm, lcut int) []float64 {
	out := make([]float64, len(cl))
	copy(out, cl)
	if len(cl) == 0 || nsm < 1 {
		return out
	}

	shift := 0
	if lcut >= 2*nsm {
		shift = 2 * nsm
	}
	start := lcut - shift
	if start < 0 {
		start = 0
	}
	if start >= len(cl) || lcut >= len(cl) {
		return out
	}

	smoothed := gaussianFilter(cl[start:], float64(nsm))
	copy(out[lcut:], smoothed[shift:])
	return out
}
