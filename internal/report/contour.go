// Package report renders likelihood products: ECharts HTML pages for
// browser debugging and gonum/plot PNGs for offline runs, plus the
// contour-level tools used by the posterior plots.
package report

import "sort"

// ConvertToStdev maps a grid of likelihood values to cumulative fractions
// of the total mass, largest values first. Thresholding the result at 0.68
// or 0.95 yields the usual confidence contours.
func ConvertToStdev(grid []float64) []float64 {
	n := len(grid)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return grid[order[a]] > grid[order[b]] })

	total := 0.0
	for _, v := range grid {
		total += v
	}

	out := make([]float64, n)
	cum := 0.0
	for _, idx := range order {
		cum += grid[idx]
		if total > 0 {
			out[idx] = cum / total
		}
	}
	return out
}

// ContourLevels extracts the histogram values enclosing the given mass
// fractions, for drawing contours on a 2D histogram. Levels must be in
// (0, 1].
func ContourLevels(hist []float64, levels []float64) []float64 {
	h := make([]float64, len(hist))
	copy(h, hist)
	sort.Float64s(h)

	// cumulative mass from the largest bin down
	cum := make([]float64, len(h))
	total := 0.0
	for i := len(h) - 1; i >= 0; i-- {
		total += h[i]
		cum[len(h)-1-i] = total
	}
	if total > 0 {
		for i := range cum {
			cum[i] /= total
		}
	}

	out := make([]float64, len(levels))
	for k, lvl := range levels {
		idx := sort.SearchFloat64s(cum, lvl)
		pos := len(h) - idx
		if pos > len(h)-1 {
			pos = len(h) - 1
		}
		if pos < 0 {
			pos = 0
		}
		out[k] = h[pos]
	}
	return out
}
