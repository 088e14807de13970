package report

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/planck-hfi/hillipop/internal/chain"
	"github.com/planck-hfi/hillipop/internal/likelihood"
)

// SaveSpectrumPlot writes one spectrum block as a PNG line plot.
func SaveSpectrumPlot(block likelihood.SpectrumBlock, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %dx%d GHz", block.Mode, block.Freq1, block.Freq2)
	p.X.Label.Text = "multipole"
	p.Y.Label.Text = "Dl [muK^2]"

	pts := make(plotter.XYs, len(block.Dl))
	for i, v := range block.Dl {
		pts[i].X = float64(block.Lmin + i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("spectrum plot: %w", err)
	}
	p.Add(line)

	return p.Save(9*vg.Inch, 4*vg.Inch, path)
}

// SaveTracePlot writes the -2lnL trace of a chain as a PNG.
func SaveTracePlot(samples []chain.Sample, path string) error {
	p := plot.New()
	p.Title.Text = "Chain trace"
	p.X.Label.Text = "step"
	p.Y.Label.Text = "-2lnL"

	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i].X = float64(s.Step)
		pts[i].Y = s.Neg2LnL
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("trace plot: %w", err)
	}
	p.Add(line)

	return p.Save(9*vg.Inch, 4*vg.Inch, path)
}

// histGrid adapts a 2D histogram to the plotter grid interface.
type histGrid struct {
	counts []float64 // row-major, rows are y
	nx, ny int
	xmin   float64
	ymin   float64
	dx     float64
	dy     float64
}

func (g *histGrid) Dims() (int, int)   { return g.nx, g.ny }
func (g *histGrid) Z(c, r int) float64 { return g.counts[r*g.nx+c] }
func (g *histGrid) X(c int) float64    { return g.xmin + (float64(c)+0.5)*g.dx }
func (g *histGrid) Y(r int) float64    { return g.ymin + (float64(r)+0.5)*g.dy }

// SaveContourPlot writes a 2D posterior plot for two parameters: a sample
// histogram with the 68% and 95% mass contours overlaid.
func SaveContourPlot(xName, yName string, samples []chain.Sample, bins int, path string) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to plot")
	}
	if bins < 2 {
		bins = 30
	}

	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		x, ok := s.Params[xName]
		if !ok {
			return fmt.Errorf("samples carry no parameter %q", xName)
		}
		y, ok := s.Params[yName]
		if !ok {
			return fmt.Errorf("samples carry no parameter %q", yName)
		}
		xs[i] = x
		ys[i] = y
	}

	xmin, xmax := minMax(xs)
	ymin, ymax := minMax(ys)
	if xmax == xmin {
		xmax = xmin + 1
	}
	if ymax == ymin {
		ymax = ymin + 1
	}

	grid := &histGrid{
		counts: make([]float64, bins*bins),
		nx:     bins, ny: bins,
		xmin: xmin, ymin: ymin,
		dx: (xmax - xmin) / float64(bins),
		dy: (ymax - ymin) / float64(bins),
	}
	for i := range xs {
		cx := int((xs[i] - xmin) / grid.dx)
		cy := int((ys[i] - ymin) / grid.dy)
		if cx >= bins {
			cx = bins - 1
		}
		if cy >= bins {
			cy = bins - 1
		}
		grid.counts[cy*bins+cx]++
	}

	levels := ContourLevels(grid.counts, []float64{0.68, 0.95})
	sort.Float64s(levels)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s", yName, xName)
	p.X.Label.Text = xName
	p.Y.Label.Text = yName

	contour := plotter.NewContour(grid, levels, palette.Heat(len(levels)+1, 1))
	p.Add(contour)

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

func minMax(vals []float64) (float64, float64) {
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
