package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/planck-hfi/hillipop/internal/chain"
	"github.com/planck-hfi/hillipop/internal/likelihood"
)

// WriteSpectraChart renders per-cross-frequency spectrum blocks as a page
// of ECharts line charts, one chart per block.
func WriteSpectraChart(w io.Writer, title string, blocks []likelihood.SpectrumBlock) error {
	page := components.NewPage()
	page.SetPageTitle(title)

	for _, block := range blocks {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "1100px", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{
				Title:    fmt.Sprintf("%s %dx%d GHz", block.Mode, block.Freq1, block.Freq2),
				Subtitle: fmt.Sprintf("l=%d..%d, Dl in muK^2", block.Lmin, block.Lmax),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "multipole"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "Dl"}),
		)

		xs := make([]int, len(block.Dl))
		data := make([]opts.LineData, len(block.Dl))
		for i, v := range block.Dl {
			xs[i] = block.Lmin + i
			data[i] = opts.LineData{Value: v}
		}
		line.SetXAxis(xs)
		line.AddSeries(fmt.Sprintf("%s %dx%d", block.Mode, block.Freq1, block.Freq2), data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))
		page.AddCharts(line)
	}

	return page.Render(w)
}

// WriteTraceChart renders the -2lnL trace of a chain run.
func WriteTraceChart(w io.Writer, runID string, samples []chain.Sample) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Chain trace",
			Subtitle: fmt.Sprintf("run %s, %d samples", runID, len(samples)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "step"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "-2lnL"}),
	)

	xs := make([]int, len(samples))
	data := make([]opts.LineData, len(samples))
	for i, s := range samples {
		xs[i] = s.Step
		data[i] = opts.LineData{Value: s.Neg2LnL}
	}
	line.SetXAxis(xs)
	line.AddSeries("-2lnL", data)

	return line.Render(w)
}
