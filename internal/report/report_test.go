package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/planck-hfi/hillipop/internal/chain"
	"github.com/planck-hfi/hillipop/internal/likelihood"
)

func testBlocks() []likelihood.SpectrumBlock {
	return []likelihood.SpectrumBlock{
		{Mode: "TT", Freq1: 100, Freq2: 143, Lmin: 30, Lmax: 34, Dl: []float64{1, 2, 3, 4, 5}},
		{Mode: "EE", Freq1: 143, Freq2: 143, Lmin: 30, Lmax: 34, Dl: []float64{5, 4, 3, 2, 1}},
	}
}

func testSamples() []chain.Sample {
	var samples []chain.Sample
	for i := 0; i < 50; i++ {
		samples = append(samples, chain.Sample{
			Step:    i,
			Neg2LnL: 40 + float64(i%5),
			Params: map[string]float64{
				"Aplanck": 1 + float64(i%10)/1000,
				"c0":      float64(i%7) / 1000,
			},
		})
	}
	return samples
}

func TestWriteSpectraChart(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSpectraChart(&buf, "Spectra", testBlocks()); err != nil {
		t.Fatalf("WriteSpectraChart: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "TT 100x143 GHz") {
		t.Error("rendered page missing the TT chart title")
	}
	if !strings.Contains(html, "EE 143x143 GHz") {
		t.Error("rendered page missing the EE chart title")
	}
}

func TestWriteTraceChart(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTraceChart(&buf, "run-1", testSamples()); err != nil {
		t.Fatalf("WriteTraceChart: %v", err)
	}
	if !strings.Contains(buf.String(), "Chain trace") {
		t.Error("rendered page missing the trace title")
	}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read plot: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Errorf("%s is not a PNG file", path)
	}
}

func TestSaveSpectrumPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrum.png")
	if err := SaveSpectrumPlot(testBlocks()[0], path); err != nil {
		t.Fatalf("SaveSpectrumPlot: %v", err)
	}
	assertPNG(t, path)
}

func TestSaveTracePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.png")
	if err := SaveTracePlot(testSamples(), path); err != nil {
		t.Fatalf("SaveTracePlot: %v", err)
	}
	assertPNG(t, path)
}

func TestSaveContourPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contour.png")
	if err := SaveContourPlot("Aplanck", "c0", testSamples(), 10, path); err != nil {
		t.Fatalf("SaveContourPlot: %v", err)
	}
	assertPNG(t, path)
}

func TestSaveContourPlotErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contour.png")
	if err := SaveContourPlot("Aplanck", "c0", nil, 10, path); err == nil {
		t.Error("expected error for empty sample list")
	}
	if err := SaveContourPlot("nope", "c0", testSamples(), 10, path); err == nil {
		t.Error("expected error for unknown parameter")
	}
}
