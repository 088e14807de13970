// Command spectra-report renders the per-frequency data spectra of a
// likelihood configuration as a standalone HTML chart page.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/planck-hfi/hillipop/internal/config"
	"github.com/planck-hfi/hillipop/internal/likelihood"
	"github.com/planck-hfi/hillipop/internal/report"
)

var (
	configPath = flag.String("config", "config/hillipop.json", "Likelihood config file")
	out        = flag.String("out", "spectra.html", "Output HTML file")
	title      = flag.String("title", "Cross-frequency spectra", "Page title")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	lk, err := likelihood.New(cfg)
	if err != nil {
		log.Fatalf("failed to build likelihood: %v", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *out, err)
	}
	defer f.Close()

	blocks := lk.DataSpectra()
	if err := report.WriteSpectraChart(f, *title, blocks); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}
	log.Printf("wrote %s: %d spectrum blocks", *out, len(blocks))
}
