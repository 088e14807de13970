// Command chain runs a Metropolis-Hastings chain over the likelihood's
// nuisance parameters offline, persists the samples and writes trace and
// posterior plots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/planck-hfi/hillipop/db"
	"github.com/planck-hfi/hillipop/internal/chain"
	"github.com/planck-hfi/hillipop/internal/config"
	"github.com/planck-hfi/hillipop/internal/likelihood"
	"github.com/planck-hfi/hillipop/internal/report"
)

var (
	configPath    = flag.String("config", "config/hillipop.json", "Likelihood config file")
	dbPath        = flag.String("db", "hillipop.db", "Chain database path")
	migrationsDir = flag.String("migrations", "migrations", "Migrations directory")
	outDir        = flag.String("out", "plots", "Output directory for plots")
	steps         = flag.Int("steps", 0, "Chain steps (0 = config value)")
	burnIn        = flag.Int("burnin", -1, "Burn-in steps (-1 = config value)")
	seed          = flag.Uint64("seed", 0, "Chain seed (0 = derive from clock)")
	contourX      = flag.String("x", "Aplanck", "X parameter for the posterior contour plot")
	contourY      = flag.String("y", "c0", "Y parameter for the posterior contour plot")
	contourBins   = flag.Int("bins", 30, "Histogram bins per axis for the contour plot")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.TheoryFile == nil || *cfg.TheoryFile == "" {
		log.Fatal("config must set theory_file to run a chain")
	}

	lk, err := likelihood.New(cfg)
	if err != nil {
		log.Fatalf("failed to build likelihood: %v", err)
	}
	theory, err := likelihood.LoadTheory(*cfg.TheoryFile)
	if err != nil {
		log.Fatalf("failed to load theory spectra: %v", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	store := chain.NewStore(database.DB)

	nSteps := *steps
	if nSteps <= 0 {
		nSteps = cfg.GetChainSteps()
	}
	nBurn := *burnIn
	if nBurn < 0 {
		nBurn = cfg.GetChainBurnIn()
	}
	chainSeed := *seed
	if chainSeed == 0 {
		if s := cfg.GetChainSeed(); s != 0 {
			chainSeed = uint64(s)
		} else {
			chainSeed = uint64(time.Now().UnixNano())
		}
	}

	target := func(params map[string]float64) (float64, error) {
		return lk.Compute(params, theory)
	}
	specs := chain.DefaultSpecs(lk.Parameters())
	for i := range specs {
		specs[i].Scale *= cfg.GetProposalScale()
	}

	run := &chain.Run{Status: chain.StatusRunning}
	if err := store.InsertRun(run); err != nil {
		log.Fatalf("failed to record run: %v", err)
	}
	log.Printf("run %s: %d steps, %d burn-in, seed %d", run.RunID, nSteps, nBurn, chainSeed)

	sampler := chain.NewSampler(target, specs, chainSeed)
	if err := sampler.Init(); err != nil {
		log.Fatalf("failed to initialise sampler: %v", err)
	}

	var kept []chain.Sample
	var pending []chain.Sample
	batch := cfg.GetSampleBatch()
	err = sampler.Run(context.Background(), nSteps, func(s chain.Sample) error {
		if s.Step < nBurn {
			return nil
		}
		kept = append(kept, s)
		pending = append(pending, s)
		if len(pending) >= batch {
			if err := store.InsertSamples(run.RunID, pending); err != nil {
				return err
			}
			pending = pending[:0]
		}
		return nil
	})
	if err == nil {
		err = store.InsertSamples(run.RunID, pending)
	}
	if err != nil {
		store.FinishRun(run.RunID, chain.StatusFailed, nSteps, sampler.Accepted(), err.Error())
		log.Fatalf("chain failed: %v", err)
	}
	if err := store.FinishRun(run.RunID, chain.StatusDone, nSteps, sampler.Accepted(), ""); err != nil {
		log.Fatalf("failed to finalise run: %v", err)
	}
	log.Printf("run %s done: acceptance %.3f, %d samples kept", run.RunID, sampler.AcceptanceRate(), len(kept))

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}
	tracePath := filepath.Join(*outDir, fmt.Sprintf("trace-%s.png", run.RunID))
	if err := report.SaveTracePlot(kept, tracePath); err != nil {
		log.Fatalf("failed to write trace plot: %v", err)
	}
	contourPath := filepath.Join(*outDir, fmt.Sprintf("contour-%s-%s-%s.png", *contourX, *contourY, run.RunID))
	if err := report.SaveContourPlot(*contourX, *contourY, kept, *contourBins, contourPath); err != nil {
		log.Fatalf("failed to write contour plot: %v", err)
	}
	log.Printf("plots written to %s and %s", tracePath, contourPath)
}
