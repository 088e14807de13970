package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/planck-hfi/hillipop/api"
	"github.com/planck-hfi/hillipop/db"
	"github.com/planck-hfi/hillipop/internal/chain"
	"github.com/planck-hfi/hillipop/internal/config"
	"github.com/planck-hfi/hillipop/internal/likelihood"
	"github.com/planck-hfi/hillipop/internal/version"
)

var (
	configPath    = flag.String("config", "config/hillipop.json", "Likelihood config file")
	listen        = flag.String("listen", ":8080", "Listen address")
	dbPath        = flag.String("db", "hillipop.db", "Chain database path")
	migrationsDir = flag.String("migrations", "migrations", "Migrations directory")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	log.Printf("hillipop %s (%s)", version.Version, version.GitSHA)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lk, err := likelihood.New(cfg)
	if err != nil {
		log.Fatalf("failed to build likelihood: %v", err)
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

	// The chain runner needs fixed theory spectra; without them only the
	// /api/likelihood endpoint is live.
	var runner *chain.Runner
	if cfg.TheoryFile != nil && *cfg.TheoryFile != "" {
		theory, err := likelihood.LoadTheory(*cfg.TheoryFile)
		if err != nil {
			log.Fatalf("failed to load theory spectra: %v", err)
		}
		target := func(params map[string]float64) (float64, error) {
			return lk.Compute(params, theory)
		}
		specs := chain.DefaultSpecs(lk.Parameters())
		for i := range specs {
			specs[i].Scale *= cfg.GetProposalScale()
		}
		runner = chain.NewRunner(store, target, specs, cfg.GetSampleBatch())
	} else {
		log.Print("no theory_file configured; chain runner disabled")
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode
		// or over Tailscale)
		database.AttachAdminRoutes(mux)

		server := api.NewServer(lk, store, runner)
		server.AttachChartRoutes(mux)
		apiMux := server.ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))
		mux.Handle("/", apiMux)

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		httpServer := &http.Server{
			Addr:    *listen,
			Handler: h,
		}

		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()
		log.Printf("listening on %s", *listen)

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Stop any active chain when the service goes down so the run record
	// is finalised rather than left dangling.
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if runner != nil {
			runner.StopRun()
			runner.Wait()
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
