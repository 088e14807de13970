package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/planck-hfi/hillipop/internal/monitoring"
)

// RunConfig configures one chain run. Overrides replace the default
// starting values of individual parameters.
type RunConfig struct {
	Steps     int                `json:"steps"`
	BurnIn    int                `json:"burn_in"`
	Seed      uint64             `json:"seed"`
	Overrides map[string]float64 `json:"overrides,omitempty"`
}

// Runner coordinates chain lifecycle: it starts at most one run at a time,
// persists samples in batches and finalises the run record. It is safe for
// concurrent use.
type Runner struct {
	mu      sync.RWMutex
	store   *Store
	target  Target
	specs   []ParamSpec
	batch   int
	current *Run
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRunner creates a Runner. batch controls how many post-burn-in samples
// are buffered before each database write.
func NewRunner(store *Store, target Target, specs []ParamSpec, batch int) *Runner {
	if batch < 1 {
		batch = 100
	}
	return &Runner{store: store, target: target, specs: specs, batch: batch}
}

// StartRun begins a new chain run in the background and returns its ID.
// It fails when a run is already active.
func (r *Runner) StartRun(cfg RunConfig) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return "", fmt.Errorf("run %s is still active", r.current.RunID)
	}
	if cfg.Steps < 1 {
		return "", fmt.Errorf("steps must be positive, got %d", cfg.Steps)
	}
	if cfg.BurnIn < 0 || cfg.BurnIn >= cfg.Steps {
		return "", fmt.Errorf("burn-in %d out of range for %d steps", cfg.BurnIn, cfg.Steps)
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	run := &Run{Status: StatusRunning, ConfigJSON: configJSON}
	if err := r.store.InsertRun(run); err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.current = run
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(ctx, run, cfg)

	monitoring.Logf("[chain] started run %s (%d steps, %d burn-in)", run.RunID, cfg.Steps, cfg.BurnIn)
	return run.RunID, nil
}

func (r *Runner) run(ctx context.Context, run *Run, cfg RunConfig) {
	defer close(r.done)

	sampler := NewSampler(r.target, r.specs, cfg.Seed)
	for name, v := range cfg.Overrides {
		sampler.SetInit(name, v)
	}

	finish := func(status string, steps int, errMsg string) {
		if err := r.store.FinishRun(run.RunID, status, steps, sampler.Accepted(), errMsg); err != nil {
			monitoring.Logf("[chain] failed to finalise run %s: %v", run.RunID, err)
		}
		r.mu.Lock()
		r.current = nil
		r.cancel = nil
		r.mu.Unlock()
		monitoring.Logf("[chain] run %s finished: %s after %d steps (acceptance %.2f)",
			run.RunID, status, steps, sampler.AcceptanceRate())
	}

	if err := sampler.Init(); err != nil {
		finish(StatusFailed, 0, err.Error())
		return
	}

	var pending []Sample
	steps := 0
	err := sampler.Run(ctx, cfg.Steps, func(sample Sample) error {
		steps = sample.Step + 1
		if sample.Step < cfg.BurnIn {
			return nil
		}
		pending = append(pending, sample)
		if len(pending) >= r.batch {
			if err := r.store.InsertSamples(run.RunID, pending); err != nil {
				return err
			}
			pending = pending[:0]
		}
		return nil
	})

	if flushErr := r.store.InsertSamples(run.RunID, pending); flushErr != nil && err == nil {
		err = flushErr
	}

	switch {
	case err == context.Canceled:
		finish(StatusStopped, steps, "")
	case err != nil:
		finish(StatusFailed, steps, err.Error())
	default:
		finish(StatusDone, steps, "")
	}
}

// StopRun cancels the active run, if any.
func (r *Runner) StopRun() {
	r.mu.RLock()
	cancel := r.cancel
	r.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the active run (if any) has finished.
func (r *Runner) Wait() {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Active reports whether a run is in progress.
func (r *Runner) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current != nil
}

// CurrentRunID returns the active run ID, or empty when idle.
func (r *Runner) CurrentRunID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return ""
	}
	return r.current.RunID
}
