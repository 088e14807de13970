// Package chain runs Metropolis-Hastings chains over the likelihood's
// nuisance parameters and persists the samples.
package chain

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Target evaluates -2 ln L for a parameter vector.
type Target func(params map[string]float64) (float64, error)

// Prior contributes -2 ln pi(v) for a single parameter. The bool result is
// false where the prior carries no mass, which rejects the proposal
// outright.
type Prior interface {
	Penalty(v float64) (float64, bool)
}

// GaussianPrior is a Gaussian prior with the given mean and width.
type GaussianPrior struct {
	Mean  float64
	Sigma float64
}

// Penalty returns ((v-mean)/sigma)^2.
func (p GaussianPrior) Penalty(v float64) (float64, bool) {
	d := (v - p.Mean) / p.Sigma
	return d * d, true
}

// FlatPositive rejects negative values and is otherwise uninformative.
type FlatPositive struct{}

// Penalty implements Prior.
func (FlatPositive) Penalty(v float64) (float64, bool) {
	if v < 0 {
		return 0, false
	}
	return 0, true
}

// Unbounded is a fully uninformative prior.
type Unbounded struct{}

// Penalty implements Prior.
func (Unbounded) Penalty(float64) (float64, bool) { return 0, true }

// ParamSpec describes one sampled parameter: its starting point, proposal
// step width and prior. A zero Scale freezes the parameter.
type ParamSpec struct {
	Name  string
	Init  float64
	Scale float64
	Prior Prior
}

// DefaultSpecs builds sampling specs for the likelihood's parameter names.
// Calibration parameters get tight Gaussian priors; foreground amplitudes
// are flat positive except the tSZxCIB cross term, which may change sign.
func DefaultSpecs(names []string) []ParamSpec {
	specs := make([]ParamSpec, 0, len(names))
	for _, name := range names {
		var s ParamSpec
		switch {
		case name == "Aplanck":
			s = ParamSpec{Name: name, Init: 1, Scale: 0.001, Prior: GaussianPrior{Mean: 1, Sigma: 0.0025}}
		case strings.HasPrefix(name, "c"):
			s = ParamSpec{Name: name, Init: 0, Scale: 0.001, Prior: GaussianPrior{Mean: 0, Sigma: 0.002}}
		case name == "Aradio":
			s = ParamSpec{Name: name, Init: 60, Scale: 5, Prior: FlatPositive{}}
		case name == "Adusty":
			s = ParamSpec{Name: name, Init: 5, Scale: 1, Prior: FlatPositive{}}
		case name == "Aszxcib":
			s = ParamSpec{Name: name, Init: 0, Scale: 0.5, Prior: Unbounded{}}
		default:
			s = ParamSpec{Name: name, Init: 1, Scale: 0.2, Prior: FlatPositive{}}
		}
		specs = append(specs, s)
	}
	return specs
}

// Sample is one chain step.
type Sample struct {
	Step    int                `json:"step"`
	Neg2LnL float64            `json:"neg2lnl"`
	Params  map[string]float64 `json:"params"`
}

// Sampler is a Metropolis-Hastings sampler with independent Gaussian
// proposals per parameter. It is not safe for concurrent use.
type Sampler struct {
	target Target
	specs  []ParamSpec

	normal  distuv.Normal
	uniform distuv.Uniform

	cur    map[string]float64
	curVal float64

	proposed int
	accepted int
}

// NewSampler builds a sampler at the specs' starting point. The seed fixes
// the proposal stream, so runs are reproducible.
func NewSampler(target Target, specs []ParamSpec, seed uint64) *Sampler {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Sampler{
		target:  target,
		specs:   specs,
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		uniform: distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
}

// posterior evaluates -2 ln of the unnormalised posterior. The bool is
// false where a prior carries no mass.
func (s *Sampler) posterior(params map[string]float64) (float64, bool, error) {
	penalty := 0.0
	for _, spec := range s.specs {
		p, ok := spec.Prior.Penalty(params[spec.Name])
		if !ok {
			return 0, false, nil
		}
		penalty += p
	}
	v, err := s.target(params)
	if err != nil {
		return 0, false, err
	}
	return v + penalty, true, nil
}

// Init evaluates the starting point. It must be called once before Step.
func (s *Sampler) Init() error {
	s.cur = make(map[string]float64, len(s.specs))
	for _, spec := range s.specs {
		s.cur[spec.Name] = spec.Init
	}
	v, ok, err := s.posterior(s.cur)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("starting point has zero prior mass")
	}
	s.curVal = v
	return nil
}

// SetInit overrides the starting value of one parameter. Call before Init.
func (s *Sampler) SetInit(name string, v float64) {
	for i := range s.specs {
		if s.specs[i].Name == name {
			s.specs[i].Init = v
		}
	}
}

// Step advances the chain by one Metropolis-Hastings step and reports
// whether the proposal was accepted.
func (s *Sampler) Step(step int) (Sample, bool, error) {
	prop := make(map[string]float64, len(s.specs))
	for _, spec := range s.specs {
		prop[spec.Name] = s.cur[spec.Name] + spec.Scale*s.normal.Rand()
	}
	s.proposed++

	val, ok, err := s.posterior(prop)
	if err != nil {
		return Sample{}, false, err
	}

	accept := false
	if ok {
		delta := val - s.curVal
		accept = delta <= 0 || s.uniform.Rand() < math.Exp(-delta/2)
	}
	if accept {
		s.cur = prop
		s.curVal = val
		s.accepted++
	}

	params := make(map[string]float64, len(s.cur))
	for k, v := range s.cur {
		params[k] = v
	}
	return Sample{Step: step, Neg2LnL: s.curVal, Params: params}, accept, nil
}

// Run advances the chain for the given number of steps, invoking fn after
// each step. It stops early when the context is cancelled.
func (s *Sampler) Run(ctx context.Context, steps int, fn func(Sample) error) error {
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sample, _, err := s.Step(i)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(sample); err != nil {
				return err
			}
		}
	}
	return nil
}

// AcceptanceRate returns the fraction of accepted proposals so far.
func (s *Sampler) AcceptanceRate() float64 {
	if s.proposed == 0 {
		return 0
	}
	return float64(s.accepted) / float64(s.proposed)
}

// Accepted returns the number of accepted proposals.
func (s *Sampler) Accepted() int { return s.accepted }
