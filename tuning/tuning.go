// Package tuning calibrates the difficulty model's weights against scored
// reference phrases, typically derived from the approval ledger.
package tuning

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-arrange/difficulty"
	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/phrase"
)

// Sample is one reference phrase with the difficulty a reviewer assigned it.
type Sample struct {
	Span   phrase.Span
	Range  instrument.Range
	BPM    float64
	Target float64
}

type weightDef struct {
	name string
	min  float64
	max  float64
	get  func(difficulty.Weights) float64
	set  func(*difficulty.Weights, float64)
}

var weightDefs = []weightDef{
	{"leap", 0, 2, func(w difficulty.Weights) float64 { return w.Leap },
		func(w *difficulty.Weights, v float64) { w.Leap = v }},
	{"fast-switch", 0, 2, func(w difficulty.Weights) float64 { return w.FastSwitch },
		func(w *difficulty.Weights, v float64) { w.FastSwitch = v }},
	{"subhole", 0, 2, func(w difficulty.Weights) float64 { return w.Subhole },
		func(w *difficulty.Weights, v float64) { w.Subhole = v }},
	{"tessitura", 0, 1, func(w difficulty.Weights) float64 { return w.Tessitura },
		func(w *difficulty.Weights, v float64) { w.Tessitura = v }},
	{"breath", 0, 1, func(w difficulty.Weights) float64 { return w.Breath },
		func(w *difficulty.Weights, v float64) { w.Breath = v }},
	{"grace-bonus", 0, 0.5, func(w difficulty.Weights) float64 { return w.GraceBonus },
		func(w *difficulty.Weights, v float64) { w.GraceBonus = v }},
}

// fromNormalized maps mayfly's [0, 1] position onto concrete weights.
func fromNormalized(pos []float64) difficulty.Weights {
	weights := difficulty.DefaultWeights()
	for i, def := range weightDefs {
		if i >= len(pos) {
			break
		}
		v := pos[i]
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		def.set(&weights, def.min+v*(def.max-def.min))
	}
	return weights
}

// Config controls one calibration run.
type Config struct {
	Variant    string
	Population int
	Iterations int
	Seed       int64
}

// DefaultConfig returns a run sized for small approval histories.
func DefaultConfig(seed int64) Config {
	return Config{
		Variant:    "desma",
		Population: 20,
		Iterations: 60,
		Seed:       seed,
	}
}

// Result is the calibration outcome.
type Result struct {
	Weights difficulty.Weights
	Error   float64
	Evals   int
	Elapsed time.Duration
}

// rmse scores candidate weights over all samples.
func rmse(weights difficulty.Weights, samples []Sample) float64 {
	sum := 0.0
	for _, sample := range samples {
		scorer := difficulty.NewScorer(sample.BPM)
		scorer.Weights = weights
		diff := scorer.Score(sample.Span, sample.Range).Value - sample.Target
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Calibrate searches for weights minimizing the root-mean-square error
// against the samples. The default weights are evaluated first, so the
// result is never worse than the shipped model.
func Calibrate(samples []Sample, cfg Config) (Result, error) {
	if len(samples) == 0 {
		return Result{}, errors.New("tuning: no samples")
	}
	start := time.Now()

	best := difficulty.DefaultWeights()
	bestError := rmse(best, samples)
	evals := 1

	mayflyConfig, err := newMayflyConfig(cfg.Variant, cfg.Population, len(weightDefs), cfg.Iterations)
	if err != nil {
		return Result{}, err
	}
	mayflyConfig.Rand = rand.New(rand.NewSource(cfg.Seed))
	mayflyConfig.ObjectiveFunc = func(pos []float64) float64 {
		evals++
		weights := fromNormalized(pos)
		errValue := rmse(weights, samples)
		if errValue < bestError {
			best = weights
			bestError = errValue
		}
		return errValue
	}

	if _, err := runMayfly(mayflyConfig); err != nil {
		return Result{}, fmt.Errorf("tuning: %w", err)
	}

	return Result{
		Weights: best,
		Error:   bestError,
		Evals:   evals,
		Elapsed: time.Since(start),
	}, nil
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma", "":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	if pop < 4 {
		pop = 4
	}
	if iters < 1 {
		iters = 1
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = maxInt(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
