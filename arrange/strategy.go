package arrange

import (
	"context"
	"fmt"
	"sort"

	"github.com/cwbudde/algo-arrange/difficulty"
	"github.com/cwbudde/algo-arrange/gp"
	"github.com/cwbudde/algo-arrange/softkey"
)

// Strategy names accepted by Run.
const (
	StrategyCurrent     = "current"
	StrategyStarredBest = "starred-best"
	StrategyGP          = "gp"
)

// StrategyResult is the outcome of one strategy run. Considered holds the
// full comparison list ranked easiest first; Arrangement is its head.
type StrategyResult struct {
	Strategy    string
	Arrangement Arrangement
	Keys        []softkey.KeyResult
	Considered  []Arrangement
}

// GPStrategyResult extends StrategyResult with the evolutionary session log.
// Fallback carries the cascade-based result whenever the session stopped
// early or produced nothing usable; when the primary arrangement itself came
// from the fallback, Hint says why.
type GPStrategyResult struct {
	StrategyResult
	Session  gp.SessionLog
	Fallback *StrategyResult
	Hint     string
}

// Run dispatches by strategy name. The gp strategy uses a default session
// config; call RunGP directly to control it.
func (e *Engine) Run(ctx context.Context, strategy string, req Request) (StrategyResult, error) {
	switch strategy {
	case StrategyCurrent, "":
		return e.RunCurrent(req)
	case StrategyStarredBest:
		return e.RunStarredBest(req)
	case StrategyGP:
		result, err := e.RunGP(ctx, req, gp.DefaultConfig(0))
		return result.StrategyResult, err
	default:
		return StrategyResult{}, fmt.Errorf("arrange: unknown strategy %q", strategy)
	}
}

// RunCurrent arranges on the requested instrument with no search.
func (e *Engine) RunCurrent(req Request) (StrategyResult, error) {
	arrangement, err := e.Arrange(req)
	if err != nil {
		return StrategyResult{}, err
	}
	return StrategyResult{
		Strategy:    StrategyCurrent,
		Arrangement: arrangement,
		Considered:  []Arrangement{arrangement},
	}, nil
}

// RunStarredBest arranges the phrase on the current instrument and on every
// starred one, then keeps the instrument with the least hard or very-hard
// playing time, then least medium, then closest to the comfort register.
// Considered lists every candidate in that order. Without starred ids the
// selection degenerates to the current instrument. Keys carries an advisory
// transposition sweep for the winning instrument.
func (e *Engine) RunStarredBest(req Request) (StrategyResult, error) {
	if len(req.StarredIDs) == 0 {
		result, err := e.RunCurrent(req)
		if err != nil {
			return StrategyResult{}, err
		}
		result.Strategy = StrategyStarredBest
		return result, nil
	}

	considered := make([]Arrangement, 0, len(req.StarredIDs)+1)
	for _, id := range candidateInstruments(req.InstrumentID, req.StarredIDs) {
		candidate := req
		candidate.InstrumentID = id
		arrangement, err := e.Arrange(candidate)
		if err != nil {
			return StrategyResult{}, err
		}
		considered = append(considered, arrangement)
	}
	sort.SliceStable(considered, func(i, j int) bool {
		return easierArrangement(considered[i], considered[j])
	})
	best := considered[0]

	rng, err := e.Registry.Lookup(best.InstrumentID)
	if err != nil {
		return StrategyResult{}, err
	}
	scorer := difficulty.NewScorer(req.BPM)
	keys := softkey.Search(req.Span.Transpose(req.KeyOffset), rng, scorer, softkey.Options{})

	return StrategyResult{
		Strategy:    StrategyStarredBest,
		Arrangement: best,
		Keys:        keys,
		Considered:  considered,
	}, nil
}

// candidateInstruments puts the current instrument first and appends each
// starred id once, preserving declaration order.
func candidateInstruments(current string, starred []string) []string {
	ids := []string{current}
	for _, id := range starred {
		seen := false
		for _, known := range ids {
			if known == id {
				seen = true
				break
			}
		}
		if !seen {
			ids = append(ids, id)
		}
	}
	return ids
}

// easierArrangement ranks by hard and very-hard playing time, then medium,
// then tessitura distance, all ascending.
func easierArrangement(a, b Arrangement) bool {
	if ha, hb := a.Summary.HardAndVeryHard(), b.Summary.HardAndVeryHard(); ha != hb {
		return ha < hb
	}
	if a.Summary.Medium != b.Summary.Medium {
		return a.Summary.Medium < b.Summary.Medium
	}
	return a.Summary.TessituraDistance < b.Summary.TessituraDistance
}

// RunGP evolves edit programs for the phrase and finishes the winning span
// through the normal pipeline. The session always runs against the current
// instrument; selection across starred instruments stays with the cascade
// path. Whenever the session stops early or yields nothing usable, the
// starred-best result is attached as Fallback so callers can check it
// independently; if the evolved span is unusable or plays worse, the
// fallback also becomes the primary arrangement and Hint says why.
func (e *Engine) RunGP(ctx context.Context, req Request, cfg gp.Config) (GPStrategyResult, error) {
	base, err := e.RunStarredBest(req)
	if err != nil {
		return GPStrategyResult{}, err
	}
	demote := func(hint string) GPStrategyResult {
		primary := base
		primary.Strategy = StrategyGP
		return GPStrategyResult{StrategyResult: primary, Fallback: &base, Hint: hint}
	}

	rng, err := e.Registry.Lookup(req.InstrumentID)
	if err != nil {
		return GPStrategyResult{}, err
	}
	scorer := difficulty.NewScorer(req.BPM)
	source := req.Span.Transpose(req.KeyOffset)
	eval := gp.NewEvaluator(source, rng, scorer, gp.DefaultFitnessWeights())

	session, err := gp.NewSession(eval, cfg)
	if err != nil {
		return demote(fmt.Sprintf("session config rejected: %v", err)), nil
	}
	run, err := session.Run(ctx)
	if err != nil {
		return demote(fmt.Sprintf("session failed: %v", err)), nil
	}
	if len(run.Best.Program) == 0 {
		result := demote("no program beat the unedited phrase")
		result.Session = run.Log
		return result, nil
	}

	arrangement, err := e.finish(run.Best.Span, req, rng)
	if err != nil {
		result := demote(fmt.Sprintf("winning program unusable: %v", err))
		result.Session = run.Log
		return result, nil
	}
	// The evolved span must not play worse than the cascade-based result.
	if arrangement.Score.Value > base.Arrangement.Score.Value {
		result := demote("evolved span scored worse than baseline")
		result.Session = run.Log
		return result, nil
	}
	result := GPStrategyResult{
		StrategyResult: StrategyResult{
			Strategy:    StrategyGP,
			Arrangement: arrangement,
			Considered:  []Arrangement{arrangement},
		},
		Session: run.Log,
	}
	if run.Log.Reason != gp.ReasonCompleted {
		result.Fallback = &base
		result.Hint = "stopped early: " + run.Log.Reason
	}
	return result, nil
}
