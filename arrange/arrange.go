// Package arrange wires the full best-effort pipeline: key placement,
// register folding, playability enforcement, breath planning, difficulty
// scoring, and the salvage cascade, returning an annotated arrangement for
// one phrase on one instrument.
package arrange

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-arrange/constraints"
	"github.com/cwbudde/algo-arrange/difficulty"
	"github.com/cwbudde/algo-arrange/explain"
	"github.com/cwbudde/algo-arrange/folding"
	"github.com/cwbudde/algo-arrange/instrument"
	"github.com/cwbudde/algo-arrange/phrase"
	"github.com/cwbudde/algo-arrange/salvage"
)

// FeatureFlags gates optional pipeline behavior.
type FeatureFlags struct {
	// DPSlack enables the dynamic-programming register folder. When off,
	// out-of-range notes are clamped note by note instead.
	DPSlack bool `json:"dp_slack"`
}

// Request describes one arrangement job. StarredIDs lists alternative
// instruments the starred-best selector may pick instead of InstrumentID.
type Request struct {
	Span         phrase.Span
	InstrumentID string
	StarredIDs   []string
	BPM          float64
	KeyOffset    int
	Flags        FeatureFlags
	Budgets      salvage.Budgets
}

// Arrangement is the annotated outcome of one pipeline run.
type Arrangement struct {
	ID           string
	SpanID       string
	InstrumentID string
	KeyOffset    int
	Span         phrase.Span
	Score        difficulty.Score
	Summary      difficulty.Summary
	Events       []explain.Event
	Salvage      *salvage.Result
	Recommended  bool
}

// Engine runs arrangement pipelines against a shared instrument registry.
type Engine struct {
	Registry *instrument.Registry
	Cascade  salvage.Cascade
	Folding  folding.Settings
	Breath   constraints.BreathSettings
}

// NewEngine returns an engine with default cascade, folding, and breath
// settings.
func NewEngine(registry *instrument.Registry) *Engine {
	return &Engine{
		Registry: registry,
		Cascade:  salvage.NewCascade(),
		Folding:  folding.DefaultSettings(),
		Breath:   constraints.DefaultBreathSettings(),
	}
}

// Arrange runs the pipeline for one request. Instrument lookup failures are
// returned as *instrument.NotRegisteredError; every other input, including
// an empty span, yields a best-effort arrangement rather than an error.
func (e *Engine) Arrange(req Request) (Arrangement, error) {
	rng, err := e.Registry.Lookup(req.InstrumentID)
	if err != nil {
		return Arrangement{}, fmt.Errorf("arrange %q: %w", req.Span.ID(), err)
	}
	span := req.Span.Transpose(req.KeyOffset)
	return e.finish(span, req, rng)
}

// finish runs every stage after key placement. span must already sit in the
// requested key.
func (e *Engine) finish(span phrase.Span, req Request, rng instrument.Range) (Arrangement, error) {
	scorer := difficulty.NewScorer(req.BPM)
	tempo := constraints.NewTempoContext(req.BPM, span.PulsesPerQuarter())
	diffFn := func(s phrase.Span) float64 {
		return scorer.Score(s, rng).Value
	}

	var events []explain.Event

	// Register folding before note-level enforcement, so the speed and
	// breath passes see pitches the instrument can reach.
	if req.Flags.DPSlack {
		folded := folding.FoldWithSlack(span, rng, e.Folding)
		span = folded.Span
	} else if clamped, changed := folding.ClampToRange(span, rng); changed {
		span = clamped
	}

	speed := constraints.EnforceSubholeSpeed(span, tempo, rng, diffFn)
	span = speed.Span
	events = append(events, speed.Events...)

	span, breathEvents := constraints.ApplyBreathPlanning(span, tempo, e.Breath, diffFn)
	events = append(events, breathEvents...)

	var salvageResult *salvage.Result
	recommended := true
	if diffFn(span) > e.Cascade.Cap {
		budgets := req.Budgets
		if budgets == (salvage.Budgets{}) {
			budgets = salvage.DefaultBudgets()
		}
		result := e.Cascade.Run(span, rng, budgets, diffFn)
		span = result.Span
		events = append(events, result.Events...)
		recommended = result.Recommended
		salvageResult = &result
	}

	// Final guard: nothing past this point may leave the playable range.
	span, clampEvent := folding.EnforceRange(span, rng, diffFn)
	if clampEvent != nil {
		events = append(events, *clampEvent)
	}

	summary := scorer.Summarize(span, rng)
	score := scorer.ScoreSummary(summary, rng)

	return Arrangement{
		ID:           uuid.NewString(),
		SpanID:       req.Span.ID(),
		InstrumentID: req.InstrumentID,
		KeyOffset:    req.KeyOffset,
		Span:         span,
		Score:        score,
		Summary:      summary,
		Events:       events,
		Salvage:      salvageResult,
		Recommended:  recommended,
	}, nil
}
