// Package ledger persists user approvals of arrangement proposals and scores
// new proposals against that history.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Proposal is one arrangement offered to the user.
type Proposal struct {
	ID               string   `json:"id" msgpack:"id"`
	SpanID           string   `json:"span_id" msgpack:"span_id"`
	InstrumentID     string   `json:"instrument_id" msgpack:"instrument_id"`
	KeyOffset        int      `json:"key_offset" msgpack:"key_offset"`
	AppliedSteps     []string `json:"applied_steps" msgpack:"applied_steps"`
	DifficultyBefore float64  `json:"difficulty_before" msgpack:"difficulty_before"`
	DifficultyAfter  float64  `json:"difficulty_after" msgpack:"difficulty_after"`
}

// DifficultyDelta is before minus after, positive when the proposal helped.
func (p Proposal) DifficultyDelta() float64 {
	return p.DifficultyBefore - p.DifficultyAfter
}

// ApprovalRecord is one accepted proposal with its approval context.
type ApprovalRecord struct {
	ID         string            `json:"id" msgpack:"id"`
	Proposal   Proposal          `json:"proposal" msgpack:"proposal"`
	ApprovedAt time.Time         `json:"approved_at" msgpack:"approved_at"`
	Metadata   map[string]string `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
}

// Logger appends approvals to a store.
type Logger struct {
	store Store
}

// NewLogger wraps a store.
func NewLogger(store Store) *Logger {
	return &Logger{store: store}
}

// LogApproval stamps and persists one approval. A zero approvedAt means now.
func (l *Logger) LogApproval(ctx context.Context, proposal Proposal, metadata map[string]string, approvedAt time.Time) (ApprovalRecord, error) {
	if approvedAt.IsZero() {
		approvedAt = time.Now().UTC()
	}
	var meta map[string]string
	if len(metadata) > 0 {
		meta = make(map[string]string, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}
	record := ApprovalRecord{
		ID:         uuid.NewString(),
		Proposal:   proposal,
		ApprovedAt: approvedAt,
		Metadata:   meta,
	}
	if err := l.store.Save(ctx, record); err != nil {
		return ApprovalRecord{}, err
	}
	return record, nil
}

// EvaluationReport compares one proposal against the approval history.
type EvaluationReport struct {
	ApprovalCount      int      `json:"approval_count"`
	StepOverlap        float64  `json:"step_overlap"`
	DifficultyDeltaGap float64  `json:"difficulty_delta_gap"`
	MatchedSteps       []string `json:"matched_steps"`
	MissingSteps       []string `json:"missing_steps"`
}

// Evaluator scores proposals against a fixed snapshot of approvals.
type Evaluator struct {
	count        int
	stepCounts   map[string]int
	averageDelta float64
}

// NewEvaluator indexes the given approval history.
func NewEvaluator(records []ApprovalRecord) *Evaluator {
	eval := &Evaluator{
		count:      len(records),
		stepCounts: make(map[string]int),
	}
	sum := 0.0
	for _, record := range records {
		for _, step := range record.Proposal.AppliedSteps {
			eval.stepCounts[step]++
		}
		sum += record.Proposal.DifficultyDelta()
	}
	if eval.count > 0 {
		eval.averageDelta = sum / float64(eval.count)
	}
	return eval
}

// Evaluate reports how familiar the proposal's edits are. StepOverlap is the
// share of its steps seen in any approval; DifficultyDeltaGap is its delta
// minus the historical average.
func (e *Evaluator) Evaluate(proposal Proposal) EvaluationReport {
	report := EvaluationReport{ApprovalCount: e.count}
	for _, step := range proposal.AppliedSteps {
		if e.stepCounts[step] > 0 {
			report.MatchedSteps = append(report.MatchedSteps, step)
		} else {
			report.MissingSteps = append(report.MissingSteps, step)
		}
	}
	if total := len(proposal.AppliedSteps); total > 0 {
		report.StepOverlap = float64(len(report.MatchedSteps)) / float64(total)
	}
	report.DifficultyDeltaGap = proposal.DifficultyDelta() - e.averageDelta
	return report
}
