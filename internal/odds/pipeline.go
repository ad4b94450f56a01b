package odds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/units"
)

var ErrGoalTooShort = fmt.Errorf("goal text must be at least %d characters", MinGoalChars)

type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string { return fmt.Sprintf("%s: %v", e.Phase, e.Err) }
func (e *PhaseError) Unwrap() error { return e.Err }

func PhaseNameFromError(err error) string {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Phase
	}
	return "pipeline"
}

type PhaseProgressFn func(phase, message string)

// Orchestrator runs the extraction phases and normalizes their output.
// Extract is total: any phase failure degrades the result instead of
// surfacing an error, so a prediction is always produced.
type Orchestrator struct {
	runner     PhaseRunner
	normalizer *units.Normalizer
}

func NewOrchestrator(runner PhaseRunner, normalizer *units.Normalizer) *Orchestrator {
	if normalizer == nil {
		normalizer = units.NewNormalizer(nil)
	}
	return &Orchestrator{runner: runner, normalizer: normalizer}
}

func (o *Orchestrator) Extract(ctx context.Context, req PredictionRequest) ExtractionResult {
	return o.extractWithProgress(ctx, req, nil)
}

func (o *Orchestrator) ExtractWithProgress(ctx context.Context, req PredictionRequest, progress PhaseProgressFn) ExtractionResult {
	return o.extractWithProgress(ctx, req, progress)
}

func (o *Orchestrator) extractWithProgress(ctx context.Context, req PredictionRequest, progress PhaseProgressFn) ExtractionResult {
	res := ExtractionResult{
		Request:  req,
		Factors:  units.FactorSet{},
		Attempts: map[string]PhaseAttemptMetrics{},
		Metadata: ExtractionMetadata{StartedAt: time.Now(), Mode: ReportModeComplete},
	}
	req.GoalText = strings.TrimSpace(req.GoalText)
	if len(req.GoalText) > MaxGoalChars {
		req.GoalText = req.GoalText[:MaxGoalChars]
		res.Metadata.InputTruncated = true
	}
	req.ContextText = strings.TrimSpace(req.ContextText)
	if len(req.ContextText) > MaxGoalChars {
		req.ContextText = req.ContextText[:MaxGoalChars]
		res.Metadata.InputTruncated = true
	}
	res.Request = req

	emit(progress, "goal", "Goal phase: domain classification...")
	goal, mGoal, err := o.runner.RunGoalPhase(ctx, req)
	res.Attempts["goal"] = mGoal
	if err != nil {
		o.markDegraded(&res, &PhaseError{Phase: "goal", Err: err})
		goal = fallbackGoal(req)
	} else {
		res.Metadata.PhasesExecuted = append(res.Metadata.PhasesExecuted, "goal")
	}
	res.Goal = goal

	emit(progress, "variables", "Variables phase: quantity extraction...")
	vars, mVars, err := o.runner.RunVariablesPhase(ctx, req, goal)
	res.Attempts["variables"] = mVars
	if err != nil {
		o.markDegraded(&res, &PhaseError{Phase: "variables", Err: err})
		res.Metadata.PhasesSkipped = append(res.Metadata.PhasesSkipped, "standardize")
		return o.finalize(res)
	}
	res.Metadata.PhasesExecuted = append(res.Metadata.PhasesExecuted, "variables")
	res.Variables = vars.Variables

	if len(vars.Variables) == 0 {
		res.Metadata.PhasesSkipped = append(res.Metadata.PhasesSkipped, "standardize")
		return o.finalize(res)
	}

	emit(progress, "standardize", "Standardize phase: canonical value rewriting...")
	std, mStd, err := o.runner.RunStandardizePhase(ctx, goal, vars)
	res.Attempts["standardize"] = mStd
	if err != nil {
		// Raw phase-two values still normalize, just less reliably.
		o.markDegraded(&res, &PhaseError{Phase: "standardize", Err: err})
	} else {
		res.Metadata.PhasesExecuted = append(res.Metadata.PhasesExecuted, "standardize")
		res.Variables = std.Variables
	}

	return o.finalize(res)
}

func fallbackGoal(req PredictionRequest) GoalDescriptor {
	return GoalDescriptor{
		Statement:       req.GoalText,
		Domain:          DomainOther,
		Summary:         req.GoalText,
		Competitiveness: 0,
	}
}

func (o *Orchestrator) markDegraded(res *ExtractionResult, err *PhaseError) {
	if res.Metadata.Mode == ReportModeDegraded {
		return
	}
	res.Metadata.Mode = ReportModeDegraded
	res.Metadata.PhaseFailed = err.Phase
	res.Metadata.DegradedReason = err.Error()
}

func (o *Orchestrator) finalize(res ExtractionResult) ExtractionResult {
	res.Factors, res.Drops = o.normalizer.Normalize(res.Variables)
	res.Metadata.CompletedAt = time.Now()
	if res.Metadata.Mode == "" {
		res.Metadata.Mode = ReportModeComplete
	}
	res.Metadata.PhaseAttempts = map[string]int{}
	res.Metadata.PhaseContentRetries = map[string]int{}
	for phase, m := range res.Attempts {
		res.Metadata.PhaseAttempts[phase] = m.Attempts
		res.Metadata.PhaseContentRetries[phase] = m.ContentRetries
		res.Metadata.TotalLLMCalls += m.Attempts
		if m.Attempts > 1 {
			res.Metadata.TotalRetries += (m.Attempts - 1)
		}
	}
	return res
}

func emit(progress PhaseProgressFn, phase, message string) {
	if progress != nil {
		progress(phase, message)
	}
}

// Predictor ties extraction, simulation, and assembly into one call.
type Predictor struct {
	orchestrator  *Orchestrator
	engine        *Engine
	defaultTrials int
}

func NewPredictor(orchestrator *Orchestrator, engine *Engine) *Predictor {
	return &Predictor{orchestrator: orchestrator, engine: engine, defaultTrials: DefaultTrials}
}

// SetDefaultTrials changes the trial count used when a request leaves it
// unset. Out-of-range values are ignored.
func (p *Predictor) SetDefaultTrials(n int) {
	if n >= 1 && n <= MaxTrials {
		p.defaultTrials = n
	}
}

func (p *Predictor) Predict(ctx context.Context, req PredictionRequest) (PredictionResult, error) {
	if len(strings.TrimSpace(req.GoalText)) < MinGoalChars {
		return PredictionResult{}, ErrGoalTooShort
	}
	if req.Trials == 0 {
		req.Trials = p.defaultTrials
	}
	if req.Trials < 1 || req.Trials > MaxTrials {
		return PredictionResult{}, ErrInvalidTrialCount
	}
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.NewString()
	}
	seed := int64(0)
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		s, err := NewSeed()
		if err != nil {
			return PredictionResult{}, err
		}
		seed = s
	}

	extraction := p.orchestrator.Extract(ctx, req)
	sim, err := p.engine.Simulate(SimulationRequest{
		Goal:    extraction.Goal,
		Factors: extraction.Factors,
		Trials:  req.Trials,
		Seed:    seed,
	})
	if err != nil {
		return PredictionResult{}, err
	}
	return Assemble(req, extraction, sim), nil
}
