package odds

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/units"
)

type fakePhaseRunner struct {
	goal    GoalDescriptor
	goalErr error
	vars    VariablesOutput
	varsErr error
	std     StandardizeOutput
	stdErr  error

	goalCalls int
	varsCalls int
	stdCalls  int
}

func (f *fakePhaseRunner) RunGoalPhase(_ context.Context, _ PredictionRequest) (GoalDescriptor, PhaseAttemptMetrics, error) {
	f.goalCalls++
	return f.goal, PhaseAttemptMetrics{Attempts: 1}, f.goalErr
}

func (f *fakePhaseRunner) RunVariablesPhase(_ context.Context, _ PredictionRequest, _ GoalDescriptor) (VariablesOutput, PhaseAttemptMetrics, error) {
	f.varsCalls++
	return f.vars, PhaseAttemptMetrics{Attempts: 1}, f.varsErr
}

func (f *fakePhaseRunner) RunStandardizePhase(_ context.Context, _ GoalDescriptor, _ VariablesOutput) (StandardizeOutput, PhaseAttemptMetrics, error) {
	f.stdCalls++
	return f.std, PhaseAttemptMetrics{Attempts: 1}, f.stdErr
}

func happyRunner() *fakePhaseRunner {
	return &fakePhaseRunner{
		goal: baseGoal(),
		vars: VariablesOutput{Variables: []units.Variable{
			{Name: "timeline", Value: "in about six months or so", Category: units.CategoryDuration},
			{Name: "target_company", Value: "open ai", Category: units.CategoryEntity},
		}},
		std: StandardizeOutput{Variables: []units.Variable{
			{Name: "timeline", Value: "6 months", Category: units.CategoryDuration},
			{Name: "target_company", Value: "OpenAI", Category: units.CategoryEntity},
		}},
	}
}

func TestExtractHappyPath(t *testing.T) {
	runner := happyRunner()
	o := NewOrchestrator(runner, nil)
	res := o.Extract(context.Background(), baseRequest())

	if res.Metadata.Mode != ReportModeComplete {
		t.Fatalf("mode = %q, want COMPLETE", res.Metadata.Mode)
	}
	if got := strings.Join(res.Metadata.PhasesExecuted, ","); got != "goal,variables,standardize" {
		t.Fatalf("phases executed = %q", got)
	}
	if res.Metadata.TotalLLMCalls != 3 {
		t.Fatalf("total llm calls = %d, want 3", res.Metadata.TotalLLMCalls)
	}

	tl, ok := res.Factors[units.FactorTimeline]
	if !ok {
		t.Fatal("missing timeline factor")
	}
	if math.Abs(tl.Value-6*units.SecondsPerMonth) > 1e-6 {
		t.Fatalf("timeline = %v, want %v (standardized value should win)", tl.Value, 6*units.SecondsPerMonth)
	}
	ent, ok := res.Factors[units.FactorTargetEntity]
	if !ok {
		t.Fatal("missing target_entity factor")
	}
	if ent.EntityName != "OpenAI" {
		t.Fatalf("entity = %q, want OpenAI", ent.EntityName)
	}
}

func TestExtractGoalFailureFallsBackAndContinues(t *testing.T) {
	runner := happyRunner()
	runner.goalErr = errors.New("transport down")
	o := NewOrchestrator(runner, nil)
	res := o.Extract(context.Background(), baseRequest())

	if res.Metadata.Mode != ReportModeDegraded {
		t.Fatalf("mode = %q, want DEGRADED", res.Metadata.Mode)
	}
	if res.Metadata.PhaseFailed != "goal" {
		t.Fatalf("phase failed = %q, want goal", res.Metadata.PhaseFailed)
	}
	if !strings.Contains(res.Metadata.DegradedReason, "goal") {
		t.Fatalf("degraded reason %q should name the phase", res.Metadata.DegradedReason)
	}
	if res.Goal.Domain != DomainOther {
		t.Fatalf("fallback goal domain = %q, want other", res.Goal.Domain)
	}
	if runner.varsCalls != 1 {
		t.Fatal("variables phase should still run after goal failure")
	}
	if len(res.Factors) == 0 {
		t.Fatal("factors should still be extracted after goal failure")
	}
}

func TestExtractVariablesFailureSkipsStandardize(t *testing.T) {
	runner := happyRunner()
	runner.varsErr = errors.New("boom")
	o := NewOrchestrator(runner, nil)
	res := o.Extract(context.Background(), baseRequest())

	if res.Metadata.Mode != ReportModeDegraded {
		t.Fatalf("mode = %q, want DEGRADED", res.Metadata.Mode)
	}
	if res.Metadata.PhaseFailed != "variables" {
		t.Fatalf("phase failed = %q, want variables", res.Metadata.PhaseFailed)
	}
	if runner.stdCalls != 0 {
		t.Fatal("standardize should be skipped when variables failed")
	}
	if got := strings.Join(res.Metadata.PhasesSkipped, ","); got != "standardize" {
		t.Fatalf("phases skipped = %q", got)
	}
	if len(res.Factors) != 0 {
		t.Fatalf("expected empty factor set, got %v", res.Factors)
	}
}

func TestExtractStandardizeFailureUsesRawValues(t *testing.T) {
	runner := happyRunner()
	runner.vars = VariablesOutput{Variables: []units.Variable{
		{Name: "timeline", Value: "6 months", Category: units.CategoryDuration},
	}}
	runner.stdErr = errors.New("boom")
	o := NewOrchestrator(runner, nil)
	res := o.Extract(context.Background(), baseRequest())

	if res.Metadata.Mode != ReportModeDegraded {
		t.Fatalf("mode = %q, want DEGRADED", res.Metadata.Mode)
	}
	if res.Metadata.PhaseFailed != "standardize" {
		t.Fatalf("phase failed = %q, want standardize", res.Metadata.PhaseFailed)
	}
	tl, ok := res.Factors[units.FactorTimeline]
	if !ok {
		t.Fatal("raw variables should still normalize")
	}
	if math.Abs(tl.Value-6*units.SecondsPerMonth) > 1e-6 {
		t.Fatalf("timeline = %v, want %v", tl.Value, 6*units.SecondsPerMonth)
	}
}

func TestExtractNoVariablesSkipsStandardize(t *testing.T) {
	runner := happyRunner()
	runner.vars = VariablesOutput{}
	o := NewOrchestrator(runner, nil)
	res := o.Extract(context.Background(), baseRequest())

	if res.Metadata.Mode != ReportModeComplete {
		t.Fatalf("goal without quantities is still a complete run, got %q", res.Metadata.Mode)
	}
	if runner.stdCalls != 0 {
		t.Fatal("standardize should be skipped with nothing to standardize")
	}
	if len(res.Factors) != 0 {
		t.Fatalf("expected empty factor set, got %v", res.Factors)
	}
}

func TestExtractTruncatesLongInput(t *testing.T) {
	runner := happyRunner()
	o := NewOrchestrator(runner, nil)
	req := baseRequest()
	req.GoalText = strings.Repeat("a", MaxGoalChars+100)
	req.ContextText = strings.Repeat("b", MaxGoalChars+100)
	res := o.Extract(context.Background(), req)
	if !res.Metadata.InputTruncated {
		t.Fatal("expected input truncation flag")
	}
	if len(res.Request.GoalText) != MaxGoalChars {
		t.Fatalf("truncated goal length = %d, want %d", len(res.Request.GoalText), MaxGoalChars)
	}
	if len(res.Request.ContextText) != MaxGoalChars {
		t.Fatalf("truncated context length = %d, want %d", len(res.Request.ContextText), MaxGoalChars)
	}
}

func TestPredictRejectsInvalidRequests(t *testing.T) {
	p := NewPredictor(NewOrchestrator(happyRunner(), nil), NewEngine())

	if _, err := p.Predict(context.Background(), PredictionRequest{GoalText: "hi"}); err == nil {
		t.Fatal("expected error for short goal text")
	}
	if _, err := p.Predict(context.Background(), PredictionRequest{GoalText: "run a marathon next year", Trials: -5}); err == nil {
		t.Fatal("expected error for negative trials")
	}
	if _, err := p.Predict(context.Background(), PredictionRequest{GoalText: "run a marathon next year", Trials: MaxTrials + 1}); !errors.Is(err, ErrInvalidTrialCount) {
		t.Fatalf("expected ErrInvalidTrialCount, got %v", err)
	}
}

func TestPredictDeterministicWithSeed(t *testing.T) {
	seed := int64(42)
	req := baseRequest()
	req.Seed = &seed
	req.Trials = 2000

	run := func() PredictionResult {
		p := NewPredictor(NewOrchestrator(happyRunner(), nil), NewEngine())
		res, err := p.Predict(context.Background(), req)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		return res
	}

	a, b := run(), run()
	if a.ProbabilityProjected != b.ProbabilityProjected {
		t.Fatalf("projected differs: %v vs %v", a.ProbabilityProjected, b.ProbabilityProjected)
	}
	if a.Interval != b.Interval {
		t.Fatalf("interval differs: %+v vs %+v", a.Interval, b.Interval)
	}
	if len(a.TopFactors) != len(b.TopFactors) {
		t.Fatal("top factor count differs")
	}
	for i := range a.TopFactors {
		if a.TopFactors[i] != b.TopFactors[i] {
			t.Fatalf("top factor %d differs: %+v vs %+v", i, a.TopFactors[i], b.TopFactors[i])
		}
	}
	if a.Diagnostics.Seed != seed {
		t.Fatalf("diagnostics seed = %d, want %d", a.Diagnostics.Seed, seed)
	}
}

func TestPredictFillsRequestID(t *testing.T) {
	p := NewPredictor(NewOrchestrator(happyRunner(), nil), NewEngine())
	res, err := p.Predict(context.Background(), PredictionRequest{GoalText: "run a marathon within a year", Trials: 500})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if strings.TrimSpace(res.RequestID) == "" {
		t.Fatal("request id should be generated when absent")
	}
}
