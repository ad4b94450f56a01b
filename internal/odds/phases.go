package odds

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/units"
)

type PhaseRunner interface {
	RunGoalPhase(ctx context.Context, req PredictionRequest) (GoalDescriptor, PhaseAttemptMetrics, error)
	RunVariablesPhase(ctx context.Context, req PredictionRequest, goal GoalDescriptor) (VariablesOutput, PhaseAttemptMetrics, error)
	RunStandardizePhase(ctx context.Context, goal GoalDescriptor, vars VariablesOutput) (StandardizeOutput, PhaseAttemptMetrics, error)
}

type LLMPhaseRunner struct {
	exec *PhaseExecutor
}

func NewLLMPhaseRunner(exec *PhaseExecutor) *LLMPhaseRunner {
	return &LLMPhaseRunner{exec: exec}
}

const goalPromptContext = `Classify the goal into exactly one domain and rate how competitive
achieving it is for a typical person.

career    Employment, promotions, job changes, professional standing.
finance   Income targets, savings, investments, debt, net worth.
fitness   Body composition, strength, endurance, athletic achievement.
dating    Relationships, marriage, meeting a partner.
academic  Admissions, degrees, grades, examinations, research output.
business  Starting or growing a company, revenue, customers, funding.
travel    Trips, relocation, visiting places.
other     Anything that fits none of the above.

competitiveness is a 0.0-1.0 rating of how contested the outcome is:
0.95+ for outcomes with extreme selection (professional sports, astronaut,
top-5 admissions), 0.9+ for elite-but-attainable (FAANG offer, unicorn
acquisition), lower as selection pressure falls. Use 0.0 when the outcome
depends only on the person's own follow-through.

If the goal names a specific company, school, or organization the person
is targeting, return it in target_entity exactly as written.`

const goalSchemaPrompt = `Required JSON schema:
{
  "statement":"string (the goal restated in one sentence)",
  "domain":"career|finance|fitness|dating|academic|business|travel|other",
  "summary":"string (what success concretely looks like)",
  "target_entity":"string|null",
  "competitiveness":"float 0.0-1.0"
}`

const variablesPromptContext = `Extract every measurable quantity from the goal statement and the
context. Only extract what is written or directly implied. Do not invent
values. Personal circumstances (age, experience, education, available
hours) usually appear in the context rather than the goal itself.

Each variable has a category:
duration    Time spans and committed effort ("6 months", "2 hours/day").
money       Amounts and income rates ("$150k", "$8,000/month").
education   Degrees, schools, credentials, described as written.
experience  Years in a field or seniority descriptors.
entity      A specific company, school, or organization named as target.
numeric     Plain counts, including the person's age.
ratio       Percentages, GPAs, rates, scores.

Keep the person's own wording in value. If the same quantity appears
twice, emit both occurrences in reading order.`

const variablesSchemaPrompt = `Required JSON schema:
{
  "variables":[
    {"name":"string (snake_case, e.g. time_commitment, timeline, target_income, education, experience, age, target_company, gpa)",
     "value":"string (verbatim or minimally trimmed)",
     "category":"duration|money|education|experience|entity|numeric|ratio"}
  ]
}`

const standardizePromptContext = `Rewrite each variable value into canonical measurable form while keeping
name and category unchanged. Canonical forms:

duration    "<number> <unit>" or "<number> hours/day for <number> <unit>"
            (units: minutes, hours, days, weeks, months, years)
money       "$<number>" with an optional rate suffix "/month" or "/year";
            expand shorthand ("150k" becomes "$150,000")
education   the descriptor as written, spelling out abbreviations you are
            sure of
experience  "<number> years" when a number is stated or clearly implied,
            otherwise the descriptor as written
entity      the organization name alone, without filler words
numeric     "<number>"
ratio       "<number>%" or "<number>/<number>"

Drop nothing. If a value is already canonical, return it unchanged.`

const standardizeSchemaPrompt = `Required JSON schema:
{
  "variables":[
    {"name":"string (unchanged)",
     "value":"string (canonical form)",
     "category":"duration|money|education|experience|entity|numeric|ratio"}
  ]
}`

func (r *LLMPhaseRunner) RunGoalPhase(ctx context.Context, req PredictionRequest) (GoalDescriptor, PhaseAttemptMetrics, error) {
	out := GoalDescriptor{}
	prompt := fmt.Sprintf(
		"Goal phase: domain classification.\n%s\n\n%s\n\n%s",
		goalPromptContext,
		goalSchemaPrompt,
		requestInput(req),
	)
	m, err := r.exec.Run(ctx, "goal", prompt, &out, func() error { return validateGoal(out) })
	return out, m, err
}

func (r *LLMPhaseRunner) RunVariablesPhase(ctx context.Context, req PredictionRequest, goal GoalDescriptor) (VariablesOutput, PhaseAttemptMetrics, error) {
	out := VariablesOutput{}
	prompt := fmt.Sprintf(
		"Variables phase: quantity extraction.\n%s\n\n%s\n\nGoal phase output:\n%s\n\n%s",
		variablesPromptContext,
		variablesSchemaPrompt,
		mustJSON(goal),
		requestInput(req),
	)
	m, err := r.exec.Run(ctx, "variables", prompt, &out, func() error { return validateVariables(out) })
	return out, m, err
}

func requestInput(req PredictionRequest) string {
	if req.ContextText == "" {
		return "Goal statement:\n" + req.GoalText
	}
	return "Goal statement:\n" + req.GoalText + "\n\nContext about the person:\n" + req.ContextText
}

func (r *LLMPhaseRunner) RunStandardizePhase(ctx context.Context, goal GoalDescriptor, vars VariablesOutput) (StandardizeOutput, PhaseAttemptMetrics, error) {
	out := StandardizeOutput{}
	prompt := fmt.Sprintf(
		"Standardize phase: canonical value rewriting.\n%s\n\n%s\n\nGoal phase output:\n%s\n\nExtracted variables:\n%s",
		standardizePromptContext,
		standardizeSchemaPrompt,
		mustJSON(goal),
		mustJSON(vars),
	)
	m, err := r.exec.Run(ctx, "standardize", prompt, &out, func() error { return validateStandardize(vars, out) })
	return out, m, err
}

func validateGoal(g GoalDescriptor) error {
	if strings.TrimSpace(g.Statement) == "" {
		return fmt.Errorf("statement required")
	}
	if strings.TrimSpace(g.Summary) == "" {
		return fmt.Errorf("summary required")
	}
	if !validDomain(g.Domain) {
		return fmt.Errorf("invalid domain %q", g.Domain)
	}
	if g.Competitiveness < 0 || g.Competitiveness > 1 {
		return fmt.Errorf("competitiveness must be in [0,1]")
	}
	return nil
}

func validateVariables(v VariablesOutput) error {
	for i, vv := range v.Variables {
		if strings.TrimSpace(vv.Name) == "" {
			return fmt.Errorf("variables[%d]: name required", i)
		}
		if strings.TrimSpace(vv.Value) == "" {
			return fmt.Errorf("variables[%d]: value required", i)
		}
		if !validCategory(vv.Category) {
			return fmt.Errorf("variables[%d]: invalid category %q", i, vv.Category)
		}
	}
	return nil
}

func validateStandardize(in VariablesOutput, out StandardizeOutput) error {
	if len(out.Variables) != len(in.Variables) {
		return fmt.Errorf("expected %d variables, got %d", len(in.Variables), len(out.Variables))
	}
	for i, vv := range out.Variables {
		if strings.TrimSpace(vv.Name) == "" {
			return fmt.Errorf("variables[%d]: name required", i)
		}
		if strings.TrimSpace(vv.Value) == "" {
			return fmt.Errorf("variables[%d]: value required", i)
		}
		if !validCategory(vv.Category) {
			return fmt.Errorf("variables[%d]: invalid category %q", i, vv.Category)
		}
		if vv.Name != in.Variables[i].Name {
			return fmt.Errorf("variables[%d]: name changed from %q to %q", i, in.Variables[i].Name, vv.Name)
		}
	}
	return nil
}

func validDomain(d Domain) bool {
	switch d {
	case DomainCareer, DomainFinance, DomainFitness, DomainDating, DomainAcademic, DomainBusiness, DomainTravel, DomainOther:
		return true
	default:
		return false
	}
}

func validCategory(c units.Category) bool {
	switch c {
	case units.CategoryDuration, units.CategoryMoney, units.CategoryEducation, units.CategoryExperience, units.CategoryEntity, units.CategoryNumeric, units.CategoryRatio:
		return true
	default:
		return false
	}
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
