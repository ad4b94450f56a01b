package odds

import (
	"time"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/units"
)

const Disclaimer = "This is an automated probability estimate built from a language-model reading of the goal and " +
	"population-level base rates. It is not advice and individual outcomes vary."

const (
	CapabilityOddsPipeline = "odds-pipeline"
	MaxGoalChars           = 8000
	MinGoalChars           = 5
)

type Domain string

const (
	DomainCareer   Domain = "career"
	DomainFinance  Domain = "finance"
	DomainFitness  Domain = "fitness"
	DomainDating   Domain = "dating"
	DomainAcademic Domain = "academic"
	DomainBusiness Domain = "business"
	DomainTravel   Domain = "travel"
	DomainOther    Domain = "other"
)

type ReportMode string

const (
	ReportModeComplete ReportMode = "COMPLETE"
	ReportModeDegraded ReportMode = "DEGRADED"
)

type OutcomeCategory string

const (
	OutcomeHighlyLikely OutcomeCategory = "highly_likely"
	OutcomeLikely       OutcomeCategory = "likely"
	OutcomePossible     OutcomeCategory = "possible"
	OutcomeChallenging  OutcomeCategory = "challenging"
	OutcomeUnlikely     OutcomeCategory = "unlikely"
)

type ContributionDirection string

const (
	DirectionBoost ContributionDirection = "boost"
	DirectionDrag  ContributionDirection = "drag"
)

type PredictionRequest struct {
	RequestID   string `json:"request_id,omitempty"`
	GoalText    string `json:"goal_text"`
	ContextText string `json:"context_text,omitempty"`
	Trials      int    `json:"trials,omitempty"`
	Seed        *int64 `json:"seed,omitempty"`
}

// GoalDescriptor is the structured reading of the goal statement produced
// by the goal phase.
type GoalDescriptor struct {
	Statement       string  `json:"statement"`
	Domain          Domain  `json:"domain"`
	Summary         string  `json:"summary"`
	TargetEntity    string  `json:"target_entity,omitempty"`
	Competitiveness float64 `json:"competitiveness"`
}

type VariablesOutput struct {
	Variables []units.Variable `json:"variables"`
}

type StandardizeOutput struct {
	Variables []units.Variable `json:"variables"`
}

type PhaseAttemptMetrics struct {
	Attempts       int
	ContentRetries int
}

type ExtractionMetadata struct {
	PhasesExecuted      []string       `json:"phases_executed"`
	PhasesSkipped       []string       `json:"phases_skipped"`
	PhaseFailed         string         `json:"phase_failed,omitempty"`
	StartedAt           time.Time      `json:"started_at"`
	CompletedAt         time.Time      `json:"completed_at"`
	InputTruncated      bool           `json:"input_truncated"`
	Mode                ReportMode     `json:"mode"`
	DegradedReason      string         `json:"degraded_reason,omitempty"`
	TotalLLMCalls       int            `json:"total_llm_calls"`
	TotalRetries        int            `json:"total_retries"`
	PhaseAttempts       map[string]int `json:"phase_attempts,omitempty"`
	PhaseContentRetries map[string]int `json:"phase_content_retries,omitempty"`
}

// ExtractionResult is everything the extraction phases produced for one
// goal, including the normalized FactorSet the simulation consumes.
type ExtractionResult struct {
	Request   PredictionRequest
	Goal      GoalDescriptor
	Variables []units.Variable
	Factors   units.FactorSet
	Drops     []units.Drop
	Attempts  map[string]PhaseAttemptMetrics
	Metadata  ExtractionMetadata
}

type ConfidenceInterval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

type FactorContribution struct {
	Name        units.FactorName      `json:"name"`
	Impact      float64               `json:"impact"`
	Direction   ContributionDirection `json:"direction"`
	Explanation string                `json:"explanation"`
}

type SimulationResult struct {
	ProbabilityBaseline  float64              `json:"probability_baseline"`
	ProbabilityProjected float64              `json:"probability_projected"`
	Interval             ConfidenceInterval   `json:"confidence_interval"`
	Contributions        []FactorContribution `json:"factor_contributions"`
	Trials               int                  `json:"trials"`
	Seed                 int64                `json:"seed"`
}

type Assessment struct {
	Category       OutcomeCategory `json:"category"`
	Explanation    string          `json:"explanation"`
	SuccessFactors []string        `json:"success_factors"`
	RiskFactors    []string        `json:"risk_factors"`
	Improvements   []string        `json:"improvement_suggestions"`
}

type Diagnostics struct {
	Factors          units.FactorSet      `json:"factors"`
	AllContributions []FactorContribution `json:"factor_contributions"`
	Drops            []units.Drop         `json:"dropped_variables,omitempty"`
	Extraction       ExtractionMetadata   `json:"extraction"`
	Seed             int64                `json:"seed"`
	Trials           int                  `json:"trials"`
}

type PredictionResult struct {
	RequestID            string               `json:"request_id"`
	Goal                 GoalDescriptor       `json:"goal"`
	ProbabilityBaseline  float64              `json:"probability_baseline"`
	ProbabilityProjected float64              `json:"probability_projected"`
	ImprovementFactor    float64              `json:"improvement_factor"`
	Interval             ConfidenceInterval   `json:"confidence_interval"`
	Assessment           Assessment           `json:"assessment"`
	TopFactors           []FactorContribution `json:"top_factors"`
	Mode                 ReportMode           `json:"report_mode"`
	Diagnostics          Diagnostics          `json:"diagnostics"`
	Disclaimer           string               `json:"disclaimer"`
}
