package odds

import (
	"fmt"
	"math"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/units"
)

// TopFactorCount caps the factor list in the primary view. The full list
// stays available in diagnostics.
const TopFactorCount = 3

// Assemble folds extraction and simulation output into the response shape.
func Assemble(req PredictionRequest, extraction ExtractionResult, sim SimulationResult) PredictionResult {
	top := sim.Contributions
	if len(top) > TopFactorCount {
		top = top[:TopFactorCount]
	}
	return PredictionResult{
		RequestID:            req.RequestID,
		Goal:                 extraction.Goal,
		ProbabilityBaseline:  sim.ProbabilityBaseline,
		ProbabilityProjected: sim.ProbabilityProjected,
		ImprovementFactor:    ImprovementFactor(sim.ProbabilityProjected, sim.ProbabilityBaseline),
		Interval:             sim.Interval,
		Assessment:           buildAssessment(extraction, sim),
		TopFactors:           top,
		Mode:                 extraction.Metadata.Mode,
		Diagnostics: Diagnostics{
			Factors:          extraction.Factors,
			AllContributions: sim.Contributions,
			Drops:            extraction.Drops,
			Extraction:       extraction.Metadata,
			Seed:             sim.Seed,
			Trials:           sim.Trials,
		},
		Disclaimer: Disclaimer,
	}
}

func OutcomeForProbability(p float64) OutcomeCategory {
	switch {
	case p >= 0.7:
		return OutcomeHighlyLikely
	case p >= 0.5:
		return OutcomeLikely
	case p >= 0.3:
		return OutcomePossible
	case p >= 0.1:
		return OutcomeChallenging
	default:
		return OutcomeUnlikely
	}
}

func buildAssessment(extraction ExtractionResult, sim SimulationResult) Assessment {
	category := OutcomeForProbability(sim.ProbabilityProjected)
	a := Assessment{
		Category:    category,
		Explanation: buildExplanation(category, sim),
	}
	for _, c := range sim.Contributions {
		if c.Direction == DirectionBoost && c.Impact > 0 {
			a.SuccessFactors = append(a.SuccessFactors, c.Explanation)
		}
		if c.Direction == DirectionDrag {
			a.RiskFactors = append(a.RiskFactors, c.Explanation)
		}
	}
	a.Improvements = buildImprovements(extraction, sim)
	return a
}

// ImprovementFactor is the projected-to-baseline ratio, rounded to the
// two decimals it is reported with.
func ImprovementFactor(projected, baseline float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return math.Round(projected/baseline*100) / 100
}

func buildExplanation(category OutcomeCategory, sim SimulationResult) string {
	lead := improvementLead(sim)
	if len(sim.Contributions) == 0 {
		return lead + " No measurable factors were found in the goal, so this rests on the population base rate alone."
	}
	top := sim.Contributions[0]
	return fmt.Sprintf("%s %s The biggest single influence: %s", lead, categoryLead(category), lowerFirst(top.Explanation))
}

// improvementLead compares the projection to the domain base rate. The
// wording bands sit on the reported improvement factor at 1.5, 1.2, 0.8,
// and 0.5.
func improvementLead(sim SimulationResult) string {
	trend := "sit close to"
	switch r := ImprovementFactor(sim.ProbabilityProjected, sim.ProbabilityBaseline); {
	case r >= 1.5:
		trend = "run well above"
	case r >= 1.2:
		trend = "run above"
	case r >= 0.8:
		trend = "sit close to"
	case r >= 0.5:
		trend = "fall below"
	default:
		trend = "fall far below"
	}
	return fmt.Sprintf("At %.0f%%, the projected odds %s the %.0f%% base rate for goals like this.",
		sim.ProbabilityProjected*100, trend, sim.ProbabilityBaseline*100)
}

func categoryLead(category OutcomeCategory) string {
	switch category {
	case OutcomeHighlyLikely:
		return "The odds are strongly in your favor."
	case OutcomeLikely:
		return "This is more likely than not, with room to improve."
	case OutcomePossible:
		return "This is genuinely uncertain; the controllable factors will decide it."
	case OutcomeChallenging:
		return "This is possible but demanding, and most attempts fall short."
	default:
		return "As stated, the odds are heavily against this."
	}
}

func buildImprovements(extraction ExtractionResult, sim SimulationResult) []string {
	var out []string
	add := func(s string) {
		if len(out) < 4 {
			out = append(out, s)
		}
	}

	if _, ok := extraction.Factors[units.FactorTimeCommitment]; !ok {
		add("State how much time you can commit each week; consistent effort is the strongest controllable factor.")
	}
	if _, ok := extraction.Factors[units.FactorTimeline]; !ok {
		add("Add a target date. Open-ended goals are harder to hold yourself to.")
	}
	for _, c := range sim.Contributions {
		if c.Direction != DirectionDrag {
			continue
		}
		if s, ok := improvementFor(c.Name); ok {
			add(s)
		}
	}
	return out
}

func improvementFor(name units.FactorName) (string, bool) {
	switch name {
	case units.FactorTimeCommitment:
		return "Increase the weekly hours you put in; under two hours a day rarely moves competitive goals.", true
	case units.FactorTimeline:
		return "Give yourself more runway. Timelines under three months compress everything that can go wrong.", true
	case units.FactorMonetaryAmount:
		return "Consider staging the financial target; intermediate milestones raise the odds of reaching the full amount.", true
	case units.FactorEducation:
		return "Targeted credentials or coursework would strengthen the weakest part of this profile.", true
	case units.FactorExperience:
		return "Build directly relevant experience first; even one to two years changes the picture.", true
	case units.FactorTargetEntity:
		return "Widen the target list beyond one highly selective organization, or build a referral path into it.", true
	case units.FactorPerformanceMetric:
		return "Raise the measurable performance number before relying on it; it currently works against you.", true
	default:
		return "", false
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'A' && r[0] <= 'Z' {
		r[0] = r[0] + ('a' - 'A')
	}
	return string(r)
}
