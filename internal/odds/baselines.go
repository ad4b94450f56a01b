package odds

import (
	"math"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/units"
)

// DomainBaselines holds the population base rate for each goal domain:
// the probability that a typical person stating this kind of goal reaches
// it, before any individual factors are considered.
var DomainBaselines = map[Domain]float64{
	DomainCareer:   0.50,
	DomainFinance:  0.40,
	DomainFitness:  0.35,
	DomainDating:   0.40,
	DomainAcademic: 0.30,
	DomainBusiness: 0.25,
	DomainTravel:   0.70,
	DomainOther:    0.50,
}

func BaselineForDomain(d Domain) float64 {
	if b, ok := DomainBaselines[d]; ok {
		return b
	}
	return DomainBaselines[DomainOther]
}

// startingProbability is the simulation anchor. Extreme selection pressure
// dominates the domain base rate, so highly competitive goals replace it
// outright rather than multiply against it. Selection pressure is read
// from the resolved target entity when one is present, or from the goal
// phase's own rating, whichever is higher; the entity score still anchors
// the walk when the goal phase degraded and rated the goal zero.
func startingProbability(goal GoalDescriptor, factors units.FactorSet) float64 {
	selectivity := goal.Competitiveness
	if f, ok := factors[units.FactorTargetEntity]; ok && f.Value > selectivity {
		selectivity = f.Value
	}
	switch {
	case selectivity >= 0.95:
		return 0.03
	case selectivity >= 0.90:
		return 0.08
	default:
		return BaselineForDomain(goal.Domain)
	}
}

type multiplierTier struct {
	min  float64
	mult float64
}

// Tier tables map a factor's canonical value onto a success multiplier.
// Entries are ordered high to low; the first matching row wins, the last
// row is the floor.
var (
	educationTiers = []multiplierTier{
		{0.90, 1.8},
		{0.80, 1.4},
		{0.70, 1.2},
		{0, 0.9},
	}
	effortHoursPerDayTiers = []multiplierTier{
		{8, 2.0},
		{4, 1.5},
		{2, 1.2},
		{1, 1.0},
		{0, 0.7},
	}
	experienceYearTiers = []multiplierTier{
		{10, 1.8},
		{5, 1.4},
		{2, 1.1},
		{0, 0.9},
	}
	entitySelectivityTiers = []multiplierTier{
		{0.95, 0.15},
		{0.90, 0.25},
		{0.80, 0.60},
		{0, 1.0},
	}
	performanceTiers = []multiplierTier{
		{0.90, 1.3},
		{0.70, 1.1},
		{0.50, 1.0},
		{0, 0.8},
	}
	annualAmountTiers = []multiplierTier{
		{10_000_000, 0.5},
		{1_000_000, 0.7},
		{250_000, 0.85},
		{100_000, 0.95},
		{0, 1.0},
	}
)

func tierMultiplier(tiers []multiplierTier, v float64) float64 {
	for _, t := range tiers {
		if v >= t.min {
			return t.mult
		}
	}
	return tiers[len(tiers)-1].mult
}

// multiplierFor maps one normalized factor onto its success multiplier.
// The full set is needed because committed effort is judged as hours per
// day, which depends on the timeline.
func multiplierFor(f units.Factor, factors units.FactorSet) float64 {
	switch f.Name {
	case units.FactorTimeCommitment:
		return tierMultiplier(effortHoursPerDayTiers, hoursPerDay(f, factors))
	case units.FactorTimeline:
		months := f.Value / units.SecondsPerMonth
		switch {
		case months < 3:
			return 0.7
		case months > 36:
			return 0.9
		default:
			return 1.0
		}
	case units.FactorMonetaryAmount:
		return tierMultiplier(annualAmountTiers, annualDollars(f))
	case units.FactorEducation:
		return tierMultiplier(educationTiers, f.Value)
	case units.FactorExperience:
		return tierMultiplier(experienceYearTiers, f.Value)
	case units.FactorAge:
		switch {
		case f.Value >= 22 && f.Value <= 35:
			return 1.3
		case f.Value >= 18 && f.Value <= 45:
			return 1.1
		default:
			return 1.0
		}
	case units.FactorTargetEntity:
		return tierMultiplier(entitySelectivityTiers, f.Value)
	case units.FactorPerformanceMetric:
		return tierMultiplier(performanceTiers, f.Value)
	default:
		return 1.0
	}
}

// hoursPerDay reduces a committed-effort factor to hours per day. Rates
// divide by their period; totals spread over the stated timeline, or over
// a year when no timeline was given.
func hoursPerDay(f units.Factor, factors units.FactorSet) float64 {
	hours := f.Value / units.SecondsPerHour
	switch f.Period {
	case units.PeriodDaily:
		return hours
	case units.PeriodWeekly:
		return hours / 7
	case units.PeriodMonthly:
		return hours / 30.44
	}
	spanDays := 365.25
	if tl, ok := factors[units.FactorTimeline]; ok && tl.Value > 0 {
		spanDays = tl.Value / units.SecondsPerDay
	}
	if spanDays <= 0 {
		return hours
	}
	return hours / spanDays
}

// annualDollars converts a money factor to whole dollars per year for tier
// comparison only. The factor itself keeps its period tag.
func annualDollars(f units.Factor) float64 {
	dollars := f.Value / 100
	switch f.Period {
	case units.PeriodDaily:
		return dollars * 365.25
	case units.PeriodWeekly:
		return dollars * (365.25 / 7)
	case units.PeriodMonthly:
		return dollars * 12
	default:
		return dollars
	}
}

// explanationFor describes a factor's multiplier in plain language. The
// wording bands are shared across factors so identical strengths read
// identically.
func explanationFor(name units.FactorName, mult float64) string {
	subject := factorSubject(name)
	switch {
	case mult >= 1.5:
		return subject + " dramatically improves the odds."
	case mult >= 1.2:
		return subject + " meaningfully improves the odds."
	case mult > 0.8:
		return subject + " has little effect either way."
	case mult > 0.5:
		return subject + " works against the goal."
	default:
		return subject + " sharply reduces the odds."
	}
}

func factorSubject(name units.FactorName) string {
	switch name {
	case units.FactorTimeCommitment:
		return "The committed effort level"
	case units.FactorTimeline:
		return "The stated timeline"
	case units.FactorMonetaryAmount:
		return "The size of the financial target"
	case units.FactorEducation:
		return "The educational background"
	case units.FactorExperience:
		return "The experience level"
	case units.FactorAge:
		return "The stated age"
	case units.FactorTargetEntity:
		return "The selectivity of the target organization"
	case units.FactorPerformanceMetric:
		return "The reported performance level"
	default:
		return "This factor"
	}
}

func clampProbability(p float64) float64 {
	return math.Min(MaxProbability, math.Max(MinProbability, p))
}
