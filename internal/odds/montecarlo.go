package odds

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/units"
)

const (
	DefaultTrials  = 10_000
	MaxTrials      = 200_000
	MinProbability = 0.001
	MaxProbability = 0.999

	// Per-trial noise around each factor multiplier. Self-reported factors
	// get a wider spread.
	baseSigma         = 0.20
	selfReportedSigma = 0.30

	// A single factor's noisy effect never leaves this band.
	minFactorEffect = 0.05
	maxFactorEffect = 20.0

	// With no factors at all the simulation spreads uniformly around the
	// starting probability. The band is wider than any factored run so an
	// evidence-free answer is visibly less certain.
	emptySetSpread = 0.45
)

var ErrInvalidTrialCount = errors.New("trial count must be between 1 and 200000")

type SimulationRequest struct {
	Goal    GoalDescriptor
	Factors units.FactorSet
	Trials  int
	Seed    int64
}

// Engine runs the factor simulation. Simulate is pure: the same request,
// seed included, produces bit-identical results.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

type factorModel struct {
	name  units.FactorName
	mult  float64
	sigma float64
}

func (e *Engine) Simulate(req SimulationRequest) (SimulationResult, error) {
	trials := req.Trials
	if trials == 0 {
		trials = DefaultTrials
	}
	if trials < 1 || trials > MaxTrials {
		return SimulationResult{}, ErrInvalidTrialCount
	}

	rng := rand.New(rand.NewSource(req.Seed))
	base := startingProbability(req.Goal, req.Factors)
	res := SimulationResult{
		ProbabilityBaseline: BaselineForDomain(req.Goal.Domain),
		Trials:              trials,
		Seed:                req.Seed,
	}

	names := req.Factors.SortedNames()
	if len(names) == 0 {
		res.ProbabilityProjected, res.Interval = e.simulateUnfactored(rng, base, trials)
		res.Contributions = []FactorContribution{}
		return res, nil
	}

	models := make([]factorModel, 0, len(names))
	for _, name := range names {
		f := req.Factors[name]
		sigma := baseSigma
		if f.SelfReported {
			sigma = selfReportedSigma
		}
		models = append(models, factorModel{name: name, mult: multiplierFor(f, req.Factors), sigma: sigma})
	}

	baseLogit := math.Log(base / (1 - base))
	samples := make([]float64, trials)
	logSums := make([]float64, len(models))
	sum := 0.0
	for i := 0; i < trials; i++ {
		logit := baseLogit
		for j, m := range models {
			effect := m.mult * (1 + rng.NormFloat64()*m.sigma)
			if effect < minFactorEffect {
				effect = minFactorEffect
			}
			if effect > maxFactorEffect {
				effect = maxFactorEffect
			}
			le := math.Log(effect)
			logit += le
			logSums[j] += le
		}
		p := clampProbability(sigmoid(logit))
		samples[i] = p
		sum += p
	}

	mean := sum / float64(trials)
	low, high := percentileBand(samples)
	// The mean of a skewed trial distribution can escape the band; widen
	// the band, never move the mean.
	if mean < low {
		low = mean
	}
	if mean > high {
		high = mean
	}

	res.ProbabilityProjected = mean
	res.Interval = ConfidenceInterval{Low: low, High: high}
	res.Contributions = buildContributions(models, logSums, trials)
	return res, nil
}

func (e *Engine) simulateUnfactored(rng *rand.Rand, base float64, trials int) (float64, ConfidenceInterval) {
	samples := make([]float64, trials)
	sum := 0.0
	for i := 0; i < trials; i++ {
		p := clampProbability(base + (rng.Float64()*2-1)*emptySetSpread)
		samples[i] = p
		sum += p
	}
	mean := sum / float64(trials)
	low, high := percentileBand(samples)
	if mean < low {
		low = mean
	}
	if mean > high {
		high = mean
	}
	return mean, ConfidenceInterval{Low: low, High: high}
}

// percentileBand returns the 5th and 95th percentiles of the samples.
func percentileBand(samples []float64) (float64, float64) {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	n := len(sorted)
	lo := int(float64(n) * 0.05)
	hi := int(float64(n) * 0.95)
	if hi >= n {
		hi = n - 1
	}
	return sorted[lo], sorted[hi]
}

func buildContributions(models []factorModel, logSums []float64, trials int) []FactorContribution {
	out := make([]FactorContribution, 0, len(models))
	for j, m := range models {
		impact := logSums[j] / float64(trials)
		dir := DirectionBoost
		if impact < 0 {
			dir = DirectionDrag
		}
		out = append(out, FactorContribution{
			Name:        m.name,
			Impact:      impact,
			Direction:   dir,
			Explanation: explanationFor(m.name, m.mult),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Impact), math.Abs(out[j].Impact)
		if ai != aj {
			return ai > aj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sigmoid(logit float64) float64 {
	return 1 / (1 + math.Exp(-logit))
}
