// Package units converts heterogeneous natural-language quantities into a
// fixed set of canonical numeric factors: durations in seconds, money in
// minor currency units, descriptors and entity scores as ratios in [0,1],
// and validated numeric counts.
package units

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/entity"
)

// Seconds per unit. Month and year use mean calendar lengths.
const (
	SecondsPerHour  = 3600.0
	SecondsPerDay   = 86400.0
	SecondsPerWeek  = 604800.0
	SecondsPerMonth = 30.44 * SecondsPerDay
	SecondsPerYear  = 365.25 * SecondsPerDay
)

// DefaultDescriptorRatio is used for education or experience descriptors
// that match nothing in the ranked vocabulary.
const DefaultDescriptorRatio = 0.5

// MaxAgeYears bounds numeric age inputs; larger values clamp, not reject.
const MaxAgeYears = 130

type Category string

const (
	CategoryDuration   Category = "duration"
	CategoryMoney      Category = "money"
	CategoryEducation  Category = "education"
	CategoryExperience Category = "experience"
	CategoryEntity     Category = "entity"
	CategoryNumeric    Category = "numeric"
	CategoryRatio      Category = "ratio"
)

type Unit string

const (
	UnitSeconds       Unit = "seconds"
	UnitMinorCurrency Unit = "minor_currency_units"
	UnitRatio         Unit = "ratio"
	UnitCount         Unit = "count"
)

// Period tags rate-denominated values (money per month, hours per day).
// Rates keep their period so downstream scaling stays explicit; they are
// never silently annualized.
type Period string

const (
	PeriodNone    Period = ""
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAnnual  Period = "annual"
)

type FactorName string

const (
	FactorTimeCommitment    FactorName = "time_commitment"
	FactorTimeline          FactorName = "timeline"
	FactorMonetaryAmount    FactorName = "monetary_amount"
	FactorEducation         FactorName = "education"
	FactorExperience        FactorName = "experience"
	FactorAge               FactorName = "age"
	FactorTargetEntity      FactorName = "target_entity"
	FactorPerformanceMetric FactorName = "performance_metric"
)

// Variable is one extracted quantity before normalization: the name and
// category come from the extraction phases, the value is raw text.
type Variable struct {
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	Category Category `json:"category"`
}

type Factor struct {
	Name         FactorName `json:"name"`
	Value        float64    `json:"value"`
	Unit         Unit       `json:"unit"`
	Period       Period     `json:"period,omitempty"`
	EntityName   string     `json:"entity_name,omitempty"`
	SelfReported bool       `json:"self_reported,omitempty"`
	Clamped      bool       `json:"clamped,omitempty"`
}

// FactorSet holds normalized factors keyed by canonical name. Absent
// factors are absent keys, never zero values.
type FactorSet map[FactorName]Factor

// SortedNames returns factor names in lexical order so iteration order
// never depends on map layout.
func (fs FactorSet) SortedNames() []FactorName {
	names := make([]FactorName, 0, len(fs))
	for n := range fs {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Drop records a variable that could not be normalized and why.
type Drop struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type Normalizer struct {
	registry *entity.Registry
}

func NewNormalizer(registry *entity.Registry) *Normalizer {
	if registry == nil {
		registry = entity.NewRegistry()
	}
	return &Normalizer{registry: registry}
}

// Normalize converts extracted variables into a FactorSet. It never fails:
// unrecoverable variables are dropped and recorded, out-of-range values are
// clamped and flagged. Duplicate factor names keep the last occurrence.
func (n *Normalizer) Normalize(vars []Variable) (FactorSet, []Drop) {
	factors := FactorSet{}
	var drops []Drop

	for _, v := range vars {
		raw := strings.TrimSpace(v.Value)
		if raw == "" {
			drops = append(drops, Drop{Name: v.Name, Value: v.Value, Reason: "empty value"})
			continue
		}
		name, ok := canonicalFactorName(v.Name, v.Category)
		if !ok {
			drops = append(drops, Drop{Name: v.Name, Value: raw, Reason: "name outside factor vocabulary"})
			continue
		}

		switch v.Category {
		case CategoryDuration:
			n.normalizeDuration(name, raw, factors, &drops, v)
		case CategoryMoney:
			n.normalizeMoney(name, raw, factors, &drops, v)
		case CategoryEducation:
			factors[name] = Factor{Name: name, Value: educationRatio(raw), Unit: UnitRatio}
		case CategoryExperience:
			n.normalizeExperience(name, raw, factors, &drops, v)
		case CategoryEntity:
			e := n.registry.Resolve(raw)
			factors[name] = Factor{Name: name, Value: e.Score, Unit: UnitRatio, EntityName: e.CanonicalName}
		case CategoryNumeric:
			n.normalizeNumeric(name, raw, factors, &drops, v)
		case CategoryRatio:
			n.normalizeRatio(name, raw, factors, &drops, v)
		default:
			drops = append(drops, Drop{Name: v.Name, Value: raw, Reason: fmt.Sprintf("unknown category %q", v.Category)})
		}
	}
	return factors, drops
}

// Registry exposes the entity registry backing entity-valued factors.
func (n *Normalizer) Registry() *entity.Registry { return n.registry }

func (n *Normalizer) normalizeDuration(name FactorName, raw string, factors FactorSet, drops *[]Drop, v Variable) {
	d, ok := ParseDuration(raw)
	if !ok {
		*drops = append(*drops, Drop{Name: v.Name, Value: raw, Reason: "unparsable duration"})
		return
	}
	if d.Seconds < 0 {
		*drops = append(*drops, Drop{Name: v.Name, Value: raw, Reason: "negative duration"})
		return
	}

	f := Factor{Name: name, Value: d.Seconds, Unit: UnitSeconds, Period: d.Period}
	if name == FactorTimeCommitment {
		f.SelfReported = true
	}
	factors[f.Name] = f

	// A committed rate over a span ("2 hours/day for 6 months") yields the
	// span as a timeline factor too, unless one was given explicitly.
	if d.SpanSeconds > 0 && name == FactorTimeCommitment {
		if _, exists := factors[FactorTimeline]; !exists {
			factors[FactorTimeline] = Factor{Name: FactorTimeline, Value: d.SpanSeconds, Unit: UnitSeconds}
		}
	}
}

func (n *Normalizer) normalizeMoney(name FactorName, raw string, factors FactorSet, drops *[]Drop, v Variable) {
	minor, period, ok := ParseMoney(raw)
	if !ok {
		*drops = append(*drops, Drop{Name: v.Name, Value: raw, Reason: "unparsable money amount"})
		return
	}
	if minor < 0 {
		*drops = append(*drops, Drop{Name: v.Name, Value: raw, Reason: "negative money amount"})
		return
	}
	factors[name] = Factor{Name: name, Value: minor, Unit: UnitMinorCurrency, Period: period}
}

func (n *Normalizer) normalizeExperience(name FactorName, raw string, factors FactorSet, drops *[]Drop, v Variable) {
	if years, ok := parseLeadingNumber(raw); ok {
		if years < 0 {
			years = 0
		}
		factors[name] = Factor{Name: name, Value: years, Unit: UnitCount}
		return
	}
	if years, ok := experienceYearsFromDescriptor(raw); ok {
		factors[name] = Factor{Name: name, Value: years, Unit: UnitCount}
		return
	}
	*drops = append(*drops, Drop{Name: v.Name, Value: raw, Reason: "unparsable experience"})
}

func (n *Normalizer) normalizeNumeric(name FactorName, raw string, factors FactorSet, drops *[]Drop, v Variable) {
	val, ok := parseLeadingNumber(raw)
	if !ok {
		*drops = append(*drops, Drop{Name: v.Name, Value: raw, Reason: "unparsable number"})
		return
	}
	f := Factor{Name: name, Value: math.Floor(val), Unit: UnitCount}
	if f.Value < 0 {
		f.Value = 0
		f.Clamped = true
	}
	if name == FactorAge && f.Value > MaxAgeYears {
		f.Value = MaxAgeYears
		f.Clamped = true
	}
	factors[name] = f
}

func (n *Normalizer) normalizeRatio(name FactorName, raw string, factors FactorSet, drops *[]Drop, v Variable) {
	val, ok := parseRatio(raw)
	if !ok {
		*drops = append(*drops, Drop{Name: v.Name, Value: raw, Reason: "unparsable ratio"})
		return
	}
	// Bare GPA values arrive on a 4.0 scale ("3.8 GPA"), not as percentages.
	if isBareGPA(v.Name, raw) {
		if num, okN := parseLeadingNumber(raw); okN {
			val = num / 4.0
		}
	}
	f := Factor{Name: name, Value: val, Unit: UnitRatio, SelfReported: name == FactorPerformanceMetric}
	if f.Value < 0 {
		f.Value = 0
		f.Clamped = true
	}
	if f.Value > 1 {
		f.Value = 1
		f.Clamped = true
	}
	factors[name] = f
}

// canonicalFactorName maps a free-form variable name onto the fixed factor
// vocabulary. The category breaks ties for ambiguous names.
func canonicalFactorName(varName string, category Category) (FactorName, bool) {
	k := strings.ToLower(strings.TrimSpace(varName))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)

	switch category {
	case CategoryEducation:
		return FactorEducation, true
	case CategoryExperience:
		return FactorExperience, true
	case CategoryEntity:
		return FactorTargetEntity, true
	}

	switch {
	case containsAny(k, "effort", "commitment", "hours", "practice", "training", "study"):
		return FactorTimeCommitment, true
	case containsAny(k, "timeline", "deadline", "timeframe", "duration", "horizon", "window"):
		return FactorTimeline, true
	case containsAny(k, "income", "salary", "saving", "budget", "money", "amount", "revenue", "cost", "price", "funding"):
		return FactorMonetaryAmount, true
	case containsAny(k, "education", "degree", "school"):
		return FactorEducation, true
	case containsAny(k, "experience", "seniority", "tenure"):
		return FactorExperience, true
	case k == "age" || strings.HasPrefix(k, "age_") || strings.HasSuffix(k, "_age"):
		return FactorAge, true
	case containsAny(k, "company", "employer", "institution", "university", "target_entity", "organization", "org"):
		return FactorTargetEntity, true
	case containsAny(k, "gpa", "score", "metric", "performance", "rate", "level"):
		return FactorPerformanceMetric, true
	}

	// Category alone is enough for the remaining unambiguous kinds.
	switch category {
	case CategoryDuration:
		return FactorTimeline, true
	case CategoryMoney:
		return FactorMonetaryAmount, true
	case CategoryRatio:
		return FactorPerformanceMetric, true
	}
	return "", false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// --- duration parsing ---

// ParsedDuration carries total seconds plus, for rate-over-span phrases,
// the span itself and the rate period.
type ParsedDuration struct {
	Seconds     float64
	SpanSeconds float64
	Period      Period
}

var (
	ratePattern   = regexp.MustCompile(`(?i)^([\d.]+)\s*(hours?|hrs?|h|minutes?|mins?|m)\s*(?:/|per\s+)(day|week|month)\b`)
	spanPattern   = regexp.MustCompile(`(?i)(?:for\s+)?([\d.]+)\s*(hours?|hrs?|days?|weeks?|months?|mos?|years?|yrs?)\s*$`)
	simplePattern = regexp.MustCompile(`(?i)^([\d.]+)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?|h|days?|weeks?|wks?|months?|mos?|years?|yrs?)$`)
)

// ParseDuration understands plain spans ("6 months"), bare rates
// ("2 hours/day"), and committed rates over a span
// ("2 hours/day for 6 months"). The latter multiplies out to total
// seconds of effort: 2 h/day for 6 months is 2*3600*30.44*6.
func ParseDuration(raw string) (ParsedDuration, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedDuration{}, false
	}

	if m := simplePattern.FindStringSubmatch(s); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return ParsedDuration{}, false
		}
		return ParsedDuration{Seconds: value * unitSeconds(m[2])}, true
	}

	if m := ratePattern.FindStringSubmatch(s); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return ParsedDuration{}, false
		}
		rateSeconds := value * unitSeconds(m[2])
		ratePeriod := periodFor(m[3])

		rest := strings.TrimSpace(s[len(m[0]):])
		if rest == "" {
			return ParsedDuration{Seconds: rateSeconds, Period: ratePeriod}, true
		}
		if sm := spanPattern.FindStringSubmatch(rest); sm != nil {
			spanValue, err := strconv.ParseFloat(sm[1], 64)
			if err != nil {
				return ParsedDuration{}, false
			}
			spanSeconds := spanValue * unitSeconds(sm[2])
			periods := spanSeconds / periodSeconds(ratePeriod)
			return ParsedDuration{Seconds: rateSeconds * periods, SpanSeconds: spanSeconds}, true
		}
		return ParsedDuration{Seconds: rateSeconds, Period: ratePeriod}, true
	}

	if m := spanPattern.FindStringSubmatch(s); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return ParsedDuration{}, false
		}
		return ParsedDuration{Seconds: value * unitSeconds(m[2])}, true
	}

	return ParsedDuration{}, false
}

func unitSeconds(unit string) float64 {
	switch strings.TrimSuffix(strings.ToLower(unit), "s") {
	case "second", "sec":
		return 1
	case "minute", "min", "m":
		return 60
	case "hour", "hr", "h":
		return SecondsPerHour
	case "day":
		return SecondsPerDay
	case "week", "wk":
		return SecondsPerWeek
	case "month", "mo":
		return SecondsPerMonth
	case "year", "yr":
		return SecondsPerYear
	default:
		return SecondsPerDay
	}
}

func periodFor(unit string) Period {
	switch strings.ToLower(unit) {
	case "day":
		return PeriodDaily
	case "week":
		return PeriodWeekly
	case "month":
		return PeriodMonthly
	default:
		return PeriodNone
	}
}

func periodSeconds(p Period) float64 {
	switch p {
	case PeriodDaily:
		return SecondsPerDay
	case PeriodWeekly:
		return SecondsPerWeek
	case PeriodMonthly:
		return SecondsPerMonth
	case PeriodAnnual:
		return SecondsPerYear
	default:
		return SecondsPerDay
	}
}

// --- money parsing ---

var moneyPattern = regexp.MustCompile(`(?i)^[$€£]?\s*([\d,]+(?:\.\d+)?)\s*(k|m|thousand|million)?\b`)

// ParseMoney converts an amount to minor currency units (cents). Rate
// suffixes ("/month", "per year", "weekly") become a Period tag.
func ParseMoney(raw string) (float64, Period, bool) {
	s := strings.TrimSpace(raw)
	m := moneyPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, PeriodNone, false
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	value, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, PeriodNone, false
	}
	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		value *= 1_000
	case "m", "million":
		value *= 1_000_000
	}
	return value * 100, moneyPeriod(s), true
}

func moneyPeriod(s string) Period {
	l := strings.ToLower(s)
	switch {
	case containsAny(l, "/wk", "/week", "per week", "weekly"):
		return PeriodWeekly
	case containsAny(l, "/mo", "/month", "per month", "monthly"):
		return PeriodMonthly
	case containsAny(l, "/yr", "/year", "per year", "annual", "yearly"):
		return PeriodAnnual
	case containsAny(l, "/day", "per day", "daily"):
		return PeriodDaily
	default:
		return PeriodNone
	}
}

// --- descriptor vocabularies ---

var educationTiers = []struct {
	markers []string
	ratio   float64
}{
	{[]string{"phd", "doctorate", "doctoral"}, 0.95},
	{[]string{"harvard", "mit", "stanford", "northwestern", "yale", "princeton", "oxford", "cambridge", "ivy"}, 0.9},
	{[]string{"masters", "master's", "mba", "grad degree", "graduate degree", "grad school", "postgrad"}, 0.8},
	{[]string{"bachelor", "college grad", "college degree", "undergrad", "university degree", "bs ", "ba "}, 0.7},
	{[]string{"bootcamp", "certificate", "certification"}, 0.6},
	{[]string{"self-taught", "self taught"}, 0.55},
	{[]string{"high school", "ged"}, 0.4},
}

func educationRatio(raw string) float64 {
	l := " " + strings.ToLower(strings.TrimSpace(raw)) + " "
	for _, tier := range educationTiers {
		for _, marker := range tier.markers {
			if strings.Contains(l, marker) {
				return tier.ratio
			}
		}
	}
	return DefaultDescriptorRatio
}

func experienceYearsFromDescriptor(raw string) (float64, bool) {
	l := strings.ToLower(raw)
	switch {
	case containsAny(l, "veteran", "expert", "decade"):
		return 10, true
	case containsAny(l, "senior", "experienced", "seasoned"):
		return 8, true
	case containsAny(l, "mid", "intermediate", "some experience"):
		return 4, true
	case containsAny(l, "junior", "entry", "beginner", "new to", "no experience", "none"):
		return 0, true
	default:
		return 0, false
	}
}

// --- scalar parsing ---

var numberPattern = regexp.MustCompile(`-?[\d,]+(?:\.\d+)?`)

func parseLeadingNumber(raw string) (float64, bool) {
	m := numberPattern.FindString(raw)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isBareGPA(name, raw string) bool {
	l := strings.ToLower(name + " " + raw)
	return strings.Contains(l, "gpa") && !strings.Contains(raw, "/") && !strings.Contains(raw, "%")
}

func parseRatio(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, "/") {
		parts := strings.SplitN(s, "/", 2)
		num, okN := parseLeadingNumber(parts[0])
		den, okD := parseLeadingNumber(parts[1])
		if okN && okD && den != 0 {
			return num / den, true
		}
		return 0, false
	}
	v, ok := parseLeadingNumber(s)
	if !ok {
		return 0, false
	}
	if strings.Contains(s, "%") || v > 1 {
		v /= 100
	}
	return v, true
}
