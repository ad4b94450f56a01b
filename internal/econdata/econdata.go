// Package econdata reads a small set of FRED series and condenses them into
// a single macroeconomic tailwind factor for probability adjustment.
package econdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/odds"
)

const defaultBaseURL = "https://api.stlouisfed.org/fred/series/observations"

type Indicator string

const (
	IndicatorUnemployment      Indicator = "UNRATE"
	IndicatorGDP               Indicator = "GDP"
	IndicatorInflation         Indicator = "CPIAUCSL"
	IndicatorFedFunds          Indicator = "FEDFUNDS"
	IndicatorSP500             Indicator = "SP500"
	IndicatorConsumerSentiment Indicator = "UMCSENT"
)

const (
	SourceFRED     = "fred"
	SourceFallback = "fallback"

	// NeutralScore is used when no indicator could be read; it maps to a
	// factor of exactly 1.0 so predictions pass through unadjusted.
	NeutralScore = 50.0

	minAdjusted = 0.01
	maxAdjusted = 0.99
)

type IndicatorReading struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Score float64 `json:"score"`
}

// Snapshot is one read of the macro environment. Score is 0-100 (higher is
// friendlier), Factor is the derived multiplier in [0.8, 1.2].
type Snapshot struct {
	Indicators map[Indicator]IndicatorReading `json:"indicators"`
	Score      float64                        `json:"score"`
	Factor     float64                        `json:"factor"`
	FetchedAt  time.Time                      `json:"fetched_at"`
	Source     string                         `json:"source"`
}

type seriesSpec struct {
	id    Indicator
	units string
	score func(v float64) float64
}

// Growth-style series use FRED's pc1 transform (percent change from a year
// ago) so scoring sees rates, not index levels.
var seriesSpecs = []seriesSpec{
	{IndicatorUnemployment, "lin", scoreUnemployment},
	{IndicatorGDP, "pc1", scoreGDPGrowth},
	{IndicatorInflation, "pc1", scoreInflation},
	{IndicatorFedFunds, "lin", scoreFedFunds},
	{IndicatorSP500, "pc1", scoreEquityReturn},
	{IndicatorConsumerSentiment, "lin", scoreSentiment},
}

type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
	ttl     time.Duration
	log     *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	cached *Snapshot
}

func NewClient(apiKey string, ttl time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		ttl:     ttl,
		log:     log,
		now:     time.Now,
	}
}

// Snapshot returns the cached read when fresh, otherwise refetches. It
// never fails: when FRED is unreachable or unconfigured it returns a
// neutral fallback snapshot that leaves predictions unadjusted.
func (c *Client) Snapshot(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && c.now().Sub(c.cached.FetchedAt) < c.ttl {
		return *c.cached
	}

	snap := c.fetch(ctx)
	if snap.Source == SourceFRED {
		c.cached = &snap
		return snap
	}
	// Keep serving a stale real snapshot over a fresh fallback.
	if c.cached != nil {
		return *c.cached
	}
	return snap
}

func (c *Client) fetch(ctx context.Context) Snapshot {
	snap := Snapshot{
		Indicators: map[Indicator]IndicatorReading{},
		FetchedAt:  c.now(),
		Source:     SourceFallback,
		Score:      NeutralScore,
		Factor:     FactorForScore(NeutralScore),
	}
	if c.apiKey == "" {
		return snap
	}

	total, n := 0.0, 0
	for _, spec := range seriesSpecs {
		reading, err := c.fetchLatest(ctx, spec)
		if err != nil {
			c.log.Warn("fred series unavailable", zap.String("series", string(spec.id)), zap.Error(err))
			continue
		}
		snap.Indicators[spec.id] = reading
		total += reading.Score
		n++
	}
	if n == 0 {
		return snap
	}

	snap.Source = SourceFRED
	snap.Score = total / float64(n)
	snap.Factor = FactorForScore(snap.Score)
	return snap
}

func (c *Client) fetchLatest(ctx context.Context, spec seriesSpec) (IndicatorReading, error) {
	q := url.Values{}
	q.Set("series_id", string(spec.id))
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	q.Set("sort_order", "desc")
	q.Set("limit", "5")
	q.Set("units", spec.units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return IndicatorReading{}, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return IndicatorReading{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return IndicatorReading{}, fmt.Errorf("fred status %d", resp.StatusCode)
	}

	var body struct {
		Observations []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"observations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return IndicatorReading{}, err
	}
	// FRED publishes "." for observations it has not filled in yet.
	for _, obs := range body.Observations {
		v, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue
		}
		return IndicatorReading{Date: obs.Date, Value: v, Score: spec.score(v)}, nil
	}
	return IndicatorReading{}, fmt.Errorf("no usable observations for %s", spec.id)
}

// FactorForScore maps a 0-100 macro score onto a 0.8-1.2 multiplier.
func FactorForScore(score float64) float64 {
	return 0.8 + clamp01(score/100)*0.4
}

// Adjust applies the macro factor to a probability. Economically exposed
// domains take the full factor; the rest take a tenth of its distance from
// neutral.
func Adjust(p float64, domain odds.Domain, factor float64) float64 {
	switch domain {
	case odds.DomainCareer, odds.DomainFinance, odds.DomainBusiness:
		p *= factor
	default:
		p *= 0.9 + factor*0.1
	}
	if p < minAdjusted {
		return minAdjusted
	}
	if p > maxAdjusted {
		return maxAdjusted
	}
	return p
}

func scoreUnemployment(v float64) float64 { return 100 * clamp01((10-v)/6) }
func scoreGDPGrowth(v float64) float64    { return 100 * clamp01((v+1)/6) }
func scoreInflation(v float64) float64    { return 100 * clamp01((6-v)/5) }
func scoreFedFunds(v float64) float64     { return 100 * clamp01((8-v)/6) }
func scoreEquityReturn(v float64) float64 { return 100 * clamp01((v+20)/40) }
func scoreSentiment(v float64) float64    { return 100 * clamp01((v-50)/50) }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
