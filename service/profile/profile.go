// Package profile turns transaction aggregates into a heuristic wallet profile.
//
// Everything here is pure: the only inputs besides Signals are an injectable
// clock and an injectable random source used for narrative text.
package profile

import (
	"math"
	"time"
)

// Tempo is a coarse recency-of-activity classification.
type Tempo string

const (
	TempoHot    Tempo = "HOT"
	TempoActive Tempo = "ACTIVE"
	TempoCold   Tempo = "COLD"
)

// Risk is a proxy for how many distinct tokens a wallet touches.
type Risk string

const (
	RiskLow  Risk = "LOW"
	RiskMed  Risk = "MED"
	RiskHigh Risk = "HIGH"
)

// Style is the behavioral archetype of a wallet.
type Style string

const (
	StyleHolder        Style = "Holder"
	StyleSniper        Style = "Sniper-like"
	StyleClusterTrader Style = "Cluster Trader"
	StyleWhale         Style = "Whale-like"
)

// Fixed bounds of the published numeric fields.
const (
	MinScore      = 1
	MaxScore      = 99
	MinConfidence = 35
	MaxConfidence = 92
	MinPct        = 0
	MaxPct        = 100
)

// Profile is the classification of one wallet.
type Profile struct {
	Tempo         Tempo
	Risk          Risk
	Style         Style
	Score         int
	Confidence    int
	EarlyEntryPct int
	DNA           string
	Patterns      string
}

// Inputs are the quantities the classification depends on.
type Inputs struct {
	TxScanned            int
	TokenCount           int
	UniqueCounterparties int
	AgeHours             float64
}

// Computer derives profiles under a fixed rule set.
type Computer struct {
	rules  Rules
	styles []styleRule
	now    func() time.Time
	rand   Rand
}

// Option configures a Computer.
type Option func(*Computer)

// WithClock overrides the clock used to age the last activity.
func WithClock(now func() time.Time) Option {
	return func(c *Computer) {
		c.now = now
	}
}

// WithRand overrides the random source used for narrative text.
func WithRand(r Rand) Option {
	return func(c *Computer) {
		c.rand = r
	}
}

// NewComputer creates a Computer using rules.
func NewComputer(rules Rules, opts ...Option) *Computer {
	c := &Computer{
		rules:  rules,
		styles: buildStyleRules(rules),
		now:    time.Now,
		rand:   globalRand{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rules returns the rule set in use.
func (c *Computer) Rules() Rules {
	return c.rules
}

// Compute derives the profile for s, aging LastTimestamp against the clock.
func (c *Computer) Compute(s Signals) Profile {
	return c.Classify(Inputs{
		TxScanned:            s.TxScanned,
		TokenCount:           s.TokenCount(),
		UniqueCounterparties: s.UniqueCounterparties,
		AgeHours:             c.ageHours(s.LastTimestamp),
	})
}

// Classify derives the profile for in. All fields except DNA and Patterns are
// deterministic functions of in.
func (c *Computer) Classify(in Inputs) Profile {
	r := c.rules

	tempo := c.tempo(in.AgeHours)
	risk := c.risk(in.TokenCount)

	early := float64(in.TokenCount) / float64(max(1, in.TxScanned)) * r.EarlyEntry.Multiplier

	score := r.Score.Base +
		math.Min(r.Score.TokenCap, float64(in.TokenCount)*r.Score.TokenWeight) +
		math.Min(r.Score.CounterpartyCap, float64(in.UniqueCounterparties)*r.Score.CounterpartyWeight) +
		r.Score.TempoBonus.For(tempo) -
		r.Score.RiskPenalty.For(risk)

	confidence := r.Confidence.Base + math.Min(r.Confidence.TxCap, float64(in.TxScanned)*r.Confidence.TxWeight)

	return Profile{
		Tempo:         tempo,
		Risk:          risk,
		Style:         classifyStyle(c.styles, in),
		Score:         clampRound(score, MinScore, MaxScore),
		Confidence:    clampRound(confidence, MinConfidence, MaxConfidence),
		EarlyEntryPct: clampRound(early, MinPct, MaxPct),
		DNA:           pick(c.rand, DNAPool),
		Patterns:      pick(c.rand, PatternPool),
	}
}

func (c *Computer) ageHours(lastTs *int64) float64 {
	if lastTs == nil {
		return c.rules.StaleAgeHours
	}
	now := c.now()
	elapsed := float64(now.Unix()-*lastTs) + float64(now.Nanosecond())/float64(time.Second)
	return elapsed / 3600
}

func (c *Computer) tempo(ageHours float64) Tempo {
	switch {
	case ageHours < c.rules.Tempo.HotMaxAgeHours:
		return TempoHot
	case ageHours < c.rules.Tempo.ActiveMaxAgeHours:
		return TempoActive
	default:
		return TempoCold
	}
}

func (c *Computer) risk(tokenCount int) Risk {
	switch {
	case tokenCount >= c.rules.Risk.HighMinTokens:
		return RiskHigh
	case tokenCount >= c.rules.Risk.MedMinTokens:
		return RiskMed
	default:
		return RiskLow
	}
}

// styleRule assigns style when match holds.
type styleRule struct {
	style Style
	match func(Inputs) bool
}

// buildStyleRules returns the style rules in evaluation order.
func buildStyleRules(rules Rules) []styleRule {
	s := rules.Style
	return []styleRule{
		{
			style: StyleHolder,
			match: func(Inputs) bool { return true },
		},
		{
			style: StyleSniper,
			match: func(in Inputs) bool {
				return in.TokenCount >= s.SniperMinTokens && in.AgeHours < s.SniperMaxAgeHours
			},
		},
		{
			style: StyleClusterTrader,
			match: func(in Inputs) bool {
				return in.TokenCount >= s.ClusterMinTokens && in.UniqueCounterparties >= s.ClusterMinCounterparties
			},
		},
		{
			style: StyleWhale,
			match: func(in Inputs) bool {
				return in.TokenCount <= s.WhaleMaxTokens && in.TxScanned >= s.WhaleMinTx
			},
		},
	}
}

// classifyStyle evaluates every rule in order; the last matching rule wins.
func classifyStyle(rules []styleRule, in Inputs) Style {
	style := StyleHolder
	for _, rule := range rules {
		if rule.match(in) {
			style = rule.style
		}
	}
	return style
}

// clampRound rounds x half-up and clamps it to [lo, hi].
func clampRound(x float64, lo, hi int) int {
	r := math.Floor(x + 0.5)
	switch {
	case math.IsNaN(r) || r < float64(lo):
		return lo
	case r > float64(hi):
		return hi
	default:
		return int(r)
	}
}
