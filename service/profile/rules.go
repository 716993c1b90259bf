package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules holds every classification threshold and scoring weight.
// The clamp bounds of the published fields are fixed and not part of Rules.
type Rules struct {
	// StaleAgeHours is the activity age assumed when no timestamp was observed.
	StaleAgeHours float64 `yaml:"stale_age_hours"`

	Tempo      TempoRules      `yaml:"tempo"`
	Risk       RiskRules       `yaml:"risk"`
	Style      StyleRules      `yaml:"style"`
	EarlyEntry EarlyEntryRules `yaml:"early_entry"`
	Score      ScoreRules      `yaml:"score"`
	Confidence ConfidenceRules `yaml:"confidence"`
}

// TempoRules bound the activity age, in hours, of each tempo.
type TempoRules struct {
	HotMaxAgeHours    float64 `yaml:"hot_max_age_hours"`
	ActiveMaxAgeHours float64 `yaml:"active_max_age_hours"`
}

// RiskRules are minimum distinct-token counts for each risk level.
type RiskRules struct {
	HighMinTokens int `yaml:"high_min_tokens"`
	MedMinTokens  int `yaml:"med_min_tokens"`
}

// StyleRules parameterize the ordered style rule list.
type StyleRules struct {
	SniperMinTokens          int     `yaml:"sniper_min_tokens"`
	SniperMaxAgeHours        float64 `yaml:"sniper_max_age_hours"`
	ClusterMinTokens         int     `yaml:"cluster_min_tokens"`
	ClusterMinCounterparties int     `yaml:"cluster_min_counterparties"`
	WhaleMaxTokens           int     `yaml:"whale_max_tokens"`
	WhaleMinTx               int     `yaml:"whale_min_tx"`
}

// EarlyEntryRules scale the token density proxy.
type EarlyEntryRules struct {
	Multiplier float64 `yaml:"multiplier"`
}

// ScoreRules are the additive score weights.
type ScoreRules struct {
	Base               float64      `yaml:"base"`
	TokenWeight        float64      `yaml:"token_weight"`
	TokenCap           float64      `yaml:"token_cap"`
	CounterpartyWeight float64      `yaml:"counterparty_weight"`
	CounterpartyCap    float64      `yaml:"counterparty_cap"`
	TempoBonus         TempoWeights `yaml:"tempo_bonus"`
	RiskPenalty        RiskWeights  `yaml:"risk_penalty"`
}

// TempoWeights assigns a weight per tempo.
type TempoWeights struct {
	Hot    float64 `yaml:"hot"`
	Active float64 `yaml:"active"`
	Cold   float64 `yaml:"cold"`
}

// For returns the weight for t.
func (w TempoWeights) For(t Tempo) float64 {
	switch t {
	case TempoHot:
		return w.Hot
	case TempoActive:
		return w.Active
	default:
		return w.Cold
	}
}

// RiskWeights assigns a weight per risk level.
type RiskWeights struct {
	High float64 `yaml:"high"`
	Med  float64 `yaml:"med"`
	Low  float64 `yaml:"low"`
}

// For returns the weight for r.
func (w RiskWeights) For(r Risk) float64 {
	switch r {
	case RiskHigh:
		return w.High
	case RiskMed:
		return w.Med
	default:
		return w.Low
	}
}

// ConfidenceRules grow confidence with the size of the scanned window.
type ConfidenceRules struct {
	Base     float64 `yaml:"base"`
	TxWeight float64 `yaml:"tx_weight"`
	TxCap    float64 `yaml:"tx_cap"`
}

// DefaultRules returns the published thresholds and weights.
func DefaultRules() Rules {
	return Rules{
		StaleAgeHours: 999,
		Tempo: TempoRules{
			HotMaxAgeHours:    6,
			ActiveMaxAgeHours: 48,
		},
		Risk: RiskRules{
			HighMinTokens: 12,
			MedMinTokens:  6,
		},
		Style: StyleRules{
			SniperMinTokens:          10,
			SniperMaxAgeHours:        48,
			ClusterMinTokens:         6,
			ClusterMinCounterparties: 20,
			WhaleMaxTokens:           3,
			WhaleMinTx:               80,
		},
		EarlyEntry: EarlyEntryRules{
			Multiplier: 260,
		},
		Score: ScoreRules{
			Base:               45,
			TokenWeight:        2.2,
			TokenCap:           25,
			CounterpartyWeight: 0.55,
			CounterpartyCap:    18,
			TempoBonus:         TempoWeights{Hot: 12, Active: 7, Cold: 2},
			RiskPenalty:        RiskWeights{High: 6, Med: 2, Low: 0},
		},
		Confidence: ConfidenceRules{
			Base:     40,
			TxWeight: 0.5,
			TxCap:    50,
		},
	}
}

// LoadRules reads a YAML file on top of DefaultRules. Keys absent from the
// file keep their default values.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read scoring rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse scoring rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate rejects rule sets whose thresholds are inverted or negative.
func (r Rules) Validate() error {
	var errs []error

	if r.Tempo.HotMaxAgeHours <= 0 {
		errs = append(errs, fmt.Errorf("tempo.hot_max_age_hours must be positive"))
	}
	if r.Tempo.ActiveMaxAgeHours < r.Tempo.HotMaxAgeHours {
		errs = append(errs, fmt.Errorf("tempo.active_max_age_hours must not be below tempo.hot_max_age_hours"))
	}
	if r.StaleAgeHours < r.Tempo.ActiveMaxAgeHours {
		errs = append(errs, fmt.Errorf("stale_age_hours must not be below tempo.active_max_age_hours"))
	}
	if r.Risk.MedMinTokens < 0 || r.Risk.HighMinTokens < r.Risk.MedMinTokens {
		errs = append(errs, fmt.Errorf("risk thresholds must satisfy 0 <= med_min_tokens <= high_min_tokens"))
	}
	if r.EarlyEntry.Multiplier < 0 {
		errs = append(errs, fmt.Errorf("early_entry.multiplier must not be negative"))
	}
	if r.Score.TokenWeight < 0 || r.Score.TokenCap < 0 || r.Score.CounterpartyWeight < 0 || r.Score.CounterpartyCap < 0 {
		errs = append(errs, fmt.Errorf("score weights and caps must not be negative"))
	}
	if r.Confidence.TxWeight < 0 || r.Confidence.TxCap < 0 {
		errs = append(errs, fmt.Errorf("confidence weights and caps must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("scoring rules validation failed: %v", errs)
	}
	return nil
}
