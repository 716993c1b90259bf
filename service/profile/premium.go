package profile

import (
	"fmt"
	"regexp"
	"strings"
)

// DomainTag is appended to every alpha tag list.
const DomainTag = "solana-memes"

// lockedValue fills every premium field when there is no signal to derive from.
const lockedValue = "—"

var whitespaceRun = regexp.MustCompile(`\s+`)

// Premium holds the secondary metrics of the premium view.
type Premium struct {
	InsiderClusterConfidence string `json:"insider_cluster_confidence"`
	SniperProbability        string `json:"sniper_probability"`
	ExitDiscipline           string `json:"exit_discipline"`
	AlphaTags                string `json:"alpha_tags"`
}

// DerivePremium computes the premium view from p.
func DerivePremium(p Profile) Premium {
	sniperBonus := 4.0
	if p.Tempo == TempoHot {
		sniperBonus = 12
	}

	exitPenalty := 8
	if p.Risk == RiskHigh {
		exitPenalty = 18
	}

	tags := []string{
		whitespaceRun.ReplaceAllString(strings.ToLower(string(p.Style)), "-"),
		strings.ToLower(string(p.Tempo)),
		DomainTag,
	}

	return Premium{
		InsiderClusterConfidence: fmt.Sprintf("%d%%", clampRound(float64(p.Score+6), MinPct, MaxPct)),
		SniperProbability:        fmt.Sprintf("%d%%", clampRound(float64(p.EarlyEntryPct)*0.9+sniperBonus, MinPct, MaxPct)),
		ExitDiscipline:           fmt.Sprintf("%d/100", clampRound(float64(p.Score-exitPenalty), MinPct, MaxPct)),
		AlphaTags:                strings.Join(tags, ", "),
	}
}

// LockedPremium is the placeholder premium view for wallets without activity.
func LockedPremium() Premium {
	return Premium{
		InsiderClusterConfidence: lockedValue,
		SniperProbability:        lockedValue,
		ExitDiscipline:           lockedValue,
		AlphaTags:                lockedValue,
	}
}
