package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePremium(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    Premium
	}{
		{
			name:    "hot high-risk cluster trader",
			profile: Profile{Score: 93, EarlyEntryPct: 50, Tempo: TempoHot, Risk: RiskHigh, Style: StyleClusterTrader},
			want: Premium{
				InsiderClusterConfidence: "99%",
				SniperProbability:        "57%",
				ExitDiscipline:           "75/100",
				AlphaTags:                "cluster-trader, hot, solana-memes",
			},
		},
		{
			name:    "cold low-risk holder",
			profile: Profile{Score: 47, EarlyEntryPct: 0, Tempo: TempoCold, Risk: RiskLow, Style: StyleHolder},
			want: Premium{
				InsiderClusterConfidence: "53%",
				SniperProbability:        "4%",
				ExitDiscipline:           "39/100",
				AlphaTags:                "holder, cold, solana-memes",
			},
		},
		{
			name:    "clamped at both ends",
			profile: Profile{Score: 5, EarlyEntryPct: 100, Tempo: TempoHot, Risk: RiskHigh, Style: StyleSniper},
			want: Premium{
				InsiderClusterConfidence: "11%",
				SniperProbability:        "100%",
				ExitDiscipline:           "0/100",
				AlphaTags:                "sniper-like, hot, solana-memes",
			},
		},
		{
			name:    "insider confidence capped",
			profile: Profile{Score: 99, EarlyEntryPct: 10, Tempo: TempoActive, Risk: RiskMed, Style: StyleWhale},
			want: Premium{
				InsiderClusterConfidence: "100%",
				SniperProbability:        "13%",
				ExitDiscipline:           "91/100",
				AlphaTags:                "whale-like, active, solana-memes",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DerivePremium(tt.profile))
		})
	}
}

func TestLockedPremium(t *testing.T) {
	locked := LockedPremium()
	assert.Equal(t, "—", locked.InsiderClusterConfidence)
	assert.Equal(t, "—", locked.SniperProbability)
	assert.Equal(t, "—", locked.ExitDiscipline)
	assert.Equal(t, "—", locked.AlphaTags)
}
