package scan

import (
	"github.com/brojonat/clawsignal/service/profile"
)

// LastActivityLayout formats the last activity timestamp (UTC).
const LastActivityLayout = "Jan 02, 03:04 PM"

// Narrative used when the fetch returned no transactions.
const (
	EmptyDNA      = "No transactions returned for this wallet in the scanned window."
	EmptyPatterns = "Try another wallet or increase limit in server function."
)

// Fixed profile values of the empty report.
const (
	EmptyScore      = 40
	EmptyConfidence = 35
)

// DefaultDex is reported when the market-data provider names no dex.
const DefaultDex = "solana"

// DefaultSymbol is reported when the best pair carries neither symbol nor name.
const DefaultSymbol = "TOKEN"

// Report is the response of one wallet scan. Its JSON shape is the same
// whether or not the wallet had transactions.
type Report struct {
	Wallet               string           `json:"wallet"`
	TxScanned            int              `json:"tx_scanned"`
	ActiveTokens         int              `json:"active_tokens"`
	UniqueCounterparties int              `json:"unique_counterparties"`
	LastActivity         *string          `json:"last_activity"`
	LastActivityUnix     *int64           `json:"last_activity_unix"`
	EarlyEntryPct        int              `json:"early_entry_pct"`
	Tempo                profile.Tempo    `json:"tempo"`
	Risk                 profile.Risk     `json:"risk"`
	Style                profile.Style    `json:"style"`
	Score                int              `json:"score"`
	Confidence           int              `json:"confidence"`
	DNA                  string           `json:"dna"`
	Patterns             string           `json:"patterns"`
	Tokens               []Token          `json:"tokens"`
	Premium              *profile.Premium `json:"premium"`
}

// Token is the market enrichment of one mint. A degraded token has a nil
// Symbol and no market fields.
type Token struct {
	Mint           string   `json:"mint"`
	Symbol         *string  `json:"symbol"`
	Dex            string   `json:"dex"`
	LiquidityUSD   *float64 `json:"liquidity_usd,omitempty"`
	FDVUSD         *float64 `json:"fdv_usd,omitempty"`
	Volume24hUSD   *float64 `json:"volume24h_usd,omitempty"`
	PriceChange24h *string  `json:"price_change_24h,omitempty"`
}

// Degraded reports whether the lookup for this mint failed.
func (t Token) Degraded() bool {
	return t.Symbol == nil
}

func degradedToken(mint string) Token {
	return Token{Mint: mint, Dex: DefaultDex}
}

// emptyReport is the canonical report for a wallet with no transactions.
func emptyReport(wallet string, premium bool) *Report {
	r := &Report{
		Wallet:     wallet,
		Tempo:      profile.TempoCold,
		Risk:       profile.RiskLow,
		Style:      profile.StyleHolder,
		Score:      EmptyScore,
		Confidence: EmptyConfidence,
		DNA:        EmptyDNA,
		Patterns:   EmptyPatterns,
		Tokens:     []Token{},
	}
	if premium {
		locked := profile.LockedPremium()
		r.Premium = &locked
	}
	return r
}
