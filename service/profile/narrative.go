package profile

import "math/rand"

// Rand is the random source used to pick narrative text.
// *rand.Rand satisfies it; tests pass a seeded one.
type Rand interface {
	Intn(n int) int
}

// globalRand uses the goroutine-safe top-level math/rand source.
type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }

// DNAPool holds the trading-DNA flavor lines.
var DNAPool = []string{
	"Fast rotations across memecoins with selective sizing.",
	"Prefers early momentum entries and trims into strength.",
	"Skews toward high-liquidity pairs; avoids dead pools.",
	"Trades in clusters; counterparties suggest coordinated flows.",
	"Probes with small buys before adding size on confirmation.",
}

// PatternPool holds the observed-pattern flavor lines.
var PatternPool = []string{
	"Repeated bursts of activity around new pairs.",
	"Swap density suggests momentum-chasing with quick exits.",
	"Counterparty diversity indicates aggregator-heavy routing.",
	"Activity clusters align with volatility windows.",
	"Concentration hints at thematic rotation (memes → majors).",
}

func pick(r Rand, pool []string) string {
	return pool[r.Intn(len(pool))]
}
