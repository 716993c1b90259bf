package profile

import (
	"github.com/brojonat/clawsignal/service/solana"
)

// MaxUniqueMints caps how many distinct mints are retained per scan.
const MaxUniqueMints = 20

// Signals are the behavioral aggregates derived from one transaction window.
type Signals struct {
	TxScanned            int
	UniqueMints          []string // first-seen order, at most MaxUniqueMints
	UniqueCounterparties int      // distinct non-empty account ids
	LastTimestamp        *int64   // max observed unix seconds, nil if none
}

// TokenCount is the number of distinct mints retained.
func (s Signals) TokenCount() int {
	return len(s.UniqueMints)
}

// ExtractSignals aggregates txns in a single forward pass, in provider order.
func ExtractSignals(txns []solana.Transaction) Signals {
	var (
		lastTs         *int64
		mints          []string
		counterparties []string
	)

	for _, tx := range txns {
		if tx.Timestamp != nil && (lastTs == nil || *tx.Timestamp > *lastTs) {
			ts := *tx.Timestamp
			lastTs = &ts
		}

		counterparties = append(counterparties, tx.FeePayer)
		for _, nt := range tx.NativeTransfers {
			counterparties = append(counterparties, nt.FromUserAccount, nt.ToUserAccount)
		}
		for _, tt := range tx.TokenTransfers {
			mints = append(mints, tt.Mint)
			counterparties = append(counterparties, tt.FromUserAccount, tt.ToUserAccount)
		}
	}

	return Signals{
		TxScanned:            len(txns),
		UniqueMints:          firstSeen(mints, MaxUniqueMints),
		UniqueCounterparties: countDistinct(counterparties),
		LastTimestamp:        lastTs,
	}
}

// firstSeen deduplicates values preserving first occurrence, dropping empty
// ids and stopping once limit values are kept.
func firstSeen(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, min(limit, len(values)))
	for _, v := range values {
		if len(out) == limit {
			break
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func countDistinct(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}
