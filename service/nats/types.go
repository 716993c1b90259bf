package nats

import (
	"time"
)

// ScanEvent summarizes one completed wallet scan.
// It is published to the subject "scans.{wallet}".
type ScanEvent struct {
	Wallet    string `json:"wallet"`
	TxScanned int    `json:"tx_scanned"`

	// Profile summary
	Score      int    `json:"score"`
	Confidence int    `json:"confidence"`
	Tempo      string `json:"tempo"`
	Risk       string `json:"risk"`
	Style      string `json:"style"`

	// Enrichment summary
	TokensEnriched int `json:"tokens_enriched"`
	TokensDegraded int `json:"tokens_degraded"`

	Premium bool `json:"premium"`

	LastActivity *time.Time `json:"last_activity,omitempty"`
	ScannedAt    time.Time  `json:"scanned_at"`
}

// Subject returns the subject the event is published on.
func (e *ScanEvent) Subject() string {
	return SubjectPrefix + e.Wallet
}
