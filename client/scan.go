package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Report is the result of a wallet scan.
type Report struct {
	Wallet               string   `json:"wallet"`
	TxScanned            int      `json:"tx_scanned"`
	ActiveTokens         int      `json:"active_tokens"`
	UniqueCounterparties int      `json:"unique_counterparties"`
	LastActivity         *string  `json:"last_activity"`
	LastActivityUnix     *int64   `json:"last_activity_unix"`
	EarlyEntryPct        int      `json:"early_entry_pct"`
	Tempo                string   `json:"tempo"`
	Risk                 string   `json:"risk"`
	Style                string   `json:"style"`
	Score                int      `json:"score"`
	Confidence           int      `json:"confidence"`
	DNA                  string   `json:"dna"`
	Patterns             string   `json:"patterns"`
	Tokens               []Token  `json:"tokens"`
	Premium              *Premium `json:"premium"`
}

// Token is the market enrichment of one mint. Symbol is nil when the
// lookup failed.
type Token struct {
	Mint           string   `json:"mint"`
	Symbol         *string  `json:"symbol"`
	Dex            string   `json:"dex"`
	LiquidityUSD   *float64 `json:"liquidity_usd,omitempty"`
	FDVUSD         *float64 `json:"fdv_usd,omitempty"`
	Volume24hUSD   *float64 `json:"volume24h_usd,omitempty"`
	PriceChange24h *string  `json:"price_change_24h,omitempty"`
}

// Premium holds the derived premium signals.
type Premium struct {
	InsiderClusterConfidence string `json:"insider_cluster_confidence"`
	SniperProbability        string `json:"sniper_probability"`
	ExitDiscipline           string `json:"exit_discipline"`
	AlphaTags                string `json:"alpha_tags"`
}

// Scan asks the server to profile wallet.
func (c *Client) Scan(ctx context.Context, wallet string, premium bool) (*Report, error) {
	report, _, err := c.ScanRaw(ctx, wallet, premium)
	return report, err
}

// ScanRaw is Scan that also returns the undecoded response body.
func (c *Client) ScanRaw(ctx context.Context, wallet string, premium bool) (*Report, []byte, error) {
	query := url.Values{}
	query.Set("wallet", wallet)
	if premium {
		query.Set("premium", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scan?"+query.Encode(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, c.parseErrorResponse(resp)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("wallet scanned", "wallet", wallet, "score", report.Score)
	return &report, raw, nil
}
