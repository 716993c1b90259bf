// Package dexscreener looks up market data for token mints.
package dexscreener

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/clawsignal/service/metrics"
)

const (
	providerName     = "dexscreener"
	maxResponseBytes = 5 << 20
)

// ErrNoPairs is returned when the provider knows no trading pair for a mint.
var ErrNoPairs = errors.New("no trading pairs for mint")

// Pair is the subset of a trading pair used for enrichment.
// Numeric fields are nil when the provider omits them or sends a non-number.
type Pair struct {
	BaseSymbol     string
	BaseName       string
	DexID          string
	LiquidityUSD   *float64
	FDV            *float64
	Volume24h      *float64
	PriceChange24h *float64
}

// Client queries the market-data provider.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a new market-data client. timeout bounds each lookup.
// If httpClient is nil a default client is used; if metrics is nil, no metrics are recorded.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
		metrics:    m,
		logger:     logger,
	}
}

// LookupToken returns the most liquid pair for mint. Ties keep the pair
// listed first. Any transport failure, non-2xx status, or body that is not a
// JSON object is an error; an empty or absent pair list is ErrNoPairs.
func (c *Client) LookupToken(ctx context.Context, mint string) (*Pair, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := fmt.Sprintf("%s/tokens/%s", c.baseURL, url.PathEscape(mint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordRequest(0, start)
		return nil, fmt.Errorf("token lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.recordRequest(resp.StatusCode, start)
	if err != nil {
		return nil, fmt.Errorf("failed to read token lookup response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("token lookup returned HTTP %d", resp.StatusCode)
	}

	pairs, err := decodePairs(body)
	if err != nil {
		return nil, err
	}

	best := bestPair(pairs)
	if best == nil {
		return nil, ErrNoPairs
	}

	c.logger.DebugContext(ctx, "resolved token pair",
		"mint", mint,
		"dex", best.DexID,
		"pairs", len(pairs),
	)

	return best, nil
}

func (c *Client) recordRequest(statusCode int, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(providerName, statusCode, time.Since(start).Seconds())
	}
}

// pairResponse mirrors one element of the provider's pairs array.
type pairResponse struct {
	BaseToken struct {
		Symbol flexString `json:"symbol"`
		Name   flexString `json:"name"`
	} `json:"baseToken"`
	DexID     flexString `json:"dexId"`
	Liquidity struct {
		USD flexNumber `json:"usd"`
	} `json:"liquidity"`
	FDV    flexNumber `json:"fdv"`
	Volume struct {
		H24 flexNumber `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 flexNumber `json:"h24"`
	} `json:"priceChange"`
}

// decodePairs extracts the pairs of a token response. Elements that are not
// objects are skipped; a missing or non-array pairs field yields no pairs.
func decodePairs(body []byte) ([]Pair, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("token lookup response is not a JSON object")
	}

	var envelope struct {
		Pairs json.RawMessage `json:"pairs"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode token lookup response: %w", err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(envelope.Pairs, &raws); err != nil {
		return nil, nil
	}

	pairs := make([]Pair, 0, len(raws))
	for _, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		// Mistyped nested fields leave their zero value; the rest still decodes.
		var pr pairResponse
		if err := json.Unmarshal(raw, &pr); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				continue
			}
		}
		pairs = append(pairs, Pair{
			BaseSymbol:     string(pr.BaseToken.Symbol),
			BaseName:       string(pr.BaseToken.Name),
			DexID:          string(pr.DexID),
			LiquidityUSD:   pr.Liquidity.USD.amount(),
			FDV:            pr.FDV.amount(),
			Volume24h:      pr.Volume.H24.amount(),
			PriceChange24h: pr.PriceChange.H24.ptr(),
		})
	}
	return pairs, nil
}

// bestPair returns the pair with the greatest liquidity; absent liquidity counts as zero.
func bestPair(pairs []Pair) *Pair {
	var best *Pair
	for i := range pairs {
		if best == nil || liquidity(&pairs[i]) > liquidity(best) {
			best = &pairs[i]
		}
	}
	return best
}

func liquidity(p *Pair) float64 {
	if p.LiquidityUSD == nil {
		return 0
	}
	return *p.LiquidityUSD
}

// flexString decodes a JSON string; any other JSON type decodes to "".
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = flexString(v)
	return nil
}

// flexNumber decodes a finite JSON number or numeric string; anything else is
// absent. An explicit null is absent too but remembered, see amount.
type flexNumber struct {
	value float64
	valid bool
	null  bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	*n = flexNumber{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.null = true
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*n = flexNumber{value: f, valid: true}
	return nil
}

func (n flexNumber) ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}

// amount is ptr for USD amounts, where an explicit null counts as zero.
func (n flexNumber) amount() *float64 {
	if n.null {
		zero := 0.0
		return &zero
	}
	return n.ptr()
}
