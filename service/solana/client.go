package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brojonat/clawsignal/service/metrics"
)

const (
	providerName = "helius"

	// maxResponseBytes bounds how much of a provider response is read.
	maxResponseBytes = 10 << 20
)

// UpstreamError is returned when the transaction-history provider answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// TransportError wraps a failure to obtain any response from the provider
// (DNS, connection reset, timeout, cancelled context).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transaction history request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL    string        // e.g. https://api.helius.xyz/v0
	APIKey     string        // sent as the api-key query parameter
	Limit      int           // records requested per fetch
	Timeout    time.Duration // budget for a single fetch
	HTTPClient *http.Client  // optional
}

// Client fetches enhanced transaction history for a wallet.
type Client struct {
	baseURL    string
	apiKey     string
	limit      int
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a new transaction-history client.
// If metrics is nil, no metrics will be recorded.
func NewClient(opts ClientOptions, m *metrics.Metrics, logger *slog.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		limit:      opts.Limit,
		timeout:    opts.Timeout,
		httpClient: httpClient,
		metrics:    m,
		logger:     logger,
	}
}

// GetTransactions fetches the most recent window of transactions for wallet,
// in provider order. A 2xx body that is not a JSON array yields zero
// transactions and no error.
func (c *Client) GetTransactions(ctx context.Context, wallet string) ([]Transaction, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	query := url.Values{}
	query.Set("api-key", c.apiKey)
	query.Set("limit", strconv.Itoa(c.limit))
	u := fmt.Sprintf("%s/addresses/%s/transactions?%s", c.baseURL, url.PathEscape(wallet), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "fetching wallet transactions",
		"wallet", wallet,
		"limit", c.limit,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordRequest(0, start)
		c.logger.WarnContext(ctx, "transaction history request failed",
			"wallet", wallet,
			"error", err,
		)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.recordRequest(resp.StatusCode, start)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upErr := &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body, resp.StatusCode),
		}
		c.logger.WarnContext(ctx, "transaction history provider returned error",
			"wallet", wallet,
			"status", resp.StatusCode,
			"message", upErr.Message,
		)
		return nil, upErr
	}

	txns := DecodeTransactions(body)
	if c.metrics != nil {
		c.metrics.RecordTransactionsFetched(len(txns))
	}

	c.logger.DebugContext(ctx, "fetched wallet transactions",
		"wallet", wallet,
		"count", len(txns),
	)

	return txns, nil
}

func (c *Client) recordRequest(statusCode int, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(providerName, statusCode, time.Since(start).Seconds())
	}
}

// errorMessage extracts a human readable message from an error body.
// It prefers an "error" string field, then "message", then "HTTP <status>".
func errorMessage(body []byte, statusCode int) string {
	var errResp struct {
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if msg := optString(errResp.Error); msg != "" {
			return msg
		}
		if msg := optString(errResp.Message); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}
