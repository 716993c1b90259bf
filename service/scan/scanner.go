// Package scan assembles wallet reports from transaction history and market data.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brojonat/clawsignal/service/config"
	"github.com/brojonat/clawsignal/service/dexscreener"
	"github.com/brojonat/clawsignal/service/metrics"
	"github.com/brojonat/clawsignal/service/nats"
	"github.com/brojonat/clawsignal/service/profile"
	"github.com/brojonat/clawsignal/service/solana"
)

// TransactionFetcher returns the recent transactions of a wallet.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, wallet string) ([]solana.Transaction, error)
}

// MarketData resolves the best trading pair of a mint.
type MarketData interface {
	LookupToken(ctx context.Context, mint string) (*dexscreener.Pair, error)
}

// Options bound the token enrichment fan-out.
type Options struct {
	MaxTokens     int
	Concurrency   int
	EnrichTimeout time.Duration
}

// Scanner runs the scan pipeline for one wallet at a time. It holds no
// per-request state and is safe for concurrent use.
type Scanner struct {
	fetcher   TransactionFetcher
	market    MarketData
	computer  *profile.Computer
	publisher nats.Publisher
	opts      Options
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewScanner creates a Scanner. publisher and metrics may be nil. MaxTokens is
// capped at config.MaxEnrichTokens.
func NewScanner(
	fetcher TransactionFetcher,
	market MarketData,
	computer *profile.Computer,
	publisher nats.Publisher,
	opts Options,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Scanner {
	opts.MaxTokens = min(max(opts.MaxTokens, 0), config.MaxEnrichTokens)
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Scanner{
		fetcher:   fetcher,
		market:    market,
		computer:  computer,
		publisher: publisher,
		opts:      opts,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Scan fetches the wallet's transactions and builds its report. premium
// controls whether the premium block is populated. Fetch errors abort the
// scan; enrichment errors only degrade the affected token.
func (s *Scanner) Scan(ctx context.Context, wallet string, premium bool) (*Report, error) {
	txns, err := s.fetcher.GetTransactions(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	if len(txns) == 0 {
		s.logger.InfoContext(ctx, "no transactions for wallet", "wallet", wallet)
		s.recordScan("empty", premium)
		return emptyReport(wallet, premium), nil
	}

	signals := profile.ExtractSignals(txns)
	p := s.computer.Compute(signals)

	var premiumBlock *profile.Premium
	if premium {
		derived := profile.DerivePremium(p)
		premiumBlock = &derived
	}

	tokens := s.enrichTokens(ctx, signals.UniqueMints)

	report := &Report{
		Wallet:               wallet,
		TxScanned:            signals.TxScanned,
		ActiveTokens:         signals.TokenCount(),
		UniqueCounterparties: signals.UniqueCounterparties,
		LastActivityUnix:     signals.LastTimestamp,
		EarlyEntryPct:        p.EarlyEntryPct,
		Tempo:                p.Tempo,
		Risk:                 p.Risk,
		Style:                p.Style,
		Score:                p.Score,
		Confidence:           p.Confidence,
		DNA:                  p.DNA,
		Patterns:             p.Patterns,
		Tokens:               tokens,
		Premium:              premiumBlock,
	}
	if signals.LastTimestamp != nil {
		formatted := FormatLastActivity(*signals.LastTimestamp)
		report.LastActivity = &formatted
	}

	s.recordScan("normal", premium)
	if s.metrics != nil {
		s.metrics.RecordProfileScore(p.Score)
	}

	s.logger.InfoContext(ctx, "wallet scanned",
		"wallet", wallet,
		"tx_scanned", report.TxScanned,
		"active_tokens", report.ActiveTokens,
		"score", report.Score,
		"style", report.Style,
	)

	s.publish(ctx, report)

	return report, nil
}

// enrichTokens looks up at most MaxTokens mints concurrently. The result
// keeps the order of mints; a failed lookup yields a degraded token.
func (s *Scanner) enrichTokens(ctx context.Context, mints []string) []Token {
	if len(mints) > s.opts.MaxTokens {
		mints = mints[:s.opts.MaxTokens]
	}
	tokens := make([]Token, len(mints))
	if len(mints) == 0 {
		return tokens
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	for i, mint := range mints {
		g.Go(func() error {
			tokens[i] = s.enrichToken(ctx, mint)
			return nil
		})
	}
	// Lookups never return errors to the group; failures are degraded in place.
	_ = g.Wait()

	return tokens
}

func (s *Scanner) enrichToken(ctx context.Context, mint string) Token {
	lookupCtx := ctx
	if s.opts.EnrichTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, s.opts.EnrichTimeout)
		defer cancel()
	}

	pair, err := s.market.LookupToken(lookupCtx, mint)
	if err != nil || pair == nil {
		s.logger.DebugContext(ctx, "token enrichment degraded", "mint", mint, "error", err)
		s.recordEnrichment("degraded")
		return degradedToken(mint)
	}

	s.recordEnrichment("ok")
	return tokenFromPair(mint, pair)
}

func tokenFromPair(mint string, pair *dexscreener.Pair) Token {
	symbol := pair.BaseSymbol
	if symbol == "" {
		symbol = pair.BaseName
	}
	if symbol == "" {
		symbol = DefaultSymbol
	}

	dex := pair.DexID
	if dex == "" {
		dex = DefaultDex
	}

	t := Token{
		Mint:         mint,
		Symbol:       &symbol,
		Dex:          dex,
		LiquidityUSD: pair.LiquidityUSD,
		FDVUSD:       pair.FDV,
		Volume24hUSD: pair.Volume24h,
	}
	if pair.PriceChange24h != nil {
		change := FormatPercent(*pair.PriceChange24h)
		t.PriceChange24h = &change
	}
	return t
}

// FormatPercent renders v in its shortest decimal form followed by "%".
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// FormatLastActivity renders a unix timestamp as "Jan 02, 03:04 PM" in UTC.
func FormatLastActivity(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(LastActivityLayout)
}

// publish sends the scan summary. Failures are logged and never reach the caller.
func (s *Scanner) publish(ctx context.Context, r *Report) {
	if s.publisher == nil {
		return
	}

	event := &nats.ScanEvent{
		Wallet:     r.Wallet,
		TxScanned:  r.TxScanned,
		Score:      r.Score,
		Confidence: r.Confidence,
		Tempo:      string(r.Tempo),
		Risk:       string(r.Risk),
		Style:      string(r.Style),
		Premium:    r.Premium != nil,
		ScannedAt:  s.now().UTC(),
	}
	for _, t := range r.Tokens {
		if t.Degraded() {
			event.TokensDegraded++
		} else {
			event.TokensEnriched++
		}
	}
	if r.LastActivityUnix != nil {
		last := time.Unix(*r.LastActivityUnix, 0).UTC()
		event.LastActivity = &last
	}

	if err := s.publisher.PublishScan(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish scan event",
			"wallet", r.Wallet,
			"error", err,
		)
	}
}

func (s *Scanner) recordScan(path string, premium bool) {
	if s.metrics != nil {
		s.metrics.RecordScan(path, premium)
	}
}

func (s *Scanner) recordEnrichment(result string) {
	if s.metrics != nil {
		s.metrics.RecordTokenEnrichment(result)
	}
}
