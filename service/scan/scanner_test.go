package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brojonat/clawsignal/service/dexscreener"
	"github.com/brojonat/clawsignal/service/metrics"
	"github.com/brojonat/clawsignal/service/nats"
	"github.com/brojonat/clawsignal/service/profile"
	"github.com/brojonat/clawsignal/service/solana"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1_700_000_000, 0)

type fakeFetcher struct {
	txns  []solana.Transaction
	err   error
	calls int
}

func (f *fakeFetcher) GetTransactions(ctx context.Context, wallet string) ([]solana.Transaction, error) {
	f.calls++
	return f.txns, f.err
}

// fakeMarket serves pairs by mint; mints without an entry fail.
type fakeMarket struct {
	mu       sync.Mutex
	pairs    map[string]*dexscreener.Pair
	delay    time.Duration
	looked   []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeMarket) LookupToken(ctx context.Context, mint string) (*dexscreener.Pair, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.looked = append(f.looked, mint)
	pair, ok := f.pairs[mint]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, dexscreener.ErrNoPairs
	}
	return pair, nil
}

type fixedRand int

func (f fixedRand) Intn(n int) int { return int(f) % n }

func newTestScanner(fetcher TransactionFetcher, market MarketData, pub nats.Publisher, opts Options) (*Scanner, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	computer := profile.NewComputer(profile.DefaultRules(),
		profile.WithClock(func() time.Time { return testNow }),
		profile.WithRand(fixedRand(0)),
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScanner(fetcher, market, computer, pub, opts, metrics.NewMetrics(reg), logger)
	s.now = func() time.Time { return testNow }
	return s, reg
}

func defaultOptions() Options {
	return Options{MaxTokens: 6, Concurrency: 6, EnrichTimeout: time.Second}
}

func ptr[T any](v T) *T { return &v }

// walletHistory builds n transactions that touch the given mints in order.
func walletHistory(n int, mints []string, lastTs int64) []solana.Transaction {
	txns := make([]solana.Transaction, n)
	for i := range txns {
		txns[i] = solana.Transaction{FeePayer: "walletA"}
	}
	for i, mint := range mints {
		tx := &txns[i%n]
		tx.TokenTransfers = append(tx.TokenTransfers, solana.TokenTransfer{
			Mint:            mint,
			FromUserAccount: fmt.Sprintf("cp-%d", i),
			ToUserAccount:   "walletA",
		})
	}
	txns[0].Timestamp = ptr(lastTs)
	return txns
}

func TestScan_EmptyHistory(t *testing.T) {
	for _, premium := range []bool{false, true} {
		t.Run(fmt.Sprintf("premium=%v", premium), func(t *testing.T) {
			market := &fakeMarket{}
			s, _ := newTestScanner(&fakeFetcher{}, market, nil, defaultOptions())

			r, err := s.Scan(context.Background(), "walletA", premium)
			require.NoError(t, err)

			assert.Equal(t, "walletA", r.Wallet)
			assert.Equal(t, 0, r.TxScanned)
			assert.Equal(t, 0, r.ActiveTokens)
			assert.Nil(t, r.LastActivity)
			assert.Nil(t, r.LastActivityUnix)
			assert.Equal(t, 0, r.EarlyEntryPct)
			assert.Equal(t, profile.TempoCold, r.Tempo)
			assert.Equal(t, profile.RiskLow, r.Risk)
			assert.Equal(t, profile.StyleHolder, r.Style)
			assert.Equal(t, 40, r.Score)
			assert.Equal(t, 35, r.Confidence)
			assert.Equal(t, EmptyDNA, r.DNA)
			assert.Equal(t, EmptyPatterns, r.Patterns)
			assert.NotNil(t, r.Tokens)
			assert.Empty(t, r.Tokens)
			assert.Empty(t, market.looked, "no enrichment on the empty path")

			if premium {
				require.NotNil(t, r.Premium)
				assert.Equal(t, profile.LockedPremium(), *r.Premium)
			} else {
				assert.Nil(t, r.Premium)
			}
		})
	}
}

func TestScan_EmptyReportJSONShape(t *testing.T) {
	s, _ := newTestScanner(&fakeFetcher{}, &fakeMarket{}, nil, defaultOptions())

	r, err := s.Scan(context.Background(), "walletA", false)
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{
		"wallet", "tx_scanned", "active_tokens", "unique_counterparties",
		"last_activity", "last_activity_unix", "early_entry_pct", "tempo",
		"risk", "style", "score", "confidence", "dna", "patterns", "tokens", "premium",
	} {
		assert.Contains(t, decoded, key)
	}
	assert.Nil(t, decoded["last_activity"])
	assert.Nil(t, decoded["premium"])
	assert.Equal(t, []any{}, decoded["tokens"])
}

func TestScan_NormalPath(t *testing.T) {
	mints := []string{"m1", "m2", "m3"}
	lastTs := testNow.Unix() - 2*3600
	fetcher := &fakeFetcher{txns: walletHistory(10, mints, lastTs)}
	market := &fakeMarket{pairs: map[string]*dexscreener.Pair{
		"m1": {BaseSymbol: "ONE", DexID: "raydium", LiquidityUSD: ptr(1000.0), FDV: ptr(5e6), Volume24h: ptr(250.5), PriceChange24h: ptr(12.5)},
		"m2": {BaseName: "Two Token"},
	}}
	s, reg := newTestScanner(fetcher, market, nil, defaultOptions())

	r, err := s.Scan(context.Background(), "walletA", false)
	require.NoError(t, err)

	assert.Equal(t, 10, r.TxScanned)
	assert.Equal(t, 3, r.ActiveTokens)
	assert.Equal(t, 4, r.UniqueCounterparties, "walletA plus three senders")
	require.NotNil(t, r.LastActivityUnix)
	assert.Equal(t, lastTs, *r.LastActivityUnix)
	require.NotNil(t, r.LastActivity)
	assert.Equal(t, "Nov 14, 08:13 PM", *r.LastActivity)
	assert.Equal(t, profile.TempoHot, r.Tempo)
	assert.Nil(t, r.Premium)

	require.Len(t, r.Tokens, 3)

	one := r.Tokens[0]
	assert.Equal(t, "m1", one.Mint)
	require.NotNil(t, one.Symbol)
	assert.Equal(t, "ONE", *one.Symbol)
	assert.Equal(t, "raydium", one.Dex)
	assert.Equal(t, 1000.0, *one.LiquidityUSD)
	assert.Equal(t, 5e6, *one.FDVUSD)
	assert.Equal(t, 250.5, *one.Volume24hUSD)
	require.NotNil(t, one.PriceChange24h)
	assert.Equal(t, "12.5%", *one.PriceChange24h)

	two := r.Tokens[1]
	require.NotNil(t, two.Symbol)
	assert.Equal(t, "Two Token", *two.Symbol, "name backs up a missing symbol")
	assert.Equal(t, DefaultDex, two.Dex)
	assert.Nil(t, two.LiquidityUSD)
	assert.Nil(t, two.PriceChange24h)

	assert.Equal(t, degradedToken("m3"), r.Tokens[2])

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP wallet_scans_total Total number of completed wallet scans by assembly path
# TYPE wallet_scans_total counter
wallet_scans_total{path="normal",premium="false"} 1
`), "wallet_scans_total"))
	count, err := testutil.GatherAndCount(reg, "token_enrichments_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "ok and degraded series")
}

func TestScan_PremiumOnlyWhenRequested(t *testing.T) {
	fetcher := &fakeFetcher{txns: walletHistory(5, []string{"m1"}, testNow.Unix())}

	s, _ := newTestScanner(fetcher, &fakeMarket{}, nil, defaultOptions())

	r, err := s.Scan(context.Background(), "walletA", true)
	require.NoError(t, err)
	require.NotNil(t, r.Premium)
	assert.NotEqual(t, "—", r.Premium.InsiderClusterConfidence)
	assert.Equal(t, profile.DerivePremium(profile.Profile{
		Score:         r.Score,
		EarlyEntryPct: r.EarlyEntryPct,
		Tempo:         r.Tempo,
		Risk:          r.Risk,
		Style:         r.Style,
	}), *r.Premium)

	r, err = s.Scan(context.Background(), "walletA", false)
	require.NoError(t, err)
	assert.Nil(t, r.Premium)
}

func TestScan_EnrichesAtMostSixInOrder(t *testing.T) {
	var mints []string
	pairs := map[string]*dexscreener.Pair{}
	for i := 0; i < 15; i++ {
		mint := fmt.Sprintf("mint-%02d", i)
		mints = append(mints, mint)
		pairs[mint] = &dexscreener.Pair{BaseSymbol: fmt.Sprintf("SYM%d", i)}
	}
	fetcher := &fakeFetcher{txns: walletHistory(40, mints, testNow.Unix())}
	market := &fakeMarket{pairs: pairs, delay: 10 * time.Millisecond}
	s, _ := newTestScanner(fetcher, market, nil, Options{MaxTokens: 6, Concurrency: 2, EnrichTimeout: time.Second})

	r, err := s.Scan(context.Background(), "walletA", false)
	require.NoError(t, err)

	assert.Equal(t, 15, r.ActiveTokens)
	require.Len(t, r.Tokens, 6)
	for i, tok := range r.Tokens {
		assert.Equal(t, fmt.Sprintf("mint-%02d", i), tok.Mint)
		require.NotNil(t, tok.Symbol)
		assert.Equal(t, fmt.Sprintf("SYM%d", i), *tok.Symbol)
	}
	assert.Len(t, market.looked, 6)
	assert.LessOrEqual(t, market.peak.Load(), int32(2))
}

func TestScan_EnrichmentTimeoutDegradesOnlyThatToken(t *testing.T) {
	fetcher := &fakeFetcher{txns: walletHistory(5, []string{"slow", "fast"}, testNow.Unix())}
	market := &slowMarket{slowMint: "slow"}
	s, _ := newTestScanner(fetcher, market, nil, Options{MaxTokens: 6, Concurrency: 6, EnrichTimeout: 30 * time.Millisecond})

	r, err := s.Scan(context.Background(), "walletA", false)
	require.NoError(t, err)

	require.Len(t, r.Tokens, 2)
	assert.True(t, r.Tokens[0].Degraded())
	assert.Equal(t, DefaultDex, r.Tokens[0].Dex)
	assert.False(t, r.Tokens[1].Degraded())
}

func TestScan_NullTimestampsLeaveLastActivityUnset(t *testing.T) {
	txns := solana.DecodeTransactions([]byte(`[
		{"timestamp": null, "feePayer": "walletA"},
		{"timestamp": null, "feePayer": "walletA"}
	]`))
	s, _ := newTestScanner(&fakeFetcher{txns: txns}, &fakeMarket{}, nil, defaultOptions())

	r, err := s.Scan(context.Background(), "walletA", false)
	require.NoError(t, err)

	assert.Equal(t, 2, r.TxScanned)
	assert.Nil(t, r.LastActivity)
	assert.Nil(t, r.LastActivityUnix)
}

func TestNewScanner_CapsMaxTokens(t *testing.T) {
	var mints []string
	for i := 0; i < 10; i++ {
		mints = append(mints, fmt.Sprintf("mint-%02d", i))
	}
	fetcher := &fakeFetcher{txns: walletHistory(20, mints, testNow.Unix())}
	market := &fakeMarket{}
	s, _ := newTestScanner(fetcher, market, nil, Options{MaxTokens: 10, Concurrency: 6, EnrichTimeout: time.Second})

	r, err := s.Scan(context.Background(), "walletA", false)
	require.NoError(t, err)

	assert.Len(t, r.Tokens, 6)
	assert.Len(t, market.looked, 6)
}

func TestScan_CallerCancellationStopsEnrichment(t *testing.T) {
	fetcher := &fakeFetcher{txns: walletHistory(5, []string{"m1", "m2", "m3"}, testNow.Unix())}
	market := &blockingMarket{started: make(chan struct{}, 3)}
	s, _ := newTestScanner(fetcher, market, nil, Options{MaxTokens: 6, Concurrency: 6, EnrichTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-market.started
		cancel()
	}()

	start := time.Now()
	r, err := s.Scan(ctx, "walletA", false)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, r.Tokens, 3)
	for _, tok := range r.Tokens {
		assert.True(t, tok.Degraded(), tok.Mint)
	}
}

// blockingMarket blocks every lookup until its context ends.
type blockingMarket struct {
	started chan struct{}
}

func (m *blockingMarket) LookupToken(ctx context.Context, mint string) (*dexscreener.Pair, error) {
	select {
	case m.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type slowMarket struct {
	slowMint string
}

func (m *slowMarket) LookupToken(ctx context.Context, mint string) (*dexscreener.Pair, error) {
	if mint == m.slowMint {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &dexscreener.Pair{BaseSymbol: "FAST"}, nil
}

func TestScan_FetchErrorAborts(t *testing.T) {
	upstream := &solana.UpstreamError{StatusCode: 429, Message: "rate limited"}
	market := &fakeMarket{}
	s, _ := newTestScanner(&fakeFetcher{err: upstream}, market, nil, defaultOptions())

	r, err := s.Scan(context.Background(), "walletA", true)
	require.Error(t, err)
	assert.Nil(t, r)

	var upErr *solana.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, 429, upErr.StatusCode)
	assert.Empty(t, market.looked)
}

func TestScan_PublishesEvent(t *testing.T) {
	pub := nats.NewMockPublisher()
	fetcher := &fakeFetcher{txns: walletHistory(5, []string{"m1", "m2"}, testNow.Unix()-60)}
	market := &fakeMarket{pairs: map[string]*dexscreener.Pair{"m1": {BaseSymbol: "ONE"}}}
	s, _ := newTestScanner(fetcher, market, pub, defaultOptions())

	r, err := s.Scan(context.Background(), "walletA", true)
	require.NoError(t, err)

	events := pub.GetEventsForWallet("walletA")
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, r.Score, e.Score)
	assert.Equal(t, string(r.Style), e.Style)
	assert.Equal(t, 1, e.TokensEnriched)
	assert.Equal(t, 1, e.TokensDegraded)
	assert.True(t, e.Premium)
	require.NotNil(t, e.LastActivity)
	assert.Equal(t, testNow.Unix()-60, e.LastActivity.Unix())
	assert.Equal(t, "scans.walletA", e.Subject())
}

func TestScan_PublishFailureIsIgnored(t *testing.T) {
	pub := nats.NewMockPublisher()
	pub.SetPublishError(errors.New("nats down"))
	fetcher := &fakeFetcher{txns: walletHistory(3, nil, testNow.Unix())}
	s, _ := newTestScanner(fetcher, &fakeMarket{}, pub, defaultOptions())

	r, err := s.Scan(context.Background(), "walletA", false)
	require.NoError(t, err)
	assert.Equal(t, 3, r.TxScanned)
	assert.Empty(t, pub.GetPublishedEvents())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "12.5%", FormatPercent(12.5))
	assert.Equal(t, "-3%", FormatPercent(-3))
	assert.Equal(t, "0%", FormatPercent(0))
	assert.Equal(t, "0.001%", FormatPercent(0.001))

	assert.Equal(t, "Jan 01, 12:00 AM", FormatLastActivity(0))
	assert.Equal(t, "Nov 14, 10:13 PM", FormatLastActivity(1_700_000_000))
}
