package hedge

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

type fakeMarkets struct {
	markets []BinaryMarket
	err     error
}

func (f *fakeMarkets) ListMarkets(context.Context, domain.ProductKey) ([]BinaryMarket, error) {
	return f.markets, f.err
}

type fakeFunding struct {
	rate float64
	err  error
}

func (f *fakeFunding) FundingRateHourly(context.Context, string) (float64, error) {
	return f.rate, f.err
}

type fakeQuoter struct {
	quote domain.VenueQuote
	err   error
}

func (f *fakeQuoter) Quote(context.Context, domain.ProductKey, int64) (domain.VenueQuote, error) {
	return f.quote, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCostFetcher_PicksCheapestEligibleMarket(t *testing.T) {
	cfg := hedgeConfig()
	farOut := time.Now().AddDate(1, 0, 0)
	markets := &fakeMarkets{markets: []BinaryMarket{
		{ID: "cheap-but-thin", YesPrice: 0.01, LiquidityCents: 1, Expiry: farOut},
		{ID: "cheap-but-expiring", YesPrice: 0.02, LiquidityCents: 100_000_000, Expiry: time.Now().Add(time.Hour)},
		{ID: "best", YesPrice: 0.05, LiquidityCents: 100_000_000, Expiry: farOut},
		{ID: "pricier", YesPrice: 0.08, LiquidityCents: 100_000_000, Expiry: farOut},
	}}

	f := NewCostFetcher(cfg, markets, nil, nil, nil, discard())
	bd, err := f.FetchCosts(context.Background(), bridgeTON, 100_000_000)
	require.NoError(t, err)

	// Polymarket slice = 100M * 0.20 * 0.30 = 6M cents; cost at 0.05 = 300k.
	require.NotNil(t, bd.PolymarketCents)
	assert.Equal(t, int64(300_000), *bd.PolymarketCents)
}

func TestCostFetcher_NoEligibleMarketMeansNoPolymarketLeg(t *testing.T) {
	cfg := hedgeConfig()
	markets := &fakeMarkets{markets: []BinaryMarket{
		{ID: "thin", YesPrice: 0.05, LiquidityCents: 10, Expiry: time.Now().AddDate(1, 0, 0)},
	}}

	f := NewCostFetcher(cfg, markets, nil, nil, nil, discard())
	bd, err := f.FetchCosts(context.Background(), bridgeTON, 100_000_000)
	require.NoError(t, err)
	assert.Nil(t, bd.PolymarketCents)
}

func TestCostFetcher_PerpCostIsFundingPlusSlippage(t *testing.T) {
	cfg := hedgeConfig()
	funding := &fakeFunding{rate: 0.00001}

	f := NewCostFetcher(cfg, nil, funding, nil, nil, discard())
	bd, err := f.FetchCosts(context.Background(), bridgeTON, 100_000_000)
	require.NoError(t, err)

	// Slice = 6M cents. Funding over 30d: 0.00001 * 720 = 0.0072; slippage
	// 7.5bps = 0.00075. Cost = 6M * 0.00795 = 47,700.
	require.NotNil(t, bd.BinanceCents)
	assert.Equal(t, int64(47_700), *bd.BinanceCents)
	assert.Nil(t, bd.HyperliquidCents)
}

func TestCostFetcher_AllianzFallsBackOnQuoteFailure(t *testing.T) {
	cfg := hedgeConfig()
	reinsure := &fakeQuoter{err: errors.New("reinsurer down")}

	f := NewCostFetcher(cfg, nil, nil, nil, reinsure, discard())
	bd, err := f.FetchCosts(context.Background(), bridgeTON, 100_000_000)
	require.NoError(t, err)

	// Allianz slice = 100M * 0.20 * 0.10 = 2M cents; bridge fallback rate 6%.
	require.NotNil(t, bd.AllianzCents)
	assert.Equal(t, int64(120_000), *bd.AllianzCents)
}

func TestCostFetcher_TotalsAndEffectiveAddition(t *testing.T) {
	cfg := hedgeConfig()
	quoted := int64(50_000)
	reinsure := &fakeQuoter{quote: domain.VenueQuote{CostCents: quoted}}
	funding := &fakeFunding{rate: 0.00001}

	f := NewCostFetcher(cfg, nil, funding, funding, reinsure, discard())
	bd, err := f.FetchCosts(context.Background(), bridgeTON, 100_000_000)
	require.NoError(t, err)

	want := quoted + 2*47_700
	assert.Equal(t, want, bd.TotalCents)
	assert.InDelta(t, float64(want)/100_000_000, bd.EffectivePremiumAddition, 1e-12)
}
