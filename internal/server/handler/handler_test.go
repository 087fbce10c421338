package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func postJSON(t *testing.T, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// --- quote ---

func TestQuote_DepegEthereumUSDC(t *testing.T) {
	h := NewQuoteHandler(discard())
	req := postJSON(t, "/api/v2/quote/multi-dimensional", `{
		"coverage_type": "depeg",
		"chain": "Ethereum",
		"stablecoin": "USDC",
		"coverage_amount": 10000,
		"duration_days": 90
	}`)
	rec := httptest.NewRecorder()
	h.Quote(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.InDelta(t, 19.726, body["premium"].(float64), 0.001)
	assert.Len(t, body["product_hash"], 64)
}

func TestQuote_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{`, "invalid JSON"},
		{"unknown coverage", `{"coverage_type":"weather","chain":"Ethereum","stablecoin":"USDC","coverage_amount":1,"duration_days":30}`, "coverage_type"},
		{"unknown chain", `{"coverage_type":"depeg","chain":"Mars","stablecoin":"USDC","coverage_amount":1,"duration_days":30}`, "chain"},
		{"unknown stablecoin", `{"coverage_type":"depeg","chain":"Ethereum","stablecoin":"DOGE","coverage_amount":1,"duration_days":30}`, "stablecoin"},
		{"zero amount", `{"coverage_type":"depeg","chain":"Ethereum","stablecoin":"USDC","coverage_amount":0,"duration_days":30}`, "coverage_amount"},
		{"duration too long", `{"coverage_type":"depeg","chain":"Ethereum","stablecoin":"USDC","coverage_amount":1,"duration_days":366}`, "duration_days"},
	}
	h := NewQuoteHandler(discard())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Quote(rec, postJSON(t, "/api/v2/quote/multi-dimensional", tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestQuote_UnknownCoverageCarriesHint(t *testing.T) {
	h := NewQuoteHandler(discard())
	rec := httptest.NewRecorder()
	h.Quote(rec, postJSON(t, "/api/v2/quote/multi-dimensional",
		`{"coverage_type":"weather","chain":"Ethereum","stablecoin":"USDC","coverage_amount":1,"duration_days":30}`))

	body := decodeBody(t, rec)
	assert.Contains(t, body["hint"], "depeg")
}

// --- policy ---

type memPolicyStore struct {
	policies  map[int64]domain.Policy
	createErr error
}

func newMemPolicyStore() *memPolicyStore {
	return &memPolicyStore{policies: make(map[int64]domain.Policy)}
}

func (s *memPolicyStore) Create(_ context.Context, p domain.Policy) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.policies[p.ID] = p
	return nil
}

func (s *memPolicyStore) Get(_ context.Context, id int64) (domain.Policy, error) {
	p, ok := s.policies[id]
	if !ok {
		return domain.Policy{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *memPolicyStore) ListActive(context.Context) ([]domain.Policy, error) { return nil, nil }

func (s *memPolicyStore) Update(_ context.Context, p domain.Policy) error {
	s.policies[p.ID] = p
	return nil
}

const purchaseBody = `{
	"holder": "EQHolder",
	"coverage_type": "depeg",
	"chain": "Ethereum",
	"stablecoin": "USDC",
	"coverage_amount": 10000,
	"duration_days": 90,
	"trigger_price": 0.97,
	"floor_price": 0.90
}`

func TestPurchase_BooksAndPersists(t *testing.T) {
	pool := state.NewPool(100_000_000)
	store := newMemPolicyStore()
	h := NewPolicyHandler(pool, store, nil, discard())

	rec := httptest.NewRecorder()
	h.Purchase(rec, postJSON(t, "/api/v2/policies", purchaseBody))

	require.Equal(t, http.StatusCreated, rec.Code)
	snap := pool.Snapshot()
	require.Len(t, snap.ActivePolicies, 1)
	assert.Equal(t, int64(1_000_000), snap.ActivePolicies[0].CoverageCents)
	assert.Len(t, store.policies, 1)
}

func TestPurchase_NilStoreReturns503(t *testing.T) {
	h := NewPolicyHandler(state.NewPool(100_000_000), nil, nil, discard())

	rec := httptest.NewRecorder()
	h.Purchase(rec, postJSON(t, "/api/v2/policies", purchaseBody))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPurchase_InvalidPriceBandRejected(t *testing.T) {
	h := NewPolicyHandler(state.NewPool(100_000_000), newMemPolicyStore(), nil, discard())

	body := strings.Replace(purchaseBody, `"floor_price": 0.90`, `"floor_price": 0.98`, 1)
	rec := httptest.NewRecorder()
	h.Purchase(rec, postJSON(t, "/api/v2/policies", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "floor_price < trigger_price")
}

func TestPurchase_OverCapacityConflicts(t *testing.T) {
	pool := state.NewPool(50_000) // $500 capital, $10k coverage requested
	h := NewPolicyHandler(pool, newMemPolicyStore(), nil, discard())

	rec := httptest.NewRecorder()
	h.Purchase(rec, postJSON(t, "/api/v2/policies", purchaseBody))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, pool.Snapshot().ActivePolicies)
}

func TestPurchase_StoreFailureRollsBackBooking(t *testing.T) {
	pool := state.NewPool(100_000_000)
	store := newMemPolicyStore()
	store.createErr = errors.New("connection reset")
	h := NewPolicyHandler(pool, store, nil, discard())

	rec := httptest.NewRecorder()
	h.Purchase(rec, postJSON(t, "/api/v2/policies", purchaseBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, pool.Snapshot().ActivePolicies)
}

func TestPurchase_MissingHolderRejected(t *testing.T) {
	h := NewPolicyHandler(state.NewPool(100_000_000), newMemPolicyStore(), nil, discard())

	body := strings.Replace(purchaseBody, `"holder": "EQHolder",`, "", 1)
	rec := httptest.NewRecorder()
	h.Purchase(rec, postJSON(t, "/api/v2/policies", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyGet_FromPoolThenStore(t *testing.T) {
	pool := state.NewPool(100_000_000)
	store := newMemPolicyStore()
	h := NewPolicyHandler(pool, store, nil, discard())

	live := domain.Policy{
		ID: 1, Holder: "a",
		Product:       domain.ProductKey{Coverage: domain.CoverageDepeg, Chain: domain.ChainEthereum, Stablecoin: domain.StableUSDC},
		CoverageCents: 1000,
	}
	require.NoError(t, pool.AddPolicy(live))
	store.policies[2] = domain.Policy{ID: 2, Status: domain.PolicyStatusClaimed}

	req := httptest.NewRequest(http.MethodGet, "/api/v2/policies/1", nil)
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"holder":"a"`)

	req = httptest.NewRequest(http.MethodGet, "/api/v2/policies/2", nil)
	req.SetPathValue("id", "2")
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.PolicyStatusClaimed))

	req = httptest.NewRequest(http.MethodGet, "/api/v2/policies/99", nil)
	req.SetPathValue("id", "99")
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- bridge ---

func TestBridgeHealth(t *testing.T) {
	st := state.New(state.NewPool(0))
	st.SetBridgeStates(map[string]domain.BridgeHealth{
		"ton-eth": {
			BridgeID:        "ton-eth",
			HealthScore:     0.85,
			CurrentTVLCents: 500_000_000,
			LastUpdated:     time.Now().UTC(),
		},
	})
	h := NewBridgeHandler(st, discard())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/bridge-health/ton-eth", nil)
	req.SetPathValue("bridge_id", "ton-eth")
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 0.85, body["health_score"])
	assert.Equal(t, 5_000_000.0, body["tvl_usd"])
}

func TestBridgeHealth_UnknownBridge404(t *testing.T) {
	h := NewBridgeHandler(state.New(state.NewPool(0)), discard())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/bridge-health/nope", nil)
	req.SetPathValue("bridge_id", "nope")
	rec := httptest.NewRecorder()
	h.Health(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- status ---

type fixedClientCount int

func (c fixedClientCount) ClientCount() int { return int(c) }

type fixedStatsLimiter struct{ stats domain.LimiterStats }

func (l fixedStatsLimiter) Allow(context.Context, string, int, time.Duration) (domain.LimitDecision, error) {
	return domain.LimitDecision{Allowed: true}, nil
}

func (l fixedStatsLimiter) Stats() domain.LimiterStats { return l.stats }

func TestGetStatus(t *testing.T) {
	st := state.New(state.NewPool(0))
	st.MarkAlive("bridge_health")
	limiter := fixedStatsLimiter{stats: domain.LimiterStats{TotalRequests: 12, BlockedRequests: 3}}
	h := NewStatusHandler("serve", st, fixedClientCount(4), limiter)

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v2/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "serve", body["mode"])
	loops := body["loops"].(map[string]any)
	assert.Contains(t, loops, "bridge_health")
	assert.Equal(t, 4.0, body["ws_clients"])
	rl := body["rate_limiter"].(map[string]any)
	assert.Equal(t, 12.0, rl["total_requests"])
	assert.Equal(t, 3.0, rl["blocked_requests"])
}

func TestGetStatus_OptionalSectionsOmitted(t *testing.T) {
	h := NewStatusHandler("monitor", state.New(state.NewPool(0)), nil, nil)

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v2/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotContains(t, body, "ws_clients")
	assert.NotContains(t, body, "rate_limiter")
}

// --- admin ---

type staticKeys []domain.APIKeyInfo

func (s staticKeys) List() []domain.APIKeyInfo { return s }

func TestAdminListKeys(t *testing.T) {
	expiry := time.Now().UTC().Add(time.Hour)
	h := NewAdminHandler(staticKeys{
		{KeyHash: strings.Repeat("ab", 32), Name: "ops", Scopes: []domain.Scope{domain.ScopeAdmin}, ExpiresAt: &expiry},
		{KeyHash: strings.Repeat("cd", 32), Name: "revoked", Revoked: true},
	}, discard())

	rec := httptest.NewRecorder()
	h.ListKeys(rec, httptest.NewRequest(http.MethodGet, "/api/v2/admin/keys", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 2.0, body["count"])
	rows := body["keys"].([]any)
	first := rows[0].(map[string]any)
	// Hashes are truncated for display.
	assert.Len(t, first["key_hash_prefix"], 12)
	second := rows[1].(map[string]any)
	assert.Equal(t, false, second["usable"])
}

// --- hedge ---

type stubPositions struct {
	open []domain.HedgePosition
	err  error
}

func (s stubPositions) Create(context.Context, domain.HedgePosition) error { return nil }
func (s stubPositions) Get(context.Context, string) (domain.HedgePosition, error) {
	return domain.HedgePosition{}, domain.ErrNotFound
}
func (s stubPositions) ListOpen(context.Context) ([]domain.HedgePosition, error) {
	return s.open, s.err
}
func (s stubPositions) ListOpenByPolicy(_ context.Context, policyID int64) ([]domain.HedgePosition, error) {
	var out []domain.HedgePosition
	for _, p := range s.open {
		if p.PolicyID == policyID {
			out = append(out, p)
		}
	}
	return out, s.err
}
func (s stubPositions) Update(context.Context, domain.HedgePosition) error { return nil }

type stubCosts struct {
	breakdown domain.HedgeCostBreakdown
	err       error
}

func (s stubCosts) FetchCosts(context.Context, domain.ProductKey, int64) (domain.HedgeCostBreakdown, error) {
	return s.breakdown, s.err
}

func TestHedgePositions_TotalsAndFilter(t *testing.T) {
	positions := stubPositions{open: []domain.HedgePosition{
		{PositionID: "p1", PolicyID: 1, HedgeCents: 300},
		{PositionID: "p2", PolicyID: 2, HedgeCents: 200},
	}}
	h := NewHedgeHandler(positions, nil, discard())

	rec := httptest.NewRecorder()
	h.Positions(rec, httptest.NewRequest(http.MethodGet, "/api/v2/hedge/positions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 2.0, body["count"])
	assert.Equal(t, 500.0, body["total_hedged_cents"])

	rec = httptest.NewRecorder()
	h.Positions(rec, httptest.NewRequest(http.MethodGet, "/api/v2/hedge/positions?policy_id=2", nil))
	body = decodeBody(t, rec)
	assert.Equal(t, 1.0, body["count"])
	assert.Equal(t, 200.0, body["total_hedged_cents"])
}

func TestHedgePositions_NilStore503(t *testing.T) {
	h := NewHedgeHandler(nil, nil, discard())
	rec := httptest.NewRecorder()
	h.Positions(rec, httptest.NewRequest(http.MethodGet, "/api/v2/hedge/positions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHedgePositions_BadPolicyID(t *testing.T) {
	h := NewHedgeHandler(stubPositions{}, nil, discard())
	rec := httptest.NewRecorder()
	h.Positions(rec, httptest.NewRequest(http.MethodGet, "/api/v2/hedge/positions?policy_id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHedgeCosts(t *testing.T) {
	h := NewHedgeHandler(nil, stubCosts{breakdown: domain.HedgeCostBreakdown{TotalCents: 4200}}, discard())

	rec := httptest.NewRecorder()
	h.Costs(rec, httptest.NewRequest(http.MethodGet,
		"/api/v2/hedge/costs?coverage_type=depeg&chain=Ethereum&stablecoin=USDC&coverage_amount=100000", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "4200")
}

func TestHedgeCosts_UpstreamFailure502(t *testing.T) {
	h := NewHedgeHandler(nil, stubCosts{err: domain.ErrNetwork}, discard())

	rec := httptest.NewRecorder()
	h.Costs(rec, httptest.NewRequest(http.MethodGet,
		"/api/v2/hedge/costs?coverage_type=depeg&chain=Ethereum&stablecoin=USDC&coverage_amount=100000", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHedgeCosts_InvalidProduct(t *testing.T) {
	h := NewHedgeHandler(nil, stubCosts{}, discard())

	rec := httptest.NewRecorder()
	h.Costs(rec, httptest.NewRequest(http.MethodGet,
		"/api/v2/hedge/costs?coverage_type=weather&chain=Ethereum&stablecoin=USDC&coverage_amount=1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- risk ---

func TestRiskExposure_AggregatesDimensions(t *testing.T) {
	pool := state.NewPool(1_000_000_000)
	require.NoError(t, pool.AddPolicy(domain.Policy{
		ID:            1,
		Product:       domain.ProductKey{Coverage: domain.CoverageDepeg, Chain: domain.ChainEthereum, Stablecoin: domain.StableUSDC},
		CoverageCents: 60_000_000,
	}))
	require.NoError(t, pool.AddPolicy(domain.Policy{
		ID:            2,
		Product:       domain.ProductKey{Coverage: domain.CoverageBridge, Chain: domain.ChainEthereum, Stablecoin: domain.StableUSDT},
		CoverageCents: 40_000_000,
	}))
	h := NewRiskHandler(state.New(pool), discard())

	rec := httptest.NewRecorder()
	h.Exposure(rec, httptest.NewRequest(http.MethodGet, "/api/v2/risk/exposure", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 2.0, body["total_policies"])

	byChain := body["by_chain"].([]any)
	require.Len(t, byChain, 1)
	row := byChain[0].(map[string]any)
	assert.Equal(t, "Ethereum", row["key"])
	assert.Equal(t, 100_000_000.0, row["exposure_usd"])
	assert.Equal(t, 2.0, row["policy_count"])

	byCoverage := body["by_coverage_type"].([]any)
	require.Len(t, byCoverage, 2)
	assert.Equal(t, "depeg", byCoverage[0].(map[string]any)["key"])
}

func TestRiskAlerts_Filtering(t *testing.T) {
	st := state.New(state.NewPool(0))
	st.SetRiskSnapshot(domain.RiskSnapshot{
		BreachAlerts: []domain.RiskAlert{
			{Kind: domain.AlertLTVBreach, Severity: domain.SeverityCritical, Message: "ltv"},
		},
		WarningAlerts: []domain.RiskAlert{
			{Kind: domain.AlertConcentrationHigh, Severity: domain.SeverityMedium, Message: "conc"},
		},
	})
	h := NewRiskHandler(st, discard())

	rec := httptest.NewRecorder()
	h.Alerts(rec, httptest.NewRequest(http.MethodGet, "/api/v2/risk/alerts", nil))
	body := decodeBody(t, rec)
	assert.Equal(t, 2.0, body["total_alerts"])
	assert.Equal(t, 1.0, body["critical_count"])

	rec = httptest.NewRecorder()
	h.Alerts(rec, httptest.NewRequest(http.MethodGet, "/api/v2/risk/alerts?severity=Critical", nil))
	body = decodeBody(t, rec)
	assert.Equal(t, 1.0, body["total_alerts"])

	rec = httptest.NewRecorder()
	h.Alerts(rec, httptest.NewRequest(http.MethodGet, "/api/v2/risk/alerts?alert_type=concentration_high", nil))
	body = decodeBody(t, rec)
	assert.Equal(t, 1.0, body["total_alerts"])
	assert.Equal(t, 0.0, body["critical_count"])
}

func TestRiskAlerts_NoSnapshotEmpty(t *testing.T) {
	h := NewRiskHandler(state.New(state.NewPool(0)), discard())

	rec := httptest.NewRecorder()
	h.Alerts(rec, httptest.NewRequest(http.MethodGet, "/api/v2/risk/alerts", nil))
	body := decodeBody(t, rec)
	assert.Equal(t, 0.0, body["total_alerts"])
}

// --- tranche ---

func TestTrancheAPY(t *testing.T) {
	st := state.New(state.NewPool(0))
	st.SetTranches([]domain.TrancheYield{
		{TrancheID: "junior", APY: 0.25, Utilization: 1.0, TotalCapitalCents: 200_000, CoverageSoldCents: 200_000, LastUpdated: time.Now().UTC()},
	})
	h := NewTrancheHandler(st, discard())

	rec := httptest.NewRecorder()
	h.APY(rec, httptest.NewRequest(http.MethodGet, "/api/v2/tranches/apy", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	rows := body["tranches"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "junior", row["tranche_id"])
	assert.Equal(t, 0.25, row["apy"])
	assert.Equal(t, 0.0, row["available_capacity_ton"])
}

// --- health ---

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(discard())
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "tonsurance-core", body["service"])
}
