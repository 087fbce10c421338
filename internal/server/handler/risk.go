package handler

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// RiskHandler serves portfolio exposure and risk-alert endpoints from shared
// state. It never recomputes; the risk monitor loop owns the snapshot.
type RiskHandler struct {
	state  *state.State
	logger *slog.Logger
}

// NewRiskHandler creates a RiskHandler over the shared state.
func NewRiskHandler(st *state.State, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{state: st, logger: logHandler(logger, "risk")}
}

type exposureRow struct {
	Key           string `json:"key"`
	ExposureCents int64  `json:"exposure_usd"`
	PolicyCount   int    `json:"policy_count"`
}

// Exposure breaks the active book down along each product dimension.
// GET /api/v2/risk/exposure
func (h *RiskHandler) Exposure(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Pool.Snapshot()

	byCoverage := map[string]*exposureRow{}
	byChain := map[string]*exposureRow{}
	byStable := map[string]*exposureRow{}
	for _, p := range snap.ActivePolicies {
		accumulate(byCoverage, string(p.Product.Coverage), p.CoverageCents)
		accumulate(byChain, string(p.Product.Chain), p.CoverageCents)
		accumulate(byStable, string(p.Product.Stablecoin), p.CoverageCents)
	}

	var top []domain.ProductRank
	if rs, ok := h.state.RiskSnapshot(); ok {
		top = rs.TopProducts
	}
	if top == nil {
		top = []domain.ProductRank{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"by_coverage_type": sortedRows(byCoverage),
		"by_chain":         sortedRows(byChain),
		"by_stablecoin":    sortedRows(byStable),
		"top_10_products":  top,
		"total_policies":   len(snap.ActivePolicies),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

// Alerts returns the latest snapshot's breach and warning alerts, optionally
// filtered by severity and alert_type.
// GET /api/v2/risk/alerts?severity=Critical&alert_type=ltv_breach
func (h *RiskHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.state.RiskSnapshot()
	alerts := []domain.RiskAlert{}
	if ok {
		alerts = append(alerts, snap.BreachAlerts...)
		alerts = append(alerts, snap.WarningAlerts...)
	}

	q := r.URL.Query()
	if sev := q.Get("severity"); sev != "" {
		alerts = filterAlerts(alerts, func(a domain.RiskAlert) bool {
			return string(a.Severity) == sev
		})
	}
	if kind := q.Get("alert_type"); kind != "" {
		alerts = filterAlerts(alerts, func(a domain.RiskAlert) bool {
			return string(a.Kind) == kind
		})
	}

	critical := 0
	for _, a := range alerts {
		if a.Severity == domain.SeverityCritical {
			critical++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts":         alerts,
		"total_alerts":   len(alerts),
		"critical_count": critical,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func accumulate(m map[string]*exposureRow, key string, cents int64) {
	row, ok := m[key]
	if !ok {
		row = &exposureRow{Key: key}
		m[key] = row
	}
	row.ExposureCents += cents
	row.PolicyCount++
}

// sortedRows flattens an aggregation map ordered by exposure descending, key
// ascending on ties.
func sortedRows(m map[string]*exposureRow) []exposureRow {
	rows := make([]exposureRow, 0, len(m))
	for _, r := range m {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ExposureCents != rows[j].ExposureCents {
			return rows[i].ExposureCents > rows[j].ExposureCents
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

func filterAlerts(alerts []domain.RiskAlert, keep func(domain.RiskAlert) bool) []domain.RiskAlert {
	out := alerts[:0:0]
	for _, a := range alerts {
		if keep(a) {
			out = append(out, a)
		}
	}
	if out == nil {
		out = []domain.RiskAlert{}
	}
	return out
}
