package domain

import "time"

// AlertKind is the closed set of risk alert categories.
type AlertKind string

const (
	AlertLTVBreach         AlertKind = "ltv_breach"
	AlertReserveLow        AlertKind = "reserve_low"
	AlertConcentrationHigh AlertKind = "concentration_high"
	AlertCorrelationSpike  AlertKind = "correlation_spike"
	AlertStressLossHigh    AlertKind = "stress_loss_high"
	AlertVaRBreach         AlertKind = "var_breach"
)

// RiskAlert is one breach or warning produced by the risk calculator.
type RiskAlert struct {
	Kind         AlertKind `json:"alert_type"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	CurrentValue float64   `json:"current_value"`
	LimitValue   float64   `json:"limit_value"`
	Timestamp    time.Time `json:"timestamp"`
}

// SameAs reports whether two alerts describe the same condition: identical
// message text with timestamps within ten seconds. Used for new-alert diffing
// between consecutive snapshots.
func (a RiskAlert) SameAs(b RiskAlert) bool {
	if a.Message != b.Message {
		return false
	}
	d := a.Timestamp.Sub(b.Timestamp)
	if d < 0 {
		d = -d
	}
	return d <= 10*time.Second
}

// ProductRank is one row of the top-products ranking.
type ProductRank struct {
	Product       ProductKey `json:"product"`
	ExposureCents int64      `json:"exposure_usd"`
	PolicyCount   int        `json:"policy_count"`
}

// RiskSnapshot is the full output of one risk-monitor cycle.
type RiskSnapshot struct {
	VaR95             int64         `json:"var_95"`
	VaR99             int64         `json:"var_99"`
	CVaR95            int64         `json:"cvar_95"`
	ExpectedLossCents int64         `json:"expected_loss"`
	LTV               float64       `json:"ltv"`
	ReserveRatio      float64       `json:"reserve_ratio"`
	MaxConcentration  float64       `json:"max_concentration"`
	BreachAlerts      []RiskAlert   `json:"breach_alerts"`
	WarningAlerts     []RiskAlert   `json:"warning_alerts"`
	TopProducts       []ProductRank `json:"top_10_products"`
	Timestamp         time.Time     `json:"timestamp"`
}

// SameRanking reports whether two rankings order the same product keys
// identically. Exposure values may differ; only the key sequence matters.
func SameRanking(a, b []ProductRank) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Product != b[i].Product {
			return false
		}
	}
	return true
}
