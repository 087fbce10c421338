package domain

import "time"

// Severity grades monitoring alerts.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// HealthStatus buckets a bridge health score for the read API.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "Healthy"
	HealthCaution  HealthStatus = "Caution"
	HealthWarning  HealthStatus = "Warning"
	HealthCritical HealthStatus = "Critical"
)

// BridgeAlert is one alert raised against a bridge.
type BridgeAlert struct {
	AlertID   string    `json:"alert_id"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

// BridgeHealth is the monitored state of one cross-chain bridge. One record
// exists per known bridge; the bridge monitor loop replaces the set each tick.
type BridgeHealth struct {
	BridgeID         string        `json:"bridge_id"`
	SourceChain      Chain         `json:"source_chain"`
	DestChain        Chain         `json:"dest_chain"`
	HealthScore      float64       `json:"health_score"` // in [0,1]
	CurrentTVLCents  int64         `json:"current_tvl"`
	PreviousTVLCents int64         `json:"previous_tvl"`
	ExploitDetected  bool          `json:"exploit_detected"`
	Alerts           []BridgeAlert `json:"alerts"`
	LastUpdated      time.Time     `json:"last_updated"`
}

// Status maps the health score onto the public four-level status.
// Thresholds: >=0.9 Healthy, >=0.7 Caution, >=0.5 Warning, else Critical.
func (b BridgeHealth) Status() HealthStatus {
	switch {
	case b.HealthScore >= 0.9:
		return HealthHealthy
	case b.HealthScore >= 0.7:
		return HealthCaution
	case b.HealthScore >= 0.5:
		return HealthWarning
	default:
		return HealthCritical
	}
}

// TVLChangePct returns the percentage change of TVL against the previous
// observation. A first-seen bridge (previous TVL 0) reports 0.
func (b BridgeHealth) TVLChangePct() float64 {
	if b.PreviousTVLCents == 0 {
		return 0
	}
	return (float64(b.CurrentTVLCents) - float64(b.PreviousTVLCents)) / float64(b.PreviousTVLCents) * 100
}

// ActiveAlerts counts unresolved alerts.
func (b BridgeHealth) ActiveAlerts() int {
	n := 0
	for _, a := range b.Alerts {
		if !a.Resolved {
			n++
		}
	}
	return n
}
