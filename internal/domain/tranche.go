package domain

import "time"

// TrancheYield is the per-tranche utilization and yield snapshot produced by
// the utilization tracker and streamed on the tranche_apy channel.
type TrancheYield struct {
	TrancheID          string    `json:"tranche_id"`
	APY                float64   `json:"apy"`         // fractional, e.g. 0.082
	Utilization        float64   `json:"utilization"` // coverage sold / capital
	TotalCapitalCents  int64     `json:"total_capital"`
	CoverageSoldCents  int64     `json:"coverage_sold"`
	LastUpdated        time.Time `json:"last_updated"`
}

// AvailableCapacityCents returns the coverage the tranche can still absorb.
func (t TrancheYield) AvailableCapacityCents() int64 {
	free := t.TotalCapitalCents - t.CoverageSoldCents
	if free < 0 {
		return 0
	}
	return free
}
