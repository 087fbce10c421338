package domain

import "time"

// PolicyStatus tracks the lifecycle of a policy.
type PolicyStatus string

const (
	PolicyStatusActive    PolicyStatus = "active"
	PolicyStatusTriggered PolicyStatus = "triggered"
	PolicyStatusExpired   PolicyStatus = "expired"
	PolicyStatusClaimed   PolicyStatus = "claimed"
)

// Policy is a single parametric insurance contract. It is created by the
// purchase path and thereafter mutated only by the claims monitor (status
// transitions and payout fields).
type Policy struct {
	ID             int64        `json:"id"`
	Holder         string       `json:"holder"`
	Beneficiary    string       `json:"beneficiary,omitempty"`
	Product        ProductKey   `json:"product"`
	CoverageCents  int64        `json:"coverage_amount"`
	PremiumCents   int64        `json:"premium_paid"`
	TriggerPrice   float64      `json:"trigger_price"`
	FloorPrice     float64      `json:"floor_price"`
	StartTime      int64        `json:"start_time"`
	ExpiryTime     int64        `json:"expiry_time"`
	Status         PolicyStatus `json:"status"`
	PayoutCents    int64        `json:"payout_amount,omitempty"`
	PayoutTime     int64        `json:"payout_time,omitempty"`
}

// Payee returns the address payouts are sent to: the beneficiary when set,
// otherwise the holder.
func (p Policy) Payee() string {
	if p.Beneficiary != "" {
		return p.Beneficiary
	}
	return p.Holder
}

// Expired reports whether the policy's expiry time has passed at now.
func (p Policy) Expired(now time.Time) bool {
	return now.Unix() >= p.ExpiryTime
}

// ValidatePriceBand checks the trigger/floor relationship required of every
// policy: 0 < floor < trigger <= 1.0.
func (p Policy) ValidatePriceBand() error {
	if !(p.FloorPrice > 0 && p.FloorPrice < p.TriggerPrice && p.TriggerPrice <= 1.0) {
		return ErrValidation
	}
	return nil
}
