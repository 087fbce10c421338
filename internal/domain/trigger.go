package domain

import "time"

// TriggerState records the confirmation progress of one policy toward payout.
// SamplesBelow counts consecutive sub-trigger price observations;
// FirstBelow is set on the first such observation and cleared on recovery.
//
// Invariant: SamplesBelow == 0 exactly when FirstBelow is nil.
type TriggerState struct {
	PolicyID     int64      `json:"policy_id"`
	FirstBelow   *time.Time `json:"first_below_timestamp,omitempty"`
	SamplesBelow int        `json:"samples_below"`
	LastCheck    time.Time  `json:"last_check_timestamp"`
}

// Observe folds one price sample into the state. A sample is sub-trigger when
// price < trigger strictly; a sample at or above trigger resets the counter.
func (t TriggerState) Observe(subTrigger bool, now time.Time) TriggerState {
	t.LastCheck = now
	if !subTrigger {
		t.SamplesBelow = 0
		t.FirstBelow = nil
		return t
	}
	if t.SamplesBelow == 0 {
		first := now
		t.FirstBelow = &first
	}
	t.SamplesBelow++
	return t
}

// Confirmed reports whether the state has accumulated at least the required
// number of consecutive sub-trigger samples.
func (t TriggerState) Confirmed(required int) bool {
	if required < 1 {
		required = 1
	}
	return t.SamplesBelow >= required
}
