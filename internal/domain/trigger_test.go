package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerState_ObserveAccumulatesAndResets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := TriggerState{PolicyID: 7}

	st = st.Observe(true, now)
	require.NotNil(t, st.FirstBelow)
	assert.Equal(t, now, *st.FirstBelow)
	assert.Equal(t, 1, st.SamplesBelow)

	// FirstBelow pins to the first sub-trigger sample.
	later := now.Add(time.Minute)
	st = st.Observe(true, later)
	assert.Equal(t, now, *st.FirstBelow)
	assert.Equal(t, 2, st.SamplesBelow)
	assert.Equal(t, later, st.LastCheck)

	// Recovery clears the streak entirely.
	st = st.Observe(false, later.Add(time.Minute))
	assert.Nil(t, st.FirstBelow)
	assert.Zero(t, st.SamplesBelow)
}

func TestTriggerState_Confirmed(t *testing.T) {
	st := TriggerState{SamplesBelow: 2}

	assert.True(t, st.Confirmed(2))
	assert.True(t, st.Confirmed(1))
	assert.False(t, st.Confirmed(3))

	// A non-positive requirement degrades to one sample.
	assert.True(t, TriggerState{SamplesBelow: 1}.Confirmed(0))
	assert.False(t, TriggerState{}.Confirmed(0))
}

func TestPolicy_ValidatePriceBand(t *testing.T) {
	tests := []struct {
		name    string
		trigger float64
		floor   float64
		wantErr bool
	}{
		{"typical depeg band", 0.95, 0.85, false},
		{"trigger at parity", 1.0, 0.50, false},
		{"floor equals trigger", 0.95, 0.95, true},
		{"floor above trigger", 0.90, 0.95, true},
		{"zero floor", 0.95, 0, true},
		{"trigger above parity", 1.01, 0.85, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Policy{TriggerPrice: tt.trigger, FloorPrice: tt.floor}
			err := p.ValidatePriceBand()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicy_PayeeAndExpiry(t *testing.T) {
	p := Policy{Holder: "0xholder", ExpiryTime: 1000}
	assert.Equal(t, "0xholder", p.Payee())

	p.Beneficiary = "0xbene"
	assert.Equal(t, "0xbene", p.Payee())

	assert.False(t, p.Expired(time.Unix(999, 0)))
	assert.True(t, p.Expired(time.Unix(1000, 0)))
	assert.True(t, p.Expired(time.Unix(1001, 0)))
}
