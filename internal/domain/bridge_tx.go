package domain

import "time"

// BridgeTxStatus tracks the lifecycle of a cross-chain transfer.
type BridgeTxStatus string

const (
	BridgeTxPending   BridgeTxStatus = "pending"
	BridgeTxConfirmed BridgeTxStatus = "confirmed"
	BridgeTxCompleted BridgeTxStatus = "completed"
	BridgeTxFailed    BridgeTxStatus = "failed"
)

// BridgeTransaction is one monitored cross-chain transfer. The 5-second
// bridge-transactions loop publishes a status_update whenever a record is new
// or its status changed since the previous tick.
type BridgeTransaction struct {
	TxID        string         `json:"tx_id"`
	BridgeID    string         `json:"bridge_id"`
	SourceChain Chain          `json:"source_chain"`
	DestChain   Chain          `json:"dest_chain"`
	AmountCents int64          `json:"amount_usd"`
	Status      BridgeTxStatus `json:"status"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
