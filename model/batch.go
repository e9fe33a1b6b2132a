package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// BatchStatus tracks where a batch sits in its lifecycle. Consumed is
// terminal; a consumed batch stays on the ledger as a lineage node.
type BatchStatus uint8

const (
	StatusCreated BatchStatus = iota
	StatusInTransit
	StatusReceived
	StatusConsumed
)

var statusLabels = map[BatchStatus]string{
	StatusCreated:   "created",
	StatusInTransit: "in_transit",
	StatusReceived:  "received",
	StatusConsumed:  "consumed",
}

func (s BatchStatus) String() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "unknown"
}

// Terminal reports whether the status admits no further custody operations.
func (s BatchStatus) Terminal() bool {
	return s == StatusConsumed
}

// ParseBatchStatus maps a status label back to its value.
func ParseBatchStatus(s string) (BatchStatus, error) {
	for status, label := range statusLabels {
		if label == s {
			return status, nil
		}
	}
	return StatusCreated, fmt.Errorf("unknown batch status %q", s)
}

// MarshalJSON renders the status as its label, mirroring Role.
func (s BatchStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *BatchStatus) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	status, err := ParseBatchStatus(label)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Batch is the authoritative current-state record for a quantity of goods.
// The ledger assigns IDs monotonically at creation; history lives in the
// event log, not here.
type Batch struct {
	ID             uint64      `json:"id"`
	Creator        string      `json:"creator"`
	Origin         string      `json:"origin"`
	ContentHash    string      `json:"content_hash"`
	Quantity       uint64      `json:"quantity"`
	TrackingCode   string      `json:"tracking_code"`
	Status         BatchStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	CurrentHandler string      `json:"current_handler"`
	// TxRef is the reference of the ledger transaction that last changed
	// this record.
	TxRef string `json:"tx_ref"`
}

// PendingTransfer is the ephemeral half-open custody handoff. At most one
// exists per batch; only To may resolve it.
type PendingTransfer struct {
	BatchID     uint64    `json:"batch_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	InitiatedAt time.Time `json:"initiated_at"`
}

// BatchSpec describes a batch to be minted by split, merge, or transform.
// Merge ignores Quantity and derives the output quantity from its inputs.
type BatchSpec struct {
	Origin       string `json:"origin"`
	Quantity     uint64 `json:"quantity"`
	TrackingCode string `json:"tracking_code"`
	ContentHash  string `json:"content_hash"`
}

// SumQuantities totals the quantities of a child-spec list. ok is false when
// the sum does not fit in uint64; a wrapped total must never reach a quantity
// comparison.
func SumQuantities(specs []BatchSpec) (total uint64, ok bool) {
	for _, spec := range specs {
		if spec.Quantity > math.MaxUint64-total {
			return 0, false
		}
		total += spec.Quantity
	}
	return total, true
}
