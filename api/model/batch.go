package model

import (
	"github.com/chainproof/chainproof/model"
)

// AssignRole registers the acting account under a role label.
type AssignRole struct {
	Account string `json:"account"`
	Role    string `json:"role"`
}

// HarvestBatch mints a root batch. ContentHash may be empty; a placeholder
// reference is minted until metadata is uploaded.
type HarvestBatch struct {
	Actor        string `json:"actor"`
	Origin       string `json:"origin"`
	Quantity     uint64 `json:"quantity"`
	TrackingCode string `json:"tracking_code"`
	ContentHash  string `json:"content_hash"`
}

// ChildSpec describes one child batch minted by a split.
type ChildSpec struct {
	Origin       string `json:"origin"`
	Quantity     uint64 `json:"quantity"`
	TrackingCode string `json:"tracking_code"`
	ContentHash  string `json:"content_hash"`
}

// SplitBatch divides a parent batch into the given children.
type SplitBatch struct {
	Actor    string      `json:"actor"`
	Children []ChildSpec `json:"children"`
}

// MergeBatches combines the input batches into one output batch. The output
// quantity is derived from the inputs.
type MergeBatches struct {
	Actor        string   `json:"actor"`
	InputIDs     []uint64 `json:"input_ids"`
	Origin       string   `json:"origin"`
	TrackingCode string   `json:"tracking_code"`
	ContentHash  string   `json:"content_hash"`
}

// TransformBatches converts the input batches into a new product batch.
type TransformBatches struct {
	Actor        string   `json:"actor"`
	InputIDs     []uint64 `json:"input_ids"`
	ProcessType  string   `json:"process_type"`
	Origin       string   `json:"origin"`
	Quantity     uint64   `json:"quantity"`
	TrackingCode string   `json:"tracking_code"`
	ContentHash  string   `json:"content_hash"`
}

// InitiateTransfer opens the custody handshake toward a recipient.
type InitiateTransfer struct {
	Actor string `json:"actor"`
	To    string `json:"to"`
}

// ReceiveBatch accepts custody of an open transfer.
type ReceiveBatch struct {
	Actor string `json:"actor"`
}

func (h *HarvestBatch) ToSpec() model.BatchSpec {
	return model.BatchSpec{
		Origin:       h.Origin,
		Quantity:     h.Quantity,
		TrackingCode: h.TrackingCode,
		ContentHash:  h.ContentHash,
	}
}

func (s *SplitBatch) ToSpecs() []model.BatchSpec {
	specs := make([]model.BatchSpec, 0, len(s.Children))
	for _, child := range s.Children {
		specs = append(specs, model.BatchSpec{
			Origin:       child.Origin,
			Quantity:     child.Quantity,
			TrackingCode: child.TrackingCode,
			ContentHash:  child.ContentHash,
		})
	}
	return specs
}

func (m *MergeBatches) ToSpec() model.BatchSpec {
	return model.BatchSpec{
		Origin:       m.Origin,
		TrackingCode: m.TrackingCode,
		ContentHash:  m.ContentHash,
	}
}

func (t *TransformBatches) ToSpec() model.BatchSpec {
	return model.BatchSpec{
		Origin:       t.Origin,
		Quantity:     t.Quantity,
		TrackingCode: t.TrackingCode,
		ContentHash:  t.ContentHash,
	}
}
