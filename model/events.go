package model

import (
	"fmt"
	"strings"
	"time"
)

// EventKind tags a domain event variant. Kinds are compared as strings so a
// reader can surface kinds this build does not know about instead of
// dropping them.
type EventKind string

const (
	EventHarvested         EventKind = "HARVESTED"
	EventSplit             EventKind = "SPLIT"
	EventMerged            EventKind = "MERGED"
	EventTransformed       EventKind = "TRANSFORMED"
	EventTransferInitiated EventKind = "TRANSFER_INITIATED"
	EventReceived          EventKind = "RECEIVED"
)

// KnownEventKinds lists every kind this build queries during timeline
// reconstruction.
func KnownEventKinds() []EventKind {
	return []EventKind{
		EventHarvested,
		EventSplit,
		EventMerged,
		EventTransformed,
		EventTransferInitiated,
		EventReceived,
	}
}

// Event is an immutable record appended by every committed mutation. Which
// fields are set depends on Kind: BatchID is the sole subject for
// Harvested/TransferInitiated/Received, ParentID/ChildIDs carry a split,
// InputIDs/OutputID carry a merge or transform.
type Event struct {
	Kind        EventKind `json:"kind"`
	BatchID     uint64    `json:"batch_id,omitempty"`
	ParentID    uint64    `json:"parent_id,omitempty"`
	ChildIDs    []uint64  `json:"child_ids,omitempty"`
	InputIDs    []uint64  `json:"input_ids,omitempty"`
	OutputID    uint64    `json:"output_id,omitempty"`
	ProcessType string    `json:"process_type,omitempty"`
	Actor       string    `json:"actor"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Quantity    uint64    `json:"quantity,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	TxRef       string    `json:"tx_ref"`
	LogIndex    uint64    `json:"log_index"`
}

func containsID(ids []uint64, id uint64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// InvolvesBatch reports whether the event belongs on the provenance timeline
// of the given batch. A batch is involved as the sole subject, as the
// consuming side (split parent, merge/transform input), or as the producing
// side (split child, merge/transform output). Unrecognized kinds match on
// any id field so future event types still surface.
func (e Event) InvolvesBatch(id uint64) bool {
	switch e.Kind {
	case EventHarvested, EventTransferInitiated, EventReceived:
		return e.BatchID == id
	case EventSplit:
		return e.ParentID == id || containsID(e.ChildIDs, id)
	case EventMerged, EventTransformed:
		return e.OutputID == id || containsID(e.InputIDs, id)
	default:
		return e.BatchID == id || e.ParentID == id || e.OutputID == id ||
			containsID(e.ChildIDs, id) || containsID(e.InputIDs, id)
	}
}

func formatIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

// Describe renders the event as a short human-readable line for timeline
// views. Unknown kinds are rendered opaquely rather than dropped.
func (e Event) Describe() string {
	switch e.Kind {
	case EventHarvested:
		return fmt.Sprintf("Harvested by %s (quantity %d)", e.Actor, e.Quantity)
	case EventSplit:
		return fmt.Sprintf("Parent %d -> children [%s]", e.ParentID, formatIDs(e.ChildIDs))
	case EventMerged:
		return fmt.Sprintf("Merged [%s] into output %d", formatIDs(e.InputIDs), e.OutputID)
	case EventTransformed:
		return fmt.Sprintf("Transformed [%s] into output %d (%s)", formatIDs(e.InputIDs), e.OutputID, e.ProcessType)
	case EventTransferInitiated:
		return fmt.Sprintf("%s -> %s", e.From, e.To)
	case EventReceived:
		return fmt.Sprintf("Received by %s", e.Actor)
	default:
		return fmt.Sprintf("%s event (batch %d)", e.Kind, e.BatchID)
	}
}
