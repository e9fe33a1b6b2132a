/*
Copyright 2025 ChainProof Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chainproof/chainproof/internal/apierror"
	"github.com/chainproof/chainproof/model"
)

// MemoryLedger is an in-process ledger with the same transition rules as the
// deployed contract. Every mutation takes the ledger lock, so transitions are
// serialized exactly like single-writer contract execution. It backs local
// development and the protocol test suite.
type MemoryLedger struct {
	mu            sync.Mutex
	now           func() time.Time
	allowReassign bool

	roles         map[string]model.Role
	batches       map[uint64]*model.Batch
	trackingCodes map[string]uint64
	pending       map[uint64]*model.PendingTransfer
	parents       map[uint64][]uint64
	children      map[uint64][]uint64
	events        []model.Event
	nextID        uint64
	nextLogIndex  uint64
}

var _ Ledger = (*MemoryLedger)(nil)

// MemoryOption configures a MemoryLedger at construction time.
type MemoryOption func(*MemoryLedger)

// WithClock overrides the timestamp source. Tests use a stepped clock so
// timeline ordering is deterministic.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryLedger) {
		m.now = now
	}
}

// WithRoleReassignment permits an account to change its role after first
// assignment. The default is first-assignment-wins.
func WithRoleReassignment() MemoryOption {
	return func(m *MemoryLedger) {
		m.allowReassign = true
	}
}

func NewMemoryLedger(opts ...MemoryOption) *MemoryLedger {
	m := &MemoryLedger{
		now:           time.Now,
		roles:         make(map[string]model.Role),
		batches:       make(map[uint64]*model.Batch),
		trackingCodes: make(map[string]uint64),
		pending:       make(map[uint64]*model.PendingTransfer),
		parents:       make(map[uint64][]uint64),
		children:      make(map[uint64][]uint64),
		nextID:        1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryLedger) txRef() string {
	return model.GenerateUUIDWithSuffix("txn")
}

// appendEvent stamps the log index and stores the event. Callers hold mu.
func (m *MemoryLedger) appendEvent(e model.Event) {
	e.LogIndex = m.nextLogIndex
	m.nextLogIndex++
	m.events = append(m.events, e)
}

// roleOf reads the registry without locking. Callers hold mu.
func (m *MemoryLedger) roleOf(account string) model.Role {
	return m.roles[account]
}

func (m *MemoryLedger) AssignRole(_ context.Context, account string, role model.Role) (string, error) {
	if account == "" {
		return "", apierror.NewAPIError(apierror.ErrBadRequest, "account is required", nil)
	}
	if role == model.RoleNone || !role.Valid() {
		return "", apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("role %q cannot be assigned", role), nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := m.roles[account]; existing != model.RoleNone && !m.allowReassign {
		return "", apierror.NewAPIError(apierror.ErrRoleNotAllowed,
			fmt.Sprintf("account %s already holds role %s", account, existing), nil)
	}
	m.roles[account] = role
	return m.txRef(), nil
}

func (m *MemoryLedger) GetRole(_ context.Context, account string) (model.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[account], nil
}

// mintBatch creates a batch record and claims its tracking code. Callers
// hold mu and must have validated the spec first.
func (m *MemoryLedger) mintBatch(creator string, spec model.BatchSpec, ts time.Time) *model.Batch {
	id := m.nextID
	m.nextID++
	batch := &model.Batch{
		ID:             id,
		Creator:        creator,
		Origin:         spec.Origin,
		ContentHash:    spec.ContentHash,
		Quantity:       spec.Quantity,
		TrackingCode:   model.NormalizeTrackingCode(spec.TrackingCode),
		Status:         model.StatusCreated,
		CreatedAt:      ts,
		UpdatedAt:      ts,
		CurrentHandler: creator,
	}
	m.batches[id] = batch
	if batch.TrackingCode != "" {
		m.trackingCodes[batch.TrackingCode] = id
	}
	return batch
}

// checkTrackingCodes validates that every non-empty code in specs is unused
// on the ledger and not repeated within specs. Callers hold mu.
func (m *MemoryLedger) checkTrackingCodes(specs ...model.BatchSpec) error {
	seen := make(map[string]bool)
	for _, spec := range specs {
		code := model.NormalizeTrackingCode(spec.TrackingCode)
		if code == "" {
			continue
		}
		if _, taken := m.trackingCodes[code]; taken || seen[code] {
			return apierror.NewAPIError(apierror.ErrDuplicateTrackingCode,
				fmt.Sprintf("tracking code %s is already in use", code), nil)
		}
		seen[code] = true
	}
	return nil
}

// consumable rejects batches that cannot serve as a mutation subject: the
// batch must exist, must not be consumed, and must not sit in an open
// transfer. State conflicts surface as rejections with the reason attached,
// the same shape a contract revert arrives in.
func (m *MemoryLedger) consumable(id uint64) (*model.Batch, error) {
	batch, ok := m.batches[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrBatchNotFound, fmt.Sprintf("batch %d does not exist", id), nil)
	}
	if batch.Status == model.StatusConsumed {
		return nil, apierror.NewAPIError(apierror.ErrTransactionRejected,
			fmt.Sprintf("batch %d is consumed", id), nil)
	}
	if _, open := m.pending[id]; open {
		return nil, apierror.NewAPIError(apierror.ErrTransactionRejected,
			fmt.Sprintf("batch %d has an open transfer", id), nil)
	}
	return batch, nil
}

func (m *MemoryLedger) Harvest(_ context.Context, actor string, spec model.BatchSpec) (*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roleOf(actor) != model.RoleProducer {
		return nil, apierror.NewAPIError(apierror.ErrRoleNotAllowed, "only producers can harvest", nil)
	}
	if spec.Quantity == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidQuantity, "harvest quantity must be positive", nil)
	}
	if err := m.checkTrackingCodes(spec); err != nil {
		return nil, err
	}
	ts := m.now()
	ref := m.txRef()
	batch := m.mintBatch(actor, spec, ts)
	batch.TxRef = ref
	m.appendEvent(model.Event{
		Kind:      model.EventHarvested,
		BatchID:   batch.ID,
		Actor:     actor,
		Quantity:  batch.Quantity,
		Timestamp: ts,
		TxRef:     ref,
	})
	return snapshot(batch), nil
}

func (m *MemoryLedger) Split(_ context.Context, actor string, parentID uint64, childSpecs []model.BatchSpec) ([]*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.roleOf(actor) {
	case model.RoleProcessor, model.RoleWarehouse:
	default:
		return nil, apierror.NewAPIError(apierror.ErrRoleNotAllowed, "only processors and warehouses can split", nil)
	}
	parent, err := m.consumable(parentID)
	if err != nil {
		return nil, err
	}
	if len(childSpecs) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidQuantity, "split requires at least one child", nil)
	}
	for _, spec := range childSpecs {
		if spec.Quantity == 0 {
			return nil, apierror.NewAPIError(apierror.ErrInvalidQuantity, "child quantity must be positive", nil)
		}
	}
	total, ok := model.SumQuantities(childSpecs)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInvalidQuantity, "child quantities overflow", nil)
	}
	if total > parent.Quantity {
		return nil, apierror.NewAPIError(apierror.ErrQuantityExceedsParent,
			fmt.Sprintf("children total %d exceeds parent quantity %d", total, parent.Quantity), nil)
	}
	if err := m.checkTrackingCodes(childSpecs...); err != nil {
		return nil, err
	}

	ts := m.now()
	ref := m.txRef()
	childIDs := make([]uint64, 0, len(childSpecs))
	out := make([]*model.Batch, 0, len(childSpecs))
	for _, spec := range childSpecs {
		child := m.mintBatch(actor, spec, ts)
		child.TxRef = ref
		m.parents[child.ID] = []uint64{parentID}
		m.children[parentID] = append(m.children[parentID], child.ID)
		childIDs = append(childIDs, child.ID)
		out = append(out, snapshot(child))
	}
	// Partial consumption: the parent keeps whatever quantity the children
	// did not draw, and only hits Consumed at zero.
	parent.Quantity -= total
	if parent.Quantity == 0 {
		parent.Status = model.StatusConsumed
	}
	parent.UpdatedAt = ts
	parent.TxRef = ref
	m.appendEvent(model.Event{
		Kind:      model.EventSplit,
		ParentID:  parentID,
		ChildIDs:  childIDs,
		Actor:     actor,
		Quantity:  total,
		Timestamp: ts,
		TxRef:     ref,
	})
	return out, nil
}

// consumeInputs validates and fully consumes a merge/transform input set,
// returning the summed remaining quantity. No input is touched until every
// input has passed validation. Callers hold mu.
func (m *MemoryLedger) consumeInputs(inputIDs []uint64, ts time.Time, ref string) (uint64, error) {
	if len(inputIDs) == 0 {
		return 0, apierror.NewAPIError(apierror.ErrEmptyParentSet, "input batch set is empty", nil)
	}
	seen := make(map[uint64]bool)
	inputs := make([]*model.Batch, 0, len(inputIDs))
	var total uint64
	for _, id := range inputIDs {
		if seen[id] {
			return 0, apierror.NewAPIError(apierror.ErrBadRequest,
				fmt.Sprintf("batch %d listed twice in input set", id), nil)
		}
		seen[id] = true
		batch, err := m.consumable(id)
		if err != nil {
			return 0, err
		}
		if batch.Quantity > math.MaxUint64-total {
			return 0, apierror.NewAPIError(apierror.ErrInvalidQuantity, "input quantities overflow", nil)
		}
		inputs = append(inputs, batch)
		total += batch.Quantity
	}
	for _, batch := range inputs {
		batch.Quantity = 0
		batch.Status = model.StatusConsumed
		batch.UpdatedAt = ts
		batch.TxRef = ref
	}
	return total, nil
}

func (m *MemoryLedger) Merge(_ context.Context, actor string, inputIDs []uint64, output model.BatchSpec) (*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.roleOf(actor) {
	case model.RoleProcessor, model.RoleWarehouse:
	default:
		return nil, apierror.NewAPIError(apierror.ErrRoleNotAllowed, "only processors and warehouses can merge", nil)
	}
	if err := m.checkTrackingCodes(output); err != nil {
		return nil, err
	}
	ts := m.now()
	ref := m.txRef()
	total, err := m.consumeInputs(inputIDs, ts, ref)
	if err != nil {
		return nil, err
	}
	// The output quantity is derived, never caller supplied.
	output.Quantity = total
	merged := m.mintBatch(actor, output, ts)
	merged.TxRef = ref
	m.linkInputs(inputIDs, merged.ID)
	m.appendEvent(model.Event{
		Kind:      model.EventMerged,
		InputIDs:  append([]uint64(nil), inputIDs...),
		OutputID:  merged.ID,
		Actor:     actor,
		Quantity:  total,
		Timestamp: ts,
		TxRef:     ref,
	})
	return snapshot(merged), nil
}

func (m *MemoryLedger) Transform(_ context.Context, actor string, inputIDs []uint64, processType string, output model.BatchSpec) (*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roleOf(actor) != model.RoleProcessor {
		return nil, apierror.NewAPIError(apierror.ErrRoleNotAllowed, "only processors can transform", nil)
	}
	if output.Quantity == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidQuantity, "transform output quantity must be positive", nil)
	}
	if err := m.checkTrackingCodes(output); err != nil {
		return nil, err
	}
	ts := m.now()
	ref := m.txRef()
	if _, err := m.consumeInputs(inputIDs, ts, ref); err != nil {
		return nil, err
	}
	transformed := m.mintBatch(actor, output, ts)
	transformed.TxRef = ref
	m.linkInputs(inputIDs, transformed.ID)
	m.appendEvent(model.Event{
		Kind:        model.EventTransformed,
		InputIDs:    append([]uint64(nil), inputIDs...),
		OutputID:    transformed.ID,
		ProcessType: processType,
		Actor:       actor,
		Quantity:    transformed.Quantity,
		Timestamp:   ts,
		TxRef:       ref,
	})
	return snapshot(transformed), nil
}

// linkInputs records input -> output lineage edges. Callers hold mu.
func (m *MemoryLedger) linkInputs(inputIDs []uint64, outputID uint64) {
	m.parents[outputID] = append([]uint64(nil), inputIDs...)
	for _, id := range inputIDs {
		m.children[id] = append(m.children[id], outputID)
	}
}

func (m *MemoryLedger) InitiateTransfer(_ context.Context, actor string, batchID uint64, to string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[batchID]
	if !ok {
		return "", apierror.NewAPIError(apierror.ErrBatchNotFound, fmt.Sprintf("batch %d does not exist", batchID), nil)
	}
	if batch.Status == model.StatusConsumed {
		return "", apierror.NewAPIError(apierror.ErrTransactionRejected,
			fmt.Sprintf("batch %d is consumed", batchID), nil)
	}
	if batch.CurrentHandler != actor {
		return "", apierror.NewAPIError(apierror.ErrOnlyCurrentHandler,
			fmt.Sprintf("only the current handler of batch %d can initiate a transfer", batchID), nil)
	}
	if _, open := m.pending[batchID]; open {
		return "", apierror.NewAPIError(apierror.ErrTransferAlreadyPending,
			fmt.Sprintf("batch %d already has an open transfer", batchID), nil)
	}
	if to == actor {
		return "", apierror.NewAPIError(apierror.ErrCannotTransferToSelf, "sender and recipient are the same account", nil)
	}
	recipientRole := m.roleOf(to)
	if recipientRole == model.RoleNone {
		return "", apierror.NewAPIError(apierror.ErrRecipientHasNoRole,
			fmt.Sprintf("recipient %s has no registered role", to), nil)
	}
	if !model.RouteAllowed(m.roleOf(actor), recipientRole) {
		return "", apierror.NewAPIError(apierror.ErrInvalidTransferRoute,
			fmt.Sprintf("transfers from %s to %s are not permitted", m.roleOf(actor), recipientRole), nil)
	}

	ts := m.now()
	m.pending[batchID] = &model.PendingTransfer{
		BatchID:     batchID,
		From:        actor,
		To:          to,
		InitiatedAt: ts,
	}
	batch.Status = model.StatusInTransit
	batch.UpdatedAt = ts
	ref := m.txRef()
	batch.TxRef = ref
	m.appendEvent(model.Event{
		Kind:      model.EventTransferInitiated,
		BatchID:   batchID,
		Actor:     actor,
		From:      actor,
		To:        to,
		Timestamp: ts,
		TxRef:     ref,
	})
	return ref, nil
}

func (m *MemoryLedger) Receive(_ context.Context, actor string, batchID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[batchID]
	if !ok {
		return "", apierror.NewAPIError(apierror.ErrBatchNotFound, fmt.Sprintf("batch %d does not exist", batchID), nil)
	}
	transfer, open := m.pending[batchID]
	if !open || transfer.To != actor {
		return "", apierror.NewAPIError(apierror.ErrNoPendingTransfer,
			fmt.Sprintf("no open transfer on batch %d designates %s", batchID, actor), nil)
	}

	ts := m.now()
	delete(m.pending, batchID)
	batch.CurrentHandler = actor
	batch.Status = model.StatusReceived
	batch.UpdatedAt = ts
	ref := m.txRef()
	batch.TxRef = ref
	m.appendEvent(model.Event{
		Kind:      model.EventReceived,
		BatchID:   batchID,
		Actor:     actor,
		From:      transfer.From,
		To:        actor,
		Timestamp: ts,
		TxRef:     ref,
	})
	return ref, nil
}

// snapshot copies a batch so callers can never mutate ledger state through a
// returned pointer.
func snapshot(b *model.Batch) *model.Batch {
	copied := *b
	return &copied
}

func (m *MemoryLedger) GetBatch(_ context.Context, id uint64) (*model.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch, ok := m.batches[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrBatchNotFound, fmt.Sprintf("batch %d does not exist", id), nil)
	}
	return snapshot(batch), nil
}

func (m *MemoryLedger) GetBatchIDByTrackingCode(_ context.Context, code string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.trackingCodes[model.NormalizeTrackingCode(code)]
	if !ok {
		return 0, apierror.NewAPIError(apierror.ErrBatchNotFound,
			fmt.Sprintf("no batch carries tracking code %q", code), nil)
	}
	return id, nil
}

func (m *MemoryLedger) GetPendingTransfer(_ context.Context, batchID uint64) (*model.PendingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[batchID]; !ok {
		return nil, apierror.NewAPIError(apierror.ErrBatchNotFound, fmt.Sprintf("batch %d does not exist", batchID), nil)
	}
	transfer, open := m.pending[batchID]
	if !open {
		return nil, nil
	}
	copied := *transfer
	return &copied, nil
}

func (m *MemoryLedger) GetParents(_ context.Context, id uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[id]; !ok {
		return nil, apierror.NewAPIError(apierror.ErrBatchNotFound, fmt.Sprintf("batch %d does not exist", id), nil)
	}
	return append([]uint64(nil), m.parents[id]...), nil
}

func (m *MemoryLedger) GetChildren(_ context.Context, id uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[id]; !ok {
		return nil, apierror.NewAPIError(apierror.ErrBatchNotFound, fmt.Sprintf("batch %d does not exist", id), nil)
	}
	return append([]uint64(nil), m.children[id]...), nil
}

func (m *MemoryLedger) BatchCount(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextID - 1, nil
}

func (m *MemoryLedger) GetEventsByKind(_ context.Context, kind model.EventKind) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}
