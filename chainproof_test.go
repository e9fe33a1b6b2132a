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

package chainproof

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainproof/chainproof/config"
	"github.com/chainproof/chainproof/internal/apierror"
	"github.com/chainproof/chainproof/ledger"
	"github.com/chainproof/chainproof/model"
)

func steppedClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		ts := current
		current = current.Add(step)
		return ts
	}
}

func newTestChainproof(t *testing.T) (*Chainproof, *ledger.MemoryLedger) {
	t.Helper()
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})
	store := ledger.NewMemoryLedger(ledger.WithClock(steppedClock(time.Unix(1700000000, 0).UTC(), time.Second)))
	cp, err := NewChainproof(store)
	require.NoError(t, err)
	return cp, store
}

func seedRole(t *testing.T, store *ledger.MemoryLedger, account string, role model.Role) {
	t.Helper()
	_, err := store.AssignRole(context.Background(), account, role)
	require.NoError(t, err)
}

func TestAssignAndGetRole(t *testing.T) {
	ctx := context.Background()
	cp, _ := newTestChainproof(t)

	ref, err := cp.AssignRole(ctx, "producer-1", "Producer")
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	role, err := cp.GetRole(ctx, "producer-1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleProducer, role)

	// Second read comes from the cache tier.
	role, err = cp.GetRole(ctx, "producer-1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleProducer, role)

	role, err = cp.GetRole(ctx, "stranger")
	require.NoError(t, err)
	assert.Equal(t, model.RoleNone, role)

	_, err = cp.AssignRole(ctx, "producer-1", "customer")
	assert.True(t, apierror.Is(err, apierror.ErrRoleNotAllowed))

	_, err = cp.AssignRole(ctx, "someone", "astronaut")
	assert.True(t, apierror.Is(err, apierror.ErrBadRequest))

	_, err = cp.AssignRole(ctx, "someone", "none")
	assert.True(t, apierror.Is(err, apierror.ErrBadRequest))
}

func TestHarvestFacade(t *testing.T) {
	ctx := context.Background()
	cp, store := newTestChainproof(t)
	seedRole(t, store, "producer-1", model.RoleProducer)
	seedRole(t, store, "warehouse-1", model.RoleWarehouse)

	code := gofakeit.UUID()
	batch, err := cp.Harvest(ctx, "producer-1", model.BatchSpec{
		Origin:       "farm-a",
		Quantity:     5000,
		TrackingCode: "  " + code + " ",
	})
	require.NoError(t, err)
	assert.Equal(t, code, batch.TrackingCode)
	assert.NotEmpty(t, batch.ContentHash)
	assert.Equal(t, "producer-1", batch.CurrentHandler)
	assert.NotEmpty(t, batch.TxRef)

	// Deterministic failures never reach the ledger.
	_, err = cp.Harvest(ctx, "warehouse-1", model.BatchSpec{Quantity: 10})
	assert.True(t, apierror.Is(err, apierror.ErrRoleNotAllowed))

	_, err = cp.Harvest(ctx, "producer-1", model.BatchSpec{Quantity: 0})
	assert.True(t, apierror.Is(err, apierror.ErrInvalidQuantity))

	stored, err := cp.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), stored.Quantity)

	// Cached read.
	stored, err = cp.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), stored.Quantity)

	id, err := cp.GetBatchIDByTrackingCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, id)
}

func TestSplitFacade(t *testing.T) {
	ctx := context.Background()
	cp, store := newTestChainproof(t)
	seedRole(t, store, "producer-1", model.RoleProducer)
	seedRole(t, store, "warehouse-1", model.RoleWarehouse)

	parent, err := store.Harvest(ctx, "producer-1", model.BatchSpec{Quantity: 5000, TrackingCode: "SPLIT-P"})
	require.NoError(t, err)
	_, err = store.InitiateTransfer(ctx, "producer-1", parent.ID, "warehouse-1")
	require.NoError(t, err)
	_, err = store.Receive(ctx, "warehouse-1", parent.ID)
	require.NoError(t, err)

	_, err = cp.Split(ctx, "producer-1", parent.ID, []model.BatchSpec{{Quantity: 100}})
	assert.True(t, apierror.Is(err, apierror.ErrRoleNotAllowed))

	_, err = cp.Split(ctx, "warehouse-1", parent.ID, nil)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidQuantity))

	_, err = cp.Split(ctx, "warehouse-1", parent.ID, []model.BatchSpec{{Quantity: 4000}, {Quantity: 2000}})
	assert.True(t, apierror.Is(err, apierror.ErrQuantityExceedsParent))

	// A wrapping child total is rejected before the parent comparison.
	_, err = cp.Split(ctx, "warehouse-1", parent.ID, []model.BatchSpec{
		{Quantity: math.MaxUint64}, {Quantity: 11},
	})
	assert.True(t, apierror.Is(err, apierror.ErrInvalidQuantity))

	children, err := cp.Split(ctx, "warehouse-1", parent.ID, []model.BatchSpec{
		{Quantity: 2000, TrackingCode: "SPLIT-C1"},
		{Quantity: 3000, TrackingCode: "SPLIT-C2"},
	})
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.NotEmpty(t, children[0].TxRef)

	// The parent snapshot was invalidated, not served stale.
	drained, err := cp.GetBatch(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), drained.Quantity)
	assert.Equal(t, model.StatusConsumed, drained.Status)
}

func TestMergeAndTransformFacade(t *testing.T) {
	ctx := context.Background()
	cp, store := newTestChainproof(t)
	seedRole(t, store, "processor-1", model.RoleProcessor)
	seedRole(t, store, "customer-1", model.RoleCustomer)

	first, err := store.Harvest(ctx, "processor-1", model.BatchSpec{Quantity: 1})
	assert.True(t, apierror.Is(err, apierror.ErrRoleNotAllowed))
	assert.Nil(t, first)

	seedRole(t, store, "producer-1", model.RoleProducer)
	a, err := store.Harvest(ctx, "producer-1", model.BatchSpec{Quantity: 300, TrackingCode: "MF-A"})
	require.NoError(t, err)
	b, err := store.Harvest(ctx, "producer-1", model.BatchSpec{Quantity: 700, TrackingCode: "MF-B"})
	require.NoError(t, err)
	for _, batch := range []*model.Batch{a, b} {
		_, err = store.InitiateTransfer(ctx, "producer-1", batch.ID, "processor-1")
		require.NoError(t, err)
		_, err = store.Receive(ctx, "processor-1", batch.ID)
		require.NoError(t, err)
	}

	_, err = cp.Merge(ctx, "customer-1", []uint64{a.ID, b.ID}, model.BatchSpec{})
	assert.True(t, apierror.Is(err, apierror.ErrRoleNotAllowed))

	_, err = cp.Merge(ctx, "processor-1", nil, model.BatchSpec{})
	assert.True(t, apierror.Is(err, apierror.ErrEmptyParentSet))

	merged, err := cp.Merge(ctx, "processor-1", []uint64{a.ID, b.ID}, model.BatchSpec{TrackingCode: "MF-OUT"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), merged.Quantity)
	assert.NotEmpty(t, merged.TxRef)

	_, err = cp.Transform(ctx, "processor-1", []uint64{merged.ID}, "roasting", model.BatchSpec{Quantity: 0})
	assert.True(t, apierror.Is(err, apierror.ErrInvalidQuantity))

	output, err := cp.Transform(ctx, "processor-1", []uint64{merged.ID}, "roasting", model.BatchSpec{
		Quantity:     950,
		TrackingCode: "MF-ROASTED",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(950), output.Quantity)

	consumed, err := cp.GetBatch(ctx, merged.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConsumed, consumed.Status)
}

func TestGetSummary(t *testing.T) {
	ctx := context.Background()
	cp, store := newTestChainproof(t)
	seedRole(t, store, "producer-1", model.RoleProducer)

	_, err := store.Harvest(ctx, "producer-1", model.BatchSpec{Quantity: 10, TrackingCode: "SUM-1"})
	require.NoError(t, err)
	_, err = store.Harvest(ctx, "producer-1", model.BatchSpec{Quantity: 20, TrackingCode: "SUM-2"})
	require.NoError(t, err)

	summary, err := cp.GetSummary(ctx, "producer-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), summary.BatchCount)
	assert.Equal(t, model.RoleProducer, summary.ViewerRole)

	summary, err = cp.GetSummary(ctx, "stranger")
	require.NoError(t, err)
	assert.Equal(t, model.RoleNone, summary.ViewerRole)
}
