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
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/chainproof/chainproof/internal/apierror"
	"github.com/chainproof/chainproof/internal/notification"
	"github.com/chainproof/chainproof/model"
)

var tracer = otel.Tracer("chainproof.custody")

const (
	batchCacheTTL = 5 * time.Minute
	roleCacheTTL  = 30 * time.Minute
)

func batchCacheKey(id uint64) string {
	return fmt.Sprintf("batch:%d", id)
}

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// requireRole prechecks the actor's role before a transaction is submitted.
// The ledger enforces the same rule; checking here avoids wasting a
// transaction on a failure that is deterministic.
func (c *Chainproof) requireRole(ctx context.Context, actor string, allowed ...model.Role) error {
	role, err := c.GetRole(ctx, actor)
	if err != nil {
		return err
	}
	for _, candidate := range allowed {
		if role == candidate {
			return nil
		}
	}
	return apierror.NewAPIError(apierror.ErrRoleNotAllowed,
		fmt.Sprintf("role %s cannot perform this operation", role), nil)
}

// postBatchActions fans out the committed mutation: webhook delivery and
// cache invalidation for every touched batch.
func (c *Chainproof) postBatchActions(ctx context.Context, event string, payload interface{}, touched ...uint64) {
	for _, id := range touched {
		c.cache.Delete(ctx, batchCacheKey(id))
	}
	go func() {
		err := SendWebhook(NewWebhook{
			Event:   event,
			Payload: payload,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

// Harvest mints a root batch. Only producers may harvest; an empty content
// hash gets a placeholder reference until metadata is uploaded.
func (c *Chainproof) Harvest(ctx context.Context, actor string, spec model.BatchSpec) (*model.Batch, error) {
	ctx, span := tracer.Start(ctx, "Harvesting batch")
	defer span.End()

	if err := c.requireRole(ctx, actor, model.RoleProducer); err != nil {
		return nil, logAndRecordError(span, "harvest precheck failed: ", err)
	}
	if spec.Quantity == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidQuantity, "harvest quantity must be positive", nil)
	}
	spec.TrackingCode = model.NormalizeTrackingCode(spec.TrackingCode)
	if spec.ContentHash == "" {
		spec.ContentHash = model.PlaceholderContentHash(spec.TrackingCode)
	}

	batch, err := c.store.Harvest(ctx, actor, spec)
	if err != nil {
		return nil, logAndRecordError(span, "harvest rejected: ", err)
	}
	c.postBatchActions(ctx, "batch.harvested", batch, batch.ID)
	return batch, nil
}

// Split divides part of a parent batch into child batches.
func (c *Chainproof) Split(ctx context.Context, actor string, parentID uint64, children []model.BatchSpec) ([]*model.Batch, error) {
	ctx, span := tracer.Start(ctx, "Splitting batch")
	defer span.End()

	if err := c.requireRole(ctx, actor, model.RoleProcessor, model.RoleWarehouse); err != nil {
		return nil, logAndRecordError(span, "split precheck failed: ", err)
	}
	if len(children) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidQuantity, "split requires at least one child", nil)
	}
	for _, child := range children {
		if child.Quantity == 0 {
			return nil, apierror.NewAPIError(apierror.ErrInvalidQuantity, "child quantity must be positive", nil)
		}
	}
	parent, err := c.GetBatch(ctx, parentID)
	if err != nil {
		return nil, logAndRecordError(span, "split parent read failed: ", err)
	}
	total, ok := model.SumQuantities(children)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInvalidQuantity, "child quantities overflow", nil)
	}
	if total > parent.Quantity {
		return nil, apierror.NewAPIError(apierror.ErrQuantityExceedsParent,
			fmt.Sprintf("children total %d exceeds parent quantity %d", total, parent.Quantity), nil)
	}

	minted, err := c.store.Split(ctx, actor, parentID, children)
	if err != nil {
		return nil, logAndRecordError(span, "split rejected: ", err)
	}
	touched := []uint64{parentID}
	for _, child := range minted {
		touched = append(touched, child.ID)
	}
	c.postBatchActions(ctx, "batch.split", map[string]interface{}{
		"parent":   parentID,
		"children": minted,
	}, touched...)
	return minted, nil
}

// Merge combines input batches into one output batch whose quantity is the
// sum of the inputs. The inputs end up consumed.
func (c *Chainproof) Merge(ctx context.Context, actor string, inputIDs []uint64, output model.BatchSpec) (*model.Batch, error) {
	ctx, span := tracer.Start(ctx, "Merging batches")
	defer span.End()

	if err := c.requireRole(ctx, actor, model.RoleProcessor, model.RoleWarehouse); err != nil {
		return nil, logAndRecordError(span, "merge precheck failed: ", err)
	}
	if len(inputIDs) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrEmptyParentSet, "input batch set is empty", nil)
	}

	merged, err := c.store.Merge(ctx, actor, inputIDs, output)
	if err != nil {
		return nil, logAndRecordError(span, "merge rejected: ", err)
	}
	c.postBatchActions(ctx, "batch.merged", merged, append(inputIDs, merged.ID)...)
	return merged, nil
}

// Transform converts input batches into a new product batch tagged with a
// process type. Only processors may transform.
func (c *Chainproof) Transform(ctx context.Context, actor string, inputIDs []uint64, processType string, output model.BatchSpec) (*model.Batch, error) {
	ctx, span := tracer.Start(ctx, "Transforming batches")
	defer span.End()

	if err := c.requireRole(ctx, actor, model.RoleProcessor); err != nil {
		return nil, logAndRecordError(span, "transform precheck failed: ", err)
	}
	if len(inputIDs) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrEmptyParentSet, "input batch set is empty", nil)
	}
	if output.Quantity == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidQuantity, "transform output quantity must be positive", nil)
	}

	transformed, err := c.store.Transform(ctx, actor, inputIDs, processType, output)
	if err != nil {
		return nil, logAndRecordError(span, "transform rejected: ", err)
	}
	c.postBatchActions(ctx, "batch.transformed", transformed, append(inputIDs, transformed.ID)...)
	return transformed, nil
}

// GetBatch reads a batch snapshot through the cache tier.
func (c *Chainproof) GetBatch(ctx context.Context, id uint64) (*model.Batch, error) {
	var cached model.Batch
	if err := c.cache.Get(ctx, batchCacheKey(id), &cached); err == nil && cached.ID == id {
		return &cached, nil
	}
	batch, err := c.store.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, batchCacheKey(id), batch, batchCacheTTL)
	return batch, nil
}

// GetBatchIDByTrackingCode resolves a tracking code to its batch id.
func (c *Chainproof) GetBatchIDByTrackingCode(ctx context.Context, code string) (uint64, error) {
	return c.store.GetBatchIDByTrackingCode(ctx, code)
}

// Summary is the owner/operator dashboard read.
type Summary struct {
	BatchCount uint64     `json:"batch_count"`
	ViewerRole model.Role `json:"viewer_role"`
}

// GetSummary reports how many batches the ledger has minted and the viewer's
// registered role.
func (c *Chainproof) GetSummary(ctx context.Context, viewer string) (*Summary, error) {
	count, err := c.store.BatchCount(ctx)
	if err != nil {
		return nil, err
	}
	role, err := c.GetRole(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return &Summary{BatchCount: count, ViewerRole: role}, nil
}
