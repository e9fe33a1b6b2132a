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

	"github.com/pkg/errors"

	"github.com/chainproof/chainproof/config"
	"github.com/chainproof/chainproof/internal/apierror"
	redlock "github.com/chainproof/chainproof/internal/lock"
	"github.com/chainproof/chainproof/internal/notification"
	"github.com/chainproof/chainproof/model"
)

const (
	bridgeLockDuration = 30 * time.Second
	bridgeLockWait     = 10 * time.Second
)

// precheckInitiate runs every deterministic transfer precondition before a
// ledger transaction is spent on it. The ledger re-validates all of them.
func (c *Chainproof) precheckInitiate(ctx context.Context, actor string, batchID uint64, to string) error {
	batch, err := c.store.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.CurrentHandler != actor {
		return apierror.NewAPIError(apierror.ErrOnlyCurrentHandler,
			fmt.Sprintf("only the current handler of batch %d can initiate a transfer", batchID), nil)
	}
	if to == actor {
		return apierror.NewAPIError(apierror.ErrCannotTransferToSelf, "sender and recipient are the same account", nil)
	}
	pending, err := c.store.GetPendingTransfer(ctx, batchID)
	if err != nil {
		return err
	}
	if pending != nil {
		return apierror.NewAPIError(apierror.ErrTransferAlreadyPending,
			fmt.Sprintf("batch %d already has an open transfer", batchID), nil)
	}
	senderRole, err := c.GetRole(ctx, actor)
	if err != nil {
		return err
	}
	recipientRole, err := c.GetRole(ctx, to)
	if err != nil {
		return err
	}
	if recipientRole == model.RoleNone {
		return apierror.NewAPIError(apierror.ErrRecipientHasNoRole,
			fmt.Sprintf("recipient %s has no registered role", to), nil)
	}
	if !model.RouteAllowed(senderRole, recipientRole) {
		return apierror.NewAPIError(apierror.ErrInvalidTransferRoute,
			fmt.Sprintf("transfers from %s to %s are not permitted", senderRole, recipientRole), nil)
	}
	return nil
}

// InitiateTransfer opens the custody handshake for a batch. When the tag
// bridge is enabled the batch id is staged onto the hardware tag first, and
// a ledger rejection triggers a best-effort compensating clear: the clear is
// logged when it fails, never retried indefinitely.
func (c *Chainproof) InitiateTransfer(ctx context.Context, actor string, batchID uint64, to string) (string, error) {
	ctx, span := tracer.Start(ctx, "Initiating custody transfer")
	defer span.End()

	if err := c.precheckInitiate(ctx, actor, batchID, to); err != nil {
		return "", logAndRecordError(span, "transfer precheck failed: ", err)
	}

	conf, err := config.Fetch()
	if err != nil {
		return "", err
	}
	if conf.Bridge.Enabled {
		// One staging at a time per device.
		locker := redlock.NewLocker(c.redis, fmt.Sprintf("bridge:%s", conf.Bridge.DeviceID),
			model.GenerateUUIDWithSuffix("lock"))
		if err := locker.WaitLock(ctx, bridgeLockDuration, bridgeLockWait); err != nil {
			return "", logAndRecordError(span, "bridge lock not acquired: ", err)
		}
		defer func() {
			if unlockErr := locker.Unlock(context.Background()); unlockErr != nil {
				notification.NotifyError(errors.Wrap(unlockErr, "releasing bridge lock"))
			}
		}()
		if err := c.bridge.StageBatchID(ctx, batchID); err != nil {
			return "", logAndRecordError(span, "staging batch id on tag failed: ", err)
		}
	}

	ref, err := c.store.InitiateTransfer(ctx, actor, batchID, to)
	if err != nil {
		if conf.Bridge.Enabled {
			if clearErr := c.bridge.ClearStagedBatchID(ctx); clearErr != nil {
				notification.NotifyError(errors.Wrapf(clearErr, "clearing staged batch %d after rejected transfer", batchID))
			}
		}
		return "", logAndRecordError(span, "initiate transfer rejected: ", err)
	}

	c.postBatchActions(ctx, "transfer.initiated", map[string]interface{}{
		"batch_id": batchID,
		"from":     actor,
		"to":       to,
		"tx_ref":   ref,
	}, batchID)
	return ref, nil
}

// Receive accepts custody of a batch with an open transfer designating the
// caller.
func (c *Chainproof) Receive(ctx context.Context, actor string, batchID uint64) (string, error) {
	ctx, span := tracer.Start(ctx, "Receiving batch")
	defer span.End()

	pending, err := c.store.GetPendingTransfer(ctx, batchID)
	if err != nil {
		return "", logAndRecordError(span, "receive precheck failed: ", err)
	}
	if pending == nil || pending.To != actor {
		return "", apierror.NewAPIError(apierror.ErrNoPendingTransfer,
			fmt.Sprintf("no open transfer on batch %d designates %s", batchID, actor), nil)
	}

	ref, err := c.store.Receive(ctx, actor, batchID)
	if err != nil {
		return "", logAndRecordError(span, "receive rejected: ", err)
	}
	c.postBatchActions(ctx, "batch.received", map[string]interface{}{
		"batch_id": batchID,
		"from":     pending.From,
		"to":       actor,
		"tx_ref":   ref,
	}, batchID)
	return ref, nil
}

// GetPendingTransfer reads the open transfer on a batch, nil when custody is
// settled.
func (c *Chainproof) GetPendingTransfer(ctx context.Context, batchID uint64) (*model.PendingTransfer, error) {
	return c.store.GetPendingTransfer(ctx, batchID)
}
