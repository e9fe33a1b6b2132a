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
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/chainproof/chainproof/internal/apierror"
	"github.com/chainproof/chainproof/internal/request"
	"github.com/chainproof/chainproof/model"
	"github.com/chainproof/chainproof/registry"
)

const defaultReadRetryWindow = 15 * time.Second

// RPCLedger talks to the external ledger service over HTTP. Mutations go
// through a single transaction endpoint and are never auto-retried; reads
// are idempotent and retried with exponential backoff.
type RPCLedger struct {
	endpoint  string
	contract  string
	readRetry time.Duration
}

var _ Ledger = (*RPCLedger)(nil)

// NewRPCLedger builds a client from a resolved registry entry.
func NewRPCLedger(entry registry.Entry) *RPCLedger {
	return &RPCLedger{
		endpoint:  strings.TrimRight(entry.Endpoint, "/"),
		contract:  entry.Address,
		readRetry: defaultReadRetryWindow,
	}
}

type txRequest struct {
	Op       string      `json:"op"`
	Contract string      `json:"contract"`
	Actor    string      `json:"actor"`
	Args     interface{} `json:"args"`
}

type revertDetail struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type txResponse struct {
	TxRef   string         `json:"tx_ref"`
	Batch   *model.Batch   `json:"batch,omitempty"`
	Batches []*model.Batch `json:"batches,omitempty"`
	Revert  *revertDetail  `json:"revert,omitempty"`
}

// stateResponse is the shared envelope for state reads.
type stateResponse struct {
	Batch    *model.Batch           `json:"batch,omitempty"`
	ID       uint64                 `json:"id,omitempty"`
	Role     string                 `json:"role,omitempty"`
	Transfer *model.PendingTransfer `json:"transfer,omitempty"`
	IDs      []uint64               `json:"ids,omitempty"`
	Count    uint64                 `json:"count,omitempty"`
	Events   []model.Event          `json:"events,omitempty"`
	Error    *revertDetail          `json:"error,omitempty"`
}

// revertError converts a ledger rejection into the typed taxonomy. Known
// codes keep their precise classification; anything else surfaces as a
// rejection with the revert reason verbatim.
func revertError(rev *revertDetail) error {
	if rev == nil {
		return apierror.NewAPIError(apierror.ErrTransactionRejected, "ledger rejected the transaction", nil)
	}
	code := apierror.ErrorCode(rev.Code)
	if code == apierror.ErrInternalServer || apierror.CategoryOf(code) == apierror.CategoryInternal {
		return apierror.NewAPIError(apierror.ErrTransactionRejected, rev.Reason, nil)
	}
	return apierror.NewAPIError(code, rev.Reason, nil)
}

// submit posts one transaction. Exactly one attempt: a resubmission of an
// already-committed transaction could double-apply.
func (r *RPCLedger) submit(ctx context.Context, op, actor string, args interface{}) (*txResponse, error) {
	payload, err := request.ToJsonReq(&txRequest{Op: op, Contract: r.contract, Actor: actor, Args: args})
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s transaction", op)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/api/v1/transactions", payload)
	if err != nil {
		return nil, errors.Wrapf(err, "building %s transaction request", op)
	}
	var body txResponse
	resp, err := request.Call(req, &body)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrNetworkUnavailable, "ledger service unreachable", err.Error())
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, apierror.NewAPIError(apierror.ErrNetworkUnavailable,
			fmt.Sprintf("ledger service returned status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= http.StatusBadRequest || body.Revert != nil {
		return nil, revertError(body.Revert)
	}
	return &body, nil
}

// get reads a state endpoint with retries.
func (r *RPCLedger) get(ctx context.Context, path string) (*stateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building read request for %s", path)
	}
	var body stateResponse
	resp, err := request.CallWithRetry(req, &body, r.readRetry)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrNetworkUnavailable, "ledger service unreachable", err.Error())
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return &body, nil
	case resp.StatusCode == http.StatusNotFound:
		reason := fmt.Sprintf("ledger has no record at %s", path)
		if body.Error != nil && body.Error.Reason != "" {
			reason = body.Error.Reason
		}
		return nil, apierror.NewAPIError(apierror.ErrBatchNotFound, reason, nil)
	default:
		return nil, apierror.NewAPIError(apierror.ErrNetworkUnavailable,
			fmt.Sprintf("ledger service returned status %d", resp.StatusCode), nil)
	}
}

func (r *RPCLedger) AssignRole(ctx context.Context, account string, role model.Role) (string, error) {
	body, err := r.submit(ctx, "assign_role", account, map[string]string{"role": role.String()})
	if err != nil {
		return "", err
	}
	return body.TxRef, nil
}

func (r *RPCLedger) GetRole(ctx context.Context, account string) (model.Role, error) {
	body, err := r.get(ctx, "/api/v1/state/roles/"+url.PathEscape(account))
	if err != nil {
		return model.RoleNone, err
	}
	if body.Role == "" {
		return model.RoleNone, nil
	}
	role, err := model.ParseRole(body.Role)
	if err != nil {
		return model.RoleNone, errors.Wrapf(err, "ledger reported role for %s", account)
	}
	return role, nil
}

func (r *RPCLedger) Harvest(ctx context.Context, actor string, spec model.BatchSpec) (*model.Batch, error) {
	body, err := r.submit(ctx, "harvest", actor, spec)
	if err != nil {
		return nil, err
	}
	if body.Batch == nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "ledger committed harvest without a batch record", nil)
	}
	stampTxRef(body, body.Batch)
	return body.Batch, nil
}

// stampTxRef backfills the transaction reference on returned records when the
// ledger only reports it at the envelope level.
func stampTxRef(body *txResponse, batches ...*model.Batch) {
	for _, batch := range batches {
		if batch != nil && batch.TxRef == "" {
			batch.TxRef = body.TxRef
		}
	}
}

func (r *RPCLedger) Split(ctx context.Context, actor string, parentID uint64, children []model.BatchSpec) ([]*model.Batch, error) {
	args := map[string]interface{}{"parent_id": parentID, "children": children}
	body, err := r.submit(ctx, "split", actor, args)
	if err != nil {
		return nil, err
	}
	stampTxRef(body, body.Batches...)
	return body.Batches, nil
}

func (r *RPCLedger) Merge(ctx context.Context, actor string, inputIDs []uint64, output model.BatchSpec) (*model.Batch, error) {
	args := map[string]interface{}{"input_ids": inputIDs, "output": output}
	body, err := r.submit(ctx, "merge", actor, args)
	if err != nil {
		return nil, err
	}
	if body.Batch == nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "ledger committed merge without a batch record", nil)
	}
	stampTxRef(body, body.Batch)
	return body.Batch, nil
}

func (r *RPCLedger) Transform(ctx context.Context, actor string, inputIDs []uint64, processType string, output model.BatchSpec) (*model.Batch, error) {
	args := map[string]interface{}{"input_ids": inputIDs, "process_type": processType, "output": output}
	body, err := r.submit(ctx, "transform", actor, args)
	if err != nil {
		return nil, err
	}
	if body.Batch == nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "ledger committed transform without a batch record", nil)
	}
	stampTxRef(body, body.Batch)
	return body.Batch, nil
}

func (r *RPCLedger) InitiateTransfer(ctx context.Context, actor string, batchID uint64, to string) (string, error) {
	args := map[string]interface{}{"batch_id": batchID, "to": to}
	body, err := r.submit(ctx, "initiate_transfer", actor, args)
	if err != nil {
		return "", err
	}
	return body.TxRef, nil
}

func (r *RPCLedger) Receive(ctx context.Context, actor string, batchID uint64) (string, error) {
	args := map[string]interface{}{"batch_id": batchID}
	body, err := r.submit(ctx, "receive", actor, args)
	if err != nil {
		return "", err
	}
	return body.TxRef, nil
}

func (r *RPCLedger) GetBatch(ctx context.Context, id uint64) (*model.Batch, error) {
	body, err := r.get(ctx, fmt.Sprintf("/api/v1/state/batches/%d", id))
	if err != nil {
		return nil, err
	}
	if body.Batch == nil {
		return nil, apierror.NewAPIError(apierror.ErrBatchNotFound, fmt.Sprintf("batch %d does not exist", id), nil)
	}
	return body.Batch, nil
}

func (r *RPCLedger) GetBatchIDByTrackingCode(ctx context.Context, code string) (uint64, error) {
	body, err := r.get(ctx, "/api/v1/state/tracking-codes/"+url.PathEscape(model.NormalizeTrackingCode(code)))
	if err != nil {
		return 0, err
	}
	if body.ID == 0 {
		return 0, apierror.NewAPIError(apierror.ErrBatchNotFound, fmt.Sprintf("no batch carries tracking code %q", code), nil)
	}
	return body.ID, nil
}

func (r *RPCLedger) GetPendingTransfer(ctx context.Context, batchID uint64) (*model.PendingTransfer, error) {
	body, err := r.get(ctx, fmt.Sprintf("/api/v1/state/batches/%d/transfer", batchID))
	if err != nil {
		return nil, err
	}
	return body.Transfer, nil
}

func (r *RPCLedger) GetParents(ctx context.Context, id uint64) ([]uint64, error) {
	body, err := r.get(ctx, fmt.Sprintf("/api/v1/state/batches/%d/parents", id))
	if err != nil {
		return nil, err
	}
	return body.IDs, nil
}

func (r *RPCLedger) GetChildren(ctx context.Context, id uint64) ([]uint64, error) {
	body, err := r.get(ctx, fmt.Sprintf("/api/v1/state/batches/%d/children", id))
	if err != nil {
		return nil, err
	}
	return body.IDs, nil
}

func (r *RPCLedger) BatchCount(ctx context.Context) (uint64, error) {
	body, err := r.get(ctx, "/api/v1/state/batches/count")
	if err != nil {
		return 0, err
	}
	return body.Count, nil
}

func (r *RPCLedger) GetEventsByKind(ctx context.Context, kind model.EventKind) ([]model.Event, error) {
	body, err := r.get(ctx, "/api/v1/events?kind="+url.QueryEscape(string(kind)))
	if err != nil {
		return nil, err
	}
	return body.Events, nil
}
