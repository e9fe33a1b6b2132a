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

// Package bridge talks to the hardware tag bridge that stages a batch id
// onto a physical device before a custody handoff. Staging is advisory:
// the ledger, not the tag, is authoritative, so every bridge failure is
// reported but never blocks a committed transaction.
package bridge

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chainproof/chainproof/internal/request"
)

// Bridge stages batch ids on a physical tag device.
type Bridge interface {
	// StageBatchID writes the batch id to the device ahead of a transfer.
	StageBatchID(ctx context.Context, batchID uint64) error
	// ReadStagedBatchID returns the currently staged id, or 0 when the
	// device holds none.
	ReadStagedBatchID(ctx context.Context) (uint64, error)
	// ClearStagedBatchID is the compensating call used when the paired
	// ledger transaction fails after staging succeeded.
	ClearStagedBatchID(ctx context.Context) error
}

// HTTPBridge drives a tag writer over its local HTTP endpoint (the BLE/NFC
// gateway in front of the physical device).
type HTTPBridge struct {
	baseURL  string
	deviceID string
}

func NewHTTPBridge(baseURL, deviceID string) *HTTPBridge {
	return &HTTPBridge{baseURL: baseURL, deviceID: deviceID}
}

type stagePayload struct {
	DeviceID string `json:"device_id"`
	BatchID  uint64 `json:"batch_id"`
}

type stagedResponse struct {
	BatchID uint64 `json:"batch_id"`
}

func (b *HTTPBridge) StageBatchID(ctx context.Context, batchID uint64) error {
	payload, err := request.ToJsonReq(&stagePayload{DeviceID: b.deviceID, BatchID: batchID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/stage", payload)
	if err != nil {
		return err
	}
	resp, err := request.Call(req, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bridge stage failed with status %d", resp.StatusCode)
	}
	return nil
}

func (b *HTTPBridge) ReadStagedBatchID(ctx context.Context) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/staged?device_id=%s", b.baseURL, b.deviceID), nil)
	if err != nil {
		return 0, err
	}
	var staged stagedResponse
	resp, err := request.Call(req, &staged)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("bridge read failed with status %d", resp.StatusCode)
	}
	return staged.BatchID, nil
}

func (b *HTTPBridge) ClearStagedBatchID(ctx context.Context) error {
	payload, err := request.ToJsonReq(&stagePayload{DeviceID: b.deviceID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/clear", payload)
	if err != nil {
		return err
	}
	resp, err := request.Call(req, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bridge clear failed with status %d", resp.StatusCode)
	}
	return nil
}

// Noop is used when no hardware bridge is configured.
type Noop struct{}

func (Noop) StageBatchID(context.Context, uint64) error        { return nil }
func (Noop) ReadStagedBatchID(context.Context) (uint64, error) { return 0, nil }
func (Noop) ClearStagedBatchID(context.Context) error          { return nil }
