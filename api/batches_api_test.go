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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainproof/chainproof"
	model2 "github.com/chainproof/chainproof/api/model"
	"github.com/chainproof/chainproof/config"
	"github.com/chainproof/chainproof/ledger"
	"github.com/chainproof/chainproof/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	if s.Response != nil {
		if err := json.NewDecoder(resp.Body).Decode(s.Response); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *ledger.MemoryLedger) {
	t.Helper()
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})
	store := ledger.NewMemoryLedger()
	service, err := chainproof.NewChainproof(store)
	require.NoError(t, err)
	return NewAPI(service).Router(), store
}

func seedRole(t *testing.T, store *ledger.MemoryLedger, account string, role model.Role) {
	t.Helper()
	_, err := store.AssignRole(context.Background(), account, role)
	require.NoError(t, err)
}

// seedReceivedBatch puts a batch in the handler's custody. Non-producers get
// theirs through a completed transfer from a throwaway grower account.
func seedReceivedBatch(t *testing.T, store *ledger.MemoryLedger, handler, code string, quantity uint64) uint64 {
	t.Helper()
	ctx := context.Background()
	role, err := store.GetRole(ctx, handler)
	require.NoError(t, err)
	if role == model.RoleProducer {
		batch, err := store.Harvest(ctx, handler, model.BatchSpec{Origin: "Valley Farm", Quantity: quantity, TrackingCode: code})
		require.NoError(t, err)
		return batch.ID
	}
	grower := "seed-farm-" + code
	seedRole(t, store, grower, model.RoleProducer)
	batch, err := store.Harvest(ctx, grower, model.BatchSpec{Origin: "Valley Farm", Quantity: quantity, TrackingCode: code})
	require.NoError(t, err)
	_, err = store.InitiateTransfer(ctx, grower, batch.ID, handler)
	require.NoError(t, err)
	_, err = store.Receive(ctx, handler, batch.ID)
	require.NoError(t, err)
	return batch.ID
}

func jsonBody(t *testing.T, payload interface{}) io.Reader {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestAssignRoleEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, model2.AssignRole{Account: "farm-7", Role: "producer"}),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/roles",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "farm-7", response["account"])
	assert.NotEmpty(t, response["tx_ref"])

	var roleResponse map[string]interface{}
	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &roleResponse,
		Method:   http.MethodGet,
		Route:    "/roles/farm-7",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "producer", roleResponse["role"])
}

func TestAssignRoleRejectsUnknownLabel(t *testing.T) {
	router, _ := setupRouter(t)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, model2.AssignRole{Account: "farm-7", Role: "wizard"}),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/roles",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, response["errors"], "role")
}

func TestHarvestEndpoint(t *testing.T) {
	router, store := setupRouter(t)
	seedRole(t, store, "farm-7", model.RoleProducer)

	var batch model.Batch
	resp, err := SetUpTestRequest(TestRequest{
		Payload: jsonBody(t, model2.HarvestBatch{
			Actor:        "farm-7",
			Origin:       "Valley Farm",
			Quantity:     5000,
			TrackingCode: "BATCH-2026-001",
		}),
		Router:   router,
		Response: &batch,
		Method:   http.MethodPost,
		Route:    "/batches",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, uint64(1), batch.ID)
	assert.Equal(t, "farm-7", batch.CurrentHandler)
	assert.Equal(t, model.StatusCreated, batch.Status)
	// Callers get the committing transaction reference with the new record.
	assert.NotEmpty(t, batch.TxRef)

	var fetched model.Batch
	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &fetched,
		Method:   http.MethodGet,
		Route:    fmt.Sprintf("/batches/%d", batch.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, batch.TrackingCode, fetched.TrackingCode)

	var resolved map[string]interface{}
	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &resolved,
		Method:   http.MethodGet,
		Route:    "/tracking-codes/BATCH-2026-001",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(1), resolved["batch_id"])
}

func TestHarvestRequiresProducerRole(t *testing.T) {
	router, store := setupRouter(t)
	seedRole(t, store, "truck-1", model.RoleTransporter)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload: jsonBody(t, model2.HarvestBatch{
			Actor:        "truck-1",
			Origin:       "Valley Farm",
			Quantity:     100,
			TrackingCode: "BATCH-2026-002",
		}),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/batches",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestHarvestValidationErrors(t *testing.T) {
	router, store := setupRouter(t)
	seedRole(t, store, "farm-7", model.RoleProducer)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  jsonBody(t, model2.HarvestBatch{Actor: "farm-7", Origin: "Valley Farm"}),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/batches",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.NotEmpty(t, response["errors"])
}

func TestGetBatchNotFound(t *testing.T) {
	router, _ := setupRouter(t)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/batches/999",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp, err = SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodGet,
		Route:  "/batches/not-a-number",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSplitEndpoint(t *testing.T) {
	router, store := setupRouter(t)
	seedRole(t, store, "plant-1", model.RoleProcessor)
	parent := seedReceivedBatch(t, store, "plant-1", "BATCH-2026-010", 5000)

	var response struct {
		ParentID uint64         `json:"parent_id"`
		Children []*model.Batch `json:"children"`
	}
	resp, err := SetUpTestRequest(TestRequest{
		Payload: jsonBody(t, model2.SplitBatch{
			Actor: "plant-1",
			Children: []model2.ChildSpec{
				{Origin: "Valley Farm", Quantity: 2000, TrackingCode: "BATCH-2026-010-A"},
				{Origin: "Valley Farm", Quantity: 3000, TrackingCode: "BATCH-2026-010-B"},
			},
		}),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    fmt.Sprintf("/batches/%d/split", parent),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, parent, response.ParentID)
	require.Len(t, response.Children, 2)
	assert.Equal(t, uint64(2000), response.Children[0].Quantity)
	assert.NotEmpty(t, response.Children[0].TxRef)

	var lineage map[string]interface{}
	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &lineage,
		Method:   http.MethodGet,
		Route:    fmt.Sprintf("/batches/%d/descendants", parent),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, lineage["descendants"], 2)
}

func TestMergeAndTransformEndpoints(t *testing.T) {
	router, store := setupRouter(t)
	seedRole(t, store, "plant-1", model.RoleProcessor)
	first := seedReceivedBatch(t, store, "plant-1", "BATCH-2026-020", 300)
	second := seedReceivedBatch(t, store, "plant-1", "BATCH-2026-021", 700)

	var merged model.Batch
	resp, err := SetUpTestRequest(TestRequest{
		Payload: jsonBody(t, model2.MergeBatches{
			Actor:        "plant-1",
			InputIDs:     []uint64{first, second},
			Origin:       "Valley Farm",
			TrackingCode: "BATCH-2026-022",
		}),
		Router:   router,
		Response: &merged,
		Method:   http.MethodPost,
		Route:    "/merge",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, uint64(1000), merged.Quantity)

	var transformed model.Batch
	resp, err = SetUpTestRequest(TestRequest{
		Payload: jsonBody(t, model2.TransformBatches{
			Actor:        "plant-1",
			InputIDs:     []uint64{merged.ID},
			ProcessType:  "roasting",
			Origin:       "Valley Roastery",
			Quantity:     800,
			TrackingCode: "BATCH-2026-023",
		}),
		Router:   router,
		Response: &transformed,
		Method:   http.MethodPost,
		Route:    "/transform",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, uint64(800), transformed.Quantity)

	var ancestors map[string]interface{}
	resp, err = SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &ancestors,
		Method:   http.MethodGet,
		Route:    fmt.Sprintf("/batches/%d/ancestors", transformed.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, ancestors["ancestors"], 3)
}

func TestMergeConsumedInputIsUnprocessable(t *testing.T) {
	router, store := setupRouter(t)
	seedRole(t, store, "plant-1", model.RoleProcessor)
	first := seedReceivedBatch(t, store, "plant-1", "BATCH-2026-030", 300)
	second := seedReceivedBatch(t, store, "plant-1", "BATCH-2026-031", 700)

	_, err := store.Merge(context.Background(), "plant-1", []uint64{first, second}, model.BatchSpec{
		Origin:       "Valley Farm",
		TrackingCode: "BATCH-2026-032",
	})
	require.NoError(t, err)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload: jsonBody(t, model2.MergeBatches{
			Actor:        "plant-1",
			InputIDs:     []uint64{first, second},
			Origin:       "Valley Farm",
			TrackingCode: "BATCH-2026-033",
		}),
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/merge",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestSummaryEndpoint(t *testing.T) {
	router, store := setupRouter(t)
	seedRole(t, store, "farm-7", model.RoleProducer)
	seedReceivedBatch(t, store, "farm-7", "BATCH-2026-040", 100)
	seedReceivedBatch(t, store, "farm-7", "BATCH-2026-041", 200)

	var summary chainproof.Summary
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &summary,
		Method:   http.MethodGet,
		Route:    "/summary?viewer=farm-7",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, uint64(2), summary.BatchCount)
	assert.Equal(t, model.RoleProducer, summary.ViewerRole)
}
