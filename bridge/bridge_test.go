package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPBridgeStageAndClear(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://bridge.local/stage",
		func(req *http.Request) (*http.Response, error) {
			var payload map[string]interface{}
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				return nil, err
			}
			require.EqualValues(t, 42, payload["batch_id"])
			require.Equal(t, "device-1", payload["device_id"])
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"status": "staged"})
		})
	httpmock.RegisterResponder(http.MethodPost, "http://bridge.local/clear",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]string{"status": "cleared"}))

	b := NewHTTPBridge("http://bridge.local", "device-1")
	assert.NoError(t, b.StageBatchID(context.Background(), 42))
	assert.NoError(t, b.ClearStagedBatchID(context.Background()))
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestHTTPBridgeReadStaged(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "http://bridge.local/staged",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]uint64{"batch_id": 42}))

	b := NewHTTPBridge("http://bridge.local", "device-1")
	id, err := b.ReadStagedBatchID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestHTTPBridgeStageFailureSurfacesStatus(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "http://bridge.local/stage",
		httpmock.NewJsonResponderOrPanic(http.StatusServiceUnavailable, map[string]string{"error": "device offline"}))

	b := NewHTTPBridge("http://bridge.local", "device-1")
	err := b.StageBatchID(context.Background(), 42)
	assert.ErrorContains(t, err, "503")
}

func TestNoopBridge(t *testing.T) {
	var b Bridge = Noop{}
	assert.NoError(t, b.StageBatchID(context.Background(), 1))
	id, err := b.ReadStagedBatchID(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, id)
	assert.NoError(t, b.ClearStagedBatchID(context.Background()))
}
