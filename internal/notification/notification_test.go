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

package notification

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chainproof/chainproof/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackNotificationPostsErrorBlocks(t *testing.T) {
	received := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- body
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	config.MockConfig(&config.Configuration{
		Notification: config.Notification{
			Slack: config.SlackWebhook{WebhookUrl: server.URL},
		},
	})

	SlackNotification(errors.New("ledger unreachable"))

	body := <-received
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Contains(t, string(body), "ledger unreachable")
	assert.Contains(t, payload, "blocks")
}

func TestNotifyErrorWithoutSlackConfigured(t *testing.T) {
	config.MockConfig(&config.Configuration{})

	// Must not panic or block when no Slack webhook is configured.
	NotifyError(errors.New("background failure"))
}
