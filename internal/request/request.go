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

package request

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// ToJsonReq converts a Go object to a JSON-encoded HTTP request payload.
func ToJsonReq(payload interface{}) (*bytes.Buffer, error) {
	c, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(c), nil
}

// Call sends the prepared request and decodes the JSON response body into
// response. The Content-Type header is forced to application/json.
func Call(req *http.Request, response interface{}) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return resp, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if response == nil {
		return resp, nil
	}
	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return resp, err
	}
	return resp, nil
}

// CallWithRetry behaves like Call but retries transport failures with
// exponential backoff. Only use it for idempotent, bodyless requests;
// mutations are never auto-retried since a resubmission could double-apply.
func CallWithRetry(req *http.Request, response interface{}, maxElapsed time.Duration) (*http.Response, error) {
	var resp *http.Response

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsed

	operation := func() error {
		var err error
		resp, err = Call(req.Clone(req.Context()), response)
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, req.Context()))
	return resp, err
}
