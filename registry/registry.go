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

// Package registry resolves a contract key and chain id to the deployed
// ledger contract. Registry failures are configuration errors, not protocol
// errors: a missing entry means the deployment bookkeeping is wrong, not
// that a batch operation failed.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Entry describes one deployed contract on one chain.
type Entry struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Endpoint string `json:"endpoint"`
}

// Registry maps contract key -> chain id (as a decimal string) -> entry,
// matching the contracts.json layout written at deploy time.
type Registry map[string]map[string]Entry

// Load reads a registry file from disk.
func Load(path string) (Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not load contract registry: %w", err)
	}
	var reg Registry
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("could not parse contract registry: %w", err)
	}
	return reg, nil
}

// Resolve looks up the entry for the given contract key and chain id.
func (r Registry) Resolve(contractKey string, chainID uint64) (Entry, error) {
	byKey, ok := r[contractKey]
	if !ok {
		return Entry{}, fmt.Errorf("no contract registry entry found for key %q", contractKey)
	}
	entry, ok := byKey[strconv.FormatUint(chainID, 10)]
	if !ok || entry.Address == "" {
		return Entry{}, fmt.Errorf("no contract registry entry found for key %q on chain %d", contractKey, chainID)
	}
	return entry, nil
}
