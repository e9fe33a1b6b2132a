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
	"fmt"

	"github.com/pkg/errors"

	"github.com/chainproof/chainproof/config"
	"github.com/chainproof/chainproof/registry"
)

// NewLedger builds the configured backend: "rpc" resolves the contract
// endpoint through the registry file, "memory" runs the embedded reference
// ledger.
func NewLedger(configuration *config.Configuration) (Ledger, error) {
	switch configuration.Ledger.Backend {
	case "memory":
		return NewMemoryLedger(), nil
	case "rpc":
		reg, err := registry.Load(configuration.Ledger.RegistryPath)
		if err != nil {
			return nil, errors.Wrap(err, "loading contract registry")
		}
		entry, err := reg.Resolve(configuration.Ledger.ContractKey, configuration.Ledger.ChainID)
		if err != nil {
			return nil, err
		}
		return NewRPCLedger(entry), nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", configuration.Ledger.Backend)
	}
}
