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

	"github.com/chainproof/chainproof/model"
)

// Ledger is the boundary to the authoritative append-only store. Every
// mutation either commits fully (state change, lineage edges, event record)
// or not at all.
type Ledger interface {
	roles     // Interface for role registry operations
	batches   // Interface for batch minting operations
	transfers // Interface for the two-phase custody handshake
	state     // Interface for current-state reads
	events    // Interface for event log queries
}

// roles defines methods for the on-ledger role registry.
type roles interface {
	AssignRole(ctx context.Context, account string, role model.Role) (string, error) // Assigns a role to an account, returns the tx reference
	GetRole(ctx context.Context, account string) (model.Role, error)                 // Reads the role of an account, RoleNone when unregistered
}

// batches defines methods that mint batches and lineage edges.
type batches interface {
	Harvest(ctx context.Context, actor string, spec model.BatchSpec) (*model.Batch, error)                                            // Mints a root batch with no parents
	Split(ctx context.Context, actor string, parentID uint64, children []model.BatchSpec) ([]*model.Batch, error)                     // Divides part of a parent into child batches
	Merge(ctx context.Context, actor string, inputIDs []uint64, output model.BatchSpec) (*model.Batch, error)                         // Combines input batches into one output batch
	Transform(ctx context.Context, actor string, inputIDs []uint64, processType string, output model.BatchSpec) (*model.Batch, error) // Converts input batches into a new product batch
}

// transfers defines the custody handshake methods.
type transfers interface {
	InitiateTransfer(ctx context.Context, actor string, batchID uint64, to string) (string, error) // Opens a pending transfer, returns the tx reference
	Receive(ctx context.Context, actor string, batchID uint64) (string, error)                     // Accepts custody of a pending transfer
}

// state defines current-state read methods.
type state interface {
	GetBatch(ctx context.Context, id uint64) (*model.Batch, error)                          // Retrieves a batch snapshot by id
	GetBatchIDByTrackingCode(ctx context.Context, code string) (uint64, error)              // Resolves a tracking code to a batch id
	GetPendingTransfer(ctx context.Context, batchID uint64) (*model.PendingTransfer, error) // Reads the open transfer for a batch, nil when none
	GetParents(ctx context.Context, id uint64) ([]uint64, error)                            // Single-hop lineage upward
	GetChildren(ctx context.Context, id uint64) ([]uint64, error)                           // Single-hop lineage downward
	BatchCount(ctx context.Context) (uint64, error)                                         // Number of batches ever minted
}

// events defines event log query methods.
type events interface {
	GetEventsByKind(ctx context.Context, kind model.EventKind) ([]model.Event, error) // Retrieves all events of one kind, oldest first
}
