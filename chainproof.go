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
	"github.com/redis/go-redis/v9"

	"github.com/chainproof/chainproof/bridge"
	"github.com/chainproof/chainproof/cache"
	"github.com/chainproof/chainproof/config"
	redis_db "github.com/chainproof/chainproof/internal/redis-db"
	"github.com/chainproof/chainproof/ledger"
)

// Chainproof is the application facade over the custody protocol. It wraps
// the ledger boundary with deterministic prechecks, cached reads, the
// hardware tag saga and webhook fan-out.
type Chainproof struct {
	store  ledger.Ledger
	cache  cache.Cache
	redis  redis.UniversalClient
	bridge bridge.Bridge
}

// NewChainproof initializes the facade around the provided ledger backend.
// Redis, the cache tier and the tag bridge come from the active
// configuration.
func NewChainproof(store ledger.Ledger) (*Chainproof, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{configuration.Redis.Dns})
	if err != nil {
		return nil, err
	}
	newCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}
	var tagBridge bridge.Bridge = bridge.Noop{}
	if configuration.Bridge.Enabled {
		tagBridge = bridge.NewHTTPBridge(configuration.Bridge.Url, configuration.Bridge.DeviceID)
	}
	return &Chainproof{
		store:  store,
		cache:  newCache,
		redis:  redisClient.Client(),
		bridge: tagBridge,
	}, nil
}
