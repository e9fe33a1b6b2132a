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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT         = "5100"
	DEFAULT_CONTRACT_KEY = "chainproof"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"CHAINPROOF_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"CHAINPROOF_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"CHAINPROOF_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"CHAINPROOF_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"CHAINPROOF_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"CHAINPROOF_SERVER_PORT"`
}

// LedgerConfig points at the external ledger service that executes custody
// transactions. Backend "memory" runs the embedded reference ledger instead,
// for local development and tests.
type LedgerConfig struct {
	Backend      string `json:"backend" envconfig:"CHAINPROOF_LEDGER_BACKEND"`
	ChainID      uint64 `json:"chain_id" envconfig:"CHAINPROOF_LEDGER_CHAIN_ID"`
	ContractKey  string `json:"contract_key" envconfig:"CHAINPROOF_LEDGER_CONTRACT_KEY"`
	RegistryPath string `json:"registry_path" envconfig:"CHAINPROOF_LEDGER_REGISTRY_PATH"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"CHAINPROOF_REDIS_DNS"`
}

// BridgeConfig wires the optional hardware tag bridge used to stage a batch
// id onto a physical tag before the ledger transaction is submitted.
type BridgeConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"CHAINPROOF_BRIDGE_ENABLED"`
	Url      string `json:"url" envconfig:"CHAINPROOF_BRIDGE_URL"`
	DeviceID string `json:"device_id" envconfig:"CHAINPROOF_BRIDGE_DEVICE_ID"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"CHAINPROOF_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"CHAINPROOF_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CHAINPROOF_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string          `json:"project_name" envconfig:"CHAINPROOF_PROJECT_NAME"`
	Server       ServerConfig    `json:"server"`
	Ledger       LedgerConfig    `json:"ledger"`
	Redis        RedisConfig     `json:"redis"`
	Bridge       BridgeConfig    `json:"bridge"`
	Notification Notification    `json:"notification"`
	RateLimit    RateLimitConfig `json:"rate_limit"`
	TelemetryKey string          `json:"telemetry_key" envconfig:"CHAINPROOF_TELEMETRY_KEY"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("chainproof", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called chainproof.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "ChainProof Server"
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Ledger.Backend == "" {
		cnf.Ledger.Backend = "rpc"
	}
	if cnf.Ledger.Backend != "rpc" && cnf.Ledger.Backend != "memory" {
		return errors.New("ledger backend must be either rpc or memory")
	}
	if cnf.Ledger.Backend == "rpc" && cnf.Ledger.RegistryPath == "" {
		log.Println("Error: Ledger registry path is empty. It's a required field for the rpc backend.")
		return errors.New("ledger registry path is required")
	}
	if cnf.Ledger.ContractKey == "" {
		cnf.Ledger.ContractKey = DEFAULT_CONTRACT_KEY
	}

	if cnf.Bridge.Enabled && cnf.Bridge.Url == "" {
		return errors.New("bridge url is required when the bridge is enabled")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Ledger.RegistryPath = strings.TrimSpace(cnf.Ledger.RegistryPath)
	cnf.Ledger.ContractKey = strings.TrimSpace(cnf.Ledger.ContractKey)
	cnf.Bridge.Url = strings.TrimSpace(cnf.Bridge.Url)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
		log.Printf("Warning: Rate limit cleanup interval not specified. Setting default value: %d seconds", defaultCleanup)
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if mockConfig.Ledger.Backend == "" {
		mockConfig.Ledger.Backend = "memory"
	}
	if mockConfig.Ledger.ContractKey == "" {
		mockConfig.Ledger.ContractKey = DEFAULT_CONTRACT_KEY
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
