package config

import (
	"encoding/json"
	"os"
	"testing"
)

func TestValidateAndAddDefaults(t *testing.T) {
	// Missing redis DNS is an error
	cnf := Configuration{
		ProjectName: "",
		Redis:       RedisConfig{Dns: ""},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	// rpc backend needs a registry path
	cnf = Configuration{
		Redis:  RedisConfig{Dns: "localhost:6379"},
		Ledger: LedgerConfig{Backend: "rpc"},
	}
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "ledger registry path is required" {
		t.Errorf("Expected registry path required error, got %v", err)
	}

	// Unknown backend is rejected
	cnf = Configuration{
		Redis:  RedisConfig{Dns: "localhost:6379"},
		Ledger: LedgerConfig{Backend: "sqlite"},
	}
	err = cnf.validateAndAddDefaults()
	if err == nil {
		t.Error("Expected backend validation error, got nil")
	}

	// All required fields filled, expect no error and defaults applied
	cnf = Configuration{
		ProjectName: "Test Project",
		Redis:       RedisConfig{Dns: "localhost:6379"},
		Ledger:      LedgerConfig{Backend: "memory"},
	}
	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
	if cnf.Ledger.ContractKey != DEFAULT_CONTRACT_KEY {
		t.Errorf("Expected default contract key %s, got %s", DEFAULT_CONTRACT_KEY, cnf.Ledger.ContractKey)
	}

	// Bridge enabled without a url is an error
	cnf = Configuration{
		Redis:  RedisConfig{Dns: "localhost:6379"},
		Ledger: LedgerConfig{Backend: "memory"},
		Bridge: BridgeConfig{Enabled: true},
	}
	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "bridge url is required when the bridge is enabled" {
		t.Errorf("Expected bridge url required error, got %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "chainproof.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		Redis:       RedisConfig{Dns: "localhost:6379"},
		Ledger: LedgerConfig{
			Backend:      "rpc",
			ChainID:      31337,
			RegistryPath: "/config/contracts.json",
		},
	}
	if err := json.NewEncoder(tmpFile).Encode(&sampleConfig); err != nil {
		t.Fatalf("Unable to write sample config: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("Unable to close temporary file: %v", err)
	}

	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("Expected config to load, got %v", err)
	}

	loaded, err := Fetch()
	if err != nil {
		t.Fatalf("Expected config fetch to succeed, got %v", err)
	}
	if loaded.ProjectName != "Temp Project" {
		t.Errorf("Expected project name to round-trip, got %s", loaded.ProjectName)
	}
	if loaded.Ledger.ChainID != 31337 {
		t.Errorf("Expected chain id to round-trip, got %d", loaded.Ledger.ChainID)
	}
	if loaded.Ledger.ContractKey != DEFAULT_CONTRACT_KEY {
		t.Errorf("Expected default contract key, got %s", loaded.Ledger.ContractKey)
	}
}
