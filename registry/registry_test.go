package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contracts.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAndResolve(t *testing.T) {
	path := writeRegistry(t, `{
		"chainproof": {
			"31337": {
				"chainId": 31337,
				"address": "0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9",
				"endpoint": "http://127.0.0.1:8545"
			}
		}
	}`)

	reg, err := Load(path)
	require.NoError(t, err)

	entry, err := reg.Resolve("chainproof", 31337)
	require.NoError(t, err)
	assert.Equal(t, uint64(31337), entry.ChainID)
	assert.Equal(t, "0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9", entry.Address)
	assert.Equal(t, "http://127.0.0.1:8545", entry.Endpoint)
}

func TestResolveMissingEntries(t *testing.T) {
	path := writeRegistry(t, `{"chainproof": {"31337": {"chainId": 31337, "address": "0xabc"}}}`)
	reg, err := Load(path)
	require.NoError(t, err)

	_, err = reg.Resolve("unknown-key", 31337)
	assert.ErrorContains(t, err, `key "unknown-key"`)

	_, err = reg.Resolve("chainproof", 1337)
	assert.ErrorContains(t, err, "chain 1337")
}

func TestLoadFailures(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorContains(t, err, "could not load contract registry")

	path := writeRegistry(t, `{not json`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "could not parse contract registry")
}
