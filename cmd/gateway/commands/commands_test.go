package commands

import (
	"bytes"
	"testing"
	"time"

	"ble_gateway/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("GATEWAY_STORE", "postgres")
	t.Setenv("GATEWAY_MINING_INTERVAL", "5s")

	out, err := run(t, "--store", "memory", "--mining-interval", "20ms", "--mining-timeout", "0", "--log-level", "warn",
		"register", "0x00000000000000000000000000000000000000AA", "0x00000000000000000000000000000000000000cc")
	require.NoError(t, err)
	assert.Contains(t, out, "0x00000000000000000000000000000000000000aa")

	assert.Equal(t, config.BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 20*time.Millisecond, cfg.MiningCheckInterval)
	assert.Zero(t, cfg.MiningTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestRegisterRejectsBadAddress(t *testing.T) {
	_, err := run(t, "--store", "memory", "register", "alice", "0x00000000000000000000000000000000000000cc")
	assert.ErrorContains(t, err, "not an address")
}

func TestResetNeedsConfirmation(t *testing.T) {
	_, err := run(t, "--store", "memory", "reset")
	assert.ErrorContains(t, err, "--yes")

	out, err := run(t, "--store", "memory", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "removed")
}

func TestBadFlagValue(t *testing.T) {
	_, err := run(t, "--store", "memory", "--mining-timeout", "soon", "reset", "--yes")
	assert.Error(t, err)

	_, err = run(t, "--store", "sqlite", "reset", "--yes")
	assert.Error(t, err)
}
