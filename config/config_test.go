package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetsAreValid(t *testing.T) {
	for _, network := range []string{Local, Devnet, Mainnet} {
		t.Run(network, func(t *testing.T) {
			p, err := PresetFor(network)
			require.NoError(t, err)
			assert.NoError(t, p.Cpmm.Validate())
			assert.NoError(t, p.FairMint.Validate())
			assert.Equal(t, p.Cpmm, p.FairMint.Cpmm)
		})
	}
	_, err := PresetFor("testnet")
	assert.Error(t, err)

	main, _ := PresetFor(Mainnet)
	assert.True(t, main.FairMint.AllowOwnerOffCurve)
	assert.Equal(t, usdc, main.Cpmm.BaseMint)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FLIPFLOP_NETWORK", "LOCAL")
	t.Setenv("SOLANA_RPC_URL", "http://node:8899")
	t.Setenv("FLIPFLOP_COMMITMENT", "finalized")
	t.Setenv("FLIPFLOP_RPS", "12.5")
	t.Setenv("FLIPFLOP_CONFIRM_TIMEOUT", "15s")
	t.Setenv("FLIPFLOP_MAX_BATCH_INSTRUCTIONS", "9")
	t.Setenv("FLIPFLOP_SIMULATE", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Local, cfg.Network)
	assert.Equal(t, "http://node:8899", cfg.RPCURL)
	assert.Equal(t, rpc.LocalNet_WS, cfg.WSURL)
	assert.Equal(t, rpc.CommitmentFinalized, cfg.Commitment)
	assert.Equal(t, 12.5, cfg.RPS)
	assert.Equal(t, 15*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, 9, cfg.MaxBatchInstructions)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnvRejectsUnknownValues(t *testing.T) {
	t.Setenv("FLIPFLOP_NETWORK", "moonnet")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("FLIPFLOP_NETWORK", Devnet)
	t.Setenv("FLIPFLOP_COMMITMENT", "soon")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestDescriptorJSON(t *testing.T) {
	baseMint := solana.NewWallet().PublicKey()
	table := solana.NewWallet().PublicKey()
	t.Setenv("FLIPFLOP_NETWORK", Devnet)
	t.Setenv("FLIPFLOP_DESCRIPTOR_JSON", `{"cpmm":{"baseMint":"`+baseMint.String()+`"},"fairMint":{"lookupTable":"`+table.String()+`","allowOwnerOffCurve":true}}`)

	cfg, err := FromEnv()
	require.NoError(t, err)
	devnet, _ := PresetFor(Devnet)
	assert.Equal(t, baseMint, cfg.Cpmm.BaseMint)
	assert.Equal(t, devnet.Cpmm.ProgramID, cfg.Cpmm.ProgramID)
	assert.Equal(t, baseMint, cfg.FairMint.Cpmm.BaseMint)
	assert.Equal(t, table, cfg.FairMint.LookupTable)
	assert.True(t, cfg.FairMint.AllowOwnerOffCurve)

	assert.Error(t, cfg.ApplyDescriptorJSON(`{"cpmm":`))
	assert.Error(t, cfg.ApplyDescriptorJSON(`{"cpmm":{"ammConfig":"not-a-key"}}`))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flipflop.env")
	require.NoError(t, os.WriteFile(path, []byte("FLIPFLOP_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("FLIPFLOP_NETWORK", Devnet)
	// godotenv never overrides a variable that is already set.
	t.Setenv("FLIPFLOP_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("FLIPFLOP_LOG_LEVEL"))

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}
