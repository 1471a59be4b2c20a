package raydiumcp

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, [8]byte{143, 190, 90, 218, 196, 30, 51, 222}, SwapBaseInputDiscriminator)
	assert.Equal(t, [8]byte{55, 217, 98, 86, 163, 74, 180, 173}, SwapBaseOutputDiscriminator)
	assert.Equal(t, [8]byte{242, 35, 198, 137, 82, 225, 242, 182}, DepositDiscriminator)
	assert.Equal(t, [8]byte{183, 18, 70, 156, 148, 109, 161, 34}, WithdrawDiscriminator)
	assert.Equal(t, [8]byte{175, 175, 109, 31, 13, 152, 155, 237}, InitializeDiscriminator)
	assert.Equal(t, [8]byte{247, 237, 227, 245, 215, 195, 222, 70}, PoolStateDiscriminator)
}

func TestPoolStateRoundTrip(t *testing.T) {
	state := &PoolState{
		AmmConfig:      solana.NewWallet().PublicKey(),
		Token0Mint:     solana.NewWallet().PublicKey(),
		Status:         StatusSwapDisabled,
		LpSupply:       700_000,
		FundFeesToken1: 12,
	}
	data, err := EncodePoolState(state)
	require.NoError(t, err)
	assert.Len(t, data, 637)

	got, err := DecodePoolState(data)
	require.NoError(t, err)
	assert.Equal(t, state, got)

	_, err = DecodeAmmConfig(data)
	assert.Error(t, err)
	_, err = DecodePoolState(data[:10])
	assert.Error(t, err)
}

func TestFindEventsByPool(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()

	foreign, err := EncodeEvent(&SwapEvent{PoolID: other, OutputAmount: 1})
	require.NoError(t, err)
	ours, err := EncodeEvent(&SwapEvent{PoolID: pool, InputAmount: 10, OutputAmount: 5})
	require.NoError(t, err)
	lp, err := EncodeEvent(&LpChangeEvent{PoolID: pool, ChangeType: LpChangeWithdraw, Token0Amount: 3})
	require.NoError(t, err)

	ev, ok := FindSwapEvent([][]byte{foreign, lp, ours}, pool)
	require.True(t, ok)
	assert.Equal(t, uint64(5), ev.OutputAmount)

	change, ok := FindLpChangeEvent([][]byte{foreign, ours, lp}, pool)
	require.True(t, ok)
	assert.Equal(t, LpChangeWithdraw, change.ChangeType)

	_, ok = FindSwapEvent([][]byte{foreign}, pool)
	assert.False(t, ok)
}

func TestInstructionLayouts(t *testing.T) {
	program := solana.NewWallet().PublicKey()

	swap, err := NewSwapBaseInputInstruction(program, 10, 9, SwapAccounts{Payer: solana.NewWallet().PublicKey()})
	require.NoError(t, err)
	data, err := swap.Data()
	require.NoError(t, err)
	assert.Len(t, data, 8+16)
	assert.Equal(t, SwapBaseInputDiscriminator[:], data[:8])
	assert.Equal(t, byte(10), data[8])
	assert.Equal(t, byte(9), data[16])
	require.Len(t, swap.Accounts(), 13)
	assert.True(t, swap.Accounts()[0].IsSigner)

	withdraw, err := NewWithdrawInstruction(program, 1, 2, 3, LiquidityAccounts{})
	require.NoError(t, err)
	require.Len(t, withdraw.Accounts(), 14)
	assert.Equal(t, MemoProgramID, withdraw.Accounts()[13].PublicKey)

	init, err := NewInitializeInstruction(program, 1, 2, 3, InitializeAccounts{})
	require.NoError(t, err)
	data, err = init.Data()
	require.NoError(t, err)
	assert.Len(t, data, 8+24)
	assert.Len(t, init.Accounts(), 20)
}
