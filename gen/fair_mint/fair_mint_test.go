package fairmint

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, [8]byte{59, 132, 24, 246, 122, 39, 8, 243}, MintTokensDiscriminator)
	assert.Equal(t, [8]byte{2, 96, 183, 251, 63, 208, 46, 46}, RefundDiscriminator)
	assert.Equal(t, [8]byte{192, 35, 167, 45, 153, 226, 213, 45}, SystemConfigDataDiscriminator)
	assert.Equal(t, [8]byte{136, 185, 38, 182, 42, 126, 118, 45}, TokenReferralDataDiscriminator)
	assert.Equal(t, [8]byte{223, 104, 233, 118, 230, 133, 135, 33}, CodeAccountDataDiscriminator)
	assert.Equal(t, [8]byte{16, 160, 38, 231, 81, 131, 138, 105}, TokenRefundDataDiscriminator)
	assert.Equal(t, [8]byte{38, 179, 204, 76, 50, 176, 214, 81}, TokenConfigDataDiscriminator)
	assert.Equal(t, [8]byte{38, 209, 150, 50, 190, 117, 16, 54}, InitializeTokenDiscriminator)
	assert.Equal(t, [8]byte{129, 47, 113, 211, 151, 134, 156, 250}, SetReferrerCodeDiscriminator)
}

func TestAccountsRoundTrip(t *testing.T) {
	cfg := &SystemConfigData{
		Admin:                solana.NewWallet().PublicKey(),
		Count:                7,
		ProtocolFeeAccount:   solana.NewWallet().PublicKey(),
		RefundFeeRate:        0.2,
		RaydiumCpmmCreateFee: 150_000_000,
		IsPause:              true,
	}
	data, err := EncodeAccount(cfg)
	require.NoError(t, err)
	got, err := DecodeSystemConfigData(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	refund := &TokenRefundData{Owner: solana.NewWallet().PublicKey(), TotalTokens: 10, VaultTokens: 3}
	data, err = EncodeAccount(refund)
	require.NoError(t, err)
	gotRefund, err := DecodeTokenRefundData(data)
	require.NoError(t, err)
	assert.Equal(t, refund, gotRefund)

	_, err = DecodeTokenReferralData(data)
	assert.Error(t, err)

	config := &TokenConfigData{
		TargetEras:           1,
		MintStateData:        TokenMintState{Supply: 42, CurrentEpoch: 3, DifficultyCoefficientEpoch: 1.5, GraduateEpoch: 9},
		Admin:                solana.NewWallet().PublicKey(),
		MaxSupply:            1_000,
		ReduceRatio:          0.5,
		LiquidityTokensRatio: 0.2,
		BaseDecimals:         6,
		IsProcessing:         true,
		ValueManager:         solana.NewWallet().PublicKey(),
	}
	data, err = EncodeAccount(config)
	require.NoError(t, err)
	gotConfig, err := DecodeTokenConfigData(data)
	require.NoError(t, err)
	assert.Equal(t, config, gotConfig)
	_, err = EncodeAccount(struct{}{})
	assert.Error(t, err)
}

func TestDecodeMetadataStripsPadding(t *testing.T) {
	data, err := EncodeMetadata(&Metadata{
		Key:    4,
		Mint:   solana.NewWallet().PublicKey(),
		Name:   "Flip\x00\x00\x00\x00",
		Symbol: "FLP\x00\x00",
		URI:    "https://example.org/flp.json\x00\x00",
	})
	require.NoError(t, err)
	// trailing creators and flags are not decoded
	data = append(data, 1, 2, 3)

	m, err := DecodeMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, "Flip", m.Name)
	assert.Equal(t, "FLP", m.Symbol)
	assert.Equal(t, "https://example.org/flp.json", m.URI)
}

func TestMintTokensLayout(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	codeHash := solana.NewWallet().PublicKey()
	ix, err := NewMintTokensInstruction(ProgramID, "Flip", "FLP", codeHash,
		MintTokensAccounts{User: user}, PoolInitAccounts{User: user})
	require.NoError(t, err)

	accounts := ix.Accounts()
	require.Len(t, accounts, 27+21)
	assert.True(t, accounts[4].IsSigner)
	assert.False(t, accounts[27].IsWritable)
	assert.True(t, accounts[28].IsSigner)
	for _, meta := range accounts[29:] {
		assert.True(t, meta.IsWritable)
	}

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, MintTokensDiscriminator[:], data[:8])
	// name, symbol, then the code hash, each length-prefixed
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(data[8:]))
	assert.Equal(t, "Flip", string(data[12:16]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[16:]))
	assert.Equal(t, uint32(32), binary.LittleEndian.Uint32(data[23:]))
	assert.Equal(t, codeHash.Bytes(), data[27:59])
	assert.Len(t, data, 59)
}

func TestRefundLayout(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	ix, err := NewRefundInstruction(ProgramID, "Flip", "FLP", RefundAccounts{Payer: payer})
	require.NoError(t, err)
	require.Len(t, ix.Accounts(), 13)
	assert.Equal(t, payer, ix.Accounts()[7].PublicKey)
	assert.True(t, ix.Accounts()[7].IsSigner)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, RefundDiscriminator[:], data[:8])
	assert.Len(t, data, 8+4+4+4+3)
}

func TestInitializeTokenLayout(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	ix, err := NewInitializeTokenInstruction(ProgramID,
		TokenMetadata{Symbol: "FLP", Name: "Flip", URI: "u"},
		InitializeTokenConfigData{TargetEras: 1, EpochesPerEra: 200, ReduceRatio: 50, LiquidityTokensRatio: 20},
		InitializeTokenAccounts{Payer: payer})
	require.NoError(t, err)

	accounts := ix.Accounts()
	require.Len(t, accounts, 19)
	assert.Equal(t, payer, accounts[1].PublicKey)
	assert.True(t, accounts[1].IsSigner)
	assert.False(t, accounts[5].IsWritable)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, InitializeTokenDiscriminator[:], data[:8])
	// symbol comes first in the metadata
	assert.Equal(t, "FLP", string(data[12:15]))
	assert.Len(t, data, 8+(4+3)+(4+4)+(4+1)+4+8*8)
	assert.Equal(t, uint64(200), binary.LittleEndian.Uint64(data[32:]))
	assert.Equal(t, 50.0, math.Float64frombits(binary.LittleEndian.Uint64(data[48:])))
}

func TestSetReferrerCodeLayout(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	codeHash := solana.NewWallet().PublicKey()
	ix, err := NewSetReferrerCodeInstruction(ProgramID, "Flip", "FLP", codeHash, SetReferrerCodeAccounts{Payer: payer})
	require.NoError(t, err)
	require.Len(t, ix.Accounts(), 11)
	assert.True(t, ix.Accounts()[0].IsSigner)
	assert.False(t, ix.Accounts()[1].IsWritable)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, SetReferrerCodeDiscriminator[:], data[:8])
	assert.Equal(t, codeHash.Bytes(), data[27:59])
}
