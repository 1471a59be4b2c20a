package raydiumcp

import (
	"bytes"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/flipflop-go/solana"
)

var (
	PoolStateDiscriminator = solanago.AccountDiscriminator("PoolState")
	AmmConfigDiscriminator = solanago.AccountDiscriminator("AmmConfig")
)

// PoolState is the on-chain pool account. Trailing padding is not decoded.
type PoolState struct {
	AmmConfig          solana.PublicKey
	PoolCreator        solana.PublicKey
	Token0Vault        solana.PublicKey
	Token1Vault        solana.PublicKey
	LpMint             solana.PublicKey
	Token0Mint         solana.PublicKey
	Token1Mint         solana.PublicKey
	Token0Program      solana.PublicKey
	Token1Program      solana.PublicKey
	ObservationKey     solana.PublicKey
	AuthBump           uint8
	Status             uint8
	LpMintDecimals     uint8
	Mint0Decimals      uint8
	Mint1Decimals      uint8
	LpSupply           uint64
	ProtocolFeesToken0 uint64
	ProtocolFeesToken1 uint64
	FundFeesToken0     uint64
	FundFeesToken1     uint64
	OpenTime           uint64
	RecentEpoch        uint64
}

// AmmConfig holds the fee rates shared by every pool of one config.
type AmmConfig struct {
	Bump              uint8
	DisableCreatePool bool
	Index             uint16
	TradeFeeRate      uint64
	ProtocolFeeRate   uint64
	FundFeeRate       uint64
	CreatePoolFee     uint64
	ProtocolOwner     solana.PublicKey
	FundOwner         solana.PublicKey
}

// Pool status bits; a set bit disables the operation.
const (
	StatusDepositDisabled  uint8 = 1 << 0
	StatusWithdrawDisabled uint8 = 1 << 1
	StatusSwapDisabled     uint8 = 1 << 2
)

func decodeAccount(name string, disc [8]byte, data []byte, v any) error {
	if len(data) < 8 {
		return fmt.Errorf("%s: account data too short", name)
	}
	if !bytes.Equal(data[:8], disc[:]) {
		return fmt.Errorf("%s: discriminator mismatch", name)
	}
	if err := binary.NewBorshDecoder(data[8:]).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func DecodePoolState(data []byte) (*PoolState, error) {
	state := &PoolState{}
	if err := decodeAccount("PoolState", PoolStateDiscriminator, data, state); err != nil {
		return nil, err
	}
	return state, nil
}

func DecodeAmmConfig(data []byte) (*AmmConfig, error) {
	cfg := &AmmConfig{}
	if err := decodeAccount("AmmConfig", AmmConfigDiscriminator, data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EncodePoolState is the inverse of DecodePoolState, padded to the on-chain size.
func EncodePoolState(state *PoolState) ([]byte, error) {
	return encodeAccount(PoolStateDiscriminator, state, 637)
}

// EncodeAmmConfig is the inverse of DecodeAmmConfig, padded to the on-chain size.
func EncodeAmmConfig(cfg *AmmConfig) ([]byte, error) {
	return encodeAccount(AmmConfigDiscriminator, cfg, 236)
}

func encodeAccount(disc [8]byte, v any, size int) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := binary.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	if len(out) < size {
		out = append(out, make([]byte, size-len(out))...)
	}
	return out, nil
}
