package fairmint

import (
	"bytes"
	"fmt"
	"strings"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/flipflop-go/solana"
)

var (
	SystemConfigDataDiscriminator  = solanago.AccountDiscriminator("SystemConfigData")
	TokenReferralDataDiscriminator = solanago.AccountDiscriminator("TokenReferralData")
	CodeAccountDataDiscriminator   = solanago.AccountDiscriminator("CodeAccountData")
	TokenRefundDataDiscriminator   = solanago.AccountDiscriminator("TokenRefundData")
	TokenConfigDataDiscriminator   = solanago.AccountDiscriminator("TokenConfigData")
)

// SystemConfigData is the protocol-wide configuration owned by the system manager.
type SystemConfigData struct {
	Admin                        solana.PublicKey
	Count                        uint64
	ReferralUsageMaxCount        uint32
	ProtocolFeeAccount           solana.PublicKey
	RefundFeeRate                float64
	ReferrerResetIntervalSeconds uint64
	UpdateMetadataFee            uint64
	CustomizedDeployFee          uint64
	InitPoolBaseAmount           uint64
	GraduateFeeRate              uint64
	RaydiumCpmmCreateFee         uint64
	IsPause                      bool
}

// TokenReferralData binds a referral code to its referrer for one mint.
type TokenReferralData struct {
	ReferrerMain    solana.PublicKey
	ReferrerAta     solana.PublicKey
	UsageCount      uint32
	CodeHash        solana.PublicKey
	Mint            solana.PublicKey
	ActiveTimestamp uint64
	IsProcessing    bool
}

// CodeAccountData points a code hash at its referral account.
type CodeAccountData struct {
	ReferralAccount solana.PublicKey
}

// TokenRefundData tracks what a user paid into a mint and can claim back.
type TokenRefundData struct {
	Owner            solana.PublicKey
	TotalTokens      uint64
	TotalMintFee     uint64
	TotalReferrerFee uint64
	IsProcessing     bool
	VaultTokens      uint64
}

// TokenMintState is the running state of a mint's eras and epochs.
type TokenMintState struct {
	Supply                         uint64
	CurrentEra                     uint32
	CurrentEpoch                   uint64
	ElapsedSecondsEpoch            uint64
	StartTimestampEpoch            uint64
	LastDifficultyCoefficientEpoch float64
	DifficultyCoefficientEpoch     float64
	MintSizeEpoch                  uint64
	QuantityMintedEpoch            uint64
	TargetMintSizeEpoch            uint64
	TotalMintFee                   uint64
	TotalReferrerFee               uint64
	TotalTokens                    uint64
	GraduateEpoch                  uint32
}

// TokenConfigData is the per-mint launch configuration, at the config PDA.
// ReduceRatio and LiquidityTokensRatio are stored as fractions.
type TokenConfigData struct {
	TargetEras                    uint32
	MintStateData                 TokenMintState
	Admin                         solana.PublicKey
	TokenID                       uint64
	FeeRate                       uint64
	MaxSupply                     uint64
	EpochesPerEra                 uint64
	TargetSecondsPerEpoch         uint64
	ReduceRatio                   float64
	InitialMintSize               uint64
	InitialTargetMintSizePerEpoch uint64
	LiquidityTokensRatio          float64
	TokenVault                    solana.PublicKey
	BaseVault                     solana.PublicKey
	BaseMint                      solana.PublicKey
	BaseDecimals                  uint8
	MintTokenVault                solana.PublicKey
	StartTimestamp                uint64
	IsProcessing                  bool
	ValueManager                  solana.PublicKey
}

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

func encodeAccount(disc [8]byte, v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := binary.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeSystemConfigData(data []byte) (*SystemConfigData, error) {
	v := &SystemConfigData{}
	if err := decodeAccount("SystemConfigData", SystemConfigDataDiscriminator, data, v); err != nil {
		return nil, err
	}
	return v, nil
}

func DecodeTokenReferralData(data []byte) (*TokenReferralData, error) {
	v := &TokenReferralData{}
	if err := decodeAccount("TokenReferralData", TokenReferralDataDiscriminator, data, v); err != nil {
		return nil, err
	}
	return v, nil
}

func DecodeCodeAccountData(data []byte) (*CodeAccountData, error) {
	v := &CodeAccountData{}
	if err := decodeAccount("CodeAccountData", CodeAccountDataDiscriminator, data, v); err != nil {
		return nil, err
	}
	return v, nil
}

func DecodeTokenRefundData(data []byte) (*TokenRefundData, error) {
	v := &TokenRefundData{}
	if err := decodeAccount("TokenRefundData", TokenRefundDataDiscriminator, data, v); err != nil {
		return nil, err
	}
	return v, nil
}

func DecodeTokenConfigData(data []byte) (*TokenConfigData, error) {
	v := &TokenConfigData{}
	if err := decodeAccount("TokenConfigData", TokenConfigDataDiscriminator, data, v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeAccount prefixes the borsh encoding of one of the account types
// above with its discriminator.
func EncodeAccount(v any) ([]byte, error) {
	switch v.(type) {
	case *SystemConfigData:
		return encodeAccount(SystemConfigDataDiscriminator, v)
	case *TokenReferralData:
		return encodeAccount(TokenReferralDataDiscriminator, v)
	case *CodeAccountData:
		return encodeAccount(CodeAccountDataDiscriminator, v)
	case *TokenRefundData:
		return encodeAccount(TokenRefundDataDiscriminator, v)
	case *TokenConfigData:
		return encodeAccount(TokenConfigDataDiscriminator, v)
	}
	return nil, fmt.Errorf("unknown fair mint account %T", v)
}

// Metadata is the prefix of a Metaplex token metadata account.
type Metadata struct {
	Key             uint8
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
}

// DecodeMetadata reads a Metaplex metadata account. Name, symbol and uri
// are stored zero-padded; the padding is stripped.
func DecodeMetadata(data []byte) (*Metadata, error) {
	m := &Metadata{}
	if err := binary.NewBorshDecoder(data).Decode(m); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	m.Name = CleanName(m.Name)
	m.Symbol = CleanName(m.Symbol)
	m.URI = CleanName(m.URI)
	return m, nil
}

func EncodeMetadata(m *Metadata) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.NewBorshEncoder(buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CleanName drops NUL padding and surrounding whitespace.
func CleanName(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
