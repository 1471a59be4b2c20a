package token2022

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

const (
	mintBaseSize      = 82
	accountBaseSize   = 165
	accountTypeMint   = 1
	extTransferFee    = 1
	transferFeeExtLen = 108
)

// TransferFee is the fee schedule active from Epoch on.
type TransferFee struct {
	Epoch       uint64
	MaximumFee  uint64
	BasisPoints uint16
}

// TransferFeeConfig is the Token-2022 transfer fee extension of a mint.
type TransferFeeConfig struct {
	TransferFeeConfigAuthority *solana.PublicKey
	WithdrawWithheldAuthority  *solana.PublicKey
	WithheldAmount             uint64
	OlderTransferFee           TransferFee
	NewerTransferFee           TransferFee
}

// ParseTransferFeeConfig walks the TLV extensions of a Token-2022 mint.
// A nil config with a nil error means the mint has no transfer fee.
func ParseTransferFeeConfig(data []byte) (*TransferFeeConfig, error) {
	if len(data) <= accountBaseSize {
		return nil, nil
	}
	if len(data) < accountBaseSize+1 || data[accountBaseSize] != accountTypeMint {
		return nil, errors.New("token2022: not a mint with extensions")
	}
	for i := mintBaseSize; i < accountBaseSize; i++ {
		if data[i] != 0 {
			return nil, errors.New("token2022: non-zero mint padding")
		}
	}

	buf := data[accountBaseSize+1:]
	for len(buf) >= 4 {
		extType := binary.LittleEndian.Uint16(buf[0:2])
		extLen := int(binary.LittleEndian.Uint16(buf[2:4]))
		buf = buf[4:]
		if extLen > len(buf) {
			return nil, fmt.Errorf("token2022: extension %d overruns data", extType)
		}
		if extType == 0 && extLen == 0 {
			break
		}
		if extType == extTransferFee {
			if extLen != transferFeeExtLen {
				return nil, fmt.Errorf("token2022: transfer fee extension is %d bytes", extLen)
			}
			return decodeTransferFeeConfig(buf[:extLen]), nil
		}
		buf = buf[extLen:]
	}
	return nil, nil
}

func decodeTransferFeeConfig(buf []byte) *TransferFeeConfig {
	cfg := &TransferFeeConfig{
		TransferFeeConfigAuthority: optionalKey(buf[0:32]),
		WithdrawWithheldAuthority:  optionalKey(buf[32:64]),
		WithheldAmount:             binary.LittleEndian.Uint64(buf[64:72]),
	}
	cfg.OlderTransferFee = decodeTransferFee(buf[72:90])
	cfg.NewerTransferFee = decodeTransferFee(buf[90:108])
	return cfg
}

func decodeTransferFee(buf []byte) TransferFee {
	return TransferFee{
		Epoch:       binary.LittleEndian.Uint64(buf[0:8]),
		MaximumFee:  binary.LittleEndian.Uint64(buf[8:16]),
		BasisPoints: binary.LittleEndian.Uint16(buf[16:18]),
	}
}

// optionalKey decodes an OptionalNonZeroPubkey: all zero bytes mean none.
func optionalKey(b []byte) *solana.PublicKey {
	key := solana.PublicKeyFromBytes(b)
	if key.IsZero() {
		return nil
	}
	return &key
}

// EpochFee returns the schedule in force at epoch. A nil config charges nothing.
func EpochFee(cfg *TransferFeeConfig, epoch uint64) TransferFee {
	if cfg == nil {
		return TransferFee{}
	}
	if epoch >= cfg.NewerTransferFee.Epoch {
		return cfg.NewerTransferFee
	}
	return cfg.OlderTransferFee
}

// MaxFee is the larger of the two schedules, for callers that do not track epochs.
func MaxFee(cfg *TransferFeeConfig, amount *big.Int) *big.Int {
	if cfg == nil {
		return new(big.Int)
	}
	older := CalculateFee(cfg.OlderTransferFee, amount)
	newer := CalculateFee(cfg.NewerTransferFee, amount)
	if older.Cmp(newer) > 0 {
		return older
	}
	return newer
}

// CalculateFee rounds up like the token program and caps at MaximumFee.
func CalculateFee(tf TransferFee, amount *big.Int) *big.Int {
	if tf.BasisPoints == 0 || amount.Sign() <= 0 {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(amount, big.NewInt(int64(tf.BasisPoints)))
	fee.Add(fee, big.NewInt(9_999))
	fee.Quo(fee, big.NewInt(10_000))
	if limit := new(big.Int).SetUint64(tf.MaximumFee); fee.Cmp(limit) > 0 {
		return limit
	}
	return fee
}
