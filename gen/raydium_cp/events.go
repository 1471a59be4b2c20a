package raydiumcp

import (
	"bytes"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/flipflop-go/solana"
)

var (
	SwapEventDiscriminator     = solanago.EventDiscriminator("SwapEvent")
	LpChangeEventDiscriminator = solanago.EventDiscriminator("LpChangeEvent")
)

type SwapEvent struct {
	PoolID            solana.PublicKey
	InputVaultBefore  uint64
	OutputVaultBefore uint64
	InputAmount       uint64
	OutputAmount      uint64
	InputTransferFee  uint64
	OutputTransferFee uint64
	BaseInput         bool
}

// LpChangeType values of LpChangeEvent.ChangeType.
const (
	LpChangeDeposit  uint8 = 0
	LpChangeWithdraw uint8 = 1
)

type LpChangeEvent struct {
	PoolID            solana.PublicKey
	LpAmountBefore    uint64
	Token0VaultBefore uint64
	Token1VaultBefore uint64
	Token0Amount      uint64
	Token1Amount      uint64
	Token0TransferFee uint64
	Token1TransferFee uint64
	ChangeType        uint8
}

func decodeEvent(disc [8]byte, payload []byte, v any) bool {
	if len(payload) < 8 || !bytes.Equal(payload[:8], disc[:]) {
		return false
	}
	return binary.NewBorshDecoder(payload[8:]).Decode(v) == nil
}

// FindSwapEvent returns the first SwapEvent for pool among payloads.
func FindSwapEvent(payloads [][]byte, pool solana.PublicKey) (*SwapEvent, bool) {
	for _, p := range payloads {
		ev := &SwapEvent{}
		if decodeEvent(SwapEventDiscriminator, p, ev) && ev.PoolID.Equals(pool) {
			return ev, true
		}
	}
	return nil, false
}

// FindLpChangeEvent returns the first LpChangeEvent for pool among payloads.
func FindLpChangeEvent(payloads [][]byte, pool solana.PublicKey) (*LpChangeEvent, bool) {
	for _, p := range payloads {
		ev := &LpChangeEvent{}
		if decodeEvent(LpChangeEventDiscriminator, p, ev) && ev.PoolID.Equals(pool) {
			return ev, true
		}
	}
	return nil, false
}

// EncodeEvent prefixes the borsh encoding of ev with its discriminator.
func EncodeEvent(ev any) ([]byte, error) {
	var disc [8]byte
	switch ev.(type) {
	case *SwapEvent, SwapEvent:
		disc = SwapEventDiscriminator
	case *LpChangeEvent, LpChangeEvent:
		disc = LpChangeEventDiscriminator
	}
	return encodeArgs(disc, ev)
}
