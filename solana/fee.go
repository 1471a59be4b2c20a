package solana

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	defaultUnitsPerInstruction = uint64(200_000)
	maxComputeUnits            = uint64(1_400_000)

	setComputeUnitLimit = uint8(2)
	setComputeUnitPrice = uint8(3)
)

// EstimateFee is what the payer of b is charged once it lands: the base fee
// per signature plus the priority fee its compute budget asks for.
func (b Batch) EstimateFee() uint64 {
	signers := map[solana.PublicKey]struct{}{}
	if !b.Payer.IsZero() {
		signers[b.Payer] = struct{}{}
	}
	var (
		limit, price uint64
		instructions uint64
	)
	for _, ix := range b.Instructions {
		for _, meta := range ix.Accounts() {
			if meta.IsSigner {
				signers[meta.PublicKey] = struct{}{}
			}
		}
		if !ix.ProgramID().Equals(solana.ComputeBudget) {
			instructions++
			continue
		}
		data, err := ix.Data()
		if err != nil || len(data) == 0 {
			continue
		}
		dec := bin.NewBinDecoder(data[1:])
		switch data[0] {
		case setComputeUnitLimit:
			if v, err := dec.ReadUint32(bin.LE); err == nil {
				limit = uint64(v)
			}
		case setComputeUnitPrice:
			if v, err := dec.ReadUint64(bin.LE); err == nil {
				price = v
			}
		}
	}
	if limit == 0 {
		limit = min(instructions*defaultUnitsPerInstruction, maxComputeUnits)
	}
	fee := uint64(max(len(signers), 1)) * SignatureFee
	// micro-lamports per unit, rounded up
	fee += (price*limit + 999_999) / 1_000_000
	return fee
}
