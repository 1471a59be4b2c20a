package cpmm

import (
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/flipflop-go/shared"
)

// Descriptor names the CPMM deployment an instance talks to.
type Descriptor struct {
	ProgramID solana.PublicKey
	// AmmConfig is the fee tier new pools are created under and pools are looked up by.
	AmmConfig             solana.PublicKey
	CreatePoolFeeReceiver solana.PublicKey
	// BaseMint is what Buy spends and Sell receives, wrapped SOL or a stable coin.
	BaseMint solana.PublicKey
}

func (d Descriptor) Validate() error {
	switch {
	case d.ProgramID.IsZero():
		return shared.Errorf(shared.KindInvalidArgument, "cpmm descriptor: program id is required")
	case d.AmmConfig.IsZero():
		return shared.Errorf(shared.KindInvalidArgument, "cpmm descriptor: amm config is required")
	case d.BaseMint.IsZero():
		return shared.Errorf(shared.KindInvalidArgument, "cpmm descriptor: base mint is required")
	}
	return nil
}
