package fairmint

import (
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/flipflop-go/cpmm"
	fairmintgen "github.com/krazyTry/flipflop-go/gen/fair_mint"
	"github.com/krazyTry/flipflop-go/shared"
)

// Descriptor names the fair mint deployment and the CPMM deployment its
// tokens graduate to.
type Descriptor struct {
	ProgramID     solana.PublicKey
	SystemManager solana.PublicKey
	// LookupTable compresses the account list of mint_tokens.
	LookupTable     solana.PublicKey
	MetadataProgram solana.PublicKey
	// AllowOwnerOffCurve permits a program-owned protocol fee account.
	AllowOwnerOffCurve bool
	Cpmm               cpmm.Descriptor
}

// withDefaults fills the program ids that are the same on every network.
func (d Descriptor) withDefaults() Descriptor {
	if d.ProgramID.IsZero() {
		d.ProgramID = fairmintgen.ProgramID
	}
	if d.MetadataProgram.IsZero() {
		d.MetadataProgram = fairmintgen.MetadataProgramID
	}
	return d
}

func (d Descriptor) Validate() error {
	switch {
	case d.SystemManager.IsZero():
		return shared.Errorf(shared.KindInvalidArgument, "fair mint descriptor: system manager is required")
	case d.LookupTable.IsZero():
		return shared.Errorf(shared.KindInvalidArgument, "fair mint descriptor: lookup table is required")
	case d.Cpmm.CreatePoolFeeReceiver.IsZero():
		return shared.Errorf(shared.KindInvalidArgument, "fair mint descriptor: create-pool fee receiver is required")
	}
	return d.Cpmm.Validate()
}
