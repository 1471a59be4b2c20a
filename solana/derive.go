package solana

import (
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/flipflop-go/shared"
)

// Derive finds the program address for seeds, searching bumps from 255 down.
// It is pure: the same seeds and program always give the same address and bump.
func Derive(seeds [][]byte, program solana.PublicKey) (solana.PublicKey, uint8, error) {
	address, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return solana.PublicKey{}, 0, shared.Wrap(shared.KindAddressDerivationExhausted, err, "program "+program.String())
	}
	return address, bump, nil
}

// MustDerive is Derive for constant seeds known to resolve.
func MustDerive(seeds [][]byte, program solana.PublicKey) solana.PublicKey {
	address, _, err := Derive(seeds, program)
	if err != nil {
		panic(err)
	}
	return address
}
