package solana

import "github.com/gagliardetto/solana-go"

const (
	// TokenAccountRentExempt is the rent-exempt minimum of a 165 byte token account.
	TokenAccountRentExempt = uint64(2_039_280)
	// SignatureFee is the base fee per signature.
	SignatureFee = uint64(5000) // 0.000005 SOL

	DefaultComputeUnits = uint32(400_000)
)

// NativeMint is the wrapped SOL mint.
var NativeMint = solana.WrappedSol

// IsNative reports whether mint is wrapped SOL.
func IsNative(mint solana.PublicKey) bool {
	return mint.Equals(NativeMint)
}
