package engine

import (
	"context"
	"math/big"

	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/flipflop-go/solana"
)

// Watch is an account whose balance is diffed around submission when no
// event data is available.
type Watch struct {
	Address solana.PublicKey
	// Lamports watches the native balance instead of a token amount.
	Lamports bool
}

// TokenWatch watches the token amount held at address.
func TokenWatch(address solana.PublicKey) Watch {
	return Watch{Address: address}
}

// LamportWatch watches the native balance of address.
func LamportWatch(address solana.PublicKey) Watch {
	return Watch{Address: address, Lamports: true}
}

// Deltas are the after-minus-before changes of the watched accounts,
// along with what the submission itself cost the payer.
type Deltas struct {
	amounts map[solana.PublicKey]*big.Int
	exists  map[solana.PublicKey]bool

	// Fees is the estimated network fee of the confirmed batches.
	Fees uint64
	// Rent is the lamports still locked in accounts the plan created.
	Rent uint64
}

// Of returns the delta for address, zero when it was not watched.
func (d Deltas) Of(address solana.PublicKey) *big.Int {
	if v, ok := d.amounts[address]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Gained is the positive part of the delta at address.
func (d Deltas) Gained(address solana.PublicKey) *big.Int {
	v := d.Of(address)
	if v.Sign() < 0 {
		return new(big.Int)
	}
	return v
}

// Spent is the negated negative part of the delta at address.
func (d Deltas) Spent(address solana.PublicKey) *big.Int {
	v := d.Of(address)
	if v.Sign() > 0 {
		return new(big.Int)
	}
	return v.Neg(v)
}

// Exists reports whether a watched account was present after submission.
func (d Deltas) Exists(address solana.PublicKey) bool {
	return d.exists[address]
}

// Native is the change of a wrapped SOL account seen together with its
// owner's lamports, which wrapping and unwrapping move value between.
// Fees and rent paid by the owner are added back, so only what the
// programs moved remains.
func (d Deltas) Native(owner, account solana.PublicKey) *big.Int {
	v := d.Of(account)
	v.Add(v, d.Of(owner))
	v.Add(v, new(big.Int).SetUint64(d.Fees))
	return v.Add(v, new(big.Int).SetUint64(d.Rent))
}

// Held is the signed change of what h held; see Native for wrapped SOL.
func (d Deltas) Held(owner solana.PublicKey, h *solanago.ResourceHandle) *big.Int {
	if h == nil {
		return new(big.Int)
	}
	if h.Native {
		return d.Native(owner, h.Address)
	}
	return d.Of(h.Address)
}

type reading struct {
	value  uint64
	exists bool
}

type snapshot map[solana.PublicKey]reading

func capture(ctx context.Context, ledger solanago.Ledger, watches []Watch) (snapshot, error) {
	snap := make(snapshot, len(watches))
	for _, w := range watches {
		if w.Lamports {
			v, err := ledger.GetBalance(ctx, w.Address)
			if err != nil {
				return nil, err
			}
			snap[w.Address] = reading{value: v, exists: v > 0}
			continue
		}
		acc, err := solanago.GetTokenAccount(ctx, ledger, w.Address)
		if err != nil {
			return nil, err
		}
		if acc != nil {
			snap[w.Address] = reading{value: acc.Amount, exists: true}
		} else {
			snap[w.Address] = reading{}
		}
	}
	return snap, nil
}

func diff(before, after snapshot) Deltas {
	d := Deltas{
		amounts: make(map[solana.PublicKey]*big.Int, len(after)),
		exists:  make(map[solana.PublicKey]bool, len(after)),
	}
	for addr, a := range after {
		v := new(big.Int).SetUint64(a.value)
		v.Sub(v, new(big.Int).SetUint64(before[addr].value))
		d.amounts[addr] = v
		d.exists[addr] = a.exists
	}
	return d
}

// lockedRent is the rent held by accounts created for this operation that
// are still open.
func lockedRent(ctx context.Context, ledger solanago.Ledger, handles []*solanago.ResourceHandle) (uint64, error) {
	var rent uint64
	for _, h := range handles {
		if h.State != solanago.HandleCreatedThisOperation {
			continue
		}
		acc, err := ledger.GetAccountData(ctx, h.Address)
		if err != nil {
			return 0, err
		}
		if acc.Exists {
			rent += solanago.TokenAccountRentExempt
		}
	}
	return rent, nil
}
