package cpmm

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/flipflop-go/solana"
)

const (
	authSeed        = "vault_and_lp_mint_auth_seed"
	ammConfigSeed   = "amm_config"
	poolSeed        = "pool"
	poolVaultSeed   = "pool_vault"
	poolLpMintSeed  = "pool_lp_mint"
	observationSeed = "observation"
)

// SortMints orders a mint pair the way the program stores it: by raw bytes.
func SortMints(mintA, mintB solana.PublicKey) (solana.PublicKey, solana.PublicKey) {
	if bytes.Compare(mintA.Bytes(), mintB.Bytes()) > 0 {
		return mintB, mintA
	}
	return mintA, mintB
}

// DeriveAuthority is the signer of every vault and LP mint of the program.
func DeriveAuthority(program solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solanago.Derive([][]byte{[]byte(authSeed)}, program)
}

func DeriveAmmConfig(program solana.PublicKey, index uint16) (solana.PublicKey, error) {
	var idx [2]byte
	binary.BigEndian.PutUint16(idx[:], index)
	address, _, err := solanago.Derive([][]byte{[]byte(ammConfigSeed), idx[:]}, program)
	return address, err
}

// DerivePool sorts the mints before deriving, so argument order does not matter.
func DerivePool(program, ammConfig, mintA, mintB solana.PublicKey) (solana.PublicKey, error) {
	mint0, mint1 := SortMints(mintA, mintB)
	address, _, err := solanago.Derive([][]byte{[]byte(poolSeed), ammConfig.Bytes(), mint0.Bytes(), mint1.Bytes()}, program)
	return address, err
}

func DeriveVault(program, pool, mint solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := solanago.Derive([][]byte{[]byte(poolVaultSeed), pool.Bytes(), mint.Bytes()}, program)
	return address, err
}

func DeriveLpMint(program, pool solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := solanago.Derive([][]byte{[]byte(poolLpMintSeed), pool.Bytes()}, program)
	return address, err
}

func DeriveObservation(program, pool solana.PublicKey) (solana.PublicKey, error) {
	address, _, err := solanago.Derive([][]byte{[]byte(observationSeed), pool.Bytes()}, program)
	return address, err
}

// PoolAddresses are every program account a new pool gets.
type PoolAddresses struct {
	Pool        solana.PublicKey
	Authority   solana.PublicKey
	Mint0       solana.PublicKey
	Mint1       solana.PublicKey
	Vault0      solana.PublicKey
	Vault1      solana.PublicKey
	LpMint      solana.PublicKey
	Observation solana.PublicKey
}

// DerivePoolAddresses derives the full account set of the pool of mintA/mintB under ammConfig.
func DerivePoolAddresses(program, ammConfig, mintA, mintB solana.PublicKey) (*PoolAddresses, error) {
	mint0, mint1 := SortMints(mintA, mintB)
	out := &PoolAddresses{Mint0: mint0, Mint1: mint1}

	var err error
	if out.Authority, _, err = DeriveAuthority(program); err != nil {
		return nil, err
	}
	if out.Pool, err = DerivePool(program, ammConfig, mint0, mint1); err != nil {
		return nil, err
	}
	if out.Vault0, err = DeriveVault(program, out.Pool, mint0); err != nil {
		return nil, err
	}
	if out.Vault1, err = DeriveVault(program, out.Pool, mint1); err != nil {
		return nil, err
	}
	if out.LpMint, err = DeriveLpMint(program, out.Pool); err != nil {
		return nil, err
	}
	if out.Observation, err = DeriveObservation(program, out.Pool); err != nil {
		return nil, err
	}
	return out, nil
}
