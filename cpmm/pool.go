package cpmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	cpmath "github.com/krazyTry/flipflop-go/cpmm/math"
	raydiumcp "github.com/krazyTry/flipflop-go/gen/raydium_cp"
	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

// Pool is a snapshot of one pool, read fresh for every operation.
// Mint0 sorts before Mint1 by raw bytes.
type Pool struct {
	Address     solana.PublicKey
	ProgramID   solana.PublicKey
	AmmConfig   solana.PublicKey
	Creator     solana.PublicKey
	Authority   solana.PublicKey
	Observation solana.PublicKey

	Mint0, Mint1                 *solanago.Mint
	Vault0, Vault1               solana.PublicKey
	LpMint                       solana.PublicKey
	LpSupply                     *big.Int
	LpDecimals                   uint8
	Status                       uint8
	OpenTime                     uint64
	TradeFeeRate                 uint64
	VaultAmount0, VaultAmount1   *big.Int
	ProtocolFees0, ProtocolFees1 uint64
	FundFees0, FundFees1         uint64

	// Reserves exclude fees the program owes to the protocol and fund.
	Reserve0, Reserve1 *big.Int
}

// Side is one mint of a pool with the accounts that hold it.
type Side struct {
	Mint    *solanago.Mint
	Vault   solana.PublicKey
	Reserve *big.Int
}

func (p *Pool) side0() Side {
	return Side{Mint: p.Mint0, Vault: p.Vault0, Reserve: p.Reserve0}
}

func (p *Pool) side1() Side {
	return Side{Mint: p.Mint1, Vault: p.Vault1, Reserve: p.Reserve1}
}

// Sides orients the pool for a trade of input against output.
func (p *Pool) Sides(input, output solana.PublicKey) (in, out Side, err error) {
	switch {
	case input.Equals(p.Mint0.Address) && output.Equals(p.Mint1.Address):
		return p.side0(), p.side1(), nil
	case input.Equals(p.Mint1.Address) && output.Equals(p.Mint0.Address):
		return p.side1(), p.side0(), nil
	}
	return Side{}, Side{}, shared.Errorf(shared.KindInvalidArgument, "pool %s does not trade %s for %s", p.Address, input, output)
}

// Side returns the side holding mint.
func (p *Pool) Side(mint solana.PublicKey) (Side, error) {
	switch {
	case mint.Equals(p.Mint0.Address):
		return p.side0(), nil
	case mint.Equals(p.Mint1.Address):
		return p.side1(), nil
	}
	return Side{}, shared.Errorf(shared.KindInvalidArgument, "pool %s does not hold %s", p.Address, mint)
}

// Other returns the side that is not mint.
func (p *Pool) Other(mint solana.PublicKey) (Side, error) {
	switch {
	case mint.Equals(p.Mint0.Address):
		return p.side1(), nil
	case mint.Equals(p.Mint1.Address):
		return p.side0(), nil
	}
	return Side{}, shared.Errorf(shared.KindInvalidArgument, "pool %s does not hold %s", p.Address, mint)
}

// Price is Mint1 per Mint0 in raw units.
func (p *Pool) Price() decimal.Decimal {
	return cpmath.Price(p.Reserve1, p.Reserve0)
}

// PriceIn is the price of one unit of the other mint, denominated in base.
func (p *Pool) PriceIn(base solana.PublicKey) (decimal.Decimal, error) {
	own, err := p.Side(base)
	if err != nil {
		return decimal.Zero, err
	}
	other, _ := p.Other(base)
	return cpmath.Price(own.Reserve, other.Reserve), nil
}

// Disabled reports whether a status bit turns the given operation off.
func (p *Pool) Disabled(bit uint8) bool {
	return p.Status&bit != 0
}

func (p *Pool) liquidityAccounts(owner, ownerLp, account0, account1 solana.PublicKey) raydiumcp.LiquidityAccounts {
	return raydiumcp.LiquidityAccounts{
		Owner:            owner,
		Authority:        p.Authority,
		PoolState:        p.Address,
		OwnerLpToken:     ownerLp,
		Token0Account:    account0,
		Token1Account:    account1,
		Token0Vault:      p.Vault0,
		Token1Vault:      p.Vault1,
		TokenProgram:     solana.TokenProgramID,
		TokenProgram2022: solana.Token2022ProgramID,
		Vault0Mint:       p.Mint0.Address,
		Vault1Mint:       p.Mint1.Address,
		LpMint:           p.LpMint,
	}
}

// FetchPool finds the pool of mintA/mintB under the descriptor's amm config.
func (c *Cpmm) FetchPool(ctx context.Context, mintA, mintB solana.PublicKey) (*Pool, error) {
	if mintA.Equals(mintB) {
		return nil, shared.Errorf(shared.KindInvalidArgument, "pool mints must differ")
	}
	address, err := DerivePool(c.desc.ProgramID, c.desc.AmmConfig, mintA, mintB)
	if err != nil {
		return nil, err
	}
	return c.FetchPoolByID(ctx, address)
}

// FetchPoolByID reads a pool with its config, vaults and mints. The reads
// after the pool account run in parallel.
func (c *Cpmm) FetchPoolByID(ctx context.Context, address solana.PublicKey) (*Pool, error) {
	account, err := c.ledger.GetAccountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("read pool %s: %w", address, err)
	}
	if !account.Exists || !account.Owner.Equals(c.desc.ProgramID) {
		return nil, shared.Errorf(shared.KindPoolNotFound, "no pool at %s", address)
	}
	state, err := raydiumcp.DecodePoolState(account.Data)
	if err != nil {
		return nil, shared.Wrap(shared.KindPoolNotFound, err, "decode pool "+address.String())
	}

	authority, _, err := DeriveAuthority(c.desc.ProgramID)
	if err != nil {
		return nil, err
	}

	var (
		ammConfig      *raydiumcp.AmmConfig
		vault0, vault1 uint64
		mint0, mint1   *solanago.Mint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := c.ledger.GetAccountData(gctx, state.AmmConfig)
		if err != nil {
			return err
		}
		if !data.Exists {
			return shared.Errorf(shared.KindAccountNotFound, "amm config %s", state.AmmConfig)
		}
		ammConfig, err = raydiumcp.DecodeAmmConfig(data.Data)
		return err
	})
	g.Go(func() error {
		v, err := readVault(gctx, c.ledger, state.Token0Vault)
		vault0 = v
		return err
	})
	g.Go(func() error {
		v, err := readVault(gctx, c.ledger, state.Token1Vault)
		vault1 = v
		return err
	})
	g.Go(func() error {
		m, err := solanago.GetMint(gctx, c.ledger, state.Token0Mint)
		mint0 = m
		return err
	})
	g.Go(func() error {
		m, err := solanago.GetMint(gctx, c.ledger, state.Token1Mint)
		mint1 = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("read pool %s: %w", address, err)
	}

	pool := &Pool{
		Address:       address,
		ProgramID:     c.desc.ProgramID,
		AmmConfig:     state.AmmConfig,
		Creator:       state.PoolCreator,
		Authority:     authority,
		Observation:   state.ObservationKey,
		Mint0:         mint0,
		Mint1:         mint1,
		Vault0:        state.Token0Vault,
		Vault1:        state.Token1Vault,
		LpMint:        state.LpMint,
		LpSupply:      new(big.Int).SetUint64(state.LpSupply),
		LpDecimals:    state.LpMintDecimals,
		Status:        state.Status,
		OpenTime:      state.OpenTime,
		TradeFeeRate:  ammConfig.TradeFeeRate,
		VaultAmount0:  new(big.Int).SetUint64(vault0),
		VaultAmount1:  new(big.Int).SetUint64(vault1),
		ProtocolFees0: state.ProtocolFeesToken0,
		ProtocolFees1: state.ProtocolFeesToken1,
		FundFees0:     state.FundFeesToken0,
		FundFees1:     state.FundFeesToken1,
	}
	pool.Reserve0 = reserve(vault0, state.ProtocolFeesToken0, state.FundFeesToken0)
	pool.Reserve1 = reserve(vault1, state.ProtocolFeesToken1, state.FundFeesToken1)
	return pool, nil
}

func readVault(ctx context.Context, ledger solanago.Ledger, vault solana.PublicKey) (uint64, error) {
	acc, err := solanago.GetTokenAccount(ctx, ledger, vault)
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, shared.Errorf(shared.KindAccountNotFound, "vault %s", vault)
	}
	return acc.Amount, nil
}

// reserve is vault - protocolFees - fundFees, floored at zero.
func reserve(vault, protocolFees, fundFees uint64) *big.Int {
	out := new(big.Int).SetUint64(vault)
	out.Sub(out, new(big.Int).SetUint64(protocolFees))
	out.Sub(out, new(big.Int).SetUint64(fundFees))
	if out.Sign() < 0 {
		return new(big.Int)
	}
	return out
}

// PoolView is the display form of a pool.
type PoolView struct {
	Pool     *Pool
	Price    decimal.Decimal
	Reserve0 decimal.Decimal
	Reserve1 decimal.Decimal
	LpSupply decimal.Decimal
}

// DisplayPool reads the pool of mintA/mintB and scales its amounts by decimals.
func (c *Cpmm) DisplayPool(ctx context.Context, mintA, mintB solana.PublicKey) (*PoolView, error) {
	pool, err := c.FetchPool(ctx, mintA, mintB)
	if err != nil {
		return nil, err
	}
	view := &PoolView{
		Pool:     pool,
		Reserve0: uiAmount(pool.Reserve0, pool.Mint0.Decimals),
		Reserve1: uiAmount(pool.Reserve1, pool.Mint1.Decimals),
		LpSupply: uiAmount(pool.LpSupply, pool.LpDecimals),
	}
	if !view.Reserve0.IsZero() {
		view.Price = view.Reserve1.DivRound(view.Reserve0, 18)
	}
	return view, nil
}

func uiAmount(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}
