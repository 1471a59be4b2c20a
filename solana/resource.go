package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/flipflop-go/shared"
)

// HandleState is what the orchestrator found, or did, for a holding account.
type HandleState uint8

const (
	HandleAbsent HandleState = iota
	HandleCreatedThisOperation
	HandlePreExisting
)

func (s HandleState) String() string {
	switch s {
	case HandleAbsent:
		return "absent"
	case HandleCreatedThisOperation:
		return "created-this-operation"
	case HandlePreExisting:
		return "pre-existing"
	default:
		return "unknown"
	}
}

// ResourceHandle tracks a token account an operation depends on.
type ResourceHandle struct {
	Address      solana.PublicKey
	Owner        solana.PublicKey
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey
	Native       bool
	State        HandleState

	// BalanceBefore is the token amount held when the plan was built.
	BalanceBefore uint64
	// Required is what the account must hold going into the core step.
	Required uint64
	// TopUp is the lamports the plan wraps into a native account.
	TopUp uint64
	// CloseAfter is set when the plan unwraps the account in cleanup.
	CloseAfter bool
}

// TokenRequirement describes a holding account a core instruction uses.
type TokenRequirement struct {
	Owner        solana.PublicKey
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey
	// Amount the account must hold before the core step. Zero for receiving accounts.
	Amount uint64
	// Receiver of the lamports when a created native account is closed; defaults to Owner.
	Receiver solana.PublicKey
}

// RequireTokenAccount resolves a holding account with a query-then-branch on
// its existence and enqueues whatever makes it usable:
//
//   - absent native: create, fund, sync; close in cleanup
//   - under-funded native: top up and sync
//   - absent SPL: create when nothing needs to be held, else InsufficientBalance
//   - under-funded SPL: InsufficientBalance
//
// Requiring the same account twice raises the requirement on the existing handle.
func (p *Plan) RequireTokenAccount(ctx context.Context, ledger Ledger, req TokenRequirement) (*ResourceHandle, error) {
	if req.TokenProgram.IsZero() {
		req.TokenProgram = solana.TokenProgramID
	}
	if req.Receiver.IsZero() {
		req.Receiver = req.Owner
	}
	address, err := FindAssociatedTokenAddress(req.Owner, req.Mint, req.TokenProgram)
	if err != nil {
		return nil, err
	}

	if h := p.Handle(address); h != nil {
		return h, p.raise(ctx, ledger, h, req.Amount)
	}

	h := &ResourceHandle{
		Address:      address,
		Owner:        req.Owner,
		Mint:         req.Mint,
		TokenProgram: req.TokenProgram,
		Native:       IsNative(req.Mint),
	}

	account, err := ledger.GetAccountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("read token account %s: %w", address, err)
	}

	if account.Exists {
		acc, err := DecodeTokenAccount(address, account.Data)
		if err != nil {
			return nil, err
		}
		h.State = HandlePreExisting
		h.BalanceBefore = acc.Amount
	} else {
		h.State = HandleAbsent
	}

	switch {
	case h.Native:
		if err := p.fundNative(ctx, ledger, h, req.Amount, req.Receiver); err != nil {
			return nil, err
		}
	case h.State == HandleAbsent:
		if req.Amount > 0 {
			return nil, shared.Errorf(shared.KindInsufficientBalance, "%s holds no %s, need %d", req.Owner, req.Mint, req.Amount)
		}
		p.AddPrerequisite(CreateAssociatedTokenAccountInstruction(p.Payer, address, req.Owner, req.Mint, req.TokenProgram))
		h.State = HandleCreatedThisOperation
	case h.BalanceBefore < req.Amount:
		return nil, shared.Errorf(shared.KindInsufficientBalance, "%s holds %d of %s, need %d", address, h.BalanceBefore, req.Mint, req.Amount)
	}
	h.Required = req.Amount

	p.Handles = append(p.Handles, h)
	return h, nil
}

func (p *Plan) fundNative(ctx context.Context, ledger Ledger, h *ResourceHandle, amount uint64, receiver solana.PublicKey) error {
	var (
		topUp    uint64
		rentCost uint64
	)
	if h.State == HandleAbsent {
		topUp = amount
		rentCost = TokenAccountRentExempt
	} else if h.BalanceBefore < amount {
		topUp = amount - h.BalanceBefore
	}

	if topUp > 0 || rentCost > 0 {
		lamports, err := ledger.GetBalance(ctx, h.Owner)
		if err != nil {
			return fmt.Errorf("read balance of %s: %w", h.Owner, err)
		}
		need := topUp + rentCost + p.FeeReserve
		if lamports < need {
			return shared.Errorf(shared.KindInsufficientBalance, "%s has %d lamports, need %d", h.Owner, lamports, need)
		}
	}

	if h.State == HandleAbsent {
		p.AddPrerequisite(CreateAssociatedTokenAccountInstruction(p.Payer, h.Address, h.Owner, h.Mint, h.TokenProgram))
		h.State = HandleCreatedThisOperation
		h.CloseAfter = true
		p.AddCleanup(UnwrapSOLInstruction(h.Address, h.Owner, receiver))
	}
	if topUp > 0 {
		p.AddPrerequisite(WrapSOLInstruction(h.Owner, h.Address, topUp)...)
		h.TopUp = topUp
	}
	return nil
}

// raise increases the requirement on an already tracked handle.
func (p *Plan) raise(ctx context.Context, ledger Ledger, h *ResourceHandle, amount uint64) error {
	total := h.Required + amount
	if amount == 0 {
		return nil
	}
	if !h.Native {
		if h.BalanceBefore < total {
			return shared.Errorf(shared.KindInsufficientBalance, "%s holds %d of %s, need %d", h.Address, h.BalanceBefore, h.Mint, total)
		}
		h.Required = total
		return nil
	}

	held := h.BalanceBefore + h.TopUp
	if held >= total {
		h.Required = total
		return nil
	}
	extra := total - held
	lamports, err := ledger.GetBalance(ctx, h.Owner)
	if err != nil {
		return fmt.Errorf("read balance of %s: %w", h.Owner, err)
	}
	committed := h.TopUp
	if h.State == HandleCreatedThisOperation {
		committed += TokenAccountRentExempt
	}
	if lamports < committed+extra+p.FeeReserve {
		return shared.Errorf(shared.KindInsufficientBalance, "%s has %d lamports, need %d", h.Owner, lamports, committed+extra+p.FeeReserve)
	}
	p.AddPrerequisite(WrapSOLInstruction(h.Owner, h.Address, extra)...)
	h.TopUp += extra
	h.Required = total
	return nil
}
