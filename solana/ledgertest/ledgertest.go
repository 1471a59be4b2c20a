// Package ledgertest provides an in-memory Ledger for tests.
package ledgertest

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	solanago "github.com/krazyTry/flipflop-go/solana"
)

// SubmitFunc decides the outcome of the n-th submitted batch (0-based).
type SubmitFunc func(n int, batch solanago.Batch) (solanago.Confirmation, error)

// Ledger is a map-backed solanago.Ledger. The zero value is not usable; use New.
type Ledger struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]solanago.AccountData
	balances map[solana.PublicKey]uint64
	events   map[solana.Signature][][]byte

	// Submitted records every batch handed to SubmitBatch, in order.
	Submitted []solanago.Batch
	// OnSubmit overrides the default, always successful, submission.
	OnSubmit SubmitFunc
	// AfterSubmit runs after a successful submission, e.g. to move balances.
	AfterSubmit func(l *Ledger, batch solanago.Batch)
	// EventErr is returned by GetExecutedEventData when set.
	EventErr error
}

func New() *Ledger {
	return &Ledger{
		accounts: make(map[solana.PublicKey]solanago.AccountData),
		balances: make(map[solana.PublicKey]uint64),
		events:   make(map[solana.Signature][][]byte),
	}
}

// SetAccount stores raw account data owned by owner.
func (l *Ledger) SetAccount(address, owner solana.PublicKey, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[address] = solanago.AccountData{
		Address:  address,
		Exists:   true,
		Owner:    owner,
		Lamports: 1,
		Data:     data,
	}
}

func (l *Ledger) DeleteAccount(address solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.accounts, address)
}

// SetBalance sets the lamports of address.
func (l *Ledger) SetBalance(address solana.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[address] = lamports
}

// SetTokenAccount stores an initialized token account holding amount.
func (l *Ledger) SetTokenAccount(address, mint, owner solana.PublicKey, amount uint64) {
	acc := &solanago.TokenAccount{Address: address, Mint: mint, Owner: owner, Amount: amount}
	if solanago.IsNative(mint) {
		reserve := solanago.TokenAccountRentExempt
		acc.RentExemptReserve = &reserve
	}
	data, err := solanago.EncodeTokenAccount(acc)
	if err != nil {
		panic(err)
	}
	l.SetAccount(address, solana.TokenProgramID, data)
}

// SetMint stores a classic SPL mint.
func (l *Ledger) SetMint(address solana.PublicKey, decimals uint8, supply uint64) {
	l.SetMintWithProgram(address, decimals, supply, solana.TokenProgramID)
}

func (l *Ledger) SetMintWithProgram(address solana.PublicKey, decimals uint8, supply uint64, program solana.PublicKey) {
	mint := token.Mint{Supply: supply, Decimals: decimals, IsInitialized: true}
	buf := new(bytes.Buffer)
	if err := mint.MarshalWithEncoder(binary.NewBinEncoder(buf)); err != nil {
		panic(err)
	}
	l.SetAccount(address, program, buf.Bytes())
}

// SetEvents makes GetExecutedEventData return payloads for sig.
func (l *Ledger) SetEvents(sig solana.Signature, payloads ...[]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[sig] = payloads
}

// TokenAmount returns the amount held by a stored token account, 0 when absent.
func (l *Ledger) TokenAmount(address solana.PublicKey) uint64 {
	l.mu.Lock()
	account, ok := l.accounts[address]
	l.mu.Unlock()
	if !ok {
		return 0
	}
	acc, err := solanago.DecodeTokenAccount(address, account.Data)
	if err != nil {
		return 0
	}
	return acc.Amount
}

// AddTokenAmount changes a stored token account by delta, creating it when absent.
func (l *Ledger) AddTokenAmount(address, mint, owner solana.PublicKey, delta int64) {
	next := int64(l.TokenAmount(address)) + delta
	if next < 0 {
		next = 0
	}
	l.SetTokenAccount(address, mint, owner, uint64(next))
}

func (l *Ledger) GetAccountData(ctx context.Context, address solana.PublicKey) (solanago.AccountData, error) {
	if err := ctx.Err(); err != nil {
		return solanago.AccountData{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok := l.accounts[address]; ok {
		return acc, nil
	}
	return solanago.AccountData{Address: address}, nil
}

func (l *Ledger) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address], nil
}

// Signature returns the deterministic signature the n-th batch receives.
func Signature(n int) solana.Signature {
	var sig solana.Signature
	copy(sig[:], fmt.Sprintf("sig-%04d", n+1))
	return sig
}

func (l *Ledger) SubmitBatch(ctx context.Context, batch solanago.Batch) (solanago.Confirmation, error) {
	l.mu.Lock()
	n := len(l.Submitted)
	l.Submitted = append(l.Submitted, batch)
	onSubmit := l.OnSubmit
	after := l.AfterSubmit
	l.mu.Unlock()

	if onSubmit != nil {
		conf, err := onSubmit(n, batch)
		if err != nil {
			return conf, err
		}
		if after != nil {
			after(l, batch)
		}
		if !conf.Simulated {
			l.charge(batch)
		}
		return conf, nil
	}
	if err := ctx.Err(); err != nil {
		return solanago.Confirmation{}, err
	}
	if after != nil {
		after(l, batch)
	}
	l.charge(batch)
	return solanago.Confirmation{Signature: Signature(n), Slot: uint64(n + 1)}, nil
}

// charge takes the batch fee from its payer, as a landed transaction would.
func (l *Ledger) charge(batch solanago.Batch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fee := batch.EstimateFee()
	if l.balances[batch.Payer] < fee {
		l.balances[batch.Payer] = 0
		return
	}
	l.balances[batch.Payer] -= fee
}

func (l *Ledger) GetExecutedEventData(ctx context.Context, conf solanago.Confirmation) ([][]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.EventErr != nil {
		return nil, l.EventErr
	}
	return l.events[conf.Signature], nil
}

// Batches returns a copy of the submitted batches.
func (l *Ledger) Batches() []solanago.Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]solanago.Batch(nil), l.Submitted...)
}
