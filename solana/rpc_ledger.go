package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	sendandconfirmtransaction "github.com/gagliardetto/solana-go/rpc/sendAndConfirmTransaction"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/krazyTry/flipflop-go/shared"
)

// RPCLedger is a Ledger over a JSON-RPC node, with an optional websocket
// client for confirmations. Without one it polls signature statuses.
type RPCLedger struct {
	rpcClient *rpc.Client
	wsClient  *ws.Client

	commitment     rpc.CommitmentType
	confirmTimeout time.Duration
	pollInterval   time.Duration
	simulate       bool
	skipPreflight  bool

	signers map[solana.PublicKey]solana.PrivateKey
	limiter *rate.Limiter
	log     zerolog.Logger
}

type LedgerOption func(*RPCLedger)

func WithCommitment(commitment rpc.CommitmentType) LedgerOption {
	return func(l *RPCLedger) {
		l.commitment = commitment
	}
}

func WithSigners(wallets ...*solana.Wallet) LedgerOption {
	return func(l *RPCLedger) {
		for _, w := range wallets {
			l.signers[w.PublicKey()] = w.PrivateKey
		}
	}
}

// WithRateLimit caps outgoing RPC calls per second.
func WithRateLimit(rps float64, burst int) LedgerOption {
	return func(l *RPCLedger) {
		if rps > 0 {
			l.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

func WithConfirmTimeout(d time.Duration) LedgerOption {
	return func(l *RPCLedger) {
		l.confirmTimeout = d
	}
}

// WithSimulate makes SubmitBatch simulate instead of send.
func WithSimulate(simulate bool) LedgerOption {
	return func(l *RPCLedger) {
		l.simulate = simulate
	}
}

func WithSkipPreflight(skip bool) LedgerOption {
	return func(l *RPCLedger) {
		l.skipPreflight = skip
	}
}

func WithLedgerLogger(logger zerolog.Logger) LedgerOption {
	return func(l *RPCLedger) {
		l.log = logger
	}
}

func NewRPCLedger(rpcClient *rpc.Client, wsClient *ws.Client, opts ...LedgerOption) *RPCLedger {
	l := &RPCLedger{
		rpcClient:      rpcClient,
		wsClient:       wsClient,
		commitment:     rpc.CommitmentConfirmed,
		confirmTimeout: 60 * time.Second,
		pollInterval:   time.Second,
		signers:        make(map[solana.PublicKey]solana.PrivateKey),
		limiter:        rate.NewLimiter(rate.Inf, 1),
		log:            log.With().Str("service", "ledger").Logger(),
	}
	for _, fn := range opts {
		fn(l)
	}
	return l
}

func (l *RPCLedger) wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

func (l *RPCLedger) GetAccountData(ctx context.Context, address solana.PublicKey) (AccountData, error) {
	if err := l.wait(ctx); err != nil {
		return AccountData{}, err
	}
	out, err := l.rpcClient.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: l.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return AccountData{Address: address}, nil
	}
	if err != nil {
		return AccountData{}, shared.Wrap(shared.KindLedgerFailure, err, "get account "+address.String())
	}
	if out == nil || out.Value == nil {
		return AccountData{Address: address}, nil
	}
	return AccountData{
		Address:  address,
		Exists:   true,
		Owner:    out.Value.Owner,
		Lamports: out.Value.Lamports,
		Data:     out.Value.Data.GetBinary(),
	}, nil
}

func (l *RPCLedger) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	if err := l.wait(ctx); err != nil {
		return 0, err
	}
	out, err := l.rpcClient.GetBalance(ctx, address, l.commitment)
	if err != nil {
		return 0, shared.Wrap(shared.KindLedgerFailure, err, "get balance "+address.String())
	}
	return out.Value, nil
}

func (l *RPCLedger) sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if pk, ok := l.signers[key]; ok {
			return &pk
		}
		return nil
	})
	return err
}

func (l *RPCLedger) SubmitBatch(ctx context.Context, batch Batch) (Confirmation, error) {
	if len(batch.Instructions) == 0 {
		return Confirmation{}, shared.Errorf(shared.KindInvalidArgument, "empty %s batch", batch.Kind)
	}
	if err := l.wait(ctx); err != nil {
		return Confirmation{}, err
	}

	recent, err := l.rpcClient.GetLatestBlockhash(ctx, l.commitment)
	if err != nil {
		return Confirmation{}, shared.Wrap(shared.KindLedgerFailure, err, "get latest blockhash")
	}

	opts := []solana.TransactionOption{solana.TransactionPayer(batch.Payer)}
	if len(batch.AddressTables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(batch.AddressTables))
	}
	tx, err := solana.NewTransaction(batch.Instructions, recent.Value.Blockhash, opts...)
	if err != nil {
		return Confirmation{}, shared.Wrap(shared.KindInvalidArgument, err, "build transaction")
	}
	if err = l.sign(tx); err != nil {
		return Confirmation{}, shared.Wrap(shared.KindInvalidArgument, err, "sign transaction")
	}

	if l.simulate {
		return l.simulateTx(ctx, tx)
	}

	sig, err := l.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       l.skipPreflight,
		PreflightCommitment: l.commitment,
	})
	if err != nil {
		return Confirmation{}, shared.Wrap(shared.KindLedgerFailure, err, "send transaction")
	}
	l.log.Debug().Str("signature", sig.String()).Str("batch", batch.Kind.String()).Int("instructions", len(batch.Instructions)).Msg("batch sent")

	confirmCtx, cancel := context.WithTimeout(ctx, l.confirmTimeout)
	defer cancel()

	if err = l.confirm(confirmCtx, sig); err != nil {
		if confirmCtx.Err() != nil {
			return Confirmation{Signature: sig}, shared.Wrap(shared.KindIndeterminate, err, "no confirmation for "+sig.String())
		}
		return Confirmation{Signature: sig}, shared.Wrap(shared.KindLedgerFailure, err, "transaction "+sig.String())
	}
	return Confirmation{Signature: sig}, nil
}

func (l *RPCLedger) simulateTx(ctx context.Context, tx *solana.Transaction) (Confirmation, error) {
	out, err := l.rpcClient.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:  false,
		Commitment: l.commitment,
	})
	if err != nil {
		return Confirmation{}, shared.Wrap(shared.KindLedgerFailure, err, "simulate transaction")
	}
	if out.Value.Err != nil {
		return Confirmation{}, shared.Errorf(shared.KindLedgerFailure, "simulation failed: %v", out.Value.Err)
	}
	conf := Confirmation{Simulated: true, Logs: out.Value.Logs}
	if len(tx.Signatures) > 0 {
		conf.Signature = tx.Signatures[0]
	}
	return conf, nil
}

func (l *RPCLedger) confirm(ctx context.Context, sig solana.Signature) error {
	if l.wsClient != nil {
		_, err := sendandconfirmtransaction.WaitForConfirmation(ctx, l.wsClient, sig, nil)
		return err
	}

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := l.wait(ctx); err != nil {
			return err
		}
		out, err := l.rpcClient.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			continue
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			continue
		}
		status := out.Value[0]
		if status.Err != nil {
			return fmt.Errorf("execution error: %v", status.Err)
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return nil
		}
	}
}

// GetExecutedEventData returns the Anchor event payloads emitted by the
// confirmed transaction, or nil when the node no longer has it.
func (l *RPCLedger) GetExecutedEventData(ctx context.Context, conf Confirmation) ([][]byte, error) {
	if conf.Logs != nil {
		return ParseProgramData(conf.Logs), nil
	}
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	version := uint64(0)
	out, err := l.rpcClient.GetTransaction(ctx, conf.Signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     l.commitment,
		MaxSupportedTransactionVersion: &version,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, shared.Wrap(shared.KindLedgerFailure, err, "get transaction "+conf.Signature.String())
	}
	if out == nil || out.Meta == nil {
		return nil, nil
	}
	return ParseProgramData(out.Meta.LogMessages), nil
}

// LookupTable fetches an address lookup table in the shape Batch.AddressTables expects.
func (l *RPCLedger) LookupTable(ctx context.Context, table solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	return LoadLookupTable(ctx, l, table)
}
