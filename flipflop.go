package flipflop

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/krazyTry/flipflop-go/config"
	"github.com/krazyTry/flipflop-go/cpmm"
	"github.com/krazyTry/flipflop-go/engine"
	"github.com/krazyTry/flipflop-go/fairmint"
	"github.com/krazyTry/flipflop-go/logger"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

// NewCpmm creates a CPMM client over any ledger.
//
// Example:
//
// client := NewCpmm(ledger, cpmm.Descriptor{...}, cpmm.WithComputeUnitPrice(50_000))
//
// client.Buy(ctx, owner, cpmm.TradeParams{Mint: mint, Amount: big.NewInt(1_000_000), SlippageBps: 100})
var NewCpmm = cpmm.NewCpmm

// NewFairMint creates a fair mint client over any ledger.
//
// Example:
//
// client := NewFairMint(ledger, fairmint.Descriptor{...})
//
// client.PlanMint(ctx, user, fairmint.MintParams{Mint: mint, URC: "CODE"})
var NewFairMint = fairmint.NewFairMint

// Client bundles the clients of one network over a shared RPC ledger.
type Client struct {
	Config   *config.Config
	Ledger   *solanago.RPCLedger
	Metrics  *engine.Metrics
	Cpmm     *cpmm.Cpmm
	FairMint *fairmint.FairMint

	ws *ws.Client
}

// NewFromEnv loads the configuration from .env and the environment and
// wires a Client signing with signers.
func NewFromEnv(ctx context.Context, reg prometheus.Registerer, signers ...*solana.Wallet) (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.LogLevel, false)
	return New(ctx, cfg, reg, signers...)
}

// New wires a Client from cfg. A nil reg disables metrics and an empty
// WSURL makes the ledger poll for confirmations.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, signers ...*solana.Wallet) (*Client, error) {
	if err := cfg.Cpmm.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.FairMint.Validate(); err != nil {
		return nil, err
	}

	c := &Client{Config: cfg}
	if cfg.WSURL != "" {
		wsClient, err := ws.Connect(ctx, cfg.WSURL)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", cfg.WSURL, err)
		}
		c.ws = wsClient
	}
	c.Ledger = solanago.NewRPCLedger(rpc.New(cfg.RPCURL), c.ws,
		solanago.WithCommitment(cfg.Commitment),
		solanago.WithRateLimit(cfg.RPS, int(cfg.RPS)),
		solanago.WithConfirmTimeout(cfg.ConfirmTimeout),
		solanago.WithSimulate(cfg.Simulate),
		solanago.WithSigners(signers...),
	)

	cpmmOpts := []cpmm.Option{cpmm.WithMaxInstructions(cfg.MaxBatchInstructions)}
	var fairMintOpts []fairmint.Option
	if reg != nil {
		m, err := engine.NewMetrics(reg)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Metrics = m
		cpmmOpts = append(cpmmOpts, cpmm.WithMetrics(m))
		fairMintOpts = append(fairMintOpts, fairmint.WithMetrics(m))
	}
	c.Cpmm = cpmm.NewCpmm(c.Ledger, cfg.Cpmm, cpmmOpts...)
	c.FairMint = fairmint.NewFairMint(c.Ledger, cfg.FairMint, fairMintOpts...)

	log.Info().
		Str("network", cfg.Network).
		Str("rpc", cfg.RPCURL).
		Bool("simulate", cfg.Simulate).
		Msg("flipflop client ready")
	return c, nil
}

// Close releases the websocket connection, if any.
func (c *Client) Close() {
	if c.ws != nil {
		c.ws.Close()
	}
}
