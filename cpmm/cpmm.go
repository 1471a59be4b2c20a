package cpmm

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/krazyTry/flipflop-go/engine"
	"github.com/krazyTry/flipflop-go/logger"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

const (
	// DefaultSlippageBps is used by Buy and Sell when the caller gives none.
	DefaultSlippageBps = uint64(500)
	// DefaultComputeUnitPrice is the priority fee pool creation pays, in micro-lamports.
	DefaultComputeUnitPrice = uint64(100_000)

	// minSellLamports is the least SOL a seller must hold to pay for the swap.
	minSellLamports = uint64(10_000_000) // 0.01 SOL
	// createPoolFeeReserve is kept back from the creator's SOL when seeding a pool.
	createPoolFeeReserve = uint64(20_000_000) // 0.02 SOL
)

// Cpmm prepares and submits operations against one CPMM deployment.
// It holds no pool state; every call reads the pool fresh.
type Cpmm struct {
	ledger solanago.Ledger
	desc   Descriptor
	log    *logger.ServiceLogger

	executor         *engine.Executor
	executorOpts     []engine.Option
	maxInstructions  int
	computeUnits     uint32
	computeUnitPrice uint64
}

func NewCpmm(
	ledger solanago.Ledger,
	desc Descriptor,
	opts ...Option,
) *Cpmm {
	c := &Cpmm{
		ledger:       ledger,
		desc:         desc,
		computeUnits: solanago.DefaultComputeUnits,
	}
	c.log = logger.NewServiceLogger(c)
	for _, fn := range opts {
		fn(c)
	}
	c.executor = engine.NewExecutor(ledger, append([]engine.Option{engine.WithLogger(c.log.Logger())}, c.executorOpts...)...)
	return c
}

func (c *Cpmm) ID() string {
	return "cpmm"
}

func (c *Cpmm) Descriptor() Descriptor {
	return c.desc
}

type Option func(*Cpmm)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Cpmm) {
		c.log = logger.NewServiceLoggerFrom(l, c)
	}
}

func WithMetrics(m *engine.Metrics) Option {
	return func(c *Cpmm) {
		c.executorOpts = append(c.executorOpts, engine.WithMetrics(m))
	}
}

// WithMaxInstructions bounds every submitted batch; 0 means unbounded.
func WithMaxInstructions(n int) Option {
	return func(c *Cpmm) {
		c.maxInstructions = n
	}
}

func WithComputeUnits(units uint32) Option {
	return func(c *Cpmm) {
		c.computeUnits = units
	}
}

// WithComputeUnitPrice adds a priority fee to every core batch.
func WithComputeUnitPrice(microLamports uint64) Option {
	return func(c *Cpmm) {
		c.computeUnitPrice = microLamports
	}
}

func WithCleanupRetries(attempts int, backoff time.Duration) Option {
	return func(c *Cpmm) {
		c.executorOpts = append(c.executorOpts, engine.WithCleanupRetries(attempts, backoff))
	}
}

// newPlan starts a plan whose core step opens with the compute budget.
func (c *Cpmm) newPlan(payer solana.PublicKey, computeUnitPrice uint64) *solanago.Plan {
	plan := solanago.NewPlan(payer, c.maxInstructions)
	plan.AddCore(solanago.ComputeUnitLimitInstruction(c.computeUnits))
	if computeUnitPrice > 0 {
		plan.AddCore(solanago.ComputeUnitPriceInstruction(computeUnitPrice))
	}
	return plan
}
