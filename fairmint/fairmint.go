package fairmint

import (
	"github.com/rs/zerolog"

	"github.com/krazyTry/flipflop-go/engine"
	"github.com/krazyTry/flipflop-go/logger"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

// mintComputeUnits covers mint_tokens, including a graduation into a CPMM pool.
const mintComputeUnits = uint32(500_000)

// FairMint prepares mint and refund operations against one fair mint deployment.
type FairMint struct {
	ledger solanago.Ledger
	desc   Descriptor
	log    *logger.ServiceLogger

	executor         *engine.Executor
	executorOpts     []engine.Option
	computeUnitPrice uint64
}

func NewFairMint(
	ledger solanago.Ledger,
	desc Descriptor,
	opts ...Option,
) *FairMint {
	f := &FairMint{
		ledger: ledger,
		desc:   desc.withDefaults(),
	}
	f.log = logger.NewServiceLogger(f)
	for _, fn := range opts {
		fn(f)
	}
	f.executor = engine.NewExecutor(ledger, append([]engine.Option{engine.WithLogger(f.log.Logger())}, f.executorOpts...)...)
	return f
}

func (f *FairMint) ID() string {
	return "fairmint"
}

func (f *FairMint) Descriptor() Descriptor {
	return f.desc
}

type Option func(*FairMint)

func WithLogger(l zerolog.Logger) Option {
	return func(f *FairMint) {
		f.log = logger.NewServiceLoggerFrom(l, f)
	}
}

func WithMetrics(m *engine.Metrics) Option {
	return func(f *FairMint) {
		f.executorOpts = append(f.executorOpts, engine.WithMetrics(m))
	}
}

// WithComputeUnitPrice adds a priority fee to mint and refund batches.
func WithComputeUnitPrice(microLamports uint64) Option {
	return func(f *FairMint) {
		f.computeUnitPrice = microLamports
	}
}
