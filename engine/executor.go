package engine

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
)

// Operation is one façade call, expressed as the hooks each state runs.
// Hooks left nil are skipped.
type Operation[T any] struct {
	Name   string
	DryRun bool

	// Validate checks parameters and that the pool can be found.
	Validate func(ctx context.Context) error
	// Quote computes amounts and bounds.
	Quote func(ctx context.Context) error
	// Build assembles the plan. It is required unless the operation is a
	// pure read, in which case Preview alone produces the value.
	Build func(ctx context.Context) (*solanago.Plan, error)
	// Preview is the value reported before submission.
	Preview func() T

	// Watches are read right before the first batch and again after the core batch.
	Watches func() []Watch
	// FromEvents decodes executed amounts from event payloads; false when
	// none of the payloads belong to this operation.
	FromEvents func(payloads [][]byte) (T, bool)
	// FromBalances derives executed amounts from balance deltas.
	FromBalances func(deltas Deltas) (T, error)
	// Verify compares reconciled amounts to the bound. A non-nil result is
	// attached as a warning; the operation has already executed.
	Verify func(T) *shared.Error
}

// Executor drives operations through
// Validating -> Quoting -> BuildingPlan -> Submitting -> Reconciling -> Done | Failed.
type Executor struct {
	ledger          solanago.Ledger
	metrics         *Metrics
	log             zerolog.Logger
	cleanupAttempts int
	cleanupBackoff  time.Duration
}

type Option func(*Executor)

func WithMetrics(m *Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Executor) {
		e.log = logger
	}
}

// WithCleanupRetries bounds the attempts made at a detached cleanup batch.
func WithCleanupRetries(attempts int, backoff time.Duration) Option {
	return func(e *Executor) {
		e.cleanupAttempts = max(attempts, 1)
		e.cleanupBackoff = backoff
	}
}

func NewExecutor(ledger solanago.Ledger, opts ...Option) *Executor {
	e := &Executor{
		ledger:          ledger,
		log:             log.With().Str("service", "engine").Logger(),
		cleanupAttempts: 3,
		cleanupBackoff:  500 * time.Millisecond,
	}
	for _, fn := range opts {
		fn(e)
	}
	return e
}

func (e *Executor) Ledger() solanago.Ledger {
	return e.ledger
}

type run[T any] struct {
	ex      *Executor
	op      Operation[T]
	res     *shared.Result[T]
	log     zerolog.Logger
	started time.Time
	// fees is the estimated network fee of every confirmed batch.
	fees uint64
}

func (r *run[T]) enter(state shared.State) {
	r.res.State = state
	r.res.Transitions = append(r.res.Transitions, state)
	r.log.Debug().Str("state", state.String()).Msg("transition")
}

func (r *run[T]) fail(err error) *shared.Result[T] {
	e := shared.AsError(err)
	r.res.Err = e
	r.enter(shared.StateFailed)
	r.log.Error().Err(e).Str("kind", string(e.Kind)).Msg("operation failed")
	r.ex.metrics.observe(r.op.Name, shared.StateFailed, e.Kind, r.started)
	return r.res
}

func (r *run[T]) warn(w *shared.Error) {
	r.res.Warnings = append(r.res.Warnings, w)
	r.log.Warn().Err(w).Str("kind", string(w.Kind)).Msg("operation warning")
	r.ex.metrics.warn(r.op.Name, w.Kind)
}

func (r *run[T]) done(value T) *shared.Result[T] {
	r.res.Value = value
	r.enter(shared.StateDone)
	ev := r.log.Info().Str("strategy", string(r.res.Strategy)).Int("warnings", len(r.res.Warnings))
	if len(r.res.Signatures) > 0 {
		ev = ev.Strs("signatures", r.res.Signatures)
	}
	ev.Msg("operation done")
	r.ex.metrics.observe(r.op.Name, shared.StateDone, "", r.started)
	return r.res
}

func (r *run[T]) preview() T {
	var zero T
	if r.op.Preview == nil {
		return zero
	}
	return r.op.Preview()
}

// Run executes op. It never panics on operation failures and always returns
// a result in a terminal state.
func Run[T any](ctx context.Context, ex *Executor, op Operation[T]) *shared.Result[T] {
	r := &run[T]{
		ex:      ex,
		op:      op,
		res:     &shared.Result[T]{},
		log:     ex.log.With().Str("operation", op.Name).Logger(),
		started: time.Now(),
	}

	r.enter(shared.StateValidating)
	if op.Validate != nil {
		if err := op.Validate(ctx); err != nil {
			return r.fail(err)
		}
	}

	r.enter(shared.StateQuoting)
	if op.Quote != nil {
		if err := op.Quote(ctx); err != nil {
			return r.fail(err)
		}
	}

	r.enter(shared.StateBuildingPlan)
	if op.Build == nil {
		return r.done(r.preview())
	}
	plan, err := op.Build(ctx)
	if err != nil {
		return r.fail(err)
	}
	batches, err := plan.Batches()
	if err != nil {
		return r.fail(err)
	}
	r.log.Debug().Int("batches", len(batches)).Int("instructions", plan.Len()).Int("handles", len(plan.Handles)).Msg("plan built")
	if op.DryRun {
		return r.done(r.preview())
	}
	if err := ctx.Err(); err != nil {
		return r.fail(shared.Wrap(shared.KindCancelled, err, "cancelled before submission"))
	}

	r.enter(shared.StateSubmitting)
	var watches []Watch
	if op.Watches != nil {
		watches = op.Watches()
	}
	before, err := capture(ctx, ex.ledger, watches)
	if err != nil {
		return r.fail(err)
	}

	var (
		core     solanago.Confirmation
		coreSeen bool
	)
	for _, b := range batches {
		// once the core step is out, the caller can no longer cancel
		bctx := ctx
		if coreSeen {
			bctx = context.WithoutCancel(ctx)
		}
		switch b.Kind {
		case solanago.BatchCleanup:
			if err := r.cleanup(bctx, b); err != nil {
				r.warn(shared.Wrap(shared.KindCleanupWarning, err, "cleanup batch failed; wrapped funds remain in the account"))
			}
		default:
			conf, err := ex.ledger.SubmitBatch(bctx, b)
			ex.metrics.batch(op.Name, b.Kind.String(), err)
			if conf.Signature != (solana.Signature{}) {
				r.res.Signatures = append(r.res.Signatures, conf.Signature.String())
			}
			if err != nil {
				return r.fail(err)
			}
			r.fees += b.EstimateFee()
			r.log.Debug().Str("batch", b.Kind.String()).Str("signature", conf.Signature.String()).Msg("batch confirmed")
			if b.Kind == solanago.BatchCore {
				core = conf
				coreSeen = true
			}
		}
	}

	r.enter(shared.StateReconciling)
	value, ok := r.reconcile(context.WithoutCancel(ctx), core, plan.Handles, watches, before)
	if !ok {
		value = r.preview()
		r.warn(shared.Errorf(shared.KindUnreconciled, "executed amounts unavailable; reporting quoted amounts"))
	}
	if ok && op.Verify != nil {
		if w := op.Verify(value); w != nil {
			r.warn(w)
		}
	}
	return r.done(value)
}

func (r *run[T]) cleanup(ctx context.Context, b solanago.Batch) error {
	var err error
	for attempt := 1; attempt <= r.ex.cleanupAttempts; attempt++ {
		var conf solanago.Confirmation
		conf, err = r.ex.ledger.SubmitBatch(ctx, b)
		r.ex.metrics.batch(r.op.Name, b.Kind.String(), err)
		if err == nil {
			r.res.Signatures = append(r.res.Signatures, conf.Signature.String())
			r.fees += b.EstimateFee()
			return nil
		}
		r.log.Warn().Err(err).Int("attempt", attempt).Msg("cleanup batch failed")
		if attempt < r.ex.cleanupAttempts && r.ex.cleanupBackoff > 0 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(r.ex.cleanupBackoff):
			}
		}
	}
	return err
}

// reconcile prefers event data and falls back to balance deltas.
func (r *run[T]) reconcile(ctx context.Context, core solanago.Confirmation, handles []*solanago.ResourceHandle, watches []Watch, before snapshot) (T, bool) {
	var zero T
	if r.op.FromEvents != nil {
		payloads, err := r.ex.ledger.GetExecutedEventData(ctx, core)
		if err != nil {
			r.log.Warn().Err(err).Msg("event data unavailable")
		}
		if len(payloads) > 0 {
			if v, ok := r.op.FromEvents(payloads); ok {
				r.res.Strategy = shared.StrategyEvent
				return v, true
			}
		}
	}

	if r.op.FromBalances == nil || len(watches) == 0 || core.Simulated {
		return zero, false
	}
	after, err := capture(ctx, r.ex.ledger, watches)
	if err != nil {
		r.log.Warn().Err(err).Msg("balance read after submission failed")
		return zero, false
	}
	deltas := diff(before, after)
	deltas.Fees = r.fees
	if deltas.Rent, err = lockedRent(ctx, r.ex.ledger, handles); err != nil {
		r.log.Warn().Err(err).Msg("created account read after submission failed")
		return zero, false
	}
	v, err := r.op.FromBalances(deltas)
	if err != nil {
		r.log.Warn().Err(err).Msg("balance reconciliation failed")
		return zero, false
	}
	r.res.Strategy = shared.StrategyBalance
	return v, true
}
