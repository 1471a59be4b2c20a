package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/flipflop-go/shared"
	solanago "github.com/krazyTry/flipflop-go/solana"
	"github.com/krazyTry/flipflop-go/solana/ledgertest"
)

var (
	owner = solana.NewWallet().PublicKey()
	mint  = solana.NewWallet().PublicKey()
)

type amounts struct {
	In, Out uint64
}

func testPlan(t *testing.T, ledger *ledgertest.Ledger, detach bool) *solanago.Plan {
	t.Helper()
	plan := solanago.NewPlan(owner, 0)
	plan.DetachCleanup = detach
	_, err := plan.RequireTokenAccount(context.Background(), ledger, solanago.TokenRequirement{
		Owner:  owner,
		Mint:   solanago.NativeMint,
		Amount: 1_000,
	})
	require.NoError(t, err)
	plan.AddCore(solanago.ComputeUnitLimitInstruction(200_000))
	return plan
}

func newExecutor(ledger solanago.Ledger) *Executor {
	return NewExecutor(ledger, WithCleanupRetries(2, 0))
}

func TestRunDryRunStopsAfterPlan(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)

	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name:    "dry",
		DryRun:  true,
		Build:   func(ctx context.Context) (*solanago.Plan, error) { return testPlan(t, ledger, false), nil },
		Preview: func() amounts { return amounts{In: 1, Out: 2} },
	})

	require.True(t, res.OK())
	assert.Equal(t, amounts{In: 1, Out: 2}, res.Value)
	assert.Equal(t, []shared.State{shared.StateValidating, shared.StateQuoting, shared.StateBuildingPlan, shared.StateDone}, res.Transitions)
	assert.Empty(t, ledger.Batches())
}

func TestRunValidationFailure(t *testing.T) {
	ledger := ledgertest.New()
	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name:     "validate",
		Validate: func(ctx context.Context) error { return shared.Errorf(shared.KindPoolNotFound, "no pool") },
	})
	require.False(t, res.OK())
	assert.Equal(t, shared.StateFailed, res.State)
	assert.Equal(t, shared.KindPoolNotFound, res.Err.Kind)
	assert.Equal(t, []shared.State{shared.StateValidating, shared.StateFailed}, res.Transitions)
}

func TestRunPrefersEvents(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)
	ledger.SetEvents(ledgertest.Signature(0), []byte("payload!"))

	balanceCalled := false
	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name:    "events",
		Build:   func(ctx context.Context) (*solanago.Plan, error) { return testPlan(t, ledger, false), nil },
		Watches: func() []Watch { return []Watch{LamportWatch(owner)} },
		FromEvents: func(payloads [][]byte) (amounts, bool) {
			return amounts{In: 7, Out: uint64(len(payloads))}, true
		},
		FromBalances: func(Deltas) (amounts, error) {
			balanceCalled = true
			return amounts{}, nil
		},
	})

	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, shared.StrategyEvent, res.Strategy)
	assert.Equal(t, amounts{In: 7, Out: 1}, res.Value)
	assert.False(t, balanceCalled)
	assert.Len(t, res.Signatures, 1)
	assert.Equal(t, shared.StateReconciling, res.Transitions[len(res.Transitions)-2])
}

func TestRunFallsBackToBalances(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)
	watched := solana.NewWallet().PublicKey()
	ledger.SetTokenAccount(watched, mint, owner, 100)
	ledger.AfterSubmit = func(l *ledgertest.Ledger, _ solanago.Batch) {
		l.AddTokenAmount(watched, mint, owner, 40)
	}
	ledger.EventErr = errors.New("node pruned the transaction")

	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name:       "balances",
		Build:      func(ctx context.Context) (*solanago.Plan, error) { return testPlan(t, ledger, false), nil },
		Watches:    func() []Watch { return []Watch{TokenWatch(watched)} },
		FromEvents: func([][]byte) (amounts, bool) { return amounts{}, false },
		FromBalances: func(d Deltas) (amounts, error) {
			return amounts{Out: d.Gained(watched).Uint64()}, nil
		},
	})

	require.True(t, res.OK())
	assert.Equal(t, shared.StrategyBalance, res.Strategy)
	assert.Equal(t, uint64(40), res.Value.Out)
}

func TestRunVerifyAttachesSlippageWarning(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)
	ledger.SetEvents(ledgertest.Signature(0), []byte("payload!"))

	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name:       "verify",
		Build:      func(ctx context.Context) (*solanago.Plan, error) { return testPlan(t, ledger, false), nil },
		FromEvents: func([][]byte) (amounts, bool) { return amounts{Out: 1}, true },
		Verify: func(a amounts) *shared.Error {
			return shared.Errorf(shared.KindSlippageExceeded, "got %d", a.Out)
		},
	})
	require.True(t, res.OK())
	assert.True(t, res.HasWarning(shared.KindSlippageExceeded))
}

func TestRunNoReconciliationSource(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)

	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name:    "blind",
		Build:   func(ctx context.Context) (*solanago.Plan, error) { return testPlan(t, ledger, false), nil },
		Preview: func() amounts { return amounts{In: 3} },
	})
	require.True(t, res.OK())
	assert.Equal(t, shared.StrategyNone, res.Strategy)
	assert.Equal(t, uint64(3), res.Value.In)
	assert.True(t, res.HasWarning(shared.KindUnreconciled))
	assert.False(t, res.HasWarning(shared.KindIndeterminate))
}

func TestRunCoreFailureSkipsCleanup(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)
	ledger.OnSubmit = func(n int, b solanago.Batch) (solanago.Confirmation, error) {
		return solanago.Confirmation{}, shared.Errorf(shared.KindLedgerFailure, "custom program error: 0x1771")
	}

	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name:  "core-fails",
		Build: func(ctx context.Context) (*solanago.Plan, error) { return testPlan(t, ledger, true), nil },
	})
	require.False(t, res.OK())
	assert.Equal(t, shared.KindLedgerFailure, res.Err.Kind)
	// only the core batch was attempted; the detached cleanup never ran
	require.Len(t, ledger.Batches(), 1)
	assert.Equal(t, solanago.BatchCore, ledger.Batches()[0].Kind)
}

func TestRunCleanupFailureIsWarning(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)
	ledger.OnSubmit = func(n int, b solanago.Batch) (solanago.Confirmation, error) {
		if b.Kind == solanago.BatchCleanup {
			return solanago.Confirmation{}, errors.New("blockhash not found")
		}
		return solanago.Confirmation{Signature: ledgertest.Signature(n)}, nil
	}

	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name:  "cleanup-fails",
		Build: func(ctx context.Context) (*solanago.Plan, error) { return testPlan(t, ledger, true), nil },
	})
	require.True(t, res.OK())
	assert.True(t, res.HasWarning(shared.KindCleanupWarning))
	// core plus two cleanup attempts
	assert.Len(t, ledger.Batches(), 3)
}

func TestRunIndeterminate(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)
	ledger.OnSubmit = func(n int, b solanago.Batch) (solanago.Confirmation, error) {
		return solanago.Confirmation{Signature: ledgertest.Signature(n)}, context.DeadlineExceeded
	}

	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name:  "timeout",
		Build: func(ctx context.Context) (*solanago.Plan, error) { return testPlan(t, ledger, false), nil },
	})
	require.False(t, res.OK())
	assert.Equal(t, shared.KindIndeterminate, res.Err.Kind)
	assert.Len(t, res.Signatures, 1)
}

func TestRunCancelledBeforeSubmission(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)
	ctx, cancel := context.WithCancel(context.Background())

	res := Run(ctx, newExecutor(ledger), Operation[amounts]{
		Name: "cancel",
		Build: func(context.Context) (*solanago.Plan, error) {
			plan := testPlan(t, ledger, false)
			cancel()
			return plan, nil
		},
	})
	require.False(t, res.OK())
	assert.Equal(t, shared.KindCancelled, res.Err.Kind)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, ledger.Batches())
}

func TestRunPrerequisiteFailureAborts(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)
	ledger.OnSubmit = func(n int, b solanago.Batch) (solanago.Confirmation, error) {
		if b.Kind == solanago.BatchPrerequisite {
			return solanago.Confirmation{}, errors.New("insufficient funds for rent")
		}
		return solanago.Confirmation{Signature: ledgertest.Signature(n)}, nil
	}

	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name: "setup-fails",
		Build: func(ctx context.Context) (*solanago.Plan, error) {
			plan := testPlan(t, ledger, true)
			plan.SeparatePrerequisite = true
			return plan, nil
		},
	})
	require.False(t, res.OK())
	assert.Equal(t, shared.StateFailed, res.State)
	assert.Equal(t, shared.StateSubmitting, res.Transitions[len(res.Transitions)-2])
	require.Len(t, ledger.Batches(), 1)
	assert.Equal(t, solanago.BatchPrerequisite, ledger.Batches()[0].Kind)
}

func TestRunNativeDeltasExcludeFeesAndRent(t *testing.T) {
	ledger := ledgertest.New()
	ledger.SetBalance(owner, 1e9)
	var wrapped, created solana.PublicKey
	ledger.AfterSubmit = func(l *ledgertest.Ledger, _ solanago.Batch) {
		// the program pays out 500 lamports; the owner also funds the new account
		l.SetTokenAccount(created, mint, owner, 0)
		l.SetBalance(owner, 1e9-solanago.TokenAccountRentExempt+500)
	}

	var fees uint64
	res := Run(context.Background(), newExecutor(ledger), Operation[amounts]{
		Name: "native",
		Build: func(ctx context.Context) (*solanago.Plan, error) {
			plan := testPlan(t, ledger, false)
			wrapped = plan.Handles[0].Address
			h, err := plan.RequireTokenAccount(ctx, ledger, solanago.TokenRequirement{Owner: owner, Mint: mint})
			if err != nil {
				return nil, err
			}
			created = h.Address
			batches, err := plan.Batches()
			if err != nil {
				return nil, err
			}
			for _, b := range batches {
				fees += b.EstimateFee()
			}
			return plan, nil
		},
		Watches: func() []Watch { return []Watch{TokenWatch(wrapped), LamportWatch(owner)} },
		FromBalances: func(d Deltas) (amounts, error) {
			assert.Equal(t, fees, d.Fees)
			assert.Equal(t, solanago.TokenAccountRentExempt, d.Rent)
			assert.False(t, d.Exists(wrapped))
			return amounts{Out: d.Native(owner, wrapped).Uint64()}, nil
		},
	})

	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, shared.StrategyBalance, res.Strategy)
	assert.Equal(t, uint64(500), res.Value.Out)
	left, err := ledger.GetBalance(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1e9)-solanago.TokenAccountRentExempt+500-fees, left)
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	ledger := ledgertest.New()
	ex := NewExecutor(ledger, WithMetrics(m), WithCleanupRetries(1, time.Millisecond))
	Run(context.Background(), ex, Operation[amounts]{
		Name:     "metered",
		Validate: func(context.Context) error { return shared.ErrPoolNotFound },
	})
	families, err := reg.Gather()
	require.NoError(t, err)
	var failed float64
	for _, mf := range families {
		if mf.GetName() != "flipflop_operations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			failed += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), failed)

	_, err = NewMetrics(reg)
	assert.Error(t, err, "collectors register once per registry")
}
