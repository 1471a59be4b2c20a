package solana

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// AccountData is the result of an account read. Exists == false means the
// account is absent; the other fields are then zero.
type AccountData struct {
	Address  solana.PublicKey
	Exists   bool
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

type BatchKind uint8

const (
	BatchPrerequisite BatchKind = iota
	BatchCore
	BatchCleanup
)

func (k BatchKind) String() string {
	switch k {
	case BatchPrerequisite:
		return "prerequisite"
	case BatchCore:
		return "core"
	case BatchCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Batch is an ordered instruction list submitted atomically.
type Batch struct {
	Kind         BatchKind
	Payer        solana.PublicKey
	Instructions []solana.Instruction
	// AddressTables, when set, makes the ledger build a v0 transaction.
	AddressTables map[solana.PublicKey]solana.PublicKeySlice
}

// Confirmation references a batch the ledger executed.
type Confirmation struct {
	Signature solana.Signature
	Slot      uint64
	// Logs are filled when the ledger already has them, e.g. after a simulation.
	Logs      []string
	Simulated bool
}

// Ledger is the remote state the engine reads from and submits to.
//
// SubmitBatch returns an error of kind Indeterminate when the batch was sent
// but no confirmation arrived in time. GetExecutedEventData returns nil when
// the ledger cannot provide event payloads for conf.
type Ledger interface {
	GetAccountData(ctx context.Context, address solana.PublicKey) (AccountData, error)
	GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error)
	SubmitBatch(ctx context.Context, batch Batch) (Confirmation, error)
	GetExecutedEventData(ctx context.Context, conf Confirmation) ([][]byte, error)
}
