package solana

import (
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/flipflop-go/shared"
)

// Plan is the ordered set of steps of one operation: prerequisite setup
// (account creation, funding), the core instruction(s), and cleanup of
// accounts created for the operation.
type Plan struct {
	Payer solana.PublicKey

	Prerequisite []solana.Instruction
	Core         []solana.Instruction
	Cleanup      []solana.Instruction

	Handles []*ResourceHandle

	AddressTables map[solana.PublicKey]solana.PublicKeySlice

	// MaxInstructions bounds a batch; 0 means unbounded.
	MaxInstructions int
	// SeparatePrerequisite forces the setup into its own confirmed batch.
	SeparatePrerequisite bool
	// DetachCleanup submits cleanup on its own after the core batch.
	DetachCleanup bool
	// FeeReserve is kept back from native balances when funding handles.
	FeeReserve uint64
}

func NewPlan(payer solana.PublicKey, maxInstructions int) *Plan {
	return &Plan{
		Payer:           payer,
		MaxInstructions: maxInstructions,
		FeeReserve:      SignatureFee,
	}
}

func (p *Plan) AddPrerequisite(ixs ...solana.Instruction) {
	p.Prerequisite = append(p.Prerequisite, ixs...)
}

func (p *Plan) AddCore(ixs ...solana.Instruction) {
	p.Core = append(p.Core, ixs...)
}

func (p *Plan) AddCleanup(ixs ...solana.Instruction) {
	p.Cleanup = append(p.Cleanup, ixs...)
}

// Handle returns the handle tracked for address, if any.
func (p *Plan) Handle(address solana.PublicKey) *ResourceHandle {
	for _, h := range p.Handles {
		if h.Address.Equals(address) {
			return h
		}
	}
	return nil
}

// Len is the total instruction count across all steps.
func (p *Plan) Len() int {
	return len(p.Prerequisite) + len(p.Core) + len(p.Cleanup)
}

func (p *Plan) fits(n int) bool {
	return p.MaxInstructions <= 0 || n <= p.MaxInstructions
}

// Batches groups the plan into as few atomic submissions as the limits
// allow. The core step is never split. Setup that does not fit beside the
// core step goes into prerequisite batches that run, and confirm, first.
func (p *Plan) Batches() ([]Batch, error) {
	if len(p.Core) == 0 {
		return nil, shared.Errorf(shared.KindInvalidArgument, "plan has no core instruction")
	}
	if !p.fits(len(p.Core)) {
		return nil, shared.Errorf(shared.KindInvalidArgument, "core step needs %d instructions, batch limit is %d", len(p.Core), p.MaxInstructions)
	}

	setup := DedupeFunding(MergeInstructions(p.Prerequisite))
	teardown := MergeInstructions(p.Cleanup)

	var batches []Batch
	core := make([]solana.Instruction, 0, p.Len())

	if len(setup) > 0 && (p.SeparatePrerequisite || !p.fits(len(setup)+len(p.Core))) {
		for _, chunk := range chunkInstructions(setup, p.MaxInstructions) {
			batches = append(batches, p.batch(BatchPrerequisite, chunk))
		}
	} else {
		core = append(core, setup...)
	}
	core = append(core, p.Core...)

	var detached []solana.Instruction
	if len(teardown) > 0 {
		if !p.DetachCleanup && p.fits(len(core)+len(teardown)) {
			core = append(core, teardown...)
		} else {
			detached = teardown
		}
	}

	batches = append(batches, p.batch(BatchCore, core))
	for _, chunk := range chunkInstructions(detached, p.MaxInstructions) {
		batches = append(batches, p.batch(BatchCleanup, chunk))
	}
	return batches, nil
}

func (p *Plan) batch(kind BatchKind, ixs []solana.Instruction) Batch {
	return Batch{
		Kind:          kind,
		Payer:         p.Payer,
		Instructions:  ixs,
		AddressTables: p.AddressTables,
	}
}

func chunkInstructions(ixs []solana.Instruction, size int) [][]solana.Instruction {
	if len(ixs) == 0 {
		return nil
	}
	if size <= 0 || len(ixs) <= size {
		return [][]solana.Instruction{ixs}
	}
	var out [][]solana.Instruction
	for start := 0; start < len(ixs); start += size {
		end := min(start+size, len(ixs))
		out = append(out, ixs[start:end])
	}
	return out
}
