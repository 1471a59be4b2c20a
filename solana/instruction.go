package solana

import (
	bin "encoding/binary"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

var (
	ataInstructionTypeID          = binary.NoTypeIDDefaultID
	transferInstructionTypeID     = binary.TypeIDFromUint32(system.Instruction_Transfer, bin.LittleEndian)
	syncNativeInstructionTypeID   = binary.TypeIDFromUint8(token.Instruction_SyncNative)
	closeAccountInstructionTypeID = binary.TypeIDFromUint8(token.Instruction_CloseAccount)
)

// ComputeUnitLimitInstruction raises the compute budget of a batch.
func ComputeUnitLimitInstruction(units uint32) solana.Instruction {
	return computebudget.NewSetComputeUnitLimitInstructionBuilder().
		SetUnits(units).
		Build()
}

// ComputeUnitPriceInstruction sets the priority fee of a batch, in micro-lamports per unit.
func ComputeUnitPriceInstruction(microLamports uint64) solana.Instruction {
	return computebudget.NewSetComputeUnitPriceInstruction(microLamports).Build()
}

// SplitInstructions splits instructions into setup, body and teardown.
// ATA creations go to setup and account closes to teardown, each deduplicated.
func SplitInstructions(instructions []solana.Instruction) (setup, body, teardown []solana.Instruction) {
loop:
	for _, ix := range instructions {
		switch inst := ix.(type) {
		case *associatedtokenaccount.Instruction:
			if inst.TypeID != ataInstructionTypeID {
				break
			}
			if !containsSameAccounts(setup, ix, 4) {
				setup = append(setup, ix)
			}
			continue loop
		case *token.Instruction:
			if inst.TypeID != closeAccountInstructionTypeID {
				break
			}
			if !containsSameAccounts(teardown, ix, 3) {
				teardown = append(teardown, ix)
			}
			continue loop
		}
		body = append(body, ix)
	}
	return setup, body, teardown
}

// MergeInstructions reorders instructions as setup, body, teardown.
func MergeInstructions(instructions []solana.Instruction) []solana.Instruction {
	setup, body, teardown := SplitInstructions(instructions)

	merged := make([]solana.Instruction, 0, len(setup)+len(body)+len(teardown))
	merged = append(merged, setup...)
	merged = append(merged, body...)
	merged = append(merged, teardown...)
	return merged
}

// DedupeFunding drops repeated sync-native instructions for the same account
// and folds repeated transfers between the same pair into the first one.
// The input instructions are left untouched.
func DedupeFunding(instructions []solana.Instruction) []solana.Instruction {
	type folded struct {
		index    int
		from, to solana.PublicKey
		lamports uint64
		count    int
	}
	var (
		transfers []*folded
		syncs     []solana.PublicKey
		out       = make([]solana.Instruction, 0, len(instructions))
	)

	for _, ix := range instructions {
		switch inst := ix.(type) {
		case *system.Instruction:
			if inst.TypeID != transferInstructionTypeID {
				break
			}
			transfer, ok := inst.Impl.(system.Transfer)
			if !ok || transfer.Lamports == nil {
				break
			}
			from := transfer.GetFundingAccount().PublicKey
			to := transfer.GetRecipientAccount().PublicKey
			merged := false
			for _, prev := range transfers {
				if prev.from.Equals(from) && prev.to.Equals(to) {
					prev.lamports += *transfer.Lamports
					prev.count++
					merged = true
					break
				}
			}
			if merged {
				continue
			}
			transfers = append(transfers, &folded{index: len(out), from: from, to: to, lamports: *transfer.Lamports, count: 1})
		case *token.Instruction:
			if inst.TypeID != syncNativeInstructionTypeID {
				break
			}
			account := ix.Accounts()[0].PublicKey
			seen := false
			for _, s := range syncs {
				if s.Equals(account) {
					seen = true
					break
				}
			}
			if seen {
				continue
			}
			syncs = append(syncs, account)
		}
		out = append(out, ix)
	}

	for _, tr := range transfers {
		if tr.count == 1 {
			continue
		}
		out[tr.index] = system.NewTransferInstructionBuilder().
			SetFundingAccount(tr.from).
			SetRecipientAccount(tr.to).
			SetLamports(tr.lamports).
			Build()
	}
	return out
}

func containsSameAccounts(list []solana.Instruction, ix solana.Instruction, n int) bool {
	accounts := ix.Accounts()
	for _, other := range list {
		otherAccounts := other.Accounts()
		if len(otherAccounts) < n || len(accounts) < n {
			continue
		}
		same := true
		for i := 0; i < n; i++ {
			if !accounts[i].PublicKey.Equals(otherAccounts[i].PublicKey) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}
