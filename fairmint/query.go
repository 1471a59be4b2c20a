package fairmint

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	fairmintgen "github.com/krazyTry/flipflop-go/gen/fair_mint"
	"github.com/krazyTry/flipflop-go/shared"
)

// SystemConfig is the protocol configuration with the addresses it lives at.
type SystemConfig struct {
	*fairmintgen.SystemConfigData
	Address       solana.PublicKey
	SystemManager solana.PublicKey
	LaunchRule    solana.PublicKey
}

// Referral is the referrer a URC resolves to.
type Referral struct {
	*fairmintgen.TokenReferralData
	URC     string
	Address solana.PublicKey
	// CodeHashKey is the key derived from the URC; valid referrals store the same value.
	CodeHashKey solana.PublicKey
}

// Refund is a user's refundable position in one mint.
type Refund struct {
	*fairmintgen.TokenRefundData
	Address solana.PublicKey
}

// account reads and decodes a program account, AccountNotFound when absent.
func account[T any](ctx context.Context, f *FairMint, what string, address solana.PublicKey, decode func([]byte) (*T, error)) (*T, error) {
	data, err := f.ledger.GetAccountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", what, address, err)
	}
	if !data.Exists {
		return nil, shared.Errorf(shared.KindAccountNotFound, "%s %s", what, address)
	}
	return decode(data.Data)
}

func (f *FairMint) GetSystemConfig(ctx context.Context) (*SystemConfig, error) {
	address, err := DeriveSystemConfig(f.desc.ProgramID, f.desc.SystemManager)
	if err != nil {
		return nil, err
	}
	launchRule, err := DeriveLaunchRule(f.desc.ProgramID, f.desc.SystemManager)
	if err != nil {
		return nil, err
	}
	data, err := account(ctx, f, "system config", address, fairmintgen.DecodeSystemConfigData)
	if err != nil {
		return nil, err
	}
	return &SystemConfig{
		SystemConfigData: data,
		Address:          address,
		SystemManager:    f.desc.SystemManager,
		LaunchRule:       launchRule,
	}, nil
}

// GetReferralByCode resolves a URC through its code account to the referral it points at.
func (f *FairMint) GetReferralByCode(ctx context.Context, urc string) (*Referral, error) {
	if urc == "" {
		return nil, shared.Errorf(shared.KindInvalidArgument, "referral code is required")
	}
	codeHash, err := DeriveCodeHash(f.desc.ProgramID, urc)
	if err != nil {
		return nil, err
	}
	codeAccount, err := DeriveCodeAccount(f.desc.ProgramID, codeHash)
	if err != nil {
		return nil, err
	}
	code, err := account(ctx, f, "code account", codeAccount, fairmintgen.DecodeCodeAccountData)
	if err != nil {
		return nil, err
	}
	referral, err := account(ctx, f, "referral account", code.ReferralAccount, fairmintgen.DecodeTokenReferralData)
	if err != nil {
		return nil, err
	}
	return &Referral{
		TokenReferralData: referral,
		URC:               urc,
		Address:           code.ReferralAccount,
		CodeHashKey:       codeHash,
	}, nil
}

func (f *FairMint) GetRefundData(ctx context.Context, mint, owner solana.PublicKey) (*Refund, error) {
	address, err := DeriveRefund(f.desc.ProgramID, mint, owner)
	if err != nil {
		return nil, err
	}
	data, err := account(ctx, f, "refund account", address, fairmintgen.DecodeTokenRefundData)
	if err != nil {
		return nil, err
	}
	return &Refund{TokenRefundData: data, Address: address}, nil
}

// GetMetadata reads the Metaplex metadata of mint, with padding stripped.
func (f *FairMint) GetMetadata(ctx context.Context, mint solana.PublicKey) (*fairmintgen.Metadata, error) {
	address, err := DeriveMetadata(f.desc.MetadataProgram, mint)
	if err != nil {
		return nil, err
	}
	return account(ctx, f, "metadata", address, fairmintgen.DecodeMetadata)
}
