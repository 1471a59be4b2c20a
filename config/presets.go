package config

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/krazyTry/flipflop-go/cpmm"
	"github.com/krazyTry/flipflop-go/fairmint"
	fairmintgen "github.com/krazyTry/flipflop-go/gen/fair_mint"
)

const (
	Local   = "local"
	Devnet  = "devnet"
	Mainnet = "mainnet"
)

// Preset is the endpoints and deployments of one network.
type Preset struct {
	RPCURL   string
	WSURL    string
	Cpmm     cpmm.Descriptor
	FairMint fairmint.Descriptor
}

var (
	cpmmMainProgram = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
	cpmmMainConfig  = solana.MustPublicKeyFromBase58("D4FPEruKEHrG5TenZ2mpDGEfu1iUvTiqBxvpU8HLBvC2")
	cpmmMainFee     = solana.MustPublicKeyFromBase58("DNXgeM9EiiaAbaWvwjHj9fQQLAX5ZsfHyvmYUNRAdNC8")
	devnetManager   = solana.MustPublicKeyFromBase58("DJ3jvpv6k7uhq8h9oVHZck6oY4dQqY1GHaLvCLjSqxaD")
	testBaseMint    = solana.MustPublicKeyFromBase58("9R4AhtSgf1BXa356x1SpJP6jXnMBF1q9FD2RPS3s4jxP")
	usdc            = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

var presets = map[string]Preset{
	Local: newPreset(rpc.LocalNet_RPC, rpc.LocalNet_WS,
		cpmm.Descriptor{
			ProgramID:             cpmmMainProgram,
			AmmConfig:             cpmmMainConfig,
			CreatePoolFeeReceiver: cpmmMainFee,
			BaseMint:              testBaseMint,
		},
		solana.MustPublicKeyFromBase58("CXzddeiDgbTTxNnd1apeUGE7E1UAdvBoysf7c271AA79"),
		solana.MustPublicKeyFromBase58("J5pvpeGcJ8ucg5yEeGJPXsWSLnoog6FWbDsDfcaGfbUw"),
		false,
	),
	Devnet: newPreset(rpc.DevNet_RPC, rpc.DevNet_WS,
		cpmm.Descriptor{
			ProgramID:             solana.MustPublicKeyFromBase58("CPMDWBwJDtYax9qW7AyRuVC19Cc4L4Vcy4n2BHAbHkCW"),
			AmmConfig:             solana.MustPublicKeyFromBase58("9zSzfkYy6awexsHvmggeH36pfVUdDGyCcwmjT3AQPBj6"),
			CreatePoolFeeReceiver: solana.MustPublicKeyFromBase58("G11FKBRaAkHAKuLCgLM6K6NUc9rTjPAznRCjZifrTQe2"),
			BaseMint:              testBaseMint,
		},
		devnetManager,
		solana.MustPublicKeyFromBase58("8i75wLdZoKFNxZNxxaixN8naXNByXqYkd4hVSkbVq439"),
		false,
	),
	Mainnet: newPreset(rpc.MainNetBeta_RPC, rpc.MainNetBeta_WS,
		cpmm.Descriptor{
			ProgramID:             cpmmMainProgram,
			AmmConfig:             cpmmMainConfig,
			CreatePoolFeeReceiver: cpmmMainFee,
			BaseMint:              usdc,
		},
		devnetManager,
		solana.MustPublicKeyFromBase58("7DK7pmNkUeeFB3yxt6bJcPCWcG4L3AdCe2WZaBguy9sq"),
		true,
	),
}

func newPreset(rpcURL, wsURL string, pool cpmm.Descriptor, manager, table solana.PublicKey, offCurve bool) Preset {
	return Preset{
		RPCURL: rpcURL,
		WSURL:  wsURL,
		Cpmm:   pool,
		FairMint: fairmint.Descriptor{
			ProgramID:          fairmintgen.ProgramID,
			SystemManager:      manager,
			LookupTable:        table,
			MetadataProgram:    fairmintgen.MetadataProgramID,
			AllowOwnerOffCurve: offCurve,
			Cpmm:               pool,
		},
	}
}

// PresetFor returns the preset of network by name.
func PresetFor(network string) (Preset, error) {
	p, ok := presets[network]
	if !ok {
		return Preset{}, fmt.Errorf("unknown network %q", network)
	}
	return p, nil
}
