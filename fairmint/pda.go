package fairmint

import (
	"strings"

	"github.com/gagliardetto/solana-go"

	solanago "github.com/krazyTry/flipflop-go/solana"
)

const (
	mintSeed         = "fair_mint"
	configDataSeed   = "config_data"
	refundSeed       = "refund"
	referralSeed     = "referral"
	referralCodeSeed = "referral_code"
	codeAccountSeed  = "code_account"
	systemConfigSeed = "system_config_v2.0"
	launchRuleSeed   = "launch_rule"
	urcThrottleSeed  = "urc_throttle"
	solFeePayerSeed  = "sol_fee_payer_1"
	metadataSeed     = "metadata"
)

func derive(program solana.PublicKey, seeds ...[]byte) (solana.PublicKey, error) {
	address, _, err := solanago.Derive(seeds, program)
	return address, err
}

// DeriveMint is the mint launched as name/symbol. The symbol seed is lower-cased.
func DeriveMint(program solana.PublicKey, name, symbol string) (solana.PublicKey, error) {
	return derive(program, []byte(mintSeed), []byte(name), []byte(strings.ToLower(symbol)))
}

func DeriveConfig(program, mint solana.PublicKey) (solana.PublicKey, error) {
	return derive(program, []byte(configDataSeed), mint.Bytes())
}

func DeriveRefund(program, mint, user solana.PublicKey) (solana.PublicKey, error) {
	return derive(program, []byte(refundSeed), mint.Bytes(), user.Bytes())
}

func DeriveReferral(program, mint, referrerMain solana.PublicKey) (solana.PublicKey, error) {
	return derive(program, []byte(referralSeed), mint.Bytes(), referrerMain.Bytes())
}

// DeriveCodeHash turns a referral code (URC) into the key it is stored under.
func DeriveCodeHash(program solana.PublicKey, urc string) (solana.PublicKey, error) {
	return derive(program, []byte(referralCodeSeed), []byte(urc))
}

func DeriveCodeAccount(program, codeHash solana.PublicKey) (solana.PublicKey, error) {
	return derive(program, []byte(codeAccountSeed), codeHash.Bytes())
}

func DeriveSystemConfig(program, systemManager solana.PublicKey) (solana.PublicKey, error) {
	return derive(program, []byte(systemConfigSeed), systemManager.Bytes())
}

func DeriveLaunchRule(program, systemManager solana.PublicKey) (solana.PublicKey, error) {
	return derive(program, []byte(launchRuleSeed), systemManager.Bytes())
}

func DeriveURCThrottle(program, mint solana.PublicKey) (solana.PublicKey, error) {
	return derive(program, []byte(urcThrottleSeed), mint.Bytes())
}

func DeriveSolFeePayer(program solana.PublicKey) (solana.PublicKey, error) {
	return derive(program, []byte(solFeePayerSeed))
}

// DeriveMetadata is the Metaplex metadata account of mint.
func DeriveMetadata(metadataProgram, mint solana.PublicKey) (solana.PublicKey, error) {
	return derive(metadataProgram, []byte(metadataSeed), metadataProgram.Bytes(), mint.Bytes())
}
