package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/tidwall/gjson"

	"github.com/krazyTry/flipflop-go/cpmm"
	"github.com/krazyTry/flipflop-go/fairmint"
)

type Config struct {
	// Network selects the descriptor preset: local, devnet or mainnet.
	Network string

	// RPC settings
	RPCURL         string
	WSURL          string
	Commitment     rpc.CommitmentType
	RPS            float64
	ConfirmTimeout time.Duration
	Simulate       bool

	MaxBatchInstructions int
	LogLevel             string

	Cpmm     cpmm.Descriptor
	FairMint fairmint.Descriptor
}

// Load reads files (".env" when none are given) into the environment and
// builds a Config from it. Missing files are not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	network := strings.ToLower(getEnv("FLIPFLOP_NETWORK", Devnet))
	preset, err := PresetFor(network)
	if err != nil {
		return nil, err
	}
	commitment, err := parseCommitment(getEnv("FLIPFLOP_COMMITMENT", string(rpc.CommitmentConfirmed)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Network: network,

		// RPC
		RPCURL:         getEnv("SOLANA_RPC_URL", preset.RPCURL),
		WSURL:          getEnv("SOLANA_WS_URL", preset.WSURL),
		Commitment:     commitment,
		RPS:            getFloatEnv("FLIPFLOP_RPS", 0),
		ConfirmTimeout: getDurationEnv("FLIPFLOP_CONFIRM_TIMEOUT", 60*time.Second),
		Simulate:       getBoolEnv("FLIPFLOP_SIMULATE", false),

		MaxBatchInstructions: getIntEnv("FLIPFLOP_MAX_BATCH_INSTRUCTIONS", 0),
		LogLevel:             getEnv("FLIPFLOP_LOG_LEVEL", "info"),

		Cpmm:     preset.Cpmm,
		FairMint: preset.FairMint,
	}
	if raw := os.Getenv("FLIPFLOP_DESCRIPTOR_JSON"); raw != "" {
		if err := cfg.ApplyDescriptorJSON(raw); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ApplyDescriptorJSON overrides descriptor fields from a JSON document of
// the form {"cpmm": {...}, "fairMint": {...}}. Absent keys keep their value.
func (c *Config) ApplyDescriptorJSON(raw string) error {
	if !gjson.Valid(raw) {
		return errors.New("descriptor json: invalid document")
	}
	doc := gjson.Parse(raw)
	keys := []struct {
		path string
		dst  *solana.PublicKey
	}{
		{"cpmm.programId", &c.Cpmm.ProgramID},
		{"cpmm.ammConfig", &c.Cpmm.AmmConfig},
		{"cpmm.createPoolFeeReceiver", &c.Cpmm.CreatePoolFeeReceiver},
		{"cpmm.baseMint", &c.Cpmm.BaseMint},
		{"fairMint.programId", &c.FairMint.ProgramID},
		{"fairMint.systemManager", &c.FairMint.SystemManager},
		{"fairMint.lookupTable", &c.FairMint.LookupTable},
		{"fairMint.metadataProgram", &c.FairMint.MetadataProgram},
	}
	for _, k := range keys {
		v := doc.Get(k.path)
		if !v.Exists() {
			continue
		}
		key, err := solana.PublicKeyFromBase58(v.String())
		if err != nil {
			return fmt.Errorf("descriptor json: %s: %w", k.path, err)
		}
		*k.dst = key
	}
	if v := doc.Get("fairMint.allowOwnerOffCurve"); v.Exists() {
		c.FairMint.AllowOwnerOffCurve = v.Bool()
	}
	c.FairMint.Cpmm = c.Cpmm
	return nil
}

func parseCommitment(s string) (rpc.CommitmentType, error) {
	switch c := rpc.CommitmentType(strings.ToLower(s)); c {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return c, nil
	}
	return "", fmt.Errorf("unknown commitment %q", s)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
