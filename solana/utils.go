package solana

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const programDataPrefix = "Program data: "

func discriminator(namespace, name string) [8]byte {
	hash := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}

// AccountDiscriminator is the Anchor prefix of an account named name.
func AccountDiscriminator(name string) [8]byte {
	return discriminator("account", name)
}

// EventDiscriminator is the Anchor prefix of an emitted event.
func EventDiscriminator(name string) [8]byte {
	return discriminator("event", name)
}

// InstructionDiscriminator is the Anchor prefix of an instruction; name is snake_case.
func InstructionDiscriminator(name string) [8]byte {
	return discriminator("global", name)
}

// ParseProgramData extracts the base64 payloads Anchor programs emit with emit!.
// Lines that do not decode are skipped.
func ParseProgramData(logs []string) [][]byte {
	var out [][]byte
	for _, line := range logs {
		idx := strings.Index(line, programDataPrefix)
		if idx < 0 {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(line[idx+len(programDataPrefix):]))
		if err != nil || len(data) < 8 {
			continue
		}
		out = append(out, data)
	}
	return out
}
