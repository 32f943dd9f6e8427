package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/XC-/dbt/uuid"
)

// parseUUIDArg accepts the short forms a human types on a command line
// (4 hex digits for a 16-bit UUID, 8 for 32-bit) alongside the canonical
// 128-bit form uuid.ParseUUID already handles, the same convenience
// write.go's positional <uuid> argument offers ("2a06" rather than the
// full Bluetooth-base expansion).
func parseUUIDArg(s string) (uuid.UUID, error) {
	clean := strings.ReplaceAll(s, "-", "")
	switch len(clean) {
	case 4:
		b, err := hex.DecodeString(clean)
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("invalid uuid %q: %w", s, err)
		}
		return uuid.From16(b, false)
	case 8:
		b, err := hex.DecodeString(clean)
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("invalid uuid %q: %w", s, err)
		}
		return uuid.From32(b, false)
	default:
		return uuid.ParseUUID(s)
	}
}
