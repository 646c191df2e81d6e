package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue replaces any value that may carry operator secrets, such as
// OTLP exporter credentials or key material passed through the environment.
const RedactedValue = "[REDACTED]"

// safeKeys are the ledger log fields whose values are protocol data, never
// secrets: operation labels, tickers, bech32 addresses and amounts are all
// public accounting state.
var safeKeys = map[string]struct{}{
	"service":   {},
	"env":       {},
	"network":   {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"module":    {},
	"operation": {},
	"outcome":   {},
	"ticker":    {},
	"asset_in":  {},
	"asset_out": {},
	"amount":    {},
	"account":   {},
	"address":   {},
	"endpoint":  {},
	"paused":    {},
}

// IsSafeKey reports whether the key may be logged without masking.
func IsSafeKey(key string) bool {
	_, ok := safeKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// SafeKeys returns the sorted allowlist of unmasked log keys.
func SafeKeys() []string {
	keys := make([]string, 0, len(safeKeys))
	for key := range safeKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue masks a non-empty value. Empty values pass through so absent
// configuration does not log as a redaction.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField builds a slog attribute, masking the value unless the key is on
// the allowlist. The original key casing is preserved.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsSafeKey(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
