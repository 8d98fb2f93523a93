package config

import (
	"fmt"
	"strings"
)

const (
	DecodePolicySpecial  = "special"
	DecodePolicyReserved = "reserved"
)

// NormalizeDecodePolicy canonicalizes tokenizer.decode_policy. Empty selects
// DecodePolicySpecial.
func NormalizeDecodePolicy(raw string) (string, error) {
	policy := strings.ToLower(strings.TrimSpace(raw))
	if policy == "" {
		policy = DecodePolicySpecial
	}
	switch policy {
	case DecodePolicySpecial, DecodePolicyReserved:
		return policy, nil
	case "skip-special":
		return DecodePolicySpecial, nil
	case "skip-reserved":
		return DecodePolicyReserved, nil
	default:
		return "", fmt.Errorf(
			"invalid decode policy %q (expected %s|%s)",
			raw,
			DecodePolicySpecial,
			DecodePolicyReserved,
		)
	}
}
