package utils

import "fmt"

// MaskSecret hides a credential for logging, keeping only its length.
func MaskSecret(secret string) string {
	if secret == "" {
		return "--- EMPTY ---"
	}
	return fmt.Sprintf("*** MASKED (%d chars) ***", len(secret))
}

// MaskJWTSecret describes the JWT secret without revealing it. An empty secret
// means the ingest route is unauthenticated.
func MaskJWTSecret(secret string) string {
	switch {
	case secret == "":
		return "--- EMPTY (ingest route is unauthenticated) ---"
	case len(secret) < 16:
		return fmt.Sprintf("*** MASKED (!!! WARNING: short secret, %d chars) ***", len(secret))
	default:
		return "*** MASKED ***"
	}
}
