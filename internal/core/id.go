// Package core holds the domain entities shared across every component:
// the catalog (projects, characters, scenes, shots), jobs, intent
// classification, ambiguity/resolution records, narrative state, and
// quality feedback. Nothing here touches storage or transport.
package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateID creates a random ID with the given prefix, e.g. "job-abc123".
func GenerateID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(b))
}
