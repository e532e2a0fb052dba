package tickets

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const seedBytes = 12

// NewTicketSeed returns a random hex credential used as the scan payload.
func NewTicketSeed() (string, error) {
	b := make([]byte, seedBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate ticket seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}
