package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep hashes of different record kinds from colliding.
const (
	DomainDefinition = "parlex/definition/v1"
	DomainTrace      = "parlex/trace/v1"
)

// Hash returns the hex SHA-256 of domain, a 0x00 separator and the canonical
// JSON of v.
func Hash(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
