package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for digests. The version suffix leaves room for
// algorithm migration.
const (
	DomainPacket = "catalog/packet/v1"
	DomainQuery  = "catalog/query/v1"
)

// HashWithDomain computes a SHA-256 digest with domain separation.
// Format: SHA256(domain + 0x00 + part1 + 0x00 + part2 ...)
// The null separators keep part boundaries unambiguous.
func HashWithDomain(domain string, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write([]byte{0x00})
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// QueryID returns a short, stable identifier for a translated query.
// Used to correlate log lines and metrics for the same backend statement.
func QueryID(sql string) string {
	return HashWithDomain(DomainQuery, []byte(sql))[:16]
}
