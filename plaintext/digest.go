package plaintext

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex BLAKE2b-256 sum of a rendered document. It serves
// as the HTTP ETag and as the publication ledger's change key.
func Digest(doc string) string {
	sum := blake2b.Sum256([]byte(doc))
	return hex.EncodeToString(sum[:])
}
