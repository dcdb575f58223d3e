package session

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// fingerprintLen is the number of hex characters kept from the digest.
const fingerprintLen = 16

// Fingerprint derives a non-reversible identifier for credential. The digest
// is keyed with secret so fingerprints cannot be precomputed without it.
func Fingerprint(secret []byte, credential string) string {
	key := blake2b.Sum256(secret)
	h, err := blake2b.New256(key[:])
	if err != nil {
		// a 32 byte key is always accepted
		panic(err)
	}
	h.Write([]byte(credential))
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen]
}
