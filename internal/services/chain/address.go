package chain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// IsValidAddress reports whether address is a structurally valid EVM address.
// All-lowercase and all-uppercase hex are accepted; mixed-case addresses must
// carry a correct EIP-55 checksum.
func IsValidAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return false
	}
	body := address[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return false
	}

	lower := strings.ToLower(body)
	upper := strings.ToUpper(body)
	if body == lower || body == upper {
		return true
	}
	return checksumAddress(lower) == body
}

// checksumAddress applies the EIP-55 casing rule to a lowercase hex address
// body (no 0x prefix).
func checksumAddress(lower string) string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(lower))
	digest := hash.Sum(nil)

	out := []byte(lower)
	for i := range out {
		if out[i] < 'a' || out[i] > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = out[i] - 'a' + 'A'
		}
	}
	return string(out)
}
