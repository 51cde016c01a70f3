package lock

import "crypto/subtle"

// Validate reports whether candidate equals secret exactly: same length,
// same keys, same order. The comparison time does not depend on where the
// first mismatch is.
func Validate(candidate, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(secret)) == 1
}
