package password

import "crypto/subtle"

// SafeCompare reports whether a and b are equal without short-circuiting on
// the first mismatched byte. It is the comparison for any secret pair,
// confirmation codes and reset tokens included, independent of password
// hashing.
//
// Unequal lengths return false after a comparison over the probe, so timing
// does not reveal a prefix match.
func SafeCompare(a, b string) bool {
	if len(a) != len(b) {
		// Burn the same comparison work before rejecting.
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
