//go:build race

package authkit

import "golang.org/x/crypto/bcrypt"

// Hashing under the race detector is slow enough to trip test timeouts
func init() {
	PasswordCost = bcrypt.MinCost
}
