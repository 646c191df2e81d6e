package common

import (
	"errors"

	"kopiocore/crypto"
)

var ErrUnauthorized = errors.New("caller not authorized for account")

// Policy decides whether a caller may perform an operation on behalf of
// another account. The caller identity is always passed explicitly; there is
// no ambient "current caller".
type Policy interface {
	Allow(caller, account crypto.Address, op string) bool
}

// Authorize permits self-directed operations unconditionally and defers to
// the policy for delegated ones. A nil policy denies all delegation.
func Authorize(p Policy, caller, account crypto.Address, op string) error {
	if caller.Equal(account) {
		return nil
	}
	if p != nil && p.Allow(caller, account, op) {
		return nil
	}
	return ErrUnauthorized
}
