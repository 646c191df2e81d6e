package assets

import (
	"errors"
	"math/big"

	"kopiocore/native/fixed"
)

var ErrInvalidRebase = errors.New("assets: rebase denominator must be positive")

// Rebase is the per-asset retroactive scaling factor. Ledgers store raw
// pre-rebase units and convert at every read and mutation boundary, so
// changing the factor is O(1) and never rewrites per-account records.
//
// The denominator is wad-scaled: 2e18 with Positive doubles every observed
// balance, 2e18 without Positive halves it. Zero or 1e18 disables the rebase.
type Rebase struct {
	Denominator *big.Int
	Positive    bool
}

// Enabled reports whether the factor changes observed amounts.
func (r Rebase) Enabled() bool {
	return !fixed.IsZero(r.Denominator) && r.Denominator.Cmp(fixed.Wad) != 0
}

// ToReal converts a stored raw amount to the externally observed amount.
func (r Rebase) ToReal(raw *big.Int) *big.Int {
	if !r.Enabled() {
		return fixed.Clone(raw)
	}
	if r.Positive {
		return fixed.WadMul(raw, r.Denominator)
	}
	return fixed.WadDiv(raw, r.Denominator)
}

// ToRaw converts an externally observed amount to stored raw units.
func (r Rebase) ToRaw(real *big.Int) *big.Int {
	if !r.Enabled() {
		return fixed.Clone(real)
	}
	if r.Positive {
		return fixed.WadDiv(real, r.Denominator)
	}
	return fixed.WadMul(real, r.Denominator)
}
