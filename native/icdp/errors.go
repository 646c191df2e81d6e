package icdp

import "errors"

var (
	errNilState             = errors.New("icdp: state not configured")
	ErrZeroAmount           = errors.New("icdp: amount must be positive")
	ErrNotCollateral        = errors.New("icdp: asset not accepted as collateral")
	ErrNotMintable          = errors.New("icdp: asset not mintable")
	ErrCollateralAmountLow  = errors.New("icdp: collateral amount below dust threshold")
	ErrCollateralTooLow     = errors.New("icdp: account collateral value too low")
	ErrMintLimit            = errors.New("icdp: asset mint limit exceeded")
	ErrMinDebtValue         = errors.New("icdp: resulting debt below minimum value")
	ErrNoDebt               = errors.New("icdp: no outstanding debt")
	ErrNotLiquidatable      = errors.New("icdp: account not eligible for liquidation")
	ErrSelfLiquidation      = errors.New("icdp: cannot liquidate own account")
	ErrSeizeUnderflow       = errors.New("icdp: seized collateral exceeds available deposit")
	ErrNoCollateralDeposit  = errors.New("icdp: account has no deposit of requested collateral")
)
