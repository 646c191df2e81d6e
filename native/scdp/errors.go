package scdp

import "errors"

var (
	errNilState            = errors.New("scdp: state not configured")
	ErrZeroAmount          = errors.New("scdp: amount must be positive")
	ErrNotDepositable      = errors.New("scdp: asset not enabled for pool deposits")
	ErrNotSwapMintable     = errors.New("scdp: asset not swap mintable")
	ErrDepositLimit        = errors.New("scdp: pool deposit limit exceeded")
	ErrNoDeposit           = errors.New("scdp: account has no pool deposit")
	ErrRouteDisabled       = errors.New("scdp: swap route not enabled")
	ErrMintLimit           = errors.New("scdp: swap mint limit exceeded")
	ErrSlippage            = errors.New("scdp: output below requested minimum")
	ErrPoolCollateralLow   = errors.New("scdp: pool collateral value too low")
	ErrPoolNotLiquidatable = errors.New("scdp: pool not eligible for liquidation")
	ErrNoPoolDebt          = errors.New("scdp: no outstanding pool debt")
	ErrSeizeUnderflow      = errors.New("scdp: seized collateral exceeds pool deposits")
	ErrNoIncomeDeposits    = errors.New("scdp: cannot cumulate income without deposits")
)
