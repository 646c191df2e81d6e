package config

// ICDP groups the risk parameters for individually collateralized positions.
// Ratios are basis points; values are decimal strings at the 8-decimal oracle
// scale.
type ICDP struct {
	MinCollateralRatioBPS   uint64
	LiquidationThresholdBPS uint64
	MaxLiquidationRatioBPS  uint64
	MinDebtValue            string
	MinCollateralValue      string
}

// SCDP groups the pool-level risk parameters.
type SCDP struct {
	MinCollateralRatioBPS   uint64
	LiquidationThresholdBPS uint64
	MaxLiquidationRatioBPS  uint64
}

// Oracle controls price freshness and the default source order.
type Oracle struct {
	MaxPriceAgeSecs uint64
	DefaultOrder    []string
}

// Pauses are the emergency switches per accounting module.
type Pauses struct {
	ICDP bool
	SCDP bool
}

// AssetConfig is the genesis whitelist entry for one asset. Fee and factor
// fields are basis points; limits are decimal strings in whole token units
// scaled by the asset's decimals.
type AssetConfig struct {
	Ticker   string
	Decimals uint8

	CFactorBPS uint64
	DFactorBPS uint64

	OpenFeeBPS          uint64
	CloseFeeBPS         uint64
	SwapInFeeBPS        uint64
	SwapOutFeeBPS       uint64
	ProtocolFeeShareBPS uint64

	LiqIncentiveBPS     uint64
	LiqIncentiveSCDPBPS uint64

	MintLimit        string
	MintLimitSCDP    string
	DepositLimitSCDP string

	OracleOrder []string

	IsCollateral        bool
	IsMintable          bool
	IsGlobalDepositable bool
	IsGlobalCollateral  bool
	IsSwapMintable      bool
}

// RouteConfig enables or disables one unordered swap pair.
type RouteConfig struct {
	AssetIn  string
	AssetOut string
	Enabled  bool
}

// Global bundles the protocol parameters applied at genesis and validated by
// ValidateGlobal before any state is touched.
type Global struct {
	ICDP   ICDP
	SCDP   SCDP
	Oracle Oracle
	Pauses Pauses
	Assets []AssetConfig
	Routes []RouteConfig
}

func applyDefaults(g *Global) {
	if g.ICDP.MinCollateralRatioBPS == 0 {
		g.ICDP.MinCollateralRatioBPS = 15_000
	}
	if g.ICDP.LiquidationThresholdBPS == 0 {
		g.ICDP.LiquidationThresholdBPS = 14_000
	}
	if g.SCDP.MinCollateralRatioBPS == 0 {
		g.SCDP.MinCollateralRatioBPS = 20_000
	}
	if g.SCDP.LiquidationThresholdBPS == 0 {
		g.SCDP.LiquidationThresholdBPS = 15_000
	}
	if g.Oracle.MaxPriceAgeSecs == 0 {
		g.Oracle.MaxPriceAgeSecs = 60
	}
}
