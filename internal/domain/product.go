// Package domain defines the core types of the Tonsurance coordination plane:
// products, policies, the unified capital pool, monitored signals, hedge
// bookkeeping, and the store/cache interfaces the rest of the system depends
// on. All monetary amounts are integer USD cents; floats are reserved for
// prices, ratios, and rates.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// CoverageKind identifies one of the five insured failure modes.
type CoverageKind string

const (
	CoverageDepeg          CoverageKind = "depeg"
	CoverageSmartContract  CoverageKind = "smart_contract"
	CoverageOracle         CoverageKind = "oracle"
	CoverageBridge         CoverageKind = "bridge"
	CoverageCexLiquidation CoverageKind = "cex_liquidation"
)

// CoverageKinds lists every valid coverage kind in canonical order.
var CoverageKinds = []CoverageKind{
	CoverageDepeg,
	CoverageSmartContract,
	CoverageOracle,
	CoverageBridge,
	CoverageCexLiquidation,
}

// Valid reports whether k is one of the five known coverage kinds.
func (k CoverageKind) Valid() bool {
	switch k {
	case CoverageDepeg, CoverageSmartContract, CoverageOracle, CoverageBridge, CoverageCexLiquidation:
		return true
	}
	return false
}

// Chain is a supported settlement blockchain.
type Chain string

const (
	ChainEthereum  Chain = "Ethereum"
	ChainTON       Chain = "TON"
	ChainBitcoin   Chain = "Bitcoin"
	ChainArbitrum  Chain = "Arbitrum"
	ChainBase      Chain = "Base"
	ChainOptimism  Chain = "Optimism"
	ChainPolygon   Chain = "Polygon"
	ChainLightning Chain = "Lightning"
	ChainSolana    Chain = "Solana"
)

// Chains lists every supported chain.
var Chains = []Chain{
	ChainEthereum, ChainTON, ChainBitcoin, ChainArbitrum, ChainBase,
	ChainOptimism, ChainPolygon, ChainLightning, ChainSolana,
}

// Valid reports whether c is a supported chain.
func (c Chain) Valid() bool {
	for _, k := range Chains {
		if c == k {
			return true
		}
	}
	return false
}

// Stablecoin is a supported covered asset.
type Stablecoin string

const (
	StableUSDC   Stablecoin = "USDC"
	StableUSDT   Stablecoin = "USDT"
	StableDAI    Stablecoin = "DAI"
	StableFRAX   Stablecoin = "FRAX"
	StableUSDP   Stablecoin = "USDP"
	StableBUSD   Stablecoin = "BUSD"
	StableUSDe   Stablecoin = "USDe"
	StableSUSDe  Stablecoin = "sUSDe"
	StableUSDY   Stablecoin = "USDY"
	StablePYUSD  Stablecoin = "PYUSD"
	StableGHO    Stablecoin = "GHO"
	StableLUSD   Stablecoin = "LUSD"
	StableCrvUSD Stablecoin = "crvUSD"
	StableMkUSD  Stablecoin = "mkUSD"
)

// Stablecoins lists every supported stablecoin.
var Stablecoins = []Stablecoin{
	StableUSDC, StableUSDT, StableDAI, StableFRAX, StableUSDP, StableBUSD,
	StableUSDe, StableSUSDe, StableUSDY, StablePYUSD, StableGHO, StableLUSD,
	StableCrvUSD, StableMkUSD,
}

// Valid reports whether s is a supported stablecoin.
func (s Stablecoin) Valid() bool {
	for _, k := range Stablecoins {
		if s == k {
			return true
		}
	}
	return false
}

// ProductKey uniquely identifies one insurance product: the cross-product of
// coverage kind, chain, and stablecoin. It is comparable and used as a map key
// throughout the exposure and hedging paths.
type ProductKey struct {
	Coverage   CoverageKind `json:"coverage_type"`
	Chain      Chain        `json:"chain"`
	Stablecoin Stablecoin   `json:"stablecoin"`
}

// Valid reports whether every field of the key is a known enum value.
func (p ProductKey) Valid() bool {
	return p.Coverage.Valid() && p.Chain.Valid() && p.Stablecoin.Valid()
}

// String renders the canonical lowercase-delimited form of the key, e.g.
// "depeg:Ethereum:USDC".
func (p ProductKey) String() string {
	return fmt.Sprintf("%s:%s:%s", p.Coverage, p.Chain, p.Stablecoin)
}

// Hash returns the hex SHA-256 of the canonical key string, used as the
// stable product identifier in quotes and reports.
func (p ProductKey) Hash() string {
	sum := sha256.Sum256([]byte(p.String()))
	return hex.EncodeToString(sum[:])
}
