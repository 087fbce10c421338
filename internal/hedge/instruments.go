package hedge

import (
	"fmt"
	"strings"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// nativeTokens maps chains to the perpetual symbol of their native token,
// used when hedging smart-contract risk on that chain.
var nativeTokens = map[domain.Chain]string{
	domain.ChainEthereum:  "ETHUSDT",
	domain.ChainTON:       "TONUSDT",
	domain.ChainBitcoin:   "BTCUSDT",
	domain.ChainArbitrum:  "ARBUSDT",
	domain.ChainBase:      "ETHUSDT",
	domain.ChainOptimism:  "OPUSDT",
	domain.ChainPolygon:   "POLUSDT",
	domain.ChainLightning: "BTCUSDT",
	domain.ChainSolana:    "SOLUSDT",
}

// PerpSymbol routes a product to a shortable perpetual contract. USDT depeg
// risk maps to BTCUSDT because USDT itself cannot be shorted against USDT.
func PerpSymbol(p domain.ProductKey) string {
	switch p.Coverage {
	case domain.CoverageDepeg:
		if p.Stablecoin == domain.StableUSDT {
			return "BTCUSDT"
		}
		return fmt.Sprintf("%sUSDT", strings.ToUpper(string(p.Stablecoin)))
	case domain.CoverageSmartContract:
		if sym, ok := nativeTokens[p.Chain]; ok {
			return sym
		}
		return "ETHUSDT"
	case domain.CoverageOracle:
		return "LINKUSDT"
	case domain.CoverageBridge:
		if sym, ok := nativeTokens[p.Chain]; ok {
			return sym
		}
		return "ETHUSDT"
	case domain.CoverageCexLiquidation:
		return "BTCUSDT"
	}
	return "BTCUSDT"
}

// PolymarketMarketID derives the binary market id for a product. Depeg markets
// are quarterly per asset; other kinds are yearly per chain.
func PolymarketMarketID(p domain.ProductKey, now time.Time) string {
	year := now.Year()
	quarter := (int(now.Month())-1)/3 + 1
	chain := strings.ToLower(string(p.Chain))
	asset := strings.ToLower(string(p.Stablecoin))
	switch p.Coverage {
	case domain.CoverageDepeg:
		return fmt.Sprintf("%s-depeg-q%d-%d", asset, quarter, year)
	case domain.CoverageSmartContract:
		return fmt.Sprintf("%s-smart-contract-exploit-%d", chain, year)
	case domain.CoverageOracle:
		return fmt.Sprintf("%s-oracle-failure-%d", chain, year)
	case domain.CoverageBridge:
		return fmt.Sprintf("%s-bridge-exploit-%d", chain, year)
	case domain.CoverageCexLiquidation:
		return fmt.Sprintf("cex-liquidation-cascade-%d", year)
	}
	return fmt.Sprintf("%s-%s-%d", asset, chain, year)
}
