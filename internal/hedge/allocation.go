package hedge

import (
	"math"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// Allocate splits an exposure's hedge requirement across the four venues by
// the configured weights. The first three slices round to the nearest cent;
// the Allianz slice takes the remainder so the total always equals the
// requirement exactly.
func Allocate(exposure domain.ProductExposure, cfg config.HedgeConfig) domain.HedgeAllocation {
	required := exposure.HedgeRequiredCents
	poly := int64(math.Round(float64(required) * cfg.PolymarketWeight))
	perps := int64(math.Round(float64(required) * cfg.PerpetualsWeight))
	defi := int64(math.Round(float64(required) * cfg.DefiPerpsWeight))
	allianz := required - poly - perps - defi
	if allianz < 0 {
		allianz = 0
	}
	return domain.HedgeAllocation{
		Product:         exposure.Product,
		PolymarketCents: poly,
		PerpetualsCents: perps,
		DefiPerpsCents:  defi,
		AllianzCents:    allianz,
	}
}
