package quota

import (
	"fmt"

	"github.com/phrazzld/atelier-api/internal/config"
	"github.com/phrazzld/atelier-api/internal/domain"
)

// LimitsFromConfig converts the configured tier table into domain tier
// limits, rejecting unknown tier names.
func LimitsFromConfig(cfg config.QuotaConfig) (map[domain.QuotaTier]domain.TierLimits, error) {
	limits := make(map[domain.QuotaTier]domain.TierLimits, len(cfg.Tiers))

	for name, tl := range cfg.Tiers {
		tier := domain.QuotaTier(name)
		if err := tier.Validate(); err != nil {
			return nil, fmt.Errorf("unknown quota tier %q: %w", name, err)
		}
		limits[tier] = domain.TierLimits{
			MonthlyCredits:  tl.MonthlyCredits,
			MaxImagesPerDay: tl.MaxImagesPerDay,
			OnDemandAllowed: tl.OnDemandAllowed,
		}
	}

	return limits, nil
}
