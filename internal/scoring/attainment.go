package scoring

import (
	"math"

	"github.com/forkfleet/forkfleet-backend/pkg/enums"
)

// AgentProjection is one agent's earnings outlook when reporting guarantee
// attainment. ProjectedCents counts fees of assigned but undelivered orders
// as already earned.
type AgentProjection struct {
	ProjectedCents int64
	GuaranteeCents int64
	Assigned       bool
}

// GuaranteeAttainment reports the fraction of agents whose projected
// earnings meet their guarantee. The assigned-only scope narrows the
// population to agents currently holding a job; fallback is used when the
// population is empty.
func GuaranteeAttainment(pool []AgentProjection, scope enums.GuaranteeRatioScope, fallback float64) float64 {
	population, meets := 0, 0
	for _, p := range pool {
		if scope == enums.RatioScopeAssignedOnly && !p.Assigned {
			continue
		}
		population++
		if p.ProjectedCents >= p.GuaranteeCents {
			meets++
		}
	}
	if population == 0 {
		return clampUnit(fallback)
	}
	return float64(meets) / float64(population)
}

func clampUnit(r float64) float64 {
	return math.Min(math.Max(r, 0), 1)
}
