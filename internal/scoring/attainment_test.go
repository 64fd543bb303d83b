package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forkfleet/forkfleet-backend/pkg/enums"
)

func TestGuaranteeAttainmentWholePool(t *testing.T) {
	pool := []AgentProjection{
		{ProjectedCents: 12000, GuaranteeCents: 10000, Assigned: true},
		{ProjectedCents: 10000, GuaranteeCents: 10000, Assigned: false},
		{ProjectedCents: 4000, GuaranteeCents: 10000, Assigned: true},
		{ProjectedCents: 0, GuaranteeCents: 10000, Assigned: false},
	}

	got := GuaranteeAttainment(pool, enums.RatioScopeWholePool, 0.25)
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestGuaranteeAttainmentAllMeetIsOne(t *testing.T) {
	pool := []AgentProjection{
		{ProjectedCents: 10000, GuaranteeCents: 10000},
		{ProjectedCents: 15000, GuaranteeCents: 10000},
		{ProjectedCents: 20000, GuaranteeCents: 10000},
	}

	got := GuaranteeAttainment(pool, enums.RatioScopeWholePool, 0.25)
	assert.Equal(t, 1.0, got)
}

func TestGuaranteeAttainmentAssignedOnlyNarrowsPopulation(t *testing.T) {
	pool := []AgentProjection{
		{ProjectedCents: 12000, GuaranteeCents: 10000, Assigned: true},
		{ProjectedCents: 4000, GuaranteeCents: 10000, Assigned: true},
		// Unassigned agents never count under this scope.
		{ProjectedCents: 0, GuaranteeCents: 10000, Assigned: false},
		{ProjectedCents: 0, GuaranteeCents: 10000, Assigned: false},
	}

	got := GuaranteeAttainment(pool, enums.RatioScopeAssignedOnly, 0.25)
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestGuaranteeAttainmentEmptyPopulationUsesFallback(t *testing.T) {
	got := GuaranteeAttainment(nil, enums.RatioScopeWholePool, 0.25)
	assert.Equal(t, 0.25, got)

	unassigned := []AgentProjection{{ProjectedCents: 0, GuaranteeCents: 10000}}
	got = GuaranteeAttainment(unassigned, enums.RatioScopeAssignedOnly, 1.7)
	assert.Equal(t, 1.0, got)
}
