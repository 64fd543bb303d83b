package orders

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

// DeliveryFeeCents prices a delivery as base fee plus a per-km rate over the
// great-circle pickup-to-dropoff distance, rounded half-up to whole cents.
func DeliveryFeeCents(cfg config.PricingConfig, pickup, dropoff types.GeographyPoint) int64 {
	distanceKm := decimal.NewFromFloat(pickup.DistanceKm(dropoff))
	base := decimal.NewFromInt(cfg.BaseFeeCents)
	perKm := decimal.NewFromInt(cfg.PerKmFeeCents)
	fee := base.Add(perKm.Mul(distanceKm))
	return fee.Round(0).IntPart()
}

// TravelETAMinutes estimates pickup prep plus agent travel time for the full
// agent -> pickup -> dropoff leg at the configured speed.
func TravelETAMinutes(cfg config.DispatchConfig, agentLoc, pickup, dropoff types.GeographyPoint) int {
	totalKm := agentLoc.DistanceKm(pickup) + pickup.DistanceKm(dropoff)
	travelMinutes := totalKm / cfg.AgentSpeedKMPH * 60
	prepMinutes := cfg.PrepTime.Minutes()
	return int(math.Ceil(math.Max(travelMinutes, prepMinutes)))
}
