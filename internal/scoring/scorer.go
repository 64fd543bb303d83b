package scoring

import (
	stderrors "errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

// historyWindow bounds how many completed deliveries feed the variance
// estimate.
const historyWindow = 20

// shrinkWeight is the pseudo-count pulling thin histories toward the
// configured prior variance.
const shrinkWeight = 4.0

// Assessment is the fairness score for one order/agent pairing.
type Assessment struct {
	// GMean is the agent's normalized guarantee deficit in [0, 1].
	GMean float64
	// GVar is the variance of the agent's recent per-delivery earnings.
	// It is a variance, not a standard deviation.
	GVar float64
	// Value is the comparable score. Higher pairs are matched first.
	Value float64
}

// Scorer ranks order/agent pairings so agents furthest behind their
// guarantee are matched first. Scoring never reads the clock, so a fixed
// snapshot always produces the same assessments.
type Scorer struct {
	cfg config.DispatchConfig
}

// NewScorer constructs a scorer with the dispatch tuning parameters.
func NewScorer(cfg config.DispatchConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score assesses assigning order to agent. historyFees holds the fees of the
// agent's recent completed deliveries in cents, newest first; it may be
// empty.
func (s *Scorer) Score(order *models.DeliveryOrder, agent *models.Agent, historyFees []int64) (Assessment, error) {
	if order == nil || agent == nil {
		return Assessment{}, stderrors.New("scoring requires an order and an agent")
	}

	gMean := guaranteeDeficit(agent)
	gVar := earningsVariance(historyFees, s.cfg.PriorVariance)

	// The deficit alone decides the ranking. GVar rides along so clients
	// can show the uncertainty band.
	return Assessment{GMean: gMean, GVar: gVar, Value: gMean}, nil
}

// guaranteeDeficit returns how far behind the agent is on their period
// guarantee, normalized to [0, 1]. Agents with no guarantee score zero.
func guaranteeDeficit(agent *models.Agent) float64 {
	if agent.GuaranteeCents <= 0 {
		return 0
	}
	deficit := agent.GuaranteeCents - agent.PeriodEarningsCents
	if deficit <= 0 {
		return 0
	}
	ratio := float64(deficit) / float64(agent.GuaranteeCents)
	return math.Min(ratio, 1.0)
}

// earningsVariance estimates the variance of the agent's per-delivery
// earnings normalized by the window mean, shrunk toward the prior when the
// history is short. Fewer than two samples leave nothing to estimate and
// the prior applies outright.
func earningsVariance(fees []int64, prior float64) float64 {
	if len(fees) > historyWindow {
		fees = fees[:historyWindow]
	}
	if len(fees) < 2 {
		return prior
	}

	samples := make([]float64, len(fees))
	var sum float64
	for i, fee := range fees {
		samples[i] = float64(fee)
		sum += samples[i]
	}
	mean := sum / float64(len(samples))
	if mean <= 0 {
		return prior
	}
	for i := range samples {
		samples[i] /= mean
	}
	sample := stat.Variance(samples, nil)

	n := float64(len(samples))
	return (n*sample + shrinkWeight*prior) / (n + shrinkWeight)
}

// TravelDistanceKm is the agent's full route length for an order.
func TravelDistanceKm(agentLoc, pickup, dropoff types.GeographyPoint) float64 {
	return agentLoc.DistanceKm(pickup) + pickup.DistanceKm(dropoff)
}
