package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

func testDispatchConfig() config.DispatchConfig {
	return config.DispatchConfig{
		BatchInterval:         3 * time.Minute,
		RunTimeout:            90 * time.Second,
		AgentSpeedKMPH:        25,
		PrepTime:              8 * time.Minute,
		InitialGuaranteeRatio: 0.25,
		RatioScope:            "whole_pool",
		PriorVariance:         0.05,
	}
}

func testAgent(guarantee, earned int64) *models.Agent {
	return &models.Agent{
		ID:                  uuid.New(),
		UserID:              uuid.New(),
		Online:              true,
		Location:            types.GeographyPoint{Lat: 12.9716, Lng: 77.5946},
		GuaranteeCents:      guarantee,
		PeriodEarningsCents: earned,
	}
}

func testOrder() *models.DeliveryOrder {
	return &models.DeliveryOrder{
		ID:      uuid.New(),
		Pickup:  types.GeographyPoint{Lat: 12.9750, Lng: 77.6000},
		Dropoff: types.GeographyPoint{Lat: 12.9900, Lng: 77.6100},
	}
}

func mustScore(t *testing.T, s *Scorer, order *models.DeliveryOrder, agent *models.Agent, fees []int64) Assessment {
	t.Helper()
	got, err := s.Score(order, agent, fees)
	if err != nil {
		t.Fatalf("unexpected scoring error: %v", err)
	}
	return got
}

func TestScorePrefersLargerDeficit(t *testing.T) {
	scorer := NewScorer(testDispatchConfig())
	order := testOrder()

	behind := mustScore(t, scorer, order, testAgent(10000, 2000), nil)
	ahead := mustScore(t, scorer, order, testAgent(10000, 9000), nil)

	if behind.Value <= ahead.Value {
		t.Fatalf("expected agent with larger deficit to score higher: %f <= %f", behind.Value, ahead.Value)
	}
	if want := 0.8; math.Abs(behind.GMean-want) > 1e-9 {
		t.Fatalf("expected g_mean %f, got %f", want, behind.GMean)
	}
	if behind.Value != behind.GMean {
		t.Fatalf("expected value to equal g_mean, got %f vs %f", behind.Value, behind.GMean)
	}
}

func TestScoreDeficitClamped(t *testing.T) {
	scorer := NewScorer(testDispatchConfig())
	order := testOrder()

	overEarned := mustScore(t, scorer, order, testAgent(10000, 15000), nil)
	if overEarned.GMean != 0 {
		t.Fatalf("expected zero g_mean for agent past guarantee, got %f", overEarned.GMean)
	}

	negative := mustScore(t, scorer, order, testAgent(10000, -5000), nil)
	if negative.GMean != 1 {
		t.Fatalf("expected g_mean clamped to 1, got %f", negative.GMean)
	}
}

func TestScoreZeroGuarantee(t *testing.T) {
	scorer := NewScorer(testDispatchConfig())
	got := mustScore(t, scorer, testOrder(), testAgent(0, 0), nil)
	if got.GMean != 0 || got.Value != 0 {
		t.Fatalf("expected zero score without a guarantee, got %+v", got)
	}
}

func TestScoreRejectsNilInputs(t *testing.T) {
	scorer := NewScorer(testDispatchConfig())
	if _, err := scorer.Score(nil, testAgent(10000, 0), nil); err == nil {
		t.Fatal("expected error for nil order")
	}
	if _, err := scorer.Score(testOrder(), nil, nil); err == nil {
		t.Fatal("expected error for nil agent")
	}
}

func TestScoreVariancePriorWithThinHistory(t *testing.T) {
	cfg := testDispatchConfig()
	scorer := NewScorer(cfg)
	order := testOrder()
	agent := testAgent(10000, 2000)

	for _, fees := range [][]int64{nil, {4200}} {
		got := mustScore(t, scorer, order, agent, fees)
		if got.GVar != cfg.PriorVariance {
			t.Fatalf("expected prior variance %f for %d samples, got %f", cfg.PriorVariance, len(fees), got.GVar)
		}
	}
}

func TestScoreVarianceShrunkTowardPrior(t *testing.T) {
	cfg := testDispatchConfig()
	scorer := NewScorer(cfg)
	order := testOrder()
	agent := testAgent(10000, 2000)

	// Identical fees have zero sample variance, so only the prior remains
	// after shrinkage, scaled down by the history length.
	uniform := mustScore(t, scorer, order, agent, []int64{4000, 4000, 4000, 4000})
	if uniform.GVar <= 0 || uniform.GVar >= cfg.PriorVariance {
		t.Fatalf("expected shrunk variance in (0, prior), got %f", uniform.GVar)
	}

	erratic := mustScore(t, scorer, order, agent, []int64{1000, 9000, 500, 8000})
	if erratic.GVar <= uniform.GVar {
		t.Fatalf("expected erratic history to raise variance: %f <= %f", erratic.GVar, uniform.GVar)
	}

	// Variance is informational only.
	if erratic.Value != uniform.Value {
		t.Fatalf("expected variance to leave the value untouched: %f != %f", erratic.Value, uniform.Value)
	}
}

func TestScoreDeterministic(t *testing.T) {
	scorer := NewScorer(testDispatchConfig())
	order := testOrder()
	agent := testAgent(10000, 3500)
	fees := []int64{3000, 4500, 2800}

	first := mustScore(t, scorer, order, agent, fees)
	for i := 0; i < 5; i++ {
		again := mustScore(t, scorer, order, agent, fees)
		if again != first {
			t.Fatalf("expected identical assessments, got %+v then %+v", first, again)
		}
	}
}
