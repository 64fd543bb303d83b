package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkfleet/forkfleet-backend/internal/agents"
	"github.com/forkfleet/forkfleet-backend/internal/earnings"
	"github.com/forkfleet/forkfleet-backend/internal/orders"
	"github.com/forkfleet/forkfleet-backend/internal/scoring"
	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/db"
	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
	apperrors "github.com/forkfleet/forkfleet-backend/pkg/errors"
	"github.com/forkfleet/forkfleet-backend/pkg/outbox"
	"github.com/forkfleet/forkfleet-backend/pkg/pagination"
	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

type fakeLock struct {
	held     bool
	acquired int
	releases int
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	l.acquired++
	return true, nil
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.held = false
	l.releases++
	return nil
}

type batchFixture struct {
	svc        Service
	lock       *fakeLock
	client     *db.Client
	windows    *Repository
	ordersRepo *orders.Repository
	agentsRepo *agents.Repository
}

func setupBatchTest(t *testing.T) *batchFixture {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	conn := client.DB()
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS agents (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  online INTEGER NOT NULL DEFAULT 0,
  current_job_id TEXT,
  location TEXT,
  period_earnings_cents INTEGER NOT NULL DEFAULT 0,
  guarantee_cents INTEGER NOT NULL DEFAULT 0,
  period_settled INTEGER NOT NULL DEFAULT 0,
  active_since DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS delivery_orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  restaurant_name TEXT NOT NULL,
  pickup TEXT,
  dropoff_address TEXT NOT NULL,
  dropoff TEXT,
  amount_cents INTEGER NOT NULL,
  delivery_fee_cents INTEGER NOT NULL,
  status TEXT NOT NULL,
  assigned_agent_id TEXT,
  batch_id TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  assigned_at DATETIME,
  picked_up_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS delivery_jobs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  agent_id TEXT NOT NULL,
  pickup TEXT,
  dropoff TEXT,
  eta_minutes INTEGER NOT NULL DEFAULT 0,
  assignment_score REAL NOT NULL DEFAULT 0,
  g_mean REAL NOT NULL DEFAULT 0,
  g_var REAL NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  completed_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS earnings (
  id TEXT PRIMARY KEY,
  agent_id TEXT NOT NULL,
  order_id TEXT,
  amount_cents INTEGER NOT NULL,
  type TEXT NOT NULL,
  paid_out INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  paid_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS batch_windows (
  id TEXT PRIMARY KEY,
  batch_id TEXT NOT NULL UNIQUE,
  window_start DATETIME NOT NULL,
  window_end DATETIME NOT NULL,
  total_orders INTEGER NOT NULL DEFAULT 0,
  assigned_orders INTEGER NOT NULL DEFAULT 0,
  available_agents INTEGER NOT NULL DEFAULT 0,
  guarantee_ratio REAL NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	} {
		require.NoError(t, conn.Exec(ddl).Error)
	}

	dispatch := config.DispatchConfig{
		BatchInterval:         3 * time.Minute,
		RunTimeout:            90 * time.Second,
		AgentSpeedKMPH:        25,
		PrepTime:              8 * time.Minute,
		InitialGuaranteeRatio: 0.25,
		RatioScope:            "whole_pool",
		PriorVariance:         0.05,
	}

	ordersRepo := orders.NewRepository(conn)
	agentsRepo := agents.NewRepository(conn)
	earningsRepo := earnings.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), nil)
	scorer := scoring.NewScorer(dispatch)

	orderSvc, err := orders.NewService(orders.Params{
		DB:       client,
		Orders:   ordersRepo,
		Agents:   agentsRepo,
		Earnings: earningsRepo,
		Scorer:   scorer,
		Outbox:   outboxSvc,
		Pricing:  config.PricingConfig{BaseFeeCents: 3000, PerKmFeeCents: 800},
		Dispatch: dispatch,
	})
	require.NoError(t, err)

	lock := &fakeLock{}
	windows := NewRepository(conn)

	svc, err := NewService(Params{
		DB:       client,
		Windows:  windows,
		Orders:   ordersRepo,
		Agents:   agentsRepo,
		Assigner: orderSvc,
		Scorer:   scorer,
		Outbox:   outboxSvc,
		Lock:     lock,
		Dispatch: dispatch,
	})
	require.NoError(t, err)

	return &batchFixture{
		svc:        svc,
		lock:       lock,
		client:     client,
		windows:    windows,
		ordersRepo: ordersRepo,
		agentsRepo: agentsRepo,
	}
}

func (f *batchFixture) seedAgent(t *testing.T, guarantee, earned int64) *models.Agent {
	t.Helper()
	agent := &models.Agent{
		ID:                  uuid.New(),
		UserID:              uuid.New(),
		Online:              true,
		Location:            types.GeographyPoint{Lat: 12.9716, Lng: 77.5946},
		GuaranteeCents:      guarantee,
		PeriodEarningsCents: earned,
	}
	require.NoError(t, f.agentsRepo.Create(context.Background(), agent))
	return agent
}

func (f *batchFixture) seedOrder(t *testing.T, createdAgo time.Duration) *models.DeliveryOrder {
	t.Helper()
	order := &models.DeliveryOrder{
		ID:               uuid.New(),
		CustomerID:       uuid.New(),
		RestaurantName:   "Dosa Corner",
		Pickup:           types.GeographyPoint{Lat: 12.9750, Lng: 77.6000},
		DropoffAddress:   "42 MG Road",
		Dropoff:          types.GeographyPoint{Lat: 12.9900, Lng: 77.6100},
		AmountCents:      45000,
		DeliveryFeeCents: 4200,
		Status:           enums.OrderStatusPending,
	}
	require.NoError(t, f.ordersRepo.Create(context.Background(), order))
	if createdAgo > 0 {
		require.NoError(t, f.client.DB().Table("delivery_orders").
			Where("id = ?", order.ID).
			Update("created_at", time.Now().Add(-createdAgo)).Error)
	}
	return order
}

func TestRunAssignsPendingOrders(t *testing.T) {
	f := setupBatchTest(t)
	ctx := context.Background()

	f.seedAgent(t, 10000, 2000)
	f.seedAgent(t, 10000, 5000)
	f.seedAgent(t, 10000, 9000)
	first := f.seedOrder(t, 10*time.Minute)
	second := f.seedOrder(t, 5*time.Minute)

	result, err := f.svc.Run(ctx, TriggerTimer)
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.NotNil(t, result.Window)

	assert.Equal(t, 2, result.Window.TotalOrders)
	assert.Equal(t, 2, result.Window.AssignedOrders)
	assert.Equal(t, 3, result.Window.AvailableAgents)
	assert.GreaterOrEqual(t, result.Window.GuaranteeRatio, 0.0)
	assert.LessOrEqual(t, result.Window.GuaranteeRatio, 1.0)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		order, err := f.ordersRepo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, enums.OrderStatusAssigned, order.Status)
		require.NotNil(t, order.BatchID)
		assert.Equal(t, result.Window.ID, *order.BatchID)
	}

	var events int64
	require.NoError(t, f.client.DB().Table("outbox_events").
		Where("event_type = ?", enums.EventBatchCompleted).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)

	assert.Equal(t, 1, f.lock.acquired)
	assert.Equal(t, 1, f.lock.releases)
}

func TestRunPrefersAgentWithLargerDeficit(t *testing.T) {
	f := setupBatchTest(t)
	ctx := context.Background()

	starving := f.seedAgent(t, 10000, 1000)
	f.seedAgent(t, 10000, 9500)
	order := f.seedOrder(t, time.Minute)

	result, err := f.svc.Run(ctx, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Window.AssignedOrders)

	reloaded, err := f.ordersRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.AssignedAgentID)
	assert.Equal(t, starving.ID, *reloaded.AssignedAgentID)
}

func TestRunTieBreaksByAgentID(t *testing.T) {
	f := setupBatchTest(t)
	ctx := context.Background()

	a := f.seedAgent(t, 10000, 5000)
	b := f.seedAgent(t, 10000, 5000)
	order := f.seedOrder(t, time.Minute)

	want := a.ID
	if b.ID.String() < a.ID.String() {
		want = b.ID
	}

	_, err := f.svc.Run(ctx, TriggerTimer)
	require.NoError(t, err)

	reloaded, err := f.ordersRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.AssignedAgentID)
	assert.Equal(t, want, *reloaded.AssignedAgentID)
}

func TestRunOldestOrderFirstWhenAgentsScarce(t *testing.T) {
	f := setupBatchTest(t)
	ctx := context.Background()

	f.seedAgent(t, 10000, 5000)
	oldest := f.seedOrder(t, 20*time.Minute)
	newer := f.seedOrder(t, time.Minute)

	result, err := f.svc.Run(ctx, TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Window.AssignedOrders)

	assignedOld, err := f.ordersRepo.FindByID(ctx, oldest.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAssigned, assignedOld.Status)

	stillPending, err := f.ordersRepo.FindByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, stillPending.Status)
}

func TestRunRecordsFullAttainmentWhenPoolMeetsGuarantees(t *testing.T) {
	f := setupBatchTest(t)
	ctx := context.Background()

	// Every agent already sits at or above their guarantee.
	f.seedAgent(t, 10000, 10000)
	f.seedAgent(t, 10000, 12000)
	f.seedAgent(t, 10000, 15000)
	f.seedOrder(t, time.Minute)

	result, err := f.svc.Run(ctx, TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Window.GuaranteeRatio)
}

func TestRunProjectsAssignedFeesIntoGuaranteeRatio(t *testing.T) {
	f := setupBatchTest(t)
	ctx := context.Background()

	// Each agent picks up one 4200-cent order. 6500 earned plus the fee
	// clears the guarantee, 2000 plus the fee does not.
	f.seedAgent(t, 10000, 6500)
	f.seedAgent(t, 10000, 2000)
	f.seedOrder(t, 10*time.Minute)
	f.seedOrder(t, 5*time.Minute)

	result, err := f.svc.Run(ctx, TriggerTimer)
	require.NoError(t, err)
	require.Equal(t, 2, result.Window.AssignedOrders)
	assert.InDelta(t, 0.5, result.Window.GuaranteeRatio, 1e-9)
}

func TestRunWithNoAgentsLeavesOrdersPending(t *testing.T) {
	f := setupBatchTest(t)
	ctx := context.Background()
	order := f.seedOrder(t, time.Minute)

	result, err := f.svc.Run(ctx, TriggerTimer)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Window.TotalOrders)
	assert.Equal(t, 0, result.Window.AssignedOrders)
	assert.Equal(t, 0, result.Window.AvailableAgents)
	// No agents online, so the configured initial ratio is recorded.
	assert.InDelta(t, 0.25, result.Window.GuaranteeRatio, 1e-9)

	reloaded, err := f.ordersRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, reloaded.Status)
}

func TestRunIsDeterministicForIdenticalSnapshots(t *testing.T) {
	ctx := context.Background()

	agentIDs := []uuid.UUID{
		uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		uuid.MustParse("33333333-3333-3333-3333-333333333333"),
	}
	orderIDs := []uuid.UUID{
		uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"),
		uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"),
		uuid.MustParse("cccccccc-cccc-cccc-cccc-cccccccccccc"),
	}
	// Two agents tie on earnings so the run has to fall back to id order.
	earned := []int64{1000, 5000, 5000}
	ages := []time.Duration{20 * time.Minute, 10 * time.Minute, time.Minute}

	run := func() map[uuid.UUID]uuid.UUID {
		f := setupBatchTest(t)
		for i, id := range agentIDs {
			agent := &models.Agent{
				ID:                  id,
				UserID:              uuid.New(),
				Online:              true,
				Location:            types.GeographyPoint{Lat: 12.9716, Lng: 77.5946},
				GuaranteeCents:      10000,
				PeriodEarningsCents: earned[i],
			}
			require.NoError(t, f.agentsRepo.Create(ctx, agent))
		}
		for i, id := range orderIDs {
			order := &models.DeliveryOrder{
				ID:               id,
				CustomerID:       uuid.New(),
				RestaurantName:   "Dosa Corner",
				Pickup:           types.GeographyPoint{Lat: 12.9750, Lng: 77.6000},
				DropoffAddress:   "42 MG Road",
				Dropoff:          types.GeographyPoint{Lat: 12.9900, Lng: 77.6100},
				AmountCents:      45000,
				DeliveryFeeCents: 4200,
				Status:           enums.OrderStatusPending,
			}
			require.NoError(t, f.ordersRepo.Create(ctx, order))
			require.NoError(t, f.client.DB().Table("delivery_orders").
				Where("id = ?", id).
				Update("created_at", time.Now().Add(-ages[i])).Error)
		}

		result, err := f.svc.Run(ctx, TriggerTimer)
		require.NoError(t, err)
		require.Equal(t, 3, result.Window.AssignedOrders)

		got := make(map[uuid.UUID]uuid.UUID, len(orderIDs))
		for _, id := range orderIDs {
			row, err := f.ordersRepo.FindByID(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, row.AssignedAgentID)
			got[id] = *row.AssignedAgentID
		}
		return got
	}

	first := run()
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, run())
	}
}

func TestRunSkipsTimerWhenLockHeld(t *testing.T) {
	f := setupBatchTest(t)
	f.lock.held = true

	result, err := f.svc.Run(context.Background(), TriggerTimer)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Nil(t, result.Window)

	var windows int64
	require.NoError(t, f.client.DB().Table("batch_windows").Count(&windows).Error)
	assert.Equal(t, int64(0), windows)
}

func TestRunManualTriggerConflictsWhenLockHeld(t *testing.T) {
	f := setupBatchTest(t)
	f.lock.held = true

	_, err := f.svc.Run(context.Background(), TriggerManual)
	require.Error(t, err)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code())
}

func TestCurrentStats(t *testing.T) {
	f := setupBatchTest(t)
	ctx := context.Background()

	stats, err := f.svc.CurrentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.PendingOrders)
	assert.Nil(t, stats.LastWindow)

	f.seedAgent(t, 10000, 0)
	f.seedOrder(t, time.Minute)
	f.seedOrder(t, time.Minute)

	_, err = f.svc.Run(ctx, TriggerTimer)
	require.NoError(t, err)

	stats, err = f.svc.CurrentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingOrders)
	assert.Equal(t, int64(0), stats.AvailableAgents)
	require.NotNil(t, stats.LastWindow)
	assert.Equal(t, 1, stats.LastWindow.AssignedOrders)
}

func TestCurrentStatsRatioTracksStore(t *testing.T) {
	f := setupBatchTest(t)
	ctx := context.Background()

	// Nothing ran in this process; the ratio is still projected straight
	// from the stored pool.
	f.seedAgent(t, 10000, 11000)
	f.seedAgent(t, 10000, 10000)

	stats, err := f.svc.CurrentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, stats.GuaranteeRatio)
}

func TestListWindowsPaginates(t *testing.T) {
	f := setupBatchTest(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		window := &models.BatchWindow{
			ID:          uuid.New(),
			BatchID:     fmt.Sprintf("bw-test-%d", i),
			WindowStart: base.Add(time.Duration(i) * time.Minute),
			WindowEnd:   base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.windows.Create(ctx, window))
	}

	page, err := f.svc.ListWindows(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Windows, 2)
	require.NotEmpty(t, page.NextCursor)
	assert.Equal(t, "bw-test-2", page.Windows[0].BatchID)

	rest, err := f.svc.ListWindows(ctx, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Windows, 1)
	assert.Equal(t, "bw-test-0", rest.Windows[0].BatchID)
	assert.Empty(t, rest.NextCursor)
}
