package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/internal/auth"
	"github.com/forkfleet/forkfleet-backend/internal/batch"
	"github.com/forkfleet/forkfleet-backend/internal/earnings"
	"github.com/forkfleet/forkfleet-backend/internal/orders"
	"github.com/forkfleet/forkfleet-backend/internal/payouts"
	"github.com/forkfleet/forkfleet-backend/internal/scoring"
	pkgAuth "github.com/forkfleet/forkfleet-backend/pkg/auth"
	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
	"github.com/forkfleet/forkfleet-backend/pkg/logger"
	"github.com/forkfleet/forkfleet-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) Create(ctx context.Context, customerID uuid.UUID, req orders.CreateOrderRequest) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) GetByID(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) ListAvailable(ctx context.Context) ([]orders.OrderDTO, error) {
	return []orders.OrderDTO{}, nil
}

func (stubOrdersService) ActiveOrder(ctx context.Context, customerID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) Accept(ctx context.Context, orderID, agentID uuid.UUID) (*orders.JobDTO, error) {
	return &orders.JobDTO{}, nil
}

func (stubOrdersService) Assign(ctx context.Context, orderID, agentID, batchID uuid.UUID, assessment scoring.Assessment) (*orders.JobDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) Pickup(ctx context.Context, orderID, agentID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) StartTransit(ctx context.Context, orderID, agentID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) Deliver(ctx context.Context, orderID, agentID uuid.UUID) (*orders.DeliveryReceipt, error) {
	return &orders.DeliveryReceipt{}, nil
}

func (stubOrdersService) Cancel(ctx context.Context, orderID, customerID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) CurrentJob(ctx context.Context, agentID uuid.UUID) (*orders.JobDTO, error) {
	return &orders.JobDTO{}, nil
}

type stubEarningsService struct{}

func (stubEarningsService) Ledger(ctx context.Context, agentID uuid.UUID) (*earnings.LedgerDTO, error) {
	return &earnings.LedgerDTO{}, nil
}

type stubBatchService struct {
	triggers int
}

func (s *stubBatchService) Run(ctx context.Context, trigger string) (*batch.RunResult, error) {
	s.triggers++
	return &batch.RunResult{Window: &batch.WindowDTO{}}, nil
}

func (*stubBatchService) CurrentStats(ctx context.Context) (*batch.StatsDTO, error) {
	return &batch.StatsDTO{}, nil
}

func (*stubBatchService) ListWindows(ctx context.Context, params pagination.Params) (*batch.WindowPageDTO, error) {
	return &batch.WindowPageDTO{}, nil
}

type stubPayoutsService struct{}

func (stubPayoutsService) Finalize(ctx context.Context) (*payouts.FinalizeResult, error) {
	return &payouts.FinalizeResult{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		stubAuthService{},
		stubOrdersService{},
		stubEarningsService{},
		&stubBatchService{},
		stubPayoutsService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	payload := pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	}
	if role == enums.UserRoleAgent {
		agentID := uuid.New()
		payload.AgentID = &agentID
	}
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthEndpointsAreOpen(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestAgentGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/agent/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAgentGroupRequiresAgentRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/agent/orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	agent := httptest.NewRequest(http.MethodGet, "/api/v1/agent/orders", nil)
	agent.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAgent))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, agent)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for agent got %d", resp.Code)
	}
}

func TestAgentLifecycleRoutesRequireAgentRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	orderID := uuid.NewString()
	for _, action := range []string{"accept", "pickup", "transit", "deliver"} {
		path := "/api/v1/agent/orders/" + orderID + "/" + action

		req := httptest.NewRequest(http.MethodPost, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without token got %d", action, resp.Code)
		}

		req = httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
		resp = httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for customer %s got %d", action, resp.Code)
		}

		req = httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAgent))
		resp = httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for agent %s got %d", action, resp.Code)
		}
	}
}

func TestCustomerOrderRoutesRequireCustomerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	agent := httptest.NewRequest(http.MethodGet, "/api/v1/orders/active", nil)
	agent.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAgent))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, agent)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for agent on customer route got %d", resp.Code)
	}

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/orders/active", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for customer got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	agent := httptest.NewRequest(http.MethodGet, "/api/admin/v1/batches/current-stats", nil)
	agent.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAgent))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, agent)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/batches/current-stats", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestAdminTriggerBatchRuns(t *testing.T) {
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	batchSvc := &stubBatchService{}
	router := NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		stubAuthService{},
		stubOrdersService{},
		stubEarningsService{},
		batchSvc,
		stubPayoutsService{},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/batches/trigger", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for trigger got %d", resp.Code)
	}
	if batchSvc.triggers != 1 {
		t.Fatalf("expected one run got %d", batchSvc.triggers)
	}
}

func TestAdminFinalizeRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payments/finalize", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for finalize got %d", resp.Code)
	}
}
