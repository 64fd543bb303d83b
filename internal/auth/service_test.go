package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/forkfleet/forkfleet-backend/pkg/auth"
	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
	pkgerrors "github.com/forkfleet/forkfleet-backend/pkg/errors"
	"github.com/forkfleet/forkfleet-backend/pkg/security"
)

type stubUserRepo struct {
	user      *models.User
	lastLogin *time.Time
}

func (s *stubUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, at time.Time) error {
	s.lastLogin = &at
	return nil
}

type stubAgentRepo struct {
	agent *models.Agent
}

func (s *stubAgentRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*models.Agent, error) {
	if s.agent == nil || s.agent.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.agent, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "forkfleet",
		ExpirationMinutes: 30,
	}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func TestServiceLoginAgentIncludesAgentClaim(t *testing.T) {
	password := "agent-secret"
	user := &models.User{
		ID:           uuid.New(),
		Username:     "rider1",
		Email:        "rider1@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleAgent,
	}
	agent := &models.Agent{ID: uuid.New(), UserID: user.ID}

	svc, err := NewService(ServiceParams{
		UserRepo:  &stubUserRepo{user: user},
		AgentRepo: &stubAgentRepo{agent: agent},
		JWTConfig: testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{
		Username: user.Username,
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleAgent {
		t.Fatalf("expected agent role claim, got %s", claims.Role)
	}
	if claims.AgentID == nil || *claims.AgentID != agent.ID {
		t.Fatalf("expected agent id claim %s, got %v", agent.ID, claims.AgentID)
	}
	if resp.Role != enums.UserRoleAgent {
		t.Fatalf("unexpected response role %s", resp.Role)
	}
}

func TestServiceLoginWrongPassword(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Username:     "cust1",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleCustomer,
	}

	svc, err := NewService(ServiceParams{
		UserRepo:  &stubUserRepo{user: user},
		AgentRepo: &stubAgentRepo{},
		JWTConfig: testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{
		Username: user.Username,
		Password: "wrong-password",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceLoginUnknownUser(t *testing.T) {
	svc, err := NewService(ServiceParams{
		UserRepo:  &stubUserRepo{},
		AgentRepo: &stubAgentRepo{},
		JWTConfig: testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "x"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceLoginAgentWithoutAgentRow(t *testing.T) {
	password := "agent-secret"
	user := &models.User{
		ID:           uuid.New(),
		Username:     "rider2",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleAgent,
	}

	svc, err := NewService(ServiceParams{
		UserRepo:  &stubUserRepo{user: user},
		AgentRepo: &stubAgentRepo{},
		JWTConfig: testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Username: user.Username, Password: password})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}
