package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dietvite/backend/internal/diet"
	"github.com/dietvite/backend/internal/models"
	"github.com/dietvite/backend/internal/service"
	"github.com/dietvite/backend/internal/types"
)

// MockGenerator is a mock implementation of service.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, systemMessage, userMessage string) (string, error) {
	args := m.Called(ctx, systemMessage, userMessage)
	return args.String(0), args.Error(1)
}

// MockAuthService is a mock implementation of service.IAuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	args := m.Called(ctx, username, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) GenerateToken(user *models.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ValidateToken(token string) (*types.TokenClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenClaims), args.Error(1)
}

// MockChallengeService is a mock implementation of service.IChallengeService
type MockChallengeService struct {
	mock.Mock
}

func (m *MockChallengeService) Get(ctx context.Context, userID uuid.UUID) (*models.Challenge, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Challenge), args.Error(1)
}

func (m *MockChallengeService) Reset(ctx context.Context, userID uuid.UUID, timeFrame int) (*models.Challenge, error) {
	args := m.Called(ctx, userID, timeFrame)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Challenge), args.Error(1)
}

func (m *MockChallengeService) LogQuery(ctx context.Context, userID uuid.UUID, query string) (*service.QueryResult, error) {
	args := m.Called(ctx, userID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.QueryResult), args.Error(1)
}

func (m *MockChallengeService) Gaps(ctx context.Context, userID uuid.UUID) (diet.GapSheet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(diet.GapSheet), args.Error(1)
}

func (m *MockChallengeService) Suggestions(ctx context.Context, userID uuid.UUID) (*service.AdviceResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AdviceResult), args.Error(1)
}

func (m *MockChallengeService) Review(ctx context.Context, userID uuid.UUID) (*service.AdviceResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AdviceResult), args.Error(1)
}

func (m *MockChallengeService) MissedDays(ctx context.Context, userID uuid.UUID) (*service.MissedReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MissedReport), args.Error(1)
}

func (m *MockChallengeService) Score(ctx context.Context, userID uuid.UUID) (*diet.ScoreResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*diet.ScoreResult), args.Error(1)
}

var (
	_ service.Generator         = (*MockGenerator)(nil)
	_ service.IAuthService      = (*MockAuthService)(nil)
	_ service.IChallengeService = (*MockChallengeService)(nil)
)
