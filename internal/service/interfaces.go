package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dietvite/backend/internal/diet"
	"github.com/dietvite/backend/internal/models"
	"github.com/dietvite/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Signup(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, identifier, password string) (*models.User, error)
	GenerateToken(user *models.User) (string, error)
	ValidateToken(token string) (*types.TokenClaims, error)
}

// IChallengeService defines the interface for diet challenge operations
type IChallengeService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Challenge, error)
	Reset(ctx context.Context, userID uuid.UUID, timeFrame int) (*models.Challenge, error)
	LogQuery(ctx context.Context, userID uuid.UUID, query string) (*QueryResult, error)
	Gaps(ctx context.Context, userID uuid.UUID) (diet.GapSheet, error)
	Suggestions(ctx context.Context, userID uuid.UUID) (*AdviceResult, error)
	Review(ctx context.Context, userID uuid.UUID) (*AdviceResult, error)
	MissedDays(ctx context.Context, userID uuid.UUID) (*MissedReport, error)
	Score(ctx context.Context, userID uuid.UUID) (*diet.ScoreResult, error)
}
