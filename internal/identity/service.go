// Package identity manages user accounts, credentials and token-based
// authentication.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hrops/casetrack/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Repository is the user and refresh-token store.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)

	SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenHash string) error
	DeleteUserRefreshTokens(ctx context.Context, userID string) error
}

// Authenticator issues and validates access tokens.
type Authenticator interface {
	GenerateAccessToken(user *domain.User) (string, error)
	ValidateAccessToken(token string) (domain.Actor, error)
}

// TokenPair carries a short-lived access token and a stored, revocable
// refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service implements account management and authentication.
type Service struct {
	repo       Repository
	auth       Authenticator
	refreshTTL time.Duration
}

// NewService creates a new identity service.
func NewService(repo Repository, auth Authenticator, refreshTTL time.Duration) *Service {
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Service{repo: repo, auth: auth, refreshTTL: refreshTTL}
}

// RegisterInput holds data for creating an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// Register creates a new user account. The default role is employee;
// elevated roles are assigned by an administrator during provisioning.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if _, err := s.repo.GetUserByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleEmployee
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("unknown role %q", input.Role)
	}

	user := &domain.User{
		ID:       uuid.New().String(),
		Email:    input.Email,
		Name:     input.Name,
		Password: string(hash),
		Role:     role,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// LoginInput holds login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.User, *TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// RefreshTokens exchanges a valid refresh token for a new pair. The old
// refresh token is rotated out.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	hash := hashToken(refreshToken)

	stored, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.repo.DeleteRefreshToken(ctx, hash)
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, stored.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if err := s.repo.DeleteRefreshToken(ctx, hash); err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return s.issueTokens(ctx, user)
}

// Logout revokes one refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.DeleteRefreshToken(ctx, hashToken(refreshToken))
}

// LogoutAll revokes every refresh token of a user.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	return s.repo.DeleteUserRefreshTokens(ctx, userID)
}

// GetUserByID retrieves a user by id.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ListUsers retrieves all users.
func (s *Service) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.repo.ListUsers(ctx)
}

// ValidateToken resolves a bearer access token to the acting user. It
// satisfies the HTTP middleware's TokenValidator.
func (s *Service) ValidateToken(_ context.Context, token string) (domain.Actor, error) {
	actor, err := s.auth.ValidateAccessToken(token)
	if err != nil {
		return domain.Actor{}, ErrInvalidToken
	}
	return actor, nil
}

func (s *Service) issueTokens(ctx context.Context, user *domain.User) (*TokenPair, error) {
	access, err := s.auth.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refresh, err := generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	record := &domain.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.repo.SaveRefreshToken(ctx, record); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
