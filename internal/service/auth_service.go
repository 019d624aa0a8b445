package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"approvals/internal/middleware"
	"approvals/internal/models"
	"approvals/internal/repository"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// AuthService signs users in and out.
type AuthService struct {
	users  repository.UserRepository
	tokens *middleware.TokenManager
	rdb    *redis.Client
	now    func() time.Time
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token  string
	Claims middleware.TokenClaims
	User   *models.User
}

func NewAuthService(users repository.UserRepository, tokens *middleware.TokenManager, rdb *redis.Client) *AuthService {
	return &AuthService{users: users, tokens: tokens, rdb: rdb, now: time.Now}
}

// Login verifies credentials and issues a token carrying the user's role.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// Unknown users and wrong passwords answer the same way.
	if user == nil || !user.IsActive {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &LoginResult{Token: token, Claims: claims, User: user}, nil
}

// Logout revokes the token identified by claims until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims middleware.TokenClaims) error {
	if s.rdb == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, middleware.BlacklistKey(claims.JTI), "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IsRevoked reports whether jti was logged out. Without Redis nothing is revoked.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.rdb == nil || jti == "" {
		return false, nil
	}
	_, err := s.rdb.Get(ctx, middleware.BlacklistKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Me returns the current user.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
