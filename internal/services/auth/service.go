// Package auth issues and validates wallet session tokens. A session is
// established for a wallet address; who proved control of the wallet is the
// frontend's concern and outside this service.
package auth

import (
	"context"
	"errors"
	"time"

	"arbirupee/internal/config"
	"arbirupee/internal/models"
	"arbirupee/internal/repositories"
	"arbirupee/internal/services/chain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrInvalidToken   = errors.New("invalid session token")
)

type Service interface {
	CreateSession(ctx context.Context, walletAddress string) (*models.User, string, error)
	ValidateToken(tokenString string) (*models.UserClaims, error)
}

type service struct {
	users     repositories.UserRepository
	secret    []byte
	tokenTTL  time.Duration
	validAddr func(string) bool
}

func NewService(users repositories.UserRepository) Service {
	if users == nil {
		panic("user repository is required")
	}
	ttl := time.Duration(config.GetIntEnv("JWT_TTL_HOURS", 24)) * time.Hour
	return &service{
		users:     users,
		secret:    []byte(config.GetEnv("JWT_SECRET", "dev-session-secret")),
		tokenTTL:  ttl,
		validAddr: chain.IsValidAddress,
	}
}

// CreateSession upserts the user for the wallet and returns a signed token.
func (s *service) CreateSession(ctx context.Context, walletAddress string) (*models.User, string, error) {
	if !s.validAddr(walletAddress) {
		return nil, "", ErrInvalidAddress
	}

	user, err := s.users.FindOrCreateByWallet(ctx, walletAddress)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	claims := &models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.WalletAddress,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *service) ValidateToken(tokenString string) (*models.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.UserClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || claims.WalletAddress == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
