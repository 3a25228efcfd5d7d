package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/videofeed/internal/common"
	"github.com/dmitrijs2005/videofeed/internal/server/auth"
	"github.com/dmitrijs2005/videofeed/internal/server/config"
)

// AuthService guards mutating routes with a single admin password. It is
// disabled when no password hash is configured.
type AuthService struct {
	passwordHash                string
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		passwordHash:                cfg.AdminPasswordHash,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

func (s *AuthService) Enabled() bool {
	return s.passwordHash != ""
}

// Login checks password against the admin hash and returns an access token.
func (s *AuthService) Login(ctx context.Context, password string) (string, error) {
	if !s.Enabled() {
		return "", common.ErrorUnauthorized
	}
	if err := auth.CheckPassword(s.passwordHash, password); err != nil {
		return "", err
	}
	return auth.GenerateToken(auth.AdminSubject, s.jwtSecret, s.accessTokenValidityDuration)
}

// Authenticate accepts a bearer token minted by Login.
func (s *AuthService) Authenticate(token string) error {
	sub, err := auth.SubjectFromToken(token, s.jwtSecret)
	if err != nil {
		return err
	}
	if sub != auth.AdminSubject {
		return common.ErrInvalidToken
	}
	return nil
}
