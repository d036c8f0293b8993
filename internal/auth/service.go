package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/paisabet/paisabet/internal/config"
	"github.com/paisabet/paisabet/internal/identity"
)

// Service issues and refreshes JWT token pairs for authenticated users.
type Service struct {
	cfg    config.Config
	idRepo identity.Repository
}

// NewService builds the auth service.
func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo}
}

// TokenPair bundles access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type claims struct {
	Role    string `json:"role"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

// Login issues a token pair for a verified user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	access, exp, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := s.sign(user, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(exp).Seconds()),
	}, nil
}

func (s *Service) sign(user identity.User, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role:    user.Role,
		Version: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses a token and checks its version against the stored user,
// returning the authenticated user.
func (s *Service) Verify(ctx context.Context, tokenStr, secret string) (identity.User, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return identity.User{}, errors.New("invalid token")
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return identity.User{}, errors.New("invalid claims")
	}
	user, err := s.idRepo.FindByID(ctx, c.Subject)
	if err != nil {
		return identity.User{}, errors.New("user not found")
	}
	if user.TokenVersion != c.Version {
		return identity.User{}, errors.New("token invalidated")
	}
	return user, nil
}

// VerifyAccess validates an access token.
func (s *Service) VerifyAccess(ctx context.Context, tokenStr string) (identity.User, error) {
	return s.Verify(ctx, tokenStr, s.cfg.JWTSecret)
}

// Refresh verifies the refresh token and returns a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	user, err := s.Verify(ctx, refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	access, _, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTTL.Seconds()), nil
}

// Logout bumps the token version so previously issued tokens stop verifying.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}
