package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service manages the identity lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a player with a hashed PIN. The new user id is also the
// ledger account id.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	if len(creds.Phone) < 10 {
		return User{}, errors.New("phone must be at least 10 digits")
	}
	if len(creds.PIN) < 4 {
		return User{}, errors.New("PIN must be at least 4 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.PIN), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:        uuid.New().String(),
		Phone:     creds.Phone,
		Role:      RolePlayer,
		PINHash:   hash,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies the phone/PIN pair and records the login time.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByPhone(ctx, creds.Phone)
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PINHash, []byte(creds.PIN)); err != nil {
		return User{}, errors.New("invalid PIN")
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLogin = now

	return user, nil
}
