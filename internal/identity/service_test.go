package identity

import (
	"context"
	"testing"
)

func TestServiceRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Phone: "9876543210", PIN: "4321"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != RolePlayer {
		t.Fatalf("expected player role, got %s", user.Role)
	}

	authed, err := svc.Authenticate(ctx, Credentials{Phone: "9876543210", PIN: "4321"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, authed.ID)
	}
	if authed.LastLogin.IsZero() {
		t.Fatal("expected last login to be recorded")
	}
}

func TestServiceAuthenticateWrongPIN(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Phone: "9876543210", PIN: "4321"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, Credentials{Phone: "9876543210", PIN: "0000"}); err == nil {
		t.Fatal("expected authentication failure")
	}
}

func TestServiceRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Register(ctx, Credentials{Phone: "123", PIN: "4321"}); err == nil {
		t.Fatal("expected short phone rejection")
	}
	if _, err := svc.Register(ctx, Credentials{Phone: "9876543210", PIN: "12"}); err == nil {
		t.Fatal("expected short PIN rejection")
	}
}
