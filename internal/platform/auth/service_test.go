package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

func newService(t *testing.T) *Service {
	t.Helper()
	kv := kvstore.NewMemory()
	if err := kv.Open(context.Background()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	return NewService(NewStore(kv), []byte("test-secret"))
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	if err := s.Register(ctx, "emp-001", "Tanaka", "password123", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, acct, err := s.Login(ctx, "emp-001", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if acct.Name != "Tanaka" || acct.Role != "employee" {
		t.Fatalf("unexpected account: %+v", acct)
	}

	// name/sub がクレームに入っている
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) { return s.Secret(), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("parse token: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "emp-001" || claims["name"] != "Tanaka" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	if err := s.Register(ctx, "emp-001", "Tanaka", "password123", "admin"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := s.Login(ctx, "emp-001", "wrong"); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected auth failure for wrong password, got %v", err)
	}
	if _, _, err := s.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected auth failure for unknown id, got %v", err)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	if err := s.Register(ctx, "emp-001", "Tanaka", "pw", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register(ctx, "emp-001", "Tanaka", "pw", ""); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Register(ctx, "emp-001", "Tanaka", "pw", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Delete(ctx, "emp-001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := s.Login(ctx, "emp-001", "pw"); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("deleted account must not login, got %v", err)
	}
}
