package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrAuthFailed    = errors.New("authentication failed")
)

const tokenTTL = 24 * time.Hour

// Service: ログインとアカウント管理。秘密鍵はグローバルに持たず注入する。
type Service struct {
	store  AccountStore
	secret []byte
}

func NewService(store AccountStore, secret []byte) *Service {
	return &Service{store: store, secret: secret}
}

func (s *Service) Secret() []byte { return s.secret }

func (s *Service) Login(ctx context.Context, id, password string) (string, *Account, error) {
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if acct == nil || acct.IsDisabled {
		return "", nil, ErrAuthFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthFailed
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  acct.ID,
		"name": acct.Name,
		"role": acct.Role,
		"exp":  time.Now().Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return tokenString, acct, nil
}

func (s *Service) Register(ctx context.Context, id, name, password, role string) error {
	if role == "" {
		role = "employee"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.store.Create(ctx, &Account{
		ID:           id,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
	})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	found, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}
