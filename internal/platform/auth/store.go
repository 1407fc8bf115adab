package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

// Account: 従業員アカウント。accounts コレクションに ID キーで保存する。
type Account struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
	IsDisabled   bool   `json:"is_disabled"`
	CreatedAt    int64  `json:"created_at"` // epoch ms
}

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]Account, error)
}

type Store struct{ kv kvstore.Store }

func NewStore(kv kvstore.Store) AccountStore {
	return &Store{kv: kv}
}

func (s *Store) GetByID(ctx context.Context, id string) (*Account, error) {
	var a Account
	found, err := s.kv.GetByKey(ctx, kvstore.CollectionAccounts, id, &a)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}
	err := s.kv.Add(ctx, kvstore.CollectionAccounts, a.ID, a)
	if errors.Is(err, kvstore.ErrDuplicateKey) {
		return ErrAlreadyExists
	}
	return err
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if a == nil {
		return false, nil
	}
	if err := s.kv.Delete(ctx, kvstore.CollectionAccounts, id); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context) ([]Account, error) {
	raws, err := s.kv.GetAll(ctx, kvstore.CollectionAccounts)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(raws))
	for _, raw := range raws {
		var a Account
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
