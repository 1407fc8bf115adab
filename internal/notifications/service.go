package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

// Notification: ユーザ宛の通知1件。申請の承認/却下などで積まれる。
type Notification struct {
	ID        string `json:"id"` // UUID v4
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"created_at"` // epoch ms
	Read      bool   `json:"read"`
}

// PrefsSource: 購読フラグの供給元（settings 側）
type PrefsSource interface {
	NotificationsEnabled(ctx context.Context, userID string) (bool, error)
}

// ===== Error model =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		}
	}
	return 500
}

// Service: 通知の作成と閲覧。購読を切ったユーザには積まない。
type Service struct {
	store kvstore.Store
	prefs PrefsSource
}

func NewService(store kvstore.Store, prefs PrefsSource) *Service {
	return &Service{store: store, prefs: prefs}
}

// Push: ユーザ宛に通知を積む。購読オフなら何もしない（エラーにはしない）。
func (s *Service) Push(ctx context.Context, userID, title, body string) error {
	if userID == "" || title == "" {
		return ErrInvalid("user id and title are required")
	}
	if s.prefs != nil {
		enabled, err := s.prefs.NotificationsEnabled(ctx, userID)
		if err != nil {
			return err
		}
		if !enabled {
			return nil
		}
	}

	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.store.Add(ctx, kvstore.CollectionNotifications, n.ID, n); err != nil {
		return ErrInternal(err.Error())
	}
	return nil
}

// List: ユーザの通知を新しい順に返す
func (s *Service) List(ctx context.Context, userID string) ([]Notification, error) {
	raws, err := s.store.GetAll(ctx, kvstore.CollectionNotifications)
	if err != nil {
		return nil, ErrInternal(err.Error())
	}
	out := make([]Notification, 0, len(raws))
	for _, raw := range raws {
		var n Notification
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, ErrInternal(err.Error())
		}
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// MarkRead: 既読化。他ユーザの通知は NOT_FOUND として扱う。
func (s *Service) MarkRead(ctx context.Context, userID, id string) (Notification, error) {
	var n Notification
	found, err := s.store.GetByKey(ctx, kvstore.CollectionNotifications, id, &n)
	if err != nil {
		return Notification{}, ErrInternal(err.Error())
	}
	if !found || n.UserID != userID {
		return Notification{}, ErrNotFound("notification not found: " + id)
	}

	n.Read = true
	if err := s.store.Update(ctx, kvstore.CollectionNotifications, n.ID, n); err != nil {
		return Notification{}, ErrInternal(err.Error())
	}
	return n, nil
}
