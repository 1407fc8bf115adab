package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

// UserSettings: ユーザ単位の設定。userSettings コレクションにユーザIDキーで1件。
type UserSettings struct {
	UserID               string `json:"user_id"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	DefaultZoneID        string `json:"default_zone_id,omitempty"` // 打刻UIの初期選択ゾーン
}

type UpdateSettingsRequest struct {
	NotificationsEnabled *bool   `json:"notifications_enabled,omitempty"`
	DefaultZoneID        *string `json:"default_zone_id,omitempty"`
}

// ===== Error model (zones と同型) =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) && api.Code == CodeInvalidArgument {
		return 400
	}
	return 500
}

// Service: 設定の読み書き。未保存ユーザには既定値を返す（通知は既定で有効）。
type Service struct {
	store kvstore.Store
}

func NewService(store kvstore.Store) *Service {
	return &Service{store: store}
}

func defaults(userID string) UserSettings {
	return UserSettings{UserID: userID, NotificationsEnabled: true}
}

func (s *Service) Get(ctx context.Context, userID string) (UserSettings, error) {
	if userID == "" {
		return UserSettings{}, ErrInvalid("user id is required")
	}
	var st UserSettings
	found, err := s.store.GetByKey(ctx, kvstore.CollectionUserSettings, userID, &st)
	if err != nil {
		return UserSettings{}, ErrInternal(err.Error())
	}
	if !found {
		return defaults(userID), nil
	}
	return st, nil
}

func (s *Service) Put(ctx context.Context, userID string, req UpdateSettingsRequest) (UserSettings, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return UserSettings{}, err
	}

	if req.NotificationsEnabled != nil {
		st.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.DefaultZoneID != nil {
		st.DefaultZoneID = *req.DefaultZoneID
	}

	if err := s.store.Update(ctx, kvstore.CollectionUserSettings, userID, st); err != nil {
		return UserSettings{}, ErrInternal(err.Error())
	}
	return st, nil
}

// NotificationsEnabled: 通知側から参照される購読フラグ
func (s *Service) NotificationsEnabled(ctx context.Context, userID string) (bool, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.NotificationsEnabled, nil
}
