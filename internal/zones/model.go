package zones

import (
	"errors"
	"fmt"
	"time"

	"github.com/j1a5h3ng/attendance-app/internal/geofence"
)

// Zone: 保存用レコード。中身は geofence.Zone + 管理用メタ。
type Zone struct {
	geofence.Zone
	CreatedAt int64 `json:"created_at"` // epoch ms
	Disabled  bool  `json:"disabled"`
}

// カラータグはパレット添字の循環で払い出す（UI側のバッジ色に対応）
const colorPaletteSize = 8

// ===== Error model (attendance と同型) =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

func nowMilli() int64 { return time.Now().UnixMilli() }
