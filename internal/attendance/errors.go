package attendance

import (
	"errors"
	"fmt"

	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
	"github.com/j1a5h3ng/attendance-app/internal/session"
)

// ===== Error model (zones と同型 + 打刻系コード) =====

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"

	CodeStorageUnavailable         Code = "STORAGE_UNAVAILABLE"
	CodeDuplicateKey               Code = "DUPLICATE_KEY"
	CodePersistenceError           Code = "PERSISTENCE_ERROR"
	CodeLocationUnavailable        Code = "LOCATION_UNAVAILABLE"
	CodeLocationVerificationFailed Code = "LOCATION_VERIFICATION_FAILED"
	CodeOfflineRejected            Code = "OFFLINE_REJECTED"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	// Hint: ユーザが次に取れる手（リトライ・ゾーン選択・位置情報の許可）
	Hint string `json:"hint,omitempty"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

// fromErr: 下層の型付きエラーを API エラーへ写像する。
// 想定外のエラーだけが INTERNAL に落ちる。
func fromErr(err error) *APIError {
	var api *APIError
	if errors.As(err, &api) {
		return api
	}

	var se *session.StateError
	if errors.As(err, &se) {
		out := &APIError{Code: Code(se.Code), Message: se.Message}
		switch se.Code {
		case session.CodeLocationUnavailable:
			out.Hint = "enable location services and retry, or select a zone manually"
		case session.CodeLocationVerificationFailed:
			out.Hint = "move into an office zone, pick the correct zone, or register a new one"
		case session.CodeOfflineRejected:
			out.Hint = "reconnect and retry"
		}
		return out
	}

	if errors.Is(err, kvstore.ErrStorageUnavailable) {
		return &APIError{Code: CodeStorageUnavailable, Message: err.Error(), Hint: "offline capture is unavailable; retry while online"}
	}
	if errors.Is(err, kvstore.ErrDuplicateKey) {
		return &APIError{Code: CodeDuplicateKey, Message: err.Error()}
	}
	var pe *kvstore.PersistenceError
	if errors.As(err, &pe) {
		return &APIError{Code: CodePersistenceError, Message: err.Error(), Hint: "retry the operation"}
	}

	return &APIError{Code: CodeInternal, Message: err.Error()}
}

func toHTTPStatus(e *APIError) int {
	switch e.Code {
	case CodeInvalidArgument:
		return 400
	case CodeNotFound:
		return 404
	case CodeConflict, CodeDuplicateKey, CodeOfflineRejected:
		return 409
	case CodeLocationUnavailable, CodeLocationVerificationFailed:
		return 422
	case CodeStorageUnavailable:
		return 503
	default:
		return 500
	}
}
