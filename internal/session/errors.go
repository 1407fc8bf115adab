package session

import "fmt"

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"

	// 位置情報が取れない（拒否・タイムアウト・非対応）。状態は変えない。
	CodeLocationUnavailable Code = "LOCATION_UNAVAILABLE"
	// 位置は取れたが全ゾーン圏外
	CodeLocationVerificationFailed Code = "LOCATION_VERIFICATION_FAILED"
	// trust_on_disconnect 無効時にオフライン打刻を拒否
	CodeOfflineRejected Code = "OFFLINE_REJECTED"
)

type StateError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *StateError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func errInvalid(msg string) *StateError {
	return &StateError{Code: CodeInvalidArgument, Message: msg}
}
func errConflict(msg string) *StateError {
	return &StateError{Code: CodeConflict, Message: msg}
}
func errLocationUnavailable(msg string) *StateError {
	return &StateError{Code: CodeLocationUnavailable, Message: msg}
}
func errVerificationFailed(msg string) *StateError {
	return &StateError{Code: CodeLocationVerificationFailed, Message: msg}
}
func errOfflineRejected(msg string) *StateError {
	return &StateError{Code: CodeOfflineRejected, Message: msg}
}
