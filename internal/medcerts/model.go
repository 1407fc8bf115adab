package medcerts

import (
	"errors"
	"fmt"
)

const dateLayout = "2006-01-02"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Certificate: 診断書の提出1件。ファイル本体は外部ストレージ想定で、
// ここではメタデータのみ保持する。病気休暇申請（leaves）に任意で紐づく。
type Certificate struct {
	ID        string `json:"id"` // UUID v4
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	FileName  string `json:"file_name"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	IssueDate string `json:"issue_date"` // YYYY-MM-DD
	Doctor    string `json:"doctor,omitempty"`
	Hospital  string `json:"hospital,omitempty"`
	LeaveID   string `json:"leave_id,omitempty"` // 紐づく休暇申請
	Status    Status `json:"status"`
	CreatedAt int64  `json:"created_at"` // epoch ms（提出日時）
}

// ===== Error model (leaves と同型) =====

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
