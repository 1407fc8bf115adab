package leaves

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/j1a5h3ng/attendance-app/internal/offline"
	"github.com/j1a5h3ng/attendance-app/internal/platform/kvstore"
)

type SubmitLeaveRequest struct {
	LeaveType string `json:"leave_type" binding:"required"`
	StartDate string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate   string `json:"end_date" binding:"required"`   // YYYY-MM-DD
	Reason    string `json:"reason,omitempty"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// Notifier: 審査結果のユーザ通知（notifications 側）
type Notifier interface {
	Push(ctx context.Context, userID, title, body string) error
}

// Service: 休暇申請。leaveRequests コレクションを正とし、
// 申請時に leaveRequest 種別のオフラインアクションも積む（オフライン起票対応）。
type Service struct {
	store    kvstore.Store
	queue    *offline.Queue
	notifier Notifier
}

func NewService(store kvstore.Store, queue *offline.Queue, notifier Notifier) *Service {
	return &Service{store: store, queue: queue, notifier: notifier}
}

func (s *Service) Submit(ctx context.Context, userID, userName string, req SubmitLeaveRequest) (LeaveRequest, error) {
	if !leaveTypes[req.LeaveType] {
		return LeaveRequest{}, ErrInvalid("unknown leave_type: " + req.LeaveType)
	}
	start, err := time.Parse(DateLayout, req.StartDate)
	if err != nil {
		return LeaveRequest{}, ErrInvalid("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(DateLayout, req.EndDate)
	if err != nil {
		return LeaveRequest{}, ErrInvalid("end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return LeaveRequest{}, ErrInvalid("end_date must be >= start_date")
	}

	lr := LeaveRequest{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserName:  userName,
		LeaveType: req.LeaveType,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
		Status:    StatusPending,
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := s.store.Add(ctx, kvstore.CollectionLeaveRequests, lr.ID, lr); err != nil {
		return LeaveRequest{}, ErrInternal(err.Error())
	}
	if _, err := s.queue.Enqueue(ctx, offline.KindLeaveRequest, lr); err != nil {
		return LeaveRequest{}, ErrInternal(err.Error())
	}
	return lr, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]LeaveRequest, error) {
	raws, err := s.store.GetAll(ctx, kvstore.CollectionLeaveRequests)
	if err != nil {
		return nil, ErrInternal(err.Error())
	}
	out := make([]LeaveRequest, 0, len(raws))
	for _, raw := range raws {
		var lr LeaveRequest
		if err := json.Unmarshal(raw, &lr); err != nil {
			return nil, ErrInternal(err.Error())
		}
		if userID == "" || lr.UserID == userID {
			out = append(out, lr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// UpdateStatus: 管理者の承認/却下。pending 以外からの変更は拒否する。
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (LeaveRequest, error) {
	if status != StatusApproved && status != StatusRejected {
		return LeaveRequest{}, ErrInvalid("status must be approved or rejected")
	}

	var lr LeaveRequest
	found, err := s.store.GetByKey(ctx, kvstore.CollectionLeaveRequests, id, &lr)
	if err != nil {
		return LeaveRequest{}, ErrInternal(err.Error())
	}
	if !found {
		return LeaveRequest{}, ErrNotFound("leave request not found: " + id)
	}
	if lr.Status != StatusPending {
		return LeaveRequest{}, ErrConflict("leave request already " + string(lr.Status))
	}

	lr.Status = status
	if err := s.store.Update(ctx, kvstore.CollectionLeaveRequests, lr.ID, lr); err != nil {
		return LeaveRequest{}, ErrInternal(err.Error())
	}

	if s.notifier != nil {
		body := "Your " + lr.LeaveType + " leave request (" + lr.StartDate + " - " + lr.EndDate + ") was " + string(status) + "."
		if err := s.notifier.Push(ctx, lr.UserID, "Leave request "+string(status), body); err != nil {
			log.Printf("[WARN] leaves: notify %s failed: %v", lr.UserID, err)
		}
	}
	return lr, nil
}
